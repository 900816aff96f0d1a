package service

import (
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// pairLocker は単語の組ごとの排他です。種類に依らず同じ組は同じロックを使うので、
// synonym と antonym の追加が同時に矛盾チェックを通り抜けることはありません。
type pairLocker struct {
	mu    sync.Mutex
	locks map[string]*pairLock
}

type pairLock struct {
	mu   sync.Mutex
	refs int
}

func newPairLocker() *pairLocker {
	return &pairLocker{locks: make(map[string]*pairLock)}
}

func pairKey(a, b uuid.UUID) string {
	as, bs := a.String(), b.String()
	if bs < as {
		as, bs = bs, as
	}
	return as + "|" + bs
}

// Lock は組のロックを取得し、解放関数を返します。
func (p *pairLocker) Lock(a, b uuid.UUID) func() {
	key := pairKey(a, b)

	p.mu.Lock()
	l, ok := p.locks[key]
	if !ok {
		l = &pairLock{}
		p.locks[key] = l
	}
	l.refs++
	p.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		p.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(p.locks, key)
		}
		p.mu.Unlock()
	}
}

// LockWords は単語ごとのロックを ID の順に取得します。組のロックを持ったまま呼んでも構いませんが、
// 逆の順 (単語のロックを持ったまま組のロック) で取ってはいけません。
func (p *pairLocker) LockWords(ids ...uuid.UUID) func() {
	ids = slices.Clone(ids)
	slices.SortFunc(ids, func(a, b uuid.UUID) int { return strings.Compare(a.String(), b.String()) })
	ids = slices.Compact(ids)

	unlocks := make([]func(), 0, len(ids))
	for _, id := range ids {
		unlocks = append(unlocks, p.Lock(id, id))
	}
	return func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
}
