package service

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func Test_pairLocker(t *testing.T) {
	t.Run("正常系: 向きに依らず同じ組は排他される", func(t *testing.T) {
		locker := newPairLocker()
		a, b := uuid.New(), uuid.New()

		counter := 0
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				var unlock func()
				if i%2 == 0 {
					unlock = locker.Lock(a, b)
				} else {
					unlock = locker.Lock(b, a)
				}
				defer unlock()
				v := counter
				counter = v + 1
			}(i)
		}
		wg.Wait()

		assert.Equal(t, 50, counter)
		assert.Empty(t, locker.locks, "使われなくなったロックは削除される")
	})

	t.Run("正常系: 別の組は互いに待たない", func(t *testing.T) {
		locker := newPairLocker()
		unlock1 := locker.Lock(uuid.New(), uuid.New())
		defer unlock1()

		done := make(chan struct{})
		go func() {
			unlock2 := locker.Lock(uuid.New(), uuid.New())
			unlock2()
			close(done)
		}()
		<-done
	})

	t.Run("正常系: 同じ単語を含むロックは待ち合わせる", func(t *testing.T) {
		locker := newPairLocker()
		a, b, c := uuid.New(), uuid.New(), uuid.New()
		unlock := locker.LockWords(a, b)

		acquired := make(chan struct{})
		go func() {
			unlockOther := locker.LockWords(c, a, c)
			close(acquired)
			unlockOther()
		}()

		select {
		case <-acquired:
			t.Fatal("単語 a のロックが解放される前に取得できた")
		case <-time.After(50 * time.Millisecond):
		}
		unlock()
		<-acquired

		assert.Eventually(t, func() bool {
			locker.mu.Lock()
			defer locker.mu.Unlock()
			return len(locker.locks) == 0
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("正常系: キーは小さいIDが先", func(t *testing.T) {
		a, b := uuid.New(), uuid.New()
		assert.Equal(t, pairKey(a, b), pairKey(b, a))
	})
}
