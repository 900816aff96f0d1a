package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go_5_vocab_practice/internal/config"
	"go_5_vocab_practice/internal/logging"
	"go_5_vocab_practice/internal/model"
	"go_5_vocab_practice/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EdgeGuard はエッジ追加と同じロック・トランザクション内で実行される追加チェックです。
type EdgeGuard func(ctx context.Context, tx *gorm.DB, edge *model.RelationEdge) error

// GraphStore は単語とエッジの保存と近傍探索を提供します。方針は持ちません。
type GraphStore interface {
	AddWord(ctx context.Context, word *model.Word) error
	GetWord(ctx context.Context, wordID uuid.UUID) (*model.Word, error)
	AddEdge(ctx context.Context, edge *model.RelationEdge) error
	AddEdgeGuarded(ctx context.Context, edge *model.RelationEdge, guard EdgeGuard) error
	ValidateEdge(ctx context.Context, edge *model.RelationEdge, guard EdgeGuard) error
	RemoveEdge(ctx context.Context, source, target uuid.UUID, kind model.RelationKind) error
	Neighbors(ctx context.Context, wordID uuid.UUID, kind model.RelationKind, maxHops int) ([]model.Word, error)
	NeighborsExcluding(ctx context.Context, wordID uuid.UUID, kind model.RelationKind, maxHops int, blocked map[uuid.UUID]bool) ([]model.Word, error)
	Edges(ctx context.Context, wordID uuid.UUID) ([]*model.RelationEdge, error)
}

type graphStore struct {
	db       *gorm.DB
	wordRepo repository.WordRepository
	edgeRepo repository.EdgeRepository
	cfg      *config.Config
	locks    *pairLocker
}

func NewGraphStore(db *gorm.DB, wordRepo repository.WordRepository, edgeRepo repository.EdgeRepository, cfg *config.Config) GraphStore {
	return &graphStore{
		db:       db,
		wordRepo: wordRepo,
		edgeRepo: edgeRepo,
		cfg:      cfg,
		locks:    newPairLocker(),
	}
}

func (s *graphStore) AddWord(ctx context.Context, word *model.Word) error {
	word.Text = strings.TrimSpace(word.Text)
	word.Language = strings.ToLower(strings.TrimSpace(word.Language))
	if word.Text == "" || word.Language == "" {
		return model.NewAppError("INVALID_WORD", "単語のテキストと言語は必須です。", "text", model.ErrInvalidInput)
	}
	if word.WordType == "" {
		word.WordType = model.WordTypeOther
	}
	if word.WordID == uuid.Nil {
		word.WordID = uuid.New()
	}
	if word.Version == 0 {
		word.Version = 1
	}
	if err := s.wordRepo.Create(ctx, s.db, word); err != nil {
		if errors.Is(err, model.ErrConflict) {
			return model.NewAppError("WORD_EXISTS", "同じIDの単語が既に存在します。", "word_id", err)
		}
		return err
	}
	return nil
}

func (s *graphStore) GetWord(ctx context.Context, wordID uuid.UUID) (*model.Word, error) {
	return s.wordRepo.FindByID(ctx, s.db, wordID)
}

func (s *graphStore) AddEdge(ctx context.Context, edge *model.RelationEdge) error {
	return s.AddEdgeGuarded(ctx, edge, nil)
}

// AddEdgeGuarded は組のロックを取り、トランザクション内で検査と書き込みを行います。
// 一意制約は他プロセスとの競合に対する最後の砦です。
func (s *graphStore) AddEdgeGuarded(ctx context.Context, edge *model.RelationEdge, guard EdgeGuard) error {
	logger := logging.GetLogger(ctx).With("kind", edge.Kind, "source_word_id", edge.SourceWordID, "target_word_id", edge.TargetWordID)

	if err := s.prepareEdge(ctx, s.db, edge); err != nil {
		return err
	}

	unlock := s.locks.Lock(edge.SourceWordID, edge.TargetWordID)
	defer unlock()
	// 上限は単語ごとに数えるので、数える側の単語も排他する
	if s.cfg.Graph.RelationLimit(string(edge.Kind)) > 0 {
		unlockWords := s.locks.LockWords(limitedEnds(edge)...)
		defer unlockWords()
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.checkEdge(ctx, tx, edge, guard); err != nil {
			return err
		}
		if err := s.edgeRepo.Create(ctx, tx, edge); err != nil {
			if errors.Is(err, model.ErrConflict) {
				return model.NewAppError("DUPLICATE_EDGE", "同じ関連が既に存在します。", "target_word_id", model.ErrDuplicateEdge)
			}
			return err
		}
		return nil
	})
	if err != nil {
		logger.Info("Relation edge rejected", "error", err)
		return err
	}
	logger.Debug("Relation edge added", "edge_id", edge.EdgeID)
	return nil
}

// ValidateEdge は書き込まずに AddEdgeGuarded と同じ検査を行います。edge は変更しません。
func (s *graphStore) ValidateEdge(ctx context.Context, edge *model.RelationEdge, guard EdgeGuard) error {
	e := *edge
	if err := s.prepareEdge(ctx, s.db, &e); err != nil {
		return err
	}
	return s.checkEdge(ctx, s.db, &e, guard)
}

// prepareEdge は構造上の制約を検査し、向きを正規化して派生項目を埋めます。
func (s *graphStore) prepareEdge(ctx context.Context, db *gorm.DB, edge *model.RelationEdge) error {
	if !edge.Kind.IsValid() {
		return model.NewAppError("INVALID_EDGE", fmt.Sprintf("不明な関連の種類です: %q", edge.Kind), "kind", model.ErrInvalidEdge)
	}
	if edge.Kind == model.RelationCollectionMember {
		return model.NewAppError("INVALID_EDGE", "コレクションへの追加は CollectionService を使ってください。", "kind", model.ErrInvalidEdge)
	}
	if edge.SourceWordID == uuid.Nil || edge.TargetWordID == uuid.Nil {
		return model.NewAppError("INVALID_EDGE", "関連の両端は必須です。", "source_word_id", model.ErrInvalidEdge)
	}
	if edge.SourceWordID == edge.TargetWordID {
		return model.NewAppError("INVALID_EDGE", "自分自身への関連は作成できません。", "target_word_id", model.ErrInvalidEdge)
	}

	words, err := s.wordRepo.FindByIDs(ctx, db, []uuid.UUID{edge.SourceWordID, edge.TargetWordID})
	if err != nil {
		return err
	}
	source, target := words[edge.SourceWordID], words[edge.TargetWordID]
	if source == nil || target == nil {
		return model.NewAppError("WORD_NOT_FOUND", "関連の端の単語が見つかりません。", "target_word_id", model.ErrNotFound)
	}

	switch {
	case edge.Kind == model.RelationTranslation:
		if source.WordType.IsContent() || target.WordType.IsContent() {
			return model.NewAppError("INVALID_EDGE", "翻訳は単語同士でのみ作成できます。", "kind", model.ErrInvalidEdge)
		}
		if source.Language == target.Language {
			return model.NewAppError("INVALID_EDGE", "翻訳は異なる言語の単語を結ぶ必要があります。", "target_word_id", model.ErrInvalidEdge)
		}
		if edge.TargetLanguage != "" && !strings.EqualFold(edge.TargetLanguage, target.Language) {
			return model.NewAppError("INVALID_EDGE", "翻訳先の言語が単語の言語と一致しません。", "target_language", model.ErrInvalidEdge)
		}
	case edge.Kind.IsSymmetric():
		if source.WordType.IsContent() || target.WordType.IsContent() {
			return model.NewAppError("INVALID_EDGE", "類義・対義の関連は単語同士でのみ作成できます。", "kind", model.ErrInvalidEdge)
		}
		if source.Language != target.Language {
			return model.NewAppError("INVALID_EDGE", "類義・対義の関連は同じ言語の単語を結ぶ必要があります。", "target_word_id", model.ErrInvalidEdge)
		}
	case edge.Kind.IsAttribute():
		if source.WordType.IsContent() || target.WordType != edge.Kind.ContentType() {
			return model.NewAppError("INVALID_EDGE",
				fmt.Sprintf("%s の関連は単語から %s ノードへ向ける必要があります。", edge.Kind, edge.Kind.ContentType()),
				"target_word_id", model.ErrInvalidEdge)
		}
	case edge.Kind == model.RelationFormGroupMember:
		if source.WordType.IsContent() || target.WordType != model.WordTypeFormGroup {
			return model.NewAppError("INVALID_EDGE", "語形グループの関連は単語から form-group ノードへ向ける必要があります。", "target_word_id", model.ErrInvalidEdge)
		}
	}

	edge.Normalize()
	if edge.Kind == model.RelationTranslation {
		edge.TargetLanguage = words[edge.TargetWordID].Language
	}
	if edge.EdgeID == uuid.Nil {
		edge.EdgeID = uuid.New()
	}
	return nil
}

// checkEdge は既存データに依存する検査 (重複、上限、追加のガード) です。
func (s *graphStore) checkEdge(ctx context.Context, db *gorm.DB, edge *model.RelationEdge, guard EdgeGuard) error {
	_, err := s.edgeRepo.Find(ctx, db, edge.SourceWordID, edge.TargetWordID, edge.Kind)
	if err == nil {
		return model.NewAppError("DUPLICATE_EDGE", "同じ関連が既に存在します。", "target_word_id", model.ErrDuplicateEdge)
	}
	if !errors.Is(err, model.ErrNotFound) {
		return err
	}

	if limit := s.cfg.Graph.RelationLimit(string(edge.Kind)); limit > 0 {
		for _, id := range limitedEnds(edge) {
			count, err := s.edgeRepo.CountForWord(ctx, db, id, edge.Kind)
			if err != nil {
				return err
			}
			if count >= int64(limit) {
				return model.NewAppError("RELATION_LIMIT_EXCEEDED",
					fmt.Sprintf("%s の関連は1単語あたり %d 件までです。", edge.Kind, limit), "kind", model.ErrRelationLimitExceeded)
			}
		}
	}

	if guard != nil {
		return guard(ctx, db, edge)
	}
	return nil
}

// limitedEnds は上限を数える端の単語です。対称な種類は両端で数えます。
func limitedEnds(edge *model.RelationEdge) []uuid.UUID {
	if edge.Kind.IsSymmetric() {
		return []uuid.UUID{edge.SourceWordID, edge.TargetWordID}
	}
	return []uuid.UUID{edge.SourceWordID}
}

func (s *graphStore) RemoveEdge(ctx context.Context, source, target uuid.UUID, kind model.RelationKind) error {
	if !kind.IsValid() {
		return model.NewAppError("INVALID_EDGE", fmt.Sprintf("不明な関連の種類です: %q", kind), "kind", model.ErrInvalidEdge)
	}
	source, target = model.CanonicalPair(kind, source, target)

	unlock := s.locks.Lock(source, target)
	defer unlock()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.edgeRepo.Delete(ctx, tx, source, target, kind); err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return model.NewAppError("EDGE_NOT_FOUND", "削除対象の関連が見つかりません。", "", model.ErrNotFound)
			}
			return err
		}
		logging.GetLogger(ctx).Debug("Relation edge removed", "kind", kind, "source_word_id", source, "target_word_id", target)
		return nil
	})
}

// Neighbors は kind のエッジだけをたどる幅優先探索です。
// 近いホップから順に、重複なしで返します。maxHops は設定の上限で切り詰めます。
func (s *graphStore) Neighbors(ctx context.Context, wordID uuid.UUID, kind model.RelationKind, maxHops int) ([]model.Word, error) {
	return s.NeighborsExcluding(ctx, wordID, kind, maxHops, nil)
}

// NeighborsExcluding は blocked に含まれる単語を結果から外し、その先へも進まない Neighbors です。
func (s *graphStore) NeighborsExcluding(ctx context.Context, wordID uuid.UUID, kind model.RelationKind, maxHops int, blocked map[uuid.UUID]bool) ([]model.Word, error) {
	if !kind.IsValid() {
		return nil, model.NewAppError("INVALID_EDGE", fmt.Sprintf("不明な関連の種類です: %q", kind), "kind", model.ErrInvalidEdge)
	}
	ids, err := s.traverse(ctx, wordID, kind, s.clampHops(maxHops), blocked)
	if err != nil {
		return nil, err
	}
	return s.loadWords(ctx, ids)
}

func (s *graphStore) Edges(ctx context.Context, wordID uuid.UUID) ([]*model.RelationEdge, error) {
	return s.edgeRepo.FindAllForWord(ctx, s.db, wordID)
}

func (s *graphStore) clampHops(maxHops int) int {
	if maxHops <= 0 {
		maxHops = s.cfg.Graph.DefaultHops
	}
	if maxHops > s.cfg.Graph.MaxHops {
		maxHops = s.cfg.Graph.MaxHops
	}
	return maxHops
}

// traverse は origin から kind のエッジを maxHops までたどった ID を近い順に返します。
// blocked に含まれるノードは結果に含めず、その先にも進みません。
func (s *graphStore) traverse(ctx context.Context, origin uuid.UUID, kind model.RelationKind, maxHops int, blocked map[uuid.UUID]bool) ([]uuid.UUID, error) {
	visited := map[uuid.UUID]bool{origin: true}
	frontier := []uuid.UUID{origin}
	var ordered []uuid.UUID

	for hop := 0; hop < maxHops && len(frontier) > 0; hop++ {
		edges, err := s.edgeRepo.FindAdjacent(ctx, s.db, frontier, kind)
		if err != nil {
			return nil, err
		}
		inFrontier := make(map[uuid.UUID]bool, len(frontier))
		for _, id := range frontier {
			inFrontier[id] = true
		}

		var next []uuid.UUID
		visit := func(id uuid.UUID) {
			if visited[id] {
				return
			}
			visited[id] = true
			if blocked[id] {
				return
			}
			ordered = append(ordered, id)
			next = append(next, id)
		}
		for _, e := range edges {
			if inFrontier[e.SourceWordID] {
				visit(e.TargetWordID)
			}
			if kind.IsSymmetric() && inFrontier[e.TargetWordID] {
				visit(e.SourceWordID)
			}
		}
		frontier = next
	}
	return ordered, nil
}

// loadWords は ids の順序を保って単語を返します。見つからない ID は飛ばします。
func (s *graphStore) loadWords(ctx context.Context, ids []uuid.UUID) ([]model.Word, error) {
	words, err := s.wordRepo.FindByIDs(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}
	result := make([]model.Word, 0, len(ids))
	for _, id := range ids {
		if w, ok := words[id]; ok {
			result = append(result, *w)
		}
	}
	return result, nil
}
