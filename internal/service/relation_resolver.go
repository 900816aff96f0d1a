package service

import (
	"context"
	"errors"
	"fmt"

	"go_5_vocab_practice/internal/model"
	"go_5_vocab_practice/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RelationResolver はグラフ全体にまたがる不変条件を守ります。
// 書き込みは GraphStore に委ね、同じ組のロックの中で矛盾チェックを行います。
type RelationResolver interface {
	AddRelation(ctx context.Context, edge *model.RelationEdge) error
	RemoveRelation(ctx context.Context, source, target uuid.UUID, kind model.RelationKind) error
	ValidateRelation(ctx context.Context, edge *model.RelationEdge) error
	EffectiveSynonyms(ctx context.Context, wordID uuid.UUID) ([]model.Word, error)
}

type relationResolver struct {
	db       *gorm.DB
	store    GraphStore
	edgeRepo repository.EdgeRepository
}

func NewRelationResolver(db *gorm.DB, store GraphStore, edgeRepo repository.EdgeRepository) RelationResolver {
	return &relationResolver{db: db, store: store, edgeRepo: edgeRepo}
}

// conflictingKind は同じ組に共存できない種類を返します。
func conflictingKind(kind model.RelationKind) (model.RelationKind, bool) {
	switch kind {
	case model.RelationSynonym:
		return model.RelationAntonym, true
	case model.RelationAntonym:
		return model.RelationSynonym, true
	}
	return "", false
}

func (r *relationResolver) conflictGuard(ctx context.Context, tx *gorm.DB, edge *model.RelationEdge) error {
	other, ok := conflictingKind(edge.Kind)
	if !ok {
		return nil
	}
	// 対称な種類なので正規化済みの向きで一度引けば足りる
	_, err := r.edgeRepo.Find(ctx, tx, edge.SourceWordID, edge.TargetWordID, other)
	if err == nil {
		return model.NewAppError("CONFLICTING_RELATION",
			fmt.Sprintf("この2語には既に %s の関連があるため %s は追加できません。", other, edge.Kind),
			"kind", model.ErrConflictingRelation)
	}
	if errors.Is(err, model.ErrNotFound) {
		return nil
	}
	return err
}

func (r *relationResolver) AddRelation(ctx context.Context, edge *model.RelationEdge) error {
	return r.store.AddEdgeGuarded(ctx, edge, r.conflictGuard)
}

func (r *relationResolver) RemoveRelation(ctx context.Context, source, target uuid.UUID, kind model.RelationKind) error {
	return r.store.RemoveEdge(ctx, source, target, kind)
}

// ValidateRelation は AddRelation が返すはずのエラーを、グラフを変更せずに返します。
func (r *relationResolver) ValidateRelation(ctx context.Context, edge *model.RelationEdge) error {
	return r.store.ValidateEdge(ctx, edge, r.conflictGuard)
}

// EffectiveSynonyms は2ホップまでの類義語から、起点の直接の対義語を除いたものです。
// 対義語に当たった経路はそこで打ち切ります。
func (r *relationResolver) EffectiveSynonyms(ctx context.Context, wordID uuid.UUID) ([]model.Word, error) {
	antonyms, err := r.edgeRepo.FindAdjacent(ctx, r.db, []uuid.UUID{wordID}, model.RelationAntonym)
	if err != nil {
		return nil, err
	}
	blocked := make(map[uuid.UUID]bool, len(antonyms))
	for _, e := range antonyms {
		blocked[e.OtherEnd(wordID)] = true
	}

	return r.store.NeighborsExcluding(ctx, wordID, model.RelationSynonym, 2, blocked)
}
