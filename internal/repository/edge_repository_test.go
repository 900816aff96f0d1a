package repository

import (
	"context"
	"testing"

	"go_5_vocab_practice/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_gormEdgeRepository(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewGormEdgeRepository()

	a, b, c := uuid.New(), uuid.New(), uuid.New()
	syn := func(x, y uuid.UUID) *model.RelationEdge {
		e := &model.RelationEdge{EdgeID: uuid.New(), SourceWordID: x, TargetWordID: y, Kind: model.RelationSynonym}
		e.Normalize()
		return e
	}
	require.NoError(t, repo.Create(ctx, db, syn(a, b)))
	require.NoError(t, repo.Create(ctx, db, syn(b, c)))

	t.Run("異常系: 同じ組と種類は一意制約で競合", func(t *testing.T) {
		err := repo.Create(ctx, db, syn(b, a))
		assert.ErrorIs(t, err, model.ErrConflict)
	})

	t.Run("正常系: 種類が違えば同じ組でも作成できる", func(t *testing.T) {
		e := &model.RelationEdge{EdgeID: uuid.New(), SourceWordID: a, TargetWordID: b, Kind: model.RelationSimilar}
		e.Normalize()
		require.NoError(t, repo.Create(ctx, db, e))
	})

	t.Run("正常系: 対称エッジはどちらの端からも隣接として見える", func(t *testing.T) {
		edges, err := repo.FindAdjacent(ctx, db, []uuid.UUID{b}, model.RelationSynonym)
		require.NoError(t, err)
		assert.Len(t, edges, 2)

		edges, err = repo.FindAdjacent(ctx, db, []uuid.UUID{c}, model.RelationSynonym)
		require.NoError(t, err)
		require.Len(t, edges, 1)
		assert.Equal(t, b, edges[0].OtherEnd(c))
	})

	t.Run("正常系: 非対称エッジは出る向きのみ", func(t *testing.T) {
		def := uuid.New()
		require.NoError(t, repo.Create(ctx, db, &model.RelationEdge{EdgeID: uuid.New(), SourceWordID: a, TargetWordID: def, Kind: model.RelationDefinition}))

		edges, err := repo.FindAdjacent(ctx, db, []uuid.UUID{a}, model.RelationDefinition)
		require.NoError(t, err)
		assert.Len(t, edges, 1)

		edges, err = repo.FindAdjacent(ctx, db, []uuid.UUID{def}, model.RelationDefinition)
		require.NoError(t, err)
		assert.Empty(t, edges)

		all, err := repo.FindAllForWord(ctx, db, a)
		require.NoError(t, err)
		assert.Len(t, all, 3) // definition, similar, synonym
	})

	t.Run("正常系: 件数", func(t *testing.T) {
		n, err := repo.CountForWord(ctx, db, b, model.RelationSynonym)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})

	t.Run("正常系: rank順と最大rank", func(t *testing.T) {
		collection := uuid.New()
		w1, w2 := uuid.New(), uuid.New()
		maxRank, err := repo.MaxRank(ctx, db, collection, model.RelationCollectionMember)
		require.NoError(t, err)
		assert.Equal(t, 0, maxRank)

		require.NoError(t, repo.Create(ctx, db, &model.RelationEdge{EdgeID: uuid.New(), SourceWordID: collection, TargetWordID: w1, Kind: model.RelationCollectionMember, Rank: 2}))
		require.NoError(t, repo.Create(ctx, db, &model.RelationEdge{EdgeID: uuid.New(), SourceWordID: collection, TargetWordID: w2, Kind: model.RelationCollectionMember, Rank: 1}))

		maxRank, err = repo.MaxRank(ctx, db, collection, model.RelationCollectionMember)
		require.NoError(t, err)
		assert.Equal(t, 2, maxRank)

		edges, err := repo.FindBySource(ctx, db, collection, model.RelationCollectionMember)
		require.NoError(t, err)
		require.Len(t, edges, 2)
		assert.Equal(t, w2, edges[0].TargetWordID)
	})

	t.Run("正常系: 削除と存在しない削除", func(t *testing.T) {
		e := syn(a, b)
		require.NoError(t, repo.Delete(ctx, db, e.SourceWordID, e.TargetWordID, model.RelationSynonym))
		_, err := repo.Find(ctx, db, e.SourceWordID, e.TargetWordID, model.RelationSynonym)
		assert.ErrorIs(t, err, model.ErrNotFound)

		err = repo.Delete(ctx, db, e.SourceWordID, e.TargetWordID, model.RelationSynonym)
		assert.ErrorIs(t, err, model.ErrNotFound)
	})
}
