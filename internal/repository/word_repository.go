//go:generate mockery --name WordRepository --output ./mocks --outpkg mocks --case=underscore
package repository

import (
	"context"
	"errors"
	"fmt"

	"go_5_vocab_practice/internal/logging"
	"go_5_vocab_practice/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// contentTypes は演習の対象にならないコンテンツノードの種類です。
var contentTypes = []model.WordType{
	model.WordTypeDefinition,
	model.WordTypeUsageExample,
	model.WordTypeImage,
	model.WordTypeQuote,
	model.WordTypeFormGroup,
}

// hasExerciseEdge は単語から出ているか対称な関連が1本でもあることを表す条件です。
// コレクションへの所属は関連に数えません。
const hasExerciseEdge = `EXISTS (SELECT 1 FROM relation_edges e WHERE e.kind <> ? AND ` +
	`(e.source_word_id = words.word_id OR (e.target_word_id = words.word_id AND e.kind IN ?)))`

func symmetricKinds() []model.RelationKind {
	var kinds []model.RelationKind
	for _, k := range model.AllRelationKinds {
		if k.IsSymmetric() {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// CandidateFilter は誤答候補の検索条件です。候補は Among に含まれる単語に限ります。
type CandidateFilter struct {
	LearnerID uuid.UUID
	Among     []uuid.UUID
	Language  string
	WordType  *model.WordType // nil なら種類を問わない
	Exclude   []uuid.UUID
	Limit     int
}

type WordRepository interface {
	Create(ctx context.Context, tx *gorm.DB, word *model.Word) error
	FindByID(ctx context.Context, db *gorm.DB, wordID uuid.UUID) (*model.Word, error)
	FindByIDs(ctx context.Context, db *gorm.DB, wordIDs []uuid.UUID) (map[uuid.UUID]*model.Word, error)
	Update(ctx context.Context, tx *gorm.DB, wordID uuid.UUID, updates map[string]interface{}) error
	FindUnscheduledByLearner(ctx context.Context, db *gorm.DB, learnerID uuid.UUID, offset, limit int) ([]*model.Word, error)
	FindUnscheduledAmong(ctx context.Context, db *gorm.DB, learnerID uuid.UUID, wordIDs []uuid.UUID) ([]*model.Word, error)
	FindCandidates(ctx context.Context, db *gorm.DB, filter CandidateFilter) ([]*model.Word, error)
	IsReferenced(ctx context.Context, db *gorm.DB, wordID uuid.UUID) (bool, error)
}

type gormWordRepository struct{}

func NewGormWordRepository() WordRepository {
	return &gormWordRepository{}
}

func (r *gormWordRepository) Create(ctx context.Context, tx *gorm.DB, word *model.Word) error {
	logger := logging.GetLogger(ctx)
	result := tx.WithContext(ctx).Create(word)
	if result.Error != nil {
		logger.Error("Error creating word in DB",
			"error", result.Error,
			"word_id", word.WordID.String(),
			"text", word.Text,
		)
		return fmt.Errorf("gormWordRepository.Create: %w", translateError(result.Error))
	}
	return nil
}

func (r *gormWordRepository) FindByID(ctx context.Context, db *gorm.DB, wordID uuid.UUID) (*model.Word, error) {
	var word model.Word
	result := db.WithContext(ctx).Where("word_id = ?", wordID).First(&word)
	if result.Error != nil {
		err := translateError(result.Error)
		if errors.Is(err, model.ErrNotFound) {
			return nil, err
		}
		logging.GetLogger(ctx).Error("Error finding word by ID in DB", "error", result.Error, "word_id", wordID.String())
		return nil, fmt.Errorf("gormWordRepository.FindByID: %w", err)
	}
	return &word, nil
}

func (r *gormWordRepository) FindByIDs(ctx context.Context, db *gorm.DB, wordIDs []uuid.UUID) (map[uuid.UUID]*model.Word, error) {
	words := make(map[uuid.UUID]*model.Word, len(wordIDs))
	if len(wordIDs) == 0 {
		return words, nil
	}
	var rows []*model.Word
	if err := db.WithContext(ctx).Where("word_id IN ?", wordIDs).Find(&rows).Error; err != nil {
		logging.GetLogger(ctx).Error("Error finding words by IDs in DB", "error", err, "count", len(wordIDs))
		return nil, fmt.Errorf("gormWordRepository.FindByIDs: %w", err)
	}
	for _, w := range rows {
		words[w.WordID] = w
	}
	return words, nil
}

func (r *gormWordRepository) Update(ctx context.Context, tx *gorm.DB, wordID uuid.UUID, updates map[string]interface{}) error {
	result := tx.WithContext(ctx).Model(&model.Word{}).Where("word_id = ?", wordID).Updates(updates)
	if result.Error != nil {
		logging.GetLogger(ctx).Error("Error updating word in DB", "error", result.Error, "word_id", wordID.String())
		return fmt.Errorf("gormWordRepository.Update: %w", translateError(result.Error))
	}
	if result.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}

// FindUnscheduledByLearner は進捗レコードがまだ無く関連を持つ学習者所有の単語を古い順に返します。
// offset と limit で読み進めます。
func (r *gormWordRepository) FindUnscheduledByLearner(ctx context.Context, db *gorm.DB, learnerID uuid.UUID, offset, limit int) ([]*model.Word, error) {
	var words []*model.Word
	result := db.WithContext(ctx).
		Where("words.learner_id = ? AND words.word_type NOT IN ?", learnerID, contentTypes).
		Where("NOT EXISTS (SELECT 1 FROM progress_records p WHERE p.learner_id = ? AND p.word_id = words.word_id)", learnerID).
		Where(hasExerciseEdge, model.RelationCollectionMember, symmetricKinds()).
		Order("words.created_at ASC, words.word_id ASC").
		Offset(offset).
		Limit(limit).
		Find(&words)
	if result.Error != nil {
		logging.GetLogger(ctx).Error("Error finding unscheduled words in DB", "error", result.Error, "learner_id", learnerID.String())
		return nil, fmt.Errorf("gormWordRepository.FindUnscheduledByLearner: %w", result.Error)
	}
	return words, nil
}

// FindUnscheduledAmong は wordIDs のうち学習者の進捗レコードがまだ無く関連を持つ単語を返します。
// コレクションには共有単語も入るので所有者では絞りません。
func (r *gormWordRepository) FindUnscheduledAmong(ctx context.Context, db *gorm.DB, learnerID uuid.UUID, wordIDs []uuid.UUID) ([]*model.Word, error) {
	var words []*model.Word
	if len(wordIDs) == 0 {
		return words, nil
	}
	result := db.WithContext(ctx).
		Where("words.word_id IN ? AND words.word_type NOT IN ?", wordIDs, contentTypes).
		Where("NOT EXISTS (SELECT 1 FROM progress_records p WHERE p.learner_id = ? AND p.word_id = words.word_id)", learnerID).
		Where(hasExerciseEdge, model.RelationCollectionMember, symmetricKinds()).
		Find(&words)
	if result.Error != nil {
		logging.GetLogger(ctx).Error("Error finding unscheduled collection words in DB", "error", result.Error, "learner_id", learnerID.String())
		return nil, fmt.Errorf("gormWordRepository.FindUnscheduledAmong: %w", result.Error)
	}
	return words, nil
}

// FindCandidates は Among のうち学習者から見える (所有または共有の) 単語を誤答候補として返します。
func (r *gormWordRepository) FindCandidates(ctx context.Context, db *gorm.DB, filter CandidateFilter) ([]*model.Word, error) {
	var words []*model.Word
	if len(filter.Among) == 0 {
		return words, nil
	}
	q := db.WithContext(ctx).
		Where("word_id IN ?", filter.Among).
		Where("(learner_id = ? OR learner_id IS NULL)", filter.LearnerID).
		Where("language = ? AND word_type NOT IN ?", filter.Language, contentTypes)
	if filter.WordType != nil {
		q = q.Where("word_type = ?", *filter.WordType)
	}
	if len(filter.Exclude) > 0 {
		q = q.Where("word_id NOT IN ?", filter.Exclude)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	if err := q.Order("created_at ASC, word_id ASC").Find(&words).Error; err != nil {
		logging.GetLogger(ctx).Error("Error finding distractor candidates in DB", "error", err, "language", filter.Language)
		return nil, fmt.Errorf("gormWordRepository.FindCandidates: %w", err)
	}
	return words, nil
}

// IsReferenced は単語がエッジか提出履歴から参照されているかを返します。
func (r *gormWordRepository) IsReferenced(ctx context.Context, db *gorm.DB, wordID uuid.UUID) (bool, error) {
	var edges int64
	if err := db.WithContext(ctx).Model(&model.RelationEdge{}).
		Where("source_word_id = ? OR target_word_id = ?", wordID, wordID).
		Count(&edges).Error; err != nil {
		return false, fmt.Errorf("gormWordRepository.IsReferenced: %w", err)
	}
	if edges > 0 {
		return true, nil
	}
	var submissions int64
	if err := db.WithContext(ctx).Model(&model.ExerciseSubmission{}).
		Where("word_id = ?", wordID).
		Count(&submissions).Error; err != nil {
		return false, fmt.Errorf("gormWordRepository.IsReferenced: %w", err)
	}
	return submissions > 0, nil
}
