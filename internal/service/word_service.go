// internal/service/word_service.go
package service

import (
	"context"
	"errors"
	"strings"

	"go_5_vocab_practice/internal/config"
	"go_5_vocab_practice/internal/logging"
	"go_5_vocab_practice/internal/model"
	"go_5_vocab_practice/internal/repository"
	"go_5_vocab_practice/internal/validation"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WordStatus は単語一覧に表示する学習者ごとの状態です。
type WordStatus struct {
	WordID      uuid.UUID            `json:"word_id"`
	State       model.LearningState  `json:"state"`
	Activity    model.ActivityStatus `json:"activity_status"`
	Problematic bool                 `json:"is_problematic"`
	LapseCount  int                  `json:"lapse_count"`
}

type WordService interface {
	AddWord(ctx context.Context, req *model.AddWordRequest) (*model.Word, error)
	GetWord(ctx context.Context, wordID uuid.UUID) (*model.Word, error)
	// ReviseWord は参照されていなければその場で書き換え、参照済みなら新しい版を作ります。
	ReviseWord(ctx context.Context, wordID uuid.UUID, text string) (*model.Word, error)
	WordStatus(ctx context.Context, learnerID, wordID uuid.UUID) (*WordStatus, error)
}

type wordService struct {
	db       *gorm.DB
	graph    GraphStore
	wordRepo repository.WordRepository
	tracker  ProgressTracker
	cfg      *config.Config
}

func NewWordService(db *gorm.DB, graph GraphStore, wordRepo repository.WordRepository, tracker ProgressTracker, cfg *config.Config) WordService {
	return &wordService{
		db:       db,
		graph:    graph,
		wordRepo: wordRepo,
		tracker:  tracker,
		cfg:      cfg,
	}
}

func (s *wordService) AddWord(ctx context.Context, req *model.AddWordRequest) (*model.Word, error) {
	logger := logging.GetLogger(ctx)

	if err := validation.Struct(req); err != nil {
		logger.Warn("Validation failed", "error", err)
		return nil, err
	}
	word := &model.Word{
		LearnerID: req.LearnerID,
		Text:      req.Text,
		Language:  req.Language,
		WordType:  req.WordType,
	}
	if err := s.graph.AddWord(ctx, word); err != nil {
		logger.Error("Error adding word", "error", err)
		return nil, err
	}
	logger.Info("Word added", "word_id", word.WordID, "language", word.Language, "word_type", word.WordType)
	return word, nil
}

func (s *wordService) GetWord(ctx context.Context, wordID uuid.UUID) (*model.Word, error) {
	word, err := s.graph.GetWord(ctx, wordID)
	if errors.Is(err, model.ErrNotFound) {
		return nil, model.NewAppError("WORD_NOT_FOUND", "単語が見つかりません。", "word_id", err)
	}
	return word, err
}

func (s *wordService) ReviseWord(ctx context.Context, wordID uuid.UUID, text string) (*model.Word, error) {
	logger := logging.GetLogger(ctx).With("word_id", wordID)

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, model.NewAppError("VALIDATION_ERROR", "テキストは必須項目です。", "text", model.ErrInvalidInput)
	}

	var revised *model.Word
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.wordRepo.FindByID(ctx, tx, wordID)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return model.NewAppError("WORD_NOT_FOUND", "単語が見つかりません。", "word_id", err)
			}
			return err
		}
		if current.Text == text {
			revised = current
			return nil
		}

		referenced, err := s.wordRepo.IsReferenced(ctx, tx, wordID)
		if err != nil {
			return err
		}
		if !referenced {
			if err := s.wordRepo.Update(ctx, tx, wordID, map[string]interface{}{"text": text}); err != nil {
				return err
			}
			current.Text = text
			revised = current
			logger.Info("Word text updated in place")
			return nil
		}

		// 履歴が指す表記を残すため、新しい版を作る
		prev := current.WordID
		next := &model.Word{
			WordID:            uuid.New(),
			LearnerID:         current.LearnerID,
			Text:              text,
			Language:          current.Language,
			WordType:          current.WordType,
			Version:           current.Version + 1,
			PreviousVersionID: &prev,
		}
		if err := s.wordRepo.Create(ctx, tx, next); err != nil {
			return err
		}
		revised = next
		logger.Info("Referenced word revised as a new version", "new_word_id", next.WordID, "version", next.Version)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return revised, nil
}

func (s *wordService) WordStatus(ctx context.Context, learnerID, wordID uuid.UUID) (*WordStatus, error) {
	rec, err := s.tracker.Get(ctx, learnerID, wordID)
	if err != nil {
		return nil, err
	}
	return &WordStatus{
		WordID:      wordID,
		State:       rec.State,
		Activity:    rec.ActivityStatus(s.cfg.Scheduler.MasteredIntervalDays),
		Problematic: rec.IsProblematic(s.cfg.Scheduler.ProblematicLapses),
		LapseCount:  rec.LapseCount,
	}, nil
}
