package service

import (
	"go_5_vocab_practice/internal/config"
	"go_5_vocab_practice/internal/repository"
	"go_5_vocab_practice/internal/textutil"

	"gorm.io/gorm"
)

// Engine はアプリケーションが使うサービス一式です。
type Engine struct {
	Graph       GraphStore
	Relations   RelationResolver
	Progress    ProgressTracker
	Generator   ExerciseGenerator
	Scheduler   Scheduler
	Outcomes    OutcomeProcessor
	Words       WordService
	Collections CollectionService
}

func NewEngine(db *gorm.DB, store repository.PendingExerciseStore, cfg *config.Config) *Engine {
	wordRepo := repository.NewGormWordRepository()
	edgeRepo := repository.NewGormEdgeRepository()
	progRepo := repository.NewGormProgressRepository()
	subRepo := repository.NewGormSubmissionRepository()
	collectionRepo := repository.NewGormCollectionRepository()

	graph := NewGraphStore(db, wordRepo, edgeRepo, cfg)
	relations := NewRelationResolver(db, graph, edgeRepo)
	tracker := NewProgressTracker(db, progRepo, subRepo, NewSpacedRepetition(cfg.Scheduler), cfg)
	generator := NewExerciseGenerator(db, wordRepo, edgeRepo, graph, relations, tracker, textutil.NewBlanker(), cfg)

	return &Engine{
		Graph:       graph,
		Relations:   relations,
		Progress:    tracker,
		Generator:   generator,
		Scheduler:   NewScheduler(db, wordRepo, edgeRepo, collectionRepo, tracker, generator, store, cfg),
		Outcomes:    NewOutcomeProcessor(db, subRepo, store, tracker, cfg),
		Words:       NewWordService(db, graph, wordRepo, tracker, cfg),
		Collections: NewCollectionService(db, collectionRepo, edgeRepo, wordRepo),
	}
}
