// cmd/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go_5_vocab_practice/internal/config"
	"go_5_vocab_practice/internal/logging"
	"go_5_vocab_practice/internal/model"
	"go_5_vocab_practice/internal/repository"
	"go_5_vocab_practice/internal/service"

	"github.com/google/uuid"
)

const usage = `usage: vocab [-config dir] <command> [flags]

commands:
  add-word   -text TEXT -lang CODE -type TYPE [-learner ID]
  revise     -word ID -text TEXT
  relate     -source ID -target ID -kind KIND [-lang CODE] [-note TEXT]
  unrelate   -source ID -target ID -kind KIND
  synonyms   -word ID
  collection -learner ID -name NAME
  collect    -learner ID -collection ID -word ID
  members    -learner ID -collection ID
  collections -learner ID
  schedule  -learner ID [-collection ID] [-limit N] [-as-of RFC3339]
  submit    -learner ID -exercise ID -submission ID -answer TEXT [-as-of RFC3339]
  status    -learner ID -word ID
  history   -learner ID -word ID [-limit N]
`

func main() {
	// 設定ファイル読み込み用の一時的なロガー設定
	tempLogger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(tempLogger)

	configDir := flag.String("config", "configs", "directory containing config.yaml")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	log.Println("Log Config Loading...")
	if err := config.LoadConfig(*configDir); err != nil {
		slog.Error("Error loading configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// 設定に基づいて slog ロガーを初期化
	logLevel := new(slog.LevelVar)
	level, ok := logging.ParseLevel(config.Cfg.Log.Level)
	logLevel.Set(level)
	if !ok {
		slog.Warn("Unknown log level specified in config, defaulting to INFO", slog.String("level", config.Cfg.Log.Level))
	}
	appEnv := os.Getenv("APP_ENV")
	logger := slog.New(logging.NewHandler(os.Stderr, appEnv, logLevel))
	slog.SetDefault(logger)
	log.Println("Log Config Loaded...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logging.WithLogger(ctx, logger.With("command", flag.Arg(0)))

	if err := run(ctx, &config.Cfg, logger, flag.Arg(0), flag.Args()[1:]); err != nil {
		slog.Error("Command failed", slog.String("command", flag.Arg(0)), slog.Any("error", err))
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, command string, args []string) error {
	db, err := repository.NewDB(cfg.Database.URL, logger)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("getting underlying sql.DB: %w", err)
	}
	defer func() {
		if err := sqlDB.Close(); err != nil {
			slog.Error("Error closing database connection", slog.Any("error", err))
		}
	}()
	if err := repository.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	store, closeStore, err := newExerciseStore(ctx, cfg.Session)
	if err != nil {
		return err
	}
	defer closeStore()

	engine := service.NewEngine(db, store, cfg)

	switch command {
	case "add-word":
		return runAddWord(ctx, engine, args)
	case "revise":
		return runRevise(ctx, engine, args)
	case "relate", "unrelate":
		return runRelate(ctx, engine, command, args)
	case "synonyms":
		return runSynonyms(ctx, engine, args)
	case "collection":
		return runCollection(ctx, engine, args)
	case "collections":
		return runCollections(ctx, engine, args)
	case "collect", "members":
		return runCollect(ctx, engine, command, args)
	case "schedule":
		return runSchedule(ctx, engine, args)
	case "submit":
		return runSubmit(ctx, engine, args)
	case "status":
		return runStatus(ctx, engine, args)
	case "history":
		return runHistory(ctx, engine, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

// newExerciseStore はプロセスをまたいで採点できるよう、設定が redis なら Redis に保存します。
func newExerciseStore(ctx context.Context, cfg config.SessionConfig) (repository.PendingExerciseStore, func(), error) {
	if cfg.Backend != "redis" {
		slog.Info("Using in-memory exercise store; pending exercises are lost on exit")
		return repository.NewMemoryExerciseStore(cfg.ExerciseTTL), func() {}, nil
	}
	rdb, err := repository.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to redis: %w", err)
	}
	slog.Info("Using redis exercise store", slog.String("addr", cfg.RedisAddr))
	return repository.NewRedisExerciseStore(rdb, cfg.RedisPrefix, cfg.ExerciseTTL), func() {
		if err := rdb.Close(); err != nil {
			slog.Error("Error closing redis connection", slog.Any("error", err))
		}
	}, nil
}

type uuidFlag struct{ id uuid.UUID }

func (f *uuidFlag) String() string { return f.id.String() }

func (f *uuidFlag) Set(s string) error {
	id, err := uuid.Parse(s)
	if err != nil {
		return err
	}
	f.id = id
	return nil
}

type timeFlag struct{ t time.Time }

func (f *timeFlag) String() string { return f.t.Format(time.RFC3339) }

func (f *timeFlag) Set(s string) error {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return err
	}
	f.t = t
	return nil
}

func requireIDs(fs *flag.FlagSet, ids map[string]*uuidFlag) error {
	for name, f := range ids {
		if f.id == uuid.Nil {
			fs.Usage()
			return fmt.Errorf("%w: -%s is required", model.ErrInvalidInput, name)
		}
	}
	return nil
}

func runSchedule(ctx context.Context, engine *service.Engine, args []string) error {
	fs := flag.NewFlagSet("schedule", flag.ContinueOnError)
	var learner, collection uuidFlag
	asOf := timeFlag{t: time.Now()}
	fs.Var(&learner, "learner", "learner id")
	fs.Var(&collection, "collection", "restrict to a collection")
	fs.Var(&asOf, "as-of", "evaluation time (RFC3339)")
	limit := fs.Int("limit", 0, "max exercises (0 uses app.review_limit)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireIDs(fs, map[string]*uuidFlag{"learner": &learner}); err != nil {
		return err
	}

	var exercises []*model.Exercise
	var err error
	if collection.id != uuid.Nil {
		exercises, err = engine.Scheduler.NextCollectionBatch(ctx, learner.id, collection.id, asOf.t, *limit)
	} else {
		exercises, err = engine.Scheduler.NextBatch(ctx, learner.id, asOf.t, *limit)
	}
	if err != nil {
		return err
	}
	// 解答はクライアントに見せない
	for _, ex := range exercises {
		ex.ExpectedAnswers = nil
	}
	return printJSON(exercises)
}

func runSubmit(ctx context.Context, engine *service.Engine, args []string) error {
	fs := flag.NewFlagSet("submit", flag.ContinueOnError)
	var learner, exercise, submission uuidFlag
	asOf := timeFlag{t: time.Now()}
	fs.Var(&learner, "learner", "learner id")
	fs.Var(&exercise, "exercise", "exercise id")
	fs.Var(&submission, "submission", "client-generated submission id, reuse it when retrying")
	fs.Var(&asOf, "as-of", "evaluation time (RFC3339)")
	answer := fs.String("answer", "", "answer text (empty means skipped)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireIDs(fs, map[string]*uuidFlag{"learner": &learner, "exercise": &exercise, "submission": &submission}); err != nil {
		return err
	}

	result, err := engine.Outcomes.Submit(ctx, service.SubmitInput{
		LearnerID:    learner.id,
		ExerciseID:   exercise.id,
		SubmissionID: submission.id,
		Answer:       *answer,
		AsOf:         asOf.t,
	})
	if model.IsTransient(err) {
		slog.Warn("Submission conflicted with another update; retry with the same submission id")
	}
	if err != nil {
		return err
	}
	return printJSON(result)
}

func runStatus(ctx context.Context, engine *service.Engine, args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	var learner, word uuidFlag
	fs.Var(&learner, "learner", "learner id")
	fs.Var(&word, "word", "word id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireIDs(fs, map[string]*uuidFlag{"learner": &learner, "word": &word}); err != nil {
		return err
	}
	status, err := engine.Words.WordStatus(ctx, learner.id, word.id)
	if err != nil {
		return err
	}
	return printJSON(status)
}

func runHistory(ctx context.Context, engine *service.Engine, args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	var learner, word uuidFlag
	fs.Var(&learner, "learner", "learner id")
	fs.Var(&word, "word", "word id")
	limit := fs.Int("limit", 20, "max entries")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireIDs(fs, map[string]*uuidFlag{"learner": &learner, "word": &word}); err != nil {
		return err
	}
	history, err := engine.Outcomes.History(ctx, learner.id, word.id, *limit)
	if err != nil {
		return err
	}
	return printJSON(history)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	return nil
}

func runAddWord(ctx context.Context, engine *service.Engine, args []string) error {
	fs := flag.NewFlagSet("add-word", flag.ContinueOnError)
	var learner uuidFlag
	fs.Var(&learner, "learner", "owner (omit for a shared word)")
	text := fs.String("text", "", "word text or content")
	lang := fs.String("lang", "", "language code")
	wordType := fs.String("type", string(model.WordTypeOther), "part of speech or content type")
	if err := fs.Parse(args); err != nil {
		return err
	}
	req := &model.AddWordRequest{Text: *text, Language: *lang, WordType: model.WordType(*wordType)}
	if learner.id != uuid.Nil {
		req.LearnerID = &learner.id
	}
	word, err := engine.Words.AddWord(ctx, req)
	if err != nil {
		return err
	}
	return printJSON(word)
}

func runRevise(ctx context.Context, engine *service.Engine, args []string) error {
	fs := flag.NewFlagSet("revise", flag.ContinueOnError)
	var word uuidFlag
	fs.Var(&word, "word", "word id")
	text := fs.String("text", "", "new text")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireIDs(fs, map[string]*uuidFlag{"word": &word}); err != nil {
		return err
	}
	revised, err := engine.Words.ReviseWord(ctx, word.id, *text)
	if err != nil {
		return err
	}
	return printJSON(revised)
}

func runRelate(ctx context.Context, engine *service.Engine, command string, args []string) error {
	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	var source, target uuidFlag
	fs.Var(&source, "source", "source word id")
	fs.Var(&target, "target", "target word id")
	kind := fs.String("kind", "", "relation kind")
	lang := fs.String("lang", "", "target language (translation only)")
	note := fs.String("note", "", "free-form note")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireIDs(fs, map[string]*uuidFlag{"source": &source, "target": &target}); err != nil {
		return err
	}
	if command == "unrelate" {
		return engine.Relations.RemoveRelation(ctx, source.id, target.id, model.RelationKind(*kind))
	}
	edge := &model.RelationEdge{
		SourceWordID:   source.id,
		TargetWordID:   target.id,
		Kind:           model.RelationKind(*kind),
		TargetLanguage: *lang,
		Note:           *note,
	}
	if err := engine.Relations.AddRelation(ctx, edge); err != nil {
		return err
	}
	return printJSON(edge)
}

func runSynonyms(ctx context.Context, engine *service.Engine, args []string) error {
	fs := flag.NewFlagSet("synonyms", flag.ContinueOnError)
	var word uuidFlag
	fs.Var(&word, "word", "word id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireIDs(fs, map[string]*uuidFlag{"word": &word}); err != nil {
		return err
	}
	words, err := engine.Relations.EffectiveSynonyms(ctx, word.id)
	if err != nil {
		return err
	}
	return printJSON(words)
}

func runCollection(ctx context.Context, engine *service.Engine, args []string) error {
	fs := flag.NewFlagSet("collection", flag.ContinueOnError)
	var learner uuidFlag
	fs.Var(&learner, "learner", "learner id")
	name := fs.String("name", "", "collection name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	collection, err := engine.Collections.Create(ctx, &model.CreateCollectionRequest{LearnerID: learner.id, Name: *name})
	if err != nil {
		return err
	}
	return printJSON(collection)
}

func runCollect(ctx context.Context, engine *service.Engine, command string, args []string) error {
	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	var learner, collection, word uuidFlag
	fs.Var(&learner, "learner", "learner id")
	fs.Var(&collection, "collection", "collection id")
	fs.Var(&word, "word", "word id (collect only)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireIDs(fs, map[string]*uuidFlag{"learner": &learner, "collection": &collection}); err != nil {
		return err
	}
	if command == "members" {
		members, err := engine.Collections.Members(ctx, learner.id, collection.id)
		if err != nil {
			return err
		}
		return printJSON(members)
	}
	edge, err := engine.Collections.AddWord(ctx, learner.id, collection.id, word.id)
	if err != nil {
		return err
	}
	return printJSON(edge)
}

func runCollections(ctx context.Context, engine *service.Engine, args []string) error {
	fs := flag.NewFlagSet("collections", flag.ContinueOnError)
	var learner uuidFlag
	fs.Var(&learner, "learner", "learner id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireIDs(fs, map[string]*uuidFlag{"learner": &learner}); err != nil {
		return err
	}
	list, err := engine.Collections.List(ctx, learner.id)
	if err != nil {
		return err
	}
	return printJSON(list)
}
