// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"omitempty,oneof=debug info warn warning error"`
}

type AppConfig struct {
	ReviewLimit int `mapstructure:"review_limit" validate:"gt=0"`
}

// SchedulerConfig は間隔反復の定数です。
type SchedulerConfig struct {
	MinIntervalDays      int     `mapstructure:"min_interval_days" validate:"gt=0"`
	LearningSteps        []int   `mapstructure:"learning_steps" validate:"min=1,dive,gt=0"`
	GraduationStreak     int     `mapstructure:"graduation_streak" validate:"gt=0"`
	EaseInitial          float64 `mapstructure:"ease_initial" validate:"gt=0"`
	EaseFloor            float64 `mapstructure:"ease_floor" validate:"gt=0"`
	EaseCeiling          float64 `mapstructure:"ease_ceiling" validate:"gt=0"`
	CorrectEaseBonus     float64 `mapstructure:"correct_ease_bonus" validate:"gte=0"`
	PartialEaseBonus     float64 `mapstructure:"partial_ease_bonus" validate:"gte=0"`
	LapsePenalty         float64 `mapstructure:"lapse_penalty" validate:"gte=0"`
	MasteredIntervalDays int     `mapstructure:"mastered_interval_days" validate:"gt=0"`
	ProblematicLapses    int     `mapstructure:"problematic_lapses" validate:"gte=0"`
	MaxCommitAttempts    int     `mapstructure:"max_commit_attempts" validate:"gt=0,lte=20"`
	BuildConcurrency     int     `mapstructure:"build_concurrency" validate:"gt=0"`
}

type GradingConfig struct {
	PartialThreshold float64 `mapstructure:"partial_threshold" validate:"gt=0,lte=1"`
}

// GraphConfig の RelationLimits は1つの単語から張れる種類ごとのエッジ上限です。0 は無制限。
type GraphConfig struct {
	DefaultHops    int            `mapstructure:"default_hops" validate:"gt=0"`
	MaxHops        int            `mapstructure:"max_hops" validate:"gt=0,gtefield=DefaultHops"`
	RelationLimits map[string]int `mapstructure:"relation_limits" validate:"dive,gte=0"`
}

type ExerciseConfig struct {
	DistractorCount int   `mapstructure:"distractor_count" validate:"gt=0"`
	RandomSeed      int64 `mapstructure:"random_seed"` // 0 なら時刻から生成
}

type SessionConfig struct {
	Backend     string        `mapstructure:"backend" validate:"oneof=memory redis"`
	RedisAddr   string        `mapstructure:"redis_addr" validate:"required_if=Backend redis"`
	RedisDB     int           `mapstructure:"redis_db" validate:"gte=0"`
	RedisPrefix string        `mapstructure:"redis_prefix"`
	ExerciseTTL time.Duration `mapstructure:"exercise_ttl" validate:"gt=0"`
}

type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Log       LogConfig       `mapstructure:"log"`
	App       AppConfig       `mapstructure:"app"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Grading   GradingConfig   `mapstructure:"grading"`
	Graph     GraphConfig     `mapstructure:"graph"`
	Exercise  ExerciseConfig  `mapstructure:"exercise"`
	Session   SessionConfig   `mapstructure:"session"`
}

var Cfg Config

var envKeyReplacer = strings.NewReplacer(".", "_", "-", "_")

// Default は設定ファイルが無い場合にも動く既定値を返します。
func Default() Config {
	ttl, _ := time.ParseDuration(DefaultExerciseTTL)
	steps := make([]int, len(DefaultLearningSteps))
	copy(steps, DefaultLearningSteps)
	return Config{
		Database: DatabaseConfig{URL: DefaultDatabaseURL},
		Log:      LogConfig{Level: DefaultLogLevel},
		App:      AppConfig{ReviewLimit: DefaultAppReviewLimit},
		Scheduler: SchedulerConfig{
			MinIntervalDays:      DefaultMinIntervalDays,
			LearningSteps:        steps,
			GraduationStreak:     DefaultGraduationStreak,
			EaseInitial:          DefaultEaseInitial,
			EaseFloor:            DefaultEaseFloor,
			EaseCeiling:          DefaultEaseCeiling,
			CorrectEaseBonus:     DefaultCorrectEaseBonus,
			PartialEaseBonus:     DefaultPartialEaseBonus,
			LapsePenalty:         DefaultLapsePenalty,
			MasteredIntervalDays: DefaultMasteredIntervalDays,
			ProblematicLapses:    DefaultProblematicLapses,
			MaxCommitAttempts:    DefaultMaxCommitAttempts,
			BuildConcurrency:     DefaultBuildConcurrency,
		},
		Grading: GradingConfig{PartialThreshold: DefaultPartialThreshold},
		Graph: GraphConfig{
			DefaultHops: DefaultMaxHops,
			MaxHops:     DefaultMaxHops,
			RelationLimits: map[string]int{
				"synonym":       DefaultMaxSynonyms,
				"antonym":       DefaultMaxAntonyms,
				"usage-example": DefaultMaxExamples,
				"definition":    DefaultMaxDefinition,
			},
		},
		Exercise: ExerciseConfig{DistractorCount: DefaultDistractorCount},
		Session: SessionConfig{
			Backend:     DefaultSessionBackend,
			RedisPrefix: DefaultRedisPrefix,
			ExerciseTTL: ttl,
		},
	}
}

// setDefaults は viper に既定値を登録します。キーを登録しておくと環境変数だけでも上書きできます。
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("database.url", d.Database.URL)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("app.review_limit", d.App.ReviewLimit)

	v.SetDefault("scheduler.min_interval_days", d.Scheduler.MinIntervalDays)
	v.SetDefault("scheduler.learning_steps", d.Scheduler.LearningSteps)
	v.SetDefault("scheduler.graduation_streak", d.Scheduler.GraduationStreak)
	v.SetDefault("scheduler.ease_initial", d.Scheduler.EaseInitial)
	v.SetDefault("scheduler.ease_floor", d.Scheduler.EaseFloor)
	v.SetDefault("scheduler.ease_ceiling", d.Scheduler.EaseCeiling)
	v.SetDefault("scheduler.correct_ease_bonus", d.Scheduler.CorrectEaseBonus)
	v.SetDefault("scheduler.partial_ease_bonus", d.Scheduler.PartialEaseBonus)
	v.SetDefault("scheduler.lapse_penalty", d.Scheduler.LapsePenalty)
	v.SetDefault("scheduler.mastered_interval_days", d.Scheduler.MasteredIntervalDays)
	v.SetDefault("scheduler.problematic_lapses", d.Scheduler.ProblematicLapses)
	v.SetDefault("scheduler.max_commit_attempts", d.Scheduler.MaxCommitAttempts)
	v.SetDefault("scheduler.build_concurrency", d.Scheduler.BuildConcurrency)

	v.SetDefault("grading.partial_threshold", d.Grading.PartialThreshold)

	v.SetDefault("graph.default_hops", d.Graph.DefaultHops)
	v.SetDefault("graph.max_hops", d.Graph.MaxHops)
	v.SetDefault("graph.relation_limits", d.Graph.RelationLimits)

	v.SetDefault("exercise.distractor_count", d.Exercise.DistractorCount)
	v.SetDefault("exercise.random_seed", d.Exercise.RandomSeed)

	v.SetDefault("session.backend", d.Session.Backend)
	v.SetDefault("session.redis_addr", d.Session.RedisAddr)
	v.SetDefault("session.redis_db", d.Session.RedisDB)
	v.SetDefault("session.redis_prefix", d.Session.RedisPrefix)
	v.SetDefault("session.exercise_ttl", d.Session.ExerciseTTL)
}

// Load は path 配下の config.yaml と APP_ 接頭辞の環境変数から設定を読み込みます。
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(path)
	v.AddConfigPath(".")

	v.SetEnvPrefix("APP") // 例: APP_DATABASE_URL
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()
	v.BindEnv("database.url", "APP_DATABASE_URL", "DATABASE_URL")

	setDefaults(v, Default())

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			log.Println("Warning: Config file not found. Using default settings or environment variables if available.")
		} else {
			log.Printf("Error reading config file: %s\n", err)
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		log.Printf("Error unmarshalling config: %s\n", err)
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig は Load の結果をグローバルな Cfg に格納します。
func LoadConfig(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	Cfg = cfg

	log.Println("Config loaded successfully")
	log.Printf("Review Limit: %d", Cfg.App.ReviewLimit)
	log.Printf("Session Backend: %s", Cfg.Session.Backend)
	log.Printf("Learning Steps: %v, Ease: %.2f [%.2f, %.2f]",
		Cfg.Scheduler.LearningSteps, Cfg.Scheduler.EaseInitial, Cfg.Scheduler.EaseFloor, Cfg.Scheduler.EaseCeiling)
	return nil
}

var validate = validator.New()

// Validate はタグによる検証に加えて、項目間の整合性を確認します。
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	s := c.Scheduler
	if !(s.EaseFloor <= s.EaseInitial && s.EaseInitial <= s.EaseCeiling) {
		return fmt.Errorf("invalid config: ease must satisfy floor(%.2f) <= initial(%.2f) <= ceiling(%.2f)",
			s.EaseFloor, s.EaseInitial, s.EaseCeiling)
	}
	return nil
}

// RelationLimit は kind の上限を返します。設定が無ければ 0 (無制限)。
func (g GraphConfig) RelationLimit(kind string) int {
	return g.RelationLimits[kind]
}
