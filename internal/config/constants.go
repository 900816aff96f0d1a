// internal/config/constants.go
package config

// アプリケーション情報
const (
	AppName    = "vocab-practice"
	AppVersion = "0.3.0"
)

// デフォルト設定値
const (
	DefaultDatabaseURL    = "sqlite:file:vocab.db?cache=shared"
	DefaultLogLevel       = "info"
	DefaultAppReviewLimit = 20

	DefaultMinIntervalDays      = 1
	DefaultGraduationStreak     = 2
	DefaultEaseInitial          = 2.5
	DefaultEaseFloor            = 1.3
	DefaultEaseCeiling          = 2.5
	DefaultCorrectEaseBonus     = 0.15
	DefaultPartialEaseBonus     = 0.05
	DefaultLapsePenalty         = 0.2
	DefaultMasteredIntervalDays = 21
	DefaultProblematicLapses    = 3
	DefaultMaxCommitAttempts    = 5
	DefaultBuildConcurrency     = 4

	DefaultPartialThreshold = 0.8

	DefaultMaxHops       = 2
	DefaultMaxSynonyms   = 20
	DefaultMaxAntonyms   = 20
	DefaultMaxExamples   = 10
	DefaultMaxDefinition = 5

	DefaultDistractorCount = 3

	DefaultSessionBackend = "memory"
	DefaultRedisPrefix    = "vocab:exercise:"
	DefaultExerciseTTL    = "24h"
)

// DefaultLearningSteps は Learning 状態の固定間隔 (日) です。
var DefaultLearningSteps = []int{1, 3}
