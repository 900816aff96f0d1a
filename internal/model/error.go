// internal/model/error.go
package model

import (
	"errors"
	"fmt"
)

// アプリケーション共通のエラー
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("resource conflict") // 一意制約違反など
)

// 語彙グラフとスケジューラ固有のエラー
var (
	ErrInvalidEdge              = errors.New("invalid relation edge")
	ErrDuplicateEdge            = errors.New("duplicate relation edge")
	ErrConflictingRelation      = errors.New("conflicting relation")
	ErrRelationLimitExceeded    = errors.New("relation limit exceeded")
	ErrNoExerciseAvailable      = errors.New("no exercise available for word")
	ErrConcurrentUpdateConflict = errors.New("concurrent update conflict")
	ErrUnknownSubmission        = errors.New("unknown submission")
)

// AppError はセンチネルエラーにコードとメッセージを付与したものです。
// errors.Is / errors.As は Unwrap 経由で元のエラーに到達します。
type AppError struct {
	Code    string
	Message string
	Field   string
	Err     error
}

func NewAppError(code, message, field string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Field:   field,
		Err:     err,
	}
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// IsTransient は呼び出し側が再試行してよいエラーかどうかを返します。
func IsTransient(err error) bool {
	return errors.Is(err, ErrConcurrentUpdateConflict)
}
