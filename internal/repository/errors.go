package repository

import (
	"errors"
	"strings"

	"go_5_vocab_practice/internal/model"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

// isUniqueViolation はドライバごとの一意制約違反を判定します。
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// translateError は gorm のエラーをアプリケーションのセンチネルに寄せます。
// それ以外のエラーは呼び出し側で %w によりそのまま伝播させます。
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return model.ErrNotFound
	case isUniqueViolation(err):
		return errors.Join(model.ErrConflict, err)
	default:
		return err
	}
}
