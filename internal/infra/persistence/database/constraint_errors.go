package database

import (
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// The drivers translate most constraint failures into gorm sentinels because
// TranslateError is on. The message checks cover errors that reach us untranslated.

func isUniqueConstraintViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	errMsg := strings.ToLower(err.Error())

	return strings.Contains(errMsg, "unique constraint failed") || // sqlite
		strings.Contains(errMsg, "sqlstate 23505") // postgres unique_violation
}

func isForeignKeyConstraintViolation(err error) bool {
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}

	errMsg := strings.ToLower(err.Error())

	return strings.Contains(errMsg, "foreign key constraint failed") ||
		strings.Contains(errMsg, "sqlstate 23503")
}

func isNotNullConstraintViolation(err error) bool {
	errMsg := strings.ToLower(err.Error())

	return strings.Contains(errMsg, "not null constraint failed") ||
		strings.Contains(errMsg, "sqlstate 23502")
}
