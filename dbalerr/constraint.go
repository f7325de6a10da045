package dbalerr

import (
	"errors"
	"strings"
)

// errorCoder is implemented by database errors that expose a string error
// code through a Code method. lib/pq's *pq.Error keeps its code in a Code
// field and does not implement it.
type errorCoder interface {
	Code() string
}

// errorNumberer is implemented by database errors that expose a numeric
// error code through a Number method. go-sql-driver/mysql's
// *mysql.MySQLError keeps Number as a struct field and does not implement it.
type errorNumberer interface {
	Number() uint16
}

// PostgreSQL SQLSTATE codes for constraint violations (class 23).
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// MySQL numeric error codes for constraint violations.
const (
	mysqlDuplicateEntry         = 1062
	mysqlForeignKeyParent       = 1451
	mysqlForeignKeyChild        = 1452
	mysqlCheckConstraintViolate = 3819
)

// IsConstraintError reports whether err resulted from any database
// constraint violation (unique, foreign key, or check).
func IsConstraintError(err error) bool {
	return IsUniqueConstraintError(err) || IsForeignKeyConstraintError(err) || IsCheckConstraintError(err)
}

// IsUniqueConstraintError reports whether err resulted from a uniqueness
// constraint violation.
func IsUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if e, ok := asError[errorCoder](err); ok && e.Code() == pgUniqueViolation {
		return true
	}
	if e, ok := asError[errorNumberer](err); ok && e.Number() == mysqlDuplicateEntry {
		return true
	}
	return containsAny(err.Error(),
		"Error 1062",
		"violates unique constraint",
		"UNIQUE constraint failed",
	)
}

// IsForeignKeyConstraintError reports whether err resulted from a foreign
// key constraint violation.
func IsForeignKeyConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if e, ok := asError[errorCoder](err); ok && e.Code() == pgForeignKeyViolation {
		return true
	}
	if e, ok := asError[errorNumberer](err); ok {
		if n := e.Number(); n == mysqlForeignKeyParent || n == mysqlForeignKeyChild {
			return true
		}
	}
	return containsAny(err.Error(),
		"Error 1451",
		"Error 1452",
		"violates foreign key constraint",
		"FOREIGN KEY constraint failed",
	)
}

// IsCheckConstraintError reports whether err resulted from a check
// constraint violation.
func IsCheckConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if e, ok := asError[errorCoder](err); ok && e.Code() == pgCheckViolation {
		return true
	}
	if e, ok := asError[errorNumberer](err); ok && e.Number() == mysqlCheckConstraintViolate {
		return true
	}
	return containsAny(err.Error(),
		"Error 3819",
		"violates check constraint",
		"CHECK constraint failed",
	)
}

// asError walks err's chain looking for the first error implementing T.
func asError[T any](err error) (T, bool) {
	var target T
	for err != nil {
		if e, ok := err.(T); ok {
			return e, true
		}
		err = errors.Unwrap(err)
	}
	return target, false
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
