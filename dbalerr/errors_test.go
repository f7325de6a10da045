package dbalerr_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/syssam/dbal/dbalerr"
)

func TestUnknownDriverErrorIsConnectionErrorAndSentinel(t *testing.T) {
	err := dbalerr.NewUnknownDriverError("oracle", []string{"mysql", "sqlite"})
	assert.True(t, dbalerr.IsConnectionError(err))
	assert.ErrorIs(t, err, dbalerr.ErrUnknownDriver)
	assert.Contains(t, err.Error(), "oracle")
	assert.Contains(t, err.Error(), "mysql")
}

func TestCommitFailedRollbackOnlyErrorSentinel(t *testing.T) {
	err := dbalerr.NewCommitFailedRollbackOnlyError()
	assert.ErrorIs(t, err, dbalerr.ErrCommitRollbackOnly)
	assert.False(t, dbalerr.IsDriverError(err))
}

func TestDriverErrorWrapsUnderlyingAndFormatsSQL(t *testing.T) {
	underlying := errors.New("connection refused")
	err := dbalerr.NewExecuteError("mysql", underlying, "SELECT 1", []any{1, "a"})
	assert.True(t, dbalerr.IsDriverError(err))
	assert.ErrorIs(t, err, underlying)
	assert.Contains(t, err.Error(), "SELECT 1")
	assert.Contains(t, err.Error(), "mysql")
}

func TestNewDriverErrorWithoutSQL(t *testing.T) {
	err := dbalerr.NewDriverError("sqlite", errors.New("disk full"))
	assert.True(t, dbalerr.IsDriverError(err))
	assert.NotContains(t, err.Error(), "sql=")
}

func TestPlatformErrorPredicates(t *testing.T) {
	errs := []error{
		dbalerr.NewNotSupportedError("ModifyLimitSQL"),
		dbalerr.NewInvalidIsolationLevelError(99),
		dbalerr.NewInvalidOffsetError(-1),
		dbalerr.NewOffsetNotSupportedError("postgres"),
		dbalerr.NewUnknownColumnTypeError("geometry"),
	}
	for _, err := range errs {
		assert.True(t, dbalerr.IsPlatformError(err))
		assert.False(t, dbalerr.IsStatementError(err))
	}
}

func TestStatementErrorPredicatesAndKeys(t *testing.T) {
	posErr := dbalerr.NewMissingPositionalParameterError(2, map[any]any{0: "a"})
	assert.True(t, dbalerr.IsStatementError(posErr))
	assert.Contains(t, posErr.Error(), "2")

	namedErr := dbalerr.NewMissingNamedParameterError("id", map[any]any{"name": "bob"})
	assert.True(t, dbalerr.IsStatementError(namedErr))
	assert.Contains(t, namedErr.Error(), "id")
}

func TestBuilderErrorPredicatesAndAlias(t *testing.T) {
	unknown := dbalerr.NewUnknownAliasError("p", []string{"u", "o"})
	assert.True(t, dbalerr.IsBuilderError(unknown))
	assert.Contains(t, unknown.Error(), "p")
	assert.Contains(t, unknown.Error(), "u, o")

	dup := dbalerr.NewNonUniqueAliasError("u", []string{"u"})
	assert.True(t, dbalerr.IsBuilderError(dup))
}

func TestTypesErrorPredicate(t *testing.T) {
	err := dbalerr.NewUnknownTypeError("geometry")
	assert.True(t, dbalerr.IsTypesError(err))
	assert.Contains(t, err.Error(), "geometry")
}

func TestPredicatesReturnFalseForUnrelatedErrors(t *testing.T) {
	err := errors.New("plain error")
	assert.False(t, dbalerr.IsConnectionError(err))
	assert.False(t, dbalerr.IsDriverError(err))
	assert.False(t, dbalerr.IsPlatformError(err))
	assert.False(t, dbalerr.IsStatementError(err))
	assert.False(t, dbalerr.IsBuilderError(err))
	assert.False(t, dbalerr.IsTypesError(err))
}
