package dbal_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/dbal"
)

func TestNotFoundError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := dbal.NewNotFoundError("table")
		assert.Equal(t, "dbal: table not found", err.Error())
	})

	t.Run("WithID", func(t *testing.T) {
		err := dbal.NewNotFoundErrorWithID("table", "posts")
		assert.Equal(t, "dbal: table not found (name=posts)", err.Error())
	})

	t.Run("Is", func(t *testing.T) {
		err := dbal.NewNotFoundError("view")
		assert.True(t, errors.Is(err, dbal.ErrNotFound))
	})

	t.Run("IsNotFound", func(t *testing.T) {
		err := dbal.NewNotFoundError("column")
		assert.True(t, dbal.IsNotFound(err))

		wrapped := fmt.Errorf("wrapper: %w", err)
		assert.True(t, dbal.IsNotFound(wrapped))

		assert.True(t, dbal.IsNotFound(dbal.ErrNotFound))

		assert.False(t, dbal.IsNotFound(errors.New("other error")))
		assert.False(t, dbal.IsNotFound(nil))
	})
}

func TestNotSingularError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := dbal.NewNotSingularError("fetch one")
		assert.Equal(t, "dbal: fetch one not singular", err.Error())
	})

	t.Run("WithCount", func(t *testing.T) {
		err := dbal.NewNotSingularErrorWithCount("fetch one", 3)
		assert.Equal(t, "dbal: fetch one not singular (got 3 rows, expected 1)", err.Error())
	})

	t.Run("Is", func(t *testing.T) {
		err := dbal.NewNotSingularError("select")
		assert.True(t, errors.Is(err, dbal.ErrNotSingular))
	})

	t.Run("IsNotSingular", func(t *testing.T) {
		err := dbal.NewNotSingularError("select")
		assert.True(t, dbal.IsNotSingular(err))

		wrapped := fmt.Errorf("wrapper: %w", err)
		assert.True(t, dbal.IsNotSingular(wrapped))

		assert.True(t, dbal.IsNotSingular(dbal.ErrNotSingular))

		assert.False(t, dbal.IsNotSingular(errors.New("other error")))
		assert.False(t, dbal.IsNotSingular(nil))
	})
}

func TestConstraintError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := dbal.NewConstraintError("UNIQUE constraint failed", nil)
		assert.Equal(t, "dbal: constraint failed: UNIQUE constraint failed", err.Error())
	})

	t.Run("Unwrap", func(t *testing.T) {
		underlying := errors.New("db error")
		err := dbal.NewConstraintError("constraint violated", underlying)
		assert.True(t, errors.Is(err, underlying))
	})

	t.Run("IsConstraintError", func(t *testing.T) {
		err := dbal.NewConstraintError("check failed", nil)
		assert.True(t, dbal.IsConstraintError(err))

		wrapped := fmt.Errorf("wrapper: %w", err)
		assert.True(t, dbal.IsConstraintError(wrapped))

		assert.False(t, dbal.IsConstraintError(errors.New("other error")))
		assert.False(t, dbal.IsConstraintError(nil))
	})
}

func TestRollbackError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := &dbal.RollbackError{Err: errors.New("connection lost")}
		assert.Equal(t, "dbal: rollback failed: connection lost", err.Error())
	})

	t.Run("Unwrap", func(t *testing.T) {
		underlying := errors.New("timeout")
		err := &dbal.RollbackError{Err: underlying}
		assert.True(t, errors.Is(err, underlying))
	})
}

func TestAggregateError(t *testing.T) {
	t.Run("NoErrors", func(t *testing.T) {
		err := dbal.NewAggregateError()
		assert.Nil(t, err)
	})

	t.Run("NilErrors", func(t *testing.T) {
		err := dbal.NewAggregateError(nil, nil, nil)
		assert.Nil(t, err)
	})

	t.Run("SingleError", func(t *testing.T) {
		single := errors.New("single error")
		err := dbal.NewAggregateError(single)
		assert.Equal(t, single, err)
	})

	t.Run("MultipleErrors", func(t *testing.T) {
		err1 := errors.New("error 1")
		err2 := errors.New("error 2")
		err := dbal.NewAggregateError(err1, err2)

		require.NotNil(t, err)
		assert.Contains(t, err.Error(), "multiple errors")
		assert.Contains(t, err.Error(), "error 1")
		assert.Contains(t, err.Error(), "error 2")
	})

	t.Run("MixedNilAndErrors", func(t *testing.T) {
		err1 := errors.New("error 1")
		err := dbal.NewAggregateError(nil, err1, nil)

		require.NotNil(t, err)
		assert.Equal(t, err1, err)
	})
}

func TestSentinelErrors(t *testing.T) {
	t.Run("ErrNotFound", func(t *testing.T) {
		assert.Error(t, dbal.ErrNotFound)
		assert.Contains(t, dbal.ErrNotFound.Error(), "not found")
	})

	t.Run("ErrNotSingular", func(t *testing.T) {
		assert.Error(t, dbal.ErrNotSingular)
		assert.Contains(t, dbal.ErrNotSingular.Error(), "not singular")
	})
}

func BenchmarkErrors(b *testing.B) {
	b.Run("NewNotFoundError", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_ = dbal.NewNotFoundError("table")
		}
	})

	b.Run("IsNotFound", func(b *testing.B) {
		err := dbal.NewNotFoundError("table")
		for i := 0; i < b.N; i++ {
			_ = dbal.IsNotFound(err)
		}
	})

	b.Run("NewConstraintError", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_ = dbal.NewConstraintError("unique", nil)
		}
	})

	b.Run("IsConstraintError", func(b *testing.B) {
		err := dbal.NewConstraintError("unique", nil)
		for i := 0; i < b.N; i++ {
			_ = dbal.IsConstraintError(err)
		}
	})

	b.Run("NewAggregateError_multiple", func(b *testing.B) {
		err1 := errors.New("err1")
		err2 := errors.New("err2")
		err3 := errors.New("err3")
		for i := 0; i < b.N; i++ {
			_ = dbal.NewAggregateError(err1, err2, err3)
		}
	})
}
