package platform_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/dbal/platform"
	"github.com/syssam/dbal/types"
)

func TestSQLiteModifyLimitSQL(t *testing.T) {
	p := platform.NewSQLite()

	t.Run("limit only", func(t *testing.T) {
		out, err := p.ModifyLimitSQL("SELECT * FROM t", intp(10), nil)
		require.NoError(t, err)
		assert.Equal(t, "SELECT * FROM t LIMIT 10", out)
	})

	t.Run("limit and offset", func(t *testing.T) {
		out, err := p.ModifyLimitSQL("SELECT * FROM t", intp(10), intp(20))
		require.NoError(t, err)
		assert.Equal(t, "SELECT * FROM t LIMIT 10 OFFSET 20", out)
	})

	t.Run("offset only uses LIMIT -1", func(t *testing.T) {
		out, err := p.ModifyLimitSQL("SELECT * FROM t", nil, intp(5))
		require.NoError(t, err)
		assert.Equal(t, "SELECT * FROM t LIMIT -1 OFFSET 5", out)
	})

	t.Run("negative offset errors", func(t *testing.T) {
		_, err := p.ModifyLimitSQL("SELECT * FROM t", nil, intp(-1))
		assert.Error(t, err)
	})
}

func TestSQLiteQuoteIdentifier(t *testing.T) {
	p := platform.NewSQLite()
	assert.Equal(t, `"users"`, p.QuoteSingleIdentifier("users"))
}

func TestSQLiteTypeMapping(t *testing.T) {
	p := platform.NewSQLite()

	got, err := p.TypeMapping("INTEGER")
	require.NoError(t, err)
	assert.Equal(t, types.Integer, got)

	got, err = p.TypeMapping("")
	require.NoError(t, err)
	assert.Equal(t, types.Text, got)

	_, err = p.TypeMapping("nonsense")
	assert.Error(t, err)
}

func TestSQLiteSetTransactionIsolationSQL(t *testing.T) {
	p := platform.NewSQLite()

	sql, err := p.SetTransactionIsolationSQL(platform.ReadUncommitted)
	require.NoError(t, err)
	assert.Equal(t, "PRAGMA read_uncommitted = 0", sql)

	sql, err = p.SetTransactionIsolationSQL(platform.ReadCommitted)
	require.NoError(t, err)
	assert.Equal(t, "PRAGMA read_uncommitted = 1", sql)

	sql, err = p.SetTransactionIsolationSQL(platform.RepeatableRead)
	require.NoError(t, err)
	assert.Equal(t, "PRAGMA read_uncommitted = 1", sql)

	sql, err = p.SetTransactionIsolationSQL(platform.Serializable)
	require.NoError(t, err)
	assert.Equal(t, "PRAGMA read_uncommitted = 1", sql)

	_, err = p.SetTransactionIsolationSQL(99)
	assert.Error(t, err)
}
