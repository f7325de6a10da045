package platform_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/dbal/platform"
	"github.com/syssam/dbal/types"
)

func TestPostgresModifyLimitSQL(t *testing.T) {
	p := platform.NewPostgres()

	t.Run("limit only", func(t *testing.T) {
		out, err := p.ModifyLimitSQL("SELECT * FROM t", intp(10), nil)
		require.NoError(t, err)
		assert.Equal(t, "SELECT * FROM t LIMIT 10", out)
	})

	t.Run("offset only uses bare OFFSET, unlike MySQL/SQLite", func(t *testing.T) {
		out, err := p.ModifyLimitSQL("SELECT * FROM t", nil, intp(5))
		require.NoError(t, err)
		assert.Equal(t, "SELECT * FROM t OFFSET 5", out)
	})

	t.Run("limit and offset", func(t *testing.T) {
		out, err := p.ModifyLimitSQL("SELECT * FROM t", intp(10), intp(20))
		require.NoError(t, err)
		assert.Equal(t, "SELECT * FROM t LIMIT 10 OFFSET 20", out)
	})

	t.Run("negative offset errors", func(t *testing.T) {
		_, err := p.ModifyLimitSQL("SELECT * FROM t", nil, intp(-1))
		assert.Error(t, err)
	})
}

func TestPostgresQuoteIdentifier(t *testing.T) {
	p := platform.NewPostgres()
	assert.Equal(t, `"users"`, p.QuoteSingleIdentifier("users"))
	assert.Equal(t, `"public"."users"`, p.QuoteIdentifier("public.users"))
}

func TestPostgresTypeMapping(t *testing.T) {
	p := platform.NewPostgres()

	got, err := p.TypeMapping("character varying")
	require.NoError(t, err)
	assert.Equal(t, types.String, got)

	got, err = p.TypeMapping("uuid")
	require.NoError(t, err)
	assert.Equal(t, types.GUID, got)

	got, err = p.TypeMapping("integer[]")
	require.NoError(t, err)
	assert.Equal(t, types.Array, got)

	_, err = p.TypeMapping("nonsense")
	assert.Error(t, err)
}

func TestPostgresSetTransactionIsolationSQL(t *testing.T) {
	p := platform.NewPostgres()
	sql, err := p.SetTransactionIsolationSQL(platform.RepeatableRead)
	require.NoError(t, err)
	assert.Equal(t, "SET SESSION CHARACTERISTICS AS TRANSACTION ISOLATION LEVEL REPEATABLE READ", sql)

	_, err = p.SetTransactionIsolationSQL(99)
	assert.Error(t, err)
}
