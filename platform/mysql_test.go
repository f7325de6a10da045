package platform_test

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/dbal/platform"
	"github.com/syssam/dbal/types"
)

func intp(n int) *int { return &n }

func TestMySQLModifyLimitSQL(t *testing.T) {
	p := platform.NewMySQL()

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

	t.Run("offset only uses the max-bigint sentinel limit", func(t *testing.T) {
		out, err := p.ModifyLimitSQL("SELECT * FROM t", nil, intp(5))
		require.NoError(t, err)
		assert.Equal(t, "SELECT * FROM t LIMIT 18446744073709551615 OFFSET 5", out)
	})

	t.Run("neither", func(t *testing.T) {
		out, err := p.ModifyLimitSQL("SELECT * FROM t", nil, nil)
		require.NoError(t, err)
		assert.Equal(t, "SELECT * FROM t", out)
	})

	t.Run("negative offset errors", func(t *testing.T) {
		_, err := p.ModifyLimitSQL("SELECT * FROM t", nil, intp(-1))
		assert.Error(t, err)
	})
}

func TestMySQLQuoteIdentifier(t *testing.T) {
	p := platform.NewMySQL()
	assert.Equal(t, "`users`", p.QuoteSingleIdentifier("users"))
	assert.Equal(t, "`db`.`users`", p.QuoteIdentifier("db.users"))
}

func TestMySQLTypeMapping(t *testing.T) {
	p := platform.NewMySQL()

	got, err := p.TypeMapping("varchar(255)")
	require.NoError(t, err)
	assert.Equal(t, types.String, got)

	got, err = p.TypeMapping("decimal(10,2)")
	require.NoError(t, err)
	assert.Equal(t, types.Decimal, got)

	_, err = p.TypeMapping("nonsense")
	assert.Error(t, err)
}

func TestMySQLSetTransactionIsolationSQL(t *testing.T) {
	p := platform.NewMySQL()

	sql, err := p.SetTransactionIsolationSQL(platform.Serializable)
	require.NoError(t, err)
	assert.Equal(t, "SET SESSION TRANSACTION ISOLATION LEVEL SERIALIZABLE", sql)

	_, err = p.SetTransactionIsolationSQL(99)
	assert.Error(t, err)
}

func TestMySQLKeywordsContainReservedWords(t *testing.T) {
	p := platform.NewMySQL()
	assert.True(t, p.Keywords()["SELECT"])
	assert.False(t, p.Keywords()["NOTAKEYWORD"])
}

func TestMySQLTableColumnsStripsTypeOverrideFromStoredComment(t *testing.T) {
	p := platform.NewMySQL()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"COLUMN_NAME", "COLUMN_TYPE", "IS_NULLABLE", "COLUMN_DEFAULT", "EXTRA", "COLUMN_COMMENT", "COLLATION_NAME"}).
		AddRow("legacy_flag", "tinyint(1)", "NO", nil, "", "legacy bit (DBALType:boolean)", nil)
	mock.ExpectQuery("SELECT COLUMN_NAME").WillReturnRows(rows)

	cols, err := p.TableColumns(context.Background(), db, "t", "")
	require.NoError(t, err)
	require.Len(t, cols, 1)
	assert.Equal(t, types.Boolean, cols[0].Type)
	assert.Equal(t, "legacy bit", cols[0].Options.Comment)
	require.NoError(t, mock.ExpectationsWereMet())
}
