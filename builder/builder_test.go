package builder_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/dbal/builder"
)

type fakePlatform struct{}

func (fakePlatform) ModifyLimitSQL(sqlText string, limit, offset *int) (string, error) {
	if limit != nil {
		sqlText += " LIMIT ?"
	}
	if offset != nil {
		sqlText += " OFFSET ?"
	}
	return sqlText, nil
}

type fakeExecutor struct {
	querySQL    string
	queryParams map[any]any
	execSQL     string
	execParams  map[any]any
	affected    int64
	lastID      int64
}

func (e *fakeExecutor) QueryParams(ctx context.Context, sqlText string, params map[any]any) (builder.Rows, error) {
	e.querySQL, e.queryParams = sqlText, params
	return nil, nil
}

func (e *fakeExecutor) ExecuteParams(ctx context.Context, sqlText string, params map[any]any) (int64, error) {
	e.execSQL, e.execParams = sqlText, params
	return e.affected, nil
}

func (e *fakeExecutor) LastInsertID() (int64, error) { return e.lastID, nil }

func newBuilder() (*builder.SQLBuilder, *fakeExecutor) {
	exec := &fakeExecutor{}
	expr := builder.New(func(v string) string { return "'" + v + "'" })
	return builder.New(fakePlatform{}, expr, exec), exec
}

func TestSelectSQL(t *testing.T) {
	b, _ := newBuilder()
	b.Select("id", "name").From("users", "u").Where(b.Expr().Eq("u.id", "?"))

	sql, err := b.SQL()
	require.NoError(t, err)
	assert.Equal(t, "SELECT id, name FROM users u WHERE u.id = ?", sql)
}

func TestSelectSQLIsCached(t *testing.T) {
	b, _ := newBuilder()
	b.Select("id").From("users", "")
	first, err := b.SQL()
	require.NoError(t, err)

	second, err := b.SQL()
	require.NoError(t, err)
	assert.Equal(t, first, second)

	b.AddSelect("name")
	third, err := b.SQL()
	require.NoError(t, err)
	assert.NotEqual(t, first, third)
}

func TestAndWhereFoldsExisting(t *testing.T) {
	b, _ := newBuilder()
	b.Select("*").From("t", "").Where("a = 1").AndWhere("b = 2")
	sql, err := b.SQL()
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM t WHERE (a = 1) AND (b = 2)", sql)
}

func TestOrWhereFoldsExisting(t *testing.T) {
	b, _ := newBuilder()
	b.Select("*").From("t", "").Where("a = 1").OrWhere("b = 2")
	sql, err := b.SQL()
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM t WHERE (a = 1) OR (b = 2)", sql)
}

func TestLimitOffsetDelegatesToPlatform(t *testing.T) {
	b, _ := newBuilder()
	b.Select("*").From("t", "").SetMaxResults(10).SetFirstResult(20)
	sql, err := b.SQL()
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM t LIMIT ? OFFSET ?", sql)
}

func TestInsertSQLSortsColumns(t *testing.T) {
	b, _ := newBuilder()
	b.Insert("users").SetValue("name", "?").SetValue("id", "?")
	sql, err := b.SQL()
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO users (id, name) VALUES(?, ?)", sql)
}

func TestValuesReplacesSetValue(t *testing.T) {
	b, _ := newBuilder()
	b.Insert("users").SetValue("name", "'old'").Values(map[string]string{"id": "1"})
	sql, err := b.SQL()
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO users (id) VALUES(1)", sql)
}

func TestSetValueAfterValuesMerges(t *testing.T) {
	b, _ := newBuilder()
	b.Insert("users").Values(map[string]string{"id": "1"}).SetValue("name", "'x'")
	sql, err := b.SQL()
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO users (id, name) VALUES(1, 'x')", sql)
}

func TestUpdateSQL(t *testing.T) {
	b, _ := newBuilder()
	b.Update("users", "").Set("name", "?").Where("id = ?")
	sql, err := b.SQL()
	require.NoError(t, err)
	assert.Equal(t, "UPDATE users SET name = ? WHERE id = ?", sql)
}

func TestDeleteSQL(t *testing.T) {
	b, _ := newBuilder()
	b.Delete("users", "").Where("id = ?")
	sql, err := b.SQL()
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM users WHERE id = ?", sql)
}

func TestJoinsEmitSiblingsThenRecurse(t *testing.T) {
	b, _ := newBuilder()
	b.Select("*").From("a", "").
		InnerJoin("a", "b", "b", "a.id = b.a_id").
		InnerJoin("a", "c", "c", "a.id = c.a_id").
		InnerJoin("b", "d", "d", "b.id = d.b_id")
	sql, err := b.SQL()
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT * FROM a INNER JOIN b b ON a.id = b.a_id INNER JOIN c c ON a.id = c.a_id INNER JOIN d d ON b.id = d.b_id",
		sql)
}

func TestUnknownAliasJoinErrors(t *testing.T) {
	b, _ := newBuilder()
	b.Select("*").From("a", "").InnerJoin("missing", "b", "b", "1 = 1")
	_, err := b.SQL()
	assert.Error(t, err)
}

func TestCreatePositionalAndNamedParameters(t *testing.T) {
	b, _ := newBuilder()
	ph1 := b.CreatePositionalParameter(1)
	ph2 := b.CreateNamedParameter("bob", "")
	assert.Equal(t, "?", ph1)
	assert.Equal(t, ":pyValue1", ph2)
}

func TestExecuteSelectCallsQueryParams(t *testing.T) {
	b, exec := newBuilder()
	b.Select("*").From("t", "")
	_, err := b.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM t", exec.querySQL)
}

func TestExecuteInsertReturnsLastInsertID(t *testing.T) {
	b, exec := newBuilder()
	exec.lastID = 42
	b.Insert("t").SetValue("a", "1")
	res, err := b.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), res)
}

func TestExecuteUpdateReturnsAffectedCount(t *testing.T) {
	b, exec := newBuilder()
	exec.affected = 3
	b.Update("t", "").Set("a", "1")
	res, err := b.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), res)
}

func TestCopyIsIndependent(t *testing.T) {
	b, _ := newBuilder()
	b.Select("a").From("t", "")
	cp := b.Copy()
	cp.AddSelect("b")

	origSQL, err := b.SQL()
	require.NoError(t, err)
	cpSQL, err := cp.SQL()
	require.NoError(t, err)
	assert.Equal(t, "SELECT a FROM t", origSQL)
	assert.Equal(t, "SELECT a, b FROM t", cpSQL)
}
