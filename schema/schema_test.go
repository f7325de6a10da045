package schema_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/dbal/platform"
	"github.com/syssam/dbal/schema"
	"github.com/syssam/dbal/types"
)

// fakePlatform is an in-memory platform.Platform that counts how many times
// its introspection methods are called, so tests can assert on caching.
type fakePlatform struct {
	tablesCalls int
	viewsCalls  int

	tableNames []string
	views      []platform.ViewInfo
	columns    map[string][]platform.ColumnInfo
	indexes    map[string][]platform.IndexInfo
}

func (f *fakePlatform) Name() string                       { return "fake" }
func (f *fakePlatform) IdentifierQuoteChar() byte           { return '"' }
func (f *fakePlatform) QuoteIdentifier(id string) string    { return `"` + id + `"` }
func (f *fakePlatform) QuoteSingleIdentifier(id string) string { return `"` + id + `"` }
func (f *fakePlatform) ModifyLimitSQL(sql string, limit, offset *int) (string, error) {
	return sql, nil
}
func (f *fakePlatform) IsLimitOffsetSupported() bool       { return true }
func (f *fakePlatform) IsSavepointsSupported() bool        { return true }
func (f *fakePlatform) IsReleaseSavepointsSupported() bool { return true }
func (f *fakePlatform) CreateSavepointSQL(name string) string  { return "SAVEPOINT " + name }
func (f *fakePlatform) ReleaseSavepointSQL(name string) string { return "RELEASE SAVEPOINT " + name }
func (f *fakePlatform) RollbackSavepointSQL(name string) string {
	return "ROLLBACK TO SAVEPOINT " + name
}
func (f *fakePlatform) IsForeignKeysSupported() bool { return true }
func (f *fakePlatform) SetTransactionIsolationSQL(level int) (string, error) {
	return "", nil
}
func (f *fakePlatform) DefaultTransactionIsolationLevel() int { return platform.ReadCommitted }
func (f *fakePlatform) TypeMapping(raw string) (types.Type, error) { return types.String, nil }
func (f *fakePlatform) Keywords() map[string]bool                 { return nil }

func (f *fakePlatform) Databases(ctx context.Context, db platform.Queryer) ([]string, error) {
	return nil, nil
}

func (f *fakePlatform) Views(ctx context.Context, db platform.Queryer, database string) ([]platform.ViewInfo, error) {
	f.viewsCalls++
	return f.views, nil
}

func (f *fakePlatform) Tables(ctx context.Context, db platform.Queryer, database string) ([]string, error) {
	f.tablesCalls++
	return f.tableNames, nil
}

func (f *fakePlatform) TableColumns(ctx context.Context, db platform.Queryer, table, database string) ([]platform.ColumnInfo, error) {
	return f.columns[table], nil
}

func (f *fakePlatform) TableIndexes(ctx context.Context, db platform.Queryer, table, database string) ([]platform.IndexInfo, error) {
	return f.indexes[table], nil
}

func (f *fakePlatform) TableForeignKeys(ctx context.Context, db platform.Queryer, table, database string) ([]platform.ForeignKeyInfo, error) {
	return nil, nil
}

var _ platform.Platform = (*fakePlatform)(nil)

func newManager() (*schema.Manager, *fakePlatform) {
	p := &fakePlatform{
		tableNames: []string{"Users"},
		views:      []platform.ViewInfo{{Name: "ActiveUsers", SQL: "SELECT * FROM Users"}},
		columns: map[string][]platform.ColumnInfo{
			"Users": {
				{Name: "ID", Type: types.Integer},
				{Name: "Name", Type: types.String},
			},
		},
		indexes: map[string][]platform.IndexInfo{
			"Users": {{Name: "PRIMARY", Columns: []string{"ID"}, Unique: true, Primary: true}},
		},
	}
	return schema.New(p, nil, ""), p
}

func TestListTableNamesLoadsOnce(t *testing.T) {
	m, p := newManager()
	ctx := context.Background()

	names, err := m.ListTableNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Users"}, names)

	_, err = m.ListTableNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, p.tablesCalls, "second call should hit the cache, not re-query")
}

func TestTableLookupIsCaseInsensitive(t *testing.T) {
	m, _ := newManager()
	ctx := context.Background()

	tbl, err := m.Table(ctx, "users")
	require.NoError(t, err)
	assert.Equal(t, "Users", tbl.Name)
	assert.True(t, tbl.HasColumn("name"))

	col, ok := tbl.Column("id")
	require.True(t, ok)
	assert.Equal(t, "ID", col.Name)
}

func TestTablePrimaryKey(t *testing.T) {
	m, _ := newManager()
	ctx := context.Background()

	tbl, err := m.Table(ctx, "Users")
	require.NoError(t, err)
	pk, ok := tbl.PrimaryKey()
	require.True(t, ok)
	assert.Equal(t, "PRIMARY", pk.Name)
	assert.False(t, pk.IsComposite())
}

func TestContainsFindsTablesAndViewsCaseInsensitively(t *testing.T) {
	m, _ := newManager()
	ctx := context.Background()

	ok, err := m.Contains(ctx, "users", false)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.Contains(ctx, "activeusers", false)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.Contains(ctx, "missing", false)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestContainsRefreshBypassesCache(t *testing.T) {
	m, p := newManager()
	ctx := context.Background()

	_, err := m.ListTableNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, p.tablesCalls)

	_, err = m.Contains(ctx, "users", true)
	require.NoError(t, err)
	assert.Equal(t, 2, p.tablesCalls, "refresh=true should evict the cache and re-query")
}

func TestClearCacheForcesReload(t *testing.T) {
	m, p := newManager()
	ctx := context.Background()

	_, err := m.ListTableNames(ctx)
	require.NoError(t, err)
	m.ClearCache()
	_, err = m.ListTableNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, p.tablesCalls)
}

func TestQuoteIdentifierSkipsAlreadyQuoted(t *testing.T) {
	m, _ := newManager()
	assert.Equal(t, `"users"`, m.QuoteIdentifier("users"))
	assert.Equal(t, `"users"`, m.QuoteIdentifier(`"users"`))
}

func TestTableColumnsAndNames(t *testing.T) {
	m, _ := newManager()
	ctx := context.Background()

	cols, err := m.TableColumns(ctx, "users")
	require.NoError(t, err)
	require.Len(t, cols, 2)
	assert.Equal(t, "ID", cols[0].Name)

	names, err := m.TableColumnNames(ctx, "users")
	require.NoError(t, err)
	assert.Equal(t, []string{"ID", "Name"}, names)
}

func TestTableIndexesAndNames(t *testing.T) {
	m, _ := newManager()
	ctx := context.Background()

	idxs, err := m.TableIndexes(ctx, "users")
	require.NoError(t, err)
	require.Len(t, idxs, 1)
	assert.Equal(t, "PRIMARY", idxs[0].Name)

	names, err := m.TableIndexNames(ctx, "users")
	require.NoError(t, err)
	assert.Equal(t, []string{"PRIMARY"}, names)
}

func TestTableForeignKeysAndNames(t *testing.T) {
	m, _ := newManager()
	ctx := context.Background()

	fks, err := m.TableForeignKeys(ctx, "users")
	require.NoError(t, err)
	assert.Empty(t, fks)

	names, err := m.TableForeignKeyNames(ctx, "users")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestListViewNames(t *testing.T) {
	m, _ := newManager()
	ctx := context.Background()

	names, err := m.ListViewNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ActiveUsers"}, names)
}
