// Package schema materializes a database's tables, views, columns, indexes
// and foreign keys as immutable asset values, read through a platform's
// introspection queries and kept in a per-instance cache. It mirrors
// pydbal's schema.SchemaManager, re-architected so the cache lives on the
// SchemaManager value itself rather than behind a process-global decorator.
package schema

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/text/cases"

	"github.com/syssam/dbal/platform"
)

// Column is an immutable description of one table column.
type Column struct {
	Name    string
	Type    string
	Options platform.ColumnOptions
}

// Index is an immutable description of one table index.
type Index struct {
	Name    string
	Columns []string
	Unique  bool
	Primary bool
	Flags   []string
}

// IsComposite reports whether the index spans more than one column.
func (i Index) IsComposite() bool { return len(i.Columns) > 1 }

// ForeignKey is an immutable description of one foreign key constraint.
type ForeignKey struct {
	Name           string
	LocalColumns   []string
	ForeignTable   string
	ForeignColumns []string
	OnDelete       string
	OnUpdate       string
}

// Table is an immutable description of one table's columns, indexes and
// foreign keys.
type Table struct {
	Name        string
	Columns     []Column
	Indexes     []Index
	ForeignKeys []ForeignKey
}

// Column returns the named column, case-insensitively, or ok=false.
func (t Table) Column(name string) (Column, bool) {
	eq := cases.Fold()
	for _, c := range t.Columns {
		if eq.String(c.Name) == eq.String(name) {
			return c, true
		}
	}
	return Column{}, false
}

// HasColumn reports whether the table has a column named name, case-insensitively.
func (t Table) HasColumn(name string) bool {
	_, ok := t.Column(name)
	return ok
}

// PrimaryKey returns the table's primary key index, if any.
func (t Table) PrimaryKey() (Index, bool) {
	for _, idx := range t.Indexes {
		if idx.Primary {
			return idx, true
		}
	}
	return Index{}, false
}

// View is an immutable description of one database view.
type View struct {
	Name string
	SQL  string
}

// Queryer is the database handle schema queries run against.
type Queryer = platform.Queryer

// cacheEntry holds everything one load of the schema cached: tables and
// views by name, plus the table names.
type cacheEntry struct {
	tables map[string]Table
	views  map[string]View
	names  []string
}

// Manager reads and caches a database's structural metadata through a
// Platform's introspection queries. Unlike pydbal's module-level cached
// decorator, each Manager owns its own cache so multiple connections (or
// tests) never share stale state.
type Manager struct {
	platform platform.Platform
	db       Queryer
	database string

	mu    sync.Mutex
	cache cacheEntry
	typed bool
}

// New returns a Manager for db under platform p, scoped to database (the
// empty string means "the connection's current database").
func New(p platform.Platform, db Queryer, database string) *Manager {
	return &Manager{platform: p, db: db, database: database}
}

func (m *Manager) reset() {
	m.cache = cacheEntry{}
	m.typed = false
}

// ClearCache evicts every cached value, forcing the next read to re-query
// the database.
func (m *Manager) ClearCache() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset()
}

func (m *Manager) ensureLoaded(ctx context.Context) error {
	if m.typed {
		return nil
	}
	tableNames, err := m.platform.Tables(ctx, m.db, m.database)
	if err != nil {
		return err
	}
	tables := make(map[string]Table, len(tableNames))
	for _, name := range tableNames {
		t, err := m.loadTable(ctx, name)
		if err != nil {
			return err
		}
		tables[name] = t
	}

	viewInfos, err := m.platform.Views(ctx, m.db, m.database)
	if err != nil {
		return err
	}
	views := make(map[string]View, len(viewInfos))
	for _, v := range viewInfos {
		views[v.Name] = View{Name: v.Name, SQL: v.SQL}
	}

	m.cache = cacheEntry{tables: tables, views: views, names: tableNames}
	m.typed = true
	return nil
}

func (m *Manager) loadTable(ctx context.Context, name string) (Table, error) {
	cols, err := m.platform.TableColumns(ctx, m.db, name, m.database)
	if err != nil {
		return Table{}, err
	}
	idxs, err := m.platform.TableIndexes(ctx, m.db, name, m.database)
	if err != nil {
		return Table{}, err
	}
	fks, err := m.platform.TableForeignKeys(ctx, m.db, name, m.database)
	if err != nil {
		return Table{}, err
	}

	t := Table{Name: name}
	for _, c := range cols {
		t.Columns = append(t.Columns, Column{Name: c.Name, Type: string(c.Type), Options: c.Options})
	}
	for _, idx := range idxs {
		t.Indexes = append(t.Indexes, Index{
			Name: idx.Name, Columns: idx.Columns, Unique: idx.Unique, Primary: idx.Primary, Flags: idx.Flags,
		})
	}
	for _, fk := range fks {
		t.ForeignKeys = append(t.ForeignKeys, ForeignKey{
			Name: fk.Name, LocalColumns: fk.LocalColumns, ForeignTable: fk.ForeignTable,
			ForeignColumns: fk.ForeignColumns, OnDelete: fk.OnDelete, OnUpdate: fk.OnUpdate,
		})
	}
	return t, nil
}

// ListTableNames returns every base table name, loading and caching them on
// first call.
func (m *Manager) ListTableNames(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	out := make([]string, len(m.cache.names))
	copy(out, m.cache.names)
	return out, nil
}

// ListTables returns every table's full description.
func (m *Manager) ListTables(ctx context.Context) ([]Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	out := make([]Table, 0, len(m.cache.names))
	for _, name := range m.cache.names {
		out = append(out, m.cache.tables[name])
	}
	return out, nil
}

// Table returns one table's description by name, case-insensitively. An
// unknown name yields a zero Table and a nil error.
func (m *Manager) Table(ctx context.Context, name string) (Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ensureLoaded(ctx); err != nil {
		return Table{}, err
	}
	if t, ok := m.cache.tables[name]; ok {
		return t, nil
	}
	fold := cases.Fold()
	target := fold.String(name)
	for tableName, t := range m.cache.tables {
		if fold.String(tableName) == target {
			return t, nil
		}
	}
	return Table{}, nil
}

// TableColumns returns one table's columns by name, case-insensitively.
func (m *Manager) TableColumns(ctx context.Context, name string) ([]Column, error) {
	t, err := m.Table(ctx, name)
	if err != nil {
		return nil, err
	}
	return t.Columns, nil
}

// TableColumnNames returns one table's column names by name, case-insensitively.
func (m *Manager) TableColumnNames(ctx context.Context, name string) ([]string, error) {
	cols, err := m.TableColumns(ctx, name)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names, nil
}

// TableIndexes returns one table's indexes by name, case-insensitively.
func (m *Manager) TableIndexes(ctx context.Context, name string) ([]Index, error) {
	t, err := m.Table(ctx, name)
	if err != nil {
		return nil, err
	}
	return t.Indexes, nil
}

// TableIndexNames returns one table's index names by name, case-insensitively.
func (m *Manager) TableIndexNames(ctx context.Context, name string) ([]string, error) {
	idxs, err := m.TableIndexes(ctx, name)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(idxs))
	for i, idx := range idxs {
		names[i] = idx.Name
	}
	return names, nil
}

// TableForeignKeys returns one table's foreign keys by name, case-insensitively.
func (m *Manager) TableForeignKeys(ctx context.Context, name string) ([]ForeignKey, error) {
	t, err := m.Table(ctx, name)
	if err != nil {
		return nil, err
	}
	return t.ForeignKeys, nil
}

// TableForeignKeyNames returns one table's foreign key names by name, case-insensitively.
func (m *Manager) TableForeignKeyNames(ctx context.Context, name string) ([]string, error) {
	fks, err := m.TableForeignKeys(ctx, name)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(fks))
	for i, fk := range fks {
		names[i] = fk.Name
	}
	return names, nil
}

// Contains reports whether the schema has a table or view named name,
// case-insensitively, bypassing the cache and re-querying the database
// when refresh is true.
func (m *Manager) Contains(ctx context.Context, name string, refresh bool) (bool, error) {
	m.mu.Lock()
	if refresh {
		m.reset()
	}
	err := m.ensureLoaded(ctx)
	if err != nil {
		m.mu.Unlock()
		return false, err
	}
	fold := cases.Fold()
	target := fold.String(name)
	for tableName := range m.cache.tables {
		if fold.String(tableName) == target {
			m.mu.Unlock()
			return true, nil
		}
	}
	for viewName := range m.cache.views {
		if fold.String(viewName) == target {
			m.mu.Unlock()
			return true, nil
		}
	}
	m.mu.Unlock()
	return false, nil
}

// ListViews returns every view's description.
func (m *Manager) ListViews(ctx context.Context) ([]View, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	out := make([]View, 0, len(m.cache.views))
	for _, v := range m.cache.views {
		out = append(out, v)
	}
	return out, nil
}

// ListViewNames returns every view's name, loading and caching them on
// first call.
func (m *Manager) ListViewNames(ctx context.Context) ([]string, error) {
	views, err := m.ListViews(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(views))
	for i, v := range views {
		names[i] = v.Name
	}
	return names, nil
}

// ListDatabases delegates straight to the platform; database names are
// cheap to enumerate and rarely worth caching.
func (m *Manager) ListDatabases(ctx context.Context) ([]string, error) {
	return m.platform.Databases(ctx, m.db)
}

// QuoteIdentifier quotes name per the platform's rules, returning name
// unchanged when it already begins with the platform's quote character.
func (m *Manager) QuoteIdentifier(name string) string {
	if strings.HasPrefix(name, string(m.platform.IdentifierQuoteChar())) {
		return name
	}
	return m.platform.QuoteIdentifier(name)
}
