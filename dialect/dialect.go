// Package dialect names the database engines dbal knows how to speak to.
//
// A dialect name is the stable key used throughout the module to select a
// platform and driver implementation: the connection registry looks drivers
// up by name, and platforms render dialect-specific SQL (identifier quoting,
// LIMIT/OFFSET encoding, type mappings) keyed off the same string.
package dialect

const (
	// MySQL identifies the MySQL/MariaDB dialect.
	MySQL = "mysql"
	// SQLite identifies the SQLite dialect.
	SQLite = "sqlite"
	// Postgres identifies the PostgreSQL dialect.
	Postgres = "postgres"
)
