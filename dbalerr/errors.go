// Package dbalerr is the error taxonomy shared by every dbal package.
//
// Each error kind follows the same shape: a typed struct carrying the
// offending detail for errors.As checks, NewXxxError constructors, and an
// IsXxxError predicate. Only ConnectionError is also backed by sentinel
// errors for plain errors.Is checks.
package dbalerr

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels usable with errors.Is against the ConnectionError values that
// report them.
var (
	ErrConnectionClosed        = errors.New("dbal: connection is closed")
	ErrNoActiveTransaction     = errors.New("dbal: no active transaction")
	ErrCommitRollbackOnly      = errors.New("dbal: cannot commit, transaction is marked rollback-only")
	ErrSavepointsNotSupported  = errors.New("dbal: platform does not support savepoints")
	ErrNestedSavepointsInTx    = errors.New("dbal: cannot alter nested-transaction-with-savepoints mode inside an active transaction")
	ErrUnknownDriver           = errors.New("dbal: unknown driver")
)

// ConnectionError reports a failure in connection lifecycle or transaction
// state management.
type ConnectionError struct {
	Op     string
	Detail string
	err    error
}

func (e *ConnectionError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("dbal: connection: %s: %s", e.Op, e.Detail)
	}
	return fmt.Sprintf("dbal: connection: %s", e.Op)
}

func (e *ConnectionError) Unwrap() error { return e.err }

func (e *ConnectionError) Is(target error) bool { return e.err != nil && errors.Is(e.err, target) }

func newConnectionError(op, detail string, sentinel error) *ConnectionError {
	return &ConnectionError{Op: op, Detail: detail, err: sentinel}
}

// NewUnknownDriverError reports that name is not registered in the driver registry.
func NewUnknownDriverError(name string, known []string) *ConnectionError {
	return newConnectionError("unknown_driver", fmt.Sprintf("%q (known: %s)", name, strings.Join(known, ", ")), ErrUnknownDriver)
}

// NewConnectionClosedError reports an operation attempted on a closed connection.
func NewConnectionClosedError() *ConnectionError {
	return newConnectionError("connection_closed", "", ErrConnectionClosed)
}

// NewNoActiveTransactionError reports commit/rollback with no open transaction.
func NewNoActiveTransactionError() *ConnectionError {
	return newConnectionError("no_active_transaction", "", ErrNoActiveTransaction)
}

// NewCommitFailedRollbackOnlyError reports a commit attempt on a rollback-only transaction.
func NewCommitFailedRollbackOnlyError() *ConnectionError {
	return newConnectionError("commit_failed_rollback_only", "", ErrCommitRollbackOnly)
}

// NewSavepointsNotSupportedError reports a savepoint operation against a platform without support.
func NewSavepointsNotSupportedError() *ConnectionError {
	return newConnectionError("savepoints_not_supported", "", ErrSavepointsNotSupported)
}

// NewMayNotAlterNestedTransactionWithSavepointsError reports a mode change attempted mid-transaction.
func NewMayNotAlterNestedTransactionWithSavepointsError() *ConnectionError {
	return newConnectionError("may_not_alter_nested_transaction_with_savepoints_in_transaction", "", ErrNestedSavepointsInTx)
}

// IsConnectionError reports whether err is (or wraps) a *ConnectionError.
func IsConnectionError(err error) bool {
	var e *ConnectionError
	return errors.As(err, &e)
}

// DriverError reports a failure surfaced by a driver, wrapping the underlying
// database/sql or database-specific error.
type DriverError struct {
	Driver string
	SQL    string
	Params []any
	err    error
}

func (e *DriverError) Error() string {
	if e.SQL != "" {
		if len(e.Params) > 0 {
			return fmt.Sprintf("dbal: driver %s: %v (sql=%q params=%v)", e.Driver, e.err, e.SQL, e.Params)
		}
		return fmt.Sprintf("dbal: driver %s: %v (sql=%q)", e.Driver, e.err, e.SQL)
	}
	return fmt.Sprintf("dbal: driver %s: %v", e.Driver, e.err)
}

func (e *DriverError) Unwrap() error { return e.err }

// NewDriverError wraps a bare connect/close/escape failure.
func NewDriverError(driver string, err error) *DriverError {
	return &DriverError{Driver: driver, err: err}
}

// NewExecuteError wraps a failure that occurred while executing sql with params.
func NewExecuteError(driver string, err error, sql string, params []any) *DriverError {
	return &DriverError{Driver: driver, SQL: sql, Params: params, err: err}
}

// IsDriverError reports whether err is (or wraps) a *DriverError.
func IsDriverError(err error) bool {
	var e *DriverError
	return errors.As(err, &e)
}

// PlatformError reports a failure in platform-level SQL rendering (LIMIT/OFFSET
// validation, isolation level mapping, type mapping).
type PlatformError struct {
	Op     string
	Detail string
}

func (e *PlatformError) Error() string {
	return fmt.Sprintf("dbal: platform: %s: %s", e.Op, e.Detail)
}

// NewNotSupportedError reports a platform method with no implementation for the dialect.
func NewNotSupportedError(method string) *PlatformError {
	return &PlatformError{Op: "not_supported", Detail: method}
}

// NewInvalidIsolationLevelError reports an isolation level the platform does not recognize.
func NewInvalidIsolationLevelError(level int) *PlatformError {
	return &PlatformError{Op: "invalid_isolation_level", Detail: fmt.Sprintf("%d", level)}
}

// NewInvalidOffsetError reports a negative LIMIT/OFFSET offset.
func NewInvalidOffsetError(offset int) *PlatformError {
	return &PlatformError{Op: "invalid_offset", Detail: fmt.Sprintf("%d", offset)}
}

// NewOffsetNotSupportedError reports an offset-only page request the platform cannot encode.
func NewOffsetNotSupportedError(platform string) *PlatformError {
	return &PlatformError{Op: "offset_not_supported", Detail: platform}
}

// NewUnknownColumnTypeError reports a raw column type string with no symbolic mapping.
func NewUnknownColumnTypeError(type_ string) *PlatformError {
	return &PlatformError{Op: "unknown_column_type", Detail: type_}
}

// IsPlatformError reports whether err is (or wraps) a *PlatformError.
func IsPlatformError(err error) bool {
	var e *PlatformError
	return errors.As(err, &e)
}

// StatementError reports a missing placeholder parameter.
type StatementError struct {
	Op     string
	Key    any
	Params map[any]any
}

func (e *StatementError) Error() string {
	return fmt.Sprintf("dbal: statement: %s: missing parameter %v", e.Op, e.Key)
}

// NewMissingPositionalParameterError reports an unfilled "?" placeholder.
func NewMissingPositionalParameterError(index int, params map[any]any) *StatementError {
	return &StatementError{Op: "missing_positional_parameter", Key: index, Params: params}
}

// NewMissingNamedParameterError reports an unfilled ":name" placeholder.
func NewMissingNamedParameterError(name string, params map[any]any) *StatementError {
	return &StatementError{Op: "missing_named_parameter", Key: name, Params: params}
}

// IsStatementError reports whether err is (or wraps) a *StatementError.
func IsStatementError(err error) bool {
	var e *StatementError
	return errors.As(err, &e)
}

// BuilderError reports a join-graph or alias inconsistency detected while
// rendering a SQLBuilder query.
type BuilderError struct {
	Op    string
	Alias string
	Known []string
}

func (e *BuilderError) Error() string {
	return fmt.Sprintf("dbal: builder: %s: alias %q (known: %s)", e.Op, e.Alias, strings.Join(e.Known, ", "))
}

// NewUnknownAliasError reports a join whose from-alias was never registered by a From/Insert/Update/Delete call.
func NewUnknownAliasError(alias string, known []string) *BuilderError {
	return &BuilderError{Op: "unknown_alias", Alias: alias, Known: known}
}

// NewNonUniqueAliasError reports a join target alias that collides with an already-registered one.
func NewNonUniqueAliasError(alias string, known []string) *BuilderError {
	return &BuilderError{Op: "non_unique_alias", Alias: alias, Known: known}
}

// IsBuilderError reports whether err is (or wraps) a *BuilderError.
func IsBuilderError(err error) bool {
	var e *BuilderError
	return errors.As(err, &e)
}

// TypesError reports an unknown symbolic column type name.
type TypesError struct {
	Name string
}

func (e *TypesError) Error() string { return fmt.Sprintf("dbal: types: unknown type %q", e.Name) }

// NewUnknownTypeError reports a symbolic type name absent from the type registry.
func NewUnknownTypeError(name string) *TypesError { return &TypesError{Name: name} }

// IsTypesError reports whether err is (or wraps) a *TypesError.
func IsTypesError(err error) bool {
	var e *TypesError
	return errors.As(err, &e)
}
