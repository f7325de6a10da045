// Package types holds the symbolic column types the schema manager maps raw
// engine type strings onto, mirroring pydbal's types.py registry.
package types

import "github.com/syssam/dbal/dbalerr"

// Type is a symbolic, engine-independent column type name.
type Type string

// The symbolic types every platform's type mapping table resolves onto.
const (
	Array    Type = "array"
	Boolean  Type = "boolean"
	SmallInt Type = "smallint"
	Integer  Type = "integer"
	BigInt   Type = "bigint"
	Decimal  Type = "decimal"
	Float    Type = "float"
	String   Type = "string"
	Text     Type = "text"
	Binary   Type = "binary"
	Blob     Type = "blob"
	Date     Type = "date"
	Time     Type = "time"
	DateTime Type = "datetime"
	GUID     Type = "guid"
)

var known = map[Type]bool{
	Array: true, Boolean: true, SmallInt: true, Integer: true, BigInt: true,
	Decimal: true, Float: true, String: true, Text: true, Binary: true,
	Blob: true, Date: true, Time: true, DateTime: true, GUID: true,
}

// Lookup validates that name is a registered symbolic type, returning
// *dbalerr.TypesError if it is not.
func Lookup(name Type) (Type, error) {
	if !known[name] {
		return "", dbalerr.NewUnknownTypeError(string(name))
	}
	return name, nil
}
