package monetdbe

import (
	"fmt"
	"math"
	"math/big"
	"net/url"
	"reflect"
	"strings"
	"time"
)

// ColumnType is the native engine's type tag for a column or parameter.
// The numeric values match the engine's monetdbe_types enumeration.
type ColumnType int32

const (
	TypeBool ColumnType = iota
	TypeInt8
	TypeInt16
	TypeInt32
	TypeInt64
	TypeInt128
	TypeSize
	TypeFloat
	TypeDouble
	TypeString
	TypeBlob
	TypeDate
	TypeTime
	TypeTimestamp
	TypeUnknown
)

var columnTypeNames = [...]string{
	TypeBool:      "bool",
	TypeInt8:      "int8",
	TypeInt16:     "int16",
	TypeInt32:     "int32",
	TypeInt64:     "int64",
	TypeInt128:    "int128",
	TypeSize:      "size_t",
	TypeFloat:     "float",
	TypeDouble:    "double",
	TypeString:    "str",
	TypeBlob:      "blob",
	TypeDate:      "date",
	TypeTime:      "time",
	TypeTimestamp: "timestamp",
	TypeUnknown:   "unknown",
}

func (t ColumnType) String() string {
	if t >= 0 && int(t) < len(columnTypeNames) {
		return columnTypeNames[t]
	}
	return fmt.Sprintf("ColumnType(%d)", int32(t))
}

// valid reports whether t names a concrete native type.
func (t ColumnType) valid() bool {
	return t >= TypeBool && t < TypeUnknown
}

func (t ColumnType) isInteger() bool {
	return t >= TypeInt8 && t <= TypeSize
}

// SQLType is a standard relational type code. The values follow the
// java.sql.Types numbering used by JDBC and ODBC tooling.
type SQLType int32

const (
	SQLBit                   SQLType = -7
	SQLTinyInt               SQLType = -6
	SQLSmallInt              SQLType = 5
	SQLInteger               SQLType = 4
	SQLBigInt                SQLType = -5
	SQLFloat                 SQLType = 6
	SQLReal                  SQLType = 7
	SQLDouble                SQLType = 8
	SQLNumeric               SQLType = 2
	SQLDecimal               SQLType = 3
	SQLChar                  SQLType = 1
	SQLVarchar               SQLType = 12
	SQLLongVarchar           SQLType = -1
	SQLDate                  SQLType = 91
	SQLTime                  SQLType = 92
	SQLTimestamp             SQLType = 93
	SQLBinary                SQLType = -2
	SQLVarBinary             SQLType = -3
	SQLLongVarBinary         SQLType = -4
	SQLNull                  SQLType = 0
	SQLOther                 SQLType = 1111
	SQLDistinct              SQLType = 2001
	SQLStruct                SQLType = 2002
	SQLArray                 SQLType = 2003
	SQLBlob                  SQLType = 2004
	SQLClob                  SQLType = 2005
	SQLRef                   SQLType = 2006
	SQLNClob                 SQLType = 2011
	SQLBoolean               SQLType = 16
	SQLNChar                 SQLType = -15
	SQLNVarchar              SQLType = -9
	SQLLongNVarchar          SQLType = -16
	SQLTimeWithTimezone      SQLType = 2013
	SQLTimestampWithTimezone SQLType = 2014
)

// String returns the standard name of the SQL type.
func (t SQLType) String() string {
	switch t {
	case SQLBit:
		return "BIT"
	case SQLTinyInt:
		return "TINYINT"
	case SQLSmallInt:
		return "SMALLINT"
	case SQLInteger:
		return "INTEGER"
	case SQLBigInt:
		return "BIGINT"
	case SQLFloat:
		return "FLOAT"
	case SQLReal:
		return "REAL"
	case SQLDouble:
		return "DOUBLE"
	case SQLNumeric:
		return "NUMERIC"
	case SQLDecimal:
		return "DECIMAL"
	case SQLChar:
		return "CHAR"
	case SQLVarchar:
		return "VARCHAR"
	case SQLLongVarchar:
		return "LONGVARCHAR"
	case SQLDate:
		return "DATE"
	case SQLTime:
		return "TIME"
	case SQLTimestamp:
		return "TIMESTAMP"
	case SQLBinary:
		return "BINARY"
	case SQLVarBinary:
		return "VARBINARY"
	case SQLLongVarBinary:
		return "LONGVARBINARY"
	case SQLNull:
		return "NULL"
	case SQLOther:
		return "OTHER"
	case SQLDistinct:
		return "DISTINCT"
	case SQLStruct:
		return "STRUCT"
	case SQLArray:
		return "ARRAY"
	case SQLBlob:
		return "BLOB"
	case SQLClob:
		return "CLOB"
	case SQLRef:
		return "REF"
	case SQLNClob:
		return "NCLOB"
	case SQLBoolean:
		return "BOOLEAN"
	case SQLNChar:
		return "NCHAR"
	case SQLNVarchar:
		return "NVARCHAR"
	case SQLLongNVarchar:
		return "LONGNVARCHAR"
	case SQLTimeWithTimezone:
		return "TIME_WITH_TIMEZONE"
	case SQLTimestampWithTimezone:
		return "TIMESTAMP_WITH_TIMEZONE"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int32(t))
	}
}

func isCharTarget(t SQLType) bool {
	switch t {
	case SQLChar, SQLVarchar, SQLLongVarchar, SQLNChar, SQLNVarchar, SQLLongNVarchar:
		return true
	}
	return false
}

func isClobTarget(t SQLType) bool {
	return t == SQLClob || t == SQLNClob
}

func isNumericTarget(t SQLType) bool {
	switch t {
	case SQLTinyInt, SQLSmallInt, SQLInteger, SQLBigInt,
		SQLReal, SQLFloat, SQLDouble, SQLDecimal, SQLNumeric:
		return true
	}
	return false
}

func isBooleanTarget(t SQLType) bool {
	return t == SQLBit || t == SQLBoolean
}

func isBinaryTarget(t SQLType) bool {
	switch t {
	case SQLBinary, SQLVarBinary, SQLLongVarBinary, SQLBlob:
		return true
	}
	return false
}

// HostKind is the closed set of Go value kinds a parameter can be bound
// from, and that a column can be read as by default.
type HostKind int

const (
	HostNull HostKind = iota
	HostBool
	HostInt8
	HostInt16
	HostInt32
	HostInt64
	HostFloat32
	HostFloat64
	HostDecimal
	HostBigInt
	HostString
	HostBytes
	HostDate
	HostTime
	HostTimestamp
	HostURL
	HostClob
)

var hostKindNames = [...]string{
	HostNull:      "null",
	HostBool:      "bool",
	HostInt8:      "int8",
	HostInt16:     "int16",
	HostInt32:     "int32",
	HostInt64:     "int64",
	HostFloat32:   "float32",
	HostFloat64:   "float64",
	HostDecimal:   "decimal",
	HostBigInt:    "big integer",
	HostString:    "string",
	HostBytes:     "bytes",
	HostDate:      "date",
	HostTime:      "time",
	HostTimestamp: "timestamp",
	HostURL:       "url",
	HostClob:      "character stream",
}

func (k HostKind) String() string {
	if k >= 0 && int(k) < len(hostKindNames) {
		return hostKindNames[k]
	}
	return fmt.Sprintf("HostKind(%d)", int(k))
}

var hostKindTypes = [...]reflect.Type{
	HostNull:      nil,
	HostBool:      reflect.TypeOf(false),
	HostInt8:      reflect.TypeOf(int8(0)),
	HostInt16:     reflect.TypeOf(int16(0)),
	HostInt32:     reflect.TypeOf(int32(0)),
	HostInt64:     reflect.TypeOf(int64(0)),
	HostFloat32:   reflect.TypeOf(float32(0)),
	HostFloat64:   reflect.TypeOf(float64(0)),
	HostDecimal:   reflect.TypeOf(Decimal{}),
	HostBigInt:    reflect.TypeOf((*big.Int)(nil)),
	HostString:    reflect.TypeOf(""),
	HostBytes:     reflect.TypeOf([]byte(nil)),
	HostDate:      reflect.TypeOf(Date{}),
	HostTime:      reflect.TypeOf(Time{}),
	HostTimestamp: reflect.TypeOf(time.Time{}),
	HostURL:       reflect.TypeOf((*url.URL)(nil)),
	HostClob:      reflect.TypeOf((*Clob)(nil)),
}

// GoType returns the Go type values of kind k are represented with.
func (k HostKind) GoType() reflect.Type {
	if k >= 0 && int(k) < len(hostKindTypes) {
		return hostKindTypes[k]
	}
	return nil
}

// ColumnTypeToSQLType maps a native column type to its SQL type.
func ColumnTypeToSQLType(t ColumnType) (SQLType, error) {
	switch t {
	case TypeBool:
		return SQLBoolean, nil
	case TypeInt8:
		return SQLTinyInt, nil
	case TypeInt16:
		return SQLSmallInt, nil
	case TypeInt32:
		return SQLInteger, nil
	case TypeInt64, TypeSize:
		return SQLBigInt, nil
	case TypeInt128:
		return SQLNumeric, nil
	case TypeFloat:
		return SQLReal, nil
	case TypeDouble:
		return SQLDouble, nil
	case TypeString:
		return SQLVarchar, nil
	case TypeBlob:
		return SQLBlob, nil
	case TypeDate:
		return SQLDate, nil
	case TypeTime:
		return SQLTime, nil
	case TypeTimestamp:
		return SQLTimestamp, nil
	}
	return 0, newError(CodeUnsupportedType, "unsupported column type %s", t)
}

// SQLTypeToColumnType maps an SQL type to the native type a value of that
// type is bound as. Several SQL types fold onto one native type.
func SQLTypeToColumnType(t SQLType) (ColumnType, error) {
	switch t {
	case SQLBit, SQLBoolean:
		return TypeBool, nil
	case SQLTinyInt:
		return TypeInt8, nil
	case SQLSmallInt:
		return TypeInt16, nil
	case SQLInteger:
		return TypeInt32, nil
	case SQLBigInt, SQLDecimal:
		return TypeInt64, nil
	case SQLNumeric:
		return TypeInt128, nil
	case SQLReal:
		return TypeFloat, nil
	case SQLFloat, SQLDouble:
		return TypeDouble, nil
	case SQLChar, SQLVarchar, SQLLongVarchar, SQLNChar, SQLNVarchar, SQLLongNVarchar, SQLClob, SQLNClob:
		return TypeString, nil
	case SQLBinary, SQLVarBinary, SQLLongVarBinary, SQLBlob:
		return TypeBlob, nil
	case SQLDate:
		return TypeDate, nil
	case SQLTime, SQLTimeWithTimezone:
		return TypeTime, nil
	case SQLTimestamp, SQLTimestampWithTimezone:
		return TypeTimestamp, nil
	case SQLNull:
		return TypeUnknown, nil
	}
	return TypeUnknown, newError(CodeUnsupportedType, "unsupported SQL type %s", t)
}

// DefaultHostKind returns the Go value kind an SQL type is read as when
// the caller does not ask for a specific one.
func DefaultHostKind(t SQLType) (HostKind, error) {
	switch t {
	case SQLBit, SQLBoolean:
		return HostBool, nil
	case SQLTinyInt:
		return HostInt8, nil
	case SQLSmallInt:
		return HostInt16, nil
	case SQLInteger:
		return HostInt32, nil
	case SQLBigInt:
		return HostInt64, nil
	case SQLReal:
		return HostFloat32, nil
	case SQLFloat, SQLDouble:
		return HostFloat64, nil
	case SQLDecimal, SQLNumeric:
		return HostDecimal, nil
	case SQLChar, SQLVarchar, SQLLongVarchar, SQLNChar, SQLNVarchar, SQLLongNVarchar, SQLClob, SQLNClob:
		return HostString, nil
	case SQLBinary, SQLVarBinary, SQLLongVarBinary, SQLBlob:
		return HostBytes, nil
	case SQLDate:
		return HostDate, nil
	case SQLTime, SQLTimeWithTimezone:
		return HostTime, nil
	case SQLTimestamp, SQLTimestampWithTimezone:
		return HostTimestamp, nil
	case SQLNull:
		return HostNull, nil
	}
	return HostNull, newError(CodeUnsupportedType, "unsupported SQL type %s", t)
}

// DefaultSQLType returns the SQL type a value of kind k binds as when no
// target type is given.
func DefaultSQLType(k HostKind) SQLType {
	switch k {
	case HostBool:
		return SQLBoolean
	case HostInt8:
		return SQLTinyInt
	case HostInt16:
		return SQLSmallInt
	case HostInt32:
		return SQLInteger
	case HostInt64, HostBigInt:
		return SQLBigInt
	case HostFloat32:
		return SQLReal
	case HostFloat64:
		return SQLDouble
	case HostDecimal:
		return SQLDecimal
	case HostString, HostURL:
		return SQLVarchar
	case HostClob:
		return SQLClob
	case HostBytes:
		return SQLVarBinary
	case HostDate:
		return SQLDate
	case HostTime:
		return SQLTime
	case HostTimestamp:
		return SQLTimestamp
	}
	return SQLNull
}

// IsConvertible reports whether a value of kind k may be bound to a
// parameter of type target.
func IsConvertible(k HostKind, target SQLType) bool {
	if _, err := SQLTypeToColumnType(target); err != nil {
		return false
	}
	text := isCharTarget(target)
	switch k {
	case HostNull:
		return true
	case HostBool, HostInt8, HostInt16, HostInt32, HostInt64, HostFloat32, HostFloat64, HostDecimal:
		return isNumericTarget(target) || isBooleanTarget(target) || text
	case HostBigInt:
		return target == SQLBigInt || text
	case HostString:
		return text || isClobTarget(target) || isNumericTarget(target) || isBooleanTarget(target) ||
			target == SQLDate || target == SQLTime || target == SQLTimestamp ||
			target == SQLTimeWithTimezone || target == SQLTimestampWithTimezone
	case HostBytes:
		return isBinaryTarget(target)
	case HostDate:
		return target == SQLDate || target == SQLTimestamp || target == SQLTimestampWithTimezone ||
			text || isClobTarget(target)
	case HostTime:
		return target == SQLTime || target == SQLTimeWithTimezone || text || isClobTarget(target)
	case HostTimestamp:
		return target == SQLDate || target == SQLTime || target == SQLTimeWithTimezone ||
			target == SQLTimestamp || target == SQLTimestampWithTimezone || text || isClobTarget(target)
	case HostURL:
		return text
	case HostClob:
		return text || isClobTarget(target)
	}
	return false
}

const unboundedWidth = math.MaxInt32

// DisplayWidth returns the maximum number of characters needed to render a
// value of type t.
func DisplayWidth(t SQLType) (int, error) {
	switch t {
	case SQLBit, SQLBoolean:
		return 5, nil
	case SQLTinyInt:
		return 4, nil
	case SQLSmallInt:
		return 6, nil
	case SQLInteger:
		return 11, nil
	case SQLBigInt:
		return 20, nil
	case SQLReal:
		return 15, nil
	case SQLFloat, SQLDouble:
		return 24, nil
	case SQLDecimal, SQLNumeric:
		return 41, nil
	case SQLDate:
		return 10, nil
	case SQLTime:
		return 15, nil
	case SQLTimeWithTimezone:
		return 21, nil
	case SQLTimestamp:
		return 26, nil
	case SQLTimestampWithTimezone:
		return 32, nil
	case SQLChar, SQLVarchar, SQLLongVarchar, SQLNChar, SQLNVarchar, SQLLongNVarchar, SQLClob, SQLNClob,
		SQLBinary, SQLVarBinary, SQLLongVarBinary, SQLBlob:
		return unboundedWidth, nil
	case SQLNull:
		return 4, nil
	}
	return 0, newError(CodeUnsupportedType, "unsupported SQL type %s", t)
}

// IsSigned reports whether values of the native type named typeName, which
// is exposed as SQL type t, carry a sign. The oid and ptr aliases share
// BIGINT with signed integers but are unsigned.
func IsSigned(t SQLType, typeName string) bool {
	switch t {
	case SQLBigInt:
		switch strings.ToLower(typeName) {
		case "oid", "ptr":
			return false
		}
		return true
	case SQLTinyInt, SQLSmallInt, SQLInteger, SQLReal, SQLFloat, SQLDouble, SQLDecimal, SQLNumeric:
		return true
	}
	return false
}

// IsCaseSensitive reports whether comparisons on the native type named
// typeName, exposed as SQL type t, are case sensitive. inet and uuid are
// stored as VARCHAR but compare case-insensitively.
func IsCaseSensitive(t SQLType, typeName string) bool {
	switch t {
	case SQLChar, SQLLongVarchar, SQLClob, SQLNChar, SQLLongNVarchar, SQLNClob:
		return true
	case SQLVarchar, SQLNVarchar:
		switch strings.ToLower(typeName) {
		case "inet", "uuid":
			return false
		}
		return true
	}
	return false
}
