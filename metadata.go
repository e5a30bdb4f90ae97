package monetdbe

import (
	"reflect"
	"strings"
)

// Nullability of a column or parameter.
type Nullability int

const (
	NoNulls         Nullability = 0
	Nullable        Nullability = 1
	NullableUnknown Nullability = 2
)

// ResultSetMetaData describes the columns of a Cursor. Column indexes are
// 1-based.
type ResultSetMetaData struct {
	columns []*column
}

func (m *ResultSetMetaData) column(col int) (*column, error) {
	if col < 1 || col > len(m.columns) {
		return nil, newError(CodeIndexOutOfRange, "column index %d out of range [1,%d]", col, len(m.columns))
	}
	return m.columns[col-1], nil
}

// ColumnCount returns the number of columns.
func (m *ResultSetMetaData) ColumnCount() int {
	return len(m.columns)
}

// ColumnName returns the name of column col.
func (m *ResultSetMetaData) ColumnName(col int) (string, error) {
	c, err := m.column(col)
	if err != nil {
		return "", err
	}
	return c.name, nil
}

// ColumnLabel is the same as ColumnName; the engine does not distinguish
// labels from names.
func (m *ResultSetMetaData) ColumnLabel(col int) (string, error) {
	return m.ColumnName(col)
}

// ColumnType returns the SQL type of column col.
func (m *ResultSetMetaData) ColumnType(col int) (SQLType, error) {
	c, err := m.column(col)
	if err != nil {
		return 0, err
	}
	return c.sqlType(), nil
}

// ColumnTypeName returns the engine's name for the type of column col.
func (m *ResultSetMetaData) ColumnTypeName(col int) (string, error) {
	c, err := m.column(col)
	if err != nil {
		return "", err
	}
	return c.typeName, nil
}

// NativeType returns the native column type of column col.
func (m *ResultSetMetaData) NativeType(col int) (ColumnType, error) {
	c, err := m.column(col)
	if err != nil {
		return TypeUnknown, err
	}
	return c.typ, nil
}

// ColumnDisplaySize returns the display width of the column's SQL type.
func (m *ResultSetMetaData) ColumnDisplaySize(col int) (int, error) {
	c, err := m.column(col)
	if err != nil {
		return 0, err
	}
	return DisplayWidth(c.sqlType())
}

// IsSigned reports whether the column holds signed numbers.
func (m *ResultSetMetaData) IsSigned(col int) (bool, error) {
	c, err := m.column(col)
	if err != nil {
		return false, err
	}
	return IsSigned(c.sqlType(), c.typeName), nil
}

// IsCaseSensitive reports whether comparisons on the column are case sensitive.
func (m *ResultSetMetaData) IsCaseSensitive(col int) (bool, error) {
	c, err := m.column(col)
	if err != nil {
		return false, err
	}
	return IsCaseSensitive(c.sqlType(), c.typeName), nil
}

// IsNullable always reports NullableUnknown; the engine does not say.
func (m *ResultSetMetaData) IsNullable(col int) (Nullability, error) {
	if _, err := m.column(col); err != nil {
		return NullableUnknown, err
	}
	return NullableUnknown, nil
}

// IsReadOnly always reports true.
func (m *ResultSetMetaData) IsReadOnly(col int) (bool, error) {
	if _, err := m.column(col); err != nil {
		return false, err
	}
	return true, nil
}

// Precision returns the declared digits of a decimal column, or the
// maximum number of significant digits for other numeric columns.
func (m *ResultSetMetaData) Precision(col int) (int, error) {
	c, err := m.column(col)
	if err != nil {
		return 0, err
	}
	return c.precision(), nil
}

// Scale returns the number of fractional digits of column col.
func (m *ResultSetMetaData) Scale(col int) (int, error) {
	c, err := m.column(col)
	if err != nil {
		return 0, err
	}
	return int(c.scale), nil
}

// ColumnGoType returns the Go type GetObject yields for column col.
func (m *ResultSetMetaData) ColumnGoType(col int) (reflect.Type, error) {
	c, err := m.column(col)
	if err != nil {
		return nil, err
	}
	return c.goType(), nil
}

func (c *column) precision() int {
	if c.digits > 0 {
		return int(c.digits)
	}
	switch c.typ {
	case TypeBool:
		return 1
	case TypeInt8:
		return 3
	case TypeInt16:
		return 5
	case TypeInt32:
		return 10
	case TypeInt64:
		return 19
	case TypeSize:
		return 20
	case TypeInt128:
		return 39
	case TypeFloat:
		return 7
	case TypeDouble:
		return 15
	case TypeDate:
		return 10
	case TypeTime:
		return 15
	case TypeTimestamp:
		return 26
	}
	return 0
}

func (c *column) goType() reflect.Type {
	if c.decimalStorage() {
		return HostDecimal.GoType()
	}
	switch c.typ {
	case TypeSize:
		return reflect.TypeOf(uint64(0))
	case TypeInt128:
		return HostBigInt.GoType()
	}
	t, err := ColumnTypeToSQLType(c.typ)
	if err != nil {
		return nil
	}
	k, err := DefaultHostKind(t)
	if err != nil {
		return nil
	}
	return k.GoType()
}

// databaseTypeName is the upper-case type name reported to database/sql.
func (c *column) databaseTypeName() string {
	return strings.ToUpper(c.typeName)
}
