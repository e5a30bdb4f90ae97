package monetdbe

import (
	"database/sql/driver"
	"io"
	"math"
	"math/big"
	"reflect"
	"time"
)

// Rows implements driver.Rows by walking a Cursor forward.
type Rows struct {
	cursor    *Cursor
	stmt      *PreparedStatement
	closed    bool
	closeStmt bool // Whether to close the statement when rows are closed
}

// Cursor exposes the scrollable result behind the rows, or nil when the
// statement produced none.
func (r *Rows) Cursor() *Cursor {
	return r.cursor
}

// Columns returns the column names
func (r *Rows) Columns() []string {
	if r.cursor == nil {
		return nil
	}
	return r.cursor.Columns()
}

// Close closes the rows iterator
func (r *Rows) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	var err error
	if r.cursor != nil && !r.cursor.closed {
		if r.stmt != nil && !r.closeStmt {
			// A prepared database/sql Stmt outlives its Rows, so closing
			// them never triggers close-on-completion.
			err = r.cursor.close(false)
			if r.stmt.result == r.cursor {
				r.stmt.result = nil
			}
		} else {
			err = r.cursor.Close()
		}
	}

	// Close statement if we own it
	if r.closeStmt && r.stmt != nil {
		if serr := r.stmt.Close(); err == nil {
			err = serr
		}
	}
	return err
}

// Next fetches the next row
func (r *Rows) Next(dest []driver.Value) error {
	if r.closed || r.cursor == nil {
		return io.EOF
	}
	ok, err := r.cursor.Next()
	if err != nil {
		return err
	}
	if !ok {
		return io.EOF
	}

	row := r.cursor.curRow - 1
	for i := 0; i < len(dest) && i < len(r.cursor.columns); i++ {
		v, _, err := r.cursor.columns[i].objectAt(row)
		if err != nil {
			return err
		}
		dest[i] = driverValue(v)
	}
	return nil
}

// driverValue narrows a cell value to the types database/sql scans from.
// Exact numbers wider than int64 travel as their decimal text.
func driverValue(v interface{}) driver.Value {
	switch x := v.(type) {
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint64:
		if x > math.MaxInt64 {
			return new(big.Int).SetUint64(x).String()
		}
		return int64(x)
	case float32:
		return float64(x)
	case *big.Int:
		return x.String()
	case Decimal:
		return x.String()
	case Date:
		return x.Timestamp()
	case Time:
		return x.On(Date{Year: 0, Month: time.January, Day: 1})
	}
	return v
}

func (r *Rows) column(index int) *column {
	if r.cursor == nil || index < 0 || index >= len(r.cursor.columns) {
		return nil
	}
	return r.cursor.columns[index]
}

// ColumnTypeScanType returns the Go type suitable for scanning into
func (r *Rows) ColumnTypeScanType(index int) reflect.Type {
	col := r.column(index)
	if col == nil {
		return reflect.TypeOf(new(interface{})).Elem()
	}
	switch {
	case col.decimalStorage() || col.typ == TypeInt128:
		return reflect.TypeOf("") // String preserves decimal precision
	case col.typ.isInteger():
		return reflect.TypeOf(int64(0))
	}
	switch col.typ {
	case TypeBool:
		return reflect.TypeOf(false)
	case TypeFloat, TypeDouble:
		return reflect.TypeOf(float64(0))
	case TypeString:
		return reflect.TypeOf("")
	case TypeBlob:
		return reflect.TypeOf([]byte{})
	case TypeDate, TypeTime, TypeTimestamp:
		return reflect.TypeOf(time.Time{})
	}
	return reflect.TypeOf(new(interface{})).Elem()
}

// ColumnTypeDatabaseTypeName returns the database type name
func (r *Rows) ColumnTypeDatabaseTypeName(index int) string {
	col := r.column(index)
	if col == nil {
		return ""
	}
	return col.databaseTypeName()
}

// ColumnTypeLength returns the length of variable-length column types
func (r *Rows) ColumnTypeLength(index int) (int64, bool) {
	col := r.column(index)
	if col == nil {
		return 0, false
	}
	switch col.typ {
	case TypeString, TypeBlob:
		if col.digits > 0 {
			return int64(col.digits), true
		}
		return math.MaxInt64, true
	}
	return 0, false
}

// ColumnTypeNullable reports whether the column may be null. The engine
// does not say, so the answer is always unknown.
func (r *Rows) ColumnTypeNullable(index int) (nullable, ok bool) {
	return true, false
}

// ColumnTypePrecisionScale returns precision and scale for decimal types
func (r *Rows) ColumnTypePrecisionScale(index int) (precision, scale int64, ok bool) {
	col := r.column(index)
	if col == nil || !col.decimalStorage() {
		return 0, 0, false
	}
	return int64(col.precision()), int64(col.scale), true
}

// Ensure Rows implements the required interfaces
var (
	_ driver.Rows                           = (*Rows)(nil)
	_ driver.RowsColumnTypeScanType         = (*Rows)(nil)
	_ driver.RowsColumnTypeDatabaseTypeName = (*Rows)(nil)
	_ driver.RowsColumnTypeLength           = (*Rows)(nil)
	_ driver.RowsColumnTypeNullable         = (*Rows)(nil)
	_ driver.RowsColumnTypePrecisionScale   = (*Rows)(nil)
)
