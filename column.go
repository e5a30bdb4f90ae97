package monetdbe

import (
	"bytes"
	"encoding/hex"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"golang.org/x/exp/constraints"
)

// column reads typed values out of one materialized result column. The
// null mask decides nullness; cell values are never compared against a
// sentinel here, so a stored zero is always a zero.
type column struct {
	name     string
	typ      ColumnType
	typeName string
	digits   int32
	scale    int32
	values   interface{}
	nulls    []bool
	rows     int
}

func newColumn(d ColumnData, rows int) (*column, error) {
	n, ok := valuesLen(d.Type, d.Values)
	if !ok {
		return nil, newError(CodeUnsupportedType, "column %q: %s values stored as %T", d.Name, d.Type, d.Values)
	}
	if n != rows {
		return nil, newError(CodeEngine, "column %q holds %d values, expected %d", d.Name, n, rows)
	}
	nulls := d.Nulls
	if nulls == nil {
		nulls = make([]bool, rows)
	} else if len(nulls) != rows {
		return nil, newError(CodeEngine, "column %q null mask holds %d entries, expected %d", d.Name, len(nulls), rows)
	}
	typeName := d.TypeName
	if typeName == "" {
		typeName = d.Type.String()
	}
	return &column{
		name:     d.Name,
		typ:      d.Type,
		typeName: typeName,
		digits:   d.Digits,
		scale:    d.Scale,
		values:   d.Values,
		nulls:    nulls,
		rows:     rows,
	}, nil
}

func valuesLen(t ColumnType, values interface{}) (int, bool) {
	switch t {
	case TypeBool:
		v, ok := values.([]bool)
		return len(v), ok
	case TypeInt8:
		v, ok := values.([]int8)
		return len(v), ok
	case TypeInt16:
		v, ok := values.([]int16)
		return len(v), ok
	case TypeInt32:
		v, ok := values.([]int32)
		return len(v), ok
	case TypeInt64:
		v, ok := values.([]int64)
		return len(v), ok
	case TypeInt128:
		v, ok := values.([]*big.Int)
		return len(v), ok
	case TypeSize:
		v, ok := values.([]uint64)
		return len(v), ok
	case TypeFloat:
		v, ok := values.([]float32)
		return len(v), ok
	case TypeDouble:
		v, ok := values.([]float64)
		return len(v), ok
	case TypeString:
		v, ok := values.([]string)
		return len(v), ok
	case TypeBlob:
		v, ok := values.([][]byte)
		return len(v), ok
	case TypeDate:
		v, ok := values.([]Date)
		return len(v), ok
	case TypeTime:
		v, ok := values.([]Time)
		return len(v), ok
	case TypeTimestamp:
		v, ok := values.([]time.Time)
		return len(v), ok
	}
	return 0, false
}

// sqlType is the SQL type reported for the column. Integer storage that
// carries a scale, or is declared decimal, is exposed as DECIMAL.
func (c *column) sqlType() SQLType {
	if c.typ.isInteger() && (c.scale > 0 || strings.EqualFold(c.typeName, "decimal")) {
		return SQLDecimal
	}
	t, err := ColumnTypeToSQLType(c.typ)
	if err != nil {
		return SQLOther
	}
	return t
}

func (c *column) decimalStorage() bool {
	return c.sqlType() == SQLDecimal
}

func (c *column) isNull(row int) (bool, error) {
	if row < 0 || row >= c.rows {
		return false, newError(CodeIndexOutOfRange, "row %d out of range [0,%d) in column %q", row, c.rows, c.name)
	}
	return c.nulls[row], nil
}

func (c *column) readError(kind HostKind) error {
	return newError(CodeConversionNotAllowed, "cannot read %s column %q as %s", c.typeName, c.name, kind)
}

func (c *column) parseError(kind HostKind, s string, cause error) error {
	e := newError(CodeConversionNotAllowed, "cannot read %q in column %q as %s", s, c.name, kind)
	e.cause = cause
	return e
}

// integer returns the cell of a fixed-width integer or boolean column.
func (c *column) integer(row int) (int64, bool) {
	switch v := c.values.(type) {
	case []bool:
		if v[row] {
			return 1, true
		}
		return 0, true
	case []int8:
		return int64(v[row]), true
	case []int16:
		return int64(v[row]), true
	case []int32:
		return int64(v[row]), true
	case []int64:
		return v[row], true
	case []uint64:
		return int64(v[row]), true
	}
	return 0, false
}

// exact returns the cell of any integer column as a Decimal, applying the
// column scale.
func (c *column) exact(row int) (Decimal, bool) {
	switch v := c.values.(type) {
	case []*big.Int:
		return NewDecimal(v[row], c.scale), true
	case []uint64:
		return NewDecimal(new(big.Int).SetUint64(v[row]), c.scale), true
	}
	if i, ok := c.integer(row); ok {
		return NewDecimalFromInt64(i, c.scale), true
	}
	return Decimal{}, false
}

var mask64 = new(big.Int).SetUint64(math.MaxUint64)

// low64 returns the low 64 bits of x's two's complement form.
func low64(x *big.Int) int64 {
	return int64(new(big.Int).And(x, mask64).Uint64())
}

// truncate converts f toward zero, saturating at the int64 range.
func truncate[F constraints.Float](f F) int64 {
	x := float64(f)
	switch {
	case math.IsNaN(x):
		return 0
	case x >= math.MaxInt64:
		return math.MaxInt64
	case x <= math.MinInt64:
		return math.MinInt64
	}
	return int64(x)
}

// narrow keeps the low bits of v that fit in T.
func narrow[T constraints.Signed](v int64) T {
	return T(v)
}

func (c *column) int64At(row int) (int64, bool, error) {
	if null, err := c.isNull(row); err != nil || null {
		return 0, null, err
	}
	if c.scale > 0 {
		if d, ok := c.exact(row); ok {
			return low64(d.Int()), false, nil
		}
	}
	if i, ok := c.integer(row); ok {
		return i, false, nil
	}
	switch v := c.values.(type) {
	case []*big.Int:
		return low64(v[row]), false, nil
	case []float32:
		return truncate(v[row]), false, nil
	case []float64:
		return truncate(v[row]), false, nil
	case []string:
		d, err := ParseDecimal(v[row])
		if err != nil {
			return 0, false, c.parseError(HostInt64, v[row], err)
		}
		return low64(d.Int()), false, nil
	}
	return 0, false, c.readError(HostInt64)
}

func (c *column) float64At(row int) (float64, bool, error) {
	if null, err := c.isNull(row); err != nil || null {
		return 0, null, err
	}
	switch v := c.values.(type) {
	case []float32:
		return float64(v[row]), false, nil
	case []float64:
		return v[row], false, nil
	case []string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v[row]), 64)
		if err != nil {
			return 0, false, c.parseError(HostFloat64, v[row], err)
		}
		return f, false, nil
	}
	if d, ok := c.exact(row); ok {
		return d.Float64(), false, nil
	}
	return 0, false, c.readError(HostFloat64)
}

func (c *column) float32At(row int) (float32, bool, error) {
	if v, ok := c.values.([]float32); ok {
		if null, err := c.isNull(row); err != nil || null {
			return 0, null, err
		}
		return v[row], false, nil
	}
	f, null, err := c.float64At(row)
	return float32(f), null, err
}

func (c *column) decimalAt(row int) (Decimal, bool, error) {
	if null, err := c.isNull(row); err != nil || null {
		return Decimal{}, null, err
	}
	if d, ok := c.exact(row); ok {
		return d, false, nil
	}
	switch v := c.values.(type) {
	case []float32:
		return c.floatDecimal(float64(v[row]))
	case []float64:
		return c.floatDecimal(v[row])
	case []string:
		d, err := ParseDecimal(v[row])
		if err != nil {
			return Decimal{}, false, c.parseError(HostDecimal, v[row], err)
		}
		return d, false, nil
	}
	return Decimal{}, false, c.readError(HostDecimal)
}

func (c *column) floatDecimal(f float64) (Decimal, bool, error) {
	d, err := DecimalFromFloat64(f)
	if err != nil {
		return Decimal{}, false, c.parseError(HostDecimal, strconv.FormatFloat(f, 'g', -1, 64), err)
	}
	return d, false, nil
}

func (c *column) bigIntAt(row int) (*big.Int, bool, error) {
	d, null, err := c.decimalAt(row)
	if err != nil || null {
		return nil, null, err
	}
	return d.Int(), false, nil
}

func (c *column) boolAt(row int) (bool, bool, error) {
	if null, err := c.isNull(row); err != nil || null {
		return false, null, err
	}
	switch v := c.values.(type) {
	case []bool:
		return v[row], false, nil
	case []float32:
		return v[row] != 0, false, nil
	case []float64:
		return v[row] != 0, false, nil
	case []string:
		b, err := strconv.ParseBool(strings.TrimSpace(v[row]))
		if err != nil {
			return false, false, c.parseError(HostBool, v[row], err)
		}
		return b, false, nil
	}
	if d, ok := c.exact(row); ok {
		return d.Sign() != 0, false, nil
	}
	return false, false, c.readError(HostBool)
}

func (c *column) stringAt(row int) (string, bool, error) {
	if null, err := c.isNull(row); err != nil || null {
		return "", null, err
	}
	if c.scale > 0 {
		if d, ok := c.exact(row); ok {
			return d.String(), false, nil
		}
	}
	switch v := c.values.(type) {
	case []bool:
		return strconv.FormatBool(v[row]), false, nil
	case []uint64:
		return strconv.FormatUint(v[row], 10), false, nil
	case []*big.Int:
		return v[row].String(), false, nil
	case []float32:
		return strconv.FormatFloat(float64(v[row]), 'g', -1, 32), false, nil
	case []float64:
		return strconv.FormatFloat(v[row], 'g', -1, 64), false, nil
	case []string:
		return v[row], false, nil
	case [][]byte:
		return strings.ToUpper(hex.EncodeToString(v[row])), false, nil
	case []Date:
		return v[row].String(), false, nil
	case []Time:
		return v[row].String(), false, nil
	case []time.Time:
		return formatTimestamp(v[row]), false, nil
	}
	if i, ok := c.integer(row); ok {
		return strconv.FormatInt(i, 10), false, nil
	}
	return "", false, c.readError(HostString)
}

func (c *column) bytesAt(row int) ([]byte, bool, error) {
	if null, err := c.isNull(row); err != nil || null {
		return nil, null, err
	}
	switch v := c.values.(type) {
	case [][]byte:
		return bytes.Clone(v[row]), false, nil
	case []string:
		return []byte(v[row]), false, nil
	}
	return nil, false, c.readError(HostBytes)
}

func (c *column) dateAt(row int) (Date, bool, error) {
	if null, err := c.isNull(row); err != nil || null {
		return Date{}, null, err
	}
	switch v := c.values.(type) {
	case []Date:
		return v[row], false, nil
	case []time.Time:
		return DateOf(v[row]), false, nil
	case []string:
		d, err := ParseDate(v[row])
		if err != nil {
			return Date{}, false, c.parseError(HostDate, v[row], err)
		}
		return d, false, nil
	}
	return Date{}, false, c.readError(HostDate)
}

func (c *column) timeAt(row int) (Time, bool, error) {
	if null, err := c.isNull(row); err != nil || null {
		return Time{}, null, err
	}
	switch v := c.values.(type) {
	case []Time:
		return v[row], false, nil
	case []time.Time:
		return TimeOf(v[row]), false, nil
	case []string:
		t, err := ParseTime(v[row])
		if err != nil {
			return Time{}, false, c.parseError(HostTime, v[row], err)
		}
		return t, false, nil
	}
	return Time{}, false, c.readError(HostTime)
}

func (c *column) timestampAt(row int) (time.Time, bool, error) {
	if null, err := c.isNull(row); err != nil || null {
		return time.Time{}, null, err
	}
	switch v := c.values.(type) {
	case []time.Time:
		return v[row], false, nil
	case []Date:
		return v[row].Timestamp(), false, nil
	case []string:
		t, err := parseTimestamp(v[row])
		if err != nil {
			return time.Time{}, false, c.parseError(HostTimestamp, v[row], err)
		}
		return t, false, nil
	}
	return time.Time{}, false, c.readError(HostTimestamp)
}

// objectAt returns the cell in the Go type that matches the native type.
func (c *column) objectAt(row int) (interface{}, bool, error) {
	if null, err := c.isNull(row); err != nil || null {
		return nil, null, err
	}
	if c.decimalStorage() {
		d, _ := c.exact(row)
		return d, false, nil
	}
	switch v := c.values.(type) {
	case []bool:
		return v[row], false, nil
	case []int8:
		return v[row], false, nil
	case []int16:
		return v[row], false, nil
	case []int32:
		return v[row], false, nil
	case []int64:
		return v[row], false, nil
	case []*big.Int:
		return new(big.Int).Set(v[row]), false, nil
	case []uint64:
		return v[row], false, nil
	case []float32:
		return v[row], false, nil
	case []float64:
		return v[row], false, nil
	case []string:
		return v[row], false, nil
	case [][]byte:
		return bytes.Clone(v[row]), false, nil
	case []Date:
		return v[row], false, nil
	case []Time:
		return v[row], false, nil
	case []time.Time:
		return v[row], false, nil
	}
	return nil, false, newError(CodeUnsupportedType, "column %q: unexpected storage %T", c.name, c.values)
}
