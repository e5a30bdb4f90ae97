package monetdbe

import (
	"bytes"
	"database/sql/driver"
	"io"
	"math"
	"math/big"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// MaxStreamLength is the largest character stream, in bytes, that can be
// bound as a parameter.
const MaxStreamLength = math.MaxInt32

// Clob is a character stream parameter. The stream is read in full when
// it is bound.
type Clob struct {
	r       io.Reader
	length  int64
	bounded bool
}

// NewClob wraps r; the whole stream is read.
func NewClob(r io.Reader) *Clob {
	return &Clob{r: r}
}

// NewClobN wraps r; at most length bytes are read.
func NewClobN(r io.Reader, length int64) *Clob {
	return &Clob{r: r, length: length, bounded: true}
}

func (c *Clob) readAll() (string, error) {
	limit := int64(MaxStreamLength) + 1
	if c.bounded {
		if c.length < 0 || c.length > MaxStreamLength {
			return "", newError(CodeInvalidLength, "invalid stream length %d", c.length)
		}
		limit = c.length
	}
	if c.r == nil {
		return "", nil
	}
	b, err := io.ReadAll(io.LimitReader(c.r, limit))
	if err != nil {
		return "", errors.Wrap(err, "read character stream")
	}
	if int64(len(b)) > MaxStreamLength {
		return "", newError(CodeInvalidLength, "character stream exceeds %d bytes", MaxStreamLength)
	}
	return string(b), nil
}

// hostValue is a parameter value normalized to one of the HostKinds. Only
// the field that belongs to kind is set.
type hostValue struct {
	kind HostKind
	b    bool
	i    int64
	f    float64
	dec  Decimal
	big  *big.Int
	s    string
	raw  []byte
	date Date
	tod  Time
	ts   time.Time
	clob *Clob
}

// classify sorts a Go value into a HostKind. Unsigned integers widen to
// the next signed kind; driver.Valuer implementations are unwrapped.
func classify(v interface{}) (hostValue, error) {
	switch x := v.(type) {
	case nil:
		return hostValue{kind: HostNull}, nil
	case bool:
		return hostValue{kind: HostBool, b: x}, nil
	case int8:
		return hostValue{kind: HostInt8, i: int64(x)}, nil
	case int16:
		return hostValue{kind: HostInt16, i: int64(x)}, nil
	case int32:
		return hostValue{kind: HostInt32, i: int64(x)}, nil
	case int64:
		return hostValue{kind: HostInt64, i: x}, nil
	case int:
		return hostValue{kind: HostInt64, i: int64(x)}, nil
	case uint8:
		return hostValue{kind: HostInt16, i: int64(x)}, nil
	case uint16:
		return hostValue{kind: HostInt32, i: int64(x)}, nil
	case uint32:
		return hostValue{kind: HostInt64, i: int64(x)}, nil
	case uint64:
		return classifyUnsigned(x), nil
	case uint:
		return classifyUnsigned(uint64(x)), nil
	case float32:
		return hostValue{kind: HostFloat32, f: float64(x)}, nil
	case float64:
		return hostValue{kind: HostFloat64, f: x}, nil
	case Decimal:
		return hostValue{kind: HostDecimal, dec: x}, nil
	case *Decimal:
		if x == nil {
			return hostValue{kind: HostNull}, nil
		}
		return hostValue{kind: HostDecimal, dec: *x}, nil
	case *big.Int:
		if x == nil {
			return hostValue{kind: HostNull}, nil
		}
		return hostValue{kind: HostBigInt, big: x}, nil
	case big.Int:
		return hostValue{kind: HostBigInt, big: &x}, nil
	case string:
		return hostValue{kind: HostString, s: x}, nil
	case []byte:
		if x == nil {
			return hostValue{kind: HostNull}, nil
		}
		return hostValue{kind: HostBytes, raw: x}, nil
	case Date:
		return hostValue{kind: HostDate, date: x}, nil
	case Time:
		return hostValue{kind: HostTime, tod: x}, nil
	case time.Time:
		return hostValue{kind: HostTimestamp, ts: x}, nil
	case *url.URL:
		if x == nil {
			return hostValue{kind: HostNull}, nil
		}
		return hostValue{kind: HostURL, s: x.String()}, nil
	case *Clob:
		if x == nil {
			return hostValue{kind: HostNull}, nil
		}
		return hostValue{kind: HostClob, clob: x}, nil
	case driver.Valuer:
		dv, err := x.Value()
		if err != nil {
			return hostValue{}, err
		}
		if _, again := dv.(driver.Valuer); again {
			return hostValue{}, newError(CodeUnsupportedType, "unsupported parameter type %T", v)
		}
		return classify(dv)
	}
	return hostValue{}, newError(CodeUnsupportedType, "unsupported parameter type %T", v)
}

func classifyUnsigned(x uint64) hostValue {
	if x > math.MaxInt64 {
		return hostValue{kind: HostBigInt, big: new(big.Int).SetUint64(x)}
	}
	return hostValue{kind: HostInt64, i: int64(x)}
}

func (h hostValue) isNumber() bool {
	switch h.kind {
	case HostInt8, HostInt16, HostInt32, HostInt64, HostFloat32, HostFloat64, HostDecimal, HostBigInt:
		return true
	}
	return false
}

func (h hostValue) isFloat() bool {
	return h.kind == HostFloat32 || h.kind == HostFloat64
}

// int64Value narrows the value the way a C cast does.
func (h hostValue) int64Value() int64 {
	switch {
	case h.isFloat():
		return truncate(h.f)
	case h.kind == HostDecimal:
		return low64(h.dec.Int())
	case h.kind == HostBigInt:
		return low64(h.big)
	}
	return h.i
}

func (h hostValue) float64Value() float64 {
	switch {
	case h.isFloat():
		return h.f
	case h.kind == HostDecimal:
		return h.dec.Float64()
	case h.kind == HostBigInt:
		f, _ := new(big.Float).SetInt(h.big).Float64()
		return f
	}
	return float64(h.i)
}

// decimalValue keeps a Decimal as it is and imposes scale on anything
// else.
func (h hostValue) decimalValue(scale int) (Decimal, error) {
	var d Decimal
	switch {
	case h.kind == HostDecimal:
		return h.dec, nil
	case h.isFloat():
		var err error
		if d, err = DecimalFromFloat64(h.f); err != nil {
			return Decimal{}, newError(CodeConversionNotAllowed, "%v", err)
		}
	case h.kind == HostBigInt:
		d = NewDecimal(h.big, 0)
	default:
		d = NewDecimalFromInt64(h.i, 0)
	}
	if scale > 0 {
		d = d.SetScale(int32(scale))
	}
	return d, nil
}

func (h hostValue) nonZero() bool {
	switch {
	case h.isFloat():
		return h.f != 0
	case h.kind == HostDecimal:
		return h.dec.Sign() != 0
	case h.kind == HostBigInt:
		return h.big.Sign() != 0
	}
	return h.i != 0
}

func (h hostValue) text() string {
	switch h.kind {
	case HostFloat32:
		return floatText(h.f, 32)
	case HostFloat64:
		return floatText(h.f, 64)
	case HostDecimal:
		return h.dec.String()
	case HostBigInt:
		return h.big.String()
	}
	return strconv.FormatInt(h.i, 10)
}

// floatText renders f with at least one fractional digit, switching to
// exponent notation outside [1e-3, 1e7): "1.0", "0.001", "1.0E21".
func floatText(f float64, bitSize int) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	if abs := math.Abs(f); f == 0 || (abs >= 1e-3 && abs < 1e7) {
		s := strconv.FormatFloat(f, 'f', -1, bitSize)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return s
	}
	mant, exp, _ := strings.Cut(strconv.FormatFloat(f, 'E', -1, bitSize), "E")
	if !strings.Contains(mant, ".") {
		mant += ".0"
	}
	n, _ := strconv.Atoi(exp)
	return mant + "E" + strconv.Itoa(n)
}

// coerce converts h to the canonical Go value sent to the engine for a
// parameter of type target. The caller has checked IsConvertible.
func coerce(h hostValue, target SQLType, scale int) (interface{}, error) {
	switch h.kind {
	case HostBool:
		return coerceBool(h.b, target, scale)
	case HostInt8, HostInt16, HostInt32, HostInt64, HostFloat32, HostFloat64, HostDecimal:
		return coerceNumber(h, target, scale)
	case HostBigInt:
		if target == SQLBigInt {
			if !h.big.IsInt64() {
				return nil, newError(CodeConversionNotAllowed, "%s does not fit in BIGINT", h.big)
			}
			return h.big.Int64(), nil
		}
		return h.big.String(), nil
	case HostString:
		return coerceString(h.s, target, scale)
	case HostURL:
		return h.s, nil
	case HostClob:
		return h.clob.readAll()
	case HostBytes:
		return bytes.Clone(h.raw), nil
	case HostDate:
		switch target {
		case SQLDate:
			return h.date, nil
		case SQLTimestamp, SQLTimestampWithTimezone:
			return h.date.Timestamp(), nil
		}
		return h.date.String(), nil
	case HostTime:
		if target == SQLTime || target == SQLTimeWithTimezone {
			return h.tod, nil
		}
		return h.tod.String(), nil
	case HostTimestamp:
		switch target {
		case SQLDate:
			return DateOf(h.ts), nil
		case SQLTime, SQLTimeWithTimezone:
			return TimeOf(h.ts), nil
		case SQLTimestamp, SQLTimestampWithTimezone:
			return naive(h.ts), nil
		}
		return formatTimestamp(h.ts), nil
	}
	return nil, conversionError(h.kind, target)
}

func coerceNumber(h hostValue, target SQLType, scale int) (interface{}, error) {
	switch target {
	case SQLTinyInt:
		return narrow[int8](h.int64Value()), nil
	case SQLSmallInt:
		return narrow[int16](h.int64Value()), nil
	case SQLInteger:
		return narrow[int32](h.int64Value()), nil
	case SQLBigInt:
		return h.int64Value(), nil
	case SQLReal:
		return float32(h.float64Value()), nil
	case SQLFloat, SQLDouble:
		return h.float64Value(), nil
	case SQLDecimal, SQLNumeric:
		return h.decimalValue(scale)
	case SQLBit, SQLBoolean:
		return h.nonZero(), nil
	}
	if isCharTarget(target) {
		return h.text(), nil
	}
	return nil, conversionError(h.kind, target)
}

func coerceBool(b bool, target SQLType, scale int) (interface{}, error) {
	var i int64
	if b {
		i = 1
	}
	switch target {
	case SQLBit, SQLBoolean:
		return b, nil
	case SQLDecimal, SQLNumeric:
		d := NewDecimalFromInt64(i*10, 1)
		if scale > 0 {
			d = d.SetScale(int32(scale))
		}
		return d, nil
	}
	if isCharTarget(target) {
		return strconv.FormatBool(b), nil
	}
	return coerceNumber(hostValue{kind: HostInt64, i: i}, target, scale)
}

// coerceString binds text to text targets and parses it for the others.
func coerceString(s string, target SQLType, scale int) (interface{}, error) {
	if isCharTarget(target) || isClobTarget(target) {
		return s, nil
	}
	fail := func(cause error) error {
		e := newError(CodeConversionNotAllowed, "cannot convert %q to %s", s, target)
		e.cause = cause
		return e
	}
	trimmed := strings.TrimSpace(s)
	switch {
	case isBooleanTarget(target):
		b, err := strconv.ParseBool(trimmed)
		if err != nil {
			return nil, fail(err)
		}
		return b, nil
	case isNumericTarget(target):
		d, err := ParseDecimal(trimmed)
		if err != nil {
			return nil, fail(err)
		}
		return coerceNumber(hostValue{kind: HostDecimal, dec: d}, target, scale)
	case target == SQLDate:
		d, err := ParseDate(trimmed)
		if err != nil {
			return nil, fail(err)
		}
		return d, nil
	case target == SQLTime || target == SQLTimeWithTimezone:
		t, err := ParseTime(trimmed)
		if err != nil {
			return nil, fail(err)
		}
		return t, nil
	case target == SQLTimestamp || target == SQLTimestampWithTimezone:
		t, err := parseTimestamp(trimmed)
		if err != nil {
			return nil, fail(err)
		}
		return t, nil
	}
	return nil, conversionError(HostString, target)
}

// bind coerces v to target and binds it to the 1-based parameter index.
func (s *PreparedStatement) bind(index int, v interface{}, target SQLType, scale int) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := s.params.check(index); err != nil {
		return err
	}
	h, err := classify(v)
	if err != nil {
		return err
	}
	if h.kind == HostNull {
		return s.bindNull(index, target)
	}
	if _, err := SQLTypeToColumnType(target); err != nil {
		return err
	}
	if !IsConvertible(h.kind, target) {
		return conversionError(h.kind, target)
	}
	value, err := coerce(h, target, scale)
	if err != nil {
		return err
	}
	return s.bindCanonical(index, value, s.params.types[index-1])
}

// bindNull binds SQL NULL. The engine is told the declared parameter type
// when it is known, otherwise the type target folds onto.
func (s *PreparedStatement) bindNull(index int, target SQLType) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := s.params.check(index); err != nil {
		return err
	}
	t, err := SQLTypeToColumnType(target)
	if err != nil {
		return err
	}
	if declared := s.params.types[index-1]; declared.valid() {
		t = declared
	}
	if !t.valid() {
		return newError(CodeUnsupportedType, "cannot bind NULL of type %s to parameter %d of unknown type", target, index)
	}
	return s.bindCanonical(index, nil, t)
}

// bindCanonical sends an already coerced value to the engine and records it
// in the parameter slot whether or not the engine accepts it.
func (s *PreparedStatement) bindCanonical(index int, v interface{}, nullType ColumnType) error {
	e, h, i := s.conn.engine, s.handle, index-1
	var err error
	switch x := v.(type) {
	case nil:
		err = e.BindNull(s.conn.db, nullType, h, i)
	case bool:
		err = e.BindBool(h, i, x)
	case int8:
		err = e.BindInt8(h, i, x)
	case int16:
		err = e.BindInt16(h, i, x)
	case int32:
		err = e.BindInt32(h, i, x)
	case int64:
		err = e.BindInt64(h, i, x)
	case *big.Int:
		err = e.BindHuge(h, i, x)
	case float32:
		err = e.BindFloat32(h, i, x)
	case float64:
		err = e.BindFloat64(h, i, x)
	case Decimal:
		err = e.BindDecimal(h, i, EncodeDecimal(x))
	case string:
		err = e.BindString(h, i, x)
	case []byte:
		err = e.BindBlob(h, i, x)
	case Date:
		err = e.BindDate(h, i, x.Year, int(x.Month), x.Day)
	case Time:
		err = e.BindTime(h, i, x.Hour, x.Minute, x.Second, x.Microsecond())
	case time.Time:
		err = e.BindTimestamp(h, i, x.Year(), int(x.Month()), x.Day(),
			x.Hour(), x.Minute(), x.Second(), x.Nanosecond()/int(time.Microsecond))
	default:
		return newError(CodeUnsupportedType, "unsupported parameter type %T", v)
	}
	s.params.slots[i] = paramSlot{value: v, nullType: nullType, set: true}
	return err
}

// SetObject binds v using the SQL type that matches its Go type.
func (s *PreparedStatement) SetObject(index int, v interface{}) error {
	h, err := classify(v)
	if err != nil {
		return err
	}
	if h.kind == HostNull {
		return s.SetNull(index, SQLNull)
	}
	return s.bind(index, v, DefaultSQLType(h.kind), 0)
}

// SetObjectType binds v converted to target. scale applies to DECIMAL and
// NUMERIC targets when v is not already a Decimal.
func (s *PreparedStatement) SetObjectType(index int, v interface{}, target SQLType, scale int) error {
	return s.bind(index, v, target, scale)
}

// SetNull binds SQL NULL.
func (s *PreparedStatement) SetNull(index int, target SQLType) error {
	return s.bindNull(index, target)
}

// SetBool binds v as BOOLEAN.
func (s *PreparedStatement) SetBool(index int, v bool) error {
	return s.bind(index, v, SQLBoolean, 0)
}

// SetInt8 binds v as TINYINT.
func (s *PreparedStatement) SetInt8(index int, v int8) error {
	return s.bind(index, v, SQLTinyInt, 0)
}

// SetInt16 binds v as SMALLINT.
func (s *PreparedStatement) SetInt16(index int, v int16) error {
	return s.bind(index, v, SQLSmallInt, 0)
}

// SetInt32 binds v as INTEGER.
func (s *PreparedStatement) SetInt32(index int, v int32) error {
	return s.bind(index, v, SQLInteger, 0)
}

// SetInt64 binds v as BIGINT.
func (s *PreparedStatement) SetInt64(index int, v int64) error {
	return s.bind(index, v, SQLBigInt, 0)
}

// SetFloat32 binds v as REAL.
func (s *PreparedStatement) SetFloat32(index int, v float32) error {
	return s.bind(index, v, SQLReal, 0)
}

// SetFloat64 binds v as DOUBLE.
func (s *PreparedStatement) SetFloat64(index int, v float64) error {
	return s.bind(index, v, SQLDouble, 0)
}

// SetDecimal binds v as DECIMAL at its own scale.
func (s *PreparedStatement) SetDecimal(index int, v Decimal) error {
	return s.bind(index, v, SQLDecimal, 0)
}

// SetBigInt binds v as BIGINT. Values outside the int64 range fail; use
// SetHugeInt for those.
func (s *PreparedStatement) SetBigInt(index int, v *big.Int) error {
	return s.bind(index, v, SQLBigInt, 0)
}

// SetHugeInt binds v as a 128-bit integer.
func (s *PreparedStatement) SetHugeInt(index int, v *big.Int) error {
	if v == nil {
		return s.bindNull(index, SQLNumeric)
	}
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := s.params.check(index); err != nil {
		return err
	}
	return s.bindCanonical(index, new(big.Int).Set(v), TypeInt128)
}

// SetString binds v as VARCHAR.
func (s *PreparedStatement) SetString(index int, v string) error {
	return s.bind(index, v, SQLVarchar, 0)
}

// SetBytes binds v as VARBINARY.
func (s *PreparedStatement) SetBytes(index int, v []byte) error {
	return s.bind(index, v, SQLVarBinary, 0)
}

// SetBlob binds v as a BLOB; an empty blob is bound as NULL.
func (s *PreparedStatement) SetBlob(index int, v []byte) error {
	if len(v) == 0 {
		return s.bindNull(index, SQLBlob)
	}
	return s.bind(index, v, SQLBlob, 0)
}

// SetDate binds v as DATE.
func (s *PreparedStatement) SetDate(index int, v Date) error {
	return s.bind(index, v, SQLDate, 0)
}

// SetTime binds v as TIME.
func (s *PreparedStatement) SetTime(index int, v Time) error {
	return s.bind(index, v, SQLTime, 0)
}

// SetTimestamp binds the wall-clock fields of v; the location is dropped.
func (s *PreparedStatement) SetTimestamp(index int, v time.Time) error {
	return s.bind(index, v, SQLTimestamp, 0)
}

// SetURL binds the text form of v as VARCHAR.
func (s *PreparedStatement) SetURL(index int, v *url.URL) error {
	return s.bind(index, v, SQLVarchar, 0)
}

// SetClob binds the text of v as CLOB.
func (s *PreparedStatement) SetClob(index int, v *Clob) error {
	return s.bind(index, v, SQLClob, 0)
}

// SetCharacterStream reads r to the end and binds the text.
func (s *PreparedStatement) SetCharacterStream(index int, r io.Reader) error {
	return s.bind(index, NewClob(r), SQLClob, 0)
}

// SetCharacterStreamLength reads at most length bytes from r and binds the
// text. A negative length, or one above MaxStreamLength, fails with
// CodeInvalidLength.
func (s *PreparedStatement) SetCharacterStreamLength(index int, r io.Reader, length int64) error {
	return s.bind(index, NewClobN(r, length), SQLClob, 0)
}

// ClearParameters resets every parameter to an unset NULL.
func (s *PreparedStatement) ClearParameters() error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	s.params.reset()
	return nil
}
