package monetdbe

import (
	"io"
	"math/big"
	"net/url"
	"strings"
	"time"
)

// FetchDirection values reported by Cursor.FetchDirection.
const (
	FetchForward = 1000
	FetchReverse = 1001
	FetchUnknown = 1002
)

// Cursor concurrency and type values, in the JDBC numbering.
const (
	ConcurReadOnly        = 1007
	TypeScrollInsensitive = 1004
)

// Cursor is a scrollable, read-only view over a fully materialized query
// result. Rows are numbered from 1; position 0 is before the first row and
// position RowCount()+1 is after the last one. A new Cursor is positioned
// before the first row.
//
// A Cursor is not safe for concurrent use. It shares the goroutine
// discipline of the statement that produced it.
type Cursor struct {
	conn    *Conn
	handle  ResultHandle
	owner   *PreparedStatement
	columns []*column
	rows    int

	curRow   int
	lastNull bool
	closed   bool
}

// newCursor fetches every column of res. The native result is released
// when the fetch fails.
func newCursor(c *Conn, res ExecResult, owner *PreparedStatement) (*Cursor, error) {
	data, err := c.engine.FetchAll(c.db, res.Result, res.Rows, res.Columns)
	if err == nil && len(data) != res.Columns {
		err = newError(CodeEngine, "engine returned %d columns, expected %d", len(data), res.Columns)
	}
	columns := make([]*column, 0, len(data))
	if err == nil {
		for _, d := range data {
			col, cerr := newColumn(d, res.Rows)
			if cerr != nil {
				err = cerr
				break
			}
			columns = append(columns, col)
		}
	}
	if err != nil {
		if cerr := c.engine.CleanupResult(c.db, res.Result); cerr != nil {
			c.logger.Warn("result cleanup failed", "err", cerr)
		}
		return nil, err
	}
	c.logger.Debug("result materialized", "rows", res.Rows, "cols", res.Columns)
	return &Cursor{
		conn:    c,
		handle:  res.Result,
		owner:   owner,
		columns: columns,
		rows:    res.Rows,
	}, nil
}

func (c *Cursor) checkOpen() error {
	if c.closed {
		return newError(CodeCursorClosed, "cursor is closed")
	}
	return nil
}

// Close releases the native result. Closing a closed cursor fails with
// CodeCursorClosed and releases nothing.
func (c *Cursor) Close() error {
	return c.close(true)
}

// close releases the result; notify tells the owning statement, which may
// then close itself.
func (c *Cursor) close(notify bool) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	c.closed = true
	c.columns = nil
	err := c.conn.engine.CleanupResult(c.conn.db, c.handle)
	c.handle = 0
	if notify && c.owner != nil {
		if oerr := c.owner.resultClosed(c); err == nil {
			err = oerr
		}
	}
	return err
}

// IsClosed reports whether Close has been called.
func (c *Cursor) IsClosed() bool {
	return c.closed
}

// Statement returns the statement that produced the cursor, or nil when it
// came from a direct query.
func (c *Cursor) Statement() *PreparedStatement {
	return c.owner
}

// RowCount returns the number of rows in the result.
func (c *Cursor) RowCount() int {
	return c.rows
}

// Columns returns the column names.
func (c *Cursor) Columns() []string {
	names := make([]string, len(c.columns))
	for i, col := range c.columns {
		names[i] = col.name
	}
	return names
}

// MetaData describes the result columns.
func (c *Cursor) MetaData() (*ResultSetMetaData, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	return &ResultSetMetaData{columns: c.columns}, nil
}

// Absolute moves to row. A negative row counts back from the end, so -1 is
// the last row. Moving outside the result leaves the cursor before the
// first or after the last row and returns false.
func (c *Cursor) Absolute(row int) (bool, error) {
	if err := c.checkOpen(); err != nil {
		return false, err
	}
	if row < 0 {
		row = c.rows + row + 1
	}
	return c.moveTo(row), nil
}

func (c *Cursor) moveTo(row int) bool {
	switch {
	case row <= 0:
		c.curRow = 0
		return false
	case row > c.rows:
		c.curRow = c.rows + 1
		return false
	}
	c.curRow = row
	return true
}

// Relative moves n rows from the current position.
func (c *Cursor) Relative(n int) (bool, error) {
	if err := c.checkOpen(); err != nil {
		return false, err
	}
	return c.moveTo(c.curRow + n), nil
}

// Next moves to the following row.
func (c *Cursor) Next() (bool, error) {
	return c.Relative(1)
}

// Previous moves to the preceding row.
func (c *Cursor) Previous() (bool, error) {
	return c.Relative(-1)
}

// First moves to the first row.
func (c *Cursor) First() (bool, error) {
	return c.Absolute(1)
}

// Last moves to the last row.
func (c *Cursor) Last() (bool, error) {
	if err := c.checkOpen(); err != nil {
		return false, err
	}
	return c.moveTo(c.rows), nil
}

// BeforeFirst moves before the first row.
func (c *Cursor) BeforeFirst() error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	c.curRow = 0
	return nil
}

// AfterLast moves after the last row.
func (c *Cursor) AfterLast() error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	c.curRow = c.rows + 1
	return nil
}

// IsBeforeFirst reports whether the cursor is before the first row.
func (c *Cursor) IsBeforeFirst() (bool, error) {
	if err := c.checkOpen(); err != nil {
		return false, err
	}
	return c.curRow == 0, nil
}

// IsAfterLast reports whether the cursor is after the last row.
func (c *Cursor) IsAfterLast() (bool, error) {
	if err := c.checkOpen(); err != nil {
		return false, err
	}
	return c.curRow == c.rows+1, nil
}

// IsFirst reports whether the cursor is on the first row.
func (c *Cursor) IsFirst() (bool, error) {
	if err := c.checkOpen(); err != nil {
		return false, err
	}
	return c.rows > 0 && c.curRow == 1, nil
}

// IsLast reports whether the cursor is on the last row.
func (c *Cursor) IsLast() (bool, error) {
	if err := c.checkOpen(); err != nil {
		return false, err
	}
	return c.rows > 0 && c.curRow == c.rows, nil
}

// Row returns the current row number, or 0 when there is no current row.
func (c *Cursor) Row() (int, error) {
	if err := c.checkOpen(); err != nil {
		return 0, err
	}
	if c.curRow > c.rows {
		return 0, nil
	}
	return c.curRow, nil
}

// WasNull reports whether the last value read was SQL NULL. It is only
// meaningful after a read.
func (c *Cursor) WasNull() (bool, error) {
	if err := c.checkOpen(); err != nil {
		return false, err
	}
	return c.lastNull, nil
}

// FetchDirection always reports FetchForward.
func (c *Cursor) FetchDirection() int {
	return FetchForward
}

// FetchSize is the number of rows held in memory, which is every row.
func (c *Cursor) FetchSize() int {
	return c.rows
}

// Concurrency always reports ConcurReadOnly; results cannot be updated.
func (c *Cursor) Concurrency() int {
	return ConcurReadOnly
}

// Type always reports TypeScrollInsensitive.
func (c *Cursor) Type() int {
	return TypeScrollInsensitive
}

// FindColumn returns the 1-based index of the column called label. An
// exact match wins; otherwise the first case-insensitive match is used.
func (c *Cursor) FindColumn(label string) (int, error) {
	if err := c.checkOpen(); err != nil {
		return 0, err
	}
	for i, col := range c.columns {
		if col.name == label {
			return i + 1, nil
		}
	}
	for i, col := range c.columns {
		if strings.EqualFold(col.name, label) {
			return i + 1, nil
		}
	}
	return 0, newError(CodeUnknownColumn, "no such column: %q", label)
}

// cell resolves a 1-based column index against the current row.
func (c *Cursor) cell(col int) (*column, int, error) {
	if err := c.checkOpen(); err != nil {
		return nil, 0, err
	}
	if col < 1 || col > len(c.columns) {
		return nil, 0, newError(CodeIndexOutOfRange, "column index %d out of range [1,%d]", col, len(c.columns))
	}
	if c.curRow < 1 || c.curRow > c.rows {
		return nil, 0, newError(CodeIndexOutOfRange, "no current row (position %d of %d)", c.curRow, c.rows)
	}
	return c.columns[col-1], c.curRow - 1, nil
}

func read[T any](c *Cursor, col int, at func(*column, int) (T, bool, error)) (T, error) {
	var zero T
	cl, row, err := c.cell(col)
	if err != nil {
		return zero, err
	}
	v, null, err := at(cl, row)
	if err != nil {
		c.lastNull = false
		return zero, err
	}
	c.lastNull = null
	return v, nil
}

func readLabel[T any](c *Cursor, label string, get func(int) (T, error)) (T, error) {
	col, err := c.FindColumn(label)
	if err != nil {
		var zero T
		return zero, err
	}
	return get(col)
}

// GetObject returns the value of column col in the Go type matching its
// native type: int8 through int64 for integers, *big.Int for 128-bit
// integers, Decimal for decimals, float32 or float64, string, []byte,
// Date, Time or time.Time. SQL NULL is returned as nil.
func (c *Cursor) GetObject(col int) (interface{}, error) {
	return read(c, col, (*column).objectAt)
}

// GetBool reads column col as a bool. Numbers are true when nonzero.
func (c *Cursor) GetBool(col int) (bool, error) {
	return read(c, col, (*column).boolAt)
}

// GetInt8 reads column col, keeping the low 8 bits of wider integers.
func (c *Cursor) GetInt8(col int) (int8, error) {
	v, err := c.GetInt64(col)
	return narrow[int8](v), err
}

// GetInt16 reads column col, keeping the low 16 bits of wider integers.
func (c *Cursor) GetInt16(col int) (int16, error) {
	v, err := c.GetInt64(col)
	return narrow[int16](v), err
}

// GetInt32 reads column col, keeping the low 32 bits of wider integers.
func (c *Cursor) GetInt32(col int) (int32, error) {
	v, err := c.GetInt64(col)
	return narrow[int32](v), err
}

// GetInt64 reads column col as an int64. Fractions are truncated.
func (c *Cursor) GetInt64(col int) (int64, error) {
	return read(c, col, (*column).int64At)
}

// GetFloat32 reads column col as a float32.
func (c *Cursor) GetFloat32(col int) (float32, error) {
	return read(c, col, (*column).float32At)
}

// GetFloat64 reads column col as a float64.
func (c *Cursor) GetFloat64(col int) (float64, error) {
	return read(c, col, (*column).float64At)
}

// GetDecimal reads column col exactly. Floating-point cells are expanded
// to their exact binary value.
func (c *Cursor) GetDecimal(col int) (Decimal, error) {
	return read(c, col, (*column).decimalAt)
}

// GetBigInt reads column col as an arbitrary-precision integer.
func (c *Cursor) GetBigInt(col int) (*big.Int, error) {
	return read(c, col, (*column).bigIntAt)
}

// GetString reads column col in its canonical text form. Blobs are
// rendered as upper-case hex.
func (c *Cursor) GetString(col int) (string, error) {
	return read(c, col, (*column).stringAt)
}

// GetBytes reads column col as raw bytes.
func (c *Cursor) GetBytes(col int) ([]byte, error) {
	return read(c, col, (*column).bytesAt)
}

// GetDate reads column col as a Date.
func (c *Cursor) GetDate(col int) (Date, error) {
	return read(c, col, (*column).dateAt)
}

// GetTime reads column col as a Time.
func (c *Cursor) GetTime(col int) (Time, error) {
	return read(c, col, (*column).timeAt)
}

// GetTimestamp reads column col as a time.Time in UTC.
func (c *Cursor) GetTimestamp(col int) (time.Time, error) {
	return read(c, col, (*column).timestampAt)
}

// GetURL parses the text of column col as a URL. NULL yields nil.
func (c *Cursor) GetURL(col int) (*url.URL, error) {
	s, err := c.GetString(col)
	if err != nil || c.lastNull {
		return nil, err
	}
	u, err := url.Parse(s)
	if err != nil {
		e := newError(CodeConversionNotAllowed, "column %d does not hold a URL", col)
		e.cause = err
		return nil, e
	}
	return u, nil
}

// GetCharacterStream returns a reader over the text of column col. NULL
// yields nil.
func (c *Cursor) GetCharacterStream(col int) (io.Reader, error) {
	s, err := c.GetString(col)
	if err != nil || c.lastNull {
		return nil, err
	}
	return strings.NewReader(s), nil
}

// GetObjectByLabel is GetObject for the column named label.
func (c *Cursor) GetObjectByLabel(label string) (interface{}, error) {
	return readLabel(c, label, c.GetObject)
}

// GetBoolByLabel is GetBool for the column named label.
func (c *Cursor) GetBoolByLabel(label string) (bool, error) {
	return readLabel(c, label, c.GetBool)
}

// GetInt8ByLabel is GetInt8 for the column named label.
func (c *Cursor) GetInt8ByLabel(label string) (int8, error) {
	return readLabel(c, label, c.GetInt8)
}

// GetInt16ByLabel is GetInt16 for the column named label.
func (c *Cursor) GetInt16ByLabel(label string) (int16, error) {
	return readLabel(c, label, c.GetInt16)
}

// GetInt32ByLabel is GetInt32 for the column named label.
func (c *Cursor) GetInt32ByLabel(label string) (int32, error) {
	return readLabel(c, label, c.GetInt32)
}

// GetInt64ByLabel is GetInt64 for the column named label.
func (c *Cursor) GetInt64ByLabel(label string) (int64, error) {
	return readLabel(c, label, c.GetInt64)
}

// GetFloat32ByLabel is GetFloat32 for the column named label.
func (c *Cursor) GetFloat32ByLabel(label string) (float32, error) {
	return readLabel(c, label, c.GetFloat32)
}

// GetFloat64ByLabel is GetFloat64 for the column named label.
func (c *Cursor) GetFloat64ByLabel(label string) (float64, error) {
	return readLabel(c, label, c.GetFloat64)
}

// GetDecimalByLabel is GetDecimal for the column named label.
func (c *Cursor) GetDecimalByLabel(label string) (Decimal, error) {
	return readLabel(c, label, c.GetDecimal)
}

// GetBigIntByLabel is GetBigInt for the column named label.
func (c *Cursor) GetBigIntByLabel(label string) (*big.Int, error) {
	return readLabel(c, label, c.GetBigInt)
}

// GetStringByLabel is GetString for the column named label.
func (c *Cursor) GetStringByLabel(label string) (string, error) {
	return readLabel(c, label, c.GetString)
}

// GetBytesByLabel is GetBytes for the column named label.
func (c *Cursor) GetBytesByLabel(label string) ([]byte, error) {
	return readLabel(c, label, c.GetBytes)
}

// GetDateByLabel is GetDate for the column named label.
func (c *Cursor) GetDateByLabel(label string) (Date, error) {
	return readLabel(c, label, c.GetDate)
}

// GetTimeByLabel is GetTime for the column named label.
func (c *Cursor) GetTimeByLabel(label string) (Time, error) {
	return readLabel(c, label, c.GetTime)
}

// GetTimestampByLabel is GetTimestamp for the column named label.
func (c *Cursor) GetTimestampByLabel(label string) (time.Time, error) {
	return readLabel(c, label, c.GetTimestamp)
}

// GetURLByLabel is GetURL for the column named label.
func (c *Cursor) GetURLByLabel(label string) (*url.URL, error) {
	return readLabel(c, label, c.GetURL)
}

// GetCharacterStreamByLabel is GetCharacterStream for the column named label.
func (c *Cursor) GetCharacterStreamByLabel(label string) (io.Reader, error) {
	return readLabel(c, label, c.GetCharacterStream)
}
