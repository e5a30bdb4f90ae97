package monetdbe

import (
	"math/big"
)

// Handles are opaque references to resources owned by an Engine. Each one
// is released exactly once through the matching Close or Cleanup call.
type (
	DatabaseHandle  uintptr
	StatementHandle uintptr
	ResultHandle    uintptr
)

// OpenOptions are passed to the engine when a database is opened. Zero
// values leave the engine defaults in place.
type OpenOptions struct {
	MemoryLimit    int // megabytes
	QueryTimeout   int // seconds
	SessionTimeout int // seconds
	Threads        int
}

// PreparedInfo describes a statement returned by Engine.Prepare.
type PreparedInfo struct {
	Handle      StatementHandle
	ParamTypes  []ColumnType
	ParamScales []int32 // declared decimal scale per parameter; may be nil
}

// ExecResult is the outcome of an execution. Result is zero when the
// statement did not produce rows.
type ExecResult struct {
	Result  ResultHandle
	Rows    int
	Columns int
	// Affected is the number of changed rows, or -1 when the engine
	// reported success without a count.
	Affected int64
}

// ColumnData is one fully materialized result column.
//
// Values holds one element per row, with the Go element type determined by
// Type:
//
//	TypeBool       []bool
//	TypeInt8       []int8
//	TypeInt16      []int16
//	TypeInt32      []int32
//	TypeInt64      []int64
//	TypeInt128     []*big.Int
//	TypeSize       []uint64
//	TypeFloat      []float32
//	TypeDouble     []float64
//	TypeString     []string
//	TypeBlob       [][]byte
//	TypeDate       []Date
//	TypeTime       []Time
//	TypeTimestamp  []time.Time
//
// Nulls marks the cells that hold SQL NULL; the value stored in a null
// cell is not meaningful.
type ColumnData struct {
	Name     string
	Type     ColumnType
	TypeName string // native SQL type name, e.g. "int", "decimal", "inet"
	Digits   int32
	Scale    int32
	Values   interface{}
	Nulls    []bool
}

// Engine is the set of calls this package makes into the embedded
// database. Statement parameter indexes are zero-based at this level.
// Implementations report engine failures with NewEngineError and must
// release any partially created statement before Prepare returns an error.
type Engine interface {
	Open(path string, opts OpenOptions) (DatabaseHandle, error)
	Close(db DatabaseHandle) error
	Autocommit(db DatabaseHandle) (bool, error)
	SetAutocommit(db DatabaseHandle, on bool) error

	// Query runs sql directly without parameters.
	Query(db DatabaseHandle, sql string) (ExecResult, error)
	Prepare(db DatabaseHandle, sql string) (PreparedInfo, error)
	Execute(stmt StatementHandle, wantLargeCount bool, maxRows int64) (ExecResult, error)
	CleanupStatement(db DatabaseHandle, stmt StatementHandle) error

	BindBool(stmt StatementHandle, index int, v bool) error
	BindInt8(stmt StatementHandle, index int, v int8) error
	BindInt16(stmt StatementHandle, index int, v int16) error
	BindInt32(stmt StatementHandle, index int, v int32) error
	BindInt64(stmt StatementHandle, index int, v int64) error
	BindHuge(stmt StatementHandle, index int, v *big.Int) error
	BindFloat32(stmt StatementHandle, index int, v float32) error
	BindFloat64(stmt StatementHandle, index int, v float64) error
	BindString(stmt StatementHandle, index int, v string) error
	BindBlob(stmt StatementHandle, index int, v []byte) error
	BindDate(stmt StatementHandle, index int, year, month, day int) error
	BindTime(stmt StatementHandle, index int, hour, minute, second, micros int) error
	BindTimestamp(stmt StatementHandle, index int, year, month, day, hour, minute, second, micros int) error
	BindDecimal(stmt StatementHandle, index int, v EncodedDecimal) error
	BindNull(db DatabaseHandle, t ColumnType, stmt StatementHandle, index int) error

	FetchAll(db DatabaseHandle, res ResultHandle, rows, cols int) ([]ColumnData, error)
	CleanupResult(db DatabaseHandle, res ResultHandle) error
}
