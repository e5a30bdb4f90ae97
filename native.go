package monetdbe

import (
	"bytes"
	"fmt"
	"math"
	"math/big"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
	"unsafe"

	"github.com/ebitengine/purego"
)

var (
	monetLib uintptr
	initOnce sync.Once
	initErr  error
	native   *nativeEngine
)

// libmonetdbe function pointers - populated by purego. Functions returning
// a string report an error message; the empty string means success.
var (
	monetdbeOpen             func(db *uintptr, url *byte, opts *cOptions) int32
	monetdbeClose            func(db uintptr) int32
	monetdbeError            func(db uintptr) string
	monetdbeGetAutocommit    func(db uintptr, result *int32) string
	monetdbeSetAutocommit    func(db uintptr, value int32) string
	monetdbeQuery            func(db uintptr, query string, result *uintptr, affected *int64) string
	monetdbeResultFetch      func(result uintptr, column *uintptr, index uintptr) string
	monetdbeCleanupResult    func(db uintptr, result uintptr) string
	monetdbePrepare          func(db uintptr, query string, stmt *uintptr, result *uintptr) string
	monetdbeBind             func(stmt uintptr, data unsafe.Pointer, index uintptr) string
	monetdbeExecute          func(stmt uintptr, result *uintptr, affected *int64) string
	monetdbeCleanupStatement func(db uintptr, stmt uintptr) string
	monetdbeNull             func(db uintptr, t int32) unsafe.Pointer
)

// C layouts of monetdbe.h.
type (
	cOptions struct {
		memoryLimit    int32
		queryTimeout   int32
		sessionTimeout int32
		nrThreads      int32
		remote         uintptr
		mapiServer     uintptr
		traceFile      uintptr
	}
	cResult struct {
		nrows  uintptr
		ncols  uintptr
		name   *byte
		lastID int64
	}
	cStatement struct {
		nparam uintptr
		types  *int32
	}
	// cColumn is the part of monetdbe_column_<type> shared by every type.
	// The null value and the decimal scale follow at type-dependent offsets.
	cColumn struct {
		typ   int32
		_     int32
		data  unsafe.Pointer
		count uintptr
		name  *byte
	}
	cDate struct {
		day   uint8
		month uint8
		year  int16
	}
	cTime struct {
		ms      uint32
		seconds uint8
		minutes uint8
		hours   uint8
		_       uint8
	}
	cTimestamp struct {
		date cDate
		time cTime
	}
	cBlob struct {
		size uintptr
		data unsafe.Pointer
	}
)

// getLibraryPath returns the platform-specific libmonetdbe path.
// The MONETDBE_LIBRARY_PATH environment variable can override the default path.
func getLibraryPath() string {
	if path := os.Getenv("MONETDBE_LIBRARY_PATH"); path != "" {
		return path
	}

	switch runtime.GOOS {
	case "windows":
		return "monetdbe.dll"
	case "darwin":
		paths := []string{
			"/opt/homebrew/lib/libmonetdbe.dylib", // Apple Silicon Homebrew
			"/usr/local/lib/libmonetdbe.dylib",    // Intel Homebrew
		}
		for _, p := range paths {
			if _, err := os.Stat(p); err == nil {
				return p
			}
		}
		return "libmonetdbe.dylib"
	default:
		return "libmonetdbe.so"
	}
}

// Init loads libmonetdbe and registers its functions. It runs once per
// process; later calls return the first result.
// If loading fails, set MONETDBE_LIBRARY_PATH to specify a custom library location.
func Init() error {
	initOnce.Do(func() {
		libPath := getLibraryPath()
		lib, err := loadLibrary(libPath)
		if err != nil {
			initErr = newError(CodeLibraryLoad, "failed to load %q: %v (set MONETDBE_LIBRARY_PATH to override)", libPath, err)
			return
		}
		defer func() {
			// RegisterLibFunc panics on a missing symbol.
			if r := recover(); r != nil {
				initErr = newError(CodeLibraryLoad, "%q is not a usable libmonetdbe: %v", libPath, r)
				closeLibrary(lib)
			}
		}()

		purego.RegisterLibFunc(&monetdbeOpen, lib, "monetdbe_open")
		purego.RegisterLibFunc(&monetdbeClose, lib, "monetdbe_close")
		purego.RegisterLibFunc(&monetdbeError, lib, "monetdbe_error")
		purego.RegisterLibFunc(&monetdbeGetAutocommit, lib, "monetdbe_get_autocommit")
		purego.RegisterLibFunc(&monetdbeSetAutocommit, lib, "monetdbe_set_autocommit")
		purego.RegisterLibFunc(&monetdbeQuery, lib, "monetdbe_query")
		purego.RegisterLibFunc(&monetdbeResultFetch, lib, "monetdbe_result_fetch")
		purego.RegisterLibFunc(&monetdbeCleanupResult, lib, "monetdbe_cleanup_result")
		purego.RegisterLibFunc(&monetdbePrepare, lib, "monetdbe_prepare")
		purego.RegisterLibFunc(&monetdbeBind, lib, "monetdbe_bind")
		purego.RegisterLibFunc(&monetdbeExecute, lib, "monetdbe_execute")
		purego.RegisterLibFunc(&monetdbeCleanupStatement, lib, "monetdbe_cleanup_statement")
		purego.RegisterLibFunc(&monetdbeNull, lib, "monetdbe_null")

		monetLib = lib
		native = newNativeEngine()
	})
	return initErr
}

// NativeEngine returns the Engine backed by libmonetdbe, loading it first.
func NativeEngine() (Engine, error) {
	if err := Init(); err != nil {
		return nil, err
	}
	if native == nil {
		return nil, newError(CodeLibraryLoad, "libmonetdbe has been unloaded")
	}
	return native, nil
}

// Shutdown unloads libmonetdbe. Every database must be closed first, and
// the library cannot be loaded again in the same process.
func Shutdown() error {
	initOnce.Do(func() {})
	if monetLib == 0 {
		return nil
	}
	err := closeLibrary(monetLib)
	monetLib = 0
	native = nil
	return err
}

// nativeEngine implements Engine on libmonetdbe. Bound parameter buffers
// are kept referenced until the statement is cleaned up, since the library
// reads them at execute time.
type nativeEngine struct {
	mu    sync.Mutex
	stmts map[StatementHandle]*nativeStmt
}

// nativeStmt holds the parameter types and scales reported at prepare and
// the buffers currently bound to each parameter.
type nativeStmt struct {
	types  []ColumnType
	scales []int32
	bufs   map[int]interface{}
}

func newNativeEngine() *nativeEngine {
	return &nativeEngine{stmts: make(map[StatementHandle]*nativeStmt)}
}

func engineError(msg string) error {
	if msg == "" {
		return nil
	}
	return NewEngineError(msg)
}

func cString(s string) []byte {
	b := make([]byte, len(s)+1)
	copy(b, s)
	return b
}

func goString(p *byte) string {
	if p == nil {
		return ""
	}
	n := 0
	for *(*byte)(unsafe.Add(unsafe.Pointer(p), n)) != 0 {
		n++
	}
	return string(unsafe.Slice(p, n))
}

func (e *nativeEngine) Open(path string, opts OpenOptions) (DatabaseHandle, error) {
	var url *byte
	if path != "" {
		url = &cString(path)[0]
	}
	copts := &cOptions{
		memoryLimit:    int32(opts.MemoryLimit),
		queryTimeout:   int32(opts.QueryTimeout),
		sessionTimeout: int32(opts.SessionTimeout),
		nrThreads:      int32(opts.Threads),
	}
	var db uintptr
	rc := monetdbeOpen(&db, url, copts)
	runtime.KeepAlive(url)
	if rc != 0 {
		msg := "could not allocate database"
		if db != 0 {
			msg = monetdbeError(db)
			monetdbeClose(db)
		}
		return 0, NewEngineError(fmt.Sprintf("monetdbe_open failed (%d): %s", rc, msg))
	}
	return DatabaseHandle(db), nil
}

func (e *nativeEngine) Close(db DatabaseHandle) error {
	if rc := monetdbeClose(uintptr(db)); rc != 0 {
		return NewEngineError(fmt.Sprintf("monetdbe_close failed (%d)", rc))
	}
	return nil
}

func (e *nativeEngine) Autocommit(db DatabaseHandle) (bool, error) {
	var on int32
	if err := engineError(monetdbeGetAutocommit(uintptr(db), &on)); err != nil {
		return false, err
	}
	return on != 0, nil
}

func (e *nativeEngine) SetAutocommit(db DatabaseHandle, on bool) error {
	var v int32
	if on {
		v = 1
	}
	return engineError(monetdbeSetAutocommit(uintptr(db), v))
}

func (e *nativeEngine) Query(db DatabaseHandle, sql string) (ExecResult, error) {
	var res uintptr
	affected := int64(-1)
	if err := engineError(monetdbeQuery(uintptr(db), sql, &res, &affected)); err != nil {
		return ExecResult{}, err
	}
	return execResult(res, affected, 0), nil
}

func execResult(res uintptr, affected int64, maxRows int64) ExecResult {
	if res == 0 {
		if affected < 0 {
			affected = -1
		}
		return ExecResult{Affected: affected}
	}
	r := (*cResult)(unsafe.Pointer(res))
	rows := int64(r.nrows)
	if maxRows > 0 && rows > maxRows {
		rows = maxRows
	}
	return ExecResult{Result: ResultHandle(res), Rows: int(rows), Columns: int(r.ncols), Affected: -1}
}

func (e *nativeEngine) Prepare(db DatabaseHandle, sql string) (PreparedInfo, error) {
	var stmt, res uintptr
	if err := engineError(monetdbePrepare(uintptr(db), sql, &stmt, &res)); err != nil {
		if res != 0 {
			monetdbeCleanupResult(uintptr(db), res)
		}
		if stmt != 0 {
			monetdbeCleanupStatement(uintptr(db), stmt)
		}
		return PreparedInfo{}, err
	}
	st := (*cStatement)(unsafe.Pointer(stmt))
	types := make([]ColumnType, st.nparam)
	if st.nparam > 0 {
		for i, t := range unsafe.Slice(st.types, st.nparam) {
			types[i] = ColumnType(t)
		}
	}
	scales := paramScales(uintptr(db), res, len(types))
	if res != 0 {
		monetdbeCleanupResult(uintptr(db), res)
	}

	e.mu.Lock()
	e.stmts[StatementHandle(stmt)] = &nativeStmt{types: types, scales: scales}
	e.mu.Unlock()
	return PreparedInfo{Handle: StatementHandle(stmt), ParamTypes: types, ParamScales: scales}, nil
}

// paramScales reads the scale column of the description monetdbe_prepare
// returns. Parameters are its last nparam rows, after the output columns.
func paramScales(db, res uintptr, nparam int) []int32 {
	scales := make([]int32, nparam)
	if res == 0 || nparam == 0 {
		return scales
	}
	r := (*cResult)(unsafe.Pointer(res))
	rows := int(r.nrows)
	if r.ncols < 3 || rows < nparam {
		return scales
	}
	var col uintptr
	if monetdbeResultFetch(res, &col, 2) != "" {
		return scales
	}
	d, err := decodeColumn(db, unsafe.Pointer(col), rows)
	if err != nil {
		return scales
	}
	first := rows - nparam
	for i := range scales {
		switch v := d.Values.(type) {
		case []int8:
			scales[i] = int32(v[first+i])
		case []int16:
			scales[i] = int32(v[first+i])
		case []int32:
			scales[i] = v[first+i]
		case []int64:
			scales[i] = int32(v[first+i])
		}
	}
	return scales
}

func (e *nativeEngine) Execute(stmt StatementHandle, wantLargeCount bool, maxRows int64) (ExecResult, error) {
	var res uintptr
	affected := int64(-1)
	if err := engineError(monetdbeExecute(uintptr(stmt), &res, &affected)); err != nil {
		return ExecResult{}, err
	}
	return execResult(res, affected, maxRows), nil
}

func (e *nativeEngine) CleanupStatement(db DatabaseHandle, stmt StatementHandle) error {
	e.mu.Lock()
	delete(e.stmts, stmt)
	e.mu.Unlock()
	return engineError(monetdbeCleanupStatement(uintptr(db), uintptr(stmt)))
}

// keep holds buffers referenced by a bound parameter until the next bind
// of that parameter or statement cleanup.
func (e *nativeEngine) keep(stmt StatementHandle, index int, bufs ...interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.stmts[stmt]
	if s == nil {
		s = &nativeStmt{}
		e.stmts[stmt] = s
	}
	if s.bufs == nil {
		s.bufs = make(map[int]interface{})
	}
	s.bufs[index] = bufs
}

// declared returns the type and scale reported for a parameter at prepare,
// or TypeUnknown when none was reported.
func (e *nativeEngine) declared(stmt StatementHandle, index int) (ColumnType, int32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.stmts[stmt]
	if s == nil || index < 0 || index >= len(s.types) {
		return TypeUnknown, 0
	}
	var scale int32
	if index < len(s.scales) {
		scale = s.scales[index]
	}
	return s.types[index], scale
}

func (e *nativeEngine) bind(stmt StatementHandle, index int, p unsafe.Pointer, bufs ...interface{}) error {
	e.keep(stmt, index, bufs...)
	return engineError(monetdbeBind(uintptr(stmt), p, uintptr(index)))
}

// bindValue hands the library a buffer holding v. monetdbe_bind reads it
// at the size of the declared parameter type, so T must match that type.
func bindValue[T any](e *nativeEngine, stmt StatementHandle, index int, v T) error {
	p := new(T)
	*p = v
	return e.bind(stmt, index, unsafe.Pointer(p), p)
}

func bindConversionError(v interface{}, t ColumnType, index int, cause error) error {
	err := newError(CodeConversionNotAllowed, "cannot bind %v to %s parameter %d", v, t, index+1)
	err.cause = cause
	return err
}

// bindExact binds d at the width and scale of the declared parameter,
// rounding half away from zero when digits are dropped. natural is the
// width used when no type was declared.
func (e *nativeEngine) bindExact(stmt StatementHandle, index int, d Decimal, natural ColumnType) error {
	t, scale := e.declared(stmt, index)
	switch {
	case t == TypeBool:
		return e.bindBool(stmt, index, d.Sign() != 0)
	case t == TypeFloat:
		return bindValue(e, stmt, index, float32(d.Float64()))
	case t == TypeDouble:
		return bindValue(e, stmt, index, d.Float64())
	case t.isInteger():
		return e.bindInteger(stmt, index, t, d.SetScale(scale).int())
	case t == TypeString:
		return e.bindString(stmt, index, d.String())
	case t.valid():
		return bindConversionError(d, t, index, nil)
	}
	return e.bindInteger(stmt, index, natural, d.int())
}

// bindApprox is bindExact for binary floating point values.
func (e *nativeEngine) bindApprox(stmt StatementHandle, index int, f float64, natural ColumnType) error {
	t, scale := e.declared(stmt, index)
	switch {
	case t == TypeBool:
		return e.bindBool(stmt, index, f != 0)
	case t == TypeFloat:
		return bindValue(e, stmt, index, float32(f))
	case t == TypeDouble:
		return bindValue(e, stmt, index, f)
	case t.isInteger():
		d, err := DecimalFromFloat64(f)
		if err != nil {
			return bindConversionError(f, t, index, err)
		}
		return e.bindInteger(stmt, index, t, d.SetScale(scale).int())
	case t == TypeString:
		bitSize := 64
		if natural == TypeFloat {
			bitSize = 32
		}
		return e.bindString(stmt, index, floatText(f, bitSize))
	case t.valid():
		return bindConversionError(f, t, index, nil)
	}
	if natural == TypeFloat {
		return bindValue(e, stmt, index, float32(f))
	}
	return bindValue(e, stmt, index, f)
}

func fitsWidth(u *big.Int, t ColumnType) bool {
	switch t {
	case TypeInt8:
		return signedBitLen(u) <= 8
	case TypeInt16:
		return signedBitLen(u) <= 16
	case TypeInt32:
		return signedBitLen(u) <= 32
	case TypeInt64:
		return signedBitLen(u) <= 64
	case TypeSize:
		return u.Sign() >= 0 && u.BitLen() <= 64
	case TypeInt128:
		return signedBitLen(u) <= 128
	}
	return false
}

func (e *nativeEngine) bindInteger(stmt StatementHandle, index int, t ColumnType, u *big.Int) error {
	if !fitsWidth(u, t) {
		return newError(CodeConversionNotAllowed, "%s does not fit in %s parameter %d", u, t, index+1)
	}
	switch t {
	case TypeInt8:
		return bindValue(e, stmt, index, int8(u.Int64()))
	case TypeInt16:
		return bindValue(e, stmt, index, int16(u.Int64()))
	case TypeInt32:
		return bindValue(e, stmt, index, int32(u.Int64()))
	case TypeInt64:
		return bindValue(e, stmt, index, u.Int64())
	case TypeSize:
		return bindValue(e, stmt, index, u.Uint64())
	}
	return bindValue(e, stmt, index, bigToInt128(u))
}

func (e *nativeEngine) bindBool(stmt StatementHandle, index int, v bool) error {
	var b int8
	if v {
		b = 1
	}
	return bindValue(e, stmt, index, b)
}

func (e *nativeEngine) bindString(stmt StatementHandle, index int, v string) error {
	b := cString(v)
	return e.bind(stmt, index, unsafe.Pointer(&b[0]), b)
}

func (e *nativeEngine) BindBool(stmt StatementHandle, index int, v bool) error {
	t, _ := e.declared(stmt, index)
	switch {
	case t == TypeString:
		return e.bindString(stmt, index, strconv.FormatBool(v))
	case t.isInteger(), t == TypeFloat, t == TypeDouble:
		var n int64
		if v {
			n = 1
		}
		return e.bindExact(stmt, index, NewDecimalFromInt64(n, 0), TypeBool)
	}
	return e.bindBool(stmt, index, v)
}

func (e *nativeEngine) BindInt8(stmt StatementHandle, index int, v int8) error {
	return e.bindExact(stmt, index, NewDecimalFromInt64(int64(v), 0), TypeInt8)
}

func (e *nativeEngine) BindInt16(stmt StatementHandle, index int, v int16) error {
	return e.bindExact(stmt, index, NewDecimalFromInt64(int64(v), 0), TypeInt16)
}

func (e *nativeEngine) BindInt32(stmt StatementHandle, index int, v int32) error {
	return e.bindExact(stmt, index, NewDecimalFromInt64(int64(v), 0), TypeInt32)
}

func (e *nativeEngine) BindInt64(stmt StatementHandle, index int, v int64) error {
	return e.bindExact(stmt, index, NewDecimalFromInt64(v, 0), TypeInt64)
}

func (e *nativeEngine) BindHuge(stmt StatementHandle, index int, v *big.Int) error {
	return e.bindExact(stmt, index, NewDecimal(v, 0), TypeInt128)
}

func (e *nativeEngine) BindFloat32(stmt StatementHandle, index int, v float32) error {
	return e.bindApprox(stmt, index, float64(v), TypeFloat)
}

func (e *nativeEngine) BindFloat64(stmt StatementHandle, index int, v float64) error {
	return e.bindApprox(stmt, index, v, TypeDouble)
}

// BindString parses v when the parameter was declared with a numeric or
// temporal type, so the library never reads text as a fixed-size value.
func (e *nativeEngine) BindString(stmt StatementHandle, index int, v string) error {
	t, _ := e.declared(stmt, index)
	switch {
	case t.isInteger():
		d, err := ParseDecimal(v)
		if err != nil {
			return bindConversionError(strconv.Quote(v), t, index, err)
		}
		return e.bindExact(stmt, index, d, t)
	case t == TypeFloat, t == TypeDouble:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return bindConversionError(strconv.Quote(v), t, index, err)
		}
		return e.bindApprox(stmt, index, f, t)
	case t == TypeBool:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return bindConversionError(strconv.Quote(v), t, index, err)
		}
		return e.bindBool(stmt, index, b)
	case t == TypeDate:
		d, err := ParseDate(v)
		if err != nil {
			return bindConversionError(strconv.Quote(v), t, index, err)
		}
		return e.BindDate(stmt, index, d.Year, int(d.Month), d.Day)
	case t == TypeTime:
		tod, err := ParseTime(v)
		if err != nil {
			return bindConversionError(strconv.Quote(v), t, index, err)
		}
		return e.BindTime(stmt, index, tod.Hour, tod.Minute, tod.Second, tod.Microsecond())
	case t == TypeTimestamp:
		ts, err := parseTimestamp(v)
		if err != nil {
			return bindConversionError(strconv.Quote(v), t, index, err)
		}
		return e.BindTimestamp(stmt, index, ts.Year(), int(ts.Month()), ts.Day(),
			ts.Hour(), ts.Minute(), ts.Second(), ts.Nanosecond()/int(time.Microsecond))
	}
	return e.bindString(stmt, index, v)
}

func (e *nativeEngine) BindBlob(stmt StatementHandle, index int, v []byte) error {
	buf := bytes.Clone(v)
	blob := &cBlob{size: uintptr(len(buf))}
	if len(buf) > 0 {
		blob.data = unsafe.Pointer(&buf[0])
	}
	return e.bind(stmt, index, unsafe.Pointer(blob), blob, buf)
}

func (e *nativeEngine) BindDate(stmt StatementHandle, index int, year, month, day int) error {
	return bindValue(e, stmt, index, cDate{day: uint8(day), month: uint8(month), year: int16(year)})
}

// BindTime passes milliseconds; the engine has no finer time-of-day input.
func (e *nativeEngine) BindTime(stmt StatementHandle, index int, hour, minute, second, micros int) error {
	return bindValue(e, stmt, index, cTime{ms: uint32(micros / 1000), seconds: uint8(second), minutes: uint8(minute), hours: uint8(hour)})
}

func (e *nativeEngine) BindTimestamp(stmt StatementHandle, index int, year, month, day, hour, minute, second, micros int) error {
	return bindValue(e, stmt, index, cTimestamp{
		date: cDate{day: uint8(day), month: uint8(month), year: int16(year)},
		time: cTime{ms: uint32(micros / 1000), seconds: uint8(second), minutes: uint8(minute), hours: uint8(hour)},
	})
}

// BindDecimal rescales v to the declared scale of the parameter. The
// library stores the unscaled integer as given.
func (e *nativeEngine) BindDecimal(stmt StatementHandle, index int, v EncodedDecimal) error {
	return e.bindExact(stmt, index, v.Decimal(), v.Width)
}

func (e *nativeEngine) BindNull(db DatabaseHandle, t ColumnType, stmt StatementHandle, index int) error {
	p := monetdbeNull(uintptr(db), int32(t))
	if p == nil && t != TypeString && t != TypeBlob {
		return newError(CodeUnsupportedType, "no NULL value for %s", t)
	}
	return e.bind(stmt, index, p)
}

func (e *nativeEngine) CleanupResult(db DatabaseHandle, res ResultHandle) error {
	return engineError(monetdbeCleanupResult(uintptr(db), uintptr(res)))
}

func (e *nativeEngine) FetchAll(db DatabaseHandle, res ResultHandle, rows, cols int) ([]ColumnData, error) {
	out := make([]ColumnData, cols)
	for i := range out {
		var col uintptr
		if err := engineError(monetdbeResultFetch(uintptr(res), &col, uintptr(i))); err != nil {
			return nil, err
		}
		d, err := decodeColumn(uintptr(db), unsafe.Pointer(col), rows)
		if err != nil {
			return nil, err
		}
		out[i] = d
	}
	return out, nil
}

// cellSize is the width of one fixed-size cell, 0 for pointer cells.
func cellSize(t ColumnType) uintptr {
	switch t {
	case TypeBool, TypeInt8:
		return 1
	case TypeInt16:
		return 2
	case TypeInt32, TypeFloat, TypeDate:
		return 4
	case TypeInt64, TypeSize, TypeDouble, TypeTime, TypeString:
		return 8
	case TypeTimestamp:
		return 12
	case TypeInt128, TypeBlob:
		return 16
	}
	return 0
}

func nullValue(db uintptr, t ColumnType) []byte {
	if t == TypeString || t == TypeBlob {
		return nil
	}
	p := monetdbeNull(db, int32(t))
	if p == nil {
		return nil
	}
	return bytes.Clone(unsafe.Slice((*byte)(p), cellSize(t)))
}

// fixed copies n cells of type T and marks the ones equal to null.
func fixed[T any](data unsafe.Pointer, n int, null []byte) ([]T, []bool) {
	values := make([]T, n)
	nulls := make([]bool, n)
	if n == 0 {
		return values, nulls
	}
	copy(values, unsafe.Slice((*T)(data), n))
	if null == nil {
		return values, nulls
	}
	size := int(unsafe.Sizeof(values[0]))
	raw := unsafe.Slice((*byte)(data), n*size)
	for i := range nulls {
		nulls[i] = bytes.Equal(raw[i*size:(i+1)*size], null)
	}
	return values, nulls
}

func decodeColumn(db uintptr, p unsafe.Pointer, rows int) (ColumnData, error) {
	h := (*cColumn)(p)
	t := ColumnType(h.typ)
	if int(h.count) < rows {
		return ColumnData{}, newError(CodeEngine, "column holds %d values, expected %d", h.count, rows)
	}
	d := ColumnData{Name: goString(h.name), Type: t, TypeName: nativeTypeName(t)}
	null := nullValue(db, t)

	switch t {
	case TypeBool:
		raw, nulls := fixed[int8](h.data, rows, null)
		values := make([]bool, rows)
		for i, v := range raw {
			values[i] = v != 0
		}
		d.Values, d.Nulls = values, nulls
	case TypeInt8:
		d.Values, d.Nulls = fixed[int8](h.data, rows, null)
	case TypeInt16:
		d.Values, d.Nulls = fixed[int16](h.data, rows, null)
	case TypeInt32:
		d.Values, d.Nulls = fixed[int32](h.data, rows, null)
	case TypeInt64:
		d.Values, d.Nulls = fixed[int64](h.data, rows, null)
	case TypeInt128:
		raw, nulls := fixed[[2]uint64](h.data, rows, null)
		values := make([]*big.Int, rows)
		for i, v := range raw {
			values[i] = int128ToBig(v)
		}
		d.Values, d.Nulls = values, nulls
	case TypeSize:
		d.Values, d.Nulls = fixed[uint64](h.data, rows, null)
	case TypeFloat:
		d.Values, d.Nulls = fixed[float32](h.data, rows, null)
	case TypeDouble:
		d.Values, d.Nulls = fixed[float64](h.data, rows, null)
	case TypeString:
		values := make([]string, rows)
		nulls := make([]bool, rows)
		for i, s := range unsafe.Slice((**byte)(h.data), rows) {
			if s == nil {
				nulls[i] = true
				continue
			}
			values[i] = goString(s)
		}
		d.Values, d.Nulls = values, nulls
	case TypeBlob:
		values := make([][]byte, rows)
		nulls := make([]bool, rows)
		for i, b := range unsafe.Slice((*cBlob)(h.data), rows) {
			if b.data == nil {
				nulls[i] = true
				continue
			}
			values[i] = bytes.Clone(unsafe.Slice((*byte)(b.data), b.size))
		}
		d.Values, d.Nulls = values, nulls
	case TypeDate:
		raw, nulls := fixed[cDate](h.data, rows, null)
		values := make([]Date, rows)
		for i, v := range raw {
			values[i] = Date{Year: int(v.year), Month: time.Month(v.month), Day: int(v.day)}
		}
		d.Values, d.Nulls = values, nulls
	case TypeTime:
		raw, nulls := fixed[cTime](h.data, rows, null)
		values := make([]Time, rows)
		for i, v := range raw {
			values[i] = Time{Hour: int(v.hours), Minute: int(v.minutes), Second: int(v.seconds), Nanosecond: int(v.ms) * int(time.Millisecond)}
		}
		d.Values, d.Nulls = values, nulls
	case TypeTimestamp:
		raw, nulls := fixed[cTimestamp](h.data, rows, null)
		values := make([]time.Time, rows)
		for i, v := range raw {
			values[i] = time.Date(int(v.date.year), time.Month(v.date.month), int(v.date.day),
				int(v.time.hours), int(v.time.minutes), int(v.time.seconds), int(v.time.ms)*int(time.Millisecond), time.UTC)
		}
		d.Values, d.Nulls = values, nulls
	default:
		return ColumnData{}, newError(CodeUnsupportedType, "column %q has unsupported type %s", d.Name, t)
	}

	if t.isInteger() && t != TypeSize {
		// The scale is stored as a power of ten after the null value.
		off := (32 + cellSize(t) + 7) &^ 7
		if s := *(*float64)(unsafe.Add(p, off)); s > 1 {
			d.Scale = int32(math.Round(math.Log10(s)))
			d.TypeName = "decimal"
		}
	}
	return d, nil
}

func nativeTypeName(t ColumnType) string {
	switch t {
	case TypeBool:
		return "boolean"
	case TypeInt8:
		return "tinyint"
	case TypeInt16:
		return "smallint"
	case TypeInt32:
		return "int"
	case TypeInt64:
		return "bigint"
	case TypeInt128:
		return "hugeint"
	case TypeSize:
		return "oid"
	case TypeFloat:
		return "real"
	case TypeDouble:
		return "double"
	case TypeString:
		return "varchar"
	case TypeBlob:
		return "blob"
	case TypeDate:
		return "date"
	case TypeTime:
		return "time"
	case TypeTimestamp:
		return "timestamp"
	}
	return t.String()
}

var two128 = new(big.Int).Lsh(big.NewInt(1), 128)

// int128ToBig reads a little-endian two's complement 128-bit integer.
func int128ToBig(v [2]uint64) *big.Int {
	x := new(big.Int).SetUint64(v[1])
	x.Lsh(x, 64)
	x.Or(x, new(big.Int).SetUint64(v[0]))
	if v[1]>>63 == 1 {
		x.Sub(x, two128)
	}
	return x
}

func bigToInt128(v *big.Int) [2]uint64 {
	x := new(big.Int).Set(v)
	if x.Sign() < 0 {
		x.Add(x, two128)
	}
	lo := new(big.Int).And(x, mask64).Uint64()
	hi := new(big.Int).Rsh(x, 64).Uint64()
	return [2]uint64{lo, hi}
}

// Ensure nativeEngine implements Engine
var _ Engine = (*nativeEngine)(nil)
