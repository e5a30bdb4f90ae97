package monetdbe

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	selectSQL = "SELECT id FROM t WHERE id > ?"
	updateSQL = "UPDATE t SET v = ? WHERE id = ?"
)

func idColumn(ids ...int32) ColumnData {
	return col("id", TypeInt32, ids)
}

// =============================================================================
// Execute tests
// =============================================================================

func TestExecuteProducesResult(t *testing.T) {
	e := newFakeEngine().returns(selectSQL, idColumn(1, 2, 3))
	ps := prepare(t, e, selectSQL)
	require.NoError(t, ps.SetInt32(1, 0))

	hasResult, err := ps.Execute()
	require.NoError(t, err)
	assert.True(t, hasResult)
	assert.Equal(t, -1, ps.UpdateCount())
	require.NotNil(t, ps.ResultSet())
	assert.Equal(t, 3, ps.ResultSet().RowCount())
	assert.Same(t, ps, ps.ResultSet().Statement())
}

func TestExecuteProducesUpdateCount(t *testing.T) {
	e := newFakeEngine().on(updateSQL, func([]interface{}) (outcome, error) {
		return outcome{affected: 4}, nil
	})
	ps := prepare(t, e, updateSQL)

	hasResult, err := ps.Execute()
	require.NoError(t, err)
	assert.False(t, hasResult)
	assert.Nil(t, ps.ResultSet())
	assert.Equal(t, 4, ps.UpdateCount())
	assert.Equal(t, int64(4), ps.LargeUpdateCount())
}

func TestExecuteWithoutCount(t *testing.T) {
	e := newFakeEngine().on("CREATE TABLE t (i INT)", func([]interface{}) (outcome, error) {
		return outcome{affected: -1}, nil
	})
	ps := prepare(t, e, "CREATE TABLE t (i INT)")

	n, err := ps.ExecuteLargeUpdate()
	require.NoError(t, err)
	assert.Equal(t, SuccessNoInfo, n)
}

func TestExecuteQueryRequiresRows(t *testing.T) {
	ps := prepare(t, newFakeEngine(), updateSQL)
	_, err := ps.ExecuteQuery()
	assert.ErrorIs(t, err, ErrNoResultSet)
}

func TestExecuteUpdateRejectsRows(t *testing.T) {
	e := newFakeEngine().returns(selectSQL, idColumn(1))
	ps := prepare(t, e, selectSQL)

	_, err := ps.ExecuteUpdate()
	assert.ErrorIs(t, err, ErrResultSetProduced)
	assert.Nil(t, ps.ResultSet())
	assert.Equal(t, 0, e.openResults())
}

func TestReexecuteClosesPreviousResult(t *testing.T) {
	e := newFakeEngine().returns(selectSQL, idColumn(1, 2))
	ps := prepare(t, e, selectSQL)

	first, err := ps.ExecuteQuery()
	require.NoError(t, err)
	second, err := ps.ExecuteQuery()
	require.NoError(t, err)

	assert.True(t, first.IsClosed())
	assert.False(t, second.IsClosed())
	assert.False(t, ps.IsClosed())
	assert.Equal(t, 1, e.openResults())
}

func TestFailedExecuteKeepsPreviousState(t *testing.T) {
	fail := false
	e := newFakeEngine().on(updateSQL, func([]interface{}) (outcome, error) {
		if fail {
			return outcome{}, NewEngineError("constraint violation")
		}
		return outcome{affected: 2}, nil
	})
	ps := prepare(t, e, updateSQL)

	_, err := ps.Execute()
	require.NoError(t, err)
	fail = true
	_, err = ps.Execute()
	assert.True(t, IsEngineError(err))
	assert.Equal(t, 2, ps.UpdateCount())
}

func TestExecuteFetchFailureReleasesResult(t *testing.T) {
	e := newFakeEngine().returns(selectSQL, idColumn(1))
	ps := prepare(t, e, selectSQL)
	e.fetchErr = NewEngineError("out of memory")

	_, err := ps.Execute()
	assert.True(t, IsEngineError(err))
	assert.Equal(t, 0, e.openResults())
	assert.Nil(t, ps.ResultSet())
}

func TestExecuteMalformedColumn(t *testing.T) {
	const sql = "SELECT bad"
	e := newFakeEngine().returns(sql, ColumnData{Name: "bad", Type: TypeInt32, Values: []int64{1}})
	ps := prepare(t, e, sql)

	_, err := ps.Execute()
	assert.ErrorIs(t, err, ErrUnsupportedType)
	assert.Equal(t, 0, e.openResults())
}

// =============================================================================
// Max rows tests
// =============================================================================

func TestMaxRows(t *testing.T) {
	e := newFakeEngine().returns(selectSQL, idColumn(1, 2, 3, 4, 5))
	ps := prepare(t, e, selectSQL)

	assert.Equal(t, int64(0), ps.MaxRows())
	assert.ErrorIs(t, ps.SetMaxRows(-1), ErrInvalidLength)
	require.NoError(t, ps.SetMaxRows(2))

	cur, err := ps.ExecuteQuery()
	require.NoError(t, err)
	assert.Equal(t, 2, cur.RowCount())
	assert.Equal(t, int64(2), e.maxRows[len(e.maxRows)-1])
}

func TestMaxRowsFromConnector(t *testing.T) {
	e := newFakeEngine().returns(selectSQL, idColumn(1, 2, 3))
	ps := prepare(t, e, selectSQL, WithMaxRows(1))

	assert.Equal(t, int64(1), ps.MaxRows())
	cur, err := ps.ExecuteQuery()
	require.NoError(t, err)
	assert.Equal(t, 1, cur.RowCount())
}

// =============================================================================
// Close tests
// =============================================================================

func TestStatementClose(t *testing.T) {
	e := newFakeEngine().returns(selectSQL, idColumn(1))
	ps := prepare(t, e, selectSQL)
	cur, err := ps.ExecuteQuery()
	require.NoError(t, err)

	require.NoError(t, ps.Close())
	assert.True(t, ps.IsClosed())
	assert.True(t, cur.IsClosed())
	assert.Nil(t, ps.ResultSet())
	assert.Equal(t, 0, e.openStatements())
	assert.Equal(t, 0, e.openResults())

	// Closing again is a no-op.
	require.NoError(t, ps.Close())
	assert.Equal(t, 1, e.cleanedStmt)

	_, err = ps.Execute()
	assert.ErrorIs(t, err, ErrStatementClosed)
	assert.ErrorIs(t, ps.SetMaxRows(1), ErrStatementClosed)
	assert.ErrorIs(t, ps.CloseOnCompletion(), ErrStatementClosed)
	assert.ErrorIs(t, ps.Cancel(), ErrStatementClosed)
	_, err = ps.ParameterMetaData()
	assert.ErrorIs(t, err, ErrStatementClosed)
}

func TestCloseOnCompletion(t *testing.T) {
	e := newFakeEngine().returns(selectSQL, idColumn(1))
	ps := prepare(t, e, selectSQL)
	require.NoError(t, ps.CloseOnCompletion())
	assert.True(t, ps.IsCloseOnCompletion())

	cur, err := ps.ExecuteQuery()
	require.NoError(t, err)
	require.NoError(t, cur.Close())
	assert.True(t, ps.IsClosed())
	assert.Equal(t, 0, e.openStatements())
}

// A result replaced by re-execution does not count as completion.
func TestCloseOnCompletionIgnoresReplacedResult(t *testing.T) {
	e := newFakeEngine().returns(selectSQL, idColumn(1))
	ps := prepare(t, e, selectSQL, WithCloseOnCompletion(true))
	assert.True(t, ps.IsCloseOnCompletion())

	_, err := ps.ExecuteQuery()
	require.NoError(t, err)
	_, err = ps.ExecuteQuery()
	require.NoError(t, err)
	assert.False(t, ps.IsClosed())
}

func TestCloseOnCompletionUpdateDoesNotClose(t *testing.T) {
	ps := prepare(t, newFakeEngine(), updateSQL)
	require.NoError(t, ps.CloseOnCompletion())
	_, err := ps.ExecuteUpdate()
	require.NoError(t, err)
	assert.False(t, ps.IsClosed())
}

// =============================================================================
// Prepare tests
// =============================================================================

func TestPrepareFailure(t *testing.T) {
	conn := newTestConn(t, newFakeEngine())
	_, err := conn.PrepareStatement("SELECT SYNTAX ERROR")
	assert.True(t, IsEngineError(err))
}

func TestPrepareUnsupportedParameterType(t *testing.T) {
	const sql = "SELECT ?"
	e := newFakeEngine().declare(sql, ColumnType(42))
	conn := newTestConn(t, e)

	_, err := conn.PrepareStatement(sql)
	assert.ErrorIs(t, err, ErrUnsupportedType)
	assert.Equal(t, 0, e.openStatements())
}

func TestPreparedStatementQuery(t *testing.T) {
	ps := prepare(t, newFakeEngine(), selectSQL)
	assert.Equal(t, selectSQL, ps.Query())
}

// =============================================================================
// Parameter metadata tests
// =============================================================================

func TestParameterMetaData(t *testing.T) {
	const sql = "SELECT ?, ?, ?, ?"
	e := newFakeEngine().declare(sql, TypeInt32, TypeString, TypeInt128, TypeUnknown)
	ps := prepare(t, e, sql)

	md, err := ps.ParameterMetaData()
	require.NoError(t, err)
	assert.Equal(t, 4, md.ParameterCount())

	typ, err := md.ParameterType(1)
	require.NoError(t, err)
	assert.Equal(t, SQLInteger, typ)

	name, err := md.ParameterTypeName(2)
	require.NoError(t, err)
	assert.Equal(t, "str", name)

	typ, err = md.ParameterType(3)
	require.NoError(t, err)
	assert.Equal(t, SQLNumeric, typ)

	native, err := md.NativeType(3)
	require.NoError(t, err)
	assert.Equal(t, TypeInt128, native)

	_, err = md.ParameterType(4)
	assert.ErrorIs(t, err, ErrUnsupportedType)

	signed, err := md.IsSigned(1)
	require.NoError(t, err)
	assert.True(t, signed)
	signed, err = md.IsSigned(2)
	require.NoError(t, err)
	assert.False(t, signed)

	goType, err := md.ParameterGoType(1)
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeOf(int32(0)), goType)
	goType, err = md.ParameterGoType(3)
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeOf(Decimal{}), goType)

	mode, err := md.ParameterMode(2)
	require.NoError(t, err)
	assert.Equal(t, ParamModeIn, mode)

	nullable, err := md.IsNullable(2)
	require.NoError(t, err)
	assert.Equal(t, NullableUnknown, nullable)

	for _, index := range []int{0, 5} {
		_, err := md.ParameterType(index)
		assert.ErrorIs(t, err, ErrParameterIndexOutOfRange)
		_, err = md.ParameterMode(index)
		assert.ErrorIs(t, err, ErrParameterIndexOutOfRange)
		_, _, err = md.Value(index)
		assert.ErrorIs(t, err, ErrParameterIndexOutOfRange)
	}
}
