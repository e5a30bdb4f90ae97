package monetdbe

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"math"
	"math/big"
	"reflect"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openDB returns a database/sql handle over e.
func openDB(t *testing.T, e Engine, opts ...ConnectorOption) *sql.DB {
	t.Helper()
	connector, err := NewConnector(":memory:", append([]ConnectorOption{WithEngine(e)}, opts...)...)
	require.NoError(t, err)
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

const itemsSQL = "SELECT id, name, price, created, active, note FROM items"

func itemsEngine() *fakeEngine {
	return newFakeEngine().returns(itemsSQL,
		col("id", TypeInt32, []int32{1, 2}),
		col("name", TypeString, []string{"Alice", "中文"}),
		decimalCol("price", TypeInt64, 10, 2, []int64{1299, 5}),
		col("created", TypeDate, []Date{{2024, 1, 15}, {2024, 2, 20}}),
		col("active", TypeBool, []bool{true, false}),
		col("note", TypeString, []string{"", "vip"}, 0),
	)
}

// =============================================================================
// database/sql tests
// =============================================================================

func TestDriverRegistered(t *testing.T) {
	assert.Contains(t, sql.Drivers(), DriverName)
}

func TestQueryScan(t *testing.T) {
	db := openDB(t, itemsEngine())

	rows, err := db.Query(itemsSQL)
	require.NoError(t, err)
	defer rows.Close()

	cols, err := rows.Columns()
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "price", "created", "active", "note"}, cols)

	type item struct {
		id      int
		name    string
		price   string
		created time.Time
		active  bool
		note    sql.NullString
	}
	var got []item
	for rows.Next() {
		var it item
		require.NoError(t, rows.Scan(&it.id, &it.name, &it.price, &it.created, &it.active, &it.note))
		got = append(got, it)
	}
	require.NoError(t, rows.Err())

	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].id)
	assert.Equal(t, "Alice", got[0].name)
	assert.Equal(t, "12.99", got[0].price)
	assert.True(t, got[0].created.Equal(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)))
	assert.True(t, got[0].active)
	assert.False(t, got[0].note.Valid)

	assert.Equal(t, "中文", got[1].name)
	assert.Equal(t, "0.05", got[1].price)
	assert.False(t, got[1].active)
	assert.Equal(t, sql.NullString{String: "vip", Valid: true}, got[1].note)
}

func TestQueryWithArgsClosesStatement(t *testing.T) {
	e := newFakeEngine().on(selectSQL, func(params []interface{}) (outcome, error) {
		return outcome{cols: []ColumnData{idColumn(int32(params[0].(int64)) + 1)}}, nil
	})
	db := openDB(t, e)

	var id int
	require.NoError(t, db.QueryRow(selectSQL, 41).Scan(&id))
	assert.Equal(t, 42, id)
	assert.Equal(t, 0, e.openStatements())
	assert.Equal(t, 0, e.openResults())
}

func TestQueryNoRows(t *testing.T) {
	db := openDB(t, newFakeEngine())

	rows, err := db.Query("DELETE FROM t")
	require.NoError(t, err)
	assert.False(t, rows.Next())
	require.NoError(t, rows.Close())

	var v int
	err = db.QueryRow("DELETE FROM t WHERE id = ?", 1).Scan(&v)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestExec(t *testing.T) {
	e := newFakeEngine().on(updateSQL, func([]interface{}) (outcome, error) {
		return outcome{affected: 3}, nil
	})
	db := openDB(t, e)

	res, err := db.Exec(updateSQL, "x", 7)
	require.NoError(t, err)
	n, err := res.RowsAffected()
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, []interface{}{"x", int64(7)}, e.lastExecuted(t))

	_, err = res.LastInsertId()
	assert.ErrorIs(t, err, ErrNotSupported)

	res, err = db.Exec("CREATE TABLE t (i INT)")
	require.NoError(t, err)
	n, err = res.RowsAffected()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestExecDiscardsRows(t *testing.T) {
	e := newFakeEngine().returns(selectSQL, idColumn(1))
	db := openDB(t, e)

	res, err := db.Exec(selectSQL, 1)
	require.NoError(t, err)
	n, err := res.RowsAffected()
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
	assert.Equal(t, 0, e.openResults())
}

func TestExecEngineError(t *testing.T) {
	e := newFakeEngine().on("DROP TABLE missing", func([]interface{}) (outcome, error) {
		return outcome{}, NewEngineError("no such table 'missing'")
	})
	db := openDB(t, e)

	_, err := db.Exec("DROP TABLE missing")
	require.Error(t, err)
	assert.True(t, IsEngineError(err))
	assert.Contains(t, err.Error(), "no such table")
}

func TestNamedArguments(t *testing.T) {
	const rewritten = "UPDATE t SET a = ?, b = ? WHERE c = ?"
	e := newFakeEngine()
	db := openDB(t, e)

	_, err := db.Exec("UPDATE t SET a = :a, b = :b WHERE c = :a", sql.Named("b", "two"), sql.Named("a", 1))
	require.NoError(t, err)
	assert.Equal(t, []interface{}{int64(1), "two", int64(1)}, e.lastExecuted(t))

	// Positional arguments follow the order names first appear in.
	_, err = db.Exec("UPDATE t SET a = :a, b = :b WHERE c = :a", 3, "four")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{int64(3), "four", int64(3)}, e.lastExecuted(t))

	_, err = db.Exec("UPDATE t SET a = :a, b = :b WHERE c = :a", sql.Named("zzz", 1))
	assert.ErrorIs(t, err, ErrParameterIndexOutOfRange)

	_, err = db.Exec(rewritten, sql.Named("a", 1))
	assert.ErrorIs(t, err, ErrParameterIndexOutOfRange)
}

func TestPreparedStmtReuse(t *testing.T) {
	e := newFakeEngine().on(selectSQL, func(params []interface{}) (outcome, error) {
		return outcome{cols: []ColumnData{col("v", TypeString, []string{params[0].(string)})}}, nil
	})
	db := openDB(t, e)

	stmt, err := db.Prepare(selectSQL)
	require.NoError(t, err)
	defer stmt.Close()

	for _, want := range []string{"a", "b", "c"} {
		var got string
		require.NoError(t, stmt.QueryRow(want).Scan(&got))
		assert.Equal(t, want, got)
	}
	assert.Equal(t, 0, e.openResults())

	_, err = stmt.Exec()
	assert.Error(t, err, "argument count is checked")
}

// Closing the rows of a prepared statement does not close the statement,
// even when statements close on completion.
func TestPreparedStmtReuseWithCloseOnCompletion(t *testing.T) {
	e := newFakeEngine().on(selectSQL, func(params []interface{}) (outcome, error) {
		return outcome{cols: []ColumnData{col("v", TypeString, []string{params[0].(string)})}}, nil
	})
	db := openDB(t, e, WithCloseOnCompletion(true))

	stmt, err := db.Prepare(selectSQL)
	require.NoError(t, err)
	defer stmt.Close()

	for _, want := range []string{"a", "b", "c"} {
		rows, err := stmt.Query(want)
		require.NoError(t, err)
		require.True(t, rows.Next())
		var got string
		require.NoError(t, rows.Scan(&got))
		assert.Equal(t, want, got)
		require.NoError(t, rows.Close())
	}
	assert.Equal(t, 0, e.openResults())
	assert.Equal(t, 1, e.openStatements())
	assert.Zero(t, e.cleanedStmt)

	var got string
	require.NoError(t, db.QueryRow(selectSQL, "once").Scan(&got))
	assert.Equal(t, "once", got)
	assert.Equal(t, 1, e.openStatements())
}

func TestColumnTypes(t *testing.T) {
	e := newFakeEngine().returns("SELECT *",
		col("id", TypeInt16, []int16{1}),
		decimalCol("price", TypeInt64, 10, 2, []int64{1}),
		func() ColumnData {
			c := col("name", TypeString, []string{"x"})
			c.TypeName = "varchar"
			c.Digits = 100
			return c
		}(),
		col("h", TypeInt128, []*big.Int{big.NewInt(1)}),
		col("at", TypeTimestamp, []time.Time{time.Now()}),
		col("r", TypeFloat, []float32{1}),
	)
	db := openDB(t, e)

	rows, err := db.Query("SELECT *")
	require.NoError(t, err)
	defer rows.Close()

	types, err := rows.ColumnTypes()
	require.NoError(t, err)
	require.Len(t, types, 6)

	assert.Equal(t, "INT16", types[0].DatabaseTypeName())
	assert.Equal(t, reflect.TypeOf(int64(0)), types[0].ScanType())
	_, _, ok := types[0].DecimalSize()
	assert.False(t, ok)

	assert.Equal(t, "DECIMAL", types[1].DatabaseTypeName())
	assert.Equal(t, reflect.TypeOf(""), types[1].ScanType())
	precision, scale, ok := types[1].DecimalSize()
	require.True(t, ok)
	assert.Equal(t, int64(10), precision)
	assert.Equal(t, int64(2), scale)

	assert.Equal(t, "VARCHAR", types[2].DatabaseTypeName())
	length, ok := types[2].Length()
	require.True(t, ok)
	assert.Equal(t, int64(100), length)
	_, ok = types[2].Nullable()
	assert.False(t, ok)

	assert.Equal(t, reflect.TypeOf(""), types[3].ScanType())
	assert.Equal(t, reflect.TypeOf(time.Time{}), types[4].ScanType())
	assert.Equal(t, reflect.TypeOf(float64(0)), types[5].ScanType())
	_, ok = types[0].Length()
	assert.False(t, ok)
}

func TestPing(t *testing.T) {
	e := newFakeEngine()
	db := openDB(t, e)
	require.NoError(t, db.Ping())
	assert.Contains(t, e.queries, "SELECT 1")
}

// =============================================================================
// Transaction tests
// =============================================================================

func TestTxCommit(t *testing.T) {
	e := newFakeEngine()
	db := openDB(t, e)

	tx, err := db.Begin()
	require.NoError(t, err)
	_, err = tx.Exec("INSERT INTO t VALUES (1)")
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	assert.Equal(t, []string{"INSERT INTO t VALUES (1)", "COMMIT"}, e.queries)
	for h, on := range e.autocommit {
		assert.True(t, on, "database %d", h)
	}
}

func TestTxRollback(t *testing.T) {
	e := newFakeEngine()
	db := openDB(t, e)

	tx, err := db.BeginTx(context.Background(), &sql.TxOptions{Isolation: sql.LevelSerializable})
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())
	assert.Equal(t, []string{"ROLLBACK"}, e.queries)

	// The connection is usable again afterwards.
	require.NoError(t, db.Ping())
}

func TestTxOptionsRejected(t *testing.T) {
	db := openDB(t, newFakeEngine())

	_, err := db.BeginTx(context.Background(), &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	assert.ErrorIs(t, err, ErrNotSupported)

	_, err = db.BeginTx(context.Background(), &sql.TxOptions{ReadOnly: true})
	assert.ErrorIs(t, err, ErrNotSupported)
}

// =============================================================================
// Raw connection tests
// =============================================================================

func TestRawConnection(t *testing.T) {
	db := openDB(t, itemsEngine())
	conn, err := db.Conn(context.Background())
	require.NoError(t, err)
	defer conn.Close()

	err = conn.Raw(func(dc any) error {
		c := dc.(*Conn)
		ps, err := c.PrepareStatement(itemsSQL)
		if err != nil {
			return err
		}
		defer ps.Close()

		cur, err := ps.ExecuteQuery()
		if err != nil {
			return err
		}
		if _, err := cur.Last(); err != nil {
			return err
		}
		name, err := cur.GetStringByLabel("name")
		if err != nil {
			return err
		}
		assert.Equal(t, "中文", name)
		return nil
	})
	require.NoError(t, err)
}

func TestRowsCursor(t *testing.T) {
	db := openDB(t, itemsEngine())
	conn, err := db.Conn(context.Background())
	require.NoError(t, err)
	defer conn.Close()

	err = conn.Raw(func(dc any) error {
		r, err := dc.(*Conn).QueryContext(context.Background(), itemsSQL, nil)
		if err != nil {
			return err
		}
		defer r.Close()
		cur := r.(*Rows).Cursor()
		require.NotNil(t, cur)
		assert.Nil(t, cur.Statement())
		assert.Equal(t, 2, cur.RowCount())
		return nil
	})
	require.NoError(t, err)
}

// =============================================================================
// Conn lifecycle tests
// =============================================================================

func TestConnCloseReleasesStatements(t *testing.T) {
	e := newFakeEngine().returns(selectSQL, idColumn(1))
	conn := newTestConn(t, e)
	ps, err := conn.PrepareStatement(selectSQL)
	require.NoError(t, err)
	_, err = ps.ExecuteQuery()
	require.NoError(t, err)

	require.NoError(t, conn.Close())
	assert.True(t, ps.IsClosed())
	assert.Equal(t, 0, e.openStatements())
	assert.Equal(t, 0, e.openResults())
	assert.Empty(t, e.open)
	assert.False(t, conn.IsValid())

	require.NoError(t, conn.Close())
	_, err = conn.PrepareStatement(selectSQL)
	assert.ErrorIs(t, err, driver.ErrBadConn)
	_, err = conn.Begin()
	assert.ErrorIs(t, err, driver.ErrBadConn)
	_, err = conn.Autocommit()
	assert.ErrorIs(t, err, driver.ErrBadConn)
	assert.ErrorIs(t, conn.Ping(context.Background()), driver.ErrBadConn)
}

func TestConnTransactionState(t *testing.T) {
	conn := newTestConn(t, newFakeEngine())

	on, err := conn.Autocommit()
	require.NoError(t, err)
	assert.True(t, on)

	tx, err := conn.BeginTx(context.Background(), driver.TxOptions{})
	require.NoError(t, err)
	on, err = conn.Autocommit()
	require.NoError(t, err)
	assert.False(t, on)

	_, err = conn.Begin()
	assert.ErrorIs(t, err, ErrNotSupported)
	assert.ErrorIs(t, conn.ResetSession(context.Background()), driver.ErrBadConn)

	require.NoError(t, tx.Commit())
	require.NoError(t, tx.Rollback(), "ending twice is a no-op")
	assert.NoError(t, conn.ResetSession(context.Background()))
	on, err = conn.Autocommit()
	require.NoError(t, err)
	assert.True(t, on)
}

func TestStmtNumInput(t *testing.T) {
	conn := newTestConn(t, newFakeEngine())

	st, err := conn.Prepare("SELECT ?, ?")
	require.NoError(t, err)
	defer st.Close()
	assert.Equal(t, 2, st.NumInput())

	named, err := conn.Prepare("SELECT :a")
	require.NoError(t, err)
	defer named.Close()
	assert.Equal(t, -1, named.NumInput())
}

func TestCanceledContext(t *testing.T) {
	conn := newTestConn(t, newFakeEngine())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := conn.ExecContext(ctx, "SELECT 1", nil)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = conn.QueryContext(ctx, "SELECT 1", nil)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = conn.PrepareContext(ctx, "SELECT 1")
	assert.ErrorIs(t, err, context.Canceled)
}

// =============================================================================
// Value conversion tests
// =============================================================================

func TestDriverValue(t *testing.T) {
	huge, _ := new(big.Int).SetString("99999999999999999999", 10)
	tests := []struct {
		name string
		in   interface{}
		want driver.Value
	}{
		{"int8", int8(-1), int64(-1)},
		{"int16", int16(2), int64(2)},
		{"int32", int32(3), int64(3)},
		{"small uint64", uint64(4), int64(4)},
		{"large uint64", uint64(math.MaxUint64), "18446744073709551615"},
		{"float32", float32(0.5), float64(0.5)},
		{"big int", huge, "99999999999999999999"},
		{"decimal", NewDecimalFromInt64(-105, 1), "-10.5"},
		{"date", Date{2024, 5, 6}, time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)},
		{"time", Time{Hour: 7, Minute: 8}, time.Date(0, 1, 1, 7, 8, 0, 0, time.UTC)},
		{"string", "s", "s"},
		{"nil", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, driverValue(tt.in))
		})
	}
}

// =============================================================================
// sqlx tests
// =============================================================================

func TestSqlx(t *testing.T) {
	sqlx.BindDriver(DriverName, sqlx.QUESTION)
	e := itemsEngine()
	db := sqlx.NewDb(openDB(t, e), DriverName)

	type item struct {
		ID      int64          `db:"id"`
		Name    string         `db:"name"`
		Price   string         `db:"price"`
		Created time.Time      `db:"created"`
		Active  bool           `db:"active"`
		Note    sql.NullString `db:"note"`
	}
	var items []item
	require.NoError(t, db.Select(&items, itemsSQL))
	require.Len(t, items, 2)
	assert.Equal(t, item{
		ID:      2,
		Name:    "中文",
		Price:   "0.05",
		Created: time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC),
		Active:  false,
		Note:    sql.NullString{String: "vip", Valid: true},
	}, items[1])

	_, err := db.NamedExec("INSERT INTO items (id, name) VALUES (:id, :name)", item{ID: 9, Name: "new"})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{int64(9), "new"}, e.lastExecuted(t))

	query, args, err := sqlx.In("SELECT * FROM items WHERE id IN (?)", []int{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM items WHERE id IN (?, ?, ?)", db.Rebind(query))
	assert.Len(t, args, 3)
}
