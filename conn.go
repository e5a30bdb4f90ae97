package monetdbe

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"log/slog"
)

// Conn implements driver.Conn and represents one open embedded database.
// The JDBC-style API is reached through PrepareStatement, for example via
// sql.Conn.Raw.
//
// A Conn is not safe for concurrent use; database/sql already serializes
// access to each connection.
type Conn struct {
	engine Engine
	db     DatabaseHandle
	logger *slog.Logger

	maxRows           int64
	closeOnCompletion bool

	stmts  map[*PreparedStatement]struct{}
	inTx   bool
	closed bool
}

// PrepareStatement prepares query for use with the JDBC-style API.
func (c *Conn) PrepareStatement(query string) (*PreparedStatement, error) {
	if c.closed {
		return nil, driver.ErrBadConn
	}
	ps, err := newPreparedStatement(c, query)
	if err != nil {
		return nil, err
	}
	c.stmts[ps] = struct{}{}
	return ps, nil
}

func (c *Conn) forget(ps *PreparedStatement) {
	delete(c.stmts, ps)
}

// Prepare prepares a statement for execution
func (c *Conn) Prepare(query string) (driver.Stmt, error) {
	return c.PrepareContext(context.Background(), query)
}

// PrepareContext prepares a statement. Named placeholders (:name) are
// rewritten to positional ones.
func (c *Conn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	named := ParseNamedParams(query)
	sqlText := query
	if named != nil {
		sqlText = named.Query
	}
	ps, err := c.PrepareStatement(sqlText)
	if err != nil {
		return nil, err
	}
	return &Stmt{ps: ps, named: named}, nil
}

// Close closes every open statement and the database.
func (c *Conn) Close() error {
	if c.closed {
		return nil
	}
	var firstErr error
	for ps := range c.stmts {
		if err := ps.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.closed = true
	if err := c.engine.Close(c.db); err != nil && firstErr == nil {
		firstErr = err
	}
	c.db = 0
	c.logger.Debug("connection closed")
	return firstErr
}

// Begin starts a new transaction (deprecated, use BeginTx)
func (c *Conn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

// BeginTx starts a transaction by switching autocommit off. The engine
// only provides serializable isolation.
func (c *Conn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	if c.closed {
		return nil, driver.ErrBadConn
	}
	if c.inTx {
		return nil, newError(CodeNotSupported, "already in a transaction")
	}
	switch sql.IsolationLevel(opts.Isolation) {
	case sql.LevelDefault, sql.LevelSerializable:
	default:
		return nil, newError(CodeNotSupported, "isolation level %s is not supported", sql.IsolationLevel(opts.Isolation))
	}
	if opts.ReadOnly {
		return nil, newError(CodeNotSupported, "read-only transactions are not supported")
	}
	if err := c.engine.SetAutocommit(c.db, false); err != nil {
		return nil, err
	}
	c.inTx = true
	return &Tx{conn: c}, nil
}

// Autocommit reports whether the engine commits after every statement.
func (c *Conn) Autocommit() (bool, error) {
	if c.closed {
		return false, driver.ErrBadConn
	}
	return c.engine.Autocommit(c.db)
}

// Ping verifies the database still answers a query
func (c *Conn) Ping(ctx context.Context) error {
	if c.closed {
		return driver.ErrBadConn
	}
	res, err := c.engine.Query(c.db, "SELECT 1")
	if err != nil {
		return err
	}
	if res.Result != 0 {
		return c.engine.CleanupResult(c.db, res.Result)
	}
	return nil
}

// ExecContext executes a query without returning rows
func (c *Conn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(args) > 0 {
		stmt, err := c.PrepareContext(ctx, query)
		if err != nil {
			return nil, err
		}
		defer stmt.Close()
		return stmt.(*Stmt).ExecContext(ctx, args)
	}

	if c.closed {
		return nil, driver.ErrBadConn
	}
	res, err := c.engine.Query(c.db, query)
	if err != nil {
		return nil, err
	}
	if res.Result != 0 {
		if err := c.engine.CleanupResult(c.db, res.Result); err != nil {
			return nil, err
		}
		return &Result{}, nil
	}
	return newResult(res.Affected), nil
}

// QueryContext executes a query that returns rows
func (c *Conn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(args) > 0 {
		stmt, err := c.PrepareContext(ctx, query)
		if err != nil {
			return nil, err
		}
		rows, err := stmt.(*Stmt).QueryContext(ctx, args)
		if err != nil {
			stmt.Close()
			return nil, err
		}
		rows.(*Rows).closeStmt = true
		return rows, nil
	}

	if c.closed {
		return nil, driver.ErrBadConn
	}
	res, err := c.engine.Query(c.db, query)
	if err != nil {
		return nil, err
	}
	if res.Result == 0 {
		return &Rows{}, nil
	}
	cur, err := newCursor(c, res, nil)
	if err != nil {
		return nil, err
	}
	return &Rows{cursor: cur}, nil
}

// ResetSession is called before a connection is reused
func (c *Conn) ResetSession(ctx context.Context) error {
	if c.closed || c.inTx {
		return driver.ErrBadConn
	}
	return nil
}

// IsValid returns true if the connection is valid
func (c *Conn) IsValid() bool {
	return !c.closed && c.db != 0
}

// CheckNamedValue accepts every value as is; the parameter binder decides
// what it can convert.
func (c *Conn) CheckNamedValue(nv *driver.NamedValue) error {
	return nil
}

// Raw is the target of sql.Conn.Raw callbacks:
//
//	conn.Raw(func(dc any) error {
//		ps, err := dc.(*monetdbe.Conn).PrepareStatement("...")
//		...
//	})
var (
	_ driver.Conn               = (*Conn)(nil)
	_ driver.ConnPrepareContext = (*Conn)(nil)
	_ driver.ConnBeginTx        = (*Conn)(nil)
	_ driver.Pinger             = (*Conn)(nil)
	_ driver.ExecerContext      = (*Conn)(nil)
	_ driver.QueryerContext     = (*Conn)(nil)
	_ driver.SessionResetter    = (*Conn)(nil)
	_ driver.Validator          = (*Conn)(nil)
	_ driver.NamedValueChecker  = (*Conn)(nil)
)
