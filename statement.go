package monetdbe

// Update count values reported in place of a row count.
const (
	// SuccessNoInfo marks a statement that succeeded without reporting how
	// many rows it changed.
	SuccessNoInfo int64 = -2
	// ExecuteFailed marks a statement that failed.
	ExecuteFailed int64 = -3
)

// PreparedStatement is a precompiled SQL statement with parameters
// numbered from 1. It holds the bound parameters, the queued batch and the
// result of the last execution.
//
// A PreparedStatement and the Cursor it returns are not safe for
// concurrent use; callers serialize access themselves.
type PreparedStatement struct {
	conn   *Conn
	handle StatementHandle
	query  string
	params *parameterSet
	batch  [][]paramSlot

	updateCount       int64
	result            *Cursor
	maxRows           int64
	closeOnCompletion bool
	closed            bool
}

// newPreparedStatement prepares query. A statement handle the engine hands
// back is released again if anything after Prepare fails.
func newPreparedStatement(c *Conn, query string) (_ *PreparedStatement, err error) {
	info, err := c.engine.Prepare(c.db, query)
	if err != nil {
		c.logger.Debug("prepare failed", "sql", query, "err", err)
		return nil, err
	}
	defer func() {
		if err != nil {
			if cerr := c.engine.CleanupStatement(c.db, info.Handle); cerr != nil {
				c.logger.Warn("statement cleanup failed", "err", cerr)
			}
		}
	}()
	types := make([]ColumnType, len(info.ParamTypes))
	for i, t := range info.ParamTypes {
		if t != TypeUnknown && !t.valid() {
			return nil, newError(CodeUnsupportedType, "parameter %d has unsupported type %s", i+1, t)
		}
		types[i] = t
	}
	c.logger.Debug("statement prepared", "sql", query, "params", len(types))
	return &PreparedStatement{
		conn:              c,
		handle:            info.Handle,
		query:             query,
		params:            newParameterSet(types, info.ParamScales),
		updateCount:       -1,
		maxRows:           c.maxRows,
		closeOnCompletion: c.closeOnCompletion,
	}, nil
}

func (s *PreparedStatement) checkOpen() error {
	if s.closed {
		return newError(CodeStatementClosed, "statement is closed")
	}
	return nil
}

// Query returns the SQL text the statement was prepared from.
func (s *PreparedStatement) Query() string {
	return s.query
}

// ParameterMetaData describes the statement parameters.
func (s *PreparedStatement) ParameterMetaData() (*ParameterMetaData, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	return &ParameterMetaData{stmt: s}, nil
}

// Execute runs the statement with the bound parameters. It reports true
// when the statement produced rows, available from ResultSet, and false
// when it produced an update count, available from UpdateCount. A previous
// result still open is closed.
//
// When the engine fails, the update count and result of the previous
// execution are left as they were.
func (s *PreparedStatement) Execute() (bool, error) {
	if err := s.checkOpen(); err != nil {
		return false, err
	}
	if err := s.rebind(); err != nil {
		return false, err
	}
	return s.execute()
}

// rebind sends every parameter to the engine again, NULL for the unset
// ones, so nothing cleared or replayed by a batch stays bound.
func (s *PreparedStatement) rebind() error {
	for i, slot := range s.params.slots {
		if slot.set {
			if err := s.bindCanonical(i+1, slot.value, slot.nullType); err != nil {
				return err
			}
			continue
		}
		if err := s.conn.engine.BindNull(s.conn.db, slot.nullType, s.handle, i); err != nil {
			return err
		}
	}
	return nil
}

func (s *PreparedStatement) execute() (bool, error) {
	res, err := s.conn.engine.Execute(s.handle, true, s.maxRows)
	if err != nil {
		s.conn.logger.Debug("execute failed", "sql", s.query, "err", err)
		return false, err
	}
	prev := s.result
	if res.Result != 0 {
		cur, err := newCursor(s.conn, res, s)
		if err != nil {
			return false, err
		}
		s.result, s.updateCount = cur, -1
	} else {
		s.result, s.updateCount = nil, res.Affected
		if res.Affected < 0 {
			s.updateCount = SuccessNoInfo
		}
	}
	if prev != nil && !prev.closed {
		if err := prev.close(false); err != nil {
			s.conn.logger.Warn("closing previous result failed", "err", err)
		}
	}
	return s.result != nil, nil
}

// ExecuteQuery runs a statement that must produce rows.
func (s *PreparedStatement) ExecuteQuery() (*Cursor, error) {
	hasResult, err := s.Execute()
	if err != nil {
		return nil, err
	}
	if !hasResult {
		return nil, newError(CodeNoResultSet, "query did not produce a result set")
	}
	return s.result, nil
}

// ExecuteUpdate runs a statement that must not produce rows and returns
// the number of rows it changed.
func (s *PreparedStatement) ExecuteUpdate() (int, error) {
	n, err := s.ExecuteLargeUpdate()
	return int(n), err
}

// ExecuteLargeUpdate is ExecuteUpdate with an int64 count.
func (s *PreparedStatement) ExecuteLargeUpdate() (int64, error) {
	hasResult, err := s.Execute()
	if err != nil {
		return 0, err
	}
	if hasResult {
		if err := s.result.close(false); err != nil {
			s.conn.logger.Warn("closing unexpected result failed", "err", err)
		}
		s.result = nil
		return 0, newError(CodeResultSetProduced, "query produced a result set")
	}
	return s.updateCount, nil
}

// UpdateCount returns the row count of the last execution, -1 when it
// produced rows, or SuccessNoInfo.
func (s *PreparedStatement) UpdateCount() int {
	return int(s.updateCount)
}

// LargeUpdateCount is UpdateCount with an int64 count.
func (s *PreparedStatement) LargeUpdateCount() int64 {
	return s.updateCount
}

// ResultSet returns the result of the last execution, or nil.
func (s *PreparedStatement) ResultSet() *Cursor {
	return s.result
}

// SetMaxRows limits the number of rows a result holds; 0 means no limit.
func (s *PreparedStatement) SetMaxRows(n int64) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if n < 0 {
		return newError(CodeInvalidLength, "max rows must not be negative, got %d", n)
	}
	s.maxRows = n
	return nil
}

func (s *PreparedStatement) MaxRows() int64 {
	return s.maxRows
}

// CloseOnCompletion makes the statement close itself when its result is
// closed.
func (s *PreparedStatement) CloseOnCompletion() error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	s.closeOnCompletion = true
	return nil
}

func (s *PreparedStatement) IsCloseOnCompletion() bool {
	return s.closeOnCompletion
}

// Cancel does nothing: execution cannot be interrupted.
func (s *PreparedStatement) Cancel() error {
	return s.checkOpen()
}

// IsClosed reports whether Close has been called.
func (s *PreparedStatement) IsClosed() bool {
	return s.closed
}

// resultClosed is called by a Cursor this statement produced.
func (s *PreparedStatement) resultClosed(c *Cursor) error {
	if s.result != c {
		return nil
	}
	s.result = nil
	if s.closeOnCompletion && !s.closed {
		return s.Close()
	}
	return nil
}

// Close closes the open result, if any, and releases the native
// statement. Closing a closed statement does nothing.
func (s *PreparedStatement) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	var err error
	if s.result != nil && !s.result.closed {
		err = s.result.close(false)
	}
	s.result = nil
	s.params = nil
	s.batch = nil
	if cerr := s.conn.engine.CleanupStatement(s.conn.db, s.handle); cerr != nil && err == nil {
		err = cerr
	}
	s.handle = 0
	s.conn.forget(s)
	s.conn.logger.Debug("statement closed", "sql", s.query)
	return err
}
