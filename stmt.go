package monetdbe

import (
	"context"
	"database/sql/driver"
)

// Stmt implements driver.Stmt on top of a PreparedStatement.
type Stmt struct {
	ps    *PreparedStatement
	named *NamedParams
}

// Close closes the statement
func (s *Stmt) Close() error {
	return s.ps.Close()
}

// NumInput returns the number of placeholder parameters, or -1 when the
// query uses named placeholders and database/sql should not count them.
func (s *Stmt) NumInput() int {
	if s.named != nil || s.ps.params == nil {
		return -1
	}
	return s.ps.params.count()
}

// Exec executes a prepared statement (deprecated, use ExecContext)
func (s *Stmt) Exec(args []driver.Value) (driver.Result, error) {
	return s.ExecContext(context.Background(), valuesToNamed(args))
}

// ExecContext executes the statement. Rows it produces are discarded.
func (s *Stmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.ps.closed {
		return nil, driver.ErrBadConn
	}
	if err := s.bindArgs(args); err != nil {
		return nil, err
	}
	hasResult, err := s.ps.Execute()
	if err != nil {
		return nil, err
	}
	if hasResult {
		if err := s.ps.result.close(false); err != nil {
			return nil, err
		}
		s.ps.result = nil
		return &Result{}, nil
	}
	return newResult(s.ps.updateCount), nil
}

// Query executes a prepared query (deprecated, use QueryContext)
func (s *Stmt) Query(args []driver.Value) (driver.Rows, error) {
	return s.QueryContext(context.Background(), valuesToNamed(args))
}

// QueryContext executes the statement and returns its rows. A statement
// that produces no rows yields an empty Rows.
func (s *Stmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.ps.closed {
		return nil, driver.ErrBadConn
	}
	if err := s.bindArgs(args); err != nil {
		return nil, err
	}
	hasResult, err := s.ps.Execute()
	if err != nil {
		return nil, err
	}
	if !hasResult {
		return &Rows{stmt: s.ps}, nil
	}
	return &Rows{cursor: s.ps.result, stmt: s.ps}, nil
}

// bindArgs binds every argument through the parameter binder. Named
// arguments, and positional arguments of a query written with named
// placeholders, are bound to every position their name occurs at.
func (s *Stmt) bindArgs(args []driver.NamedValue) error {
	if err := s.ps.ClearParameters(); err != nil {
		return err
	}
	for _, arg := range args {
		positions := []int{arg.Ordinal}
		if s.named != nil {
			name := arg.Name
			if name == "" {
				if arg.Ordinal < 1 || arg.Ordinal > len(s.named.Names) {
					return newError(CodeParameterIndexOutOfRange, "parameter index %d out of range [1,%d]", arg.Ordinal, len(s.named.Names))
				}
				name = s.named.Names[arg.Ordinal-1]
			}
			var ok bool
			if positions, ok = s.named.Positions[name]; !ok {
				return newError(CodeParameterIndexOutOfRange, "no parameter named %q", name)
			}
		} else if arg.Name != "" {
			return newError(CodeParameterIndexOutOfRange, "named argument %q used with positional placeholders", arg.Name)
		}
		for _, pos := range positions {
			if err := s.ps.SetObject(pos, arg.Value); err != nil {
				return err
			}
		}
	}
	return nil
}

func valuesToNamed(args []driver.Value) []driver.NamedValue {
	named := make([]driver.NamedValue, len(args))
	for i, arg := range args {
		named[i] = driver.NamedValue{Ordinal: i + 1, Value: arg}
	}
	return named
}

// Ensure Stmt implements the required interfaces
var (
	_ driver.Stmt             = (*Stmt)(nil)
	_ driver.StmtExecContext  = (*Stmt)(nil)
	_ driver.StmtQueryContext = (*Stmt)(nil)
)
