package monetdbe

import (
	"database/sql/driver"
)

// Result implements driver.Result for INSERT, UPDATE, DELETE operations
type Result struct {
	rowsAffected int64
}

// newResult turns an engine update count into a Result. A count the engine
// did not report is returned as zero rows.
func newResult(affected int64) *Result {
	if affected < 0 {
		affected = 0
	}
	return &Result{rowsAffected: affected}
}

// LastInsertId is not available from the embedded engine. Use a sequence
// or SELECT the generated key instead.
func (r *Result) LastInsertId() (int64, error) {
	return 0, newError(CodeNotSupported, "LastInsertId is not supported")
}

// RowsAffected returns the number of rows affected by the query
func (r *Result) RowsAffected() (int64, error) {
	return r.rowsAffected, nil
}

// Ensure Result implements driver.Result
var _ driver.Result = (*Result)(nil)
