package monetdbe

import (
	"database/sql/driver"
)

// Tx implements driver.Tx for transaction support
type Tx struct {
	conn *Conn
}

// Commit commits the transaction.
// If the commit succeeds, autocommit is re-enabled for subsequent operations.
func (t *Tx) Commit() error {
	return t.end("COMMIT")
}

// Rollback rolls back the transaction.
// If the rollback succeeds, autocommit is re-enabled for subsequent operations.
func (t *Tx) Rollback() error {
	return t.end("ROLLBACK")
}

func (t *Tx) end(verb string) error {
	c := t.conn
	if !c.inTx {
		return nil // Already committed or rolled back
	}
	if c.closed {
		return driver.ErrBadConn
	}

	res, err := c.engine.Query(c.db, verb)
	c.inTx = false
	if err != nil {
		c.logger.Debug("transaction end failed", "verb", verb, "err", err)
		return err
	}
	if res.Result != 0 {
		if err := c.engine.CleanupResult(c.db, res.Result); err != nil {
			c.logger.Warn("result cleanup failed", "err", err)
		}
	}

	// Re-enable autocommit (the transaction is over, so this is best-effort)
	if err := c.engine.SetAutocommit(c.db, true); err != nil {
		c.logger.Warn("re-enabling autocommit failed", "err", err)
	}
	return nil
}

// Ensure Tx implements driver.Tx
var _ driver.Tx = (*Tx)(nil)
