package monetdbe

import (
	"github.com/pkg/errors"
)

// AddBatch queues a copy of the current parameters and resets them, so a
// value bound for one entry never carries over into the next.
func (s *PreparedStatement) AddBatch() error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	s.batch = append(s.batch, s.params.snapshot())
	s.params.reset()
	return nil
}

// ClearBatch drops every queued entry.
func (s *PreparedStatement) ClearBatch() error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	s.batch = nil
	return nil
}

// BatchSize returns the number of queued entries.
func (s *PreparedStatement) BatchSize() int {
	return len(s.batch)
}

// ExecuteBatch is ExecuteLargeBatch with int counts.
func (s *PreparedStatement) ExecuteBatch() ([]int, error) {
	counts, err := s.ExecuteLargeBatch()
	out := make([]int, len(counts))
	for i, n := range counts {
		out[i] = int(n)
	}
	return out, err
}

// ExecuteLargeBatch binds and executes every queued entry in order and
// returns one update count per entry, SuccessNoInfo where the engine gave
// none. It stops at the first entry that fails or produces rows and
// returns a *BatchError holding the counts of the entries before it. The
// queue is empty afterwards either way.
func (s *PreparedStatement) ExecuteLargeBatch() ([]int64, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	entries := s.batch
	s.batch = nil
	live := s.params.snapshot()
	defer copy(s.params.slots, live)
	s.conn.logger.Debug("executing batch", "sql", s.query, "batch_size", len(entries))

	counts := make([]int64, 0, len(entries))
	for i, entry := range entries {
		for j, slot := range entry {
			if err := s.bindCanonical(j+1, slot.value, slot.nullType); err != nil {
				return s.abortBatch(counts, errors.Wrapf(err, "batch entry %d, parameter %d", i+1, j+1))
			}
		}
		hasResult, err := s.execute()
		if err != nil {
			return s.abortBatch(counts, errors.Wrapf(err, "batch entry %d", i+1))
		}
		if hasResult {
			if cerr := s.result.close(false); cerr != nil {
				s.conn.logger.Warn("closing batch result failed", "err", cerr)
			}
			s.result = nil
			return s.abortBatch(counts, newError(CodeBatchAborted, "batch entry %d produced a result set", i+1))
		}
		counts = append(counts, s.updateCount)
	}
	return counts, nil
}

func (s *PreparedStatement) abortBatch(counts []int64, cause error) ([]int64, error) {
	s.conn.logger.Debug("batch aborted", "completed", len(counts), "err", cause)
	return counts, &BatchError{Counts: counts, Err: cause}
}
