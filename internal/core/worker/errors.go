package worker

import "errors"

// storeErr marks a record-store failure. Provider and input errors fail a
// single payment; a storeErr aborts the whole pass without flipping batch
// status, so the next sweep re-attempts the batch.
type storeErr struct{ err error }

func (e *storeErr) Error() string { return "store: " + e.err.Error() }
func (e *storeErr) Unwrap() error { return e.err }

func wrapStore(err error) error {
	if err == nil {
		return nil
	}
	return &storeErr{err: err}
}

func isStoreErr(err error) bool {
	var se *storeErr
	return errors.As(err, &se)
}
