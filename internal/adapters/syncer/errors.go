package syncer

import "errors"

// Errors returned by the syncer.
var (
	// ErrClosed reports an update enqueued after Close.
	ErrClosed = errors.New("syncer is closed")
	// ErrFlushFailed reports that a forced flush could not persist the row.
	// The row stays pending and will be retried.
	ErrFlushFailed = errors.New("flush failed")
)
