package snapcache

import "errors"

// ErrRebuildFailed reports that a snapshot rebuild failed and no earlier
// snapshot was available to serve in its place.
var ErrRebuildFailed = errors.New("snapshot rebuild failed")
