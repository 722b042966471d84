package store

import "errors"

// ErrContended reports that another writer holds the in-progress generation
// slot for this target. The default caller policy is to fall back to
// uncached execution rather than block across processes.
var ErrContended = errors.New("store: another writer holds this cache target")

// ErrGenerationLost reports that an in-progress generation disappeared
// before commit - typically reaped as stale by another process. The caller
// treats the write as aborted; the prior complete generation stays active.
var ErrGenerationLost = errors.New("store: in-progress generation was reaped before commit")
