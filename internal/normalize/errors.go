package normalize

import "errors"

// ErrClosed is returned by Submit once Drain has been called.
var ErrClosed = errors.New("scheduler is closed")

// ErrInvalidJob indicates a job with missing or conflicting paths.
var ErrInvalidJob = errors.New("invalid normalization job")

// ErrSourceRemoval indicates the normalized clip was written but the
// original could not be deleted; the normalized file is rolled back.
var ErrSourceRemoval = errors.New("cannot remove source clip")
