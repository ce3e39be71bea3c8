package report

import "errors"

// ErrNotAvailable indicates a value has no finite representation
var ErrNotAvailable = errors.New("value not available")
