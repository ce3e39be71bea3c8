package analysis

import "errors"

var (
	// ErrMalformedTransfer indicates a transfer record is missing a required field
	ErrMalformedTransfer = errors.New("malformed transfer")

	// ErrFetchFailed marks a wallet whose transfer history could not be collected
	ErrFetchFailed = errors.New("wallet fetch failed")
)
