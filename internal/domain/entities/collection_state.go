package entities

import (
	"time"
)

// CollectionStatus is the phase of a wallet collection run
type CollectionStatus string

const (
	CollectionNotStarted    CollectionStatus = "not-started"
	CollectionFetchingBatch CollectionStatus = "fetching-batch"
	CollectionCheckpointed  CollectionStatus = "checkpointed"
	CollectionComplete      CollectionStatus = "complete"
	CollectionFailed        CollectionStatus = "failed"
)

// CollectionState tracks the progress of a collection run
type CollectionState struct {
	Status      CollectionStatus `json:"status" db:"status"`
	Cursor      int              `json:"cursor" db:"cursor"` // Index of the next address to fetch
	Total       int              `json:"total" db:"total"`
	FailedCount int              `json:"failedCount" db:"failed_count"`
	LastError   string           `json:"lastError,omitempty" db:"last_error"`
	UpdatedAt   time.Time        `json:"updatedAt" db:"updated_at"`
}

// Checkpoint is the persisted result of a collection run so far
type Checkpoint struct {
	State   CollectionState `json:"state"`
	Wallets []WalletInput   `json:"wallets"`
}

var collectionTransitions = map[CollectionStatus][]CollectionStatus{
	CollectionNotStarted:    {CollectionFetchingBatch, CollectionComplete},
	CollectionFetchingBatch: {CollectionFetchingBatch, CollectionCheckpointed, CollectionComplete},
	CollectionCheckpointed:  {CollectionFetchingBatch, CollectionComplete},
	CollectionComplete:      {CollectionFetchingBatch},
	CollectionFailed:        {CollectionFetchingBatch, CollectionComplete},
}

// CanTransition reports whether the collection may move from s to next.
// Every non-terminal phase may fail.
func (s CollectionStatus) CanTransition(next CollectionStatus) bool {
	if next == CollectionFailed {
		return s != CollectionComplete
	}
	for _, allowed := range collectionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
