package inventory

import (
	"context"
	"sync"
)

// Hold records one variant hold created by a reservation batch.
type Hold struct {
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

// Ledger associates a batch of holds with an opaque reservation ID for later
// release. Take must remove and return the holds atomically per key so a
// release racing a duplicate release consumes the entry exactly once.
type Ledger interface {
	Put(ctx context.Context, reservationID string, holds []Hold) error
	// Take removes and returns the holds for an ID. Unknown IDs return
	// (nil, false, nil).
	Take(ctx context.Context, reservationID string) ([]Hold, bool, error)
}

// MemoryLedger is the process-local ledger. Correct only when every request
// for a reservation ID reaches the same process; multi-instance deployments
// use the Redis ledger instead.
type MemoryLedger struct {
	entries sync.Map // reservation id -> []Hold
}

// NewMemoryLedger creates an in-process ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{}
}

// Put stores the holds under the reservation ID.
func (l *MemoryLedger) Put(_ context.Context, reservationID string, holds []Hold) error {
	l.entries.Store(reservationID, holds)
	return nil
}

// Take removes and returns the holds. LoadAndDelete keeps the remove atomic
// per key, so concurrent releases of the same ID see it at most once.
func (l *MemoryLedger) Take(_ context.Context, reservationID string) ([]Hold, bool, error) {
	v, ok := l.entries.LoadAndDelete(reservationID)
	if !ok {
		return nil, false, nil
	}
	return v.([]Hold), true, nil
}
