package processors

import (
	"fmt"
	"sort"

	"github.com/username/pitfolio/src/models"
)

// InsufficientLotsError reports a disposal of more units than are queued
// under a key. It signals malformed or out-of-order input (a sale recorded
// before its matching acquisition rows were loaded) and is never clamped.
type InsufficientLotsError struct {
	Key       string
	Requested int
	Available int
}

func (e *InsufficientLotsError) Error() string {
	return fmt.Sprintf("cannot dispose %d lot(s) under %q: only %d available",
		e.Requested, e.Key, e.Available)
}

// LotInventory holds per-key FIFO queues of acquired lots. Insertion order is
// acquisition order; a disposal always consumes the oldest lots first. The
// inventory is owned by a single aggregation run and is not safe for
// concurrent use.
type LotInventory struct {
	lots map[string][]models.Lot
}

func NewLotInventory() *LotInventory {
	return &LotInventory{lots: make(map[string][]models.Lot)}
}

// Acquire appends a lot to the tail of the queue for its key.
func (inv *LotInventory) Acquire(key string, lot models.Lot) {
	inv.lots[key] = append(inv.lots[key], lot)
}

// Dispose removes and returns the count oldest lots for key, in acquisition
// order. Ownership of the returned lots passes to the caller. When fewer than
// count lots are queued the inventory is left untouched and an
// InsufficientLotsError is returned.
func (inv *LotInventory) Dispose(key string, count int) ([]models.Lot, error) {
	queued := inv.lots[key]
	if len(queued) < count {
		return nil, &InsufficientLotsError{Key: key, Requested: count, Available: len(queued)}
	}
	disposed := queued[:count]
	remaining := queued[count:]
	if len(remaining) == 0 {
		delete(inv.lots, key)
	} else {
		inv.lots[key] = remaining
	}
	return disposed, nil
}

// Remaining returns the number of lots still queued under key.
func (inv *LotInventory) Remaining(key string) int {
	return len(inv.lots[key])
}

// Keys returns the keys that still have queued lots, sorted for stable
// iteration.
func (inv *LotInventory) Keys() []string {
	keys := make([]string, 0, len(inv.lots))
	for key := range inv.lots {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Lots returns a copy of the queued lots for key in acquisition order,
// without consuming them. Mutating the returned slice leaves the queue
// untouched.
func (inv *LotInventory) Lots(key string) []models.Lot {
	queued := inv.lots[key]
	if len(queued) == 0 {
		return nil
	}
	out := make([]models.Lot, len(queued))
	copy(out, queued)
	return out
}
