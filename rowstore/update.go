package rowstore

import (
	"sync/atomic"
	"unsafe"
)

// updateFixedSize is the fixed per-record footprint the obsolete
// collector accounts for a reclaimed version; tombstones contribute
// only this much, live payloads add len(Payload) on top.
const updateFixedSize = int64(unsafe.Sizeof(Update{}))

// Update is a single MVCC version record and the head of the singly
// linked version chain it belongs to (component B). New versions are
// pushed at the head by the serialization step; once a node's Next
// becomes non-nil it is only ever truncated to nil by the obsolete
// collector, never repointed at another node.
type Update struct {
	TxnID   TxnID
	Payload []byte // nil encodes a tombstone (delete)
	Next    atomic.Pointer[Update]
}

// NewUpdate allocates an update node outside any lock; the caller
// assigns TxnID via the transaction manager before publication. A nil
// payload marks the version a tombstone.
func NewUpdate(payload []byte) *Update {
	return &Update{Payload: cloneValue(payload)}
}

// Tombstone reports whether this version represents a delete.
func (u *Update) Tombstone() bool { return u.Payload == nil }

// size is the byte footprint used for in-memory accounting at
// allocation time, mirroring the fixed-size-plus-payload rule the
// collector uses when freeing (spec.md §4.7).
func (u *Update) size() int64 {
	if u.Tombstone() {
		return updateFixedSize
	}
	return updateFixedSize + int64(len(u.Payload))
}
