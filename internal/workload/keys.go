package workload

import "encoding/binary"

// EncodeKey turns a row ordinal into the fixed-width big-endian byte
// key the core's comparator orders numerically. Ordinal 0 is never
// used: it is reserved the way rowstore.TxnID reserves 0 for "absent".
func EncodeKey(ordinal uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, ordinal)
	return buf
}

// DecodeKey reverses EncodeKey.
func DecodeKey(key []byte) uint64 {
	return binary.BigEndian.Uint64(key)
}

const (
	smallValueMax = 64
	// largeValueThreshold marks the size above which a generated value
	// exercises the arena's handling of oversized payloads (SPEC_FULL.md
	// §7, grounded on original_source/test/format/ops.c's val_len).
	largeValueThreshold = 4096
	largeValueMax       = 16384
)
