package rowstore

// Key is an immutable byte buffer owned by the node that carries it —
// an insert node's key, once published, outlives every reader that can
// reach the node. Callers must not mutate a slice after handing it to
// the core.
type Key = []byte

// cloneKey copies key bytes into a new buffer so the node owns storage
// independent from whatever arena the caller's positioning pass read
// from.
func cloneKey(key []byte) []byte {
	out := make([]byte, len(key))
	copy(out, key)
	return out
}

// cloneValue copies value bytes the same way, or returns nil for a
// tombstone (is_remove, or a delete of a not-yet-existing key).
func cloneValue(value []byte) []byte {
	if value == nil {
		return nil
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out
}

// Comparator orders two keys the way the page's on-disk format does;
// the core is agnostic to collation, it only ever compares gap
// members against each other.
type Comparator func(a, b []byte) int

// BytesComparator is the default Comparator, lexicographic byte order.
func BytesComparator(a, b []byte) int {
	switch {
	case len(a) < len(b):
		for i := range a {
			if c := int(a[i]) - int(b[i]); c != 0 {
				return sign(c)
			}
		}
		return -1
	case len(a) > len(b):
		for i := range b {
			if c := int(a[i]) - int(b[i]); c != 0 {
				return sign(c)
			}
		}
		return 1
	default:
		for i := range a {
			if c := int(a[i]) - int(b[i]); c != 0 {
				return sign(c)
			}
		}
		return 0
	}
}

func sign(c int) int {
	switch {
	case c < 0:
		return -1
	case c > 0:
		return 1
	default:
		return 0
	}
}
