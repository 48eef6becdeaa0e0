package workload

import "math/rand"

// GenerateValue produces a value for a fresh insert/update. Most calls
// return a small value; occasionally (roughly one in 200, matching
// ops.c's infrequent overflow-value generation) it returns a large one
// to exercise the arena's handling of oversized payloads.
func GenerateValue(rng *rand.Rand, ordinal uint64) []byte {
	n := smallValueMax
	if rng.Intn(200) == 0 {
		n = largeValueThreshold + rng.Intn(largeValueMax-largeValueThreshold)
	} else {
		n = 8 + rng.Intn(n-8)
	}
	buf := make([]byte, n)
	rng.Read(buf)
	return buf
}
