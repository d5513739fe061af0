package cobs

import "math/rand"

var basePairs = [4]byte{'A', 'C', 'G', 'T'}

// RandomSequence returns a pseudo-random DNA sequence of the given
// length drawn from rng.
func RandomSequence(size int, rng *rand.Rand) []byte {
	s := make([]byte, size)
	for i := range s {
		s[i] = basePairs[rng.Intn(4)]
	}
	return s
}
