package cobs

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// HashTerm hashes the canonical term bytes with the given seed. The seed
// is mixed in as an 8 byte little-endian prefix, which gives independent
// hash functions for seeds 0..numHashes-1. The exact scheme is a
// compatibility contract between index construction and querying.
func HashTerm(term []byte, seed uint64) uint64 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], seed)

	var d xxhash.Digest
	d.Reset()
	_, _ = d.Write(buf[:])
	_, _ = d.Write(term)
	return d.Sum64()
}

// ForEachHash calls fn with hash values for seeds 0..numHashes-1.
func ForEachHash(term []byte, numHashes uint64, fn func(uint64)) {
	for i := uint64(0); i < numHashes; i++ {
		fn(HashTerm(term, i))
	}
}
