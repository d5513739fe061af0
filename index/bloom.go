package index

import (
	"log"

	"github.com/iqbal-lab-org/cobs"
)

// BuildBloom builds the Bloom filter bitset of a single document: a
// zeroed bitset of ceil(signatureSize/8) bytes with, for every term, the
// numHashes bits h mod signatureSize set. Non-ACGT terms are still
// hashed; they are counted and reported once per document.
func BuildBloom(doc *DocumentEntry, termSize uint64, canonicalize bool, signatureSize, numHashes uint64) ([]byte, error) {
	bits := make([]byte, (signatureSize+7)/8)
	canonical := make([]byte, termSize)
	var badTerms uint64

	err := doc.ProcessTerms(termSize, func(term []byte) {
		if canonicalize {
			if !cobs.Canonicalize(term, canonical) {
				badTerms++
			}
			term = canonical
		}
		cobs.ForEachHash(term, numHashes, func(h uint64) {
			h %= signatureSize
			bits[h/8] |= 1 << (h % 8)
		})
	})
	if badTerms > 0 {
		log.Printf("WARN document %s: %d k-mers with non-ACGT characters", doc.Name, badTerms)
	}
	return bits, err
}
