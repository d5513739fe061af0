package cobs

import "math"

// CalcSignatureSizeRatio returns the number of Bloom filter bits needed
// per inserted element for the given number of hash functions and target
// false positive rate.
func CalcSignatureSizeRatio(numHashes uint64, falsePositiveRate float64) float64 {
	h := float64(numHashes)
	return -h / math.Log(1-math.Pow(falsePositiveRate, 1/h))
}

// CalcSignatureSize returns the Bloom filter size in bits for numElements
// inserted elements, rounded up to the next multiple of 8 so rows pack
// into whole bytes.
func CalcSignatureSize(numElements, numHashes uint64, falsePositiveRate float64) uint64 {
	ratio := CalcSignatureSizeRatio(numHashes, falsePositiveRate)
	size := uint64(math.Ceil(float64(numElements) * ratio))
	return (size + 7) / 8 * 8
}
