package cobs

// forwardMap fixes A, C, G, T and maps every other byte to 'A' so that
// non-ACGT bases never abort a query. acgtMap records which bytes were
// mapped faithfully.
var (
	forwardMap [256]byte
	reverseMap [256]byte
	acgtMap    [256]bool
)

func init() {
	for i := range forwardMap {
		forwardMap[i] = 'A'
		reverseMap[i] = 'T'
	}
	for _, c := range []byte{'A', 'C', 'G', 'T'} {
		forwardMap[c] = c
		acgtMap[c] = true
	}
	reverseMap['A'] = 'T'
	reverseMap['T'] = 'A'
	reverseMap['C'] = 'G'
	reverseMap['G'] = 'C'
}

// Canonicalize writes the canonical form of the DNA k-mer term into out:
// the lexicographically smaller of the k-mer and its reverse complement
// under A<->T, C<->G. out must have len(term) bytes. The return value is
// false if any input byte is not one of A, C, G, T; such bytes map to 'A'
// (forward) or 'T' (reverse complement) and the k-mer is still usable.
//
// The scan compares the forward-mapped byte at position i with the
// reverse-complement-mapped byte at position k-1-i, working inward and
// including the middle byte of odd k. The first strict inequality
// decides which side is emitted as a whole; a full tie (palindrome)
// emits the forward form. This keeps the canonical form of a k-mer and
// of its reverse complement identical for every k.
func Canonicalize(term, out []byte) bool {
	k := len(term)
	good := true

	i := 0
	for ; i < (k+1)/2; i++ {
		f := forwardMap[term[i]]
		r := reverseMap[term[k-1-i]]
		good = good && acgtMap[term[i]] && acgtMap[term[k-1-i]]

		out[i] = f

		if f < r {
			// forward k-mer is smaller, translate the rest
			for i++; i < k; i++ {
				out[i] = forwardMap[term[i]]
				good = good && acgtMap[term[i]]
			}
			return good
		} else if f > r {
			// emit the reverse complement, checking bytes while reversing
			for j := 0; j < k; j++ {
				out[k-1-j] = reverseMap[term[j]]
				good = good && acgtMap[term[j]]
			}
			return good
		}
	}

	// tie on all compared positions, keep the forward k-mer
	for ; i < k; i++ {
		out[i] = forwardMap[term[i]]
		good = good && acgtMap[term[i]]
	}
	return good
}
