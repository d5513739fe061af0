package cobs

import (
	"testing"
)

// reverseComplement is an independent reference implementation for the
// tests.
func reverseComplement(s string) string {
	comp := map[byte]byte{'A': 'T', 'T': 'A', 'C': 'G', 'G': 'C'}
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		out[len(s)-1-i] = comp[s[i]]
	}
	return string(out)
}

func TestCanonicalize(t *testing.T) {
	for _, tc := range []struct {
		input string
		want  string
		good  bool
	}{
		// forward already smaller
		{"ACGTA", "ACGTA", true},
		// reverse complement smaller: RC(TTTT) = AAAA
		{"TTTT", "AAAA", true},
		// palindromes (TGCA and ACGT are their own reverse
		// complements), forward emitted
		{"TGCA", "TGCA", true},
		{"ACGT", "ACGT", true},
		// odd length with deciding middle byte
		{"AAT", "AAT", true},
		{"TTA", "TAA", true},
		// non-ACGT maps to A/T and flags the k-mer
		{"ACNGT", "", false},
		{"acgt", "", false},
		{"AAAAN", "", false},
	} {
		out := make([]byte, len(tc.input))
		good := Canonicalize([]byte(tc.input), out)
		if good != tc.good {
			t.Errorf("Canonicalize(%q) good=%v want %v", tc.input, good, tc.good)
		}
		if tc.good && string(out) != tc.want {
			t.Errorf("Canonicalize(%q) = %q want %q", tc.input, out, tc.want)
		}
	}
}

func TestCanonicalizeAgreesWithReverseComplement(t *testing.T) {
	for _, s := range []string{
		"ACGTACGTACG", "TTTTTTT", "GATTACA", "CCCCGGGG",
		"ACGT", "A", "T", "AT", "TA", "AGT", "GCGCGC",
	} {
		k := len(s)
		fwd := make([]byte, k)
		rev := make([]byte, k)
		if !Canonicalize([]byte(s), fwd) {
			t.Fatalf("Canonicalize(%q) flagged good ACGT input", s)
		}
		if !Canonicalize([]byte(reverseComplement(s)), rev) {
			t.Fatalf("Canonicalize(%q) flagged good ACGT input", reverseComplement(s))
		}
		if string(fwd) != string(rev) {
			t.Errorf("canonical form of %q and its reverse complement disagree: %q vs %q", s, fwd, rev)
		}

		// the canonical form must be the smaller of the two strands
		want := s
		if rc := reverseComplement(s); rc < want {
			want = rc
		}
		if string(fwd) != want {
			t.Errorf("Canonicalize(%q) = %q, want min of strands %q", s, fwd, want)
		}
	}
}

func TestCanonicalizeIdempotent(t *testing.T) {
	for _, s := range []string{"ACGTACGT", "TTTTACGT", "GATTACA", "TGCATGCA"} {
		once := make([]byte, len(s))
		twice := make([]byte, len(s))
		Canonicalize([]byte(s), once)
		Canonicalize(once, twice)
		if string(once) != string(twice) {
			t.Errorf("canonicalization of %q not idempotent: %q then %q", s, once, twice)
		}
	}
}

func TestHashTermDeterministic(t *testing.T) {
	term := []byte("ACGTACGTACGTACGTACGTACGTACGTACG")
	if HashTerm(term, 0) != HashTerm(term, 0) {
		t.Error("HashTerm not deterministic")
	}
	if HashTerm(term, 0) == HashTerm(term, 1) {
		t.Error("HashTerm seeds 0 and 1 collide")
	}

	var hashes []uint64
	ForEachHash(term, 4, func(h uint64) { hashes = append(hashes, h) })
	if len(hashes) != 4 {
		t.Fatalf("ForEachHash produced %d hashes, want 4", len(hashes))
	}
	for i, h := range hashes {
		if h != HashTerm(term, uint64(i)) {
			t.Errorf("ForEachHash seed %d disagrees with HashTerm", i)
		}
	}
}

func TestCalcSignatureSize(t *testing.T) {
	// 1 hash at 30% FPR needs -1/ln(0.7) = 2.80 bits per element
	if got := CalcSignatureSize(1, 1, 0.3); got != 8 {
		t.Errorf("CalcSignatureSize(1, 1, 0.3) = %d, want 8", got)
	}
	if got := CalcSignatureSize(1000, 1, 0.3); got != 2808 {
		t.Errorf("CalcSignatureSize(1000, 1, 0.3) = %d, want 2808", got)
	}

	for _, numHashes := range []uint64{1, 2, 4} {
		last := uint64(0)
		for _, n := range []uint64{10, 100, 1000, 10000} {
			got := CalcSignatureSize(n, numHashes, 0.1)
			if got%8 != 0 {
				t.Errorf("CalcSignatureSize(%d, %d, 0.1) = %d, not a multiple of 8", n, numHashes, got)
			}
			if got <= last {
				t.Errorf("signature size not growing with element count: %d after %d", got, last)
			}
			last = got
		}
	}

	// stricter FPR costs more bits
	if CalcSignatureSize(1000, 1, 0.01) <= CalcSignatureSize(1000, 1, 0.3) {
		t.Error("stricter false positive rate did not increase signature size")
	}
}
