package index

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iqbal-lab-org/cobs"
)

func TestBuildBloomNoFalseNegatives(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")
	writeFile(t, path, "ACGTACGTTGCATTGACCAGTT")
	doc := &DocumentEntry{Name: "doc", Path: path, Type: FileTypeText}

	const (
		termSize      = 5
		signatureSize = 512
		numHashes     = 3
	)
	bits, err := BuildBloom(doc, termSize, true, signatureSize, numHashes)
	require.NoError(t, err)
	require.Len(t, bits, signatureSize/8)

	// every inserted k-mer must find all of its bits set
	canonical := make([]byte, termSize)
	require.NoError(t, doc.ProcessTerms(termSize, func(term []byte) {
		cobs.Canonicalize(term, canonical)
		cobs.ForEachHash(canonical, numHashes, func(h uint64) {
			h %= signatureSize
			if bits[h/8]&(1<<(h%8)) == 0 {
				t.Errorf("bit %d of k-mer %s not set", h, term)
			}
		})
	}))
}

func TestBuildBloomDeterministic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")
	writeFile(t, path, "ACGTACGTTGCATTGACCAGTT")
	doc := &DocumentEntry{Name: "doc", Path: path, Type: FileTypeText}

	a, err := BuildBloom(doc, 5, true, 256, 2)
	require.NoError(t, err)
	b, err := BuildBloom(doc, 5, true, 256, 2)
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestBuildBloomEmptyDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")
	writeFile(t, path, "ACG")
	doc := &DocumentEntry{Name: "doc", Path: path, Type: FileTypeText}

	bits, err := BuildBloom(doc, 5, true, 64, 1)
	require.NoError(t, err)
	for _, b := range bits {
		require.Zero(t, b)
	}
}
