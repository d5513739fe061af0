package cobs_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iqbal-lab-org/cobs"
	"github.com/iqbal-lab-org/cobs/index"
)

// buildTestIndex constructs a small classic index: doc1 holds real
// content, doc2 is too short to contribute any k-mer.
func buildTestIndex(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "doc1.txt"), []byte("ACGTACGTAC"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "doc2.txt"), []byte("ACG"), 0o644))
	docs, err := index.NewDocumentList(dir, index.FileTypeText)
	require.NoError(t, err)

	p := index.ClassicIndexParameters{}
	p.SetDefaults()
	p.TermSize = 5
	p.SignatureSize = 256
	p.NumThreads = 1
	out := filepath.Join(t.TempDir(), "index.cobs_classic")
	require.NoError(t, index.ClassicConstruct(docs, out, "", p))
	return out
}

func openSearch(t *testing.T, path string) *cobs.Search {
	t.Helper()
	idx, err := cobs.OpenIndex(path, cobs.OpenOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return cobs.NewSearch([]cobs.IndexSearchFile{idx}, cobs.SearchOptions{Threads: 2})
}

func TestProcessQueryInline(t *testing.T) {
	s := openSearch(t, buildTestIndex(t))

	var out bytes.Buffer
	require.NoError(t, cobs.ProcessQuery(s, 0, 0, "GTACG", "", &out))
	require.Equal(t, "doc1\t1\n", out.String())
}

func TestProcessQueryFileOutput(t *testing.T) {
	indexFile := buildTestIndex(t)
	s := openSearch(t, indexFile)

	queryFile := filepath.Join(t.TempDir(), "queries.fa")
	content := ">hit\nACGTACGTAC\n>miss\nACG\n"
	require.NoError(t, os.WriteFile(queryFile, []byte(content), 0o644))

	var out bytes.Buffer
	require.NoError(t, cobs.ProcessQuery(s, 0, 0, "", queryFile, &out))

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Equal(t, []string{
		"*hit\t1",
		"doc1\t6",
		"*miss\t0",
	}, lines)
}

func TestProcessQueryNeedsInput(t *testing.T) {
	s := openSearch(t, buildTestIndex(t))
	require.Error(t, cobs.ProcessQuery(s, 0, 0, "", "", &bytes.Buffer{}))
}

func TestSearchAcrossMultipleIndices(t *testing.T) {
	path := buildTestIndex(t)
	a, err := cobs.OpenIndex(path, cobs.OpenOptions{})
	require.NoError(t, err)
	defer a.Close()
	// the same index twice is queried twice, results concatenated
	b, err := cobs.OpenIndex(path, cobs.OpenOptions{})
	require.NoError(t, err)
	defer b.Close()

	s := cobs.NewSearch([]cobs.IndexSearchFile{a, b}, cobs.SearchOptions{})
	res, err := s.Search("GTACG", 0, 0)
	require.NoError(t, err)
	require.Len(t, res, 2)
	require.Equal(t, res[0], res[1])
}

func TestSearchThresholdOutOfRange(t *testing.T) {
	s := openSearch(t, buildTestIndex(t))
	_, err := s.Search("ACGTACGTAC", 1.5, 0)
	require.Error(t, err)
}

func TestSearchTimerPhases(t *testing.T) {
	s := openSearch(t, buildTestIndex(t))
	_, err := s.Search("ACGTACGTAC", 0, 0)
	require.NoError(t, err)

	var buf bytes.Buffer
	s.Timer().Fprint(&buf, "search")
	for _, phase := range []string{"hashes", "io", "and rows", "add rows", "sort results"} {
		if !strings.Contains(buf.String(), phase+"=") {
			t.Errorf("phase %q missing from %q", phase, buf.String())
		}
	}
}
