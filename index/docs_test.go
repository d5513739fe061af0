package index

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func collectTerms(t *testing.T, e *DocumentEntry, k uint64) []string {
	t.Helper()
	var terms []string
	require.NoError(t, e.ProcessTerms(k, func(term []byte) {
		terms = append(terms, string(term))
	}))
	return terms
}

func TestDocumentListWalk(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.txt"), "ACGTACGT")
	writeFile(t, filepath.Join(dir, "a.fa"), ">r\nACGT\n")
	writeFile(t, filepath.Join(dir, "sub", "c.fq"), "@r\nACGT\n+\n!!!!\n")
	writeFile(t, filepath.Join(dir, "ignored.bin"), "junk")

	docs, err := NewDocumentList(dir, FileTypeAny)
	require.NoError(t, err)

	var got []string
	for _, d := range docs {
		got = append(got, d.Name)
	}
	if d := cmp.Diff([]string{"a", "b", "c"}, got); d != "" {
		t.Errorf("document names (-want +got):\n%s", d)
	}

	fastaOnly, err := NewDocumentList(dir, FileTypeFasta)
	require.NoError(t, err)
	require.Len(t, fastaOnly, 1)
	require.Equal(t, "a", fastaOnly[0].Name)
}

func TestTextTerms(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")
	writeFile(t, path, "ACGTAC")
	e := &DocumentEntry{Name: "doc", Path: path, Type: FileTypeText}

	n, err := e.NumTerms(4)
	require.NoError(t, err)
	require.Equal(t, uint64(3), n)

	want := []string{"ACGT", "CGTA", "GTAC"}
	if d := cmp.Diff(want, collectTerms(t, e, 4)); d != "" {
		t.Errorf("terms (-want +got):\n%s", d)
	}

	// shorter than k yields no terms
	short := filepath.Join(dir, "short.txt")
	writeFile(t, short, "ACG")
	se := &DocumentEntry{Name: "short", Path: short, Type: FileTypeText}
	n, err = se.NumTerms(4)
	require.NoError(t, err)
	require.Equal(t, uint64(0), n)
}

func TestFastaTermsRecordBoundaries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.fa")
	writeFile(t, path, ">r1\nACGTA\nCGT\n>r2\nTTTTT\n")
	e := &DocumentEntry{Name: "doc", Path: path, Type: FileTypeFasta}

	// windows span lines within a record but never cross records
	want := []string{"ACGT", "CGTA", "GTAC", "TACG", "ACGT", "TTTT", "TTTT"}
	if d := cmp.Diff(want, collectTerms(t, e, 4)); d != "" {
		t.Errorf("terms (-want +got):\n%s", d)
	}

	n, err := e.NumTerms(4)
	require.NoError(t, err)
	require.Equal(t, uint64(len(want)), n)
}

func TestFastqTerms(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.fq")
	// quality lines may start with '@' and must not be mistaken for headers
	writeFile(t, path, "@r1\nACGTA\n+\n@@@@@\n@r2\nGGGG\n+\nIIII\n")
	e := &DocumentEntry{Name: "doc", Path: path, Type: FileTypeFastq}

	want := []string{"ACGT", "CGTA", "GGGG"}
	if d := cmp.Diff(want, collectTerms(t, e, 4)); d != "" {
		t.Errorf("terms (-want +got):\n%s", d)
	}
}

func TestGzippedDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte("ACGTAC"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	e := &DocumentEntry{Name: "doc", Path: path, Type: FileTypeText}
	want := []string{"ACGT", "CGTA", "GTAC"}
	if d := cmp.Diff(want, collectTerms(t, e, 4)); d != "" {
		t.Errorf("terms (-want +got):\n%s", d)
	}
	n, err := e.NumTerms(4)
	require.NoError(t, err)
	require.Equal(t, uint64(3), n)
}

func TestListFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "x.txt"), "ACGTACGT")
	writeFile(t, filepath.Join(dir, "y.fa"), ">r\nACGT\n")
	writeFile(t, filepath.Join(dir, "docs.list"),
		"x.txt\ty-renamed\n"+
			"# a comment\n"+
			filepath.Join(dir, "y.fa")+"\n")

	docs, err := NewDocumentList(filepath.Join(dir, "docs.list"), FileTypeAny)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	require.Equal(t, "y-renamed", docs[0].Name)
	require.Equal(t, FileTypeText, docs[0].Type)
	require.Equal(t, "y", docs[1].Name)
	require.Equal(t, FileTypeFasta, docs[1].Type)
}
