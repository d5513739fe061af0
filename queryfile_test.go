package cobs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"
)

type queryRecord struct {
	Name, Sequence string
}

func collectQueryRecords(t *testing.T, path string) []queryRecord {
	t.Helper()
	var got []queryRecord
	err := ProcessQueryFile(path, func(name, sequence string) error {
		got = append(got, queryRecord{name, sequence})
		return nil
	})
	require.NoError(t, err)
	return got
}

func TestProcessQueryFileFasta(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queries.fa")
	content := ">query1 some comment\nACGTACGT\nACGT\n" +
		"; a stray comment line\n" +
		">query2\nTTTT\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	want := []queryRecord{
		{"query1", "ACGTACGTACGT"},
		{"query2", "TTTT"},
	}
	if d := cmp.Diff(want, collectQueryRecords(t, path)); d != "" {
		t.Errorf("records mismatch (-want +got):\n%s", d)
	}
}

func TestProcessQueryFileFastq(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queries.fq")
	content := "@read1\nACGTACGT\n+\nIIIIIIII\n@read2 desc\nGGCC\n+\n@@@@\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	want := []queryRecord{
		{"read1", "ACGTACGT"},
		{"read2", "GGCC"},
	}
	if d := cmp.Diff(want, collectQueryRecords(t, path)); d != "" {
		t.Errorf("records mismatch (-want +got):\n%s", d)
	}
}

func TestProcessQueryFileGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queries.fa.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte(">query1\nACGT\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	want := []queryRecord{{"query1", "ACGT"}}
	if d := cmp.Diff(want, collectQueryRecords(t, path)); d != "" {
		t.Errorf("records mismatch (-want +got):\n%s", d)
	}
}

func TestProcessQueryFileUnknownFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queries.txt")
	require.NoError(t, os.WriteFile(path, []byte("ACGTACGT\n"), 0o644))
	err := ProcessQueryFile(path, func(string, string) error { return nil })
	if err == nil {
		t.Error("ProcessQueryFile accepted a headerless file")
	}
}
