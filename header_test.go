package cobs

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestHeaderRoundtrip(t *testing.T) {
	for _, tc := range []struct {
		name string
		hdr  Header
	}{
		{
			name: "classic",
			hdr: Header{
				Kind:          KindClassic,
				TermSize:      31,
				Canonicalize:  true,
				NumHashes:     3,
				SignatureSize: 65536,
				DocNames:      []string{"doc1", "doc2", "doc3"},
			},
		},
		{
			name: "classic empty",
			hdr: Header{
				Kind:          KindClassic,
				TermSize:      31,
				NumHashes:     1,
				SignatureSize: 8,
			},
		},
		{
			name: "compact",
			hdr: Header{
				Kind:           KindCompact,
				TermSize:       19,
				Canonicalize:   true,
				NumHashes:      1,
				PageSize:       16,
				SignatureSizes: []uint64{128, 256, 1024},
				DocNames:       []string{"a", "b", "c", "d"},
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			data, err := tc.hdr.Marshal()
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			got, n, err := ReadHeader(bytes.NewReader(data))
			if err != nil {
				t.Fatalf("ReadHeader: %v", err)
			}
			if n != uint64(len(data)) {
				t.Errorf("consumed %d bytes, header is %d", n, len(data))
			}
			if d := cmp.Diff(&tc.hdr, got); d != "" {
				t.Errorf("header mismatch (-want +got):\n%s", d)
			}
		})
	}
}

func TestHeaderErrors(t *testing.T) {
	good, err := (&Header{
		Kind:          KindClassic,
		TermSize:      31,
		NumHashes:     1,
		SignatureSize: 64,
		DocNames:      []string{"doc"},
	}).Marshal()
	if err != nil {
		t.Fatal(err)
	}

	bad := append([]byte("BOGUS"), good[5:]...)
	if _, _, err := ReadHeader(bytes.NewReader(bad)); err == nil {
		t.Error("ReadHeader accepted a bad magic")
	}

	truncated := good[:len(good)-2]
	if _, _, err := ReadHeader(bytes.NewReader(truncated)); err == nil {
		t.Error("ReadHeader accepted a truncated header")
	}

	wrongVersion := append([]byte{}, good...)
	wrongVersion[6] = 99
	if _, _, err := ReadHeader(bytes.NewReader(wrongVersion)); err == nil {
		t.Error("ReadHeader accepted a wrong format version")
	}
}

func TestHeaderSizes(t *testing.T) {
	h := &Header{
		Kind:           KindCompact,
		TermSize:       31,
		NumHashes:      1,
		PageSize:       16,
		SignatureSizes: []uint64{64, 128},
		DocNames:       make([]string, 18),
	}
	for i := range h.DocNames {
		h.DocNames[i] = "d"
	}
	if got := h.PageBytes(); got != 2 {
		t.Errorf("PageBytes = %d, want 2", got)
	}
	if got := h.RowSize(); got != 4 {
		t.Errorf("RowSize = %d, want 4", got)
	}
	if got := h.PayloadSize(); got != 64*2+128*2 {
		t.Errorf("PayloadSize = %d, want %d", got, 64*2+128*2)
	}

	c := &Header{Kind: KindClassic, TermSize: 31, NumHashes: 1, SignatureSize: 64, DocNames: make([]string, 9)}
	if got := c.RowSize(); got != 2 {
		t.Errorf("classic RowSize = %d, want 2", got)
	}
}
