package cobs

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"os"

	// cross-platform memory-mapped file package, benchmarks the same
	// speed as a raw unix mmap
	mmap "github.com/edsrzf/mmap-go"
	"github.com/schollz/progressbar/v3"
)

// indexData holds the raw bytes of an index file, either memory-mapped
// or fully loaded into RAM, plus how to release them.
type indexData struct {
	name  string
	data  []byte
	close func() error
}

func (d *indexData) slice(off, sz uint64) ([]byte, error) {
	if off+sz < off || off+sz > uint64(len(d.data)) {
		return nil, fmt.Errorf("out of bounds: %d, len %d, name %s", off+sz, len(d.data), d.name)
	}
	return d.data[off : off+sz], nil
}

// OpenOptions selects how index files are opened.
type OpenOptions struct {
	// LoadComplete reads the whole index into RAM instead of memory
	// mapping it. Better for batch workloads where random mmap
	// faults would thrash.
	LoadComplete bool
}

// mmapData maps the file read-only with random-access advice. The index
// file takes ownership of f and closes it; the mapping stays valid.
func mmapData(f *os.File) (*indexData, error) {
	defer f.Close()

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("unable to memory map %s: %w", f.Name(), err)
	}
	madviseRandom(m)

	return &indexData{
		name: f.Name(),
		data: m,
		close: func() error {
			return m.Unmap()
		},
	}, nil
}

// oneGiB is the chunk size for whole-index loads.
const oneGiB = 1 << 30

// loadData reads size bytes from r into an anonymous buffer in 1 GiB
// chunks. Transparent huge pages are requested where the platform
// supports the hint; elsewhere this silently degrades to a plain buffer.
func loadData(name string, r io.Reader, size int64) (*indexData, error) {
	log.Printf("reading complete index %s (%d bytes)", name, size)
	buf := make([]byte, size)
	madviseHugePage(buf)

	bar := progressbar.DefaultBytes(size, "load index")
	var pos int64
	for pos < size {
		chunk := size - pos
		if chunk > oneGiB {
			chunk = oneGiB
		}
		n, err := io.ReadFull(r, buf[pos:pos+chunk])
		pos += int64(n)
		_ = bar.Add64(int64(n))
		if err != nil {
			return nil, fmt.Errorf("reading index %s at %d: %w", name, pos, err)
		}
	}
	_ = bar.Finish()

	return &indexData{
		name:  name,
		data:  buf,
		close: func() error { return nil },
	}, nil
}

func openData(path string, opts OpenOptions) (*indexData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !opts.LoadComplete {
		return mmapData(f)
	}

	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	return loadData(path, f, fi.Size())
}

// OpenIndex opens an index file for searching. The layout (classic or
// compact) is detected from the header, and the access mode is chosen
// by opts.
func OpenIndex(path string, opts OpenOptions) (IndexSearchFile, error) {
	d, err := openData(path, opts)
	if err != nil {
		return nil, err
	}
	s, err := newSearchFile(d)
	if err != nil {
		_ = d.close()
		return nil, err
	}
	return s, nil
}

// OpenIndexStream opens an index of known size streamed from r, loading
// it completely into RAM. This serves batch setups that pipe indices
// into the process instead of giving it files.
func OpenIndexStream(name string, r io.Reader, size int64) (IndexSearchFile, error) {
	d, err := loadData(name, r, size)
	if err != nil {
		return nil, err
	}
	s, err := newSearchFile(d)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func newSearchFile(d *indexData) (IndexSearchFile, error) {
	h, payloadOff, err := ReadHeader(bytes.NewReader(d.data))
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", d.name, err)
	}
	if want, got := h.PayloadSize(), uint64(len(d.data))-payloadOff; got < want {
		return nil, fmt.Errorf("index %s: truncated payload: have %d bytes, want %d", d.name, got, want)
	}

	switch h.Kind {
	case KindClassic:
		return &classicSearchFile{hdr: h, d: d, payloadOff: payloadOff}, nil
	case KindCompact:
		s := &compactSearchFile{hdr: h, d: d}
		s.partOffsets = make([]uint64, h.NumPartitions())
		off := payloadOff
		for i, sig := range h.SignatureSizes {
			s.partOffsets[i] = off
			off += sig * h.PageBytes()
		}
		return s, nil
	}
	return nil, fmt.Errorf("index %s: unknown kind", d.name)
}
