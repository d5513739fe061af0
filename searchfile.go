package cobs

import "fmt"

// IndexSearchFile is an opened index ready for row fetching. The four
// concrete variants (classic/compact crossed with mmap/loaded) all
// implement this small capability set; FetchRows is the only operation
// the search engine needs beyond the header.
type IndexSearchFile interface {
	// Header returns the parsed index header. Callers must not
	// modify it.
	Header() *Header

	// FetchRows copies, for each hash, the byte range [begin,
	// begin+size) of the row selected by that hash into rows at
	// stride bufferSize. For compact indices begin must be aligned
	// to the page byte width. Violated preconditions are errors.
	FetchRows(hashes []uint64, rows []byte, begin, size, bufferSize uint64) error

	// Close releases the mapping or buffer.
	Close() error
}

type classicSearchFile struct {
	hdr        *Header
	d          *indexData
	payloadOff uint64
}

func (f *classicSearchFile) Header() *Header { return f.hdr }

func (f *classicSearchFile) Close() error { return f.d.close() }

func (f *classicSearchFile) FetchRows(hashes []uint64, rows []byte, begin, size, bufferSize uint64) error {
	rowSize := f.hdr.RowSize()
	if begin+size > rowSize {
		return fmt.Errorf("row fetch [%d,%d) beyond row size %d", begin, begin+size, rowSize)
	}
	if uint64(len(rows)) < uint64(len(hashes))*bufferSize {
		return fmt.Errorf("row buffer too small: %d bytes for %d rows of stride %d", len(rows), len(hashes), bufferSize)
	}
	for i, h := range hashes {
		row := h % f.hdr.SignatureSize
		src, err := f.d.slice(f.payloadOff+row*rowSize+begin, size)
		if err != nil {
			return err
		}
		copy(rows[uint64(i)*bufferSize:], src)
	}
	return nil
}

type compactSearchFile struct {
	hdr *Header
	d   *indexData

	// partOffsets[p] is the absolute byte offset of partition p's slab.
	partOffsets []uint64
}

func (f *compactSearchFile) Header() *Header { return f.hdr }

func (f *compactSearchFile) Close() error { return f.d.close() }

func (f *compactSearchFile) FetchRows(hashes []uint64, rows []byte, begin, size, bufferSize uint64) error {
	pageBytes := f.hdr.PageBytes()
	rowSize := f.hdr.RowSize()
	if begin+size > rowSize {
		return fmt.Errorf("row fetch [%d,%d) beyond row size %d", begin, begin+size, rowSize)
	}
	if begin%pageBytes != 0 {
		return fmt.Errorf("row fetch begin %d not aligned to page width %d", begin, pageBytes)
	}
	if uint64(len(rows)) < uint64(len(hashes))*bufferSize {
		return fmt.Errorf("row buffer too small: %d bytes for %d rows of stride %d", len(rows), len(hashes), bufferSize)
	}

	beginPage := begin / pageBytes
	endPage := (begin + size + pageBytes - 1) / pageBytes
	if endPage > f.hdr.NumPartitions() {
		return fmt.Errorf("row fetch ends at partition %d of %d", endPage, f.hdr.NumPartitions())
	}

	for i, h := range hashes {
		dst := rows[uint64(i)*bufferSize:]
		for p := beginPage; p < endPage; p++ {
			row := h % f.hdr.SignatureSizes[p]
			src, err := f.d.slice(f.partOffsets[p]+row*pageBytes, pageBytes)
			if err != nil {
				return err
			}
			copy(dst[(p-beginPage)*pageBytes:], src)
		}
	}
	return nil
}
