package cobs

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// IndexKind distinguishes the two on-disk index layouts.
type IndexKind uint8

const (
	// KindClassic is the uniform-width bit-sliced layout.
	KindClassic IndexKind = 1
	// KindCompact is the page-partitioned layout with per-partition
	// Bloom filter widths.
	KindCompact IndexKind = 2
)

func (k IndexKind) String() string {
	switch k {
	case KindClassic:
		return "classic"
	case KindCompact:
		return "compact"
	}
	return fmt.Sprintf("unknown(%d)", uint8(k))
}

const headerMagic = "COBS:"

// HeaderVersion is increased every time the on-disk index format changes.
const HeaderVersion = 1

// Header is the typed tagged record at the start of every index file.
// All integers are little-endian; sizes are unsigned 64-bit. The header
// is self-delimiting, so the layout of a file can be detected by reading
// its header alone.
type Header struct {
	Kind         IndexKind
	TermSize     uint32
	Canonicalize bool
	NumHashes    uint64

	// SignatureSize is the Bloom filter width in bits. Classic only.
	SignatureSize uint64

	// PageSize is the number of documents per partition, a multiple
	// of 8. SignatureSizes holds one Bloom filter width per partition.
	// Compact only.
	PageSize       uint64
	SignatureSizes []uint64

	// DocNames lists the indexed documents in global document order.
	DocNames []string
}

// NumDocuments returns the number of indexed documents.
func (h *Header) NumDocuments() uint64 {
	return uint64(len(h.DocNames))
}

// PageBytes returns the byte width of one row within any partition of a
// compact index.
func (h *Header) PageBytes() uint64 {
	return h.PageSize / 8
}

// NumPartitions returns the partition count of a compact index.
func (h *Header) NumPartitions() uint64 {
	return uint64(len(h.SignatureSizes))
}

// RowSize returns the byte width of one fully assembled row: one bit per
// document for classic, one page per partition for compact.
func (h *Header) RowSize() uint64 {
	if h.Kind == KindCompact {
		return h.NumPartitions() * h.PageBytes()
	}
	return (h.NumDocuments() + 7) / 8
}

// PayloadSize returns the expected byte size of the bit-sliced payload
// following the header.
func (h *Header) PayloadSize() uint64 {
	if h.Kind == KindCompact {
		var total uint64
		for _, s := range h.SignatureSizes {
			total += s * h.PageBytes()
		}
		return total
	}
	return h.SignatureSize * h.RowSize()
}

func (h *Header) validate() error {
	switch h.Kind {
	case KindClassic:
		if h.SignatureSize == 0 {
			return fmt.Errorf("classic header: zero signature size")
		}
	case KindCompact:
		if h.PageSize == 0 || h.PageSize%8 != 0 {
			return fmt.Errorf("compact header: page size %d is not a positive multiple of 8", h.PageSize)
		}
		if max := h.NumPartitions() * h.PageSize; h.NumDocuments() > max {
			return fmt.Errorf("compact header: %d documents exceed %d partitions of %d",
				h.NumDocuments(), h.NumPartitions(), h.PageSize)
		}
		for i, s := range h.SignatureSizes {
			if s == 0 {
				return fmt.Errorf("compact header: partition %d has zero signature size", i)
			}
		}
	default:
		return fmt.Errorf("unknown index kind %d", uint8(h.Kind))
	}
	if h.NumHashes == 0 {
		return fmt.Errorf("header: zero hash functions")
	}
	if h.TermSize == 0 {
		return fmt.Errorf("header: zero term size")
	}
	return nil
}

// Marshal serialises the header.
func (h *Header) Marshal() ([]byte, error) {
	if err := h.validate(); err != nil {
		return nil, err
	}

	var b bytes.Buffer
	b.WriteString(headerMagic)
	b.WriteByte(byte(h.Kind))

	u32 := func(v uint32) {
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], v)
		b.Write(buf[:])
	}
	u64 := func(v uint64) {
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], v)
		b.Write(buf[:])
	}

	u32(HeaderVersion)
	u32(h.TermSize)
	if h.Canonicalize {
		b.WriteByte(1)
	} else {
		b.WriteByte(0)
	}
	u64(h.NumHashes)

	switch h.Kind {
	case KindClassic:
		u64(h.SignatureSize)
	case KindCompact:
		u64(h.PageSize)
		u64(uint64(len(h.SignatureSizes)))
		for _, s := range h.SignatureSizes {
			u64(s)
		}
	}

	u64(uint64(len(h.DocNames)))
	for _, name := range h.DocNames {
		if bytes.IndexByte([]byte(name), 0) >= 0 {
			return nil, fmt.Errorf("document name %q contains NUL", name)
		}
		b.WriteString(name)
		b.WriteByte(0)
	}
	return b.Bytes(), nil
}

// headerReader is a stateful little-endian reader that tracks how many
// bytes it has consumed, so callers know where the payload begins.
type headerReader struct {
	r io.Reader
	n uint64
}

func (r *headerReader) read(p []byte) error {
	if _, err := io.ReadFull(r.r, p); err != nil {
		return err
	}
	r.n += uint64(len(p))
	return nil
}

func (r *headerReader) u8() (byte, error) {
	var b [1]byte
	err := r.read(b[:])
	return b[0], err
}

func (r *headerReader) u32() (uint32, error) {
	var b [4]byte
	if err := r.read(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func (r *headerReader) u64() (uint64, error) {
	var b [8]byte
	if err := r.read(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

func (r *headerReader) cstr() (string, error) {
	var buf []byte
	var b [1]byte
	for {
		if err := r.read(b[:]); err != nil {
			return "", err
		}
		if b[0] == 0 {
			return string(buf), nil
		}
		buf = append(buf, b[0])
	}
}

// ReadHeader parses an index header from r and reports the number of
// bytes consumed, i.e. the payload offset. A corrupt or unrecognised
// header is a format error.
func ReadHeader(r io.Reader) (*Header, uint64, error) {
	hr := &headerReader{r: r}

	magic := make([]byte, len(headerMagic))
	if err := hr.read(magic); err != nil {
		return nil, 0, fmt.Errorf("reading index header: %w", err)
	}
	if string(magic) != headerMagic {
		return nil, 0, fmt.Errorf("bad index magic %q", magic)
	}

	h := &Header{}
	kind, err := hr.u8()
	if err != nil {
		return nil, 0, err
	}
	h.Kind = IndexKind(kind)
	if h.Kind != KindClassic && h.Kind != KindCompact {
		return nil, 0, fmt.Errorf("unknown index kind %d", kind)
	}

	version, err := hr.u32()
	if err != nil {
		return nil, 0, err
	}
	if version != HeaderVersion {
		return nil, 0, fmt.Errorf("index format version %d, want %d", version, HeaderVersion)
	}

	if h.TermSize, err = hr.u32(); err != nil {
		return nil, 0, err
	}
	canon, err := hr.u8()
	if err != nil {
		return nil, 0, err
	}
	h.Canonicalize = canon != 0
	if h.NumHashes, err = hr.u64(); err != nil {
		return nil, 0, err
	}

	switch h.Kind {
	case KindClassic:
		if h.SignatureSize, err = hr.u64(); err != nil {
			return nil, 0, err
		}
	case KindCompact:
		if h.PageSize, err = hr.u64(); err != nil {
			return nil, 0, err
		}
		parts, err := hr.u64()
		if err != nil {
			return nil, 0, err
		}
		if parts > maxHeaderEntries {
			return nil, 0, fmt.Errorf("implausible partition count %d", parts)
		}
		if parts > 0 {
			h.SignatureSizes = make([]uint64, parts)
			for i := range h.SignatureSizes {
				if h.SignatureSizes[i], err = hr.u64(); err != nil {
					return nil, 0, err
				}
			}
		}
	}

	count, err := hr.u64()
	if err != nil {
		return nil, 0, err
	}
	if count > maxHeaderEntries {
		return nil, 0, fmt.Errorf("implausible document count %d", count)
	}
	if count > 0 {
		h.DocNames = make([]string, count)
		for i := range h.DocNames {
			if h.DocNames[i], err = hr.cstr(); err != nil {
				return nil, 0, err
			}
		}
	}

	if err := h.validate(); err != nil {
		return nil, 0, err
	}
	return h, hr.n, nil
}

// maxHeaderEntries bounds list lengths read from untrusted headers, so a
// corrupt count above 2^32 is rejected before anything is allocated.
// Counts up to the bound are allocated as read.
const maxHeaderEntries = 1 << 32
