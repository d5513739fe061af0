package index

import (
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"

	"github.com/iqbal-lab-org/cobs"
	"github.com/iqbal-lab-org/cobs/internal/parallel"
)

// CompactIndexParameters configures compact index construction.
type CompactIndexParameters struct {
	ClassicIndexParameters

	// PageSize is the number of documents per partition, a multiple
	// of 8. 0 defaults to ceil(sqrt(#documents)) rounded up.
	PageSize uint64
}

// Flags registers the compact construction flags.
func (p *CompactIndexParameters) Flags(fs *flag.FlagSet) {
	p.ClassicIndexParameters.Flags(fs)
	fs.Uint64Var(&p.PageSize, "page-size", p.PageSize, "documents per partition, 0 = ceil(sqrt(#documents))")
	fs.Uint64Var(&p.PageSize, "p", p.PageSize, "alias for -page-size")
}

// defaultPageSize rounds ceil(sqrt(n)) up to a multiple of 8.
func defaultPageSize(numDocs uint64) uint64 {
	p := uint64(math.Ceil(math.Sqrt(float64(numDocs))))
	p = (p + 7) / 8 * 8
	if p == 0 {
		p = 8
	}
	return p
}

// CompactConstruct builds a compact index: documents are sorted by term
// count ascending, chunked into partitions of PageSize documents, and
// each partition gets its own classic slab whose Bloom filter width is
// sized for the partition's largest document. The slabs are then
// concatenated under a compact header. Partitions are independent; each
// slab could be queried on its own.
func CompactConstruct(docs DocumentList, outFile, tmpPath string, p CompactIndexParameters) error {
	if err := p.validate(); err != nil {
		return err
	}
	if tmpPath == "" {
		tmpPath = outFile + ".tmp"
	}

	numDocs := uint64(len(docs))
	pageSize := p.PageSize
	if pageSize == 0 {
		pageSize = defaultPageSize(numDocs)
	}
	if pageSize%8 != 0 {
		return fmt.Errorf("page size %d is not a multiple of 8", pageSize)
	}

	if numDocs == 0 {
		hdr := &cobs.Header{
			Kind:         cobs.KindCompact,
			TermSize:     uint32(p.TermSize),
			Canonicalize: p.Canonicalize,
			NumHashes:    p.NumHashes,
			PageSize:     pageSize,
		}
		return writeIndexFile(outFile, hdr, func(io.Writer) error { return nil })
	}

	if err := prepareTmpDir(tmpPath, &p.ClassicIndexParameters); err != nil {
		return err
	}

	counts, err := docTermCounts(docs, p.TermSize, p.NumThreads)
	if err != nil {
		return err
	}

	// sort documents by term count ascending; this ordering is the
	// global document order recorded in the header
	order := make([]int, numDocs)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return counts[order[a]] < counts[order[b]]
	})
	sorted := make(DocumentList, numDocs)
	sortedCounts := make([]uint64, numDocs)
	for i, j := range order {
		sorted[i] = docs[j]
		sortedCounts[i] = counts[j]
	}

	numPartitions := (numDocs + pageSize - 1) / pageSize
	slabs := make([]string, numPartitions)
	err = parallel.For(0, numPartitions, p.NumThreads, func(part uint64) error {
		lo := part * pageSize
		hi := lo + pageSize
		if hi > numDocs {
			hi = numDocs
		}
		path := filepath.Join(tmpPath, fmt.Sprintf("part_%05d.cobs_classic", part))
		slabs[part] = path
		if p.Continue {
			if _, err := os.Stat(path); err == nil {
				return nil
			}
		}

		// the group's largest document determines the width that
		// keeps every member at or below the target false
		// positive rate
		sig := cobs.CalcSignatureSize(sortedCounts[hi-1], p.NumHashes, p.FalsePositiveRate)
		slabParams := p.ClassicIndexParameters
		slabParams.NumThreads = 1 // partitions already run in parallel
		if err := buildClassicBatch(sorted[lo:hi], path, &slabParams, sig); err != nil {
			return errors.Wrapf(err, "building partition %d", part)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := CombineIntoCompact(slabs, outFile, pageSize); err != nil {
		return err
	}
	if !p.KeepTemporary {
		return os.RemoveAll(tmpPath)
	}
	return nil
}

// CombineIntoCompact concatenates the ordered per-partition classic
// slabs into one compact index file. Every slab except the last must
// cover exactly pageSize documents; a short last slab is padded with
// all-zero document columns, which can never match a query.
func CombineIntoCompact(slabs []string, outFile string, pageSize uint64) error {
	if pageSize == 0 || pageSize%8 != 0 {
		return fmt.Errorf("page size %d is not a positive multiple of 8", pageSize)
	}
	parts, closeAll, err := openClassicParts(slabs)
	if err != nil {
		return err
	}
	defer closeAll()

	first := parts[0].hdr
	var names []string
	sigs := make([]uint64, len(parts))
	for i, part := range parts {
		h := part.hdr
		if h.TermSize != first.TermSize || h.NumHashes != first.NumHashes ||
			h.Canonicalize != first.Canonicalize {
			return fmt.Errorf("%s: mismatched index parameters", slabs[i])
		}
		n := h.NumDocuments()
		if i < len(parts)-1 && n != pageSize {
			return fmt.Errorf("%s: %d documents, want exactly %d per partition", slabs[i], n, pageSize)
		}
		if n > pageSize {
			return fmt.Errorf("%s: %d documents exceed page size %d", slabs[i], n, pageSize)
		}
		sigs[i] = h.SignatureSize
		names = append(names, h.DocNames...)
	}

	hdr := &cobs.Header{
		Kind:           cobs.KindCompact,
		TermSize:       first.TermSize,
		Canonicalize:   first.Canonicalize,
		NumHashes:      first.NumHashes,
		PageSize:       pageSize,
		SignatureSizes: sigs,
		DocNames:       names,
	}
	pageBytes := pageSize / 8
	return writeIndexFile(outFile, hdr, func(w io.Writer) error {
		for i := range parts {
			h := parts[i].hdr
			rowBytes := h.RowSize()
			buf := make([]byte, rowBytes)
			pad := make([]byte, pageBytes-rowBytes)
			for row := uint64(0); row < h.SignatureSize; row++ {
				if _, err := io.ReadFull(parts[i].br, buf); err != nil {
					return errors.Wrapf(err, "reading row %d of %s", row, slabs[i])
				}
				if _, err := w.Write(buf); err != nil {
					return err
				}
				if len(pad) > 0 {
					if _, err := w.Write(pad); err != nil {
						return err
					}
				}
			}
		}
		return nil
	})
}

// CompactCombineDir combines the classic slabs found in inDir, in
// lexicographic order, into a compact index at outFile.
func CompactCombineDir(inDir, outFile string, pageSize uint64) error {
	slabs, err := filepath.Glob(filepath.Join(inDir, "*.cobs_classic"))
	if err != nil {
		return err
	}
	if len(slabs) == 0 {
		return fmt.Errorf("no classic indices in %s", inDir)
	}
	sort.Strings(slabs)
	return CombineIntoCompact(slabs, outFile, pageSize)
}
