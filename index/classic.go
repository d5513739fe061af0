package index

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/pkg/errors"

	"github.com/iqbal-lab-org/cobs"
	"github.com/iqbal-lab-org/cobs/internal/parallel"
)

// ClassicIndexParameters configures classic index construction. It is
// carried through the call graph per invocation; nothing here is a
// process global.
type ClassicIndexParameters struct {
	TermSize          uint64
	NumHashes         uint64
	FalsePositiveRate float64
	// SignatureSize overrides the Bloom filter width; 0 derives it
	// from FalsePositiveRate and the largest document.
	SignatureSize uint64
	MemBytes      uint64
	NumThreads    uint64
	Canonicalize  bool
	KeepTemporary bool
	Continue      bool
	Clobber       bool
}

// SetDefaults fills in the documented defaults.
func (p *ClassicIndexParameters) SetDefaults() {
	p.TermSize = 31
	p.NumHashes = 1
	p.FalsePositiveRate = 0.3
	p.MemBytes = DefaultMemoryBytes()
	p.NumThreads = uint64(runtime.NumCPU())
	p.Canonicalize = true
}

// Flags registers the construction flags, with the original short names
// as aliases.
func (p *ClassicIndexParameters) Flags(fs *flag.FlagSet) {
	fs.Uint64Var(&p.TermSize, "term-size", p.TermSize, "term size (k-mer size)")
	fs.Uint64Var(&p.TermSize, "k", p.TermSize, "alias for -term-size")
	fs.Uint64Var(&p.NumHashes, "num-hashes", p.NumHashes, "number of hash functions")
	fs.Uint64Var(&p.NumHashes, "h", p.NumHashes, "alias for -num-hashes")
	fs.Float64Var(&p.FalsePositiveRate, "false-positive-rate", p.FalsePositiveRate, "false positive rate")
	fs.Float64Var(&p.FalsePositiveRate, "f", p.FalsePositiveRate, "alias for -false-positive-rate")
	fs.Uint64Var(&p.SignatureSize, "sig-size", p.SignatureSize, "signature size in bits, 0 = derive from false positive rate")
	fs.Uint64Var(&p.SignatureSize, "s", p.SignatureSize, "alias for -sig-size")
	fs.Uint64Var(&p.MemBytes, "memory", p.MemBytes, "memory in bytes to use")
	fs.Uint64Var(&p.MemBytes, "m", p.MemBytes, "alias for -memory")
	fs.Uint64Var(&p.NumThreads, "threads", p.NumThreads, "number of threads to use")
	fs.Uint64Var(&p.NumThreads, "T", p.NumThreads, "alias for -threads")
	fs.BoolFunc("no-canonicalize", "don't canonicalize DNA k-mers", func(string) error {
		p.Canonicalize = false
		return nil
	})
	fs.BoolVar(&p.KeepTemporary, "keep-temporary", p.KeepTemporary, "keep temporary files during construction")
	fs.BoolVar(&p.Continue, "continue", p.Continue, "continue in existing temporary directory")
	fs.BoolVar(&p.Clobber, "clobber", p.Clobber, "erase temporary directory if it exists")
	fs.BoolVar(&p.Clobber, "C", p.Clobber, "alias for -clobber")
}

func (p *ClassicIndexParameters) validate() error {
	if p.TermSize == 0 {
		return fmt.Errorf("term size must be positive")
	}
	if p.NumHashes == 0 {
		return fmt.Errorf("number of hashes must be positive")
	}
	if p.SignatureSize == 0 && (p.FalsePositiveRate <= 0 || p.FalsePositiveRate >= 1) {
		return fmt.Errorf("false positive rate %v out of range (0,1)", p.FalsePositiveRate)
	}
	return nil
}

// prepareTmpDir creates (or reuses, with Continue/Clobber) the temporary
// construction directory.
func prepareTmpDir(tmpPath string, p *ClassicIndexParameters) error {
	if _, err := os.Stat(tmpPath); err == nil {
		switch {
		case p.Clobber:
			if err := os.RemoveAll(tmpPath); err != nil {
				return err
			}
		case p.Continue:
			// reuse intact temporaries; partial files are written
			// via rename, so their presence implies completeness
		default:
			return fmt.Errorf("temporary directory %s exists, pass -clobber or -continue", tmpPath)
		}
	}
	return os.MkdirAll(tmpPath, 0o755)
}

// docTermCounts counts the terms of every document in parallel.
func docTermCounts(docs DocumentList, termSize, numThreads uint64) ([]uint64, error) {
	counts := make([]uint64, len(docs))
	err := parallel.For(0, uint64(len(docs)), numThreads, func(i uint64) error {
		n, err := docs[i].NumTerms(termSize)
		if err != nil {
			return errors.Wrapf(err, "counting terms of %s", docs[i].Path)
		}
		counts[i] = n
		return nil
	})
	return counts, err
}

func maxCount(counts []uint64) uint64 {
	var m uint64
	for _, c := range counts {
		if c > m {
			m = c
		}
	}
	return m
}

// writeIndexFile writes header plus payload to a temporary name in the
// target directory and renames it into place, so a file at path is
// always complete.
func writeIndexFile(path string, hdr *cobs.Header, payload func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())
	defer f.Close()

	w := bufio.NewWriterSize(f, 1<<20)
	hb, err := hdr.Marshal()
	if err != nil {
		return err
	}
	if _, err := w.Write(hb); err != nil {
		return err
	}
	if err := payload(w); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}

// buildClassicBatch builds the bit-sliced slab of one document batch:
// per-document Bloom filters (parallel over documents), transposed into
// rows (parallel over rows), written as a partial classic index.
func buildClassicBatch(docs []DocumentEntry, path string, p *ClassicIndexParameters, signatureSize uint64) error {
	n := uint64(len(docs))
	blooms := make([][]byte, n)
	err := parallel.For(0, n, p.NumThreads, func(i uint64) error {
		b, err := BuildBloom(&docs[i], p.TermSize, p.Canonicalize, signatureSize, p.NumHashes)
		if err != nil {
			return errors.Wrapf(err, "building Bloom filter of %s", docs[i].Path)
		}
		blooms[i] = b
		return nil
	})
	if err != nil {
		return err
	}

	rowBytes := (n + 7) / 8
	rows := make([]byte, signatureSize*rowBytes)
	err = parallel.For(0, signatureSize, p.NumThreads, func(row uint64) error {
		out := rows[row*rowBytes : (row+1)*rowBytes]
		for j, bloom := range blooms {
			if bloom[row/8]&(1<<(row%8)) != 0 {
				out[j/8] |= 1 << (uint(j) % 8)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	names := make([]string, n)
	for i := range docs {
		names[i] = docs[i].Name
	}
	hdr := &cobs.Header{
		Kind:          cobs.KindClassic,
		TermSize:      uint32(p.TermSize),
		Canonicalize:  p.Canonicalize,
		NumHashes:     p.NumHashes,
		SignatureSize: signatureSize,
		DocNames:      names,
	}
	return writeIndexFile(path, hdr, func(w io.Writer) error {
		_, err := w.Write(rows)
		return err
	})
}

// ClassicConstruct builds a classic index over docs: documents are
// processed in batches of as many whole Bloom filters as fit the memory
// budget, each batch is transposed into a partial classic index in the
// temporary directory, and the partials are merged until a single file
// remains, which is renamed to outFile.
//
// Document order across the entire build is preserved: the bit for
// document j sits at bit position j of every row of the final index.
func ClassicConstruct(docs DocumentList, outFile, tmpPath string, p ClassicIndexParameters) error {
	if err := p.validate(); err != nil {
		return err
	}
	if tmpPath == "" {
		tmpPath = outFile + ".tmp"
	}

	numDocs := uint64(len(docs))
	if numDocs == 0 {
		// an empty collection still gets a valid, queryable header
		sig := p.SignatureSize
		if sig == 0 {
			sig = cobs.CalcSignatureSize(1, p.NumHashes, p.FalsePositiveRate)
		}
		hdr := &cobs.Header{
			Kind:          cobs.KindClassic,
			TermSize:      uint32(p.TermSize),
			Canonicalize:  p.Canonicalize,
			NumHashes:     p.NumHashes,
			SignatureSize: sig,
		}
		return writeIndexFile(outFile, hdr, func(io.Writer) error { return nil })
	}

	if err := prepareTmpDir(tmpPath, &p); err != nil {
		return err
	}

	signatureSize := p.SignatureSize
	if signatureSize == 0 {
		counts, err := docTermCounts(docs, p.TermSize, p.NumThreads)
		if err != nil {
			return err
		}
		signatureSize = cobs.CalcSignatureSize(maxCount(counts), p.NumHashes, p.FalsePositiveRate)
	}

	docsPerBatch := batchSize(p.MemBytes, signatureSize, numDocs)
	var files []string
	for lo := uint64(0); lo < numDocs; lo += docsPerBatch {
		hi := lo + docsPerBatch
		if hi > numDocs {
			hi = numDocs
		}
		path := filepath.Join(tmpPath, fmt.Sprintf("batch_%05d.cobs_classic", len(files)))
		files = append(files, path)
		if p.Continue {
			if _, err := os.Stat(path); err == nil {
				continue
			}
		}
		if err := buildClassicBatch(docs[lo:hi], path, &p, signatureSize); err != nil {
			return err
		}
	}

	final, err := CombineClassic(files, tmpPath, p.MemBytes, p.NumThreads, p.KeepTemporary)
	if err != nil {
		return err
	}
	if err := os.Rename(final, outFile); err != nil {
		return err
	}
	if !p.KeepTemporary {
		return os.RemoveAll(tmpPath)
	}
	return nil
}

// batchSize returns how many documents fit the memory budget as whole
// Bloom filters plus the transposed slab, rounded down to a multiple of
// 8 so merged rows concatenate on byte boundaries.
func batchSize(memBytes, signatureSize, numDocs uint64) uint64 {
	sigBytes := (signatureSize + 7) / 8
	per := memBytes / (2 * sigBytes)
	per = per / 8 * 8
	if per < 8 {
		per = 8
	}
	if per > numDocs {
		per = numDocs
	}
	return per
}

// mergeBufferSize is the per-input stream buffer during merging.
const mergeBufferSize = 1 << 20

// mergeFanIn bounds how many partial indices one merge pass reads at
// once, within the memory budget.
func mergeFanIn(memBytes uint64) uint64 {
	fanIn := memBytes / (2 * mergeBufferSize)
	if fanIn < 2 {
		fanIn = 2
	}
	if fanIn > 64 {
		fanIn = 64
	}
	return fanIn
}

type classicPart struct {
	f   *os.File
	br  *bufio.Reader
	hdr *cobs.Header
}

func openClassicParts(paths []string) ([]classicPart, func(), error) {
	parts := make([]classicPart, 0, len(paths))
	closeAll := func() {
		for _, p := range parts {
			p.f.Close()
		}
	}
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		br := bufio.NewReaderSize(f, mergeBufferSize)
		hdr, _, err := cobs.ReadHeader(br)
		if err != nil {
			f.Close()
			closeAll()
			return nil, nil, errors.Wrapf(err, "reading %s", path)
		}
		if hdr.Kind != cobs.KindClassic {
			f.Close()
			closeAll()
			return nil, nil, fmt.Errorf("%s is not a classic index", path)
		}
		parts = append(parts, classicPart{f: f, br: br, hdr: hdr})
	}
	return parts, closeAll, nil
}

// mergeClassicFiles horizontally concatenates the rows of the input
// partial indices, in order, into one wider classic index. Every input
// except the last must cover a multiple of 8 documents so rows join on
// byte boundaries.
func mergeClassicFiles(outPath string, ins []string) error {
	parts, closeAll, err := openClassicParts(ins)
	if err != nil {
		return err
	}
	defer closeAll()

	first := parts[0].hdr
	var names []string
	for i, p := range parts {
		h := p.hdr
		if h.SignatureSize != first.SignatureSize || h.TermSize != first.TermSize ||
			h.NumHashes != first.NumHashes || h.Canonicalize != first.Canonicalize {
			return fmt.Errorf("%s: mismatched index parameters", ins[i])
		}
		if i < len(parts)-1 && h.NumDocuments()%8 != 0 {
			return fmt.Errorf("%s: %d documents is not a multiple of 8, cannot concatenate rows", ins[i], h.NumDocuments())
		}
		names = append(names, h.DocNames...)
	}

	hdr := &cobs.Header{
		Kind:          cobs.KindClassic,
		TermSize:      first.TermSize,
		Canonicalize:  first.Canonicalize,
		NumHashes:     first.NumHashes,
		SignatureSize: first.SignatureSize,
		DocNames:      names,
	}
	return writeIndexFile(outPath, hdr, func(w io.Writer) error {
		bufs := make([][]byte, len(parts))
		for i, p := range parts {
			bufs[i] = make([]byte, p.hdr.RowSize())
		}
		for row := uint64(0); row < first.SignatureSize; row++ {
			for i := range parts {
				if _, err := io.ReadFull(parts[i].br, bufs[i]); err != nil {
					return errors.Wrapf(err, "reading row %d of %s", row, ins[i])
				}
				if _, err := w.Write(bufs[i]); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// CombineClassic merges the ordered list of partial classic indices,
// fan-in limited groups at a time, until a single file remains in dir.
// Its path is returned; consumed inputs are deleted unless
// keepTemporary is set.
func CombineClassic(files []string, dir string, memBytes, numThreads uint64, keepTemporary bool) (string, error) {
	level := 1
	for len(files) > 1 {
		fanIn := mergeFanIn(memBytes)
		numGroups := (uint64(len(files)) + fanIn - 1) / fanIn
		outs := make([]string, numGroups)
		merged := make([][]string, numGroups)
		err := parallel.For(0, numGroups, numThreads, func(g uint64) error {
			lo := g * fanIn
			hi := lo + fanIn
			if hi > uint64(len(files)) {
				hi = uint64(len(files))
			}
			group := files[lo:hi]
			if len(group) == 1 {
				outs[g] = group[0]
				return nil
			}
			out := filepath.Join(dir, fmt.Sprintf("merge_%02d_%05d.cobs_classic", level, g))
			if err := mergeClassicFiles(out, group); err != nil {
				return err
			}
			outs[g] = out
			merged[g] = group
			return nil
		})
		if err != nil {
			return "", err
		}
		if !keepTemporary {
			for _, group := range merged {
				for _, f := range group {
					_ = os.Remove(f)
				}
			}
		}
		files = outs
		level++
	}
	return files[0], nil
}

// ClassicCombineDir merges every classic index found in inDir into
// outFile, staging intermediates in outDir. The inputs are copied
// first, so inDir is left untouched.
func ClassicCombineDir(inDir, outDir, outFile string, memBytes, numThreads uint64, keepTemporary bool) error {
	ins, err := filepath.Glob(filepath.Join(inDir, "*.cobs_classic"))
	if err != nil {
		return err
	}
	if len(ins) == 0 {
		return fmt.Errorf("no classic indices in %s", inDir)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}

	staged := make([]string, len(ins))
	for i, in := range ins {
		staged[i] = filepath.Join(outDir, filepath.Base(in))
		if err := copyFile(in, staged[i]); err != nil {
			return err
		}
	}
	final, err := CombineClassic(staged, outDir, memBytes, numThreads, keepTemporary)
	if err != nil {
		return err
	}
	return os.Rename(final, outFile)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
