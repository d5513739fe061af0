// Package index builds classic and compact COBS index files from
// document collections.
package index

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// FileType selects which documents a DocumentList accepts and how a
// document file is parsed into terms.
type FileType int

const (
	FileTypeAny FileType = iota
	FileTypeText
	FileTypeFasta
	FileTypeFastq
	FileTypeList
)

// StringToFileType parses the CLI --file-type value.
func StringToFileType(s string) (FileType, error) {
	switch strings.ToLower(s) {
	case "any", "":
		return FileTypeAny, nil
	case "text":
		return FileTypeText, nil
	case "fasta":
		return FileTypeFasta, nil
	case "fastq":
		return FileTypeFastq, nil
	case "list":
		return FileTypeList, nil
	}
	return 0, fmt.Errorf("unknown file type %q", s)
}

// DocumentEntry is one read-only input document: a stream of fixed-size
// terms (q-grams) with a countable total.
type DocumentEntry struct {
	Name string
	Path string
	Type FileType
}

// Size returns the on-disk byte size of the document.
func (e *DocumentEntry) Size() int64 {
	fi, err := os.Stat(e.Path)
	if err != nil {
		return 0
	}
	return fi.Size()
}

// NumTerms returns the number of length-k terms the document produces.
func (e *DocumentEntry) NumTerms(k uint64) (uint64, error) {
	if e.Type == FileTypeText && !strings.HasSuffix(e.Path, ".gz") {
		fi, err := os.Stat(e.Path)
		if err != nil {
			return 0, err
		}
		if uint64(fi.Size()) < k {
			return 0, nil
		}
		return uint64(fi.Size()) - k + 1, nil
	}
	var n uint64
	err := e.ProcessTerms(k, func([]byte) { n++ })
	return n, err
}

// ProcessTerms streams every length-k term of the document to fn. The
// term slice is only valid during the call. Terms never span FASTA or
// FASTQ record boundaries.
func (e *DocumentEntry) ProcessTerms(k uint64, fn func(term []byte)) error {
	f, err := os.Open(e.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	br := bufio.NewReaderSize(f, 64*1024)
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return fmt.Errorf("document %s: %w", e.Path, err)
		}
		defer gz.Close()
		br = bufio.NewReaderSize(gz, 64*1024)
	}

	switch e.Type {
	case FileTypeText:
		return processTextTerms(br, k, fn)
	case FileTypeFasta:
		return processFastaTerms(br, k, fn)
	case FileTypeFastq:
		return processFastqTerms(br, k, fn)
	}
	return fmt.Errorf("document %s: unsupported file type", e.Path)
}

// DocumentList is an ordered document collection. The order fixes the
// global document numbering of every index built from it.
type DocumentList []DocumentEntry

var docExtensions = map[string]FileType{
	".txt":   FileTypeText,
	".fa":    FileTypeFasta,
	".fasta": FileTypeFasta,
	".fna":   FileTypeFasta,
	".fq":    FileTypeFastq,
	".fastq": FileTypeFastq,
}

// classifyPath maps a document path to its file type and display name.
func classifyPath(path string) (FileType, string, bool) {
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, ".gz")
	ext := filepath.Ext(name)
	ft, ok := docExtensions[ext]
	if !ok {
		return 0, "", false
	}
	return ft, strings.TrimSuffix(name, ext), true
}

// NewDocumentList enumerates a document collection: a directory is
// walked recursively, a ".list" file (or filter == FileTypeList) names
// one document per line with an optional tab-separated display name, and
// anything else is taken as a single document file.
func NewDocumentList(path string, filter FileType) (DocumentList, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if fi.IsDir() {
		return walkDocumentDir(path, filter)
	}
	if filter == FileTypeList || strings.HasSuffix(path, ".list") {
		return readListFile(path)
	}

	ft, name, ok := classifyPath(path)
	if !ok {
		return nil, fmt.Errorf("unrecognised document file %s", path)
	}
	if filter != FileTypeAny && filter != ft {
		return nil, fmt.Errorf("document %s does not match requested file type", path)
	}
	return DocumentList{{Name: name, Path: path, Type: ft}}, nil
}

func walkDocumentDir(dir string, filter FileType) (DocumentList, error) {
	var docs DocumentList
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ft, name, ok := classifyPath(path)
		if !ok {
			return nil
		}
		if filter != FileTypeAny && filter != ft {
			return nil
		}
		docs = append(docs, DocumentEntry{Name: name, Path: path, Type: ft})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })
	return docs, nil
}

func readListFile(path string) (DocumentList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dir := filepath.Dir(path)
	var docs DocumentList
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		docPath := line
		name := ""
		if i := strings.IndexByte(line, '\t'); i >= 0 {
			docPath, name = line[:i], line[i+1:]
		}
		if !filepath.IsAbs(docPath) {
			docPath = filepath.Join(dir, docPath)
		}
		ft, autoName, ok := classifyPath(docPath)
		if !ok {
			return nil, fmt.Errorf("list %s: unrecognised document file %s", path, docPath)
		}
		if name == "" {
			name = autoName
		}
		docs = append(docs, DocumentEntry{Name: name, Path: docPath, Type: ft})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

// PrintList writes a summary of the document list, mirroring the
// doc-list subcommand output.
func (docs DocumentList) PrintList(w io.Writer, termSize uint64) error {
	fmt.Fprintf(w, "--- document list (%d entries) ---\n", len(docs))
	var minTerms, maxTerms, totalTerms uint64
	minTerms = ^uint64(0)
	for i := range docs {
		n, err := docs[i].NumTerms(termSize)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "document[%d] size %d %d-mers %d : %s : %s\n",
			i, docs[i].Size(), termSize, n, docs[i].Path, docs[i].Name)
		if n < minTerms {
			minTerms = n
		}
		if n > maxTerms {
			maxTerms = n
		}
		totalTerms += n
	}
	fmt.Fprintf(w, "--- end of document list (%d entries) ---\n", len(docs))
	fmt.Fprintf(w, "documents: %d\n", len(docs))
	if len(docs) != 0 {
		fmt.Fprintf(w, "minimum %d-mers: %d\n", termSize, minTerms)
		fmt.Fprintf(w, "maximum %d-mers: %d\n", termSize, maxTerms)
		fmt.Fprintf(w, "average %d-mers: %d\n", termSize, totalTerms/uint64(len(docs)))
		fmt.Fprintf(w, "total %d-mers: %d\n", termSize, totalTerms)
	}
	return nil
}
