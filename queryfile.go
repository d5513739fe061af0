package cobs

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

func readLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// recordName returns the first whitespace-separated token of a FASTA or
// FASTQ header, without the leading marker byte.
func recordName(header string) string {
	name := header[1:]
	if i := strings.IndexAny(name, " \t"); i >= 0 {
		name = name[:i]
	}
	return name
}

// ProcessQueryFile reads query records from a FASTA or FASTQ file,
// optionally gzipped, and calls fn for each record. The format is
// detected from the first record byte ('>' or '@'), gzip from its magic
// bytes.
func ProcessQueryFile(path string, fn func(name, sequence string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("could not open query file: %w", err)
	}
	defer f.Close()

	br := bufio.NewReaderSize(f, 64*1024)
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return fmt.Errorf("query file %s: %w", path, err)
		}
		defer gz.Close()
		br = bufio.NewReaderSize(gz, 64*1024)
	}

	first, err := br.Peek(1)
	if err != nil {
		return fmt.Errorf("query file %s: %w", path, err)
	}
	switch first[0] {
	case '>':
		return processFastaQueries(br, fn)
	case '@':
		return processFastqQueries(br, fn)
	}
	return fmt.Errorf("query file %s: expected FASTA ('>') or FASTQ ('@'), got %q", path, first[0])
}

func processFastaQueries(br *bufio.Reader, fn func(name, sequence string) error) error {
	var name string
	var seq strings.Builder
	flush := func() error {
		if name == "" && seq.Len() == 0 {
			return nil
		}
		err := fn(name, seq.String())
		seq.Reset()
		return err
	}
	started := false
	for {
		line, err := readLine(br)
		if err == io.EOF {
			if started {
				if err := flush(); err != nil {
					return err
				}
			}
			return nil
		}
		if err != nil {
			return err
		}
		if len(line) == 0 || line[0] == ';' {
			continue
		}
		if line[0] == '>' {
			if started {
				if err := flush(); err != nil {
					return err
				}
			}
			name = recordName(line)
			started = true
			continue
		}
		seq.WriteString(line)
	}
}

func processFastqQueries(br *bufio.Reader, fn func(name, sequence string) error) error {
	for {
		header, err := readLine(br)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if len(header) == 0 {
			continue
		}
		if header[0] != '@' {
			return fmt.Errorf("malformed FASTQ record header %q", header)
		}
		seq, err := readLine(br)
		if err != nil {
			return fmt.Errorf("truncated FASTQ record %q", header)
		}
		// separator and quality lines
		if _, err := readLine(br); err != nil {
			return fmt.Errorf("truncated FASTQ record %q", header)
		}
		if _, err := readLine(br); err != nil {
			return fmt.Errorf("truncated FASTQ record %q", header)
		}
		if err := fn(recordName(header), seq); err != nil {
			return err
		}
	}
}

// ProcessQuery runs either a single inline query or every record of a
// query file against s and writes results to out. File records are
// preceded by a "*<name>\t<count>" line; inline queries emit result
// lines only. The phase timer is printed to stderr afterwards.
func ProcessQuery(s *Search, threshold float64, numResults uint64, queryLine, queryFile string, out io.Writer) error {
	w := bufio.NewWriter(out)
	defer w.Flush()

	switch {
	case queryLine != "":
		result, err := s.Search(queryLine, threshold, numResults)
		if err != nil {
			return err
		}
		for _, r := range result {
			fmt.Fprintf(w, "%s\t%d\n", r.DocName, r.Score)
		}
	case queryFile != "":
		err := ProcessQueryFile(queryFile, func(name, sequence string) error {
			result, err := s.Search(sequence, threshold, numResults)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "*%s\t%d\n", name, len(result))
			for _, r := range result {
				fmt.Fprintf(w, "%s\t%d\n", r.DocName, r.Score)
			}
			return nil
		})
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("pass a verbatim query or a query file")
	}

	if err := w.Flush(); err != nil {
		return err
	}
	s.Timer().Print("search")
	return nil
}
