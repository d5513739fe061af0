package index

import (
	"bufio"
	"io"
	"strings"
)

// processFastaTerms emits every length-k window of the concatenated
// sequence lines of each FASTA record. A record header resets the
// window, so terms never span records.
func processFastaTerms(br *bufio.Reader, k uint64, fn func(term []byte)) error {
	carry := make([]byte, 0, 2*k)
	for {
		line, err := br.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")
		if len(line) > 0 {
			switch line[0] {
			case '>', ';':
				carry = carry[:0]
			default:
				carry = emitWindows(append(carry, line...), k, fn)
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// emitWindows calls fn for every length-k window of data and returns the
// trailing k-1 bytes to carry into the next line.
func emitWindows(data []byte, k uint64, fn func(term []byte)) []byte {
	for i := uint64(0); i+k <= uint64(len(data)); i++ {
		fn(data[i : i+k])
	}
	if uint64(len(data)) >= k {
		n := copy(data, data[uint64(len(data))-k+1:])
		data = data[:n]
	}
	return data
}
