package index

import (
	"bufio"
	"io"
)

// processTextTerms emits every length-k byte window of the raw stream,
// carrying the last k-1 bytes across buffer refills.
func processTextTerms(br *bufio.Reader, k uint64, fn func(term []byte)) error {
	buf := make([]byte, 64*1024)
	var pos uint64

	for {
		n, err := br.Read(buf[pos:])
		if n > 0 {
			end := pos + uint64(n)
			for i := uint64(0); i+k <= end; i++ {
				fn(buf[i : i+k])
			}
			if end >= k {
				copy(buf, buf[end-k+1:end])
				pos = k - 1
			} else {
				pos = end
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
