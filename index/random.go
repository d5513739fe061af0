package index

import (
	"fmt"
	"io"
	"math/rand"

	"github.com/iqbal-lab-org/cobs"
)

// randomTermSize matches the default k-mer size of real collections.
const randomTermSize = 31

// ClassicConstructRandom builds a classic index over numDocuments
// synthetic documents of docSize random 31-mers each. The output is
// deterministic for a given seed. Used for performance and false
// positive experiments without real data.
func ClassicConstructRandom(outFile string, signatureSize, numDocuments, docSize, numHashes, seed uint64) error {
	if signatureSize == 0 || numDocuments == 0 || numHashes == 0 {
		return fmt.Errorf("signature size, document count and hash count must be positive")
	}
	rng := rand.New(rand.NewSource(int64(seed)))

	sigBytes := (signatureSize + 7) / 8
	blooms := make([][]byte, numDocuments)
	names := make([]string, numDocuments)
	for i := range blooms {
		bits := make([]byte, sigBytes)
		for t := uint64(0); t < docSize; t++ {
			term := cobs.RandomSequence(randomTermSize, rng)
			cobs.ForEachHash(term, numHashes, func(h uint64) {
				h %= signatureSize
				bits[h/8] |= 1 << (h % 8)
			})
		}
		blooms[i] = bits
		names[i] = fmt.Sprintf("random_%06d", i)
	}

	rowBytes := (numDocuments + 7) / 8
	rows := make([]byte, signatureSize*rowBytes)
	for row := uint64(0); row < signatureSize; row++ {
		out := rows[row*rowBytes : (row+1)*rowBytes]
		for j, bloom := range blooms {
			if bloom[row/8]&(1<<(row%8)) != 0 {
				out[j/8] |= 1 << (uint(j) % 8)
			}
		}
	}

	hdr := &cobs.Header{
		Kind:          cobs.KindClassic,
		TermSize:      randomTermSize,
		Canonicalize:  false,
		NumHashes:     numHashes,
		SignatureSize: signatureSize,
		DocNames:      names,
	}
	return writeIndexFile(outFile, hdr, func(w io.Writer) error {
		_, err := w.Write(rows)
		return err
	})
}
