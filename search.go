package cobs

import (
	"fmt"
	"log"
	"math"
	"sort"

	"github.com/iqbal-lab-org/cobs/internal/parallel"
)

// SearchResult is one reported document: its name and the number of
// query k-mers whose hashed bits were all set for it.
type SearchResult struct {
	DocName string
	Score   uint32
}

// SearchOptions configures a search engine instance.
type SearchOptions struct {
	// Threads parallelises per-k-mer row AND-ing and score
	// accumulation. <= 1 runs serially.
	Threads uint64
}

// Search runs queries against a list of opened index files. It is
// stateless between queries apart from the timer; indices are opened
// once and reused.
type Search struct {
	indices []IndexSearchFile
	threads uint64
	timer   *Timer
}

// NewSearch returns a search engine over the given indices. Results of
// a query are concatenated across indices in slice order; an index
// appearing twice is queried twice.
func NewSearch(indices []IndexSearchFile, opts SearchOptions) *Search {
	threads := opts.Threads
	if threads == 0 {
		threads = 1
	}
	return &Search{indices: indices, threads: threads, timer: NewTimer()}
}

// Timer returns the accumulated query phase timings.
func (s *Search) Timer() *Timer { return s.timer }

// Search reports every document whose fraction of the query's k-mers it
// contains is at least threshold, sorted by descending score with ties
// broken by ascending document index. limit > 0 truncates the result
// list per index.
func (s *Search) Search(query string, threshold float64, limit uint64) ([]SearchResult, error) {
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("threshold %v out of range [0,1]", threshold)
	}
	var out []SearchResult
	for _, idx := range s.indices {
		res, err := s.searchIndex(idx, query, threshold, limit)
		if err != nil {
			return nil, err
		}
		out = append(out, res...)
	}
	return out, nil
}

func (s *Search) searchIndex(idx IndexSearchFile, query string, threshold float64, limit uint64) ([]SearchResult, error) {
	h := idx.Header()
	k := int(h.TermSize)
	if len(query) < k {
		// too short to contain a single k-mer
		return nil, nil
	}
	numTerms := len(query) - k + 1
	numHashes := h.NumHashes

	s.timer.Start("hashes")
	hashes := make([]uint64, 0, uint64(numTerms)*numHashes)
	canonical := make([]byte, k)
	for m := 0; m < numTerms; m++ {
		term := []byte(query[m : m+k])
		if h.Canonicalize {
			if !Canonicalize(term, canonical) {
				log.Printf("WARN invalid DNA base pair in k-mer %q", term)
			}
			term = canonical
		}
		ForEachHash(term, numHashes, func(hv uint64) {
			hashes = append(hashes, hv)
		})
	}

	s.timer.Start("io")
	rowSize := h.RowSize()
	rows := make([]byte, uint64(numTerms)*numHashes*rowSize)
	if err := idx.FetchRows(hashes, rows, 0, rowSize, rowSize); err != nil {
		return nil, err
	}

	// AND the H rows of each k-mer into the first row of its group.
	// Bit j of the result is set iff document j contains the k-mer.
	s.timer.Start("and rows")
	err := parallel.For(0, uint64(numTerms), s.threads, func(m uint64) error {
		base := m * numHashes * rowSize
		dst := rows[base : base+rowSize]
		for j := uint64(1); j < numHashes; j++ {
			src := rows[base+j*rowSize : base+(j+1)*rowSize]
			for b := range dst {
				dst[b] &= src[b]
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Workers own disjoint document (byte) ranges of the score vector,
	// so no synchronisation is needed.
	s.timer.Start("add rows")
	scores := make([]uint16, rowSize*8)
	chunk := (rowSize + s.threads - 1) / s.threads
	if chunk == 0 {
		chunk = 1
	}
	numChunks := (rowSize + chunk - 1) / chunk
	err = parallel.For(0, numChunks, s.threads, func(c uint64) error {
		lo := c * chunk
		hi := lo + chunk
		if hi > rowSize {
			hi = rowSize
		}
		for m := uint64(0); m < uint64(numTerms); m++ {
			row := rows[m*numHashes*rowSize+lo : m*numHashes*rowSize+hi]
			for bi, v := range row {
				if v == 0 {
					continue
				}
				base := (lo + uint64(bi)) * 8
				for _, bit := range bitPositions[v] {
					j := base + uint64(bit)
					if scores[j] != math.MaxUint16 {
						scores[j]++
					}
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.timer.Start("sort results")
	minScore := uint32(math.Ceil(threshold * float64(numTerms)))
	if minScore == 0 {
		// a document has to match at least one k-mer to be reported
		minScore = 1
	}
	res := make([]SearchResult, 0, 32)
	for j, name := range h.DocNames {
		if sc := uint32(scores[j]); sc >= minScore {
			res = append(res, SearchResult{DocName: name, Score: sc})
		}
	}
	// stable: candidates are generated in document order, which is the
	// tie break
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].Score > res[j].Score
	})
	if limit > 0 && uint64(len(res)) > limit {
		res = res[:limit]
	}
	s.timer.Stop()
	return res, nil
}

// bitPositions[v] lists the set bit indices of byte value v, used to
// expand AND-ed rows into per-document score increments.
var bitPositions [256][]uint8

func init() {
	for v := 1; v < 256; v++ {
		for b := uint8(0); b < 8; b++ {
			if v&(1<<b) != 0 {
				bitPositions[v] = append(bitPositions[v], b)
			}
		}
	}
}
