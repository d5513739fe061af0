package index

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"math/rand"
	"sort"
	"sync"

	"github.com/RoaringBitmap/roaring/roaring64"

	"github.com/iqbal-lab-org/cobs"
	"github.com/iqbal-lab-org/cobs/internal/parallel"
)

// GenerateQueriesParameters configures query generation.
type GenerateQueriesParameters struct {
	TermSize    uint64
	NumPositive uint64
	NumNegative uint64
	// TrueNegatives verifies negatives against every document term,
	// which requires a full scan of the collection.
	TrueNegatives bool
	// FixedSize extends positive terms with random flanking bases to
	// this length. Values below TermSize are raised to it.
	FixedSize  uint64
	Seed       uint64
	NumThreads uint64
}

type generatedQuery struct {
	term string
	// docIndex < 0 marks a negative query
	docIndex  int
	termIndex uint64
}

// GenerateQueries samples NumPositive terms uniformly from the document
// collection, generates NumNegative random sequences, optionally
// verifies those against the collection, and writes the shuffled mix as
// FASTA records to w. Positive headers carry the source document and
// term position so downstream checks can verify expected scores.
func GenerateQueries(docs DocumentList, w io.Writer, p GenerateQueriesParameters) error {
	fixedSize := p.FixedSize
	if fixedSize < p.TermSize {
		fixedSize = p.TermSize
	}
	rng := rand.New(rand.NewSource(int64(p.Seed)))

	counts, err := docTermCounts(docs, p.TermSize, p.NumThreads)
	if err != nil {
		return err
	}
	prefixSum := make([]uint64, len(docs))
	var totalTerms uint64
	for i, c := range counts {
		prefixSum[i] = totalTerms
		totalTerms += c
	}
	log.Printf("given %d documents containing %d %d-gram terms", len(docs), totalTerms, p.TermSize)

	if totalTerms < p.NumPositive {
		return fmt.Errorf("collection has %d terms, cannot sample %d positives", totalTerms, p.NumPositive)
	}

	// distinct positive term indices, iterated in sorted order below
	positiveSet := roaring64.New()
	for positiveSet.GetCardinality() < p.NumPositive {
		positiveSet.Add(rng.Uint64() % totalTerms)
	}
	positiveIndices := positiveSet.ToArray()
	positives := make([]generatedQuery, len(positiveIndices))

	// oversample negatives so true-negative filtering can drop some
	numCandidates := p.NumNegative + p.NumNegative/2
	negatives := make([]string, numCandidates)
	negativeTerms := make(map[string][]uint64)
	for t := range negatives {
		neg := string(cobs.RandomSequence(int(fixedSize), rng))
		negatives[t] = neg
		for i := uint64(0); i+p.TermSize <= uint64(len(neg)); i++ {
			term := neg[i : i+p.TermSize]
			negativeTerms[term] = append(negativeTerms[term], uint64(t))
		}
	}

	var negMu sync.Mutex
	err = parallel.For(0, uint64(len(docs)), p.NumThreads, func(d uint64) error {
		index := prefixSum[d]
		pos := sort.Search(len(positiveIndices), func(i int) bool {
			return positiveIndices[i] >= index
		})
		const noNext = ^uint64(0)
		next := noNext
		if pos < len(positiveIndices) {
			next = positiveIndices[pos]
		}
		if next == noNext && !p.TrueNegatives {
			return nil
		}
		docRng := rand.New(rand.NewSource(int64(p.Seed) + int64(d) + 1))

		return docs[d].ProcessTerms(p.TermSize, func(term []byte) {
			if index == next {
				q := &positives[pos]
				q.term = string(term)
				q.docIndex = int(d)
				q.termIndex = index - prefixSum[d]

				// pad the term to fixedSize with random flanks
				if uint64(len(q.term)) < fixedSize {
					padding := fixedSize - uint64(len(q.term))
					front := docRng.Uint64() % padding
					back := padding - front
					q.term = string(cobs.RandomSequence(int(front), docRng)) +
						q.term +
						string(cobs.RandomSequence(int(back), docRng))
				}

				pos++
				next = noNext
				if pos < len(positiveIndices) {
					next = positiveIndices[pos]
				}
			}
			index++

			if p.TrueNegatives {
				negMu.Lock()
				if hits, ok := negativeTerms[string(term)]; ok {
					log.Printf("remove false negative: %s", term)
					for _, t := range hits {
						negatives[t] = ""
					}
					delete(negativeTerms, string(term))
				}
				negMu.Unlock()
			}
		})
	})
	if err != nil {
		return err
	}

	queries := positives
	var kept uint64
	for _, neg := range negatives {
		if kept == p.NumNegative {
			break
		}
		if neg == "" {
			continue
		}
		queries = append(queries, generatedQuery{term: neg, docIndex: -1})
		kept++
	}
	if kept < p.NumNegative {
		return fmt.Errorf("not enough true negatives left, you were unlucky, try again")
	}

	rng.Shuffle(len(queries), func(i, j int) {
		queries[i], queries[j] = queries[j], queries[i]
	})

	bw := bufio.NewWriter(w)
	negativeCount := 0
	for _, q := range queries {
		if q.docIndex >= 0 {
			fmt.Fprintf(bw, ">doc:%d:term:%d:%s\n", q.docIndex, q.termIndex, docs[q.docIndex].Name)
		} else {
			fmt.Fprintf(bw, ">negative%d\n", negativeCount)
			negativeCount++
		}
		fmt.Fprintln(bw, q.term)
	}
	return bw.Flush()
}
