package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"
	"strconv"

	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/iqbal-lab-org/cobs"
)

func queryCmd() *ffcli.Command {
	fs := flag.NewFlagSet("cobs query", flag.ExitOnError)
	var indexFiles stringList
	fs.Var(&indexFiles, "index", "path to an index file, repeatable")
	fs.Var(&indexFiles, "i", "alias for -index")
	queryFile := fs.String("file", "", "query FASTA/FASTQ file to process, optionally gzipped")
	fs.StringVar(queryFile, "f", "", "alias for -file")
	threshold := fs.Float64("threshold", 0.8, "fraction of query k-mers a document must match")
	fs.Float64Var(threshold, "t", 0.8, "alias for -threshold")
	limit := fs.Uint64("limit", 0, "number of results to return per query, 0 = all")
	fs.Uint64Var(limit, "l", 0, "alias for -limit")
	loadComplete := fs.Bool("load-complete", false, "load complete index into RAM for batch queries")
	numThreads := fs.Uint64("threads", uint64(runtime.NumCPU()), "number of threads to use")
	fs.Uint64Var(numThreads, "T", *numThreads, "alias for -threads")
	var indexSizes stringList
	fs.Var(&indexSizes, "index-sizes",
		"precomputed index file sizes for streamed classic indices, implies -load-complete, repeatable")

	return &ffcli.Command{
		Name:       "query",
		ShortUsage: "cobs query [flags] [<query>]",
		ShortHelp:  "query one or more indices",
		FlagSet:    fs,
		Exec: func(_ context.Context, args []string) error {
			if len(args) > 1 {
				return fmt.Errorf("at most one inline query")
			}
			if len(indexFiles) == 0 {
				return fmt.Errorf("pass at least one index with -i")
			}

			var queryLine string
			if len(args) == 1 {
				queryLine = args[0]
			}

			indices, err := openIndices(indexFiles, indexSizes, *loadComplete)
			if err != nil {
				return err
			}
			defer func() {
				for _, idx := range indices {
					idx.Close()
				}
			}()

			s := cobs.NewSearch(indices, cobs.SearchOptions{Threads: *numThreads})
			return cobs.ProcessQuery(s, *threshold, *limit, queryLine, *queryFile, os.Stdout)
		},
	}
}

// openIndices opens every index path in order. An index appearing twice
// is opened twice and queried independently. With sizes given, indices
// are read as streams of the stated lengths instead of seekable files.
func openIndices(paths, sizes stringList, loadComplete bool) ([]cobs.IndexSearchFile, error) {
	if len(sizes) > 0 && len(sizes) != len(paths) {
		return nil, fmt.Errorf("-index-sizes needs one size per index, got %d for %d indices", len(sizes), len(paths))
	}

	indices := make([]cobs.IndexSearchFile, 0, len(paths))
	closeAll := func() {
		for _, idx := range indices {
			idx.Close()
		}
	}
	for i, path := range paths {
		var idx cobs.IndexSearchFile
		var err error
		if len(sizes) > 0 {
			var size int64
			size, err = strconv.ParseInt(sizes[i], 10, 64)
			if err != nil {
				closeAll()
				return nil, fmt.Errorf("bad index size %q: %w", sizes[i], err)
			}
			var f *os.File
			f, err = os.Open(path)
			if err != nil {
				closeAll()
				return nil, err
			}
			idx, err = cobs.OpenIndexStream(path, f, size)
			f.Close()
		} else {
			idx, err = cobs.OpenIndex(path, cobs.OpenOptions{LoadComplete: loadComplete})
		}
		if err != nil {
			closeAll()
			return nil, err
		}
		indices = append(indices, idx)
	}
	return indices, nil
}
