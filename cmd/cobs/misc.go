package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"

	"github.com/dustin/go-humanize"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/iqbal-lab-org/cobs"
	"github.com/iqbal-lab-org/cobs/index"
)

func printParametersCmd() *ffcli.Command {
	fs := flag.NewFlagSet("cobs print-parameters", flag.ExitOnError)
	numHashes := fs.Uint64("num-hashes", 1, "number of hash functions")
	fs.Uint64Var(numHashes, "h", 1, "alias for -num-hashes")
	falsePositiveRate := fs.Float64("false-positive-rate", 0.3, "false positive rate")
	fs.Float64Var(falsePositiveRate, "f", 0.3, "alias for -false-positive-rate")
	numElements := fs.Uint64("num-elements", 0, "number of elements to be inserted into the index")
	fs.Uint64Var(numElements, "n", 0, "alias for -num-elements")

	return &ffcli.Command{
		Name:       "print-parameters",
		ShortUsage: "cobs print-parameters [flags]",
		ShortHelp:  "calculate Bloom filter parameters",
		FlagSet:    fs,
		Exec: func(_ context.Context, args []string) error {
			if *falsePositiveRate <= 0 || *falsePositiveRate >= 1 {
				return fmt.Errorf("false positive rate %v out of range (0,1)", *falsePositiveRate)
			}
			if *numElements == 0 {
				fmt.Printf("%g\n", cobs.CalcSignatureSizeRatio(*numHashes, *falsePositiveRate))
				return nil
			}
			signatureSize := cobs.CalcSignatureSize(*numElements, *numHashes, *falsePositiveRate)
			fmt.Printf("signature_size = %d\n", signatureSize)
			fmt.Printf("signature_bytes = %d = %s\n",
				signatureSize/8, humanize.IBytes(signatureSize/8))
			return nil
		},
	}
}

func printKmersCmd() *ffcli.Command {
	fs := flag.NewFlagSet("cobs print-kmers", flag.ExitOnError)
	kmerSize := fs.Uint64("kmer-size", 31, "the size of one k-mer")
	fs.Uint64Var(kmerSize, "k", 31, "alias for -kmer-size")

	return &ffcli.Command{
		Name:       "print-kmers",
		ShortUsage: "cobs print-kmers [flags] <query>",
		ShortHelp:  "print all canonical k-mers of a sequence",
		FlagSet:    fs,
		Exec: func(_ context.Context, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("need a <query> argument")
			}
			query := args[0]
			k := int(*kmerSize)
			if len(query) < k {
				return nil
			}
			w := bufio.NewWriter(os.Stdout)
			defer w.Flush()
			canonical := make([]byte, k)
			for i := 0; i+k <= len(query); i++ {
				if !cobs.Canonicalize([]byte(query[i:i+k]), canonical) {
					fmt.Fprintf(w, "invalid DNA base pair: %s\n", query[i:i+k])
					continue
				}
				fmt.Fprintf(w, "%s\n", canonical)
			}
			return nil
		},
	}
}

func generateQueriesCmd() *ffcli.Command {
	fs := flag.NewFlagSet("cobs generate-queries", flag.ExitOnError)
	fileType := fs.String("file-type", "any", "\"list\" to read a file list, or filter documents by file type (any, text, fasta, fastq)")
	params := index.GenerateQueriesParameters{
		TermSize:   31,
		Seed:       1,
		NumThreads: uint64(runtime.NumCPU()),
	}
	fs.Uint64Var(&params.TermSize, "term-size", params.TermSize, "term size (k-mer size)")
	fs.Uint64Var(&params.TermSize, "k", params.TermSize, "alias for -term-size")
	fs.Uint64Var(&params.NumPositive, "positive", 0, "pick this number of existing positive queries")
	fs.Uint64Var(&params.NumPositive, "p", 0, "alias for -positive")
	fs.Uint64Var(&params.NumNegative, "negative", 0, "construct this number of random non-existing negative queries")
	fs.Uint64Var(&params.NumNegative, "n", 0, "alias for -negative")
	fs.BoolVar(&params.TrueNegatives, "true-negative", false, "check that negative queries are not in the documents (slow)")
	fs.BoolVar(&params.TrueNegatives, "N", false, "alias for -true-negative")
	fs.Uint64Var(&params.FixedSize, "size", 0, "extend positive terms with random data to this size")
	fs.Uint64Var(&params.FixedSize, "s", 0, "alias for -size")
	fs.Uint64Var(&params.Seed, "seed", params.Seed, "random seed")
	fs.Uint64Var(&params.Seed, "S", params.Seed, "alias for -seed")
	fs.Uint64Var(&params.NumThreads, "threads", params.NumThreads, "number of threads to use")
	fs.Uint64Var(&params.NumThreads, "T", params.NumThreads, "alias for -threads")
	outFile := fs.String("out-file", "", "output file path, default: stdout")
	fs.StringVar(outFile, "o", "", "alias for -out-file")

	return &ffcli.Command{
		Name:       "generate-queries",
		ShortUsage: "cobs generate-queries [flags] <path>",
		ShortHelp:  "select positive and negative queries from a document collection",
		FlagSet:    fs,
		Exec: func(_ context.Context, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("need a <path> argument")
			}
			docs, err := loadDocuments(args[0], *fileType)
			if err != nil {
				return err
			}
			out := os.Stdout
			if *outFile != "" {
				f, err := os.Create(*outFile)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			return index.GenerateQueries(docs, out, params)
		},
	}
}

func versionCmd() *ffcli.Command {
	return &ffcli.Command{
		Name:       "version",
		ShortUsage: "cobs version",
		ShortHelp:  "print version and exit",
		Exec: func(context.Context, []string) error {
			fmt.Printf("COBS version %s\n", cobs.Version)
			return nil
		},
	}
}
