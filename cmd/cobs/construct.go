package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"

	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/iqbal-lab-org/cobs/index"
)

func classicConstructCmd() *ffcli.Command {
	fs := flag.NewFlagSet("cobs classic-construct", flag.ExitOnError)
	params := index.ClassicIndexParameters{}
	params.SetDefaults()
	params.Flags(fs)
	fileType := fs.String("file-type", "any", "\"list\" to read a file list, or filter documents by file type (any, text, fasta, fastq)")
	tmpPath := fs.String("tmp-path", "", "directory for intermediate index files, default: out_file + \".tmp\"")

	return &ffcli.Command{
		Name:       "classic-construct",
		ShortUsage: "cobs classic-construct [flags] <input> <out_file>",
		ShortHelp:  "construct a classic index from a document collection",
		FlagSet:    fs,
		Exec: func(_ context.Context, args []string) error {
			if len(args) != 2 {
				return fmt.Errorf("need <input> and <out_file> arguments")
			}
			docs, err := loadDocuments(args[0], *fileType)
			if err != nil {
				return err
			}
			if err := docs.PrintList(os.Stderr, params.TermSize); err != nil {
				return err
			}
			return index.ClassicConstruct(docs, args[1], *tmpPath, params)
		},
	}
}

func classicConstructRandomCmd() *ffcli.Command {
	fs := flag.NewFlagSet("cobs classic-construct-random", flag.ExitOnError)
	signatureSize := fs.Uint64("s", 2*1024*1024, "number of bits of the signatures (vertical size)")
	numDocuments := fs.Uint64("n", 10000, "number of random documents in index")
	docSize := fs.Uint64("m", 1000000, "number of random 31-mers in each document")
	numHashes := fs.Uint64("h", 1, "number of hash functions")
	seed := fs.Uint64("seed", 1, "random seed")

	return &ffcli.Command{
		Name:       "classic-construct-random",
		ShortUsage: "cobs classic-construct-random [flags] <out_file>",
		ShortHelp:  "construct a classic index with random content",
		FlagSet:    fs,
		Exec: func(_ context.Context, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("need an <out_file> argument")
			}
			fmt.Fprintf(os.Stderr, "constructing random index, num_documents = %d, signature_size = %d\n",
				*numDocuments, *signatureSize)
			return index.ClassicConstructRandom(args[0], *signatureSize, *numDocuments, *docSize, *numHashes, *seed)
		},
	}
}

func compactConstructCmd() *ffcli.Command {
	fs := flag.NewFlagSet("cobs compact-construct", flag.ExitOnError)
	params := index.CompactIndexParameters{}
	params.SetDefaults()
	params.Flags(fs)
	fileType := fs.String("file-type", "any", "\"list\" to read a file list, or filter documents by file type (any, text, fasta, fastq)")
	tmpPath := fs.String("tmp-path", "", "directory for intermediate index files, default: out_file + \".tmp\"")

	return &ffcli.Command{
		Name:       "compact-construct",
		ShortUsage: "cobs compact-construct [flags] <input> <out_file>",
		ShortHelp:  "construct a compact index from a document collection",
		FlagSet:    fs,
		Exec: func(_ context.Context, args []string) error {
			if len(args) != 2 {
				return fmt.Errorf("need <input> and <out_file> arguments")
			}
			docs, err := loadDocuments(args[0], *fileType)
			if err != nil {
				return err
			}
			if err := docs.PrintList(os.Stderr, params.TermSize); err != nil {
				return err
			}
			return index.CompactConstruct(docs, args[1], *tmpPath, params)
		},
	}
}

func compactConstructCombineCmd() *ffcli.Command {
	fs := flag.NewFlagSet("cobs compact-construct-combine", flag.ExitOnError)
	pageSize := fs.Uint64("page-size", 8192, "documents per partition of the compact index")
	fs.Uint64Var(pageSize, "p", 8192, "alias for -page-size")

	return &ffcli.Command{
		Name:       "compact-construct-combine",
		ShortUsage: "cobs compact-construct-combine [flags] <in_dir> <out_file>",
		ShortHelp:  "combine classic slabs into a compact index",
		FlagSet:    fs,
		Exec: func(_ context.Context, args []string) error {
			if len(args) != 2 {
				return fmt.Errorf("need <in_dir> and <out_file> arguments")
			}
			return index.CompactCombineDir(args[0], args[1], *pageSize)
		},
	}
}

func classicCombineCmd() *ffcli.Command {
	fs := flag.NewFlagSet("cobs classic-combine", flag.ExitOnError)
	memBytes := fs.Uint64("memory", index.DefaultMemoryBytes(), "memory in bytes to use")
	fs.Uint64Var(memBytes, "m", *memBytes, "alias for -memory")
	numThreads := fs.Uint64("threads", uint64(runtime.NumCPU()), "number of threads to use")
	fs.Uint64Var(numThreads, "T", *numThreads, "alias for -threads")
	keepTemporary := fs.Bool("keep-temporary", false, "keep temporary files during construction")

	return &ffcli.Command{
		Name:       "classic-combine",
		ShortUsage: "cobs classic-combine [flags] <in_dir> <out_dir> <out_file>",
		ShortHelp:  "merge the classic indices of a directory into one",
		FlagSet:    fs,
		Exec: func(_ context.Context, args []string) error {
			if len(args) != 3 {
				return fmt.Errorf("need <in_dir>, <out_dir> and <out_file> arguments")
			}
			return index.ClassicCombineDir(args[0], args[1], args[2], *memBytes, *numThreads, *keepTemporary)
		},
	}
}

func loadDocuments(path, fileType string) (index.DocumentList, error) {
	ft, err := index.StringToFileType(fileType)
	if err != nil {
		return nil, err
	}
	return index.NewDocumentList(path, ft)
}
