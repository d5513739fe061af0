package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/iqbal-lab-org/cobs"
)

func docListCmd() *ffcli.Command {
	fs := flag.NewFlagSet("cobs doc-list", flag.ExitOnError)
	fileType := fs.String("file-type", "any", "\"list\" to read a file list, or filter documents by file type (any, text, fasta, fastq)")
	termSize := fs.Uint64("term-size", 31, "term size (k-mer size)")
	fs.Uint64Var(termSize, "k", 31, "alias for -term-size")

	return &ffcli.Command{
		Name:       "doc-list",
		ShortUsage: "cobs doc-list [flags] <path>",
		ShortHelp:  "read a document collection and print the list",
		FlagSet:    fs,
		Exec: func(_ context.Context, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("need a <path> argument")
			}
			docs, err := loadDocuments(args[0], *fileType)
			if err != nil {
				return err
			}
			return docs.PrintList(os.Stdout, *termSize)
		},
	}
}

func docDumpCmd() *ffcli.Command {
	fs := flag.NewFlagSet("cobs doc-dump", flag.ExitOnError)
	fileType := fs.String("file-type", "any", "\"list\" to read a file list, or filter documents by file type (any, text, fasta, fastq)")
	termSize := fs.Uint64("term-size", 31, "term size (k-mer size)")
	fs.Uint64Var(termSize, "k", 31, "alias for -term-size")
	noCanonicalize := fs.Bool("no-canonicalize", false, "don't canonicalize DNA k-mers")

	return &ffcli.Command{
		Name:       "doc-dump",
		ShortUsage: "cobs doc-dump [flags] <path>",
		ShortHelp:  "read a document collection and dump its k-mers",
		FlagSet:    fs,
		Exec: func(_ context.Context, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("need a <path> argument")
			}
			docs, err := loadDocuments(args[0], *fileType)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "found %d documents\n", len(docs))

			w := bufio.NewWriter(os.Stdout)
			defer w.Flush()
			canonical := make([]byte, *termSize)
			for i := range docs {
				fmt.Fprintf(os.Stderr, "document[%d] : %s : %s\n", i, docs[i].Path, docs[i].Name)
				err := docs[i].ProcessTerms(*termSize, func(term []byte) {
					if *noCanonicalize {
						fmt.Fprintf(w, "%s\n", term)
						return
					}
					if !cobs.Canonicalize(term, canonical) {
						fmt.Fprintf(w, "invalid DNA base pair: %s\n", term)
						return
					}
					fmt.Fprintf(w, "%s\n", canonical)
				})
				if err != nil {
					return err
				}
			}
			return nil
		},
	}
}
