// Command cobs builds and queries compact bit-sliced signature indices
// over genomic k-mer collections.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/peterbourgon/ff/v3/ffcli"
	"go.uber.org/automaxprocs/maxprocs"
)

func main() {
	// Tune GOMAXPROCS to match Linux container CPU quota.
	_, _ = maxprocs.Set(maxprocs.Logger(func(string, ...interface{}) {}))

	root := &ffcli.Command{
		Name:       "cobs",
		ShortUsage: "cobs <subcommand> [flags] [args...]",
		ShortHelp:  "compact bit-sliced signature index for genome search",
		Subcommands: []*ffcli.Command{
			docListCmd(),
			docDumpCmd(),
			classicConstructCmd(),
			classicConstructRandomCmd(),
			compactConstructCmd(),
			compactConstructCombineCmd(),
			classicCombineCmd(),
			queryCmd(),
			printParametersCmd(),
			printKmersCmd(),
			generateQueriesCmd(),
			versionCmd(),
		},
		Exec: func(context.Context, []string) error {
			return flag.ErrHelp
		},
	}

	if err := root.ParseAndRun(context.Background(), os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "EXCEPTION: %v\n", err)
		os.Exit(1)
	}
}

// stringList collects repeatable string flags.
type stringList []string

func (s *stringList) String() string { return fmt.Sprint([]string(*s)) }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}
