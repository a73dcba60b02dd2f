// Copyright 2026, the FastK-go contributors.

// fastk-count drives the k-mer counting and profiling pipeline
// (package pipeline) over the per-partition, per-thread super-mer
// files already written to SORT_PATH.
//
// fastk-count can be invoked either using a configuration file in
// JSON format, or using command-line flags, matching cmd/muscato's
// flag/JSON duality. A typical invocation using flags is:
//
//	fastk-count --K=40 --NTHREADS=8 --NPARTS=4 --SORT_PATH=/scratch/run1 reads
//
// To use a JSON config file instead:
//
//	fastk-count --ConfigFileName=config.json reads
//
// The positional argument is the root name shared by every input
// file "<SORT_PATH>/<root>.<partition>.T<thread>"; the final
// histogram is written to "<root>.K<K>" in the current directory
// unless -o names a different output directory.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/kshedden/fastk/config"
	"github.com/kshedden/fastk/histogram"
	"github.com/kshedden/fastk/logutil"
	"github.com/kshedden/fastk/pipeline"
	"github.com/pkg/profile"
)

var (
	cfg      *config.Config
	root     string
	outDir   string
	logger   *log.Logger
	logFid   *os.File
	progress *logutil.Progress
)

// handleArgs parses the JSON config file (if any) and then lets any
// flags explicitly set on the command line override it, matching
// cmd/muscato/main.go's handleArgs: flags are first parsed onto a
// zero-valued scratch Config, whose nonzero fields are then overlaid
// onto whichever base (JSON file or built-in defaults) was selected. A
// flag given explicitly as zero, false or "" therefore leaves the base
// value in place.
func handleArgs() {
	fs := flag.NewFlagSet("fastk-count", flag.ExitOnError)

	configFileName := fs.String("ConfigFileName", "", "JSON file containing configuration parameters")
	outDirFlag := fs.String("o", "", "output directory for the final histogram (default: current directory)")

	scratch := &config.Config{}
	scratch.BindFlags(fs)

	fs.Parse(os.Args[1:])

	if *configFileName != "" {
		cfg = config.ReadConfig(*configFileName)
	} else {
		cfg = config.Default()
	}
	overlay(scratch)

	outDir = *outDirFlag

	if fs.NArg() < 1 {
		os.Stderr.WriteString("\nusage: fastk-count [flags] <root>\n\n")
		os.Exit(1)
	}
	root = fs.Arg(0)
}

// overlay copies every field the user actually set on the command line
// (nonzero in scratch, whose flags default to the zero value rather
// than cfg's) onto cfg.
func overlay(scratch *config.Config) {
	if scratch.K != 0 {
		cfg.K = scratch.K
	}
	if scratch.NThreads != 0 {
		cfg.NThreads = scratch.NThreads
	}
	if scratch.NParts != 0 {
		cfg.NParts = scratch.NParts
	}
	if scratch.NPanels != 0 {
		cfg.NPanels = scratch.NPanels
	}
	if scratch.DoTable != 0 {
		cfg.DoTable = scratch.DoTable
	}
	if scratch.DoProfile {
		cfg.DoProfile = true
	}
	if scratch.HistLow != 0 {
		cfg.HistLow = scratch.HistLow
	}
	if scratch.HistHgh != 0 {
		cfg.HistHgh = scratch.HistHgh
	}
	if scratch.Verbose {
		cfg.Verbose = true
	}
	if scratch.SortPath != "" {
		cfg.SortPath = scratch.SortPath
	}
	if scratch.MaxSuper != 0 {
		cfg.MaxSuper = scratch.MaxSuper
	}
	if scratch.TempDir != "" {
		cfg.TempDir = scratch.TempDir
	}
	if scratch.LogDir != "" {
		cfg.LogDir = scratch.LogDir
	}
	if scratch.CPUProfile != "" {
		cfg.CPUProfile = scratch.CPUProfile
	}
	if scratch.NoCleanTmp {
		cfg.NoCleanTmp = true
	}
}

// checkArgs applies the fatal out-of-range checks spec.md §7 calls out,
// plus the ones specific to driving a run from the command line.
func checkArgs() {
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "\n%s, run 'fastk-count --help' for more information.\n\n", err)
		os.Exit(1)
	}
	if root == "" {
		os.Stderr.WriteString("\nno root name provided, run 'fastk-count --help' for more information.\n\n")
		os.Exit(1)
	}
	if outDir == "" {
		outDir = "."
	}
}

func setupLog() {
	if cfg.LogDir == "" {
		cfg.LogDir = "."
	}
	l, fid, err := logutil.New(cfg.LogDir, "fastk-count")
	if err != nil {
		panic(err)
	}
	logger = l
	logFid = fid
	progress = logutil.NewProgress(cfg.Verbose, logger)
}

func main() {
	handleArgs()
	checkArgs()

	if _, err := cfg.ResolveSortPath(); err != nil {
		log.Fatal(err)
	}

	setupLog()
	defer logFid.Close()

	if cfg.CPUProfile != "" {
		p := profile.Start(profile.ProfilePath(cfg.CPUProfile))
		defer p.Stop()
	}

	logger.Printf("Starting pipeline.Run for root %s...\n", root)
	hist, err := pipeline.Run(cfg, root, outDir, progress)
	if err != nil {
		logger.Printf("fatal: %v\n", err)
		log.Fatal(err)
	}

	outPath := fmt.Sprintf("%s/%s.K%d", outDir, root, cfg.K)
	logger.Printf("wrote final histogram to %s\n", outPath)

	if cfg.Verbose {
		histogram.Print(os.Stdout, hist, root, cfg.HistLow, cfg.HistHgh)
	}
}
