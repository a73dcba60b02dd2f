// Copyright 2026, the FastK-go contributors.

// fastk-hist prints the folded k-mer count histogram written by
// fastk-count. Usage:
//
//	fastk-hist <root>.K<K> [low] [high]
//
// low/high default to 0 (the full range the histogram holds).
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/kshedden/fastk/histogram"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: fastk-hist <histogram-file> [low] [high]")
		os.Exit(1)
	}

	h, err := histogram.ReadFile(os.Args[1])
	if err != nil {
		panic(err)
	}

	low, hgh := 0, 0
	if len(os.Args) > 2 {
		low, err = strconv.Atoi(os.Args[2])
		if err != nil {
			panic(err)
		}
	}
	if len(os.Args) > 3 {
		hgh, err = strconv.Atoi(os.Args[3])
		if err != nil {
			panic(err)
		}
	}

	histogram.Print(os.Stdout, h, os.Args[1], low, hgh)
}
