// huffcomp compresses and decompresses files with the BIOS Huffman format
// (method 0x28) used by the GBA and 3DS.
//
// Usage:
//
//	huffcomp [-d] [-o output] input
//
// Without -d the input file is compressed; with -d a compressed file is
// expanded. The default output path appends ".huff" when compressing and
// strips it when decompressing.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/oreo639/tex3ds/compression"
)

func main() {
	var (
		decompress = flag.Bool("d", false, "Decompress the input file")
		output     = flag.String("o", "", "Output path")
	)
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: huffcomp [-d] [-o output] input")
		flag.PrintDefaults()
		os.Exit(1)
	}

	input := flag.Arg(0)
	data, err := os.ReadFile(input)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var result []byte
	if *decompress {
		result, err = expand(data)
	} else {
		result, err = compression.HuffEncode(data)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", input, err)
		os.Exit(1)
	}

	path := *output
	if path == "" {
		if *decompress {
			path = strings.TrimSuffix(input, ".huff")
			if path == input {
				path = input + ".out"
			}
		} else {
			path = input + ".huff"
		}
	}

	if err := os.WriteFile(path, result, 0o644); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func expand(data []byte) ([]byte, error) {
	method, size, payload, err := compression.ParseCompressionHeader(data)
	if err != nil {
		return nil, err
	}
	if method != compression.MethodHuffman8 {
		return nil, fmt.Errorf("unsupported compression method 0x%02x", method)
	}
	return compression.HuffDecode(payload, size)
}
