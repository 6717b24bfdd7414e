// megrez is the command-line driver for the Megrez core. It reads one
// source file (schema declarations plus an optional root value
// literal), and either writes the encoded payload or prints the
// canonical schema description with its fingerprint.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/spf13/pflag"

	"github.com/megrez-io/megrez-go/pkg/megrez"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "megrez: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var outPath string
	var describe bool
	var compress bool

	flags := pflag.NewFlagSet("megrez", pflag.ContinueOnError)
	flags.StringVarP(&outPath, "out", "o", "", "output file (default: <source> with .mgz replaced by .bin, plus .zst with --zstd)")
	flags.BoolVar(&describe, "describe", false, "print the canonical schema and fingerprint, encode nothing")
	flags.BoolVar(&compress, "zstd", false, "zstd-compress the payload")
	if err := flags.Parse(os.Args[1:]); err != nil {
		return err
	}
	args := flags.Args()
	if len(args) != 1 {
		return fmt.Errorf("usage: megrez [flags] <source>")
	}

	src, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	res, err := megrez.Parse(string(src))
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	if describe {
		fmt.Print(res.Schema.Canonical())
		fmt.Printf("fingerprint: %x\n", res.Schema.Fingerprint())
		return nil
	}

	if res.Payload == nil {
		return fmt.Errorf("%s: source declares no root value, nothing to encode", args[0])
	}

	data := res.Payload
	if compress {
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return err
		}
		data = enc.EncodeAll(data, nil)
		enc.Close()
	}

	out := outPath
	if out == "" {
		out = strings.TrimSuffix(args[0], ".mgz") + ".bin"
		if compress {
			out += ".zst"
		}
	}
	return os.WriteFile(out, data, 0o644)
}
