// ubjson converts documents between UBJSON and other formats and
// inspects UBJSON streams.
//
// Usage:
//
//	ubjson encode  [--from json|jsonc|yaml|cbor|msgpack] [--optimize] [--compress alg] [file]
//	ubjson decode  [--to json|yaml|cbor|msgpack] [--compress alg] [file]
//	ubjson inspect [--compress alg] [file]
//	ubjson digest  [--compress alg] [file]
//
// Input is read from stdin when no file is given.
package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"

	"github.com/spf13/pflag"

	"github.com/NublyBR/go-ubjson"
	"github.com/NublyBR/go-ubjson/internal/compress"
	"github.com/NublyBR/go-ubjson/internal/digest"
	"github.com/NublyBR/go-ubjson/internal/logging"
	"github.com/NublyBR/go-ubjson/internal/transcode"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// command holds the flags shared by every subcommand.
type command struct {
	name string

	from      string
	to        string
	optimize  bool
	precise   bool
	indent    string
	maxDepth  int
	maxSize   int
	maxBytes  uint64
	algorithm string
	output    string
	logFormat string
	logLevel  string

	stdin  io.Reader
	stdout io.Writer
	logger *slog.Logger
}

var errUsage = errors.New("usage: ubjson <encode|decode|inspect|digest> [flags] [file]")

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		printUsage(stderr)
		return errUsage
	}

	cmd := &command{name: args[0], stdin: stdin, stdout: stdout}

	var action func(data []byte) ([]byte, error)

	switch cmd.name {
	case "encode":
		action = cmd.encode
	case "decode":
		action = cmd.decode
	case "inspect":
		action = cmd.inspect
	case "digest":
		action = cmd.digest
	case "help", "--help", "-h":
		printUsage(stdout)
		return nil
	default:
		printUsage(stderr)
		return fmt.Errorf("unknown command: %s", cmd.name)
	}

	flagSet := cmd.flags(stderr)
	if err := flagSet.Parse(args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	logger, err := logging.New(stderr, cmd.logFormat, cmd.logLevel)
	if err != nil {
		return err
	}
	cmd.logger = logger

	if flagSet.NArg() > 1 {
		return fmt.Errorf("unexpected argument: %s", flagSet.Arg(1))
	}

	input, err := cmd.readInput(flagSet.Arg(0))
	if err != nil {
		return err
	}

	out, err := action(input)
	if err != nil {
		return err
	}

	return cmd.writeOutput(out)
}

func (c *command) flags(stderr io.Writer) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet("ubjson "+c.name, pflag.ContinueOnError)
	flagSet.SetOutput(stderr)

	switch c.name {
	case "encode":
		flagSet.StringVar(&c.from, "from", "json", "input format: json, jsonc, yaml, cbor or msgpack")
		flagSet.BoolVar(&c.optimize, "optimize", false, "write homogeneous containers with the typed container header")
		flagSet.BoolVar(&c.precise, "precise", false, "keep numbers float64 cannot hold exactly as high-precision text")
	case "decode":
		flagSet.StringVar(&c.to, "to", "json", "output format: json, yaml, cbor or msgpack")
		flagSet.StringVar(&c.indent, "indent", "", "indentation for json output")
	}

	flagSet.IntVar(&c.maxDepth, "max-depth", 0, "maximum nesting depth (0 uses the library default)")
	flagSet.IntVar(&c.maxSize, "max-size", 0, "maximum elements per container (0 uses the library default)")
	flagSet.Uint64Var(&c.maxBytes, "max-bytes", 0, "maximum encoded document size in bytes (0 is unlimited)")
	flagSet.StringVar(&c.algorithm, "compress", "none", "compression of the UBJSON side: none, zstd or lz4")
	flagSet.StringVarP(&c.output, "output", "o", "", "write output to this file instead of stdout")
	flagSet.StringVar(&c.logFormat, "log-format", "text", "log format: text or json")
	flagSet.StringVar(&c.logLevel, "log-level", "warn", "log level: debug, info, warn or error")

	return flagSet
}

func (c *command) options() ubjson.Options {
	return ubjson.Options{
		OptimizeContainers: c.optimize,
		MaxDepth:           c.maxDepth,
		MaxSize:            c.maxSize,
		MaxBytes:           c.maxBytes,
	}
}

func (c *command) encode(data []byte) ([]byte, error) {
	format, err := transcode.ParseFormat(c.from)
	if err != nil {
		return nil, err
	}

	alg, err := compress.Parse(c.algorithm)
	if err != nil {
		return nil, err
	}

	value, err := transcode.Read(data, format, transcode.Options{Precise: c.precise, MaxDepth: c.maxDepth})
	if err != nil {
		return nil, err
	}

	encoded, err := ubjson.Encode(value, c.options())
	if err != nil {
		return nil, fmt.Errorf("encoding: %w", err)
	}

	c.logger.Debug("encoded document",
		"format", format,
		"input_bytes", len(data),
		"output_bytes", len(encoded),
		"digest", digest.Sum(encoded),
	)

	packed, err := compress.Compress(encoded, alg)
	if err != nil {
		return nil, err
	}

	if alg != compress.None {
		c.logger.Debug("compressed document", "algorithm", alg, "bytes", len(packed))
	}

	return packed, nil
}

func (c *command) decode(data []byte) ([]byte, error) {
	format, err := transcode.ParseFormat(c.to)
	if err != nil {
		return nil, err
	}

	value, err := c.decodeInput(data)
	if err != nil {
		return nil, err
	}

	return transcode.Write(value, format, transcode.Options{Indent: c.indent})
}

func (c *command) inspect(data []byte) ([]byte, error) {
	value, err := c.decodeInput(data)
	if err != nil {
		return nil, err
	}

	return []byte(ubjson.Diagnose(value) + "\n"), nil
}

// digest hashes the canonical re-encoding, so documents that differ only
// in container optimization or key order share a digest.
func (c *command) digest(data []byte) ([]byte, error) {
	value, err := c.decodeInput(data)
	if err != nil {
		return nil, err
	}

	canonical, err := ubjson.Encode(value.Plain())
	if err != nil {
		return nil, fmt.Errorf("encoding: %w", err)
	}

	return []byte(digest.Sum(canonical) + "\n"), nil
}

func (c *command) decodeInput(data []byte) (ubjson.Value, error) {
	alg, err := compress.Parse(c.algorithm)
	if err != nil {
		return ubjson.Value{}, err
	}

	raw, err := compress.Decompress(data, alg, c.decompressLimit())
	if err != nil {
		return ubjson.Value{}, err
	}

	c.logger.Debug("decoding document", "bytes", len(raw), "compression", alg)

	value, err := ubjson.Decode(raw, c.options())
	if err != nil {
		return ubjson.Value{}, fmt.Errorf("decoding: %w", err)
	}

	return value, nil
}

// decompressLimit converts --max-bytes for compress.Decompress, where 0
// means unlimited. Values past math.MaxInt stay a cap instead of wrapping.
func (c *command) decompressLimit() int {
	if c.maxBytes > math.MaxInt {
		return math.MaxInt
	}
	return int(c.maxBytes)
}

func (c *command) readInput(path string) ([]byte, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(c.stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return data, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

func (c *command) writeOutput(data []byte) error {
	if c.output == "" {
		_, err := io.Copy(c.stdout, bytes.NewReader(data))
		return err
	}

	if err := os.WriteFile(c.output, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", c.output, err)
	}
	return nil
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `ubjson - convert and inspect Universal Binary JSON documents

USAGE
    ubjson <command> [flags] [file]

COMMANDS
    encode   Convert json, jsonc, yaml, cbor or msgpack to UBJSON
    decode   Convert UBJSON to json, yaml, cbor or msgpack
    inspect  Print a UBJSON document in diagnostic notation
    digest   Print the BLAKE3 digest of the canonical encoding
    help     Show this message

EXAMPLES
    # Encode a YAML file with typed containers, compressed with zstd
    ubjson encode --from yaml --optimize --compress zstd config.yaml -o config.ubj

    # Show what is inside
    ubjson inspect --compress zstd config.ubj

Run "ubjson <command> --help" for the flags of a command.
`)
}
