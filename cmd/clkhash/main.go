// Command clkhash is an illustrative CLI over the encoding library: it
// reads a CSV of records, hashes each row into a CLK under a schema,
// and writes the resulting base64 bit vectors as JSON. It exercises
// the library end to end but is not itself part of the hard core.
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/pion/logging"

	"github.com/linkforge/clk/pkg/bitarray"
	"github.com/linkforge/clk/pkg/bloom"
	"github.com/linkforge/clk/pkg/kdf"
	"github.com/linkforge/clk/pkg/pipeline"
	"github.com/linkforge/clk/pkg/schema"
)

func main() {
	if len(os.Args) < 2 || os.Args[1] != "hash" {
		usage()
		os.Exit(2)
	}

	fs := flag.NewFlagSet("hash", flag.ExitOnError)
	schemaPath := fs.String("schema", "", "path to the schema JSON document (required)")
	noHeader := fs.Bool("no-header", false, "treat the first CSV row as data, not a header")
	xorFolds := fs.Int("xor-folds", -1, "override the schema's configured XOR-fold count")
	quiet := fs.Bool("quiet", false, "suppress progress logging")
	// Flags may appear before, between, or after the positional
	// arguments, so parse repeatedly, setting each positional aside.
	var args []string
	rest := os.Args[2:]
	for {
		fs.Parse(rest)
		rest = fs.Args()
		if len(rest) == 0 {
			break
		}
		args = append(args, rest[0])
		rest = rest[1:]
	}
	if len(args) != 4 {
		usage()
		os.Exit(2)
	}

	cfg := runConfig{
		inputPath:  args[0],
		secret1:    args[1],
		secret2:    args[2],
		outputPath: args[3],
		schemaPath: *schemaPath,
		noHeader:   *noHeader,
		xorFolds:   *xorFolds,
		quiet:      *quiet,
	}
	if err := run(cfg); err != nil {
		fmt.Fprintln(os.Stderr, "clkhash:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: clkhash hash <input.csv> <secret1> <secret2> <output.json> --schema PATH [--no-header] [--xor-folds N] [--quiet]")
}

type runConfig struct {
	inputPath, secret1, secret2, outputPath string
	schemaPath                              string
	noHeader                                bool
	xorFolds                                int
	quiet                                   bool
}

func run(cfg runConfig) error {
	if cfg.schemaPath == "" {
		return fmt.Errorf("--schema is required")
	}

	loggerFactory := logging.NewDefaultLoggerFactory()
	if cfg.quiet {
		loggerFactory.DefaultLogLevel = logging.LogLevelError
	}
	log := loggerFactory.NewLogger("cli")

	s, err := schema.LoadFile(cfg.schemaPath)
	if err != nil {
		return fmt.Errorf("loading schema: %w", err)
	}
	if cfg.xorFolds >= 0 {
		s.XorFolds = cfg.xorFolds
	}

	rows, err := readCSV(cfg.inputPath, cfg.noHeader, s)
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	log.Infof("loaded %d rows from %s", len(rows), cfg.inputPath)

	keys, err := kdf.DeriveFromText([]string{cfg.secret1, cfg.secret2}, len(s.Fields), kdf.Options{
		Algorithm:     kdf.Algorithm(s.KDF.Hash),
		KeySize:       s.KDF.KeySize,
		Salt:          s.KDF.Salt,
		Info:          s.KDF.Info,
		Legacy:        s.KDF.Legacy,
		LoggerFactory: loggerFactory,
	})
	if err != nil {
		return fmt.Errorf("deriving keys: %w", err)
	}

	opts := pipeline.Options{LoggerFactory: loggerFactory}
	if !cfg.quiet {
		total := len(rows)
		opts.Progress = func(completed int) {
			log.Infof("encoded %d/%d rows", completed, total)
		}
	}

	encoded, err := pipeline.Run(context.Background(), rows, s, keys, opts)
	if err != nil {
		return fmt.Errorf("encoding rows: %w", err)
	}

	if err := writeOutput(cfg.outputPath, encoded); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	log.Infof("wrote %d CLKs to %s", len(encoded), cfg.outputPath)
	return nil
}

// readCSV loads the input file and, unless noHeader is set, validates
// the header row against the schema's field identifiers (spec.md's S3
// scenario: a header that doesn't match the schema is a FormatError).
func readCSV(path string, noHeader bool, s *schema.Schema) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	if noHeader {
		return records, nil
	}

	header := records[0]
	if len(header) != len(s.Fields) {
		return nil, &bloom.FormatError{
			RowIndex: 0,
			Reason:   fmt.Sprintf("expected %d header columns, got %d", len(s.Fields), len(header)),
		}
	}
	for i, field := range s.Fields {
		if header[i] != field.Identifier {
			return nil, &bloom.FormatError{
				RowIndex: 0,
				Reason:   fmt.Sprintf("header column %d: expected %q, got %q", i, field.Identifier, header[i]),
			}
		}
	}
	return records[1:], nil
}

func writeOutput(path string, encoded []bloom.EncodedRow) error {
	clks := make([]string, len(encoded))
	for i, row := range encoded {
		clks[i] = bitarray.Serialize(row.Bits)
	}

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()

	return json.NewEncoder(out).Encode(struct {
		Clks []string `json:"clks"`
	}{Clks: clks})
}
