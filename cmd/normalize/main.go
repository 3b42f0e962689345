package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"walletops/internal/domain"
	"walletops/internal/infrastructure/moralis"
	"walletops/internal/normalize"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "normalize: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("normalize", flag.ContinueOnError)
	fs.SetOutput(stderr)
	swapsOnly := fs.Bool("swaps", false, "keep only swaps matching -pair")
	pair := fs.String("pair", "USDC-WBTC", "token pair used by -swaps, as IN-OUT")
	aliasesFile := fs.String("aliases", "", "YAML file of extra token aliases")
	compact := fs.Bool("compact", false, "write one line instead of indented JSON")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: normalize [flags] [file]")
		fmt.Fprintln(stderr, "\nReads raw wallet-history records (a JSON array or a provider response)")
		fmt.Fprintln(stderr, "from file or stdin and writes normalized transactions to stdout.")
		fmt.Fprintln(stderr, "\nFlags:")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 1 {
		fs.Usage()
		return errors.New("at most one input file")
	}

	input := stdin
	if path := fs.Arg(0); path != "" && path != "-" {
		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()
		input = file
	}

	raws, err := readRecords(input)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	txs := normalize.New(normalize.WithLogger(logger)).NormalizeTransactions(raws)

	if *swapsOnly {
		filter, err := pairFilter(*pair, *aliasesFile)
		if err != nil {
			return err
		}
		txs = filter.Apply(txs)
	}

	encoder := json.NewEncoder(stdout)
	if !*compact {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(txs)
}

// readRecords accepts either a bare array of records or a provider response
// object carrying them under result or transactions.
func readRecords(r io.Reader) ([]domain.RawTransaction, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("empty input")
	}
	if trimmed[0] != '[' {
		page, err := moralis.DecodeHistory(bytes.NewReader(trimmed))
		if err != nil {
			return nil, err
		}
		return page.Transactions, nil
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()
	var raws []domain.RawTransaction
	if err := decoder.Decode(&raws); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	return raws, nil
}

func pairFilter(pair, aliasesFile string) (*normalize.PairFilter, error) {
	in, out, ok := strings.Cut(pair, "-")
	if !ok || strings.TrimSpace(in) == "" || strings.TrimSpace(out) == "" {
		return nil, fmt.Errorf("invalid -pair %q, want IN-OUT", pair)
	}
	aliases := normalize.DefaultAliases()
	if aliasesFile != "" {
		data, err := os.ReadFile(aliasesFile)
		if err != nil {
			return nil, err
		}
		custom, err := normalize.ParseAliasTable(data)
		if err != nil {
			return nil, err
		}
		aliases = aliases.Merge(custom)
	}
	return normalize.NewPairFilter(aliases, in, out), nil
}
