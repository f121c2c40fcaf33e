// Command wordgen trains a transition table from a word list or a saved
// snapshot and prints generated words, one per line.
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/CTAG07/wordforge/pkg/markov"
	"github.com/natefinch/atomic"
)

type options struct {
	in          string
	split       string
	load        string
	prune       float64
	normalize   bool
	favourSpace bool
	save        string
	count       int
	seed        uint64
	seeded      bool
	maxSteps    int
	logLevel    string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "wordgen: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	opts := &options{}
	fs := flag.NewFlagSet("wordgen", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.in, "in", "", "word list to learn from, one word per line (- for stdin)")
	fs.StringVar(&opts.split, "split", markov.SplitSingleLetter,
		"how words are split into states: "+strings.Join(markov.SplitterNames(), ", "))
	fs.StringVar(&opts.load, "load", "", "snapshot to start from")
	fs.Float64Var(&opts.prune, "prune", 0, "remove this fraction of each state's heaviest links (0 disables)")
	fs.BoolVar(&opts.normalize, "normalize", false, "set every link weight to 1 before generating")
	fs.BoolVar(&opts.favourSpace, "favour-space", true, "keep word-ending weights when normalizing (-favour-space=false to flatten them too)")
	fs.StringVar(&opts.save, "save", "", "write the resulting snapshot to this path")
	fs.IntVar(&opts.count, "count", 10, "number of words to generate")
	fs.Uint64Var(&opts.seed, "seed", 0, "seed for reproducible output (random when unset)")
	fs.IntVar(&opts.maxSteps, "max-steps", markov.DefaultMaxSteps, "step ceiling per word (0 for none)")
	fs.StringVar(&opts.logLevel, "log-level", "warn", "debug, info, warn or error")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			opts.seeded = true
		}
	})
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	if opts.in == "" && opts.load == "" {
		return nil, errors.New("one of -in or -load is required")
	}
	if opts.count < 0 {
		return nil, fmt.Errorf("-count must not be negative, got %d", opts.count)
	}
	return opts, nil
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: parseLogLevel(opts.logLevel)}))

	splitter, err := markov.ParseSplitter(opts.split)
	if err != nil {
		return err
	}

	table := markov.NewTable()
	table.SetLogger(logger)

	if opts.load != "" {
		if err = loadSnapshot(table, opts.load); err != nil {
			return err
		}
		logger.Info("Snapshot loaded", "path", opts.load, "links", table.Len())
	}

	if opts.in != "" {
		start := time.Now()
		n, err := learnFile(ctx, table, opts.in, stdin, splitter)
		if err != nil {
			return err
		}
		logger.Info("Word list learned", "path", opts.in, "words", n, "split", splitter.Name(), "duration", time.Since(start))
	}

	if opts.prune != 0 {
		if err = table.RemoveTopLinks(opts.prune); err != nil {
			return err
		}
	}
	if opts.normalize {
		table.NormalizeLinks(opts.favourSpace)
	}

	if opts.save != "" {
		var buf bytes.Buffer
		if err = table.WriteJSON(&buf); err != nil {
			return fmt.Errorf("could not encode snapshot: %w", err)
		}
		if err = atomic.WriteFile(opts.save, &buf); err != nil {
			return fmt.Errorf("could not save snapshot: %w", err)
		}
		logger.Info("Snapshot saved", "path", opts.save)
	}

	genOpts := []markov.GenerateOption{markov.WithMaxSteps(opts.maxSteps)}
	if opts.seeded {
		genOpts = append(genOpts, markov.WithSource(rand.New(rand.NewPCG(opts.seed, opts.seed))))
	}
	words, err := table.GenerateN(opts.count, genOpts...)
	for _, w := range words {
		if _, werr := fmt.Fprintln(stdout, w); werr != nil {
			return werr
		}
	}
	return err
}

func loadSnapshot(table *markov.Table, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("could not open snapshot: %w", err)
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)
	return table.ReadJSON(f)
}

func learnFile(ctx context.Context, table *markov.Table, path string, stdin io.Reader, s markov.Splitter) (int, error) {
	if path == "-" {
		return table.LearnFrom(ctx, stdin, s)
	}
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("could not open word list: %w", err)
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)
	return table.LearnFrom(ctx, f, s)
}

func parseLogLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelWarn
	}
	return l
}
