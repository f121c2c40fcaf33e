package markov

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Learn splits word with s and records every transition of the result,
// framed by Blank on both ends. The table is left unchanged on error.
func (t *Table) Learn(word string, s Splitter) error {
	states, err := s.Split(word)
	if err != nil {
		return err
	}
	t.learnStates(states)
	return nil
}

func (t *Table) learnStates(states []string) {
	prev := Blank
	for _, state := range states {
		t.AddLink(prev, state)
		prev = state
	}
	t.AddLink(prev, Blank)
}

// LearnFrom reads one word per line from r and learns each of them with s.
// Lines are trimmed and lowercased; blank lines are skipped. Every line is
// split before the table is touched, so a read error or a cancelled context
// leaves the table unchanged. It returns the number of words learned.
func (t *Table) LearnFrom(ctx context.Context, r io.Reader, s Splitter) (int, error) {
	// maxWordLength bounds a single scanned line.
	const maxWordLength = 64 * 1024

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxWordLength)

	var words [][]string
	var line int
	for scanner.Scan() {
		line++
		if line%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}

		word := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if word == "" {
			continue
		}
		states, err := s.Split(word)
		if err != nil {
			return 0, fmt.Errorf("could not split line %d: %w", line, err)
		}
		words = append(words, states)
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("could not read words: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	for _, states := range words {
		t.learnStates(states)
	}

	t.logger.InfoContext(ctx, "Training completed",
		slog.String("split", s.Name()),
		slog.Int("words_learned", len(words)),
		slog.Int("lines_read", line),
	)
	return len(words), nil
}
