package markov

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

// DefaultMaxSteps is the step ceiling used by Generate unless WithMaxSteps
// overrides it.
const DefaultMaxSteps = 256

// Source supplies uniformly distributed integers in [0, n). *rand.Rand from
// math/rand/v2 satisfies it.
type Source interface {
	IntN(n int) int
}

// globalSource draws from the math/rand/v2 top-level generator.
type globalSource struct{}

func (globalSource) IntN(n int) int { return rand.IntN(n) }

// generateOptions is used by the generate functions to configure default options.
type generateOptions struct {
	maxSteps int
	source   Source
}

// GenerateOption is a function that configures generation parameters. It's used
// as a variadic argument in Generate and GenerateN.
type GenerateOption func(*generateOptions)

// WithMaxSteps sets the maximum number of states a single walk may visit
// before failing with ErrStepLimit. A value of 0 or less removes the limit,
// which can loop forever on a table where Blank is unreachable.
func WithMaxSteps(n int) GenerateOption {
	return func(o *generateOptions) { o.maxSteps = n }
}

// WithSource sets the random source used to pick transitions.
func WithSource(src Source) GenerateOption {
	return func(o *generateOptions) {
		if src != nil {
			o.source = src
		}
	}
}

func newGenerateOptions(opts []GenerateOption) *generateOptions {
	options := &generateOptions{
		maxSteps: DefaultMaxSteps,
		source:   globalSource{},
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// walkState is the phase of a generation walk.
type walkState int

const (
	walking walkState = iota
	done
)

// Generate builds a new word by walking the table from Blank until Blank is
// reached again, picking each next state with probability proportional to
// its link weight.
func (t *Table) Generate(opts ...GenerateOption) (string, error) {
	return t.generate(newGenerateOptions(opts))
}

// GenerateN generates n words, stopping at the first error.
func (t *Table) GenerateN(n int, opts ...GenerateOption) ([]string, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: word count must not be negative, got %d", ErrInvalidArgument, n)
	}
	options := newGenerateOptions(opts)
	words := make([]string, 0, n)
	for range n {
		word, err := t.generate(options)
		if err != nil {
			return words, err
		}
		words = append(words, word)
	}
	return words, nil
}

func (t *Table) generate(options *generateOptions) (string, error) {
	var builder strings.Builder

	current := Blank
	phase := walking
	steps := 0
	for phase == walking {
		if options.maxSteps > 0 && steps >= options.maxSteps {
			t.logger.Debug("Generation terminated by step limit",
				"max_steps", options.maxSteps,
				"generated", builder.String(),
			)
			return "", fmt.Errorf("%w: %d steps without reaching the end marker", ErrStepLimit, options.maxSteps)
		}

		next, err := t.nextState(current, options.source)
		if err != nil {
			return "", err
		}
		steps++

		if next == Blank {
			phase = done
			continue
		}
		builder.WriteString(next)
		current = next
	}

	return builder.String(), nil
}

// nextState picks a successor of state. The draw covers [0, total] inclusive,
// and destinations are visited in ascending order; the first one that brings
// the running value to zero or below wins.
func (t *Table) nextState(state string, src Source) (string, error) {
	total := t.totals[state]
	next := t.links[state]
	if total <= 0 || len(next) == 0 {
		return "", fmt.Errorf("%w: %q", ErrDeadEnd, state)
	}

	pos := src.IntN(total + 1)
	var last string
	for _, dest := range t.Destinations(state) {
		pos -= next[dest]
		last = dest
		if pos <= 0 {
			return dest, nil
		}
	}
	// Only reachable when totals and links disagree.
	return last, nil
}
