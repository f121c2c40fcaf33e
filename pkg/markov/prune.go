package markov

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"
)

// RemoveTopLinks removes the heaviest fraction of each state's outgoing links.
// For a state with n destinations, the first floor(fraction*n) destinations in
// descending weight order (ties broken by state) are deleted. Links to Blank
// are never removed, so word endings survive, and a state with a single link
// keeps it. Totals are rebuilt afterwards.
//
// fraction must lie strictly between 0 and 1.
func (t *Table) RemoveTopLinks(fraction float64) error {
	if !(fraction > 0 && fraction < 1) {
		return fmt.Errorf("%w: fraction must be between 0 and 1 exclusive, got %v", ErrInvalidArgument, fraction)
	}

	removed := 0
	for _, state := range t.Headers() {
		next, ok := t.links[state]
		if !ok {
			continue
		}

		ranked := t.rankedDestinations(state)
		cut := int(fraction * float64(len(ranked)))
		for i := 0; i < cut; i++ {
			if i >= len(ranked) || ranked[i] == Blank {
				continue
			}
			delete(next, ranked[i])
			removed++
		}
		t.recomputeTotal(state)
	}

	t.logger.Debug("Top links removed",
		slog.Float64("fraction", fraction),
		slog.Int("links_removed", removed),
	)
	return nil
}

// rankedDestinations returns the destinations of state by descending weight.
func (t *Table) rankedDestinations(state string) []string {
	next := t.links[state]
	ranked := t.Destinations(state)
	slices.SortStableFunc(ranked, func(a, b string) int {
		return cmp.Compare(next[b], next[a])
	})
	return ranked
}

// NormalizeLinks sets every link weight to 1, making all transitions out of a
// state equally likely. With favourSpace set, links to Blank keep their
// weight. Pruning a normalized table removes an arbitrary subset of links.
func (t *Table) NormalizeLinks(favourSpace bool) {
	for _, state := range t.Headers() {
		next, ok := t.links[state]
		if !ok {
			continue
		}
		for dest := range next {
			if favourSpace && dest == Blank {
				continue
			}
			next[dest] = 1
		}
		t.recomputeTotal(state)
	}

	t.logger.Debug("Links normalized", slog.Bool("favour_space", favourSpace))
}
