package markov

import (
	"io"
	"log/slog"
	"maps"
	"slices"
)

// Blank is the reserved state that precedes the first state and follows the
// last state of every learned word. It is never produced by a Splitter.
const Blank = " "

// Table is a Markov chain transition table. It maps each source state to the
// states that followed it and how many times they did.
//
// The zero value is not usable; create tables with NewTable or ReadTable.
type Table struct {
	links   map[string]map[string]int
	totals  map[string]int
	headers map[string]struct{}
	logger  *slog.Logger
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{
		links:   make(map[string]map[string]int),
		totals:  make(map[string]int),
		headers: make(map[string]struct{}),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// SetLogger sets the logger for the Table. By default, all logs are discarded.
func (t *Table) SetLogger(logger *slog.Logger) {
	if logger != nil {
		t.logger = logger
	}
}

// AddLink registers one occurrence of the transition from -> to.
func (t *Table) AddLink(from, to string) {
	t.headers[from] = struct{}{}
	t.headers[to] = struct{}{}
	next, ok := t.links[from]
	if !ok {
		next = make(map[string]int)
		t.links[from] = next
	}
	next[to]++
	t.totals[from]++
}

// Weight returns the number of recorded transitions from -> to.
func (t *Table) Weight(from, to string) int {
	return t.links[from][to]
}

// Total returns the sum of the outgoing weights of state.
func (t *Table) Total(state string) int {
	return t.totals[state]
}

// Links returns a copy of the outgoing links of state, or nil if it has none.
func (t *Table) Links(state string) map[string]int {
	next, ok := t.links[state]
	if !ok {
		return nil
	}
	return maps.Clone(next)
}

// Destinations returns the states reachable from state in ascending order.
func (t *Table) Destinations(state string) []string {
	return slices.Sorted(maps.Keys(t.links[state]))
}

// Sources returns every state with at least one outgoing link, sorted.
func (t *Table) Sources() []string {
	return slices.Sorted(maps.Keys(t.links))
}

// Headers returns every state the table knows about, sorted.
func (t *Table) Headers() []string {
	return slices.Sorted(maps.Keys(t.headers))
}

// HasState reports whether state appeared as a source or destination.
func (t *Table) HasState(state string) bool {
	_, ok := t.headers[state]
	return ok
}

// Len returns the number of distinct links in the table.
func (t *Table) Len() int {
	n := 0
	for _, next := range t.links {
		n += len(next)
	}
	return n
}

// recomputeTotal rebuilds the total of state from its current links.
func (t *Table) recomputeTotal(state string) {
	sum := 0
	for _, w := range t.links[state] {
		sum += w
	}
	t.totals[state] = sum
}

// replace swaps the table contents for links and rebuilds headers and totals.
func (t *Table) replace(links map[string]map[string]int) {
	t.links = links
	t.totals = make(map[string]int, len(links))
	t.headers = make(map[string]struct{}, len(links))
	for from, next := range links {
		t.headers[from] = struct{}{}
		for to := range next {
			t.headers[to] = struct{}{}
		}
		t.recomputeTotal(from)
	}
}
