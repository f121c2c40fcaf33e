package markov

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
)

// maxWeight bounds every weight and per-state total so the inclusive draw in
// Generate, IntN(total+1), stays within int.
const maxWeight = math.MaxInt - 1

// WriteJSON writes the links of the table to w as a JSON object mapping each
// source state to an object of destination weights. Keys are sorted, so equal
// tables always produce identical output. Totals and headers are derived and
// not written.
func (t *Table) WriteJSON(w io.Writer) error {
	if err := json.NewEncoder(w).Encode(t.links); err != nil {
		return fmt.Errorf("could not encode table: %w", err)
	}
	return nil
}

// ReadJSON replaces the contents of the table with the snapshot read from r.
// Headers are rebuilt from every source and destination state and totals from
// the link weights. Zero weights are dropped. On error the table is unchanged.
func (t *Table) ReadJSON(r io.Reader) error {
	var raw map[string]map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedSnapshot, err)
	}
	if raw == nil {
		return fmt.Errorf("%w: snapshot is not an object", ErrMalformedSnapshot)
	}

	links := make(map[string]map[string]int, len(raw))
	dropped := 0
	for from, next := range raw {
		if next == nil {
			return fmt.Errorf("%w: links of %q are not an object", ErrMalformedSnapshot, from)
		}
		parsed := make(map[string]int, len(next))
		total := 0
		for to, value := range next {
			w, err := parseWeight(value)
			if err != nil {
				return fmt.Errorf("%w: weight %q -> %q %v", ErrMalformedSnapshot, from, to, err)
			}
			if w == 0 {
				dropped++
				continue
			}
			if w > maxWeight-total {
				return fmt.Errorf("%w: weights of %q add up to more than %d", ErrMalformedSnapshot, from, maxWeight)
			}
			total += w
			parsed[to] = w
		}
		if len(parsed) > 0 {
			links[from] = parsed
		}
	}

	t.replace(links)

	t.logger.Debug("Table loaded from snapshot",
		slog.Int("sources", len(links)),
		slog.Int("states", len(t.headers)),
		slog.Int("zero_weights_dropped", dropped),
	)
	return nil
}

// ReadTable returns a new table loaded from the snapshot read from r.
func ReadTable(r io.Reader) (*Table, error) {
	t := NewTable()
	if err := t.ReadJSON(r); err != nil {
		return nil, err
	}
	return t, nil
}

// parseWeight accepts only a bare JSON integer in [0, maxWeight].
func parseWeight(value json.RawMessage) (int, error) {
	value = bytes.TrimSpace(value)
	if len(value) == 0 || value[0] == '"' || bytes.Equal(value, []byte("null")) {
		return 0, fmt.Errorf("is not an integer: %s", value)
	}
	var w int64
	if err := json.Unmarshal(value, &w); err != nil {
		return 0, fmt.Errorf("is not an integer: %s", value)
	}
	if w < 0 {
		return 0, fmt.Errorf("is negative: %d", w)
	}
	if w > int64(maxWeight) {
		return 0, fmt.Errorf("exceeds %d: %d", maxWeight, w)
	}
	return int(w), nil
}
