package markov

import (
	"cmp"
	"context"
	"slices"
)

// DBStats holds aggregated statistics for every table in a store.
type DBStats struct {
	Tables []TableInfo        `json:"tables"` // A list of tables in the database
	Stats  map[int]TableStats `json:"stats"`  // A mapping of table ids to their stats
	Links  int                `json:"links"`  // The number of stored links across all tables
}

// TableStats holds aggregated statistics for a single table.
type TableStats struct {
	States      int `json:"states"`       // The number of known states, Blank included.
	Sources     int `json:"sources"`      // The number of states with outgoing links.
	Links       int `json:"links"`        // The number of unique source->destination links.
	TotalWeight int `json:"total_weight"` // The sum of all link weights; the number of learned transitions.
	Starters    int `json:"starters"`     // The number of distinct states a word can start with.
	Enders      int `json:"enders"`       // The number of distinct states a word can end with.
}

// Stats returns a snapshot of statistics for the table.
func (t *Table) Stats() TableStats {
	stats := TableStats{
		States:   len(t.headers),
		Sources:  len(t.links),
		Starters: len(t.links[Blank]),
	}
	for from, next := range t.links {
		stats.Links += len(next)
		stats.TotalWeight += t.totals[from]
		if _, ok := next[Blank]; ok {
			stats.Enders++
		}
	}
	return stats
}

// GetStats returns statistics for every table in the store. Each table is
// loaded into memory to compute its stats.
func (s *Store) GetStats(ctx context.Context) (*DBStats, error) {
	infos, err := s.GetTableInfos(ctx)
	if err != nil {
		return nil, err
	}

	var linkCount int
	if err = s.stmtCountLinks.QueryRowContext(ctx).Scan(&linkCount); err != nil {
		return nil, err
	}

	tables := make([]TableInfo, 0, len(infos))
	tableStats := make(map[int]TableStats, len(infos))
	for _, info := range infos {
		tables = append(tables, info)
		table, err := s.LoadTable(ctx, info)
		if err != nil {
			return nil, err
		}
		tableStats[info.Id] = table.Stats()
	}
	slices.SortFunc(tables, func(a, b TableInfo) int {
		return cmp.Compare(a.Name, b.Name)
	})

	return &DBStats{
		Tables: tables,
		Stats:  tableStats,
		Links:  linkCount,
	}, nil
}
