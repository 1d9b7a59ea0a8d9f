package enrich

import (
	"github.com/rotisserie/eris"

	"github.com/bashir0609/surfe-toolkit/internal/tabular"
)

// OutputPrefix names the appended result columns: enriched_<key>.
const OutputPrefix = "enriched_"

// FieldStats counts populated cells per logical key after a merge.
type FieldStats struct {
	Key       string `json:"key"`
	Populated int    `json:"populated"`
	Total     int    `json:"total"`
}

// Merge joins extracted results back onto the original table. For each row
// the lookup value is re-normalized with the plan's rule and matched through
// the correlation mapping; matched rows get their enriched_<key> cells
// written, unmatched rows keep the type default (empty cell). Original
// columns are never modified.
func Merge(t *tabular.Table, column string, plan *BatchPlan, extracted map[int]map[string]any, keys []string) ([]FieldStats, error) {
	col, ok := t.ColumnIndex(column)
	if !ok {
		return nil, eris.Errorf("enrich: column %q not found", column)
	}

	outCols := make(map[string]int, len(keys))
	for _, key := range keys {
		outCols[key] = t.AddColumn(OutputPrefix+key, "")
	}

	stats := make(map[string]*FieldStats, len(keys))
	for _, key := range keys {
		stats[key] = &FieldStats{Key: key, Total: len(t.Rows)}
	}

	for row := range t.Rows {
		raw := t.Cell(row, col)
		if raw == "" {
			continue
		}
		ord, found := plan.Ordinals[plan.NormalizeKey(raw)]
		if !found {
			continue
		}
		fields, found := extracted[ord]
		if !found {
			continue
		}

		for _, key := range keys {
			cell := FormatValue(fields[key])
			if cell == "" {
				continue
			}
			t.Set(row, outCols[key], cell)
			stats[key].Populated++
		}
	}

	out := make([]FieldStats, 0, len(keys))
	for _, key := range keys {
		out = append(out, *stats[key])
	}
	return out, nil
}
