package enrich

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/bashir0609/surfe-toolkit/internal/tabular"
	"github.com/bashir0609/surfe-toolkit/pkg/surfe"
)

// BatchPlan holds a submission payload and the correlation mapping needed to
// merge results back onto the source rows. Correlation ordinals are assigned
// over the deduplicated valid lookup keys (first occurrence order), so they
// are unique within a batch by construction.
type BatchPlan struct {
	Items     []surfe.EnrichmentItem
	Ordinals  map[string]int // normalized lookup key -> correlation ordinal
	Skipped   int            // non-empty values excluded as invalid
	normalize func(string) string
}

// NormalizeKey applies the plan's normalization rule, the same one used when
// the payload was built.
func (p *BatchPlan) NormalizeKey(raw string) string {
	return p.normalize(raw)
}

// BuildCompanyBatch constructs a company enrichment payload from the chosen
// lookup column. Values that do not clean to a plausible domain are excluded
// from the payload, never submitted.
func BuildCompanyBatch(t *tabular.Table, column string) (*BatchPlan, error) {
	return buildBatch(t, column, CleanDomain, func(key, id string) surfe.EnrichmentItem {
		return surfe.EnrichmentItem{Domain: key, ExternalID: id}
	})
}

// BuildPeopleBatch constructs a people enrichment payload from a LinkedIn
// profile URL column.
func BuildPeopleBatch(t *tabular.Table, column string) (*BatchPlan, error) {
	return buildBatch(t, column, NormalizeProfileURL, func(key, id string) surfe.EnrichmentItem {
		return surfe.EnrichmentItem{LinkedInURL: key, ExternalID: id}
	})
}

func buildBatch(t *tabular.Table, column string, normalize func(string) string, item func(key, id string) surfe.EnrichmentItem) (*BatchPlan, error) {
	col, ok := t.ColumnIndex(column)
	if !ok {
		return nil, eris.Errorf("enrich: column %q not found", column)
	}

	plan := &BatchPlan{
		Ordinals:  make(map[string]int),
		normalize: normalize,
	}

	for row := range t.Rows {
		raw := t.Cell(row, col)
		if raw == "" {
			continue
		}

		key := normalize(raw)
		if key == "" {
			plan.Skipped++
			zap.L().Debug("excluding invalid lookup value",
				zap.String("value", raw),
				zap.Int("row", row),
			)
			continue
		}
		if _, dup := plan.Ordinals[key]; dup {
			continue
		}

		ord := len(plan.Items)
		plan.Ordinals[key] = ord
		plan.Items = append(plan.Items, item(key, CorrelationID(ord)))
	}

	if len(plan.Items) == 0 {
		return nil, eris.New("enrich: no valid lookup values in column")
	}
	return plan, nil
}
