package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bashir0609/surfe-toolkit/internal/tabular"
)

func domainTable(values ...string) *tabular.Table {
	t := &tabular.Table{Headers: []string{"company", "domain"}}
	for i, v := range values {
		t.Rows = append(t.Rows, []string{string(rune('A' + i)), v})
	}
	return t
}

func TestBuildCompanyBatch(t *testing.T) {
	table := domainTable(
		"https://www.acme.com/about", // cleans to acme.com
		"globex.de",
		"",             // empty, silently skipped
		"not-a-domain", // invalid, counted
		"ACME.COM",     // duplicate of row 0 after cleaning
	)

	plan, err := BuildCompanyBatch(table, "domain")
	require.NoError(t, err)

	require.Len(t, plan.Items, 2)
	assert.Equal(t, "acme.com", plan.Items[0].Domain)
	assert.Equal(t, "row_0", plan.Items[0].ExternalID)
	assert.Equal(t, "globex.de", plan.Items[1].Domain)
	assert.Equal(t, "row_1", plan.Items[1].ExternalID)

	assert.Equal(t, 1, plan.Skipped)
	assert.Equal(t, map[string]int{"acme.com": 0, "globex.de": 1}, plan.Ordinals)
	assert.Equal(t, "acme.com", plan.NormalizeKey("WWW.ACME.COM"))
}

func TestBuildCompanyBatchUniqueCorrelationIDs(t *testing.T) {
	table := domainTable("a.com", "b.com", "a.com", "A.COM", "c.com")

	plan, err := BuildCompanyBatch(table, "domain")
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, item := range plan.Items {
		assert.False(t, seen[item.ExternalID], "duplicate id %s", item.ExternalID)
		seen[item.ExternalID] = true
	}
	assert.Len(t, plan.Items, 3)
}

func TestBuildCompanyBatchMissingColumn(t *testing.T) {
	_, err := BuildCompanyBatch(domainTable("acme.com"), "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `column "nope" not found`)
}

func TestBuildCompanyBatchNoValidValues(t *testing.T) {
	_, err := BuildCompanyBatch(domainTable("", "junk", "also junk"), "domain")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no valid lookup values")
}

func TestBuildPeopleBatch(t *testing.T) {
	table := &tabular.Table{
		Headers: []string{"profile"},
		Rows: [][]string{
			{"https://linkedin.com/in/jane"},
			{"https://twitter.com/joe"},
			{"https://linkedin.com/in/omar"},
		},
	}

	plan, err := BuildPeopleBatch(table, "profile")
	require.NoError(t, err)

	require.Len(t, plan.Items, 2)
	assert.Equal(t, "https://linkedin.com/in/jane", plan.Items[0].LinkedInURL)
	assert.Equal(t, "", plan.Items[0].Domain)
	assert.Equal(t, 1, plan.Skipped)
}

func TestMerge(t *testing.T) {
	table := domainTable("acme.com", "globex.de", "bad value", "acme.com")

	plan, err := BuildCompanyBatch(table, "domain")
	require.NoError(t, err)

	extracted := map[int]map[string]any{
		0: {"name": "Acme Inc", "employees": float64(120)},
		1: {"name": "Globex", "employees": nil},
	}

	stats, err := Merge(table, "domain", plan, extracted, []string{"name", "employees"})
	require.NoError(t, err)

	assert.Equal(t, []string{"company", "domain", "enriched_name", "enriched_employees"}, table.Headers)

	nameCol, _ := table.ColumnIndex("enriched_name")
	empCol, _ := table.ColumnIndex("enriched_employees")

	assert.Equal(t, "Acme Inc", table.Cell(0, nameCol))
	assert.Equal(t, "120", table.Cell(0, empCol))
	assert.Equal(t, "Globex", table.Cell(1, nameCol))
	assert.Equal(t, "", table.Cell(1, empCol))

	// The invalid row stays blank.
	assert.Equal(t, "", table.Cell(2, nameCol))

	// Duplicate lookup values all receive the shared result.
	assert.Equal(t, "Acme Inc", table.Cell(3, nameCol))

	require.Len(t, stats, 2)
	assert.Equal(t, FieldStats{Key: "name", Populated: 3, Total: 4}, stats[0])
	assert.Equal(t, FieldStats{Key: "employees", Populated: 2, Total: 4}, stats[1])
}

func TestMergeRaggedRows(t *testing.T) {
	// A row narrower than the header set must still receive its result; the
	// fill-rate count and the written cell have to agree.
	table := &tabular.Table{
		Headers: []string{"domain", "note"},
		Rows:    [][]string{{"acme.com"}},
	}

	plan, err := BuildCompanyBatch(table, "domain")
	require.NoError(t, err)

	stats, err := Merge(table, "domain", plan, map[int]map[string]any{
		0: {"name": "Acme Inc"},
	}, []string{"name"})
	require.NoError(t, err)

	nameCol, ok := table.ColumnIndex("enriched_name")
	require.True(t, ok)
	assert.Equal(t, "Acme Inc", table.Cell(0, nameCol))
	assert.Equal(t, 1, stats[0].Populated)
}

func TestMergeLeavesOriginalColumnsAlone(t *testing.T) {
	table := domainTable("acme.com")
	before := append([]string(nil), table.Rows[0]...)

	plan, err := BuildCompanyBatch(table, "domain")
	require.NoError(t, err)

	_, err = Merge(table, "domain", plan, map[int]map[string]any{
		0: {"name": "Acme Inc"},
	}, []string{"name"})
	require.NoError(t, err)

	assert.Equal(t, before, table.Rows[0][:len(before)])
}

func TestMergeNoResults(t *testing.T) {
	table := domainTable("acme.com")
	plan, err := BuildCompanyBatch(table, "domain")
	require.NoError(t, err)

	stats, err := Merge(table, "domain", plan, map[int]map[string]any{}, []string{"name"})
	require.NoError(t, err)

	nameCol, ok := table.ColumnIndex("enriched_name")
	require.True(t, ok)
	assert.Equal(t, "", table.Cell(0, nameCol))
	assert.Equal(t, 0, stats[0].Populated)
}
