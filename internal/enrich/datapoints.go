package enrich

// ValueType is the semantic type of a logical data point.
type ValueType string

const (
	TypeString  ValueType = "string"
	TypeNumeric ValueType = "numeric"
)

// DataPoint is a caller-facing logical field with its display label and
// semantic type. Each key has exactly one resolution rule (see resolve).
type DataPoint struct {
	Key   string
	Label string
	Type  ValueType
}

// DataPoints lists the selectable company data points, in display order.
var DataPoints = []DataPoint{
	{Key: "name", Label: "Company Name", Type: TypeString},
	{Key: "website", Label: "Website", Type: TypeString},
	{Key: "description", Label: "Description", Type: TypeString},
	{Key: "linkedin", Label: "LinkedIn URL", Type: TypeString},
	{Key: "founded", Label: "Founded Year", Type: TypeNumeric},
	{Key: "employees", Label: "Employee Count", Type: TypeNumeric},
	{Key: "size", Label: "Company Size", Type: TypeString},
	{Key: "keywords", Label: "Keywords", Type: TypeString},
	{Key: "hqCountry", Label: "HQ Country", Type: TypeString},
	{Key: "hqAddress", Label: "HQ Address", Type: TypeString},
	{Key: "industry", Label: "Industry", Type: TypeString},
	{Key: "subIndustry", Label: "Sub-Industry", Type: TypeString},
	{Key: "phones", Label: "Phone Numbers", Type: TypeString},
	{Key: "digitalPresence", Label: "Digital Presence", Type: TypeString},
	{Key: "status", Label: "Status", Type: TypeString},
}

// DefaultKeys are the data points pre-selected for a fresh enrichment run.
var DefaultKeys = []string{"name", "website", "linkedin", "employees", "size", "industry"}

// DataPointByKey looks up a data point definition.
func DataPointByKey(key string) (DataPoint, bool) {
	for _, dp := range DataPoints {
		if dp.Key == key {
			return dp, true
		}
	}
	return DataPoint{}, false
}

// ValidKeys filters the requested keys down to known data points, preserving
// request order and dropping duplicates.
func ValidKeys(keys []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, k := range keys {
		if _, ok := DataPointByKey(k); ok && !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}
