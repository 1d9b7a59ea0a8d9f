package enrich

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/bashir0609/surfe-toolkit/pkg/surfe"
)

// correlationPrefix is the caller-assigned external ID prefix; ordinals are
// appended as "row_<i>".
const correlationPrefix = "row_"

// CorrelationID builds the external ID for the i-th submitted item.
func CorrelationID(i int) string {
	return fmt.Sprintf("%s%d", correlationPrefix, i)
}

// parseCorrelationID extracts the ordinal from an external ID. Foreign or
// malformed IDs return false.
func parseCorrelationID(id string) (int, bool) {
	rest, ok := strings.CutPrefix(id, correlationPrefix)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// ExtractEntities projects raw vendor records onto the requested logical
// keys, keyed by correlation ordinal. Per-field failures are absorbed: a
// malformed value becomes the key's type default and never aborts the
// remaining keys or records.
func ExtractEntities(entities []surfe.Entity, keys []string) map[int]map[string]any {
	results := make(map[int]map[string]any, len(entities))
	for _, e := range entities {
		ord, ok := parseCorrelationID(e.String("externalID"))
		if !ok {
			zap.L().Debug("skipping record with foreign correlation id",
				zap.String("externalID", e.String("externalID")),
			)
			continue
		}

		fields := make(map[string]any, len(keys))
		for _, key := range keys {
			fields[key] = extractField(e, key)
		}
		results[ord] = fields
	}
	return results
}

// extractField applies the key's resolution rule and coerces the result to
// the key's semantic type.
func extractField(e surfe.Entity, key string) any {
	raw := resolve(e, key)

	dp, ok := DataPointByKey(key)
	if !ok {
		dp = DataPoint{Key: key, Type: TypeString}
	}

	var value any
	switch dp.Type {
	case TypeNumeric:
		value = coerceNumeric(raw)
	default:
		value = coerceString(raw)
	}

	// Derived-URL rule: canonicalize once the raw value is resolved.
	if key == "linkedin" {
		if s, _ := value.(string); s != "" {
			value = CanonicalLinkedInURL(s)
		}
	}

	return value
}

// resolve applies the single resolution rule registered for a logical key:
// a first-non-empty-of rule, a list-head rule, a derived rule, or a direct
// field lookup.
func resolve(e surfe.Entity, key string) any {
	switch key {
	case "linkedin":
		// The API has shipped both spellings.
		if v := e.String("linkedinURL"); v != "" {
			return v
		}
		return e["linkedInURL"]
	case "website":
		if list, ok := e["websites"].([]any); ok && len(list) > 0 {
			return list[0]
		}
		return nil
	case "employees":
		return e["employeeCount"]
	case "founded":
		if v, ok := e["founded"]; ok {
			return v
		}
		return e["foundedYear"]
	case "size":
		n := coerceNumeric(e["employeeCount"])
		f, ok := n.(float64)
		if !ok {
			return ""
		}
		return SizeBucket(int(f))
	default:
		return e[key]
	}
}

// coerceString renders a raw value as a string. Lists join with ", ",
// skipping nils. nil becomes "".
func coerceString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case []any:
		var parts []string
		for _, item := range t {
			if item == nil {
				continue
			}
			parts = append(parts, coerceString(item))
		}
		return strings.Join(parts, ", ")
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", t))
	}
}

var nonNumeric = regexp.MustCompile(`[^\d.\-]`)

// coerceNumeric renders a raw value as a float64, stripping common
// formatting characters from strings. Unparseable values yield nil, the
// absent-numeric default.
func coerceNumeric(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case float64:
		return t
	case int:
		return float64(t)
	case string:
		cleaned := nonNumeric.ReplaceAllString(strings.TrimSpace(t), "")
		if cleaned == "" {
			return nil
		}
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			zap.L().Debug("numeric coercion failed", zap.String("value", t))
			return nil
		}
		return f
	default:
		return nil
	}
}

// FormatValue renders an extracted value for a CSV/XLSX cell. The
// absent-numeric default (nil) renders as an empty cell.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", t)
	}
}
