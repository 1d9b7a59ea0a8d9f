// Package enrich turns uploaded rows into enrichment payloads, projects the
// vendor's raw records onto selected data points, and merges the results back
// onto the original rows.
package enrich

import (
	"fmt"
	"strings"
)

// CleanDomain normalizes a raw domain value to its bare registrable form:
// lowercase, scheme and www prefix stripped, path removed. Returns "" when
// the value cannot be a domain (no dot after cleaning). Idempotent.
func CleanDomain(raw string) string {
	d := strings.ToLower(strings.TrimSpace(raw))
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "http://")
	d = strings.TrimPrefix(d, "www.")
	if i := strings.IndexByte(d, '/'); i >= 0 {
		d = d[:i]
	}
	if !strings.Contains(d, ".") {
		return ""
	}
	return d
}

// NormalizeProfileURL normalizes a LinkedIn profile URL used as a people
// lookup key. Returns "" when the value is not a LinkedIn URL.
func NormalizeProfileURL(raw string) string {
	u := strings.TrimSpace(raw)
	if u == "" || !strings.Contains(u, "linkedin.com/") {
		return ""
	}
	return u
}

// CanonicalLinkedInURL standardizes a LinkedIn company URL: https scheme,
// www host, query parameters dropped, trailing slash enforced. A bare slug
// ("surfe") expands to the full profile URL. Unrecognized shapes pass
// through unchanged. Idempotent for canonical inputs.
func CanonicalLinkedInURL(raw string) string {
	u := strings.TrimSpace(raw)
	if u == "" {
		return ""
	}

	if strings.Contains(u, "linkedin.com/company") {
		if i := strings.IndexByte(u, '?'); i >= 0 {
			u = u[:i]
		}
		if !strings.HasSuffix(u, "/") {
			u += "/"
		}
		if strings.HasPrefix(u, "http://") {
			u = "https://" + strings.TrimPrefix(u, "http://")
		}
		if !strings.HasPrefix(u, "https://") {
			u = "https://" + u
		}
		if !strings.Contains(u, "www.") {
			u = strings.Replace(u, "https://", "https://www.", 1)
		}
		return u
	}

	// Bare slug: expand to the full canonical form.
	if !strings.Contains(u, "/") {
		return fmt.Sprintf("https://www.linkedin.com/company/%s/", u)
	}

	return raw
}

// sizeBuckets maps employee counts to the vendor's size-range labels, in
// ascending order of the upper bound.
var sizeBuckets = []struct {
	max   int
	label string
}{
	{10, "1-10"},
	{50, "11-50"},
	{200, "51-200"},
	{1000, "201-1000"},
	{5000, "1001-5000"},
	{10000, "5001-10000"},
}

// SizeBucket derives the company size label from an employee count.
// Non-positive counts yield "".
func SizeBucket(employeeCount int) string {
	if employeeCount <= 0 {
		return ""
	}
	for _, b := range sizeBuckets {
		if employeeCount <= b.max {
			return b.label
		}
	}
	return "10000+"
}

// InSizeRange reports whether an employee count falls in the given size
// label. Unknown labels match nothing.
func InSizeRange(employeeCount int, label string) bool {
	if employeeCount <= 0 {
		return false
	}
	if label == "10000+" {
		return employeeCount > 10000
	}
	lo := 1
	for _, b := range sizeBuckets {
		if b.label == label {
			return employeeCount >= lo && employeeCount <= b.max
		}
		lo = b.max + 1
	}
	return false
}
