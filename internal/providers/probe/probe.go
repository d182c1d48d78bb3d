// Package probe resolves inconsistently named provider fields through an
// explicit, ordered candidate lookup. It is confined to the adapter
// boundary: untyped provider shapes never reach the normaliser.
package probe

import (
	"fmt"
	"strings"
)

// Pick probes an ordered list of candidate field names against a provider
// element and returns the first present value. Matching is case-insensitive;
// a field counts as present even when its value is null, so the normaliser
// can distinguish "absent" from "present but unusable".
func Pick(element map[string]any, candidates ...string) (any, bool) {
	for _, candidate := range candidates {
		if value, ok := element[candidate]; ok {
			return value, true
		}
	}
	// Fall back to a case-insensitive scan for providers that shout
	// ("LATITUDE") or camel-case ("Latitude") their field names.
	for _, candidate := range candidates {
		for key, value := range element {
			if strings.EqualFold(key, candidate) {
				return value, true
			}
		}
	}
	return nil, false
}

// String probes candidate fields and renders the value as a string.
// Absent fields and null values return the empty string.
func String(element map[string]any, candidates ...string) string {
	value, ok := Pick(element, candidates...)
	if !ok || value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return v
	case bool:
		if v {
			return "yes"
		}
		return "no"
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Optional probes candidate fields and returns a pointer suitable for
// optional record fields: nil when absent or blank.
func Optional(element map[string]any, candidates ...string) *string {
	s := strings.TrimSpace(String(element, candidates...))
	if s == "" {
		return nil
	}
	return &s
}
