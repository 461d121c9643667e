package models

import (
	"sort"
	"strings"
)

// HeaderMap holds normalized message headers keyed by lower-cased header
// name. A value is a single string when the header occurred once or twice,
// an ordered []string when it occurred more than twice, and nil when the
// header was present without any value.
type HeaderMap map[string]interface{}

// SortedKeys returns the header names in lexicographic order. JSON
// marshaling of the map sorts keys the same way, so downstream consumers
// see a deterministic ordering in both places.
func (h HeaderMap) SortedKeys() []string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// First returns the first raw value recorded for name, or nil when the
// header is absent or carried no value.
func (h HeaderMap) First(name string) *string {
	v, ok := h[strings.ToLower(name)]
	if !ok || v == nil {
		return nil
	}
	switch value := v.(type) {
	case string:
		return &value
	case []string:
		if len(value) > 0 {
			first := value[0]
			return &first
		}
	}
	return nil
}
