// Package text provides string normalization helpers for directory values.
package text

import (
	"slices"
	"strings"
	"unicode"
)

// DedupeSorted trims each value, drops empties and duplicates, and returns the
// remainder sorted. Nil input returns nil.
//
//	DedupeSorted([]string{" worship", "kids", "worship", ""})
//	// []string{"kids", "worship"}
func DedupeSorted(values []string) []string {
	if values == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	slices.Sort(result)
	return result
}

// IsUniformCase reports whether s has at least two letters and all of them
// share one case ("JOHN SMITH", "john smith").
func IsUniformCase(s string) bool {
	var upper, lower int
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper++
		case unicode.IsLower(r):
			lower++
		}
	}
	if upper+lower < 2 {
		return false
	}
	return upper == 0 || lower == 0
}

// TitleCase upper-cases the first letter of every word and lower-cases the
// rest. Words are separated by spaces, hyphens and apostrophes.
func TitleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	start := true
	for _, r := range s {
		switch {
		case r == ' ' || r == '-' || r == '\'':
			start = true
			b.WriteRune(r)
		case start:
			b.WriteRune(unicode.ToUpper(r))
			start = false
		default:
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// FirstWord returns the first whitespace-separated word of s.
func FirstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// Digits returns only the ASCII digits of s.
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
