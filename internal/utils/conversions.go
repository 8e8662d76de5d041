package utils

import "strings"

// SplitNonEmpty splits s on sep, trimming whitespace and dropping empty parts.
func SplitNonEmpty(s, sep string) []string {
	result := []string{}
	for _, part := range strings.Split(s, sep) {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}

func Contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
