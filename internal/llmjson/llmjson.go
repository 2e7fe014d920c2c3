// Package llmjson pulls structured JSON out of free-form model replies,
// which often wrap the payload in code fences, prose or wrapper objects.
package llmjson

import (
	"encoding/json"
	"maps"
	"regexp"
	"slices"
	"strings"
)

var codeFence = regexp.MustCompile("```(?:json)?\\s*")

// Clean removes markdown code fences and surrounding whitespace.
func Clean(s string) string {
	s = codeFence.ReplaceAllString(strings.TrimSpace(s), "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// Find decodes each top-level JSON array or object embedded in s, left to
// right, and stops at the first one accept reports true for.
func Find(s string, accept func(raw json.RawMessage) bool) bool {
	for i := 0; i < len(s); {
		if s[i] != '[' && s[i] != '{' {
			i++
			continue
		}

		dec := json.NewDecoder(strings.NewReader(s[i:]))
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			i++
			continue
		}
		if accept(raw) {
			return true
		}
		i += int(dec.InputOffset())
	}
	return false
}

// Unwrap calls accept on raw and, when raw is an object, on its field
// values recursively. preferred keys are visited before the rest.
func Unwrap(raw json.RawMessage, preferred []string, accept func(json.RawMessage) bool) bool {
	return unwrap(raw, preferred, accept, 0)
}

func unwrap(raw json.RawMessage, preferred []string, accept func(json.RawMessage) bool, depth int) bool {
	if depth > 8 {
		return false
	}
	if accept(raw) {
		return true
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return false
	}

	seen := make(map[string]bool, len(preferred))
	for _, k := range preferred {
		seen[k] = true
		if v, ok := obj[k]; ok && unwrap(v, preferred, accept, depth+1) {
			return true
		}
	}
	for _, k := range slices.Sorted(maps.Keys(obj)) {
		if seen[k] {
			continue
		}
		if unwrap(obj[k], preferred, accept, depth+1) {
			return true
		}
	}
	return false
}

// FixInvalidEscapes doubles backslashes that do not start a valid JSON
// escape, so ASS line breaks such as \N survive decoding literally.
func FixInvalidEscapes(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))

	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i == len(s)-1 {
			sb.WriteByte(s[i])
			continue
		}
		next := s[i+1]
		switch next {
		case '"', '\\', '/', 'b', 'f', 'n', 'r', 't', 'u':
			sb.WriteByte('\\')
		default:
			sb.WriteString(`\\`)
		}
		sb.WriteByte(next)
		i++
	}

	return sb.String()
}

// Truncate shortens s for inclusion in error messages.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
