// Package modeltext extracts usable artifacts from generative model output.
// Model responses arrive as free text that may wrap the payload in markdown
// code fences, surround it with prose, or mangle the JSON in small ways.
// Every component that consumes model output goes through this package so
// the stripping and fallback rules stay in one place.
package modeltext

import (
	"encoding/json"
	"regexp"
	"strings"
)

var fenceOpen = regexp.MustCompile("^```[a-zA-Z]*\\s*\n?")

// StripFences removes a leading/trailing markdown code fence from a model
// response, tolerating an optional language tag (```json, ```html, ```css,
// ```js, ```javascript). Text without fences passes through untouched.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = fenceOpen.ReplaceAllString(s, "")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// ExtractJSON finds the JSON object embedded in a model response. It strips
// code fences, then falls back to scanning from the first '{' to its matching
// brace, repairing trailing commas along the way. The second return value is
// false when no parseable object could be recovered; callers use that signal
// to switch to their documented degraded mode rather than failing.
func ExtractJSON(s string) (string, bool) {
	candidate := StripFences(s)
	if isValidJSON(candidate) {
		return candidate, true
	}

	start := strings.Index(candidate, "{")
	if start == -1 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	end := -1
	for i := start; i < len(candidate); i++ {
		ch := candidate[i]
		if escaped {
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					end = i + 1
				}
			}
		}
		if end != -1 {
			break
		}
	}
	if end == -1 {
		return "", false
	}

	candidate = candidate[start:end]
	if isValidJSON(candidate) {
		return candidate, true
	}

	candidate = trailingComma.ReplaceAllString(candidate, "$1")
	if isValidJSON(candidate) {
		return candidate, true
	}
	return "", false
}

// DecodeJSON extracts and unmarshals in one step. Returns false without
// touching v when extraction or unmarshaling fails.
func DecodeJSON(s string, v any) bool {
	raw, ok := ExtractJSON(s)
	if !ok {
		return false
	}
	return json.Unmarshal([]byte(raw), v) == nil
}

var trailingComma = regexp.MustCompile(`,(\s*[}\]])`)

func isValidJSON(s string) bool {
	var js any
	return json.Unmarshal([]byte(s), &js) == nil
}
