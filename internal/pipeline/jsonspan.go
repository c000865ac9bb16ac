package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
)

var errNoJSONObject = errors.New("no balanced JSON object in text")

// extractJSONSpan returns the first balanced {...} span in s, honoring
// string literals and escapes. Model output often wraps the object in
// prose or code fences; anything without a balanced object fails closed
// so the retry loop gets another attempt instead of a half-parsed value.
func extractJSONSpan(s string) (string, error) {
	start := -1
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if start < 0 {
			if c == '{' {
				start = i
				depth = 1
			}
			continue
		}
		if escaped {
			escaped = false
			continue
		}
		switch {
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[start : i+1], nil
			}
		}
	}
	return "", errNoJSONObject
}

// decodeJSONSpan extracts the first balanced object from raw model text
// and unmarshals it into out.
func decodeJSONSpan(text string, out any) error {
	span, err := extractJSONSpan(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(span), out); err != nil {
		return fmt.Errorf("decode model output: %w", err)
	}
	return nil
}
