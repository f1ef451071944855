package llm

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// ErrNoJSON is returned when a reply contains no decodable JSON object
var ErrNoJSON = errors.New("no JSON object in model reply")

var (
	fencePattern  = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")
	objectPattern = regexp.MustCompile(`\{[\s\S]*\}`)
)

// DecodeJSON decodes a model reply into v. It tries the whole reply (code fences stripped)
// first, then the span from the first '{' to the last '}'. Anything else is ErrNoJSON.
func DecodeJSON(raw string, v any) error {
	text := stripFences(raw)
	if text == "" {
		return ErrNoJSON
	}
	if err := json.Unmarshal([]byte(text), v); err == nil {
		return nil
	}

	span := objectPattern.FindString(text)
	if span == "" {
		return ErrNoJSON
	}
	if err := json.Unmarshal([]byte(span), v); err != nil {
		return ErrNoJSON
	}
	return nil
}

// DecodeOr decodes raw into v, or copies fallback into v and reports false
func DecodeOr[T any](raw string, v *T, fallback T) bool {
	var out T
	if err := DecodeJSON(raw, &out); err != nil {
		*v = fallback
		return false
	}
	*v = out
	return true
}

func stripFences(raw string) string {
	text := strings.TrimSpace(raw)
	if m := fencePattern.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return text
}
