package extract

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Staged recovery of JSON from free-form model output. Each stage is
// cheaper than re-calling the model, and a page whose output defeats
// every stage simply yields no records.

var (
	codeFence      = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")
	trailingCommas = regexp.MustCompile(`,\s*([\]}])`)
)

// RecoverJSON extracts a parseable JSON value from model output. It
// strips code fences and trailing commas, then falls back to the first
// balanced bracket span, then to salvaging a truncated list. The second
// return is false when nothing parseable remains.
func RecoverJSON(text string) (json.RawMessage, bool) {
	cleaned := strings.TrimSpace(text)
	if m := codeFence.FindStringSubmatch(cleaned); m != nil {
		cleaned = strings.TrimSpace(m[1])
	}
	cleaned = trailingCommas.ReplaceAllString(cleaned, "$1")

	if json.Valid([]byte(cleaned)) {
		return json.RawMessage(cleaned), true
	}

	span, _ := bracketSpan(cleaned)
	if span == "" {
		return nil, false
	}
	span = trailingCommas.ReplaceAllString(stripControl(span), "$1")
	if json.Valid([]byte(span)) {
		return json.RawMessage(span), true
	}
	return nil, false
}

// bracketSpan finds the first '[' or '{' and scans to its matching
// close, tracking string and escape state. For a truncated list it
// returns the list cut after the last fully closed element with the
// bracket re-closed, and complete=false.
func bracketSpan(text string) (span string, complete bool) {
	start := strings.IndexAny(text, "[{")
	if start < 0 {
		return "", false
	}

	var (
		depth        int
		inString     bool
		escaped      bool
		lastComplete = -1
	)
	isList := text[start] == '['
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[', '{':
			depth++
		case ']', '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
			if isList && depth == 1 && c == '}' {
				lastComplete = i + 1
			}
		}
	}

	// Ran off the end: the value was truncated mid-stream. A list whose
	// early elements closed cleanly can still be saved.
	if isList && lastComplete > start {
		return text[start:lastComplete] + "]", false
	}
	return "", false
}

func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, s)
}

// decodeList unmarshals a recovered JSON value as a list of T. A bare
// array is used directly; an object is unwrapped at wrapperKey. Any
// decode failure yields an empty list, never an error.
func decodeList[T any](raw json.RawMessage, wrapperKey string) []T {
	var items []T
	if err := json.Unmarshal(raw, &items); err == nil {
		return items
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil
	}
	inner, ok := wrapper[wrapperKey]
	if !ok {
		return nil
	}
	if err := json.Unmarshal(inner, &items); err != nil {
		return nil
	}
	return items
}
