package schema

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// ParseError signals that model output did not conform to the schema the
// caller expected.
type ParseError struct {
	Stage string
	Cause error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s output: %v", e.Stage, e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// Envelope is the tagged-union shape of a `responses`-style model reply:
// either a flat output_text, or a list of output items each carrying
// content parts, some of which are output_text.
type Envelope struct {
	OutputText string       `json:"output_text,omitempty"`
	Output     []OutputItem `json:"output,omitempty"`
}

// OutputItem is one entry in Envelope.Output.
type OutputItem struct {
	Content []ContentPart `json:"content,omitempty"`
}

// ContentPart is one entry in OutputItem.Content.
type ContentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ExtractOutputText implements the dual-envelope extraction described in
// §4.7 and design note "Dual response envelopes": prefer the flat
// output_text field, otherwise concatenate every output_text content part
// with newline separators. Absent data yields the empty string.
func ExtractOutputText(env Envelope) string {
	if env.OutputText != "" {
		return env.OutputText
	}
	var parts []string
	for _, item := range env.Output {
		for _, c := range item.Content {
			if c.Type == "output_text" {
				parts = append(parts, c.Text)
			}
		}
	}
	return strings.Join(parts, "\n")
}

var codeFenceOpen = regexp.MustCompile("^```[a-zA-Z0-9_-]*\\r?\\n")

// StripCodeFences removes a leading and trailing markdown code fence from
// text, if present, and trims surrounding whitespace.
func StripCodeFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	if loc := codeFenceOpen.FindStringIndex(trimmed); loc != nil {
		trimmed = trimmed[loc[1]:]
	} else {
		// No newline right after the opening fence marker; drop just the marker.
		if idx := strings.IndexByte(trimmed, '\n'); idx >= 0 {
			trimmed = trimmed[idx+1:]
		}
	}
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}

// ParseJSONFromOutputText runs ExtractOutputText, then StripCodeFences, then
// decodes the remainder as JSON into a value of type T.
func ParseJSONFromOutputText[T any](env Envelope, stage string) (T, error) {
	var out T
	text := StripCodeFences(ExtractOutputText(env))
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return out, &ParseError{Stage: stage, Cause: err}
	}
	return out, nil
}

var slideSectionPattern = regexp.MustCompile(`(?i)<section[^>]*\bclass\s*=\s*"[^"]*\bslide\b[^"]*"[^>]*>`)

// CountSlideSections counts <section class="…slide…"> occurrences, matching
// case-insensitively, on a quoted class attribute, word-bounded on "slide".
func CountSlideSections(html string) int {
	return len(slideSectionPattern.FindAllString(html, -1))
}
