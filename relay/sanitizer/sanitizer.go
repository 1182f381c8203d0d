// Package sanitizer implements the trailing-error-JSON heuristic: the
// upstream occasionally appends a stray error object after an otherwise
// complete 200 response body, and this strips it. This is a heuristic
// carried over verbatim from the source behavior, not "improved" — a proper
// fix would require framing discipline on the upstream side.
package sanitizer

import (
	"encoding/json"
	"strings"
)

// errorShape is the object shape that, if found trailing the body, gets
// stripped.
type errorShape struct {
	Error *struct {
		Code   int    `json:"code"`
		Status string `json:"status"`
	} `json:"error"`
}

// Sanitize applies the heuristic to body. Any failure inside the heuristic
// (malformed UTF-8, no trailing brace, unparseable trailing block, wrong
// shape) leaves body unchanged — the function never returns an error.
func Sanitize(body []byte) []byte {
	defer func() { recover() }() //nolint:errcheck // heuristic must never panic the caller

	text := string(body)
	trimmed := strings.TrimRight(text, " \t\r\n")
	if trimmed == "" || !strings.HasSuffix(trimmed, "}") {
		return body
	}

	cut := lastTrailingJSONObjectStart(trimmed)
	if cut < 0 {
		return body
	}

	candidate := trimmed[cut:]
	var shape errorShape
	if err := json.Unmarshal([]byte(candidate), &shape); err != nil || shape.Error == nil {
		return body
	}

	remainder := strings.TrimRight(trimmed[:cut], " \t\r\n")
	if remainder == "" {
		return []byte(remainder)
	}
	return []byte(remainder + "\n\n")
}

// lastTrailingJSONObjectStart finds the last occurrence of a newline
// immediately followed by '{', preferring the double-newline variant, and
// returns the index where the trailing object begins. Returns -1 if no such
// boundary exists.
func lastTrailingJSONObjectStart(text string) int {
	if idx := strings.LastIndex(text, "\n\n{"); idx >= 0 {
		return idx + 2
	}
	if idx := strings.LastIndex(text, "\n{"); idx >= 0 {
		return idx + 1
	}
	return -1
}
