package common

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	// DefaultLogBodyLimit caps the bytes of a client payload written to the debug log.
	DefaultLogBodyLimit = 4096
	// logTruncationSuffix marks a value that was cut short for logging.
	logTruncationSuffix = "...[truncated]"
	// base64RedactionFloor is the shortest string length treated as a candidate base64 blob.
	base64RedactionFloor = 256
)

// SanitizePayloadForLogging previews a forwarded request/response body for
// the debug log: JSON bodies get walked leaf by leaf so long strings and
// inline base64 (a multimodal chat message's image data, most often) are
// redacted without losing the surrounding structure; anything else is just
// truncated. Returns the preview and whether it was shortened.
func SanitizePayloadForLogging(body []byte, limit int) ([]byte, bool) {
	if limit <= 0 {
		return body, false
	}

	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		var payload any
		if err := json.Unmarshal(body, &payload); err == nil {
			if sanitizedBytes, err := json.Marshal(sanitizeJSONForLog(payload, limit)); err == nil {
				if len(sanitizedBytes) > limit {
					return truncate(sanitizedBytes, limit, true), true
				}
				return sanitizedBytes, false
			}
		}
	}

	truncated := len(body) > limit
	return truncate(body, limit, false), truncated
}

// sanitizeJSONForLog walks a decoded JSON value, redacting string leaves.
func sanitizeJSONForLog(value any, limit int) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, inner := range v {
			out[k] = sanitizeJSONForLog(inner, limit)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, inner := range v {
			out[i] = sanitizeJSONForLog(inner, limit)
		}
		return out
	case string:
		return sanitizeStringForLog(v, limit)
	default:
		return v
	}
}

// sanitizeStringForLog redacts data URLs and bare base64 blobs, then
// truncates whatever's left against limit.
func sanitizeStringForLog(value string, limit int) string {
	if value == "" {
		return value
	}
	if redacted, ok := redactDataURL(value); ok {
		return truncateString(redacted, limit)
	}
	if isLikelyBase64(value) {
		return truncateString(fmt.Sprintf("[base64 len=%d]", len(value)), limit)
	}
	return truncateString(value, limit)
}

// redactDataURL replaces the payload of a "data:...;base64,..." URL with a
// length marker, keeping the MIME-type header intact for log readability.
func redactDataURL(value string) (string, bool) {
	lower := strings.ToLower(value)
	if !strings.HasPrefix(lower, "data:") {
		return "", false
	}
	idx := strings.Index(lower, "base64,")
	if idx < 0 {
		return "", false
	}
	payloadLen := len(value) - (idx + len("base64,"))
	return value[:idx+len("base64,")] + fmt.Sprintf("[truncated base64 len=%d]", payloadLen), true
}

// isLikelyBase64 reports whether value is long enough and charset-clean
// enough to be worth redacting as a base64 blob rather than logged raw.
func isLikelyBase64(value string) bool {
	if len(value) < base64RedactionFloor {
		return false
	}
	if strings.ContainsAny(value, " \n\r\t") {
		return false
	}
	sampleLen := base64RedactionFloor
	if len(value) < sampleLen {
		sampleLen = len(value)
	}
	for i := 0; i < sampleLen; i++ {
		ch := value[i]
		switch {
		case ch >= 'A' && ch <= 'Z', ch >= 'a' && ch <= 'z', ch >= '0' && ch <= '9':
		case ch == '+' || ch == '/' || ch == '=' || ch == '-' || ch == '_':
		default:
			return false
		}
	}
	return true
}

// truncateString caps value at limit bytes, appending the truncation suffix
// when it was actually cut.
func truncateString(value string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if len(value) <= limit {
		return value
	}
	if limit <= len(logTruncationSuffix) {
		return logTruncationSuffix[:limit]
	}
	return value[:limit-len(logTruncationSuffix)] + logTruncationSuffix
}

// truncate caps data at limit bytes. withSuffix appends the truncation
// marker (used for the already-JSON-marshaled fallback path); the raw,
// non-JSON path passes withSuffix=false since the caller reports truncation
// via its own boolean instead.
func truncate(data []byte, limit int, withSuffix bool) []byte {
	if limit <= 0 {
		if withSuffix {
			return nil
		}
		return data
	}
	if len(data) <= limit {
		return data
	}
	if !withSuffix {
		return data[:limit]
	}
	suffix := []byte(logTruncationSuffix)
	if limit <= len(suffix) {
		return append([]byte{}, suffix[:limit]...)
	}
	out := make([]byte, 0, limit)
	out = append(out, data[:limit-len(suffix)]...)
	return append(out, suffix...)
}
