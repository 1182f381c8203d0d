package sanitizer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSanitize_S6StripsTrailingErrorObject(t *testing.T) {
	body := []byte("data: {\"candidates\":[1]}\n\n{\"error\":{\"code\":429,\"status\":\"RESOURCE_EXHAUSTED\",\"message\":\"slow down\"}}")

	got := Sanitize(body)
	require.Equal(t, "data: {\"candidates\":[1]}\n\n", string(got))
}

func TestSanitize_LeavesNormalBodyUnchanged(t *testing.T) {
	body := []byte(`{"candidates":[{"content":{"parts":[{"text":"hi"}]}}]}`)
	require.Equal(t, body, Sanitize(body))
}

func TestSanitize_LeavesBodyNotEndingInBraceUnchanged(t *testing.T) {
	body := []byte(`data: [1,2,3]`)
	require.Equal(t, body, Sanitize(body))
}

func TestSanitize_LeavesTrailingNonErrorObjectUnchanged(t *testing.T) {
	body := []byte("data: {\"a\":1}\n\n{\"b\":2}")
	require.Equal(t, body, Sanitize(body))
}

func TestSanitize_EmptyBodyUnchanged(t *testing.T) {
	require.Equal(t, []byte{}, Sanitize([]byte{}))
}

func TestSanitize_SingleNewlineVariant(t *testing.T) {
	body := []byte("{\"ok\":true}\n{\"error\":{\"code\":500,\"status\":\"INTERNAL\"}}")
	got := Sanitize(body)
	require.Equal(t, "{\"ok\":true}\n\n", string(got))
}
