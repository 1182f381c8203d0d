package gemini

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStreamConvert_S5TwoChunks(t *testing.T) {
	raw := []byte(`[
		{"candidates":[{"content":{"parts":[{"text":"he"}]}}]},
		{"candidates":[{"content":{"parts":[{"text":"llo"}]}}]}
	]`)

	var buf bytes.Buffer
	err := StreamConvert(raw, "gemini-pro", 1700000000, &buf)
	require.NoError(t, err)

	out := buf.String()
	require.True(t, strings.HasSuffix(out, doneFrame))
	require.Equal(t, 1, strings.Count(out, doneFrame))

	frames := strings.Split(strings.TrimSuffix(out, doneFrame), "\n\n")
	var texts []string
	for _, f := range frames {
		if f == "" {
			continue
		}
		var chunk ChatCompletionChunk
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(f, "data: ")), &chunk))
		texts = append(texts, chunk.Choices[0].Delta.Content)
	}
	require.Equal(t, []string{"he", "llo"}, texts)
}

func TestStreamConvert_EmptyArrayStillEmitsDone(t *testing.T) {
	var buf bytes.Buffer
	err := StreamConvert([]byte(`[]`), "gemini-pro", 0, &buf)
	require.NoError(t, err)
	require.Equal(t, doneFrame, buf.String())
}

func TestStreamConvert_ErrorChunkTerminatesEarly(t *testing.T) {
	raw := []byte(`[
		{"candidates":[{"content":{"parts":[{"text":"he"}]}}]},
		{"error":{"code":429,"status":"RESOURCE_EXHAUSTED","message":"slow down"}},
		{"candidates":[{"content":{"parts":[{"text":"llo"}]}}]}
	]`)

	var buf bytes.Buffer
	err := StreamConvert(raw, "gemini-pro", 0, &buf)
	require.NoError(t, err)
	require.Contains(t, buf.String(), "\"content\":\"he\"")
	require.NotContains(t, buf.String(), "llo")
	require.True(t, strings.HasSuffix(buf.String(), doneFrame))
}

func TestStreamConvert_FreshIDPerFrameSharedCreated(t *testing.T) {
	raw := []byte(`[
		{"candidates":[{"content":{"parts":[{"text":"a"}]}}]},
		{"candidates":[{"content":{"parts":[{"text":"b"}]}}]}
	]`)
	var buf bytes.Buffer
	require.NoError(t, StreamConvert(raw, "gemini-pro", 42, &buf))

	frames := strings.Split(strings.TrimSuffix(buf.String(), doneFrame), "\n\n")
	var ids []string
	var createds []int64
	for _, f := range frames {
		if f == "" {
			continue
		}
		var chunk ChatCompletionChunk
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(f, "data: ")), &chunk))
		ids = append(ids, chunk.ID)
		createds = append(createds, chunk.Created)
	}
	require.NotEqual(t, ids[0], ids[1])
	require.Equal(t, int64(42), createds[0])
	require.Equal(t, createds[0], createds[1])
}
