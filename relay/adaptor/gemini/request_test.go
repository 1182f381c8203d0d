package gemini

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsDialectA(t *testing.T) {
	require.True(t, IsDialectA("/v1/chat/completions"))
	require.True(t, IsDialectA("v1/chat/completions"))
	require.True(t, IsDialectA("/v1/chat/completions/"))
	require.False(t, IsDialectA("/v1beta/models/gemini-pro:generateContent"))
	require.False(t, IsDialectA("/v1/chat/completions/extra"))
}

func TestConvertRequest_S4Shape(t *testing.T) {
	body := []byte(`{"model":"gemini-pro","messages":[{"role":"user","content":"hi"}],"stream":false}`)
	conv, err := ConvertRequest(body, nil)
	require.NoError(t, err)
	require.Equal(t, "gemini-pro", conv.Model)
	require.False(t, conv.Streaming)
	require.Equal(t, "v1beta/models/gemini-pro:generateContent", conv.UpstreamPath)

	var got ChatRequest
	require.NoError(t, json.Unmarshal(conv.Body, &got))
	require.Len(t, got.Contents, 1)
	require.Equal(t, "user", got.Contents[0].Role)
	require.Equal(t, "hi", got.Contents[0].Parts[0].Text)
	require.Len(t, got.SafetySettings, 4)
	require.Nil(t, got.GenerationConfig)
	require.Nil(t, got.SystemInstruction)
}

func TestConvertRequest_StreamingPath(t *testing.T) {
	body := []byte(`{"model":"gemini-pro","messages":[{"role":"user","content":"hi"}],"stream":true}`)
	conv, err := ConvertRequest(body, nil)
	require.NoError(t, err)
	require.True(t, conv.Streaming)
	require.Equal(t, "v1beta/models/gemini-pro:streamGenerateContent", conv.UpstreamPath)
}

func TestConvertRequest_ModelDefaultAndSlashStripping(t *testing.T) {
	conv, err := ConvertRequest([]byte(`{"messages":[{"role":"user","content":"hi"}]}`), nil)
	require.NoError(t, err)
	require.Equal(t, DefaultModel, conv.Model)

	conv, err = ConvertRequest([]byte(`{"model":"models/gemini-1.5-flash","messages":[{"role":"user","content":"hi"}]}`), nil)
	require.NoError(t, err)
	require.Equal(t, "gemini-1.5-flash", conv.Model)
}

func TestConvertRequest_RoleMapping(t *testing.T) {
	body := []byte(`{"model":"gemini-pro","messages":[
		{"role":"system","content":"be nice"},
		{"role":"user","content":"hi"},
		{"role":"assistant","content":"hello"}
	]}`)
	conv, err := ConvertRequest(body, nil)
	require.NoError(t, err)

	var got ChatRequest
	require.NoError(t, json.Unmarshal(conv.Body, &got))
	require.NotNil(t, got.SystemInstruction)
	require.Equal(t, "be nice", got.SystemInstruction.Parts[0].Text)
	require.Len(t, got.Contents, 2)
	require.Equal(t, "user", got.Contents[0].Role)
	require.Equal(t, "model", got.Contents[1].Role)
}

func TestConvertRequest_MultimodalContentConcatenatesTextParts(t *testing.T) {
	body := []byte(`{"model":"gemini-pro","messages":[{"role":"user","content":[
		{"type":"text","text":"part one "},
		{"type":"image_url","image_url":{"url":"http://example.com/x.png"}},
		{"type":"text","text":"part two"}
	]}]}`)
	conv, err := ConvertRequest(body, nil)
	require.NoError(t, err)

	var got ChatRequest
	require.NoError(t, json.Unmarshal(conv.Body, &got))
	require.Len(t, got.Contents, 1)
	require.Equal(t, "part one part two", got.Contents[0].Parts[0].Text)
}

func TestConvertRequest_GenerationConfigMapping(t *testing.T) {
	body := []byte(`{"model":"gemini-pro","messages":[{"role":"user","content":"hi"}],
		"temperature":0.5,"max_tokens":128,"top_p":0.9,"stop":"END"}`)
	conv, err := ConvertRequest(body, nil)
	require.NoError(t, err)

	var got ChatRequest
	require.NoError(t, json.Unmarshal(conv.Body, &got))
	require.NotNil(t, got.GenerationConfig)
	require.Equal(t, 0.5, *got.GenerationConfig.Temperature)
	require.Equal(t, 128, *got.GenerationConfig.MaxOutputTokens)
	require.Equal(t, 0.9, *got.GenerationConfig.TopP)
	require.Equal(t, []string{"END"}, got.GenerationConfig.StopSequences)
}

func TestModelFromDialectBPath(t *testing.T) {
	require.Equal(t, "gemini-pro", ModelFromDialectBPath("/v1beta/models/gemini-pro:generateContent"))
	require.Equal(t, "gemini-1.5-flash", ModelFromDialectBPath("/v1beta/models/gemini-1.5-flash:streamGenerateContent"))
	require.Equal(t, "", ModelFromDialectBPath("/v1beta/other"))
}
