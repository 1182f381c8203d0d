package gemini

import (
	"encoding/json"

	"github.com/Laisky/errors/v2"
	"github.com/google/uuid"
)

// ConvertResponse translates a single non-streaming Gemini response body into
// a dialect-A chat-completion response, using now as the response's created
// timestamp.
func ConvertResponse(raw []byte, model string, now int64) ([]byte, error) {
	var resp ChatResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, errors.Wrap(err, "parse Gemini response body")
	}

	finish := mapFinishReason(resp.FinishReason())
	out := ChatCompletionResponse{
		ID:      "chatcmpl-" + uuid.NewString(),
		Object:  "chat.completion",
		Created: now,
		Model:   model,
		Choices: []Choice{{
			Index: 0,
			Message: &ResponseMessage{
				Role:    "assistant",
				Content: resp.Text(),
			},
			FinishReason: &finish,
		}},
	}
	if resp.UsageMetadata != nil {
		out.Usage = Usage{
			PromptTokens:     resp.UsageMetadata.PromptTokenCount,
			CompletionTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      resp.UsageMetadata.TotalTokenCount,
		}
	}

	body, err := json.Marshal(out)
	if err != nil {
		return nil, errors.Wrap(err, "marshal dialect-A response")
	}
	return body, nil
}
