package gemini

import "encoding/json"

// ChatMessage is one message of a dialect-A request body.
type ChatMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

// contentPart is one element of a multimodal message's content list.
type contentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// textAndDropped decodes a message's content field, which is either a bare
// string or a list of typed parts. It returns the combined text and whether
// any non-text part was present and dropped.
func (m ChatMessage) textAndDropped() (text string, droppedNonText bool) {
	var s string
	if err := json.Unmarshal(m.Content, &s); err == nil {
		return s, false
	}

	var parts []contentPart
	if err := json.Unmarshal(m.Content, &parts); err != nil {
		return "", false
	}
	for _, p := range parts {
		if p.Type == "text" {
			text += p.Text
		} else {
			droppedNonText = true
		}
	}
	return text, droppedNonText
}

// isEmpty reports whether the message's content is absent, null, or an empty
// string. List content is never reported empty here, even when it holds no
// text parts.
func (m ChatMessage) isEmpty() bool {
	if len(m.Content) == 0 {
		return true
	}
	var s string
	if err := json.Unmarshal(m.Content, &s); err == nil {
		return s == ""
	}
	return false
}

// ChatCompletionRequest is the dialect-A (OpenAI chat-completions) request
// body.
type ChatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
	TopP        *float64      `json:"top_p,omitempty"`
	Stop        json.RawMessage `json:"stop,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
}

// stopSequences decodes Stop, which is either a bare string or a list of
// strings, into a Gemini-shaped stopSequences list.
func (r ChatCompletionRequest) stopSequences() []string {
	if len(r.Stop) == 0 {
		return nil
	}
	var s string
	if err := json.Unmarshal(r.Stop, &s); err == nil {
		if s == "" {
			return nil
		}
		return []string{s}
	}
	var list []string
	if err := json.Unmarshal(r.Stop, &list); err == nil {
		return list
	}
	return nil
}

// Choice is one choice of a dialect-A response.
type Choice struct {
	Index        int              `json:"index"`
	Message      *ResponseMessage `json:"message,omitempty"`
	Delta        *Delta           `json:"delta,omitempty"`
	FinishReason *string          `json:"finish_reason"`
}

// ResponseMessage is a full assistant message, used in non-streaming
// responses.
type ResponseMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Delta is an incremental content fragment, used in streaming chunks.
type Delta struct {
	Content string `json:"content,omitempty"`
}

// Usage is the dialect-A token-accounting block.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatCompletionResponse is a non-streaming dialect-A response.
type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// ChatCompletionChunk is one SSE-framed dialect-A streaming chunk.
type ChatCompletionChunk struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
}
