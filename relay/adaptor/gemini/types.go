// Package gemini translates between the OpenAI-style chat-completions
// dialect and the Gemini-style generate-content dialect: request bodies,
// non-streaming responses, and the streaming SSE conversion.
package gemini

// DefaultModel is the fallback model name used when a dialect-A request body
// omits the model field.
const DefaultModel = "gemini-pro"

// Part is a single content fragment. Only the text form is produced by this
// translator; non-text parts from the client are dropped (see ConvertRequest).
type Part struct {
	Text string `json:"text"`
}

// Content is one turn of a Gemini conversation.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// SafetySetting pins a harm category to a block threshold.
type SafetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

// pinnedSafetySettings is the fixed four-element list the translator always
// sends upstream, regardless of client input.
func pinnedSafetySettings() []SafetySetting {
	return []SafetySetting{
		{Category: "HARM_CATEGORY_HATE_SPEECH", Threshold: "BLOCK_NONE"},
		{Category: "HARM_CATEGORY_SEXUALLY_EXPLICIT", Threshold: "BLOCK_NONE"},
		{Category: "HARM_CATEGORY_HARASSMENT", Threshold: "BLOCK_NONE"},
		{Category: "HARM_CATEGORY_DANGEROUS_CONTENT", Threshold: "BLOCK_NONE"},
	}
}

// GenerationConfig carries the subset of OpenAI sampling parameters Gemini
// understands, under Gemini's field names.
type GenerationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
	TopP            *float64 `json:"topP,omitempty"`
	StopSequences   []string `json:"stopSequences,omitempty"`
}

// ChatRequest is the Gemini generateContent/streamGenerateContent request
// body produced from a dialect-A request.
type ChatRequest struct {
	Contents          []Content         `json:"contents"`
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`
	SafetySettings    []SafetySetting   `json:"safetySettings"`
}

// ChatCandidate is one candidate of a Gemini response.
type ChatCandidate struct {
	Content      Content `json:"content"`
	FinishReason string  `json:"finishReason"`
}

// UsageMetadata is Gemini's token-accounting block.
type UsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

// ErrorDetail is the shape of a Gemini error object, including the one the
// sanitizer looks for trailing a streamed body.
type ErrorDetail struct {
	Code    int    `json:"code"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ChatResponse is one Gemini generateContent response object, or one element
// of the streaming array.
type ChatResponse struct {
	Candidates    []ChatCandidate `json:"candidates"`
	UsageMetadata *UsageMetadata  `json:"usageMetadata,omitempty"`
	Error         *ErrorDetail    `json:"error,omitempty"`
}

// Text returns the first candidate's first text part, or "" when absent.
func (r *ChatResponse) Text() string {
	if len(r.Candidates) == 0 || len(r.Candidates[0].Content.Parts) == 0 {
		return ""
	}
	return r.Candidates[0].Content.Parts[0].Text
}

// FinishReason returns the first candidate's raw finish reason, or "" when
// absent.
func (r *ChatResponse) FinishReason() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	return r.Candidates[0].FinishReason
}

// mapFinishReason translates a Gemini finishReason into an OpenAI-style one.
func mapFinishReason(reason string) string {
	switch reason {
	case "MAX_TOKENS":
		return "length"
	case "SAFETY":
		return "content_filter"
	default:
		return "stop"
	}
}
