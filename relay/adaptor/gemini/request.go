package gemini

import (
	"encoding/json"
	"strings"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	glog "github.com/Laisky/go-utils/v6/log"
)

// IsDialectA reports whether path, with surrounding slashes stripped, is the
// OpenAI-style chat-completions endpoint.
func IsDialectA(path string) bool {
	return strings.Trim(path, "/") == "v1/chat/completions"
}

// Converted holds everything the request pipeline needs to forward a
// translated dialect-A request upstream.
type Converted struct {
	Body         []byte
	Model        string
	Streaming    bool
	UpstreamPath string
}

// ConvertRequest parses a dialect-A request body and produces the upstream
// Gemini request: path, model, streaming flag, and translated JSON body.
// It is a pure function: no ledger or network access.
func ConvertRequest(raw []byte, logger glog.Logger) (*Converted, error) {
	var req ChatCompletionRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, errors.Wrap(err, "parse dialect-A request body")
	}

	model := req.Model
	if idx := strings.LastIndex(model, "/"); idx >= 0 {
		model = model[idx+1:]
	}
	if model == "" {
		model = DefaultModel
	}

	verb := "generateContent"
	if req.Stream {
		verb = "streamGenerateContent"
	}
	upstreamPath := "v1beta/models/" + model + ":" + verb

	chatReq := &ChatRequest{
		SafetySettings: pinnedSafetySettings(),
	}

	var systemInstruction *Content
	for _, msg := range req.Messages {
		if msg.isEmpty() {
			continue
		}
		text, dropped := msg.textAndDropped()
		if dropped && logger != nil {
			logger.Info("dropped non-text part from multimodal dialect-A message",
				zap.String("role", msg.Role))
		}
		if text == "" {
			continue
		}

		switch msg.Role {
		case "system":
			if systemInstruction == nil {
				var raw string
				if json.Unmarshal(msg.Content, &raw) == nil {
					systemInstruction = &Content{
						Role:  "system",
						Parts: []Part{{Text: raw}},
					}
				}
			}
		case "assistant":
			chatReq.Contents = append(chatReq.Contents, Content{
				Role:  "model",
				Parts: []Part{{Text: text}},
			})
		default: // "user" and anything else not otherwise handled
			chatReq.Contents = append(chatReq.Contents, Content{
				Role:  "user",
				Parts: []Part{{Text: text}},
			})
		}
	}
	chatReq.SystemInstruction = systemInstruction

	gen := &GenerationConfig{}
	hasGen := false
	if req.Temperature != nil {
		gen.Temperature = req.Temperature
		hasGen = true
	}
	if req.MaxTokens != nil {
		gen.MaxOutputTokens = req.MaxTokens
		hasGen = true
	}
	if req.TopP != nil {
		gen.TopP = req.TopP
		hasGen = true
	}
	if stops := req.stopSequences(); len(stops) > 0 {
		gen.StopSequences = stops
		hasGen = true
	}
	if hasGen {
		chatReq.GenerationConfig = gen
	}

	body, err := json.Marshal(chatReq)
	if err != nil {
		return nil, errors.Wrap(err, "marshal translated Gemini request")
	}

	return &Converted{
		Body:         body,
		Model:        model,
		Streaming:    req.Stream,
		UpstreamPath: upstreamPath,
	}, nil
}

// ModelFromDialectBPath extracts the model name from a dialect-B path of the
// form ".../models/<name>(:verb)?...". Returns "" when no such segment is
// present.
func ModelFromDialectBPath(path string) string {
	idx := strings.Index(path, "models/")
	if idx < 0 {
		return ""
	}
	rest := path[idx+len("models/"):]
	if end := strings.IndexAny(rest, ":/?"); end >= 0 {
		rest = rest[:end]
	}
	return rest
}
