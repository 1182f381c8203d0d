package gemini

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/Laisky/errors/v2"
	"github.com/google/uuid"
)

// doneFrame is the SSE terminator every streaming conversion ends with,
// exactly once.
const doneFrame = "data: [DONE]\n\n"

// StreamConvert parses the entire upstream streaming body as a single JSON
// array of Gemini response chunks — this is the observed upstream contract
// for the streaming endpoint (a single framed array, not NDJSON or
// SSE-framed records) — and writes one dialect-A SSE frame per chunk with
// non-empty text to w. Every frame of the response shares one "created"
// timestamp (now), but each gets its own fresh "chatcmpl-" id. A chunk
// carrying an error and no candidates stops emission early. The [DONE] frame
// is always written last, exactly once, even when the array is empty or
// parsing fails partway through.
func StreamConvert(raw []byte, model string, now int64, w io.Writer) error {
	defer io.WriteString(w, doneFrame)

	var chunks []ChatResponse
	if err := json.Unmarshal(raw, &chunks); err != nil {
		return errors.Wrap(err, "parse Gemini streaming array")
	}

	for _, chunk := range chunks {
		if chunk.Error != nil && len(chunk.Candidates) == 0 {
			break
		}
		text := chunk.Text()
		if text == "" {
			continue
		}

		out := ChatCompletionChunk{
			ID:      "chatcmpl-" + uuid.NewString(),
			Object:  "chat.completion.chunk",
			Created: now,
			Model:   model,
			Choices: []Choice{{
				Index: 0,
				Delta: &Delta{Content: text},
			}},
		}
		frame, err := json.Marshal(out)
		if err != nil {
			return errors.Wrap(err, "marshal streaming chunk")
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", frame); err != nil {
			return errors.Wrap(err, "write SSE frame")
		}
	}
	return nil
}
