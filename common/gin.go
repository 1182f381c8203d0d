package common

import (
	"bytes"
	"io"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v7"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/Laisky/gemini-keypool-proxy/common/ctxkey"
)

// GetRequestBody reads the client body once and caches it on the context so
// every later step of the pipeline (payload logging, dialect translation,
// upstream forwarding) sees the same bytes without re-draining the reader.
func GetRequestBody(c *gin.Context) (requestBody []byte, err error) {
	if cached, _ := c.Get(ctxkey.KeyRequestBody); cached != nil {
		return cached.([]byte), nil
	}
	requestBody, err = io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read request body")
	}
	_ = c.Request.Body.Close()
	c.Set(ctxkey.KeyRequestBody, requestBody)

	return requestBody, nil
}

// LogClientRequestPayload emits one DEBUG log line per request carrying a
// sanitized preview of the inbound body, then restores the body for reuse.
// Repeat calls for the same request are no-ops.
func LogClientRequestPayload(c *gin.Context, label string, limit int) error {
	if logged, ok := c.Get(ctxkey.ClientRequestPayloadLogged); ok {
		if already, ok := logged.(bool); ok && already {
			return nil
		}
	}

	body, err := GetRequestBody(c)
	if err != nil {
		return errors.Wrap(err, "get request body")
	}

	preview, truncated := SanitizePayloadForLogging(body, limit)
	fields := []zap.Field{
		zap.String("method", c.Request.Method),
		zap.String("url", c.Request.URL.String()),
		zap.Int("body_bytes", len(body)),
		zap.Bool("body_truncated", truncated),
		zap.ByteString("body_preview", preview),
	}
	if label != "" {
		fields = append(fields, zap.String("label", label))
	}

	gmw.GetLogger(c).Debug("client request received", fields...)
	c.Set(ctxkey.ClientRequestPayloadLogged, true)
	c.Request.Body = io.NopCloser(bytes.NewBuffer(body))
	return nil
}

// SetEventStreamHeaders sets the headers a dialect-A streaming response is
// delivered with: SSE content type, no caching anywhere along the path, and
// a persistent unbuffered connection so chunks reach the client as they're
// written rather than sitting in an intermediary's buffer.
func SetEventStreamHeaders(c *gin.Context) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Writer.Header().Set("Pragma", "no-cache")
}
