// Package controller implements the request pipeline: token validation,
// dialect detection, the selector-driven retry loop, and response delivery.
package controller

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	laisherrors "github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v7"
	glog "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/Laisky/gemini-keypool-proxy/common"
	"github.com/Laisky/gemini-keypool-proxy/common/config"
	"github.com/Laisky/gemini-keypool-proxy/common/metrics"
	"github.com/Laisky/gemini-keypool-proxy/common/tracing"
	"github.com/Laisky/gemini-keypool-proxy/pool"
	"github.com/Laisky/gemini-keypool-proxy/relay/adaptor/gemini"
	"github.com/Laisky/gemini-keypool-proxy/relay/sanitizer"
)

// hopByHopHeaders are stripped from the relayed response; they describe one
// hop's transport, not the payload.
var hopByHopHeaders = []string{"Content-Encoding", "Content-Length", "Transfer-Encoding", "Connection"}

// Pipeline owns everything the request handler needs: the credential pool,
// the usage ledger, the selector, configuration, and the outbound client. It
// holds no per-request state — callers pass one instance to every request.
type Pipeline struct {
	Store    *pool.Store
	Ledger   *pool.Ledger
	Selector *pool.Selector
	Config   *config.Config
	Client   *http.Client
}

// New builds a Pipeline from its collaborators.
func New(store *pool.Store, ledger *pool.Ledger, selector *pool.Selector, cfg *config.Config, client *http.Client) *Pipeline {
	return &Pipeline{Store: store, Ledger: ledger, Selector: selector, Config: cfg, Client: client}
}

// Handle is the gin handler for every client request, dialect A or B.
func (p *Pipeline) Handle(c *gin.Context) {
	start := time.Now()
	logger := gmw.GetLogger(c)

	p.Ledger.EnsureDay(start)

	if err := p.handle(c, logger); err != nil {
		p.writeError(c, logger, err)
	}

	metrics.GlobalRecorder.RecordHTTPRequest(start, c.Request.URL.Path, c.Request.Method, strconv.Itoa(c.Writer.Status()))
}

func (p *Pipeline) handle(c *gin.Context, logger glog.Logger) error {
	if p.Store.Count() == 0 {
		return newPipelineError(http.StatusServiceUnavailable, KindKeyPoolUnavailable, "API keys not loaded")
	}

	path := c.Request.URL.Path
	dialectA := gemini.IsDialectA(path)

	if dialectA && c.Request.Method != http.MethodPost {
		return newPipelineError(http.StatusMethodNotAllowed, KindBadClientRequest, "method not allowed")
	}

	if err := p.authenticate(c, dialectA); err != nil {
		return err
	}

	var model, upstreamPath string
	var streaming bool
	var upstreamBody []byte

	raw, err := common.GetRequestBody(c)
	if err != nil {
		return wrapPipelineError(http.StatusBadRequest, KindBadClientRequest, "read request body", err)
	}
	_ = common.LogClientRequestPayload(c, "upstream_forward", common.DefaultLogBodyLimit)

	if dialectA {
		converted, err := gemini.ConvertRequest(raw, logger)
		if err != nil {
			return wrapPipelineError(http.StatusBadRequest, KindBadClientRequest, "parse dialect-A request body", err)
		}
		model = converted.Model
		upstreamPath = converted.UpstreamPath
		streaming = converted.Streaming
		upstreamBody = converted.Body
	} else {
		model = gemini.ModelFromDialectBPath(path)
		upstreamPath = strings.TrimPrefix(path, "/")
		streaming = strings.HasSuffix(upstreamPath, "streamGenerateContent")
		upstreamBody = raw
	}

	if model == "" {
		return newPipelineError(http.StatusInternalServerError, KindModelUndetermined, "could not determine model")
	}

	allCreds := p.Store.All()
	if p.Ledger.AllExhaustedFor(model, allCreds) {
		metrics.GlobalRecorder.UpdatePoolExhausted(model, true)
		return newPipelineError(http.StatusServiceUnavailable, KindPoolExhausted, "all API keys exhausted for model "+model)
	}

	for attempt := 0; attempt < p.Store.Count(); attempt++ {
		cred, ok := p.Selector.Next(model)
		if !ok {
			metrics.GlobalRecorder.UpdatePoolExhausted(model, true)
			return newPipelineError(http.StatusServiceUnavailable, KindPoolExhausted, "all API keys exhausted for model "+model)
		}

		forwardStart := time.Now()
		resp, cancel, doErr := p.forward(c, dialectA, upstreamPath, upstreamBody, cred)
		if doErr != nil {
			cancel()
			if isTimeout(doErr) {
				metrics.GlobalRecorder.RecordUpstreamForward(forwardStart, model, pool.MaskSuffix(cred), "timeout")
				logger.Warn("upstream request timed out", zap.String("cred", pool.MaskSuffix(cred)), zap.String("model", model))
				return newPipelineError(http.StatusGatewayTimeout, KindUpstreamTimeout, "upstream request timed out")
			}
			metrics.GlobalRecorder.RecordUpstreamForward(forwardStart, model, pool.MaskSuffix(cred), "transport_error")
			logger.Error("upstream transport error", zap.Error(doErr), zap.String("cred", pool.MaskSuffix(cred)), zap.String("model", model))
			return wrapPipelineError(http.StatusBadGateway, KindUpstreamTransport, "upstream transport error", doErr)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			cancel()
			metrics.GlobalRecorder.RecordUpstreamForward(forwardStart, model, pool.MaskSuffix(cred), "rate_limited")
			p.Ledger.MarkExhausted(cred, model)
			metrics.GlobalRecorder.RecordQuarantine(model, pool.MaskSuffix(cred))
			logger.Info("credential rate-limited, quarantining for model", zap.String("cred", pool.MaskSuffix(cred)), zap.String("model", model))
			if p.Ledger.AllExhaustedFor(model, allCreds) {
				metrics.GlobalRecorder.UpdatePoolExhausted(model, true)
				return newPipelineError(http.StatusServiceUnavailable, KindPoolExhausted, "all API keys exhausted for model "+model)
			}
			continue
		}

		metrics.GlobalRecorder.RecordUpstreamForward(forwardStart, model, pool.MaskSuffix(cred), "used")
		p.Ledger.RecordSuccess(cred, model)
		p.deliver(c, logger, resp, dialectA, streaming, model)
		cancel()
		return nil
	}

	return newPipelineError(http.StatusServiceUnavailable, KindNoUsableKey, "failed to find a usable API key")
}

// authenticate validates the placeholder token for the detected dialect.
func (p *Pipeline) authenticate(c *gin.Context, dialectA bool) error {
	if dialectA {
		auth := c.GetHeader("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(auth, prefix) || strings.TrimPrefix(auth, prefix) != p.Config.PlaceholderToken {
			return newPipelineError(http.StatusUnauthorized, KindBadClientRequest, "invalid or missing bearer token")
		}
		return nil
	}

	key := c.GetHeader("x-goog-api-key")
	if key == "" {
		return newPipelineError(http.StatusBadRequest, KindBadClientRequest, "missing x-goog-api-key header")
	}
	if key != p.Config.PlaceholderToken {
		return newPipelineError(http.StatusUnauthorized, KindBadClientRequest, "invalid x-goog-api-key header")
	}
	return nil
}

// forward builds and issues the upstream request for one credential attempt.
// The returned cancel func must be called once the response body has been
// fully read (or discarded) — it is not safe to call before then, since
// doing so would abort an in-flight streamed body read.
func (p *Pipeline) forward(c *gin.Context, dialectA bool, upstreamPath string, body []byte, cred string) (*http.Response, context.CancelFunc, error) {
	u := p.Config.UpstreamBaseURL + "/" + strings.TrimPrefix(upstreamPath, "/")
	if !dialectA {
		if rawQuery := c.Request.URL.RawQuery; rawQuery != "" {
			u += "?" + rawQuery
		}
	}

	method := c.Request.Method
	if dialectA {
		method = http.MethodPost
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), p.Config.UpstreamTimeout)

	req, err := http.NewRequestWithContext(ctx, method, u, bytes.NewReader(body))
	if err != nil {
		return nil, cancel, laisherrors.Wrap(err, "build upstream request")
	}

	for k, vv := range c.Request.Header {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	req.Header.Del("Host")
	if dialectA {
		req.Header.Del("Authorization")
	}
	req.Header.Set("x-goog-api-key", cred)
	req.ContentLength = int64(len(body))

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, cancel, err
	}
	return resp, cancel, nil
}

// isTimeout reports whether err represents the upstream request's
// total-deadline timeout expiring, as opposed to some other transport error.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// deliver sanitizes and (for dialect A) translates the upstream response,
// strips hop-by-hop headers, and writes it to the client.
func (p *Pipeline) deliver(c *gin.Context, logger glog.Logger, resp *http.Response, dialectA bool, streaming bool, model string) {
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.Error("failed to read upstream response body", zap.Error(err))
		c.Status(http.StatusBadGateway)
		return
	}

	if resp.StatusCode == http.StatusOK && len(raw) > 0 {
		raw = sanitizer.Sanitize(raw)
	}

	for _, h := range hopByHopHeaders {
		resp.Header.Del(h)
	}

	if !dialectA || resp.StatusCode != http.StatusOK {
		for k, vv := range resp.Header {
			for _, v := range vv {
				c.Writer.Header().Add(k, v)
			}
		}
		c.Status(resp.StatusCode)
		_, _ = c.Writer.Write(raw)
		return
	}

	now := time.Now().Unix()
	if streaming {
		common.SetEventStreamHeaders(c)
		c.Status(http.StatusOK)
		if err := gemini.StreamConvert(raw, model, now, c.Writer); err != nil {
			logger.Error("streaming response conversion failed", zap.Error(err), zap.String("model", model))
		}
		return
	}

	body, err := gemini.ConvertResponse(raw, model, now)
	if err != nil {
		logger.Error("response conversion failed, falling back to untranslated body", zap.Error(err), zap.String("model", model))
		for k, vv := range resp.Header {
			for _, v := range vv {
				c.Writer.Header().Add(k, v)
			}
		}
		c.Status(resp.StatusCode)
		_, _ = c.Writer.Write(raw)
		return
	}

	c.Writer.Header().Set("Content-Type", "application/json")
	c.Status(http.StatusOK)
	_, _ = c.Writer.Write(body)
}

// writeError reports a pipelineError to the client as a plain JSON body.
func (p *Pipeline) writeError(c *gin.Context, logger glog.Logger, err error) {
	var pe *pipelineError
	if !errors.As(err, &pe) {
		pe = newPipelineError(http.StatusInternalServerError, KindNoUsableKey, err.Error())
	}

	fields := tracing.WithTraceID(c,
		zap.String("kind", string(pe.Kind)),
		zap.Int("status", pe.Status),
		zap.String("message", pe.Message),
	)
	logger.Warn("request rejected", fields...)
	c.JSON(pe.Status, gin.H{"error": gin.H{"message": pe.Message, "kind": string(pe.Kind)}})
}
