package common

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	gmw "github.com/Laisky/gin-middlewares/v7"
	glog "github.com/Laisky/go-utils/v6/log"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/Laisky/gemini-keypool-proxy/common/ctxkey"
)

// TestLogClientRequestPayload_OnceAndReusable verifies payload logging deduplicates per request and keeps body reusable.
func TestLogClientRequestPayload_OnceAndReusable(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	payload := `{"model":"gemini-pro","messages":[{"role":"user","content":"hi"}]}`
	c.Request = httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(payload))
	c.Request.Header.Set("Content-Type", "application/json")
	gmw.SetLogger(c, glog.Shared.Named("test"))

	err := LogClientRequestPayload(c, "chat_completions", 16)
	require.NoError(t, err)

	logged, ok := c.Get(ctxkey.ClientRequestPayloadLogged)
	require.True(t, ok)
	require.Equal(t, true, logged)

	body, err := GetRequestBody(c)
	require.NoError(t, err)
	require.Equal(t, payload, string(body))

	err = LogClientRequestPayload(c, "chat_completions", 4)
	require.NoError(t, err)
}

// TestGetRequestBody_CachesAcrossCalls verifies the body is read once and reused on subsequent calls.
func TestGetRequestBody_CachesAcrossCalls(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	payload := `{"model":"gemini-pro"}`
	c.Request = httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(payload))

	first, err := GetRequestBody(c)
	require.NoError(t, err)
	require.Equal(t, payload, string(first))

	second, err := GetRequestBody(c)
	require.NoError(t, err)
	require.Equal(t, payload, string(second))
}
