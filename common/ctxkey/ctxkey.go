// Package ctxkey names the gin.Context keys shared across the request
// pipeline, so every reader and writer agrees on the same string constant.
package ctxkey

const (
	// KeyRequestBody caches the raw request body bytes for reuse across
	// handler stages.
	KeyRequestBody = "request_body"
	// ClientRequestPayloadLogged flags that the inbound payload has already
	// been logged once for this request.
	ClientRequestPayloadLogged = "client_request_payload_logged"
)
