package controller

// Kind names one of the error dispositions the request pipeline can produce.
type Kind string

const (
	KindBadClientRequest   Kind = "bad_client_request"
	KindModelUndetermined  Kind = "model_undetermined"
	KindPoolExhausted      Kind = "pool_exhausted_for_model"
	KindUpstreamTimeout    Kind = "upstream_timeout"
	KindUpstreamTransport  Kind = "upstream_transport_error"
	KindKeyPoolUnavailable Kind = "key_pool_unavailable"
	KindNoUsableKey        Kind = "no_usable_key"
)

// pipelineError is the tagged result every early-return in the pipeline
// produces: an HTTP status, a disposition kind for logging, and the message
// reported to the client.
type pipelineError struct {
	Status  int
	Kind    Kind
	Message string
	Cause   error
}

func (e *pipelineError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func newPipelineError(status int, kind Kind, message string) *pipelineError {
	return &pipelineError{Status: status, Kind: kind, Message: message}
}

// wrapPipelineError stores cause unwrapped: Error() already prefixes Message,
// so wrapping cause with the same message here would double it.
func wrapPipelineError(status int, kind Kind, message string, cause error) *pipelineError {
	return &pipelineError{Status: status, Kind: kind, Message: message, Cause: cause}
}
