package backend

import "fmt"

// ModelLoadError means the in-process model could not be loaded. The next
// EnsureReady starts from scratch; nothing is cached.
type ModelLoadError struct {
	Path string
	Err  error
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("loading model %s: %v", e.Path, e.Err)
}

func (e *ModelLoadError) Unwrap() error { return e.Err }

// ServerStartError means the inference server process could not be brought
// up: missing binary or model, spawn failure, or an exit during startup.
type ServerStartError struct {
	Reason string
	Err    error
}

func (e *ServerStartError) Error() string {
	if e.Err == nil {
		return e.Reason
	}
	return fmt.Sprintf("%s: %v", e.Reason, e.Err)
}

func (e *ServerStartError) Unwrap() error { return e.Err }

// RequestError covers a failed transcription request. For non-2xx replies
// Body carries whatever the server said, so logs show the real cause.
type RequestError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *RequestError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("inference request failed: status %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("inference request failed: %v", e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }
