package enhancely

import (
	"errors"
	"maps"
	"net/http"
)

// State is the outcome of a JSON-LD request.
type State int

const (
	// StateReady means the API returned generated markup.
	StateReady State = iota + 1
	// StateNotModified means the supplied ETag still matches.
	StateNotModified
	// StateProcessing means the markup is queued or being generated.
	StateProcessing
	// StateFailed means the request could not be completed.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateNotModified:
		return "not_modified"
	case StateProcessing:
		return "processing"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Response is the immutable result of one JSON-LD request. Accessors for data that does
// not belong to the current state return zero values.
type Response struct {
	state      State
	statusCode int
	body       map[string]any
	etag       string
	message    string
	problem    ProblemDetails
}

// ReadyResponse wraps a decoded 200 body. The body does not have to carry a jsonld
// member; Ready reports false in that case.
func ReadyResponse(body map[string]any, etag string) Response {
	return Response{
		state:      StateReady,
		statusCode: http.StatusOK,
		body:       body,
		etag:       etag,
	}
}

func NotModifiedResponse() Response {
	return Response{state: StateNotModified, statusCode: http.StatusPreconditionFailed}
}

// ProcessingResponse records a 201 or 202 answer.
func ProcessingResponse(statusCode int) Response {
	return Response{state: StateProcessing, statusCode: statusCode}
}

func FailedResponse(message string) Response {
	return Response{state: StateFailed, message: message}
}

// FailedFromError folds any error into a failed response. *APIError keeps its message
// and problem details; other errors are reported as unexpected.
func FailedFromError(err error) Response {
	if err == nil {
		return FailedResponse("Unexpected error")
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		resp := FailedResponse(apiErr.Message)
		resp.problem = apiErr.Problem
		return resp
	}
	return FailedResponse("Unexpected error: " + err.Error())
}

func (r Response) State() State { return r.state }

// StatusCode returns the HTTP status behind the response, 0 for failures.
func (r Response) StatusCode() int { return r.statusCode }

// Ready reports whether generated JSON-LD is available.
func (r Response) Ready() bool {
	return r.state == StateReady && r.body["jsonld"] != nil
}

// NotModified reports whether the cached copy identified by the request ETag is current.
func (r Response) NotModified() bool { return r.state == StateNotModified }

// IsProcessing reports whether the API is still generating the markup.
func (r Response) IsProcessing() bool { return r.state == StateProcessing }

func (r Response) Failed() bool { return r.state == StateFailed }

// ErrorMessage returns the failure message, empty unless Failed.
func (r Response) ErrorMessage() string { return r.message }

// Problem returns the RFC 7807 details that caused a failure, if any.
func (r Response) Problem() ProblemDetails { return r.problem }

// ETag returns the validator to send with the next request for the same URL.
func (r Response) ETag() string { return r.etag }

// JSONLD returns the generated JSON-LD object, nil when not ready or not an object.
func (r Response) JSONLD() map[string]any {
	obj, ok := r.body["jsonld"].(map[string]any)
	if !ok {
		return nil
	}
	return maps.Clone(obj)
}

// RawJSONLD returns the jsonld member as decoded, whatever its JSON type.
func (r Response) RawJSONLD() any {
	if r.state != StateReady {
		return nil
	}
	return r.body["jsonld"]
}

// ScriptTag renders the markup as an HTML script element, empty unless Ready.
func (r Response) ScriptTag() string {
	if !r.Ready() {
		return ""
	}
	return ScriptTag(r.body["jsonld"])
}

// String implements fmt.Stringer by rendering the script tag.
func (r Response) String() string { return r.ScriptTag() }
