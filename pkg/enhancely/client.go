// Package enhancely is a client for the Enhancely JSON-LD generation API.
//
// Usage:
//
//	client := enhancely.New(enhancely.WithAPIKey("sk_live_xxx"))
//	resp := client.JSONLD(ctx, "https://example.com/page", cachedETag)
//	if resp.Ready() {
//		fmt.Fprint(w, resp) // <script type="application/ld+json">...</script>
//	}
package enhancely

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/enhancely/enhancely-go/pkg/httpclient"
)

const (
	// DefaultBaseURL is the production API endpoint.
	DefaultBaseURL = "https://api.enhancely.ai"

	jsonLDPath = "/api/v1/jsonld"
)

// ProtocolClient talks to the JSON-LD endpoint with a fixed API key, base URL and transport.
// It holds no per-request state and is safe for concurrent use.
type ProtocolClient struct {
	apiKey    string
	baseURL   string
	transport httpclient.Client
	log       Logger
}

// NewProtocolClient validates the credentials and builds a client. A nil transport gets a
// resty transport with the default timeouts; an empty baseURL selects DefaultBaseURL.
func NewProtocolClient(apiKey, baseURL string, transport httpclient.Client, log Logger) (*ProtocolClient, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, missingAPIKeyError()
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if transport == nil {
		transport = httpclient.NewRestyClientWithOptions(httpclient.Options{})
	}

	return &ProtocolClient{
		apiKey:    apiKey,
		baseURL:   baseURL,
		transport: transport,
		log:       ensureLogger(log),
	}, nil
}

// BaseURL returns the endpoint root requests are sent to.
func (c *ProtocolClient) BaseURL() string { return c.baseURL }

type jsonLDRequest struct {
	URL string `json:"url"`
}

// RequestJSONLD asks the API for the JSON-LD of url. A non-empty etag is sent as
// If-None-Match. Every failure is returned as an *APIError.
func (c *ProtocolClient) RequestJSONLD(ctx context.Context, url, etag string) (Response, error) {
	if c == nil || c.apiKey == "" {
		return Response{}, missingAPIKeyError()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	normalized := NormalizeURL(url)
	payload, err := json.Marshal(jsonLDRequest{URL: normalized})
	if err != nil {
		return Response{}, &APIError{Kind: KindFormat, Message: "encode request: " + err.Error(), Err: err}
	}

	headers := map[string]string{
		"Authorization": "Bearer " + c.apiKey,
		"Content-Type":  "application/json",
		"Accept":        "application/json",
	}
	if etag != "" {
		headers["If-None-Match"] = etag
	}

	httpResp, err := c.transport.Do(ctx, httpclient.Request{
		Method:  http.MethodPost,
		URL:     c.baseURL + jsonLDPath,
		Headers: headers,
		Body:    payload,
	})
	if err != nil {
		c.log.WarnObj("jsonld request failed", "jsonld_transport_error", map[string]any{
			"url":   normalized,
			"error": err.Error(),
		})
		return Response{}, transportError(err)
	}

	resp, err := dispatchStatus(httpResp)
	if err != nil {
		c.log.WarnObj("jsonld request rejected", "jsonld_api_error", map[string]any{
			"url":    normalized,
			"status": httpResp.StatusCode(),
			"error":  err.Error(),
		})
		return Response{}, err
	}

	c.log.DebugObj("jsonld request completed", "jsonld_result", map[string]any{
		"url":    normalized,
		"status": httpResp.StatusCode(),
		"state":  resp.State().String(),
		"etag":   resp.ETag(),
	})
	return resp, nil
}

type statusHandler func(resp httpclient.Response) (Response, error)

var statusHandlers = map[int]statusHandler{
	http.StatusOK:                 handleOK,
	http.StatusCreated:            handleProcessing,
	http.StatusAccepted:           handleProcessing,
	http.StatusPreconditionFailed: handleNotModified,
	http.StatusUnauthorized:       handleUnauthorized,
	http.StatusTooManyRequests:    handleRateLimited,
}

// dispatchStatus maps the status code to its handler; unknown codes go to handleProblem.
func dispatchStatus(resp httpclient.Response) (Response, error) {
	if handler, ok := statusHandlers[resp.StatusCode()]; ok {
		return handler(resp)
	}
	return handleProblem(resp)
}

func handleOK(resp httpclient.Response) (Response, error) {
	var body map[string]any
	if err := decodeJSON(resp.Body(), &body); err != nil || body == nil {
		return Response{}, &APIError{
			Kind:       KindFormat,
			Message:    "Invalid JSON response from API",
			StatusCode: http.StatusOK,
			Err:        err,
		}
	}
	return ReadyResponse(body, resp.Header("ETag")), nil
}

// decodeJSON keeps numbers as json.Number so markup renders exactly as the API sent it.
func decodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return errors.New("unexpected data after top-level value")
	}
	return nil
}

func handleProcessing(resp httpclient.Response) (Response, error) {
	return ProcessingResponse(resp.StatusCode()), nil
}

func handleNotModified(httpclient.Response) (Response, error) {
	return NotModifiedResponse(), nil
}

func handleUnauthorized(resp httpclient.Response) (Response, error) {
	return Response{}, &APIError{
		Kind:       KindProtocol,
		Message:    "Invalid API key",
		StatusCode: resp.StatusCode(),
	}
}

func handleRateLimited(resp httpclient.Response) (Response, error) {
	reset := resp.Header("RateLimit-Reset")
	return Response{}, &APIError{
		Kind:           KindProtocol,
		Message:        "Rate limit exceeded. Reset at: " + reset,
		StatusCode:     resp.StatusCode(),
		RateLimitReset: reset,
	}
}

// handleProblem reads an RFC 7807 body when there is one.
func handleProblem(resp httpclient.Response) (Response, error) {
	apiErr := &APIError{
		Kind:       KindProtocol,
		Message:    "API error",
		StatusCode: resp.StatusCode(),
	}
	if problem, ok := parseProblemDetails(resp.Body()); ok {
		apiErr.Problem = problem
		apiErr.Message = problem.message(apiErr.Message)
	}
	return Response{}, apiErr
}
