package report

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"
)

// Transport delivers one report URL. Implementations must be safe for
// concurrent use since every report is delivered on its own goroutine.
type Transport interface {
	Deliver(ctx context.Context, target string) error
}

// HTTPDoer is the request-issuing capability. *http.Client satisfies it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPTransport issues a plain GET with no body, headers, or authentication.
type HTTPTransport struct {
	client HTTPDoer
}

func NewHTTPTransport(client HTTPDoer) *HTTPTransport {
	return &HTTPTransport{client: client}
}

func (t *HTTPTransport) Deliver(ctx context.Context, target string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return &TransportError{Type: ErrTypeConfig, Message: "failed to create request", Cause: err}
	}

	resp, err := t.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return &TransportError{Type: ErrTypeTimeout, Message: "request timed out", Cause: err}
		}
		return &TransportError{Type: ErrTypeNetwork, Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()
	// The body is never inspected; draining lets the connection be reused.
	_, _ = io.Copy(io.Discard, resp.Body)

	return t.handleResponse(resp)
}

func (t *HTTPTransport) handleResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		return nil
	}
	return &TransportError{
		Type:    ErrTypeProvider,
		Code:    resp.StatusCode,
		Message: resp.Status,
	}
}

// NoopTransport drops reports. It stands in when no request capability exists.
type NoopTransport struct{}

func (NoopTransport) Deliver(context.Context, string) error { return nil }

// DetectTransport picks the request-issuing facility: the given client, or a
// fresh *http.Client with timeout when client is nil and allowDefault is set.
// With neither, transmission is skipped entirely.
func DetectTransport(client HTTPDoer, allowDefault bool, timeout time.Duration) Transport {
	if client != nil {
		return NewHTTPTransport(client)
	}
	if allowDefault {
		return NewHTTPTransport(&http.Client{Timeout: timeout})
	}
	return NoopTransport{}
}
