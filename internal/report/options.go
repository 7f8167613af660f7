package report

import (
	"errors"
	"net/url"
	"strings"
)

// ContextSource supplies the context string attached to every report.
type ContextSource interface {
	Resolve() string
}

// StaticContext is a fixed context value.
type StaticContext string

func (s StaticContext) Resolve() string { return string(s) }

// ContextFunc is evaluated freshly for every report so it can reflect current
// application state (a user id, a request path, a build number).
type ContextFunc func() string

func (f ContextFunc) Resolve() string { return f() }

// Options is the whole reporting configuration. Configure replaces it wholesale:
// a field left empty becomes absent, it is never merged with the previous value.
type Options struct {
	// Destination is the URL reports are sent to. Empty means local mirror only.
	Destination string
	// Context is optional; nil means an empty context.
	Context ContextSource
}

// HasDestination reports whether reports leave the process.
func (o Options) HasDestination() bool {
	return strings.TrimSpace(o.Destination) != ""
}

// Validate checks the destination, when present, is an absolute http(s) URL.
func (o Options) Validate() error {
	if !o.HasDestination() {
		return nil
	}
	u, err := url.Parse(o.Destination)
	if err != nil {
		return &TransportError{Type: ErrTypeConfig, Message: "destination is not a valid URL", Cause: err}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &TransportError{Type: ErrTypeConfig, Message: "destination must use http or https"}
	}
	if u.Host == "" {
		return &TransportError{Type: ErrTypeConfig, Message: "destination must be absolute"}
	}
	return nil
}

// ErrNoDestination is returned by callers that require a remote destination.
var ErrNoDestination = errors.New("no report destination configured")
