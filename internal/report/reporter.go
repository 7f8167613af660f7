// Package report turns captured failures into flat log lines and delivers them:
// a local mirror through the logger and, when a destination is configured, a
// fire-and-forget GET request carrying the log and context query parameters.
package report

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/iyunix/go-jex/internal/logger"
	"github.com/iyunix/go-jex/internal/metrics"
)

const DefaultTimeout = 10 * time.Second

// Report is built per failure, mirrored, transmitted and dropped. It is never
// queued or retried.
type Report struct {
	// ID correlates the local mirror with delivery warnings. It is not sent.
	ID      string
	Log     string
	Context string
	Time    time.Time
	// Transmitted is true when a delivery was started.
	Transmitted bool
}

// Reporter is the process-wide reporting handle. Its options can be replaced at
// any time from any goroutine.
type Reporter struct {
	opts      atomic.Pointer[Options]
	console   logger.Logger
	transport Transport
	timeout   atomic.Int64
	inflight  inflight
}

// New creates a reporter. A nil console or transport is replaced by its no-op
// form so later calls never check for missing capabilities.
func New(opts Options, console logger.Logger, transport Transport) *Reporter {
	if transport == nil {
		transport = NoopTransport{}
	}
	r := &Reporter{
		console:   logger.OrNop(console),
		transport: transport,
	}
	r.timeout.Store(int64(DefaultTimeout))
	r.Configure(opts)
	return r
}

// SetTimeout bounds each delivery. Non-positive values keep the current timeout.
func (r *Reporter) SetTimeout(d time.Duration) {
	if d > 0 {
		r.timeout.Store(int64(d))
	}
}

// Configure replaces the whole configuration.
func (r *Reporter) Configure(opts Options) {
	o := opts
	r.opts.Store(&o)
}

// Options returns the current configuration.
func (r *Reporter) Options() Options {
	if o := r.opts.Load(); o != nil {
		return *o
	}
	return Options{}
}

// Send normalizes f, resolves the context once, mirrors the report to the
// console and starts delivery if a destination is configured. It never panics
// and never waits for the delivery.
func (r *Reporter) Send(f Failure) (rep Report) {
	defer func() {
		if p := recover(); p != nil {
			r.console.Error("jex: report dropped", "panic", p)
		}
	}()

	opts := r.Options()
	rep = Report{
		ID:      uuid.NewString(),
		Log:     Normalize(f),
		Context: resolveContext(opts.Context),
		Time:    time.Now(),
	}

	r.console.Error("jex report", "id", rep.ID, "log", rep.Log, "context", rep.Context)

	if !opts.HasDestination() {
		return rep
	}
	rep.Transmitted = true
	r.transmit(rep.ID, BuildURL(opts.Destination, rep.Log, rep.Context))
	return rep
}

func (r *Reporter) transmit(id, target string) {
	metrics.RecordSent()
	timeout := time.Duration(r.timeout.Load())
	r.inflight.add()
	go func() {
		defer r.inflight.done()
		defer func() {
			if p := recover(); p != nil {
				r.console.Warn("jex: delivery panicked", "id", id, "panic", p)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := r.transport.Deliver(ctx, target); err != nil {
			errType := string(ErrTypeNetwork)
			var te *TransportError
			if errors.As(err, &te) {
				errType = string(te.Type)
			}
			metrics.RecordDeliveryFailure(errType)
			r.console.Warn("jex: delivery failed", "id", id, "error", err)
			return
		}
		r.console.Debug("jex: report delivered", "id", id)
	}()
}

// Flush waits until deliveries started so far finish or ctx is done. It may
// run concurrently with Send.
func (r *Reporter) Flush(ctx context.Context) error {
	select {
	case <-r.inflight.idle():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// inflight counts running deliveries. The idle channel is closed whenever the
// count drops to zero.
type inflight struct {
	mu   sync.Mutex
	n    int
	wait chan struct{}
}

var closedChan = func() chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}()

func (f *inflight) add() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.n == 0 {
		f.wait = make(chan struct{})
	}
	f.n++
}

func (f *inflight) done() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.n--
	if f.n == 0 {
		close(f.wait)
	}
}

func (f *inflight) idle() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.n == 0 {
		return closedChan
	}
	return f.wait
}
