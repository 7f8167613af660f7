// Package jex captures panics raised in application code and in deferred
// callbacks and forwards them to a log endpoint with a GET request carrying
// the formatted log line and an application supplied context string.
//
//	jex.Configure(jex.Options{
//		Destination: "https://example.com/LogException",
//		Context:     jex.ContextFunc(func() string { return currentUserID() }),
//	})
//
//	v, err := jex.Run(func() int { return compute() })
//	time.AfterFunc(time.Second, jex.Wrap(refresh))
//	jex.Install(jex.Hooks{Router: router})
//
// The package-level functions use one process-wide guard. Code that prefers
// explicit handles can build its own with NewGuard.
package jex

import (
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/iyunix/go-jex/internal/capture"
	"github.com/iyunix/go-jex/internal/logger"
	"github.com/iyunix/go-jex/internal/metrics"
	"github.com/iyunix/go-jex/internal/report"
)

type (
	Options       = report.Options
	ContextSource = report.ContextSource
	ContextFunc   = report.ContextFunc
	StaticContext = report.StaticContext
	Report        = report.Report
	Failure       = report.Failure
	Transport     = report.Transport
	HTTPDoer      = report.HTTPDoer
	Logger        = logger.Logger
	Guard         = capture.Guard
	Scheduler     = capture.Scheduler
	Interval      = capture.Interval
	CapturedError = capture.CapturedError
	Hooks         = capture.Hooks
	Installed     = capture.Installed
)

var defaultGuard atomic.Pointer[capture.Guard]

func init() {
	defaultGuard.Store(NewGuard(Options{}, logger.FromEnv("jex"), nil))
}

// NewGuard builds an independent reporter and guard. A nil console gets a
// no-op logger; a nil client gets a default *http.Client.
func NewGuard(opts Options, console Logger, client HTTPDoer) *Guard {
	tr := report.DetectTransport(client, true, report.DefaultTimeout)
	return capture.New(report.New(opts, console, tr))
}

// Default returns the process-wide guard.
func Default() *Guard {
	return defaultGuard.Load()
}

// SetDefault replaces the process-wide guard, for hosts that need a custom
// logger or HTTP client.
func SetDefault(g *Guard) {
	if g != nil {
		defaultGuard.Store(g)
	}
}

// Configure replaces the whole reporting configuration of the default guard.
// Fields left empty become absent.
func Configure(opts Options) {
	Default().Reporter().Configure(opts)
}

// SetTimeout bounds each delivery made by the default guard.
func SetTimeout(d time.Duration) {
	Default().Reporter().SetTimeout(d)
}

// Run calls fn under protection and returns its value, or the zero value and
// a *CapturedError when fn panics.
func Run[T any](fn func() T) (T, error) {
	return capture.Run(Default(), fn)
}

// Do is Run for callbacks without a result.
func Do(fn func()) error {
	return Default().Do(fn)
}

// Wrap returns a protected version of fn.
func Wrap(fn func()) func() {
	return Default().Wrap(fn)
}

// Go runs fn on a new goroutine under protection.
func Go(fn func()) {
	Default().Go(fn)
}

// Recover is deferred at the top of main or a goroutine: it reports a panic
// and lets it continue.
func Recover() {
	// recover only works in the deferred function itself, so this cannot
	// delegate to Guard.Recover.
	if p := recover(); p != nil {
		Default().Rethrow(p)
	}
}

// HandleError reports an uncaught failure and returns false.
func HandleError(message, file string, line int, thrown any) bool {
	return Default().HandleError(message, file, line, thrown)
}

// Capture reports err and returns it unchanged.
func Capture(err error) error {
	if err == nil {
		return nil
	}
	_, file, line, _ := runtime.Caller(1)
	Default().HandleError("", file, line, err)
	return err
}

// NewScheduler returns timer and interval registration bound to the default guard.
func NewScheduler() *Scheduler {
	return capture.NewScheduler(Default())
}

// Install binds the default guard to the third-party callback registries in h.
func Install(h Hooks) Installed {
	return capture.Install(Default(), h)
}

// RegisterMetrics adds the jex counters to reg: failures captured by source,
// reports sent and delivery failures by error type. Registering the same
// registry twice is not an error.
func RegisterMetrics(reg prometheus.Registerer) error {
	return metrics.Register(reg)
}
