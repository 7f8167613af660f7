// Package capture intercepts panics in application code and in deferred
// callbacks (timers, intervals, goroutines, HTTP routes, cron jobs) and hands
// them to a report.Reporter. A captured panic never propagates past a Run,
// Do or Wrap boundary; the caller gets a *CapturedError instead.
package capture

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/iyunix/go-jex/internal/metrics"
	"github.com/iyunix/go-jex/internal/report"
)

// DefaultFlushTimeout bounds how long Recover waits for the report of a fatal
// panic to leave the process before re-panicking.
const DefaultFlushTimeout = 2 * time.Second

// Guard routes every captured failure to one reporter. A nil *Guard performs
// no interception: callbacks run as they are and panics propagate.
type Guard struct {
	reporter     *report.Reporter
	flushTimeout time.Duration
}

func New(reporter *report.Reporter) *Guard {
	return &Guard{reporter: reporter, flushTimeout: DefaultFlushTimeout}
}

// Reporter returns the reporter failures are sent to.
func (g *Guard) Reporter() *report.Reporter {
	if g == nil {
		return nil
	}
	return g.reporter
}

// SetFlushTimeout changes how long Recover waits for delivery.
func (g *Guard) SetFlushTimeout(d time.Duration) {
	if g == nil {
		return
	}
	g.flushTimeout = d
}

// CapturedError is returned in place of a recovered panic.
type CapturedError struct {
	// Value is what was passed to panic.
	Value  any
	Stack  []byte
	Source string
	Report report.Report
}

func (e *CapturedError) Error() string {
	return fmt.Sprintf("jex: captured panic in %s: %v", e.Source, e.Value)
}

// Unwrap exposes the panic value when it is an error, so errors.Is and
// errors.As see through the capture.
func (e *CapturedError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// HandleError is the uncaught-failure hook: it reports message, file, line
// and the optional thrown value, and always returns false so default handling
// is not suppressed. It never panics.
func (g *Guard) HandleError(message, file string, line int, thrown any) bool {
	if g == nil || g.reporter == nil {
		return false
	}
	metrics.RecordCaptured(metrics.SourceUncaught)
	g.reporter.Send(report.Failure{Message: message, File: file, Line: line, Thrown: thrown})
	return false
}

// Capture reports err with the caller's file and line and returns err
// unchanged, so it can sit in a return statement. A nil err is not reported.
func (g *Guard) Capture(err error) error {
	if err == nil {
		return nil
	}
	_, file, line, _ := runtime.Caller(1)
	g.HandleError("", file, line, err)
	return err
}

// Run calls fn under protection. On success it returns fn's value unchanged.
// On panic the failure is reported and Run returns the zero value and a
// *CapturedError; the panic does not propagate.
func Run[T any](g *Guard, fn func() T) (T, error) {
	var result T
	if c := g.call(metrics.SourceRun, func() { result = fn() }); c != nil {
		var zero T
		return zero, c
	}
	return result, nil
}

// Do is Run for callbacks without a result.
func (g *Guard) Do(fn func()) error {
	if c := g.call(metrics.SourceRun, fn); c != nil {
		return c
	}
	return nil
}

// Wrap returns a callback that runs fn through Do. Use it to protect callbacks
// handed to schedulers and libraries without changing their call sites.
func (g *Guard) Wrap(fn func()) func() {
	return g.wrap(metrics.SourceWrap, fn)
}

// WrapFunc is Wrap for single-argument callbacks.
func WrapFunc[A any](g *Guard, fn func(A)) func(A) {
	if g == nil {
		return fn
	}
	return func(a A) {
		g.call(metrics.SourceWrap, func() { fn(a) })
	}
}

// Go starts fn on a new goroutine; a panic there is reported instead of
// crashing the process.
func (g *Guard) Go(fn func()) {
	if fn == nil {
		return
	}
	go g.wrap(metrics.SourceGoroutine, fn)()
}

// Recover is deferred at the top of main or of a goroutine. It reports a
// propagating panic with the file and line it was raised at, gives the report
// a bounded chance to be delivered, then re-panics so the runtime's default
// handling still happens.
//
//	defer guard.Recover()
func (g *Guard) Recover() {
	if p := recover(); p != nil {
		g.Rethrow(p)
	}
}

// Rethrow does the work of Recover for a value the caller already recovered.
// It must be called from the deferred function that recovered p.
func (g *Guard) Rethrow(p any) {
	stack := debug.Stack()
	file, line := panicSite()
	if g != nil && g.reporter != nil {
		metrics.RecordCaptured(metrics.SourceUncaught)
		g.reporter.Send(report.Failure{Message: "uncaught panic", File: file, Line: line, Thrown: p, Stack: stack})
		ctx, cancel := context.WithTimeout(context.Background(), g.flushTimeout)
		_ = g.reporter.Flush(ctx)
		cancel()
	}
	panic(p)
}

func (g *Guard) wrap(source string, fn func()) func() {
	if g == nil || fn == nil {
		return fn
	}
	return func() {
		g.call(source, fn)
	}
}

// call runs fn and converts a panic into a reported *CapturedError.
func (g *Guard) call(source string, fn func()) (captured *CapturedError) {
	if g == nil {
		fn()
		return nil
	}
	defer func() {
		if p := recover(); p != nil {
			captured = g.capture(source, report.Failure{}, p, debug.Stack())
		}
	}()
	fn()
	return nil
}

func (g *Guard) capture(source string, f report.Failure, p any, stack []byte) *CapturedError {
	metrics.RecordCaptured(source)
	f.Thrown = p
	f.Stack = stack
	ce := &CapturedError{Value: p, Stack: stack, Source: source}
	if g.reporter != nil {
		ce.Report = g.reporter.Send(f)
	}
	return ce
}
