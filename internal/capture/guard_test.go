package capture

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/iyunix/go-jex/internal/logger"
	"github.com/iyunix/go-jex/internal/report"
)

type recordingTransport struct {
	mu      sync.Mutex
	targets []string
}

func (t *recordingTransport) Deliver(_ context.Context, target string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.targets = append(t.targets, target)
	return nil
}

func (t *recordingTransport) Targets() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.targets...)
}

type fixture struct {
	guard     *Guard
	reporter  *report.Reporter
	transport *recordingTransport
	logs      *observer.ObservedLogs
}

func newFixture(t *testing.T, opts report.Options) *fixture {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	tr := &recordingTransport{}
	r := report.New(opts, logger.NewWithCore("jex-test", core), tr)
	return &fixture{guard: New(r), reporter: r, transport: tr, logs: logs}
}

func (f *fixture) flush(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.reporter.Flush(ctx))
}

func (f *fixture) mirrored() []observer.LoggedEntry {
	return f.logs.FilterMessage("jex report").All()
}

func TestRunReturnsValueOnSuccess(t *testing.T) {
	f := newFixture(t, report.Options{})

	got, err := Run(f.guard, func() int { return 42 })

	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Empty(t, f.mirrored(), "success must not mirror anything")
	assert.Empty(t, f.transport.Targets())
}

func TestRunCapturesPanic(t *testing.T) {
	f := newFixture(t, report.Options{Destination: "https://x/log"})

	var got int
	assert.NotPanics(t, func() {
		var err error
		got, err = Run(f.guard, func() int { panic(errors.New("boom")) })

		var ce *CapturedError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, "run", ce.Source)
		assert.NotEmpty(t, ce.Stack)
		assert.Contains(t, ce.Report.Log, "Message: boom")
		assert.Contains(t, ce.Report.Log, "Stack: ")
		assert.EqualError(t, errors.Unwrap(err), "boom")
	})
	assert.Zero(t, got)

	f.flush(t)
	require.Len(t, f.mirrored(), 1)
	assert.Contains(t, f.mirrored()[0].ContextMap()["log"], "Message: boom")

	targets := f.transport.Targets()
	require.Len(t, targets, 1)
	assert.True(t, strings.HasPrefix(targets[0], "https://x/log?log="))
	assert.Contains(t, targets[0], "Message%3A%20boom")
	assert.True(t, strings.HasSuffix(targets[0], "&context="))
}

func TestDoWithStringPanic(t *testing.T) {
	f := newFixture(t, report.Options{})

	err := f.guard.Do(func() { panic("plain text") })

	var ce *CapturedError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "plain text", ce.Report.Log)
	assert.Nil(t, ce.Unwrap())
	assert.NoError(t, f.guard.Do(func() {}))
}

func TestRuntimeErrorsAreCaptured(t *testing.T) {
	f := newFixture(t, report.Options{})

	err := f.guard.Do(func() {
		var m map[string]int
		m["x"] = 1
	})

	var ce *CapturedError
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, ce.Report.Log, "Message: assignment to entry in nil map")
	assert.Contains(t, ce.Report.Log, "Stack: ")
}

func TestWrapReportsFreshContextEachCall(t *testing.T) {
	calls := 0
	f := newFixture(t, report.Options{Context: report.ContextFunc(func() string {
		calls++
		return "user-7"
	})})

	cb := f.guard.Wrap(func() { panic(errors.New("again")) })
	assert.NotPanics(t, cb)
	assert.NotPanics(t, cb)

	mirrored := f.mirrored()
	require.Len(t, mirrored, 2)
	for _, e := range mirrored {
		assert.Equal(t, "user-7", e.ContextMap()["context"])
	}
	assert.Equal(t, 2, calls)
}

func TestWrapFunc(t *testing.T) {
	f := newFixture(t, report.Options{})
	var seen []string

	cb := WrapFunc(f.guard, func(s string) {
		seen = append(seen, s)
		if s == "bad" {
			panic("bad input")
		}
	})
	cb("ok")
	cb("bad")
	cb("ok")

	assert.Equal(t, []string{"ok", "bad", "ok"}, seen)
	assert.Len(t, f.mirrored(), 1)
}

func TestGoReportsGoroutinePanic(t *testing.T) {
	f := newFixture(t, report.Options{})
	done := make(chan struct{})

	f.guard.Go(func() {
		defer close(done)
		panic("in goroutine")
	})

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("goroutine never ran")
	}
	require.Eventually(t, func() bool { return len(f.mirrored()) == 1 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, "in goroutine", f.mirrored()[0].ContextMap()["log"])
}

func TestHandleErrorReturnsFalse(t *testing.T) {
	f := newFixture(t, report.Options{})

	handled := f.guard.HandleError("Uncaught failure", "app.go", 10, errors.New("bad"))

	assert.False(t, handled)
	require.Len(t, f.mirrored(), 1)
	assert.Equal(t, "app.go:10 Uncaught failure\nMessage: bad", f.mirrored()[0].ContextMap()["log"])

	var nilGuard *Guard
	assert.False(t, nilGuard.HandleError("x", "", 0, nil))
}

func TestCaptureReportsCallerLocation(t *testing.T) {
	f := newFixture(t, report.Options{})
	sentinel := errors.New("disk full")

	err := f.guard.Capture(sentinel)

	assert.Same(t, sentinel, err)
	require.Len(t, f.mirrored(), 1)
	log := f.mirrored()[0].ContextMap()["log"].(string)
	assert.Contains(t, log, "guard_test.go:")
	assert.Contains(t, log, "Message: disk full")
	assert.NoError(t, f.guard.Capture(nil))
	assert.Len(t, f.mirrored(), 1)
}

func TestRecoverReportsAndRepanics(t *testing.T) {
	f := newFixture(t, report.Options{Destination: "https://x/log"})

	assert.PanicsWithValue(t, "fatal", func() {
		defer f.guard.Recover()
		panic("fatal")
	})

	require.Len(t, f.mirrored(), 1)
	log := f.mirrored()[0].ContextMap()["log"].(string)
	assert.Contains(t, log, "guard_test.go:")
	assert.Contains(t, log, "uncaught panic\nfatal")
	assert.Len(t, f.transport.Targets(), 1, "Recover flushes before re-panicking")
}

func TestRecoverWithoutPanicIsNoop(t *testing.T) {
	f := newFixture(t, report.Options{})
	func() {
		defer f.guard.Recover()
	}()
	assert.Empty(t, f.mirrored())
}

func TestNilGuardPassesThrough(t *testing.T) {
	var g *Guard

	got, err := Run(g, func() string { return "ok" })
	require.NoError(t, err)
	assert.Equal(t, "ok", got)

	assert.Panics(t, func() { _ = g.Do(func() { panic("unguarded") }) })
	assert.Nil(t, g.Reporter())
}

func TestNilGuardAndNilCallbackAreSafe(t *testing.T) {
	var nilGuard *Guard
	assert.NotPanics(t, func() { nilGuard.SetFlushTimeout(time.Second) })

	f := newFixture(t, report.Options{})
	assert.NotPanics(t, func() {
		f.guard.Go(nil)
		nilGuard.Go(nil)
	})
	assert.Empty(t, f.mirrored())
}
