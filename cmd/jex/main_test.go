package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

type hit struct {
	log, context string
}

func newDestination(t *testing.T, status int) (string, chan hit) {
	t.Helper()
	hits := make(chan hit, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits <- hit{log: r.URL.Query().Get("log"), context: r.URL.Query().Get("context")}
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv.URL + "/LogException", hits
}

func testApp(t *testing.T) (*cli.App, *bytes.Buffer) {
	t.Helper()
	for _, k := range []string{"JEX_DESTINATION", "JEX_CONTEXT", "JEX_TIMEOUT", "LOG_LEVEL", "GO_ENV"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
	t.Setenv("ENV", "test")

	// exit codes are asserted through the returned cli.ExitCoder instead
	prev := cli.OsExiter
	cli.OsExiter = func(int) {}
	t.Cleanup(func() { cli.OsExiter = prev })

	app := newApp()
	out := &bytes.Buffer{}
	app.Writer = out
	app.ErrWriter = &bytes.Buffer{}
	return app, out
}

func TestSendDeliversReport(t *testing.T) {
	dest, hits := newDestination(t, http.StatusNoContent)
	app, out := testApp(t)

	err := app.Run([]string{"jex", "--destination", dest, "--context", "user-7",
		"send", "--file", "app.js", "--line", "12", "Uncaught", "TypeError"})
	require.NoError(t, err)

	h := <-hits
	assert.Equal(t, "app.js:12 Uncaught TypeError", h.log)
	assert.Equal(t, "user-7", h.context)
	assert.Contains(t, out.String(), "delivered to "+dest)
}

func TestSendReportsDeliveryFailure(t *testing.T) {
	dest, _ := newDestination(t, http.StatusBadGateway)
	app, _ := testApp(t)

	err := app.Run([]string{"jex", "--destination", dest, "send", "boom"})

	var exitErr cli.ExitCoder
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.ExitCode())
	assert.Contains(t, err.Error(), "not delivered")
}

func TestSendRequiresDestination(t *testing.T) {
	app, _ := testApp(t)

	err := app.Run([]string{"jex", "send", "boom"})

	var exitErr cli.ExitCoder
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.ExitCode())
}

func TestExecReportsFailingCommand(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	dest, hits := newDestination(t, http.StatusOK)
	app, _ := testApp(t)

	err := app.Run([]string{"jex", "--destination", dest, "exec", "--",
		"sh", "-c", "echo starting >&2; echo disk quota exceeded >&2; exit 3"})

	var exitErr cli.ExitCoder
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 3, exitErr.ExitCode())

	h := <-hits
	assert.Contains(t, h.log, ":3 disk quota exceeded")
	assert.Contains(t, h.log, "Message: exit status 3")
}

func TestExecSuccessSendsNothing(t *testing.T) {
	if _, err := exec.LookPath("true"); err != nil {
		t.Skip("true not available")
	}
	dest, hits := newDestination(t, http.StatusOK)
	app, _ := testApp(t)

	require.NoError(t, app.Run([]string{"jex", "--destination", dest, "exec", "--", "true"}))
	assert.Empty(t, hits)
}

func TestConfigPrintsResolvedValues(t *testing.T) {
	app, out := testApp(t)

	require.NoError(t, app.Run([]string{"jex", "--context", "build-9", "config"}))

	assert.Contains(t, out.String(), "(none, reports are logged locally)")
	assert.Contains(t, out.String(), "context:     build-9")
}

func TestTailWriterKeepsLastLine(t *testing.T) {
	w := &tailWriter{}
	_, _ = w.Write([]byte("first\nsec"))
	_, _ = w.Write([]byte("ond\n\n"))
	assert.Equal(t, "second", w.LastLine())

	_, _ = w.Write([]byte("partial"))
	assert.Equal(t, "partial", w.LastLine())
}
