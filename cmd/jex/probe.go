package main

import (
	"bytes"
	"context"
	"strings"
	"sync"

	"github.com/iyunix/go-jex/internal/report"
)

// probeTransport remembers the last delivery error so a short-lived command
// can turn it into an exit status. The reporter itself never surfaces it.
type probeTransport struct {
	next report.Transport

	mu      sync.Mutex
	lastErr error
	count   int
}

func (p *probeTransport) Deliver(ctx context.Context, target string) error {
	err := p.next.Deliver(ctx, target)
	p.mu.Lock()
	p.count++
	p.lastErr = err
	p.mu.Unlock()
	return err
}

func (p *probeTransport) Result() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count, p.lastErr
}

// tailWriter keeps the last non-empty line written to it.
type tailWriter struct {
	mu      sync.Mutex
	partial []byte
	last    string
}

func (w *tailWriter) Write(b []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.partial = append(w.partial, b...)
	for {
		i := bytes.IndexByte(w.partial, '\n')
		if i < 0 {
			break
		}
		if line := strings.TrimSpace(string(w.partial[:i])); line != "" {
			w.last = line
		}
		w.partial = w.partial[i+1:]
	}
	return len(b), nil
}

func (w *tailWriter) LastLine() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if line := strings.TrimSpace(string(w.partial)); line != "" {
		return line
	}
	return w.last
}
