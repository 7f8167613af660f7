package capture

import (
	"net/http"
	"runtime/debug"

	"github.com/gorilla/mux"
	"github.com/robfig/cron/v3"

	"github.com/iyunix/go-jex/internal/metrics"
	"github.com/iyunix/go-jex/internal/report"
)

// Middleware wraps an http.Handler so a panicking route callback is reported
// and answered with 500 instead of tearing down the connection. It has the
// shape of mux.MiddlewareFunc. http.ErrAbortHandler is re-raised untouched.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	if g == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				if p == http.ErrAbortHandler {
					panic(p)
				}
				stack := debug.Stack()
				file, line := panicSite()
				g.capture(metrics.SourceHTTP, report.Failure{
					Message: r.Method + " " + r.URL.Path,
					File:    file,
					Line:    line,
				}, p, stack)

				w.Header().Set("Connection", "close")
				http.Error(w, "Something went wrong on our end.", http.StatusInternalServerError)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// WrapHandler is Middleware under the name used for single handlers.
func (g *Guard) WrapHandler(h http.Handler) http.Handler {
	return g.Middleware(h)
}

// WrapHandlerFunc protects a single handler function.
func (g *Guard) WrapHandlerFunc(fn http.HandlerFunc) http.HandlerFunc {
	return g.Middleware(fn).ServeHTTP
}

// InstallRouter attaches the guard to every route of r, including routes
// registered after the call. A nil router is skipped.
func (g *Guard) InstallRouter(r *mux.Router) bool {
	if g == nil || r == nil {
		return false
	}
	r.Use(g.Middleware)
	return true
}

// CronWrapper is a cron.JobWrapper routing every job run through the guard.
// Pass it with cron.WithChain, or use CronOption.
func (g *Guard) CronWrapper() cron.JobWrapper {
	return func(j cron.Job) cron.Job {
		if g == nil {
			return j
		}
		return cron.FuncJob(func() {
			g.call(metrics.SourceCron, j.Run)
		})
	}
}

// CronOption installs CronWrapper on a new cron.Cron.
func (g *Guard) CronOption() cron.Option {
	return cron.WithChain(g.CronWrapper())
}

// Cron is a cron.Cron whose job registration entry points wrap the job before
// handing it to the embedded scheduler. Entry IDs and errors are passed
// through unchanged.
type Cron struct {
	*cron.Cron
	guard *Guard
}

func (c *Cron) AddFunc(spec string, cmd func()) (cron.EntryID, error) {
	return c.Cron.AddFunc(spec, c.guard.wrap(metrics.SourceCron, cmd))
}

func (c *Cron) AddJob(spec string, job cron.Job) (cron.EntryID, error) {
	return c.Cron.AddJob(spec, c.guard.CronWrapper()(job))
}

func (c *Cron) Schedule(schedule cron.Schedule, job cron.Job) cron.EntryID {
	return c.Cron.Schedule(schedule, c.guard.CronWrapper()(job))
}

// Hooks lists the optional third-party callback registries present in the
// host process. Absent ones are nil.
type Hooks struct {
	Router *mux.Router
	Cron   *cron.Cron
}

// Installed reports what Install bound. Cron is nil when no cron scheduler
// was supplied.
type Installed struct {
	Router bool
	Cron   *Cron
}

// Install binds the guard to every hook present, once, at process start.
// Missing collaborators are skipped, not treated as errors.
func Install(g *Guard, h Hooks) Installed {
	var in Installed
	if g == nil {
		return in
	}
	in.Router = g.InstallRouter(h.Router)
	if h.Cron != nil {
		in.Cron = &Cron{Cron: h.Cron, guard: g}
	}
	return in
}
