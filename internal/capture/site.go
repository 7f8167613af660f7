package capture

import (
	"runtime"
	"strings"
)

// panicSite returns the file and line of the frame that raised the panic
// currently being recovered. It must be called from a deferred function.
func panicSite() (string, int) {
	pcs := make([]uintptr, 64)
	n := runtime.Callers(2, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	seenPanic := false
	for {
		frame, more := frames.Next()
		if seenPanic && !strings.HasPrefix(frame.Function, "runtime.") {
			return frame.File, frame.Line
		}
		if frame.Function == "runtime.gopanic" {
			seenPanic = true
		}
		if !more {
			return "", 0
		}
	}
}
