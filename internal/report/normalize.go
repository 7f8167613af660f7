package report

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Failure is the raw signal handed over by the interception layer. Every field
// is optional.
type Failure struct {
	Message string
	File    string
	Line    int
	// Thrown is the recovered panic value or the error being reported.
	Thrown any
	// Stack is the goroutine stack captured at recovery time.
	Stack []byte
}

// Normalize builds the flat log line for f. It never panics.
//
// Layout, newline-joined:
//
//	<file>:<line> <message>     when any of the three is set
//	<raw text>                  when Thrown is a string or another non-error value
//	Message: <err.Error()>      when Thrown is an error with a message
//	Stack: <stack>              when Thrown is an error and a stack was captured
func Normalize(f Failure) string {
	var parts []string

	if f.File != "" || f.Line != 0 || f.Message != "" {
		parts = append(parts, f.File+":"+strconv.Itoa(f.Line)+" "+f.Message)
	}

	switch v := f.Thrown.(type) {
	case nil:
	case string:
		parts = append(parts, v)
	case error:
		if msg := safeErrorText(v); msg != "" {
			parts = append(parts, "Message: "+msg)
		}
		if len(f.Stack) > 0 {
			parts = append(parts, "Stack: "+string(f.Stack))
		}
	default:
		parts = append(parts, safeSprint(v))
	}

	return strings.Join(parts, "\n")
}

func safeErrorText(err error) (msg string) {
	defer func() {
		if recover() != nil {
			msg = ""
		}
	}()
	return err.Error()
}

func safeSprint(v any) (s string) {
	defer func() {
		if recover() != nil {
			s = ""
		}
	}()
	return fmt.Sprint(v)
}

// resolveContext evaluates src once. A nil source or a panicking function
// yields an empty string.
func resolveContext(src ContextSource) (ctx string) {
	if src == nil {
		return ""
	}
	defer func() {
		if recover() != nil {
			ctx = ""
		}
	}()
	return src.Resolve()
}

// encodeComponent percent-encodes s the way browsers encode a URI component:
// space becomes %20, not '+'.
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// BuildURL appends the log and context parameters to destination. A
// destination that already carries a query string keeps it.
func BuildURL(destination, log, context string) string {
	sep := "?"
	if strings.Contains(destination, "?") {
		sep = "&"
		if strings.HasSuffix(destination, "?") || strings.HasSuffix(destination, "&") {
			sep = ""
		}
	}
	return destination + sep + "log=" + encodeComponent(log) + "&context=" + encodeComponent(context)
}
