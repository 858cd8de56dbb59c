// Copyright 2025 Joseph Cumines
//
// AppleScript templates for the target application

package automation

import (
	"fmt"
	"strings"
)

// Markers returned on stdout by scripts that trap their own errors. osascript
// exits zero in these cases, so the library inspects the output instead.
const (
	buttonNotFoundPrefix = "not found: "
	inputNotFound        = "text field not found"
	inputErrorPrefix     = "error: "
)

// containerScope is one place a button may live, relative to the process.
type containerScope struct {
	ref string
	tag string
}

// buttonScopes is searched in order. The list is fixed; clicks never walk
// the full element tree.
var buttonScopes = []containerScope{
	{ref: "window 1"},
	{ref: "group 1 of window 1", tag: "group"},
}

// escapeString makes s safe inside an AppleScript double-quoted literal.
// Backslashes are escaped before quotes so the quote escapes survive.
// Other characters, including newlines, pass through unchanged.
func escapeString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

func activateScript(app string) string {
	return fmt.Sprintf(`tell application "%s" to activate`, escapeString(app))
}

// scriptWriter emits AppleScript one template line at a time. Indentation is
// applied to each template line as written; interpolated text is never
// re-split, so newlines inside string literals survive verbatim.
type scriptWriter struct {
	b strings.Builder
}

func (w *scriptWriter) line(depth int, format string, args ...any) {
	w.b.WriteString(strings.Repeat("    ", depth))
	fmt.Fprintf(&w.b, format, args...)
	w.b.WriteByte('\n')
}

func (w *scriptWriter) String() string {
	return w.b.String()
}

// inProcess wraps body in a System Events block addressing the app's process.
// body writes at the depth it is given.
func inProcess(app string, body func(w *scriptWriter, depth int)) string {
	var w scriptWriter
	w.line(0, `tell application "System Events"`)
	w.line(1, `tell process "%s"`, escapeString(app))
	body(&w, 2)
	w.line(1, "end tell")
	w.line(0, "end tell")
	return w.String()
}

func keystrokeScript(app, text string) string {
	return inProcess(app, func(w *scriptWriter, depth int) {
		w.line(depth, `keystroke "%s"`, escapeString(text))
	})
}

func keyCodeScript(app string, code int) string {
	return inProcess(app, func(w *scriptWriter, depth int) {
		w.line(depth, "key code %d", code)
	})
}

func clickButtonScript(app, label string) string {
	return inProcess(app, func(w *scriptWriter, depth int) {
		clickAttempts(w, depth, escapeString(label), buttonScopes, 1)
	})
}

// clickAttempts writes one try block per scope, each nested in the previous
// block's error handler. The innermost handler reports the last error.
func clickAttempts(w *scriptWriter, depth int, label string, scopes []containerScope, n int) {
	scope := scopes[0]
	success := "clicked"
	if scope.tag != "" {
		success = fmt.Sprintf("clicked (%s)", scope.tag)
	}

	w.line(depth, "try")
	w.line(depth+1, `click button "%s" of %s`, label, scope.ref)
	w.line(depth+1, `return "%s"`, success)
	w.line(depth, "on error e%d", n)
	if len(scopes) == 1 {
		w.line(depth+1, `return "%s" & e%d`, buttonNotFoundPrefix, n)
	} else {
		clickAttempts(w, depth+1, label, scopes[1:], n+1)
	}
	w.line(depth, "end try")
}

func clickMessageInputScript(app string) string {
	return inProcess(app, func(w *scriptWriter, d int) {
		w.line(d, "try")
		w.line(d+1, "set tf to first text field of window 1")
		w.line(d+1, "click tf")
		w.line(d+1, `return "clicked text field"`)
		w.line(d, "on error")
		w.line(d+1, "try")
		w.line(d+2, "set ui to entire contents of window 1")
		w.line(d+2, "repeat with elem in ui")
		w.line(d+3, "if class of elem is text field then")
		w.line(d+4, "click elem")
		w.line(d+4, `return "clicked text field (search)"`)
		w.line(d+3, "end if")
		w.line(d+2, "end repeat")
		w.line(d+2, `return "%s"`, inputNotFound)
		w.line(d+1, "on error e")
		w.line(d+2, `return "%s" & e`, inputErrorPrefix)
		w.line(d+1, "end try")
		w.line(d, "end try")
	})
}

func openLocationScript(url string) string {
	return fmt.Sprintf(`open location "%s"`, escapeString(url))
}
