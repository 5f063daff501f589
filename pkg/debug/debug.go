// Package debug is the slicer's opt-in trace log.
//
// It is off unless SLICER_DEBUG is set or --debug is passed:
//
//	SLICER_DEBUG=1 slicer --robot-nodes regions.csv
//
// Messages go to stderr with a microsecond timestamp. While disabled every
// function returns immediately.
package debug

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

const prefix = "[SLICER_DEBUG] "

var (
	mu      sync.Mutex
	enabled bool
	out     io.Writer = os.Stderr
	logger  *log.Logger
)

func init() {
	if os.Getenv("SLICER_DEBUG") != "" {
		SetEnabled(true)
	}
}

// Enabled reports whether trace output is on.
func Enabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled
}

// SetEnabled turns trace output on or off.
func SetEnabled(e bool) {
	mu.Lock()
	defer mu.Unlock()
	enabled = e
	if e && logger == nil {
		logger = log.New(out, prefix, log.Ltime|log.Lmicroseconds)
	}
}

// SetOutput redirects trace output.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
	if logger != nil {
		logger.SetOutput(w)
	}
}

func active() *log.Logger {
	mu.Lock()
	defer mu.Unlock()
	if !enabled {
		return nil
	}
	return logger
}

// Log writes a printf-style message.
func Log(format string, args ...any) {
	if l := active(); l != nil {
		l.Printf(format, args...)
	}
}

// Event writes msg followed by key=value pairs, e.g.
//
//	debug.Event("convert", "rows", 6, "nodes", 12)
//
// logs "convert rows=6 nodes=12". A trailing key without a value is
// printed as key=?.
func Event(msg string, kv ...any) {
	l := active()
	if l == nil {
		return
	}
	var sb strings.Builder
	sb.WriteString(msg)
	for i := 0; i < len(kv); i += 2 {
		var v any = "?"
		if i+1 < len(kv) {
			v = kv[i+1]
		}
		fmt.Fprintf(&sb, " %v=%v", kv[i], v)
	}
	l.Print(sb.String())
}

// LogEnterExit logs entry now and exit with the elapsed time when the
// returned func runs:
//
//	defer debug.LogEnterExit("slicer.Update")()
func LogEnterExit(name string) func() {
	l := active()
	if l == nil {
		return func() {}
	}
	l.Printf("-> %s", name)
	start := time.Now()
	return func() {
		l.Printf("<- %s (%v)", name, time.Since(start))
	}
}
