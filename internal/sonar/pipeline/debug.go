package pipeline

import (
	"fmt"
	"io"
	"log"
	"strings"
	"sync/atomic"
)

// LogLevel selects which pipeline streams reach a writer. Each level
// includes the ones below it.
type LogLevel int

const (
	// LogQuiet disables every stream.
	LogQuiet LogLevel = iota
	// LogOps carries skipped chunks, failed channels and skipped mosaics.
	LogOps
	// LogDiag adds per-stage summaries.
	LogDiag
	// LogTrace adds per-chunk timings.
	LogTrace
)

// ParseLogLevel accepts "quiet", "ops", "diag" or "trace".
func ParseLogLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "quiet", "off":
		return LogQuiet, nil
	case "ops", "":
		return LogOps, nil
	case "diag":
		return LogDiag, nil
	case "trace":
		return LogTrace, nil
	}
	return LogQuiet, fmt.Errorf("unknown log level %q", s)
}

func (l LogLevel) String() string {
	switch l {
	case LogQuiet:
		return "quiet"
	case LogOps:
		return "ops"
	case LogDiag:
		return "diag"
	case LogTrace:
		return "trace"
	}
	return fmt.Sprintf("LogLevel(%d)", int(l))
}

type streams struct {
	ops, diag, trace *log.Logger
}

// Chunk workers log concurrently with callers reconfiguring the streams.
var current atomic.Pointer[streams]

func init() {
	current.Store(&streams{})
}

// SetLogWriters configures the ops, diag and trace streams individually.
// A nil writer disables its stream.
func SetLogWriters(ops, diag, trace io.Writer) {
	current.Store(&streams{
		ops:   newLogger("[pipeline] ", ops),
		diag:  newLogger("[pipeline] ", diag),
		trace: newLogger("[pipeline] trace: ", trace),
	})
}

// SetLogLevel routes every stream up to level to w and disables the rest.
func SetLogLevel(w io.Writer, level LogLevel) {
	pick := func(l LogLevel) io.Writer {
		if level >= l {
			return w
		}
		return nil
	}
	SetLogWriters(pick(LogOps), pick(LogDiag), pick(LogTrace))
}

func newLogger(prefix string, w io.Writer) *log.Logger {
	if w == nil {
		return nil
	}
	return log.New(w, prefix, log.LstdFlags|log.Lmicroseconds)
}

func opsf(format string, args ...interface{}) {
	if l := current.Load().ops; l != nil {
		l.Printf(format, args...)
	}
}

func diagf(format string, args ...interface{}) {
	if l := current.Load().diag; l != nil {
		l.Printf(format, args...)
	}
}

func tracef(format string, args ...interface{}) {
	if l := current.Load().trace; l != nil {
		l.Printf(format, args...)
	}
}
