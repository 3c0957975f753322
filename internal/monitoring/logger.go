// Package monitoring holds the package-level diagnostic loggers used by the
// sonar layer packages. Both default to the standard logger and may be
// swapped out (or muted) by binaries and tests.
package monitoring

import "log"

// Logf is the diagnostic logger for routine progress messages.
var Logf func(format string, v ...interface{}) = log.Printf

// Warnf is the logger for recoverable anomalies: skipped chunks, pings
// that fell back to instrument depth, mosaics with no inputs.
var Warnf func(format string, v ...interface{}) = func(format string, v ...interface{}) {
	log.Printf("WARN "+format, v...)
}

func noop(string, ...interface{}) {}

// SetLogger replaces the diagnostic logger. Passing nil mutes it.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = noop
		return
	}
	Logf = f
}

// SetWarnLogger replaces the warning logger. Passing nil mutes it.
func SetWarnLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Warnf = noop
		return
	}
	Warnf = f
}
