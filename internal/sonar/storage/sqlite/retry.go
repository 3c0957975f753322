package sqlite

import (
	"strings"
	"time"
)

const (
	busyRetries   = 5
	busyBaseDelay = 10 * time.Millisecond
)

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// retryOnBusy runs fn until it succeeds, fails with a non-busy error, or
// has been attempted busyRetries times. Delays double from busyBaseDelay.
func retryOnBusy(fn func() error) error {
	delay := busyBaseDelay
	var err error
	for attempt := 1; attempt <= busyRetries; attempt++ {
		if err = fn(); !isSQLiteBusy(err) {
			return err
		}
		if attempt < busyRetries {
			time.Sleep(delay)
			delay *= 2
		}
	}
	return err
}
