package local

import (
	"log/slog"
	"os"
	"testing"
	"time"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeClock returns a now func that advances one minute per call, so
// timestamps written in sequence are strictly ordered.
func fakeClock(t *testing.T) func() time.Time {
	t.Helper()
	current := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		current = current.Add(time.Minute)
		return current
	}
}
