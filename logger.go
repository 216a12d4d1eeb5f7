package poitrace

import (
	"io"
	"log"
	"os"
)

// Logger is the package's ambient debug logger. It writes nowhere by
// default; the core "never logs, it reports" (spec.md §7) — callers decide
// whether a defect is fatal, and the logger exists purely as an opt-in aid
// for implementers embedding TraceBuilder who want to see step-by-step
// activity while developing against it.
var Logger = log.New(io.Discard, "[poitrace] ", log.LstdFlags)

// SetDebug toggles Logger's output between stderr and discard.
func SetDebug(enabled bool) {
	if enabled {
		Logger.SetOutput(os.Stderr)
		return
	}
	Logger.SetOutput(io.Discard)
}
