// Package logging provides the engine's debug-gated logger: a thin
// wrapper over the standard logger that only prints debug-level lines
// when TERMENGINE_DEBUG is set, the same opt-in the teacher repo uses
// for its own VIBETUNNEL_DEBUG-gated log.Printf calls.
package logging

import (
	"log"
	"os"
)

var debugEnabled = os.Getenv("TERMENGINE_DEBUG") != ""

// Debugf logs a debug line, but only when TERMENGINE_DEBUG is set.
func Debugf(format string, args ...any) {
	if !debugEnabled && os.Getenv("TERMENGINE_DEBUG") == "" {
		return
	}
	log.Printf("[DEBUG] "+format, args...)
}

func Infof(format string, args ...any) {
	log.Printf("[INFO] "+format, args...)
}

func Warnf(format string, args ...any) {
	log.Printf("[WARN] "+format, args...)
}

func Errorf(format string, args ...any) {
	log.Printf("[ERROR] "+format, args...)
}
