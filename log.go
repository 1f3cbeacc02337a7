package main

import (
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// setupLog configures the global logger. Logs are discarded unless
// NAUDIO_LOG points somewhere; NAUDIO_DEBUG turns on debug level.
func setupLog() (func() error, error) {
	log.SetOutput(io.Discard)

	if os.Getenv("NAUDIO_DEBUG") != "" {
		log.SetLevel(log.DebugLevel)
	}

	if file := os.Getenv("NAUDIO_LOG"); file != "" {
		f, err := os.OpenFile(file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, err
		}
		log.SetOutput(f)
		log.SetTimeFormat(time.Kitchen)
		return f.Close, nil
	}

	return func() error { return nil }, nil
}
