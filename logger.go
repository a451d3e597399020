package main

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// EventLogger writes timestamped events to a file.  It is safe for concurrent use.
// A logger with an empty path drops events, which is how event logging is
// switched off.
type EventLogger struct {
	filePath string
	mu       sync.Mutex
	verbose  bool
	debugOut io.Writer
	now      func() time.Time
}

// NewEventLogger creates a logger writing to filePath.
func NewEventLogger(filePath string) *EventLogger {
	return &EventLogger{filePath: filePath, debugOut: os.Stderr, now: time.Now}
}

// Path returns the file the logger appends to.
func (el *EventLogger) Path() string { return el.filePath }

// SetVerbose enables Debug output.
func (el *EventLogger) SetVerbose(v bool) {
	el.mu.Lock()
	defer el.mu.Unlock()
	el.verbose = v
}

// SetDebugOutput sets where Debug messages go.  Defaults to os.Stderr.
func (el *EventLogger) SetDebugOutput(w io.Writer) {
	el.mu.Lock()
	defer el.mu.Unlock()
	el.debugOut = w
}

// Log writes a single event with timestamp.  Errors are ignored but printed
// to standard error.
func (el *EventLogger) Log(format string, args ...any) {
	if err := el.Write(fmt.Sprintf(format, args...)); err != nil {
		fmt.Fprintf(os.Stderr, "log error: %v\n", err)
	}
}

// Write appends msg as one timestamped line.
func (el *EventLogger) Write(msg string) error {
	el.mu.Lock()
	defer el.mu.Unlock()
	if el.filePath == "" {
		return nil
	}
	line := fmt.Sprintf("%s - %s\n", el.now().Format(time.RFC3339), msg)
	// Open file in append mode, create if not exists
	f, err := os.OpenFile(el.filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(line)
	return err
}

// Debug prints a message to the debug output if verbose mode is enabled.
func (el *EventLogger) Debug(format string, args ...any) {
	el.mu.Lock()
	defer el.mu.Unlock()
	if el.verbose {
		fmt.Fprintf(el.debugOut, "[DEBUG] "+format+"\n", args...)
	}
}
