package main

// This file turns HAL status codes into diagnostics.

import (
	"fmt"
	"io"
	"log"
	"strings"
)

// reportIfError writes one line describing a failed operation.  It does
// nothing when code is OK.
func reportIfError(w io.Writer, code Code, op string) {
	if code == OK {
		return
	}
	fmt.Fprint(w, failureLine(code, op))
}

func failureLine(code Code, op string) string {
	return fmt.Sprintf("Failed to %s: %s (return code %d)\n", op, StrError(code), int(code))
}

// ErrorSink receives failure lines produced by a Reporter.  Implementations
// may write to the console, the event log or anything else.  A returned error
// is logged but does not stop delivery to the other sinks.
type ErrorSink interface {
	Name() string
	Send(line string) error
}

// ConsoleSink writes failures to a writer, usually standard output.
type ConsoleSink struct {
	W io.Writer
}

// Name returns the type name of the sink.
func (ConsoleSink) Name() string { return "console" }

// Send writes the line unchanged.
func (s ConsoleSink) Send(line string) error {
	_, err := io.WriteString(s.W, line)
	return err
}

// EventLogSink records failures in the event log.
type EventLogSink struct {
	Logger *EventLogger
}

// Name returns the type name of the sink.
func (EventLogSink) Name() string { return "event_log" }

// Send appends the line to the event log.
func (s EventLogSink) Send(line string) error {
	return s.Logger.Write(strings.TrimRight(line, "\r\n"))
}

// Reporter fans failure lines out to its sinks.
type Reporter struct {
	sinks []ErrorSink
}

// NewReporter builds a reporter.  Nil sinks are skipped.
func NewReporter(sinks ...ErrorSink) *Reporter {
	r := &Reporter{}
	for _, s := range sinks {
		if s != nil {
			r.sinks = append(r.sinks, s)
		}
	}
	return r
}

// Check reports code under the operation label op if it is a failure and
// returns code unchanged.
func (r *Reporter) Check(code Code, op string) Code {
	if code == OK {
		return code
	}
	line := failureLine(code, op)
	for _, s := range r.sinks {
		if err := s.Send(line); err != nil {
			log.Printf("error sink %s: %v", s.Name(), err)
		}
	}
	return code
}
