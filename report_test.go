package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportIfError_SilentOnOK(t *testing.T) {
	for _, label := range []string{"", "init hal", "a label with spaces", "%d %s"} {
		var buf bytes.Buffer
		reportIfError(&buf, OK, label)
		assert.Empty(t, buf.String(), "label %q", label)
	}
}

func TestReportIfError_IncludesLabelAndCode(t *testing.T) {
	for _, code := range []Code{Timeout, DuplicatePin, PinNotFound, Code(-4242)} {
		var buf bytes.Buffer
		reportIfError(&buf, code, "init hal")

		out := buf.String()
		assert.Contains(t, out, "init hal")
		assert.Contains(t, out, "(return code "+strconv.Itoa(int(code))+")")
		assert.Contains(t, out, StrError(code))
	}
}

func TestReportIfError_Format(t *testing.T) {
	var buf bytes.Buffer
	reportIfError(&buf, ChipSelectStuck, "init hal")
	assert.Equal(t, "Failed to init hal: chip select line not deselected (return code -104)\n", buf.String())
}

type failingSink struct{ calls int }

func (*failingSink) Name() string { return "failing" }

func (f *failingSink) Send(string) error {
	f.calls++
	return errors.New("sink down")
}

func TestReporter_FansOut(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "events.log")
	var console bytes.Buffer
	bad := &failingSink{}
	r := NewReporter(bad, ConsoleSink{W: &console}, nil, EventLogSink{Logger: NewEventLogger(logPath)})

	assert.Equal(t, PinWriteFailed, r.Check(PinWriteFailed, "deselect"))
	assert.Equal(t, 1, bad.calls)
	assert.Contains(t, console.String(), "Failed to deselect")

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Failed to deselect: failed to write GPIO pin (return code -103)\n")
}

func TestReporter_OKIsNoop(t *testing.T) {
	var console bytes.Buffer
	r := NewReporter(ConsoleSink{W: &console})
	assert.Equal(t, OK, r.Check(OK, ""))
	assert.Empty(t, console.String())
}
