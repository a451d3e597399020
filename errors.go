package main

import (
	"errors"
	"strconv"
)

// Code is a HAL status code.  OK is the only success value; every failure is
// negative.  Code implements error so it can be wrapped with %w and recovered
// with Of.
type Code int

const (
	OK               Code = 0
	Timeout          Code = -1
	InvalidParameter Code = -2
	NotSupported     Code = -3
	UnknownError     Code = -4
	DuplicatePin     Code = -5
	InitPending      Code = -6

	// Raspberry Pi host failures.
	HostInitFailed     Code = -100
	SPIOpenFailed      Code = -101
	PinNotFound        Code = -102
	PinWriteFailed     Code = -103
	ChipSelectStuck    Code = -104
	BackendUnavailable Code = -105
)

var codeText = map[Code]string{
	OK:                 "ok",
	Timeout:            "timeout",
	InvalidParameter:   "invalid parameter",
	NotSupported:       "not supported",
	UnknownError:       "unknown error",
	DuplicatePin:       "chip select pin used by more than one port",
	InitPending:        "initialization not finished",
	HostInitFailed:     "failed to initialize GPIO host",
	SPIOpenFailed:      "failed to open SPI bus",
	PinNotFound:        "GPIO pin not found",
	PinWriteFailed:     "failed to write GPIO pin",
	ChipSelectStuck:    "chip select line not deselected",
	BackendUnavailable: "chip select backend unavailable",
}

// StrError translates a status code into text.
func StrError(c Code) string {
	if s, ok := codeText[c]; ok {
		return s
	}
	return "unknown error code"
}

func (c Code) Error() string { return StrError(c) }

func (c Code) String() string {
	return StrError(c) + " (" + strconv.Itoa(int(c)) + ")"
}

// Of extracts a Code from an error chain.  A nil error is OK and an error
// without a code is UnknownError.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	var c Code
	if errors.As(err, &c) {
		return c
	}
	return UnknownError
}
