package main

// The simulated backend keeps chip-select levels in memory so the driver can
// run and be tested on a desktop machine without a HAT.  Failures can be
// injected to exercise the error paths of Init.

import (
	"fmt"
	"sync"
)

// SimChipSelect is an in-memory ChipSelect.
type SimChipSelect struct {
	mu     sync.Mutex
	levels map[int]bool
	opened bool
	closes int

	// OpenErr is returned by Open when set.
	OpenErr error
	// FailWrite makes Set fail for these pins.
	FailWrite map[int]bool
	// Stuck pins keep reading low whatever is written.
	Stuck map[int]bool
	// CloseErr is returned by Close when set; the lines are released anyway.
	CloseErr error
}

// NewSimChipSelect returns a simulated backend with all lines low.
func NewSimChipSelect() *SimChipSelect {
	return &SimChipSelect{levels: make(map[int]bool)}
}

func (s *SimChipSelect) Name() string { return "sim" }

func (s *SimChipSelect) Open(pins []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.OpenErr != nil {
		return s.OpenErr
	}
	for _, p := range pins {
		if _, ok := s.levels[p]; !ok {
			s.levels[p] = false
		}
	}
	s.opened = true
	return nil
}

func (s *SimChipSelect) Set(pin int, high bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(pin); err != nil {
		return err
	}
	if s.FailWrite[pin] {
		return fmt.Errorf("GPIO%d: %w", pin, PinWriteFailed)
	}
	s.levels[pin] = high && !s.Stuck[pin]
	return nil
}

func (s *SimChipSelect) Get(pin int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(pin); err != nil {
		return false, err
	}
	return s.levels[pin], nil
}

// Drive forces a line to a level from outside, as a misbehaving device
// pulling a chip-select low would.
func (s *SimChipSelect) Drive(pin int, high bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.levels[pin] = high
}

func (s *SimChipSelect) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opened = false
	s.closes++
	return s.CloseErr
}

// Opened reports whether the lines are currently claimed.
func (s *SimChipSelect) Opened() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened
}

// Closes returns how many times Close was called.
func (s *SimChipSelect) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

func (s *SimChipSelect) check(pin int) error {
	if !s.opened {
		return fmt.Errorf("sim: lines not open: %w", NotSupported)
	}
	if _, ok := s.levels[pin]; !ok {
		return fmt.Errorf("sim: GPIO%d: %w", pin, PinNotFound)
	}
	return nil
}
