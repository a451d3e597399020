//go:build linux

package main

// This file drives chip-select lines through the Linux GPIO character device
// (/dev/gpiochipN).  It does not need /dev/mem and works on kernels where
// the sysfs GPIO interface is gone.

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// CdevChipSelect requests one output line per chip-select pin.  On the
// Raspberry Pi the line offsets of the main chip equal the BCM numbers.
type CdevChipSelect struct {
	chip  string
	lines map[int]*gpiocdev.Line
}

func NewCdevChipSelect(chip string) (*CdevChipSelect, error) {
	if chip == "" {
		chip = "gpiochip0"
	}
	return &CdevChipSelect{chip: chip}, nil
}

func (c *CdevChipSelect) Name() string { return "gpiocdev" }

// Open requests every pin as an output that starts high, so a port is never
// selected while the remaining lines are still being claimed.
func (c *CdevChipSelect) Open(pins []int) error {
	c.lines = make(map[int]*gpiocdev.Line, len(pins))
	for _, n := range pins {
		l, err := gpiocdev.RequestLine(c.chip, n,
			gpiocdev.AsOutput(1),
			gpiocdev.WithConsumer("hatdriver"))
		if err != nil {
			c.Close()
			return fmt.Errorf("%s line %d: %v: %w", c.chip, n, err, PinNotFound)
		}
		c.lines[n] = l
	}
	return nil
}

func (c *CdevChipSelect) Set(n int, high bool) error {
	l, ok := c.lines[n]
	if !ok {
		return fmt.Errorf("%s line %d: %w", c.chip, n, PinNotFound)
	}
	v := 0
	if high {
		v = 1
	}
	if err := l.SetValue(v); err != nil {
		return fmt.Errorf("%s line %d: %v: %w", c.chip, n, err, PinWriteFailed)
	}
	return nil
}

func (c *CdevChipSelect) Get(n int) (bool, error) {
	l, ok := c.lines[n]
	if !ok {
		return false, fmt.Errorf("%s line %d: %w", c.chip, n, PinNotFound)
	}
	v, err := l.Value()
	if err != nil {
		return false, fmt.Errorf("%s line %d: %v: %w", c.chip, n, err, PinNotFound)
	}
	return v == 1, nil
}

func (c *CdevChipSelect) Close() error {
	var first error
	for n, l := range c.lines {
		if err := l.Close(); err != nil && first == nil {
			first = err
		}
		delete(c.lines, n)
	}
	return first
}
