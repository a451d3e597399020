//go:build !linux

package main

import "fmt"

// CdevChipSelect is only available on Linux.
type CdevChipSelect struct{ ChipSelect }

func NewCdevChipSelect(chip string) (*CdevChipSelect, error) {
	return nil, fmt.Errorf("gpiocdev backend requires linux: %w", BackendUnavailable)
}
