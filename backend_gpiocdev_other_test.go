//go:build !linux

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewCdevChipSelect_Unavailable(t *testing.T) {
	_, err := NewCdevChipSelect("gpiochip0")
	assert.Equal(t, BackendUnavailable, Of(err))

	cfg := DefaultConfig()
	cfg.Backend = BackendGPIOCdev
	_, err = newChipSelect(cfg)
	assert.Equal(t, BackendUnavailable, Of(err))
}
