package main

import (
	"fmt"
	"strings"
)

// Backend names accepted in the configuration.
const (
	BackendPeriph   = "periph"
	BackendGPIOCdev = "gpiocdev"
	BackendSim      = "sim"
)

var backendNames = []string{BackendPeriph, BackendGPIOCdev, BackendSim}

// newChipSelect builds the chip-select backend selected by cfg.
func newChipSelect(cfg Config) (ChipSelect, error) {
	switch strings.ToLower(cfg.Backend) {
	case BackendPeriph:
		return NewPeriphChipSelect(), nil
	case BackendGPIOCdev:
		return NewCdevChipSelect(cfg.GPIOChip)
	case BackendSim:
		return NewSimChipSelect(), nil
	default:
		return nil, fmt.Errorf("unknown backend %q: %w", cfg.Backend, BackendUnavailable)
	}
}

// busOpener returns the SPI opener for cfg, or nil when no bus is configured
// or the backend is simulated.
func busOpener(cfg Config) BusOpener {
	if cfg.SPI.Bus == "" || strings.EqualFold(cfg.Backend, BackendSim) {
		return nil
	}
	return periphBus(cfg.SPI.Bus, cfg.SPI.SpeedHz)
}
