package main

// This file provides the Raspberry Pi chip-select backend using the periph.io
// library.  periph builds on every platform; on machines without the bcm283x
// GPIO drivers the pin lookups fail and Init reports PinNotFound.

import (
	"fmt"
	"io"

	// Use the new periph module layout.  See https://periph.io/news/2020/a_new_start/
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// PeriphChipSelect drives chip-select lines through periph.io.  Pins are
// addressed by their BCM numbers.
type PeriphChipSelect struct {
	pins map[int]gpio.PinIO
}

func NewPeriphChipSelect() *PeriphChipSelect {
	return &PeriphChipSelect{}
}

func (p *PeriphChipSelect) Name() string { return "periph" }

// Open initialises periph host state and resolves every pin.  host.Init can
// safely be called multiple times; subsequent calls are no-ops.
func (p *PeriphChipSelect) Open(pins []int) error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("periph host: %v: %w", err, HostInitFailed)
	}
	p.pins = make(map[int]gpio.PinIO, len(pins))
	for _, n := range pins {
		pin := gpioreg.ByName(fmt.Sprintf("GPIO%d", n))
		if pin == nil {
			return fmt.Errorf("GPIO%d: %w", n, PinNotFound)
		}
		p.pins[n] = pin
	}
	return nil
}

func (p *PeriphChipSelect) Set(n int, high bool) error {
	pin, ok := p.pins[n]
	if !ok {
		return fmt.Errorf("GPIO%d: %w", n, PinNotFound)
	}
	if err := pin.Out(gpio.Level(high)); err != nil {
		return fmt.Errorf("GPIO%d: %v: %w", n, err, PinWriteFailed)
	}
	return nil
}

func (p *PeriphChipSelect) Get(n int) (bool, error) {
	pin, ok := p.pins[n]
	if !ok {
		return false, fmt.Errorf("GPIO%d: %w", n, PinNotFound)
	}
	return pin.Read() == gpio.High, nil
}

// Close forgets the pins.  The lines keep their last level so the ports stay
// deselected after the process exits.
func (p *PeriphChipSelect) Close() error {
	p.pins = nil
	return nil
}

// periphBus opens the named SPI port in mode 3 without hardware chip select;
// the HAT drives its chip-select lines as plain GPIOs.
func periphBus(name string, hz int64) BusOpener {
	return func() (spi.Conn, io.Closer, error) {
		if _, err := host.Init(); err != nil {
			return nil, nil, fmt.Errorf("periph host: %v: %w", err, HostInitFailed)
		}
		port, err := spireg.Open(name)
		if err != nil {
			return nil, nil, fmt.Errorf("spi %q: %v: %w", name, err, SPIOpenFailed)
		}
		conn, err := port.Connect(physic.Frequency(hz)*physic.Hertz, spi.Mode3|spi.NoCS, 8)
		if err != nil {
			port.Close()
			return nil, nil, fmt.Errorf("spi %q: %v: %w", name, err, SPIOpenFailed)
		}
		return conn, port, nil
	}
}
