package main

// This file defines the HAL context: the initialized view of a carrier board's
// chip-select lines and, optionally, the SPI bus they share.  The lines
// themselves are driven through a ChipSelect backend so that the same code
// runs against periph.io, the GPIO character device or the in-memory
// simulation used on desktops and in tests.

import (
	"fmt"
	"io"
	"os"
	"sync"

	"periph.io/x/conn/v3/spi"
)

// ChipSelect drives chip-select lines addressed by BCM pin number.
type ChipSelect interface {
	Name() string
	// Open claims the given pins as outputs.
	Open(pins []int) error
	Set(pin int, high bool) error
	Get(pin int) (bool, error)
	Close() error
}

// BusOpener opens the SPI bus shared by all ports.
type BusOpener func() (spi.Conn, io.Closer, error)

// Option configures Init.
type Option func(*Context)

// WithOutput sets the writer used by Context.Printf.  Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(c *Context) { c.out = w }
}

// WithBus makes Init open the SPI bus after the chip-select lines are set up.
func WithBus(open BusOpener) Option {
	return func(c *Context) { c.openBus = open }
}

// WithLogger attaches an event logger for debug output.
func WithLogger(l *EventLogger) Option {
	return func(c *Context) { c.logger = l }
}

// Context is an initialized HAL.  It keeps its own copy of the port table,
// so the caller's slice may be reused once Init returns.
type Context struct {
	ports   []Port
	cs      ChipSelect
	out     io.Writer
	logger  *EventLogger
	openBus BusOpener

	bus       spi.Conn
	busCloser io.Closer

	mu     sync.Mutex
	closed bool
}

// Init claims every chip-select line in ports, deselects all of them and
// checks that they read back high.  On failure the backend is released and
// the returned context is nil.
func Init(ports []Port, cs ChipSelect, opts ...Option) (*Context, Code) {
	if err := ValidatePorts(ports); err != nil {
		return nil, Of(err)
	}
	if cs == nil {
		return nil, BackendUnavailable
	}
	c := &Context{
		ports:  append([]Port(nil), ports...),
		cs:     cs,
		out:    os.Stdout,
		logger: NewEventLogger(""),
	}
	for _, o := range opts {
		o(c)
	}

	pins := make([]int, len(c.ports))
	for i, p := range c.ports {
		pins[i] = p.ChipSelectPin
	}
	if err := cs.Open(pins); err != nil {
		c.logger.Debug("%s: open %v: %v", cs.Name(), pins, err)
		c.release()
		return nil, codeOr(err, BackendUnavailable)
	}
	// Deselect every port before anything talks on the bus.
	for _, p := range c.ports {
		if err := cs.Set(p.ChipSelectPin, true); err != nil {
			c.logger.Debug("%s: deselect %s: %v", cs.Name(), p, err)
			c.release()
			return nil, codeOr(err, PinWriteFailed)
		}
	}
	for _, p := range c.ports {
		if ok, code := c.readDeselected(p); code != OK || !ok {
			c.release()
			if code != OK {
				return nil, code
			}
			c.logger.Debug("%s: %s reads low after deselect", cs.Name(), p)
			return nil, ChipSelectStuck
		}
	}
	if c.openBus != nil {
		bus, closer, err := c.openBus()
		if err != nil {
			c.logger.Debug("open spi bus: %v", err)
			c.release()
			return nil, codeOr(err, SPIOpenFailed)
		}
		c.bus, c.busCloser = bus, closer
	}
	c.logger.Debug("hal ready: %d ports on %s", len(c.ports), cs.Name())
	return c, OK
}

// release closes the backend after a failed Init.
func (c *Context) release() {
	if err := c.cs.Close(); err != nil {
		c.logger.Debug("%s: release after failed init: %v", c.cs.Name(), err)
	}
}

// codeOr returns the code carried by err, or fallback when err has none.
func codeOr(err error, fallback Code) Code {
	if c := Of(err); c != UnknownError {
		return c
	}
	return fallback
}

// Ports returns a copy of the port table the context was initialized with.
func (c *Context) Ports() []Port {
	return append([]Port(nil), c.ports...)
}

// Port looks up a port by its slot letter.
func (c *Context) Port(name byte) (Port, bool) {
	for _, p := range c.ports {
		if p.Name == name {
			return p, true
		}
	}
	return Port{}, false
}

// Printf writes formatted output to the context's output.
func (c *Context) Printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

// Output returns the writer used by Printf.
func (c *Context) Output() io.Writer { return c.out }

// Backend returns the name of the chip-select backend.
func (c *Context) Backend() string { return c.cs.Name() }

// Bus returns the SPI connection opened by Init, or nil when no bus was
// requested.
func (c *Context) Bus() spi.Conn { return c.bus }

// Deselected reports whether the chip-select line of the named port is high.
func (c *Context) Deselected(name byte) (bool, Code) {
	p, ok := c.Port(name)
	if !ok {
		return false, InvalidParameter
	}
	return c.readDeselected(p)
}

func (c *Context) readDeselected(p Port) (bool, Code) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false, NotSupported
	}
	high, err := c.cs.Get(p.ChipSelectPin)
	if err != nil {
		return false, codeOr(err, PinNotFound)
	}
	return high, OK
}

// Close releases the SPI bus and the chip-select lines.  Calling Close more
// than once is harmless.
func (c *Context) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	var busErr error
	if c.busCloser != nil {
		busErr = c.busCloser.Close()
	}
	if err := c.cs.Close(); err != nil {
		return err
	}
	return busErr
}
