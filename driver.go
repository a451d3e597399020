package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"golang.org/x/time/rate"
)

// Example is the code run on top of an initialized HAL.  Setup is called
// once, Loop repeatedly until the driver stops.  In degraded mode the
// context passed to both is nil.
type Example interface {
	Setup(hal *Context)
	Loop(hal *Context)
}

// ExampleFuncs adapts two plain functions to Example.
type ExampleFuncs struct {
	SetupFn func(hal *Context)
	LoopFn  func(hal *Context)
}

func (e ExampleFuncs) Setup(hal *Context) {
	if e.SetupFn != nil {
		e.SetupFn(hal)
	}
}

func (e ExampleFuncs) Loop(hal *Context) {
	if e.LoopFn != nil {
		e.LoopFn(hal)
	}
}

// State is the lifecycle state of a Driver.
type State int32

const (
	StateUninitialized State = iota
	StateInitializing
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Driver initializes the HAL for one board and runs an example on it.
type Driver struct {
	board   Board
	cs      ChipSelect
	example Example
	out     io.Writer
	logger  *EventLogger
	report  *Reporter
	policy  string
	bus     BusOpener
	limiter *rate.Limiter

	state      atomic.Int32
	iterations atomic.Uint64
	initCode   atomic.Int64

	mu  sync.Mutex
	hal *Context
}

// DriverOptions holds the collaborators of a Driver.  Board, ChipSelect and
// Example are required.
type DriverOptions struct {
	Board         Board
	ChipSelect    ChipSelect
	Example       Example
	Out           io.Writer
	Logger        *EventLogger
	OnInitFailure string
	Bus           BusOpener
	// RateHz limits loop iterations per second; 0 means unlimited.
	RateHz float64
}

// NewDriver validates opts and builds a driver.
func NewDriver(opts DriverOptions) (*Driver, error) {
	if opts.ChipSelect == nil || opts.Example == nil {
		return nil, errors.New("driver needs a chip select backend and an example")
	}
	if err := opts.Board.Validate(); err != nil {
		return nil, err
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	if opts.Logger == nil {
		opts.Logger = NewEventLogger("")
	}
	switch opts.OnInitFailure {
	case "":
		opts.OnInitFailure = PolicyAbort
	case PolicyAbort, PolicyContinue:
	default:
		return nil, fmt.Errorf("unknown init failure policy %q", opts.OnInitFailure)
	}
	d := &Driver{
		board:   opts.Board,
		cs:      opts.ChipSelect,
		example: opts.Example,
		out:     opts.Out,
		logger:  opts.Logger,
		policy:  opts.OnInitFailure,
		bus:     opts.Bus,
		report: NewReporter(
			ConsoleSink{W: opts.Out},
			EventLogSink{Logger: opts.Logger},
		),
	}
	if opts.RateHz > 0 {
		burst := int(opts.RateHz)
		if burst < 1 {
			burst = 1
		}
		d.limiter = rate.NewLimiter(rate.Limit(opts.RateHz), burst)
	}
	d.initCode.Store(int64(InitPending))
	return d, nil
}

// State returns the current lifecycle state.
func (d *Driver) State() State { return State(d.state.Load()) }

// Iterations returns the number of completed loop calls.
func (d *Driver) Iterations() uint64 { return d.iterations.Load() }

// InitCode returns the status of the HAL initialization, InitPending until
// Init has returned.
func (d *Driver) InitCode() Code { return Code(d.initCode.Load()) }

// Board returns the board the driver was built for.
func (d *Driver) Board() Board { return d.board }

// HAL returns the live HAL context, or nil when none is open.
func (d *Driver) HAL() *Context {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hal
}

// Run prints the banner, initializes the HAL and runs the example until ctx
// is cancelled.  With the abort policy a failed initialization is returned
// before Setup is called.  With the continue policy the failure is only
// reported and the example runs with a nil context.  The HAL context is
// closed before Run returns.
func (d *Driver) Run(ctx context.Context) error {
	if !d.state.CompareAndSwap(int32(StateUninitialized), int32(StateInitializing)) {
		return fmt.Errorf("driver already %s", d.State())
	}
	defer d.state.Store(int32(StateStopped))

	fmt.Fprintf(d.out, "hatdriver: %s (%d ports, %s backend)\n", d.board.DisplayName, len(d.board.ports), d.cs.Name())

	opts := []Option{WithOutput(d.out), WithLogger(d.logger)}
	if d.bus != nil {
		opts = append(opts, WithBus(d.bus))
	}
	hal, code := Init(d.board.Ports(), d.cs, opts...)
	d.initCode.Store(int64(code))
	if d.report.Check(code, "init hal") != OK {
		if d.policy == PolicyAbort {
			d.logger.Log("init hal on %s failed: %v, aborting", d.board.ID, code)
			return fmt.Errorf("init hal: %w", code)
		}
		d.logger.Log("init hal on %s failed: %v, continuing without hal", d.board.ID, code)
	} else {
		d.logger.Log("hal initialized on %s with %d ports", d.board.ID, len(d.board.ports))
	}

	d.mu.Lock()
	d.hal = hal
	d.mu.Unlock()
	d.state.Store(int32(StateRunning))
	defer func() {
		d.mu.Lock()
		d.hal = nil
		d.mu.Unlock()
		if hal != nil {
			if err := hal.Close(); err != nil {
				d.logger.Log("close hal: %v", err)
			}
		}
	}()

	d.example.Setup(hal)
	for {
		if ctx.Err() != nil {
			break
		}
		if d.limiter != nil {
			if err := d.limiter.Wait(ctx); err != nil {
				break
			}
		}
		d.example.Loop(hal)
		d.iterations.Add(1)
	}
	d.logger.Log("stopped after %d iterations", d.Iterations())
	return nil
}
