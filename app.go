package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
)

// App wires a Driver, its backend and the optional status server from a
// configuration.
type App struct {
	cfg    Config
	logger *EventLogger
	driver *Driver
	status *StatusServer
}

// NewApp builds the application for cfg.  Output from the HAL and the
// example goes to out.
func NewApp(cfg Config, out io.Writer) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	board, _ := LookupBoard(cfg.Board)

	logger := NewEventLogger(cfg.EventLog)
	logger.SetVerbose(cfg.Verbose)

	cs, err := newChipSelect(cfg)
	if err != nil {
		return nil, err
	}
	driver, err := NewDriver(DriverOptions{
		Board:         board,
		ChipSelect:    cs,
		Example:       newChipSelectMonitor(logger, cfg.Loop.Heartbeat),
		Out:           out,
		Logger:        logger,
		OnInitFailure: cfg.OnInitFailure,
		Bus:           busOpener(cfg),
		RateHz:        cfg.Loop.RateHz,
	})
	if err != nil {
		return nil, err
	}
	a := &App{cfg: cfg, logger: logger, driver: driver}
	if cfg.Status.Listen != "" {
		a.status = NewStatusServer(cfg.Status, driver, logger)
	}
	return a, nil
}

// Driver returns the application's driver.
func (a *App) Driver() *Driver { return a.driver }

// Run starts the status server, if configured, and runs the driver until
// ctx is cancelled.  A status server failure is logged but does not stop
// the driver.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	if a.status != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.status.Serve(ctx); err != nil {
				log.Printf("status server: %v", err)
				a.logger.Log("status server stopped: %v", err)
			}
		}()
	}
	a.logger.Log("starting board=%s backend=%s", a.cfg.Board, a.cfg.Backend)
	err := a.driver.Run(ctx)
	cancel()
	wg.Wait()
	if err != nil {
		return fmt.Errorf("%s: %w", a.cfg.Board, err)
	}
	return nil
}
