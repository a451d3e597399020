package main

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// StatusServer exposes the driver state over HTTP.  All routes require
// basic authentication.
type StatusServer struct {
	cfg    StatusConfig
	driver *Driver
	logger *EventLogger
}

// NewStatusServer constructs a status server for driver.
func NewStatusServer(cfg StatusConfig, driver *Driver, logger *EventLogger) *StatusServer {
	if logger == nil {
		logger = NewEventLogger("")
	}
	return &StatusServer{cfg: cfg, driver: driver, logger: logger}
}

// Handler returns the routes of the status API.
func (s *StatusServer) Handler() http.Handler {
	mux := http.NewServeMux()
	auth := func(h http.HandlerFunc) http.HandlerFunc {
		return withAuth(s.cfg.Username, s.cfg.PasswordHash, h)
	}
	mux.HandleFunc("/api/status", auth(s.handleStatus))
	mux.HandleFunc("/api/ports", auth(s.handlePorts))
	mux.HandleFunc("/api/logs", auth(s.handleLogs))
	return mux
}

// Serve listens on the configured address until ctx is cancelled.  TLS is
// used when a certificate and key are configured.
func (s *StatusServer) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		TLSConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	var err error
	if s.cfg.CertFile != "" {
		log.Printf("status server listening on https://%s", s.cfg.Listen)
		err = srv.ListenAndServeTLS(s.cfg.CertFile, s.cfg.KeyFile)
	} else {
		log.Printf("status server listening on http://%s", s.cfg.Listen)
		err = srv.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

type statusResponse struct {
	Board      string `json:"board"`
	Display    string `json:"display_name"`
	State      string `json:"state"`
	Iterations uint64 `json:"iterations"`
	InitCode   int    `json:"init_code"`
	InitError  string `json:"init_error,omitempty"`
}

func (s *StatusServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	b := s.driver.Board()
	code := s.driver.InitCode()
	resp := statusResponse{
		Board:      b.ID,
		Display:    b.DisplayName,
		State:      s.driver.State().String(),
		Iterations: s.driver.Iterations(),
		InitCode:   int(code),
	}
	if code != OK {
		resp.InitError = StrError(code)
	}
	writeJSON(w, resp)
}

type portInfo struct {
	Name          string `json:"name"`
	ChipSelectPin int    `json:"chip_select_pin"`
	Deselected    *bool  `json:"deselected,omitempty"`
}

// handlePorts lists the board's port table.  The chip-select level is only
// included while a HAL context is open.
func (s *StatusServer) handlePorts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	hal := s.driver.HAL()
	var out []portInfo
	for _, p := range s.driver.Board().Ports() {
		info := portInfo{Name: string(p.Name), ChipSelectPin: p.ChipSelectPin}
		if hal != nil {
			if high, code := hal.Deselected(p.Name); code == OK {
				info.Deselected = &high
			}
		}
		out = append(out, info)
	}
	writeJSON(w, out)
}

// handleLogs returns the last lines of the event log.
func (s *StatusServer) handleLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	limit := 200
	if n, err := strconv.Atoi(r.URL.Query().Get("lines")); err == nil && n > 0 {
		limit = n
	}
	if s.logger.Path() == "" {
		http.Error(w, "event log disabled", http.StatusNotFound)
		return
	}
	data, err := os.ReadFile(s.logger.Path())
	if err != nil {
		http.Error(w, "log not found", http.StatusNotFound)
		return
	}
	lines := strings.Split(string(data), "\n")
	// Drop empty trailing line
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}
	writeJSON(w, lines)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
