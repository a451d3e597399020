package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testStatusServer(t *testing.T, d *Driver, logger *EventLogger) *httptest.Server {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)
	s := NewStatusServer(StatusConfig{Username: "admin", PasswordHash: string(hash)}, d, logger)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, url, user, pass string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	if user != "" {
		req.SetBasicAuth(user, pass)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestStatusServer_RequiresAuth(t *testing.T) {
	d, _ := newTestDriver(t, NewSimChipSelect(), ExampleFuncs{}, PolicyAbort)
	ts := testStatusServer(t, d, nil)

	assert.Equal(t, http.StatusUnauthorized, get(t, ts.URL+"/api/status", "", "").StatusCode)
	assert.Equal(t, http.StatusUnauthorized, get(t, ts.URL+"/api/status", "admin", "wrong").StatusCode)
	assert.Equal(t, http.StatusUnauthorized, get(t, ts.URL+"/api/status", "root", "secret").StatusCode)
	assert.Equal(t, http.StatusOK, get(t, ts.URL+"/api/status", "admin", "secret").StatusCode)
}

func TestWithAuth_NoHashRejects(t *testing.T) {
	h := withAuth("admin", "", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.SetBasicAuth("admin", "")
	rec := httptest.NewRecorder()
	h(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Basic")
}

func TestStatusServer_Status(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ex := &recordingExample{stopAfter: 10, cancel: cancel}
	d, _ := newTestDriver(t, NewSimChipSelect(), ex, PolicyAbort)
	require.NoError(t, d.Run(ctx))

	ts := testStatusServer(t, d, nil)
	resp := get(t, ts.URL+"/api/status", "admin", "secret")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var st statusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	assert.Equal(t, "hat", st.Board)
	assert.Equal(t, "HAT", st.Display)
	assert.Equal(t, "stopped", st.State)
	assert.Equal(t, uint64(10), st.Iterations)
	assert.Equal(t, 0, st.InitCode)
	assert.Empty(t, st.InitError)
}

func TestStatusServer_PortsWhileRunning(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var ts *httptest.Server
	var ports []portInfo
	ex := ExampleFuncs{LoopFn: func(*Context) {
		if ports != nil {
			return
		}
		resp := get(t, ts.URL+"/api/ports", "admin", "secret")
		if assert.Equal(t, http.StatusOK, resp.StatusCode) {
			assert.NoError(t, json.NewDecoder(resp.Body).Decode(&ports))
		}
		cancel()
	}}
	d, _ := newTestDriver(t, NewSimChipSelect(), ex, PolicyAbort)
	ts = testStatusServer(t, d, nil)
	require.NoError(t, d.Run(ctx))

	require.Len(t, ports, 9)
	assert.Equal(t, "A", ports[0].Name)
	assert.Equal(t, 23, ports[0].ChipSelectPin)
	require.NotNil(t, ports[0].Deselected)
	assert.True(t, *ports[0].Deselected)
}

func TestStatusServer_PortsWithoutHAL(t *testing.T) {
	d, _ := newTestDriver(t, NewSimChipSelect(), ExampleFuncs{}, PolicyAbort)
	ts := testStatusServer(t, d, nil)

	var ports []portInfo
	resp := get(t, ts.URL+"/api/ports", "admin", "secret")
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ports))
	require.Len(t, ports, 9)
	assert.Nil(t, ports[8].Deselected)
	assert.Equal(t, "I", ports[8].Name)
}

func TestStatusServer_Logs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.log")
	require.NoError(t, os.WriteFile(path, []byte("one\ntwo\nthree\n"), 0o600))
	d, _ := newTestDriver(t, NewSimChipSelect(), ExampleFuncs{}, PolicyAbort)
	ts := testStatusServer(t, d, NewEventLogger(path))

	var lines []string
	resp := get(t, ts.URL+"/api/logs?lines=2", "admin", "secret")
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&lines))
	assert.Equal(t, []string{"two", "three"}, lines)
}

func TestStatusServer_LogsDisabled(t *testing.T) {
	d, _ := newTestDriver(t, NewSimChipSelect(), ExampleFuncs{}, PolicyAbort)
	ts := testStatusServer(t, d, nil)
	assert.Equal(t, http.StatusNotFound, get(t, ts.URL+"/api/logs", "admin", "secret").StatusCode)
}

func TestStatusServer_MethodNotAllowed(t *testing.T) {
	d, _ := newTestDriver(t, NewSimChipSelect(), ExampleFuncs{}, PolicyAbort)
	ts := testStatusServer(t, d, nil)

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/status", nil)
	require.NoError(t, err)
	req.SetBasicAuth("admin", "secret")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := hashPassword("hunter2")
	require.NoError(t, err)
	assert.NoError(t, checkPasswordHash("hunter2", hash))
	assert.Error(t, checkPasswordHash("hunter3", hash))
}
