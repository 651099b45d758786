package influxdb

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-hassdriver/internal/infrastructure/config"
)

// fakeInflux answers /ping and records line protocol posted to
// /api/v2/write.
type fakeInflux struct {
	mu     sync.Mutex
	lines  []string
	status int
}

func (f *fakeInflux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/ping":
		w.WriteHeader(http.StatusNoContent)
	case "/api/v2/write":
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		status := f.status
		if status == 0 {
			f.lines = append(f.lines, strings.Split(strings.TrimSpace(string(body)), "\n")...)
			status = http.StatusNoContent
		}
		f.mu.Unlock()
		if status != http.StatusNoContent {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"code":"invalid","message":"bad bucket"}`))
			return
		}
		w.WriteHeader(status)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeInflux) written() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.lines...)
}

func newTestClient(t *testing.T) (*Client, *fakeInflux) {
	t.Helper()
	fake := &fakeInflux{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := Connect(config.InfluxDBConfig{
		Enabled: true, URL: srv.URL, Token: "t", Org: "o", Bucket: "b",
		BatchSize: 1000, FlushInterval: 60,
	})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { c.Close() }) //nolint:errcheck // test cleanup
	return c, fake
}

func containsLine(lines []string, parts ...string) bool {
	for _, l := range lines {
		all := true
		for _, p := range parts {
			if !strings.Contains(l, p) {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}

func TestConnect_Disabled(t *testing.T) {
	_, err := Connect(config.InfluxDBConfig{Enabled: false})
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := Connect(config.InfluxDBConfig{Enabled: true, URL: url, Token: "t", Org: "o", Bucket: "b"})
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestRecordScrape(t *testing.T) {
	c, fake := newTestClient(t)

	c.RecordScrape("home/hass", map[string]any{
		"lamp_state":  1,
		"lamp_bright": 127.5,
		"door_locked": true,
		"hvac_mode":   "heat",
		"unknown":     nil,
	}, 2, 15*time.Millisecond)
	c.Flush()

	lines := fake.written()
	if !containsLine(lines, "driver_scrape,device=home/hass", "ok=5i", "failed=2i", "duration_ms=15") {
		t.Errorf("scrape summary missing in %v", lines)
	}
	if containsLine(lines, "point_value") || containsLine(lines, "point=lamp_state") {
		t.Errorf("scrape wrote point values: %v", lines)
	}
	if len(lines) != 1 {
		t.Errorf("RecordScrape wrote %d rows, want 1", len(lines))
	}
}

func TestRecordCommand(t *testing.T) {
	c, fake := newTestClient(t)

	c.RecordCommand("home/hass", "lamp_state", "set", nil, time.Millisecond)
	c.RecordCommand("home/hass", "lamp_state", "set", errors.New("hub said no"), time.Millisecond)
	c.Flush()

	lines := fake.written()
	if !containsLine(lines, "driver_command,action=set,device=home/hass,point=lamp_state", "success=true") {
		t.Errorf("success row missing in %v", lines)
	}
	if !containsLine(lines, "success=false", `error="hub said no"`) {
		t.Errorf("failure row missing in %v", lines)
	}
}

func TestOnError(t *testing.T) {
	c, fake := newTestClient(t)
	fake.mu.Lock()
	fake.status = http.StatusBadRequest
	fake.mu.Unlock()

	got := make(chan error, 4)
	c.SetOnError(func(err error) { got <- err })

	c.RecordCommand("home/hass", "p", "get", nil, 0)
	c.Flush()

	select {
	case err := <-got:
		if err == nil {
			t.Error("expected a write error")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("write error not reported")
	}
}

func TestHealthCheckAndClose(t *testing.T) {
	c, _ := newTestClient(t)
	if err := c.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() = %v", err)
	}

	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if c.IsConnected() {
		t.Error("IsConnected() after Close")
	}
	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() after Close = %v", err)
	}

	// Writes and flushes after Close are ignored.
	c.RecordScrape("home/hass", map[string]any{"x": 1}, 0, 0)
	c.Flush()
	if err := c.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}
}
