package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-hassdriver/internal/agent"
	"github.com/nerrad567/gray-logic-hassdriver/internal/auth"
	"github.com/nerrad567/gray-logic-hassdriver/internal/configstore"
	"github.com/nerrad567/gray-logic-hassdriver/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-hassdriver/internal/infrastructure/database"
)

const testSecret = "test-secret-key-at-least-32-characters-long"

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	t.Setenv("HASSDRIVER_CONFIG", path)
	return path
}

func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("HASSDRIVER_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

func TestRun_InvalidDatabasePath(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0600); err != nil {
		t.Fatal(err)
	}
	writeConfig(t, `
driver:
  device: home/hass
database:
  path: `+filepath.Join(blocker, "sub", "driver.db")+`
mqtt:
  enabled: false
api:
  enabled: false
logging:
  format: text
`)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := run(ctx); err == nil || !strings.Contains(err.Error(), "database") {
		t.Fatalf("run() error = %v, want database error", err)
	}
}

func TestRun_StandaloneShutsDown(t *testing.T) {
	dir := t.TempDir()
	registry := filepath.Join(dir, "hass.csv")
	if err := os.WriteFile(registry, []byte("Entity ID,Entity Point,Volttron Point Name,Type\nsensor.a,state,a,float\n"), 0600); err != nil {
		t.Fatal(err)
	}
	writeConfig(t, `
driver:
  device: home/hass
  registry_file: `+registry+`
home_assistant:
  ip_address: 127.0.0.1
  access_token: token
  port: 1
  timeout: 1
database:
  path: `+filepath.Join(dir, "driver.db")+`
mqtt:
  enabled: false
api:
  enabled: false
logging:
  level: error
  format: text
`)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if err := run(ctx); err != nil {
		t.Fatalf("run() error = %v", err)
	}
}

func TestSeedStore(t *testing.T) {
	ctx := context.Background()
	db, err := database.OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		t.Fatal(err)
	}
	store := configstore.New(db, storeIdentity, nil)

	dir := t.TempDir()
	registry := filepath.Join(dir, "hass.csv")
	if err := os.WriteFile(registry, []byte("Entity ID\nlight.a\n"), 0600); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{
		Driver: config.DriverConfig{Device: "home/hass", ScrapeInterval: 15, Timezone: "UTC", RegistryFile: registry, RegistryName: "registries/main.csv"},
		HomeAssistant: config.HomeAssistantConfig{
			IPAddress: "10.0.0.5", AccessToken: "secret", Port: 8123, Timeout: 5,
		},
	}
	if err := seedStore(ctx, cfg, store); err != nil {
		t.Fatalf("seedStore() error = %v", err)
	}

	var dc agent.DeviceConfig
	if err := store.GetJSON(ctx, agent.DeviceEntryName("home/hass"), &dc); err != nil {
		t.Fatal(err)
	}
	if dc.RegistryConfig != "config://registries/main.csv" || dc.DriverConfig.Port != "8123" || dc.Interval != 15 {
		t.Errorf("device entry = %+v", dc)
	}

	// Without hub settings an existing entry keeps its connection but
	// follows a newly imported registry.
	cfg.HomeAssistant = config.HomeAssistantConfig{}
	cfg.Driver.RegistryName = ""
	if err := seedStore(ctx, cfg, store); err != nil {
		t.Fatalf("second seedStore() error = %v", err)
	}
	dc = agent.DeviceConfig{}
	if err := store.GetJSON(ctx, agent.DeviceEntryName("home/hass"), &dc); err != nil {
		t.Fatal(err)
	}
	if dc.RegistryConfig != "config://hass.csv" || dc.DriverConfig.IPAddress != "10.0.0.5" {
		t.Errorf("device entry after reseed = %+v", dc)
	}
}

func TestRunToken(t *testing.T) {
	var out bytes.Buffer
	err := runToken([]string{"-sub", "historian", "-role", "operator", "-secret", testSecret, "-ttl", "1h"}, &out)
	if err != nil {
		t.Fatalf("runToken() error = %v", err)
	}
	claims, err := auth.ParseToken(strings.TrimSpace(out.String()), testSecret)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.Subject != "historian" || claims.Role != auth.RoleOperator {
		t.Errorf("claims = %+v", claims)
	}

	t.Setenv("HASSDRIVER_CONFIG", "/nonexistent/config.yaml")
	t.Setenv("HASSDRIVER_JWT_SECRET", "")
	if err := runToken([]string{"-sub", "x"}, &out); err == nil {
		t.Error("runToken() without a secret should fail")
	}
	if err := runToken([]string{"-role", "viewer", "-secret", testSecret}, &out); err == nil {
		t.Error("runToken() without -sub should fail")
	}
	if err := runToken([]string{"-sub", "x", "-role", "root", "-secret", testSecret}, &out); err == nil {
		t.Error("runToken() with an unknown role should fail")
	}
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv("HASSDRIVER_CONFIG", "")
	if got := getConfigPath(); got != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", got, defaultConfigPath)
	}
	t.Setenv("HASSDRIVER_CONFIG", "/etc/hassdriver.yaml")
	if got := getConfigPath(); got != "/etc/hassdriver.yaml" {
		t.Errorf("getConfigPath() = %q", got)
	}
}
