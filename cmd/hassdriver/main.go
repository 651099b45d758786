// hassdriver runs one Home Assistant hub as a device on the platform bus.
//
// It loads the device config and point registry from the SQLite config
// store, polls the hub's entities, publishes point values over MQTT,
// answers point commands and serves a REST/WebSocket API.
//
//	hassdriver                  run the driver (config from HASSDRIVER_CONFIG)
//	hassdriver token -sub x     mint an API token
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	_ "github.com/nerrad567/gray-logic-hassdriver/migrations"

	"github.com/nerrad567/gray-logic-hassdriver/internal/agent"
	"github.com/nerrad567/gray-logic-hassdriver/internal/api"
	"github.com/nerrad567/gray-logic-hassdriver/internal/audit"
	"github.com/nerrad567/gray-logic-hassdriver/internal/configstore"
	"github.com/nerrad567/gray-logic-hassdriver/internal/drivers/hass"
	"github.com/nerrad567/gray-logic-hassdriver/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-hassdriver/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-hassdriver/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-hassdriver/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-hassdriver/internal/infrastructure/mqtt"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	defaultConfigPath = "configs/config.yaml"

	// storeIdentity scopes this service's entries in the config store.
	storeIdentity = "platform.driver"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var err error
	if len(os.Args) > 1 && os.Args[1] == "token" {
		err = runToken(os.Args[2:], os.Stdout)
	} else {
		err = run(ctx)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting hassdriver",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded", "path", configPath, "device", cfg.Driver.Device)
	log.Debug("effective configuration", "config", cfg.String())

	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	store := configstore.New(db, storeIdentity, log)
	if seedErr := seedStore(ctx, cfg, store); seedErr != nil {
		return fmt.Errorf("seeding config store: %w", seedErr)
	}

	auditRepo := audit.NewSQLiteRepository(db.DB)

	var bus agent.Bus
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() { log.Info("MQTT connected") })
		mqttClient.SetOnDisconnect(func(err error) { log.Warn("MQTT disconnected", "error", err) })
		bus = mqttClient
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled; points are served over the API only")
	}

	var metrics agent.Metrics
	influxClient, err := influxdb.Connect(cfg.InfluxDB)
	switch {
	case errors.Is(err, influxdb.ErrDisabled):
		log.Info("InfluxDB disabled")
	case err != nil:
		return fmt.Errorf("connecting to InfluxDB: %w", err)
	default:
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		metrics = influxClient
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	}

	hub := api.NewHub(cfg.WebSocket, log)
	go hub.Run(ctx)

	var qos byte
	if mqttClient != nil {
		qos = mqttClient.QoS()
	}
	drv, err := agent.New(agent.Options{
		Device:   cfg.Driver.Device,
		Version:  version,
		Interval: cfg.ScrapeInterval(),
		Timezone: cfg.Driver.Timezone,
		Store:    store,
		Driver:   hass.NewDriver(hass.DriverOptions{Logger: log}),
		Bus:      bus,
		QoS:      qos,
		Metrics:  metrics,
		Observer: hub,
		Audit:    auditRepo,
		Logger:   log,
	})
	if err != nil {
		return fmt.Errorf("creating agent: %w", err)
	}
	if startErr := drv.Start(ctx); startErr != nil {
		return fmt.Errorf("starting agent: %w", startErr)
	}
	defer func() {
		log.Info("stopping agent")
		drv.Stop()
	}()

	if cfg.API.Enabled {
		server, apiErr := api.New(api.Deps{
			Config:   cfg.API,
			WS:       cfg.WebSocket,
			Security: cfg.Security,
			Logger:   log,
			Agent:    drv,
			Store:    store,
			Audit:    auditRepo,
			Hub:      hub,
			Version:  version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := server.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("initialisation complete, waiting for shutdown signal", "health", drv.Health().Status)

	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse: API, agent, InfluxDB, MQTT, database.
	return nil
}

// getConfigPath returns HASSDRIVER_CONFIG, or the default path.
func getConfigPath() string {
	if path := os.Getenv("HASSDRIVER_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// seedStore imports the registry file and writes the device entry from
// the home_assistant section. Entries edited through the API survive a
// restart unless the corresponding config keys are set.
func seedStore(ctx context.Context, cfg *config.Config, store *configstore.Store) error {
	entryName := agent.DeviceEntryName(cfg.Driver.Device)

	var existing agent.DeviceConfig
	err := store.GetJSON(ctx, entryName, &existing)
	if err != nil && !errors.Is(err, configstore.ErrNotFound) {
		return err
	}

	registryRef := existing.RegistryConfig
	if cfg.Driver.RegistryFile != "" {
		name, importErr := store.Import(ctx, cfg.Driver.RegistryName, cfg.Driver.RegistryFile)
		if importErr != nil {
			return fmt.Errorf("importing registry: %w", importErr)
		}
		registryRef = configstore.ReferencePrefix + name
	}

	ha := cfg.HomeAssistant
	if ha.IPAddress == "" {
		if registryRef != existing.RegistryConfig && err == nil {
			existing.RegistryConfig = registryRef
			return store.PutJSON(ctx, entryName, existing)
		}
		return nil
	}

	return store.PutJSON(ctx, entryName, agent.DeviceConfig{
		DriverConfig: agent.HubSettings{
			IPAddress:   ha.IPAddress,
			AccessToken: ha.AccessToken,
			Port:        hass.Port(strconv.Itoa(ha.Port)),
			Timeout:     ha.Timeout,
		},
		DriverType:     agent.DriverType,
		RegistryConfig: registryRef,
		Interval:       cfg.Driver.ScrapeInterval,
		Timezone:       cfg.Driver.Timezone,
	})
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check (nil if disabled)
//   - influxClient: InfluxDB client to check (nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
