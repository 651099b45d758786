package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-hassdriver/internal/audit"
	"github.com/nerrad567/gray-logic-hassdriver/internal/drivers/hass"
	"github.com/nerrad567/gray-logic-hassdriver/internal/infrastructure/mqtt"
)

const (
	defaultInterval = 30 * time.Second

	// commandTimeout bounds one MQTT command, including a revert of
	// every point.
	commandTimeout = 60 * time.Second
)

// Logger is the logging interface used by the agent.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Bus is the MQTT surface the agent needs. *mqtt.Client satisfies it.
type Bus interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Metrics receives scrape and command outcomes. *influxdb.Client
// satisfies it.
type Metrics interface {
	RecordScrape(device string, values map[string]any, failed int, took time.Duration)
	RecordCommand(device, point, action string, err error, took time.Duration)
}

// Auditor records executed point writes and reverts.
// *audit.SQLiteRepository satisfies it.
type Auditor interface {
	Record(ctx context.Context, e *audit.Entry) error
}

// Observer is told about every completed scrape.
type Observer interface {
	PointsScraped(msg ScrapeMessage)
}

// Options holds an Agent's collaborators. Store and Driver are required;
// the rest are optional.
type Options struct {
	// Device is the device path, e.g. "campus/building/hass".
	Device string

	// Version is reported in health messages.
	Version string

	// Interval is the poll period used when the device entry has none.
	Interval time.Duration

	// Timezone is used in point metadata when the device entry has none.
	Timezone string

	Store    ConfigStore
	Driver   *hass.Driver
	Bus      Bus
	QoS      byte
	Metrics  Metrics
	Observer Observer
	Audit    Auditor
	Logger   Logger
}

// Agent runs one Home Assistant driver on the platform bus. It loads the
// device from the config store, scrapes on a ticker, publishes results
// and answers point commands arriving over MQTT.
//
// Thread Safety: all methods are safe for concurrent use.
type Agent struct {
	device   string
	version  string
	store    ConfigStore
	driver   *hass.Driver
	bus      Bus
	qos      byte
	metrics  Metrics
	observer Observer
	audit    Auditor
	logger   Logger
	topics   mqtt.Topics

	fallbackInterval time.Duration
	fallbackTZ       string
	startTime        time.Time

	mu         sync.RWMutex
	interval   time.Duration
	timezone   string
	hub        string
	configured bool
	lastErr    error
	lastScrape *ScrapeMessage

	reloadMu    sync.Mutex
	resetTicker chan time.Duration

	startOnce sync.Once
	stopOnce  sync.Once
	started   bool
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// New validates opts and creates a stopped agent.
func New(opts Options) (*Agent, error) {
	if err := mqtt.ValidateDevice(opts.Device); err != nil {
		return nil, fmt.Errorf("agent: %w", err)
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("agent: config store is required")
	}
	if opts.Driver == nil {
		return nil, fmt.Errorf("agent: driver is required")
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	tz := opts.Timezone
	if tz == "" {
		tz = "UTC"
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Agent{
		device:           opts.Device,
		version:          opts.Version,
		store:            opts.Store,
		driver:           opts.Driver,
		bus:              opts.Bus,
		qos:              opts.QoS,
		metrics:          opts.Metrics,
		observer:         opts.Observer,
		audit:            opts.Audit,
		logger:           opts.Logger,
		fallbackInterval: interval,
		fallbackTZ:       tz,
		interval:         interval,
		timezone:         tz,
		startTime:        time.Now(),
		resetTicker:      make(chan time.Duration, 1),
		ctx:              ctx,
		cancel:           cancel,
	}, nil
}

// Device returns the device path.
func (a *Agent) Device() string { return a.device }

// Start loads the device, subscribes to commands and starts polling. A
// device that fails to load is reported unhealthy and the agent keeps
// running so that a corrected config can be applied with Reload.
func (a *Agent) Start(ctx context.Context) error {
	err := ErrAlreadyStarted
	a.startOnce.Do(func() {
		err = a.start(ctx)
	})
	return err
}

func (a *Agent) start(ctx context.Context) error {
	a.publishHealth(HealthStarting, "agent starting")

	if err := a.Reload(ctx); err != nil {
		a.logError("device not loaded", err, "device", a.device)
	}

	if a.bus != nil {
		filter := a.topics.CommandFilter(a.device)
		if err := a.bus.Subscribe(filter, a.qos, a.handleCommand); err != nil {
			return fmt.Errorf("subscribe to commands: %w", err)
		}
		a.logInfo("subscribed to commands", "topic", filter)
	}

	a.mu.Lock()
	a.started = true
	interval := a.interval
	a.mu.Unlock()

	a.wg.Add(1)
	go a.pollLoop(interval)

	a.publishHealth(a.healthStatus())
	a.logInfo("agent started", "device", a.device, "interval", interval)
	return nil
}

// Stop ends polling, drops the command subscription and publishes a
// final "stopping" health message. Safe to call more than once.
func (a *Agent) Stop() {
	a.stopOnce.Do(func() {
		a.cancel()
		a.wg.Wait()

		a.mu.RLock()
		started := a.started
		a.mu.RUnlock()
		if started && a.bus != nil {
			if err := a.bus.Unsubscribe(a.topics.CommandFilter(a.device)); err != nil {
				a.logWarn("unsubscribe failed", "error", err)
			}
		}
		a.publishHealth(HealthStopping, "agent stopping")
		a.logInfo("agent stopped", "device", a.device)
	})
}

// Reload re-reads the device entry and registry from the config store and
// reconfigures the driver. On failure the previous configuration stays in
// effect.
func (a *Agent) Reload(ctx context.Context) error {
	a.reloadMu.Lock()
	defer a.reloadMu.Unlock()

	dc, rows, err := LoadDevice(ctx, a.store, a.device)
	if err == nil {
		err = a.driver.Configure(dc.DriverConfig.HubConfig(), rows)
	}

	a.mu.Lock()
	a.lastErr = err
	if err != nil {
		a.mu.Unlock()
		return err
	}
	a.configured = true
	a.hub = dc.DriverConfig.HubConfig().BaseURL()
	a.interval = a.fallbackInterval
	if dc.Interval > 0 {
		a.interval = time.Duration(dc.Interval) * time.Second
	}
	a.timezone = a.fallbackTZ
	if dc.Timezone != "" {
		a.timezone = dc.Timezone
	}
	interval := a.interval
	a.mu.Unlock()

	// Drop a pending reset so the channel never blocks.
	select {
	case <-a.resetTicker:
	default:
	}
	a.resetTicker <- interval

	a.logInfo("device loaded", "device", a.device, "points", len(rows), "interval", interval)
	return nil
}

// pollLoop scrapes once immediately, then on every tick.
func (a *Agent) pollLoop(interval time.Duration) {
	defer a.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	a.Scrape(a.ctx)
	for {
		select {
		case <-a.ctx.Done():
			return
		case d := <-a.resetTicker:
			ticker.Reset(d)
		case <-ticker.C:
			a.Scrape(a.ctx)
		}
	}
}

// Scrape reads every point, publishes the result and records telemetry.
// Points whose read failed are listed in Failed.
func (a *Agent) Scrape(ctx context.Context) ScrapeMessage {
	start := time.Now()
	values := a.driver.ScrapeAll(ctx)
	took := time.Since(start)

	a.mu.RLock()
	tz := a.timezone
	a.mu.RUnlock()

	msg := ScrapeMessage{
		Device:    a.device,
		Timestamp: start.UTC(),
		Values:    values,
		Meta:      make(map[string]PointMeta, len(values)),
	}
	for _, p := range a.driver.Points() {
		if _, ok := values[p.Name]; !ok {
			msg.Failed = append(msg.Failed, p.Name)
			continue
		}
		msg.Meta[p.Name] = PointMeta{Units: p.Units, Type: string(p.Type), TZ: tz}
	}
	sort.Strings(msg.Failed)

	a.mu.Lock()
	a.lastScrape = &msg
	a.mu.Unlock()

	a.publishScrape(msg)
	if a.metrics != nil {
		a.metrics.RecordScrape(a.device, values, len(msg.Failed), took)
	}
	if a.observer != nil {
		a.observer.PointsScraped(msg)
	}
	a.publishHealth(a.healthStatus())

	a.logDebug("scrape complete", "device", a.device, "ok", len(values), "failed", len(msg.Failed), "took", took)
	return msg
}

// Points describes every point in registry order.
func (a *Agent) Points() []hass.PointInfo {
	return a.driver.Points()
}

// Point describes one point.
func (a *Agent) Point(name string) (hass.PointInfo, error) {
	return a.driver.Point(name)
}

// GetPoint reads one point from the hub.
func (a *Agent) GetPoint(ctx context.Context, name string) (any, error) {
	start := time.Now()
	v, err := a.driver.GetPoint(ctx, name)
	a.record(name, ActionGet, err, start)
	return v, err
}

// SetPoint writes one point and returns the value sent.
func (a *Agent) SetPoint(ctx context.Context, name string, value any) (any, error) {
	start := time.Now()
	v, err := a.driver.SetPoint(ctx, name, value)
	a.record(name, ActionSet, err, start)
	if err == nil {
		a.logInfo("point set", "device", a.device, "point", name, "value", v)
	}
	return v, err
}

// RevertPoint restores one point to its revert value.
func (a *Agent) RevertPoint(ctx context.Context, name string) error {
	start := time.Now()
	err := a.driver.RevertPoint(ctx, name)
	a.record(name, ActionRevert, err, start)
	return err
}

// RevertAll restores every writable point that has a revert value.
func (a *Agent) RevertAll(ctx context.Context) error {
	start := time.Now()
	err := a.driver.RevertAll(ctx)
	a.record(AllPoints, ActionRevert, err, start)
	return err
}

// SetDefault changes the value a point reverts to.
func (a *Agent) SetDefault(name string, value any) error {
	return a.driver.SetDefault(name, value)
}

// LastScrape returns the most recent scrape, or nil before the first.
func (a *Agent) LastScrape() *ScrapeMessage {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastScrape
}

func (a *Agent) record(point, action string, err error, start time.Time) {
	if a.metrics != nil {
		a.metrics.RecordCommand(a.device, point, action, err, time.Since(start))
	}
}

// Health returns the current health report.
func (a *Agent) Health() HealthMessage {
	status, reason := a.healthStatus()
	return a.healthMessage(status, reason)
}

func (a *Agent) healthStatus() (HealthStatus, string) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	switch {
	case !a.configured && a.lastErr != nil:
		return HealthUnhealthy, a.lastErr.Error()
	case !a.configured:
		return HealthStarting, "device not loaded"
	case a.lastErr != nil:
		return HealthDegraded, "reload failed: " + a.lastErr.Error()
	case a.lastScrape == nil:
		return HealthHealthy, ""
	case len(a.lastScrape.Values) == 0 && len(a.lastScrape.Failed) > 0:
		return HealthUnhealthy, "every point failed in the last scrape"
	case len(a.lastScrape.Failed) > 0:
		return HealthDegraded, fmt.Sprintf("%d points failed in the last scrape", len(a.lastScrape.Failed))
	}
	return HealthHealthy, ""
}

func (a *Agent) healthMessage(status HealthStatus, reason string) HealthMessage {
	msg := HealthMessage{
		Device:        a.device,
		Timestamp:     time.Now().UTC(),
		Status:        status,
		Version:       a.version,
		UptimeSeconds: int64(time.Since(a.startTime).Seconds()),
		Points:        len(a.driver.Points()),
		Reason:        reason,
	}
	a.mu.RLock()
	msg.Hub = a.hub
	if s := a.lastScrape; s != nil {
		ts := s.Timestamp
		msg.LastScrape = &ts
		msg.ScrapedOK = len(s.Values)
		msg.ScrapeFailed = len(s.Failed)
	}
	a.mu.RUnlock()
	return msg
}

func (a *Agent) publishHealth(status HealthStatus, reason string) {
	a.publish(a.topics.Health(a.device), a.healthMessage(status, reason), true)
}

func (a *Agent) publishScrape(msg ScrapeMessage) {
	if a.bus == nil {
		return
	}
	a.publish(a.topics.DeviceAll(a.device), msg, true)
	for name, v := range msg.Values {
		a.publish(a.topics.DevicePoint(a.device, name), PointMessage{
			Timestamp: msg.Timestamp,
			Value:     v,
			Meta:      msg.Meta[name],
		}, true)
	}
}

// publish marshals v and sends it, logging failures.
func (a *Agent) publish(topic string, v any, retained bool) {
	if a.bus == nil {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		a.logError("encoding message failed", err, "topic", topic)
		return
	}
	if err := a.bus.Publish(topic, payload, a.qos, retained); err != nil {
		a.logWarn("publish failed", "topic", topic, "error", err)
	}
}

func (a *Agent) logDebug(msg string, args ...any) {
	if a.logger != nil {
		a.logger.Debug(msg, args...)
	}
}

func (a *Agent) logInfo(msg string, args ...any) {
	if a.logger != nil {
		a.logger.Info(msg, args...)
	}
}

func (a *Agent) logWarn(msg string, args ...any) {
	if a.logger != nil {
		a.logger.Warn(msg, args...)
	}
}

func (a *Agent) logError(msg string, err error, args ...any) {
	if a.logger != nil {
		a.logger.Error(msg, append([]any{"error", err}, args...)...)
	}
}
