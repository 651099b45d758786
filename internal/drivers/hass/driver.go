package hass

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
)

// Logger is the logging interface used by the driver.
// It is satisfied by *logging.Logger and *slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// DriverOptions holds the collaborators of a Driver.
type DriverOptions struct {
	// Transport overrides the HTTP transport built by Configure.
	// Tests inject fakes here.
	Transport Transport

	// HTTPClient is used by the transport built by Configure.
	// Optional; a client with the configured timeout is created if nil.
	HTTPClient *http.Client

	// Logger is optional.
	Logger Logger
}

// Driver translates between platform points and one Home Assistant hub.
//
// Every read or write issues exactly one blocking hub request and returns
// its outcome; there are no retries.
//
// Thread Safety: all methods are safe for concurrent use. Configure swaps
// the register set atomically with respect to other calls.
type Driver struct {
	httpClient        *http.Client
	injectedTransport Transport
	logger            Logger

	mu        sync.RWMutex
	cfg       Config
	transport Transport
	registers []*Register
	byName    map[string]*Register
}

// NewDriver creates an unconfigured driver.
func NewDriver(opts DriverOptions) *Driver {
	return &Driver{
		httpClient:        opts.HTTPClient,
		injectedTransport: opts.Transport,
		logger:            opts.Logger,
	}
}

// Configure validates the connection parameters and builds the register
// set from rows. Nothing is changed if either step fails.
//
// Parameters:
//   - cfg: Hub connection parameters (ip_address, access_token, port)
//   - rows: Registry rows in file order
//
// Returns:
//   - error: *ConfigError listing every problem found
func (d *Driver) Configure(cfg Config, rows []RegistryRow) error {
	if err := cfg.Validate(); err != nil {
		d.logError("driver configuration rejected", err)
		return err
	}

	regs, err := ParseRegistry(rows)
	if err != nil {
		d.logError("registry rejected", err)
		return err
	}

	byName := make(map[string]*Register, len(regs))
	for _, r := range regs {
		byName[r.Name] = r
	}

	transport := d.injectedTransport
	if transport == nil {
		transport = NewHTTPTransport(cfg, d.httpClient, d.logger)
	}

	d.mu.Lock()
	d.cfg = cfg
	d.transport = transport
	d.registers = regs
	d.byName = byName
	d.mu.Unlock()

	d.logInfo("driver configured",
		"hub", cfg.BaseURL(),
		"points", len(regs),
	)
	return nil
}

// lookup resolves a point name and the current transport.
func (d *Driver) lookup(name string) (*Register, Transport, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.transport == nil {
		return nil, nil, ErrNotConfigured
	}
	reg, ok := d.byName[name]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return reg, d.transport, nil
}

// snapshot returns the register list and transport.
func (d *Driver) snapshot() ([]*Register, Transport) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.registers, d.transport
}

// GetPoint fetches and decodes one point, recording it as the point's
// last value.
//
// Returns:
//   - any: Decoded platform value
//   - error: ErrNotFound, a *HubError, or ErrUnexpectedState
func (d *Driver) GetPoint(ctx context.Context, name string) (any, error) {
	reg, transport, err := d.lookup(name)
	if err != nil {
		return nil, err
	}
	return d.read(ctx, transport, reg)
}

func (d *Driver) read(ctx context.Context, transport Transport, reg *Register) (any, error) {
	state, err := transport.GetState(ctx, reg.EntityID)
	if err != nil {
		return nil, err
	}
	value, err := HandlerFor(reg.Domain).Decode(reg.SubPoint, state)
	if err != nil {
		return nil, err
	}
	reg.setLastValue(value)
	return value, nil
}

// SetPoint writes value to a point through exactly one hub service call.
//
// The value is first coerced to the point's declared type, then validated
// and encoded by the point's domain handler. The point's last value is
// not changed; the next scrape reports what the hub applied.
//
// Parameters:
//   - ctx: Context forwarded to the HTTP request
//   - name: Point name
//   - value: Platform value (number, bool or string)
//
// Returns:
//   - any: The coerced value that was sent
//   - error: ErrNotFound, ErrReadOnly, *CoercionError, *ValidationError or *HubError
func (d *Driver) SetPoint(ctx context.Context, name string, value any) (any, error) {
	reg, transport, err := d.lookup(name)
	if err != nil {
		return nil, err
	}
	if reg.ReadOnly {
		return nil, fmt.Errorf("%w: %q", ErrReadOnly, name)
	}

	coerced, err := coerceWrite(reg, value)
	if err != nil {
		return nil, err
	}

	cmd, err := HandlerFor(reg.Domain).Encode(reg, coerced)
	if err != nil {
		d.logWarn("point write rejected", "point", name, "entity_id", reg.EntityID, "error", err)
		return nil, err
	}

	prev, hadPrev := reg.LastValue()
	if err := transport.CallService(ctx, cmd); err != nil {
		d.logError("hub service call failed", err, "point", name, "service", cmd.Domain+"."+cmd.Service)
		return nil, err
	}
	reg.markWritten(prev, hadPrev)
	return coerced, nil
}

// ScrapeAll reads every point, read-only points first, then writable
// points, each group in registry order.
//
// A point whose read fails is logged and left out of the result; one bad
// entity never aborts the scrape.
func (d *Driver) ScrapeAll(ctx context.Context) map[string]any {
	regs, transport := d.snapshot()
	result := make(map[string]any, len(regs))
	if transport == nil {
		return result
	}

	for _, group := range [...]bool{true, false} {
		for _, reg := range regs {
			if reg.ReadOnly != group {
				continue
			}
			value, err := d.read(ctx, transport, reg)
			if err != nil {
				d.logError("scrape failed for point", err, "point", reg.Name, "entity_id", reg.EntityID)
				continue
			}
			result[reg.Name] = value
		}
	}
	return result
}

// RevertPoint writes the point's revert value: its configured default, or
// failing that the value scraped before it was first written.
//
// Returns:
//   - error: ErrNoRevertValue when neither exists, or any SetPoint error
func (d *Driver) RevertPoint(ctx context.Context, name string) error {
	reg, _, err := d.lookup(name)
	if err != nil {
		return err
	}
	value, ok := reg.revertValue()
	if !ok {
		return fmt.Errorf("%w: %q", ErrNoRevertValue, name)
	}
	if _, err := d.SetPoint(ctx, name, value); err != nil {
		return err
	}
	reg.markClean()
	return nil
}

// RevertAll reverts every writable point that has a revert value and
// returns the joined errors of the points that failed.
func (d *Driver) RevertAll(ctx context.Context) error {
	regs, transport := d.snapshot()
	if transport == nil {
		return ErrNotConfigured
	}

	var errs []error
	for _, reg := range regs {
		if reg.ReadOnly {
			continue
		}
		if _, ok := reg.revertValue(); !ok {
			continue
		}
		if err := d.RevertPoint(ctx, reg.Name); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", reg.Name, err))
		}
	}
	return errors.Join(errs...)
}

// SetDefault changes the value a point reverts to. The value is
// normalised and coerced exactly as SetPoint would.
func (d *Driver) SetDefault(name string, value any) error {
	reg, _, err := d.lookup(name)
	if err != nil {
		return err
	}
	coerced, err := coerceWrite(reg, value)
	if err != nil {
		return err
	}
	reg.setDefault(coerced)
	return nil
}

// Points describes every register in registry order.
func (d *Driver) Points() []PointInfo {
	regs, _ := d.snapshot()
	out := make([]PointInfo, 0, len(regs))
	for _, r := range regs {
		out = append(out, r.Info())
	}
	return out
}

// Point describes one register.
func (d *Driver) Point(name string) (PointInfo, error) {
	reg, _, err := d.lookup(name)
	if err != nil {
		return PointInfo{}, err
	}
	return reg.Info(), nil
}

// logInfo logs an info message if a logger is configured.
// coerceWrite maps domain synonyms ("locked", "open") to their canonical
// form, then coerces to the register's declared type.
func coerceWrite(reg *Register, value any) (any, error) {
	raw := value
	if reg.Type != TypeString {
		raw = canonicalWrite(reg.Domain, reg.SubPoint, value)
	}
	return Coerce(reg.Type, raw)
}

func (d *Driver) logInfo(msg string, keysAndValues ...any) {
	if d.logger != nil {
		d.logger.Info(msg, keysAndValues...)
	}
}

// logWarn logs a warning if a logger is configured.
func (d *Driver) logWarn(msg string, keysAndValues ...any) {
	if d.logger != nil {
		d.logger.Warn(msg, keysAndValues...)
	}
}

// logError logs an error if a logger is configured.
func (d *Driver) logError(msg string, err error, keysAndValues ...any) {
	if d.logger != nil {
		args := append([]any{"error", err}, keysAndValues...)
		d.logger.Error(msg, args...)
	}
}
