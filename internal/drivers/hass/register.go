package hass

import "sync"

// subPointState selects an entity's primary state rather than an attribute.
const subPointState = "state"

// Register is one platform point bound to a hub entity and sub-point.
//
// Identity fields are fixed at construction. The last known value, the
// revert default and the pre-write snapshot are guarded by an internal
// lock so the poller, command handlers and API may share a register.
type Register struct {
	Name        string
	EntityID    string
	SubPoint    string
	Domain      Domain
	Type        ValueType
	ReadOnly    bool
	Units       string
	Description string

	// Attributes is passed through from the registry untouched.
	Attributes map[string]any

	mu         sync.RWMutex
	lastValue  any
	hasValue   bool
	defaultVal any
	hasDefault bool
	dirty      bool // written since the last revert
	cleanVal   any  // value observed before the first write
	hasClean   bool
}

// NewRegister creates a register and derives its domain from entityID.
// An empty subPoint selects the entity state.
func NewRegister(name, entityID, subPoint string, typ ValueType, readOnly bool) *Register {
	if subPoint == "" {
		subPoint = subPointState
	}
	return &Register{
		Name:     name,
		EntityID: entityID,
		SubPoint: subPoint,
		Domain:   DomainOf(entityID),
		Type:     typ,
		ReadOnly: readOnly,
	}
}

// IsState reports whether the register addresses the entity's state.
func (r *Register) IsState() bool {
	return r.SubPoint == subPointState
}

// LastValue returns the value recorded by the most recent successful read,
// or the registry starting value before the first read. ok is false if
// neither exists.
func (r *Register) LastValue() (value any, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastValue, r.hasValue
}

func (r *Register) setLastValue(v any) {
	r.mu.Lock()
	r.lastValue = v
	r.hasValue = true
	r.mu.Unlock()
}

// Default returns the value RevertPoint writes back.
func (r *Register) Default() (value any, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultVal, r.hasDefault
}

func (r *Register) setDefault(v any) {
	r.mu.Lock()
	r.defaultVal = v
	r.hasDefault = true
	r.mu.Unlock()
}

// markWritten records a successful write. The first write after a clean
// state keeps prev, the value read before the write was sent, as the
// revert fallback.
func (r *Register) markWritten(prev any, hadPrev bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.dirty {
		return
	}
	r.dirty = true
	r.cleanVal, r.hasClean = prev, hadPrev
}

// revertValue picks the configured default, falling back to the captured
// pre-write value.
func (r *Register) revertValue() (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.hasDefault {
		return r.defaultVal, true
	}
	if r.dirty && r.hasClean && r.cleanVal != nil {
		return r.cleanVal, true
	}
	return nil, false
}

func (r *Register) markClean() {
	r.mu.Lock()
	r.dirty = false
	r.cleanVal, r.hasClean = nil, false
	r.mu.Unlock()
}

// PointInfo is a point-in-time description of a register.
type PointInfo struct {
	Name        string         `json:"name"`
	EntityID    string         `json:"entity_id"`
	SubPoint    string         `json:"entity_point"`
	Domain      string         `json:"domain"`
	Type        ValueType      `json:"type"`
	ReadOnly    bool           `json:"read_only"`
	Units       string         `json:"units,omitempty"`
	Description string         `json:"description,omitempty"`
	Attributes  map[string]any `json:"attributes,omitempty"`
	Value       any            `json:"value"`
	Default     any            `json:"default,omitempty"`
}

// Info snapshots the register.
func (r *Register) Info() PointInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info := PointInfo{
		Name:        r.Name,
		EntityID:    r.EntityID,
		SubPoint:    r.SubPoint,
		Domain:      r.Domain.String(),
		Type:        r.Type,
		ReadOnly:    r.ReadOnly,
		Units:       r.Units,
		Description: r.Description,
		Attributes:  r.Attributes,
		Value:       r.lastValue,
	}
	if r.hasDefault {
		info.Default = r.defaultVal
	}
	return info
}
