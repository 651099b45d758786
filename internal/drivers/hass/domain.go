package hass

import "strings"

// Domain is the device class of a hub entity, derived from the prefix of
// its entity id. It selects the codec rules applied on read and write.
type Domain int

// Recognised domains. DomainUnknown entities are read as raw passthrough
// and reject all writes.
const (
	DomainUnknown Domain = iota
	DomainLight
	DomainInputBoolean
	DomainClimate
	DomainLock
	DomainFan
	DomainCover
)

// domainPrefixes is checked in order; the first match wins.
var domainPrefixes = [...]struct {
	prefix string
	domain Domain
}{
	{"light.", DomainLight},
	{"input_boolean.", DomainInputBoolean},
	{"climate.", DomainClimate},
	{"lock.", DomainLock},
	{"fan.", DomainFan},
	{"cover.", DomainCover},
}

var domainNames = map[Domain]string{
	DomainUnknown:      "unknown",
	DomainLight:        "light",
	DomainInputBoolean: "input_boolean",
	DomainClimate:      "climate",
	DomainLock:         "lock",
	DomainFan:          "fan",
	DomainCover:        "cover",
}

// DomainOf classifies an entity id such as "lock.front_door".
func DomainOf(entityID string) Domain {
	for _, p := range domainPrefixes {
		if strings.HasPrefix(entityID, p.prefix) {
			return p.domain
		}
	}
	return DomainUnknown
}

// String returns the hub's name for the domain.
func (d Domain) String() string {
	if name, ok := domainNames[d]; ok {
		return name
	}
	return domainNames[DomainUnknown]
}

// Writable reports whether any write rules exist for the domain.
func (d Domain) Writable() bool {
	return d != DomainUnknown
}

// hubDomain returns the domain segment of an entity id, used for service
// paths of unrecognised entities in error messages.
func hubDomain(entityID string) string {
	if i := strings.IndexByte(entityID, '.'); i > 0 {
		return entityID[:i]
	}
	return entityID
}
