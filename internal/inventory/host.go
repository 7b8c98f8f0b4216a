package inventory

import "github.com/google/uuid"

// Host represents a single managed node. Identity is by name: two AddHost
// calls with the same name resolve to the same entity. The UUID identifies
// the live instance and is regenerated whenever the entity is recreated.
type Host struct {
	Name    string         `json:"name" yaml:"name"`
	Address string         `json:"address" yaml:"address"`
	Port    int            `json:"port,omitempty" yaml:"port,omitempty"`
	UUID    string         `json:"uuid" yaml:"uuid"`
	Vars    map[string]any `json:"vars,omitempty" yaml:"vars,omitempty"`

	// Implicit is true only for the synthetic localhost created by the
	// implicit-localhost factory.
	Implicit bool `json:"implicit,omitempty" yaml:"implicit,omitempty"`

	// Source is the inventory source that first created this host, or ""
	// when no source context was active.
	Source string `json:"source,omitempty" yaml:"source,omitempty"`

	groups []string
}

// NewHost creates a host with initialized variables. A zero port means no
// explicit connection port.
func NewHost(name string, port int) *Host {
	return &Host{
		Name:    name,
		Address: name,
		Port:    port,
		UUID:    uuid.NewString(),
		Vars:    make(map[string]any),
	}
}

// SetVariable sets a variable on the host, overwriting any previous value.
func (h *Host) SetVariable(key string, value any) {
	if h.Vars == nil {
		h.Vars = make(map[string]any)
	}
	h.Vars[key] = value
}

// Groups returns the names of the groups the host is a direct member of, in
// membership order. The returned slice is a copy.
func (h *Host) Groups() []string {
	out := make([]string, len(h.groups))
	copy(out, h.groups)
	return out
}

// InGroup reports whether the host is a direct member of the named group.
func (h *Host) InGroup(name string) bool {
	return hasName(h.groups, name)
}

func (h *Host) addGroup(name string) bool {
	if hasName(h.groups, name) {
		return false
	}
	h.groups = append(h.groups, name)
	return true
}

func (h *Host) removeGroup(name string) bool {
	var removed bool
	h.groups, removed = removeName(h.groups, name)
	return removed
}
