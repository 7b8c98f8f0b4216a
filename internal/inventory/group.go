package inventory

import "regexp"

// Builtin group names. Both exist for the lifetime of a Store and
// "ungrouped" is always a child of "all".
const (
	GroupAll       = "all"
	GroupUngrouped = "ungrouped"
)

var invalidGroupChars = regexp.MustCompile(`[^A-Za-z0-9_]`)

// CanonicalGroupName sanitizes a requested group name into its canonical
// form: any character outside [A-Za-z0-9_] is replaced with an underscore.
// Callers must use the returned name for subsequent operations.
func CanonicalGroupName(name string) string {
	return invalidGroupChars.ReplaceAllString(name, "_")
}

// Group represents a named collection of hosts and child groups. Membership
// and ancestry are stored as names; traversals (ancestors, transitive hosts)
// go through the owning Store.
type Group struct {
	Name string         `json:"name" yaml:"name"`
	Vars map[string]any `json:"vars,omitempty" yaml:"vars,omitempty"`

	hosts    []string
	children []string
	parents  []string
}

// NewGroup creates a group with initialized variables. The name is expected
// to be canonical already; Store.AddGroup canonicalizes before construction.
func NewGroup(name string) *Group {
	return &Group{
		Name: name,
		Vars: make(map[string]any),
	}
}

// SetVariable sets a variable on the group, overwriting any previous value.
func (g *Group) SetVariable(key string, value any) {
	if g.Vars == nil {
		g.Vars = make(map[string]any)
	}
	g.Vars[key] = value
}

// Hosts returns the names of the group's directly-owned member hosts, in
// membership order. The returned slice is a copy.
func (g *Group) Hosts() []string {
	out := make([]string, len(g.hosts))
	copy(out, g.hosts)
	return out
}

// Children returns the names of the group's direct child groups.
func (g *Group) Children() []string {
	out := make([]string, len(g.children))
	copy(out, g.children)
	return out
}

// Parents returns the names of the group's direct parent groups. Parents are
// derived from child insertion and are not independently settable.
func (g *Group) Parents() []string {
	out := make([]string, len(g.parents))
	copy(out, g.parents)
	return out
}

// HasChild reports whether the named group is a direct child of this group.
func (g *Group) HasChild(name string) bool {
	return hasName(g.children, name)
}

// HasHost reports whether the named host is a direct member of this group.
func (g *Group) HasHost(name string) bool {
	return hasName(g.hosts, name)
}

func (g *Group) addHost(name string) bool {
	if hasName(g.hosts, name) {
		return false
	}
	g.hosts = append(g.hosts, name)
	return true
}

func (g *Group) removeHost(name string) bool {
	var removed bool
	g.hosts, removed = removeName(g.hosts, name)
	return removed
}

func (g *Group) addChild(name string) bool {
	if hasName(g.children, name) {
		return false
	}
	g.children = append(g.children, name)
	return true
}

func (g *Group) removeChild(name string) {
	g.children, _ = removeName(g.children, name)
}

func (g *Group) addParent(name string) bool {
	if hasName(g.parents, name) {
		return false
	}
	g.parents = append(g.parents, name)
	return true
}

func (g *Group) removeParent(name string) {
	g.parents, _ = removeName(g.parents, name)
}

// Ordered name-slice helpers shared by Host and Group. Membership sets are
// small; linear scans keep insertion order without a side index.

func hasName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func removeName(names []string, name string) ([]string, bool) {
	for i, n := range names {
		if n == name {
			return append(names[:i], names[i+1:]...), true
		}
	}
	return names, false
}
