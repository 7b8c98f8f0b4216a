package inventory

import (
	"fmt"
	"log"
	"sort"
)

// WarnFunc receives soft-condition warnings from the store. Warnings never
// abort an operation.
type WarnFunc func(format string, args ...any)

// Option configures a Store at construction time.
type Option func(*Store)

// WithWarnFunc replaces the store's warning sink. The default logs through
// the standard logger.
func WithWarnFunc(fn WarnFunc) Option {
	return func(s *Store) { s.warnf = fn }
}

// WithLocalhostAliases replaces the set of names recognized as the local
// machine by the implicit-localhost factory.
func WithLocalhostAliases(aliases []string) Option {
	return func(s *Store) {
		s.aliases = make(map[string]struct{}, len(aliases))
		for _, a := range aliases {
			s.aliases[a] = struct{}{}
		}
	}
}

// Store holds the inventory graph: all hosts and groups, the derived-view
// cache, and the canonical localhost. Using its methods guarantees the
// expected relationships between entities.
type Store struct {
	hosts  map[string]*Host
	groups map[string]*Group

	// groupsDict memoizes GroupsDict; nil means stale.
	groupsDict map[string][]string

	// localhost is the canonical localhost, implicit or explicit.
	localhost *Host

	currentSource    string
	processedSources []string

	aliases map[string]struct{}
	warnf   WarnFunc
}

// New creates an empty store containing the builtin "all" and "ungrouped"
// groups, with "ungrouped" attached as a child of "all".
func New(opts ...Option) *Store {
	s := &Store{
		hosts:  make(map[string]*Host),
		groups: make(map[string]*Group),
		warnf: func(format string, args ...any) {
			log.Printf("WARNING: "+format, args...)
		},
	}
	WithLocalhostAliases(DefaultLocalhostAliases)(s)
	for _, opt := range opts {
		opt(s)
	}
	s.ensureBuiltins()
	return s
}

// ensureBuiltins guarantees the builtin groups and their relation exist.
// Called from New and from Reconcile so the invariant survives removal.
func (s *Store) ensureBuiltins() {
	for _, name := range []string{GroupAll, GroupUngrouped} {
		if _, ok := s.groups[name]; !ok {
			s.groups[name] = NewGroup(name)
			s.invalidate()
		}
	}
	all := s.groups[GroupAll]
	ungrouped := s.groups[GroupUngrouped]
	if all.addChild(GroupUngrouped) {
		ungrouped.addParent(GroupAll)
		s.invalidate()
	}
}

// SetSource sets the current source context recorded on newly created hosts.
// An empty name clears the context. Each non-empty source is remembered in
// the processed-source list.
func (s *Store) SetSource(name string) {
	s.currentSource = name
	if name != "" && !hasName(s.processedSources, name) {
		s.processedSources = append(s.processedSources, name)
	}
}

// Source returns the currently-active source context, or "" if none.
func (s *Store) Source() string {
	return s.currentSource
}

// ProcessedSources returns the names of all sources loaded so far, in order.
func (s *Store) ProcessedSources() []string {
	out := make([]string, len(s.processedSources))
	copy(out, s.processedSources)
	return out
}

// AddGroup adds a group to the inventory if not already present and returns
// the canonical name actually used. Adding an existing group is not an
// error.
func (s *Store) AddGroup(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: empty group name", ErrInvalidName)
	}

	canonical := CanonicalGroupName(name)
	if canonical != name {
		s.warnf("replacing invalid characters in group name %q, using %q", name, canonical)
	}

	if _, ok := s.groups[canonical]; !ok {
		s.groups[canonical] = NewGroup(canonical)
		s.invalidate()
	}

	return canonical, nil
}

// RemoveGroup removes the named group from the registry, from every host's
// membership set, and from every other group's child and parent sets. It is
// a no-op if the group is absent.
func (s *Store) RemoveGroup(name string) {
	if _, ok := s.groups[name]; !ok {
		return
	}
	delete(s.groups, name)

	for _, h := range s.hosts {
		h.removeGroup(name)
	}
	for _, g := range s.groups {
		g.removeChild(name)
		g.removeParent(name)
	}
	s.invalidate()
}

// AddHost adds a host to the inventory, and optionally assigns it to a
// group, if not already present. Repeated calls with the same name resolve
// to the same host; each call with a non-empty group additively assigns
// membership. A zero port means no explicit connection port. Returns the
// name actually used.
func (s *Store) AddHost(name, group string, port int) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: empty host name", ErrInvalidName)
	}

	var g *Group
	if group != "" {
		var ok bool
		if g, ok = s.groups[group]; !ok {
			return "", fmt.Errorf("%w: group %q", ErrUnknownEntity, group)
		}
	}

	h, ok := s.hosts[name]
	if !ok {
		h = NewHost(name, port)
		h.Source = s.currentSource
		s.hosts[name] = h

		// First localhost-like entry wins as the canonical default;
		// later ones only warn.
		if s.isLocalhostAlias(name) {
			if s.localhost == nil {
				s.localhost = h
			} else {
				s.warnf("duplicate localhost-like entry %q, keeping %q as localhost", name, s.localhost.Name)
			}
		}
	} else if h.Implicit && s.isLocalhostAlias(name) {
		// An explicit add under the alias the factory already claimed.
		// The warning is the only effect; the instance stays synthetic.
		s.warnf("duplicate localhost-like entry %q, keeping %q as localhost", name, s.localhost.Name)
	}

	if g != nil {
		s.link(g, h)
		s.invalidate()
	}

	return name, nil
}

// RemoveHost removes the named host from the registry and from every
// group's member set. It is a no-op if the host is absent.
func (s *Store) RemoveHost(name string) {
	h, ok := s.hosts[name]
	if !ok {
		return
	}
	delete(s.hosts, name)

	for _, g := range s.groups {
		g.removeHost(name)
	}
	if s.localhost == h {
		s.localhost = nil
	}
	s.invalidate()
}

// SetVariable sets a variable on the named entity, resolving groups first
// and hosts second. The write overwrites any previous value for the key.
func (s *Store) SetVariable(entity, key string, value any) error {
	if g, ok := s.groups[entity]; ok {
		g.SetVariable(key, value)
		return nil
	}
	if h, ok := s.hosts[entity]; ok {
		h.SetVariable(key, value)
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownEntity, entity)
}

// AddChild attaches child to the named group: as a child group if child
// names a registered group, as a member host if it names a registered host.
// Returns whether a new relation was created; re-adding an existing
// relation is not an error. Attachments that would make a group its own
// ancestor fail with ErrRecursiveDependency.
func (s *Store) AddChild(group, child string) (bool, error) {
	g, ok := s.groups[group]
	if !ok {
		return false, fmt.Errorf("%w: group %q", ErrUnknownEntity, group)
	}

	var added bool
	if cg, ok := s.groups[child]; ok {
		var err error
		if added, err = s.addChildGroup(g, cg); err != nil {
			return false, err
		}
	} else if h, ok := s.hosts[child]; ok {
		added = s.link(g, h)
	} else {
		return false, fmt.Errorf("%w: %q", ErrUnknownEntity, child)
	}

	s.invalidate()
	return added, nil
}

// addChildGroup attaches child under parent, rejecting self-attachment and
// any edge that would close a cycle in the ancestry.
func (s *Store) addChildGroup(parent, child *Group) (bool, error) {
	if parent.Name == child.Name {
		return false, fmt.Errorf("%w: cannot add group %q to itself", ErrRecursiveDependency, parent.Name)
	}
	if parent.HasChild(child.Name) {
		return false, nil
	}
	if hasName(s.Ancestors(parent.Name), child.Name) {
		return false, fmt.Errorf("%w: group %q is an ancestor of %q", ErrRecursiveDependency, child.Name, parent.Name)
	}

	parent.addChild(child.Name)
	child.addParent(parent.Name)
	return true, nil
}

// GetHost returns the registered host with the given name. If the name is a
// recognized localhost alias and no host is registered under it, the
// canonical implicit localhost is created (or reused) and returned. Returns
// nil when the host is absent; absence is an expected outcome, not an
// error.
func (s *Store) GetHost(name string) *Host {
	if h, ok := s.hosts[name]; ok {
		return h
	}
	if s.isLocalhostAlias(name) {
		return s.createImplicitLocalhost(name)
	}
	return nil
}

// Host returns the registered host without implicit-localhost creation.
func (s *Store) Host(name string) *Host {
	return s.hosts[name]
}

// Group returns the registered group with the given name, or nil.
func (s *Store) Group(name string) *Group {
	return s.groups[name]
}

// Localhost returns the canonical localhost, implicit or explicit, or nil
// if none has been established.
func (s *Store) Localhost() *Host {
	return s.localhost
}

// Hosts returns all registered hosts sorted by name.
func (s *Store) Hosts() []*Host {
	out := make([]*Host, 0, len(s.hosts))
	for _, h := range s.hosts {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Groups returns all registered groups sorted by name.
func (s *Store) Groups() []*Group {
	out := make([]*Group, 0, len(s.groups))
	for _, g := range s.groups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// HostCount returns the number of registered hosts.
func (s *Store) HostCount() int {
	return len(s.hosts)
}

// Ancestors returns the transitive parent closure of the named group, in
// depth-first order. Unknown groups yield nil. A visited set guards the
// traversal so it terminates even on a damaged graph.
func (s *Store) Ancestors(group string) []string {
	g, ok := s.groups[group]
	if !ok {
		return nil
	}

	var out []string
	seen := map[string]bool{group: true}
	var walk func(*Group)
	walk = func(g *Group) {
		for _, pname := range g.parents {
			if seen[pname] {
				continue
			}
			seen[pname] = true
			out = append(out, pname)
			if p := s.groups[pname]; p != nil {
				walk(p)
			}
		}
	}
	walk(g)
	return out
}

// GroupHosts returns the transitive union of the named group's directly
// owned hosts and the hosts of every descendant group, deduplicated and in
// traversal order. Unknown groups yield nil.
func (s *Store) GroupHosts(group string) []string {
	g, ok := s.groups[group]
	if !ok {
		return nil
	}

	out := []string{}
	seenHost := make(map[string]bool)
	seenGroup := make(map[string]bool)
	var walk func(*Group)
	walk = func(g *Group) {
		if seenGroup[g.Name] {
			return
		}
		seenGroup[g.Name] = true
		for _, hname := range g.hosts {
			if !seenHost[hname] {
				seenHost[hname] = true
				out = append(out, hname)
			}
		}
		for _, cname := range g.children {
			if c := s.groups[cname]; c != nil {
				walk(c)
			}
		}
	}
	walk(g)
	return out
}

// GroupsDict returns the mapping from group name to the transitive list of
// member host names, rebuilding the memoized view if a mutation has
// invalidated it. Callers must not modify the returned mapping.
func (s *Store) GroupsDict() map[string][]string {
	if s.groupsDict == nil {
		d := make(map[string][]string, len(s.groups))
		for name := range s.groups {
			d[name] = s.GroupHosts(name)
		}
		s.groupsDict = d
	}
	return s.groupsDict
}

// invalidate clears the derived-view cache in full. There is no partial
// invalidation: the next GroupsDict call rebuilds from scratch.
func (s *Store) invalidate() {
	s.groupsDict = nil
}

// link records the symmetric host<->group membership relation. Returns
// whether a new relation was created.
func (s *Store) link(g *Group, h *Host) bool {
	added := g.addHost(h.Name)
	if h.addGroup(g.Name) {
		added = true
	}
	return added
}

// unlink removes the symmetric host<->group membership relation.
func (s *Store) unlink(g *Group, h *Host) {
	g.removeHost(h.Name)
	h.removeGroup(g.Name)
}
