package inventory

// Snapshot is a plain-data copy of the store state, used by the repository
// layer for persistence and by the codecs for export. Records are sorted by
// name so snapshots of equal stores compare equal.
type Snapshot struct {
	Hosts   []HostRecord  `json:"hosts" yaml:"hosts"`
	Groups  []GroupRecord `json:"groups" yaml:"groups"`
	Sources []string      `json:"sources,omitempty" yaml:"sources,omitempty"`
}

// HostRecord is the persisted form of a Host, including its direct group
// memberships.
type HostRecord struct {
	Name     string         `json:"name" yaml:"name"`
	Address  string         `json:"address" yaml:"address"`
	Port     int            `json:"port,omitempty" yaml:"port,omitempty"`
	UUID     string         `json:"uuid" yaml:"uuid"`
	Implicit bool           `json:"implicit,omitempty" yaml:"implicit,omitempty"`
	Source   string         `json:"source,omitempty" yaml:"source,omitempty"`
	Vars     map[string]any `json:"vars,omitempty" yaml:"vars,omitempty"`
	Groups   []string       `json:"groups,omitempty" yaml:"groups,omitempty"`
}

// GroupRecord is the persisted form of a Group, including its member hosts
// and child groups. Parent links are reconstructed from the child edges.
type GroupRecord struct {
	Name     string         `json:"name" yaml:"name"`
	Vars     map[string]any `json:"vars,omitempty" yaml:"vars,omitempty"`
	Hosts    []string       `json:"hosts,omitempty" yaml:"hosts,omitempty"`
	Children []string       `json:"children,omitempty" yaml:"children,omitempty"`
}

// cloneVars copies a variable map for a record, normalizing empty to nil so
// records serialize and compare consistently.
func cloneVars(vars map[string]any) map[string]any {
	if len(vars) == 0 {
		return nil
	}
	return combineVars(nil, vars)
}

// emptyToNil normalizes an empty name list to nil for the same reason.
func emptyToNil(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	return names
}

// Record returns a detached plain-data copy of the host.
func (h *Host) Record() HostRecord {
	return HostRecord{
		Name:     h.Name,
		Address:  h.Address,
		Port:     h.Port,
		UUID:     h.UUID,
		Implicit: h.Implicit,
		Source:   h.Source,
		Vars:     cloneVars(h.Vars),
		Groups:   emptyToNil(h.Groups()),
	}
}

// Record returns a detached plain-data copy of the group.
func (g *Group) Record() GroupRecord {
	return GroupRecord{
		Name:     g.Name,
		Vars:     cloneVars(g.Vars),
		Hosts:    emptyToNil(g.Hosts()),
		Children: emptyToNil(g.Children()),
	}
}

// Snapshot captures the current store state.
func (s *Store) Snapshot() *Snapshot {
	snap := &Snapshot{
		Hosts:   make([]HostRecord, 0, len(s.hosts)),
		Groups:  make([]GroupRecord, 0, len(s.groups)),
		Sources: emptyToNil(s.ProcessedSources()),
	}

	for _, h := range s.Hosts() {
		snap.Hosts = append(snap.Hosts, h.Record())
	}
	for _, g := range s.Groups() {
		snap.Groups = append(snap.Groups, g.Record())
	}

	return snap
}

// FromSnapshot reconstructs a store from a snapshot. Membership edges
// naming entities absent from the snapshot are dropped with a warning; the
// rebuilt store is best-effort self-consistent, and a Reconcile pass will
// repair the rest.
func FromSnapshot(snap *Snapshot, opts ...Option) *Store {
	s := New(opts...)
	s.processedSources = append(s.processedSources, snap.Sources...)

	for _, gr := range snap.Groups {
		g, ok := s.groups[gr.Name]
		if !ok {
			g = NewGroup(gr.Name)
			s.groups[gr.Name] = g
		}
		g.Vars = combineVars(gr.Vars, nil)
	}

	for _, hr := range snap.Hosts {
		h := NewHost(hr.Name, hr.Port)
		if hr.UUID != "" {
			h.UUID = hr.UUID
		}
		if hr.Address != "" {
			h.Address = hr.Address
		}
		h.Implicit = hr.Implicit
		h.Source = hr.Source
		h.Vars = combineVars(hr.Vars, nil)
		s.hosts[hr.Name] = h

		if s.localhost == nil && (hr.Implicit || s.isLocalhostAlias(hr.Name)) {
			s.localhost = h
		}
	}

	for _, gr := range snap.Groups {
		g := s.groups[gr.Name]
		for _, hname := range gr.Hosts {
			h, ok := s.hosts[hname]
			if !ok {
				s.warnf("snapshot group %q references unknown host %q, dropping", gr.Name, hname)
				continue
			}
			s.link(g, h)
		}
		for _, cname := range gr.Children {
			c, ok := s.groups[cname]
			if !ok {
				s.warnf("snapshot group %q references unknown child group %q, dropping", gr.Name, cname)
				continue
			}
			if _, err := s.addChildGroup(g, c); err != nil {
				s.warnf("snapshot group %q: %v, dropping child %q", gr.Name, err, cname)
			}
		}
	}

	// Edge linking walks groups in sorted order, which can scramble each
	// host's membership order; restore the recorded per-host order.
	for _, hr := range snap.Hosts {
		h := s.hosts[hr.Name]
		if len(hr.Groups) != len(h.groups) {
			continue
		}
		ordered := make([]string, 0, len(hr.Groups))
		for _, gname := range hr.Groups {
			if hasName(h.groups, gname) {
				ordered = append(ordered, gname)
			}
		}
		if len(ordered) == len(h.groups) {
			h.groups = ordered
		}
	}

	s.invalidate()
	return s
}
