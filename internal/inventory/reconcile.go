package inventory

// Reconcile restores the store's structural invariants after a batch of
// mutations. It is idempotent and safe to re-run any number of times;
// loaders call it after each source and once more after the final source.
// The pass has no failure mode of its own: it only repairs structure and
// emits warnings.
func (s *Store) Reconcile() {
	s.currentSource = ""
	s.ensureBuiltins()

	// Every group except "all" must reach "all" through its ancestry;
	// attach disconnected groups directly.
	for name := range s.groups {
		if name == GroupAll {
			continue
		}
		if len(s.Ancestors(name)) == 0 {
			if _, err := s.AddChild(GroupAll, name); err != nil {
				s.warnf("unable to attach group %q under %q: %v", name, GroupAll, err)
			}
		}
	}

	all := s.groups[GroupAll]
	ungrouped := s.groups[GroupUngrouped]

	for _, h := range s.hosts {
		if h.InGroup(GroupUngrouped) {
			// Clear "ungrouped" of hosts a source assigned elsewhere.
			if hasMeaningfulGroup(h.groups) {
				s.unlink(ungrouped, h)
			}
		} else if !h.Implicit {
			// Hosts with no membership beyond "all" belong in
			// "ungrouped"; the implicit localhost never does.
			if len(h.groups) == 0 || (len(h.groups) == 1 && h.groups[0] == GroupAll) {
				s.link(ungrouped, h)
			}
		}

		// Implicit hosts inherit the "all" group's variables; values the
		// host already carries always win.
		if h.Implicit {
			h.Vars = combineVars(all.Vars, h.Vars)
		}
	}

	// Overloading a name as both group and host is tolerated but flagged.
	for name := range s.groups {
		if _, ok := s.hosts[name]; ok {
			s.warnf("found both group and host with same name: %s", name)
		}
	}

	s.invalidate()
}

// hasMeaningfulGroup reports whether the membership list names any group
// besides the builtins.
func hasMeaningfulGroup(groups []string) bool {
	for _, name := range groups {
		if name != GroupAll && name != GroupUngrouped {
			return true
		}
	}
	return false
}
