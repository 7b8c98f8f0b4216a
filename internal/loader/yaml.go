// Package loader reads YAML inventory sources and applies them to a store.
//
// A source document declares groups and hosts:
//
//	groups:
//	  web:
//	    members: [edge1, edge2]
//	    children: [api]
//	    vars:
//	      tier: frontend
//	hosts:
//	  edge1:
//	    port: 2222
//	    vars:
//	      role: edge
//
// Members and children are created on first mention, so a group may list
// hosts that have no entry of their own. The loader only mutates the store;
// callers run the reconciliation pass after each source.
package loader

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"inventorium/internal/inventory"
)

// SourceYAML is the top-level document structure.
type SourceYAML struct {
	Groups map[string]*GroupYAML `yaml:"groups,omitempty"`
	Hosts  map[string]*HostYAML  `yaml:"hosts,omitempty"`
}

// GroupYAML declares a group, its member hosts, child groups, and variables.
type GroupYAML struct {
	Members  []string       `yaml:"members,omitempty"`
	Children []string       `yaml:"children,omitempty"`
	Vars     map[string]any `yaml:"vars,omitempty"`
}

// HostYAML declares a host's connection port and variables.
type HostYAML struct {
	Port int            `yaml:"port,omitempty"`
	Vars map[string]any `yaml:"vars,omitempty"`
}

// LoadFile reads a YAML source from disk and applies it to the store. The
// file path becomes the source name recorded on hosts it creates.
func LoadFile(s *inventory.Store, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read source: %w", err)
	}
	return Load(s, path, data)
}

// Load parses a YAML source document and applies it to the store under the
// given source name.
func Load(s *inventory.Store, source string, data []byte) error {
	var doc SourceYAML
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse source %s: %w", source, err)
	}
	return Apply(s, source, &doc)
}

// Apply mutates the store to reflect the parsed document. Groups are created
// before edges so forward references between groups resolve, and names are
// processed in sorted order so repeated loads apply identically.
func Apply(s *inventory.Store, source string, doc *SourceYAML) error {
	s.SetSource(source)
	defer s.SetSource("")

	groupNames := make([]string, 0, len(doc.Groups))
	for name := range doc.Groups {
		groupNames = append(groupNames, name)
	}
	sort.Strings(groupNames)

	// First pass: register every group, including ones only mentioned as
	// children, and set group variables.
	canonical := make(map[string]string, len(doc.Groups))
	for _, name := range groupNames {
		cname, err := s.AddGroup(name)
		if err != nil {
			return fmt.Errorf("source %s: group %q: %w", source, name, err)
		}
		canonical[name] = cname

		if doc.Groups[name] == nil {
			doc.Groups[name] = &GroupYAML{}
		}
		for k, v := range doc.Groups[name].Vars {
			if err := s.SetVariable(cname, k, v); err != nil {
				return fmt.Errorf("source %s: group %q: %w", source, name, err)
			}
		}
	}
	for _, name := range groupNames {
		for _, child := range doc.Groups[name].Children {
			if _, err := s.AddGroup(child); err != nil {
				return fmt.Errorf("source %s: group %q child %q: %w", source, name, child, err)
			}
		}
	}

	// Standalone host entries.
	hostNames := make([]string, 0, len(doc.Hosts))
	for name := range doc.Hosts {
		hostNames = append(hostNames, name)
	}
	sort.Strings(hostNames)
	for _, name := range hostNames {
		entry := doc.Hosts[name]
		if entry == nil {
			entry = &HostYAML{}
		}
		if _, err := s.AddHost(name, "", entry.Port); err != nil {
			return fmt.Errorf("source %s: host %q: %w", source, name, err)
		}
		for k, v := range entry.Vars {
			if err := s.SetVariable(name, k, v); err != nil {
				return fmt.Errorf("source %s: host %q: %w", source, name, err)
			}
		}
	}

	// Second pass over groups: membership and child edges.
	for _, name := range groupNames {
		cname := canonical[name]
		g := doc.Groups[name]

		for _, member := range g.Members {
			port := 0
			if entry, ok := doc.Hosts[member]; ok {
				port = entry.Port
			}
			if _, err := s.AddHost(member, cname, port); err != nil {
				return fmt.Errorf("source %s: group %q member %q: %w", source, name, member, err)
			}
		}
		for _, child := range g.Children {
			childName := inventory.CanonicalGroupName(child)
			if _, err := s.AddChild(cname, childName); err != nil {
				return fmt.Errorf("source %s: group %q child %q: %w", source, name, child, err)
			}
		}
	}

	return nil
}
