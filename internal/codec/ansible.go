package codec

import (
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"

	"inventorium/internal/inventory"
)

// AnsibleCodec handles Ansible inventory import/export. The exported form is
// the nested YAML inventory layout: an "all" group whose children carry their
// hosts, vars, and further children. Implicit hosts are an internal artifact
// and are skipped on export.
type AnsibleCodec struct{}

// NewAnsibleCodec creates a new Ansible codec
func NewAnsibleCodec() *AnsibleCodec {
	return &AnsibleCodec{}
}

// Format returns the codec format identifier
func (c *AnsibleCodec) Format() string {
	return "ansible-inventory"
}

// ansibleInventory represents the Ansible inventory structure
type ansibleInventory struct {
	All ansibleGroup `yaml:"all"`
}

type ansibleGroup struct {
	Hosts    map[string]ansibleHost  `yaml:"hosts,omitempty"`
	Children map[string]ansibleGroup `yaml:"children,omitempty"`
	Vars     map[string]any          `yaml:"vars,omitempty"`
}

type ansibleHost struct {
	AnsibleHost string         `yaml:"ansible_host,omitempty"`
	AnsiblePort int            `yaml:"ansible_port,omitempty"`
	Vars        map[string]any `yaml:",inline"`
}

// Parse imports an inventory snapshot from the nested Ansible layout.
func (c *AnsibleCodec) Parse(r io.Reader) (*inventory.Snapshot, error) {
	var inv ansibleInventory
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&inv); err != nil {
		return nil, fmt.Errorf("failed to parse Ansible inventory: %w", err)
	}

	snap := &inventory.Snapshot{}
	hosts := make(map[string]*inventory.HostRecord)
	c.flattenGroup(inventory.GroupAll, inv.All, snap, hosts)

	names := make([]string, 0, len(hosts))
	for name := range hosts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		snap.Hosts = append(snap.Hosts, *hosts[name])
	}
	sort.Slice(snap.Groups, func(i, j int) bool {
		return snap.Groups[i].Name < snap.Groups[j].Name
	})

	return snap, nil
}

// flattenGroup walks the nested layout depth-first, accumulating flat group
// and host records.
func (c *AnsibleCodec) flattenGroup(name string, g ansibleGroup, snap *inventory.Snapshot, hosts map[string]*inventory.HostRecord) {
	rec := inventory.GroupRecord{Name: name, Vars: g.Vars}

	hostNames := make([]string, 0, len(g.Hosts))
	for hname := range g.Hosts {
		hostNames = append(hostNames, hname)
	}
	sort.Strings(hostNames)
	for _, hname := range hostNames {
		h := g.Hosts[hname]
		rec.Hosts = append(rec.Hosts, hname)

		hr, ok := hosts[hname]
		if !ok {
			hr = &inventory.HostRecord{Name: hname, Address: hname}
			hosts[hname] = hr
		}
		if h.AnsibleHost != "" {
			hr.Address = h.AnsibleHost
		}
		if h.AnsiblePort != 0 {
			hr.Port = h.AnsiblePort
		}
		for k, v := range h.Vars {
			if hr.Vars == nil {
				hr.Vars = make(map[string]any)
			}
			hr.Vars[k] = v
		}
		if !hasString(hr.Groups, name) {
			hr.Groups = append(hr.Groups, name)
		}
	}

	childNames := make([]string, 0, len(g.Children))
	for cname := range g.Children {
		childNames = append(childNames, cname)
	}
	sort.Strings(childNames)
	rec.Children = childNames

	snap.Groups = append(snap.Groups, rec)
	for _, cname := range childNames {
		c.flattenGroup(cname, g.Children[cname], snap, hosts)
	}
}

// Export writes an inventory snapshot in the nested Ansible layout. Groups
// unreachable from "all" are attached as direct children so nothing is lost.
func (c *AnsibleCodec) Export(snap *inventory.Snapshot, w io.Writer) error {
	groups := make(map[string]inventory.GroupRecord, len(snap.Groups))
	for _, g := range snap.Groups {
		groups[g.Name] = g
	}
	hosts := make(map[string]inventory.HostRecord, len(snap.Hosts))
	for _, h := range snap.Hosts {
		hosts[h.Name] = h
	}

	seen := make(map[string]bool)
	all := c.buildGroup(inventory.GroupAll, groups, hosts, seen)

	// Pick up groups no child edge reaches.
	var orphans []string
	for _, g := range snap.Groups {
		if !seen[g.Name] {
			orphans = append(orphans, g.Name)
		}
	}
	sort.Strings(orphans)
	for _, name := range orphans {
		if all.Children == nil {
			all.Children = make(map[string]ansibleGroup)
		}
		all.Children[name] = c.buildGroup(name, groups, hosts, seen)
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	if err := encoder.Encode(&ansibleInventory{All: all}); err != nil {
		return fmt.Errorf("failed to encode Ansible inventory: %w", err)
	}

	return nil
}

func (c *AnsibleCodec) buildGroup(name string, groups map[string]inventory.GroupRecord, hosts map[string]inventory.HostRecord, seen map[string]bool) ansibleGroup {
	seen[name] = true
	rec := groups[name]
	out := ansibleGroup{Vars: rec.Vars}

	for _, hname := range rec.Hosts {
		hr, ok := hosts[hname]
		if !ok || hr.Implicit {
			continue
		}
		ah := ansibleHost{AnsiblePort: hr.Port, Vars: hr.Vars}
		if hr.Address != hr.Name {
			ah.AnsibleHost = hr.Address
		}
		if out.Hosts == nil {
			out.Hosts = make(map[string]ansibleHost)
		}
		out.Hosts[hname] = ah
	}

	for _, cname := range rec.Children {
		if seen[cname] {
			continue
		}
		if out.Children == nil {
			out.Children = make(map[string]ansibleGroup)
		}
		out.Children[cname] = c.buildGroup(cname, groups, hosts, seen)
	}

	return out
}

func hasString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
