package loader

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"inventorium/internal/inventory"
)

func newTestStore(t *testing.T) *inventory.Store {
	t.Helper()
	return inventory.New(inventory.WithWarnFunc(func(string, ...any) {}))
}

const sampleSource = `
groups:
  web:
    members: [edge1, edge2]
    vars:
      tier: frontend
  app:
    children: [web]
hosts:
  edge1:
    port: 2222
    vars:
      role: edge
  standalone: {}
`

func TestLoad(t *testing.T) {
	s := newTestStore(t)
	if err := Load(s, "prod.yaml", []byte(sampleSource)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Reconcile()

	t.Run("groups and membership", func(t *testing.T) {
		d := s.GroupsDict()
		if got := d["web"]; !reflect.DeepEqual(got, []string{"edge1", "edge2"}) {
			t.Errorf("expected web=[edge1 edge2], got %v", got)
		}
		if got := d["app"]; !reflect.DeepEqual(got, []string{"edge1", "edge2"}) {
			t.Errorf("expected app to include web's hosts, got %v", got)
		}
	})

	t.Run("host details", func(t *testing.T) {
		h := s.Host("edge1")
		if h == nil {
			t.Fatal("expected host edge1")
		}
		if h.Port != 2222 {
			t.Errorf("expected port 2222, got %d", h.Port)
		}
		if got := h.Vars["role"]; got != "edge" {
			t.Errorf("expected role=edge, got %v", got)
		}
		if h.Source != "prod.yaml" {
			t.Errorf("expected source recorded, got %q", h.Source)
		}
	})

	t.Run("member without host entry is created", func(t *testing.T) {
		if s.Host("edge2") == nil {
			t.Error("expected edge2 created from the member list")
		}
	})

	t.Run("group vars", func(t *testing.T) {
		if got := s.Group("web").Vars["tier"]; got != "frontend" {
			t.Errorf("expected tier=frontend, got %v", got)
		}
	})

	t.Run("standalone host lands in ungrouped", func(t *testing.T) {
		if !s.Host("standalone").InGroup(inventory.GroupUngrouped) {
			t.Error("expected standalone in ungrouped after reconcile")
		}
	})

	t.Run("source context cleared after load", func(t *testing.T) {
		if got := s.Source(); got != "" {
			t.Errorf("expected cleared source context, got %q", got)
		}
	})
}

func TestLoadSanitizesGroupNames(t *testing.T) {
	s := newTestStore(t)
	src := []byte("groups:\n  web servers:\n    members: [h1]\n")
	if err := Load(s, "s.yaml", src); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Group("web_servers") == nil {
		t.Error("expected group registered under canonical name")
	}
	if !s.Host("h1").InGroup("web_servers") {
		t.Error("expected membership under canonical name")
	}
}

func TestLoadChildOnlyGroupIsCreated(t *testing.T) {
	s := newTestStore(t)
	src := []byte("groups:\n  app:\n    children: [api]\n")
	if err := Load(s, "s.yaml", src); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Group("api") == nil {
		t.Fatal("expected child-only group created")
	}
	if !s.Group("app").HasChild("api") {
		t.Error("expected api attached under app")
	}
}

func TestLoadRejectsCycles(t *testing.T) {
	s := newTestStore(t)
	src := []byte(`
groups:
  a:
    children: [b]
  b:
    children: [a]
`)
	err := Load(s, "cycle.yaml", src)
	if !errors.Is(err, inventory.ErrRecursiveDependency) {
		t.Errorf("expected ErrRecursiveDependency, got %v", err)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	s := newTestStore(t)
	if err := Load(s, "bad.yaml", []byte("groups: [not, a, map]")); err == nil {
		t.Error("expected a parse error")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "inv.yaml")
	if err := os.WriteFile(path, []byte(sampleSource), 0o644); err != nil {
		t.Fatal(err)
	}

	s := newTestStore(t)
	if err := LoadFile(s, path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := s.Host("edge1").Source; got != path {
		t.Errorf("expected source %q, got %q", path, got)
	}

	t.Run("missing file", func(t *testing.T) {
		if err := LoadFile(s, filepath.Join(dir, "missing.yaml")); err == nil {
			t.Error("expected an error for a missing file")
		}
	})
}

func TestLoadIdempotent(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < 2; i++ {
		if err := Load(s, "prod.yaml", []byte(sampleSource)); err != nil {
			t.Fatalf("pass %d: unexpected error: %v", i, err)
		}
		s.Reconcile()
	}
	if got := s.HostCount(); got != 3 {
		t.Errorf("expected 3 hosts after repeated load, got %d", got)
	}
	if !reflect.DeepEqual(s.ProcessedSources(), []string{"prod.yaml"}) {
		t.Errorf("expected single processed source, got %v", s.ProcessedSources())
	}
}
