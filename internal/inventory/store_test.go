package inventory

import (
	"errors"
	"reflect"
	"testing"
)

// newTestStore creates a store whose warnings are collected instead of
// logged.
func newTestStore(t *testing.T) (*Store, *[]string) {
	t.Helper()
	var warnings []string
	s := New(WithWarnFunc(func(format string, args ...any) {
		warnings = append(warnings, format)
	}))
	return s, &warnings
}

func TestNewStore(t *testing.T) {
	s, _ := newTestStore(t)

	t.Run("builtin groups exist", func(t *testing.T) {
		if s.Group(GroupAll) == nil {
			t.Error("expected group 'all' to exist")
		}
		if s.Group(GroupUngrouped) == nil {
			t.Error("expected group 'ungrouped' to exist")
		}
	})

	t.Run("ungrouped is a child of all", func(t *testing.T) {
		if !s.Group(GroupAll).HasChild(GroupUngrouped) {
			t.Error("expected 'ungrouped' to be a child of 'all'")
		}
		ancestors := s.Ancestors(GroupUngrouped)
		if !hasName(ancestors, GroupAll) {
			t.Errorf("expected 'all' in ancestors of 'ungrouped', got %v", ancestors)
		}
	})
}

func TestAddGroup(t *testing.T) {
	t.Run("creates group and returns canonical name", func(t *testing.T) {
		s, _ := newTestStore(t)
		name, err := s.AddGroup("web")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if name != "web" {
			t.Errorf("expected canonical name 'web', got %q", name)
		}
		if s.Group("web") == nil {
			t.Error("expected group 'web' to be registered")
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		s, _ := newTestStore(t)
		first, err := s.AddGroup("g1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		second, err := s.AddGroup("g1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if first != second {
			t.Errorf("expected both calls to return the same name, got %q and %q", first, second)
		}
		count := 0
		for _, g := range s.Groups() {
			if g.Name == "g1" {
				count++
			}
		}
		if count != 1 {
			t.Errorf("expected exactly one group 'g1', got %d", count)
		}
	})

	t.Run("empty name fails", func(t *testing.T) {
		s, _ := newTestStore(t)
		if _, err := s.AddGroup(""); !errors.Is(err, ErrInvalidName) {
			t.Errorf("expected ErrInvalidName, got %v", err)
		}
	})

	t.Run("sanitizes invalid characters with a warning", func(t *testing.T) {
		s, warnings := newTestStore(t)
		name, err := s.AddGroup("web servers-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if name != "web_servers_1" {
			t.Errorf("expected canonical name 'web_servers_1', got %q", name)
		}
		if s.Group("web_servers_1") == nil {
			t.Error("expected group registered under canonical name")
		}
		if len(*warnings) == 0 {
			t.Error("expected a sanitization warning")
		}
	})
}

func TestAddHost(t *testing.T) {
	t.Run("creates host", func(t *testing.T) {
		s, _ := newTestStore(t)
		name, err := s.AddHost("h1", "", 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if name != "h1" {
			t.Errorf("expected name 'h1', got %q", name)
		}
		h := s.Host("h1")
		if h == nil {
			t.Fatal("expected host 'h1' to be registered")
		}
		if h.Address != "h1" {
			t.Errorf("expected address 'h1', got %q", h.Address)
		}
		if h.UUID == "" {
			t.Error("expected host UUID to be set")
		}
	})

	t.Run("idempotent on name", func(t *testing.T) {
		s, _ := newTestStore(t)
		s.AddHost("dup", "", 0)
		before := s.HostCount()
		s.AddHost("dup", "", 0)
		if s.HostCount() != before {
			t.Errorf("expected host count %d after duplicate add, got %d", before, s.HostCount())
		}
	})

	t.Run("records port on first creation", func(t *testing.T) {
		s, _ := newTestStore(t)
		s.AddHost("h1", "", 2222)
		if got := s.Host("h1").Port; got != 2222 {
			t.Errorf("expected port 2222, got %d", got)
		}
	})

	t.Run("group assignment is additive", func(t *testing.T) {
		s, _ := newTestStore(t)
		s.AddGroup("web")
		s.AddGroup("db")
		s.AddHost("h1", "web", 0)
		s.AddHost("h1", "db", 0)
		h := s.Host("h1")
		if !h.InGroup("web") || !h.InGroup("db") {
			t.Errorf("expected membership in web and db, got %v", h.Groups())
		}
		if !s.Group("web").HasHost("h1") || !s.Group("db").HasHost("h1") {
			t.Error("expected symmetric membership on both groups")
		}
	})

	t.Run("unknown group fails", func(t *testing.T) {
		s, _ := newTestStore(t)
		if _, err := s.AddHost("h1", "missing", 0); !errors.Is(err, ErrUnknownEntity) {
			t.Errorf("expected ErrUnknownEntity, got %v", err)
		}
	})

	t.Run("empty name fails", func(t *testing.T) {
		s, _ := newTestStore(t)
		if _, err := s.AddHost("", "", 0); !errors.Is(err, ErrInvalidName) {
			t.Errorf("expected ErrInvalidName, got %v", err)
		}
	})

	t.Run("records active source context", func(t *testing.T) {
		s, _ := newTestStore(t)
		s.SetSource("inventory/prod.yaml")
		s.AddHost("h1", "", 0)
		s.SetSource("")
		s.AddHost("h2", "", 0)

		if got := s.Host("h1").Source; got != "inventory/prod.yaml" {
			t.Errorf("expected source 'inventory/prod.yaml', got %q", got)
		}
		if got := s.Host("h2").Source; got != "" {
			t.Errorf("expected no source, got %q", got)
		}
	})
}

func TestAddChild(t *testing.T) {
	t.Run("attaches child group", func(t *testing.T) {
		s, _ := newTestStore(t)
		s.AddGroup("parent")
		s.AddGroup("child")
		added, err := s.AddChild("parent", "child")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !added {
			t.Error("expected a new relation")
		}
		if !hasName(s.Ancestors("child"), "parent") {
			t.Error("expected 'parent' in ancestors of 'child'")
		}
	})

	t.Run("re-adding returns false without error", func(t *testing.T) {
		s, _ := newTestStore(t)
		s.AddGroup("parent")
		s.AddGroup("child")
		s.AddChild("parent", "child")
		added, err := s.AddChild("parent", "child")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if added {
			t.Error("expected no new relation on repeat")
		}
	})

	t.Run("attaches host member", func(t *testing.T) {
		s, _ := newTestStore(t)
		s.AddGroup("web")
		s.AddHost("h1", "", 0)
		added, err := s.AddChild("web", "h1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !added {
			t.Error("expected a new relation")
		}
		if !s.Host("h1").InGroup("web") {
			t.Error("expected h1 to be a member of web")
		}
	})

	t.Run("unknown parent group fails", func(t *testing.T) {
		s, _ := newTestStore(t)
		if _, err := s.AddChild("missing", "also-missing"); !errors.Is(err, ErrUnknownEntity) {
			t.Errorf("expected ErrUnknownEntity, got %v", err)
		}
	})

	t.Run("unknown child fails", func(t *testing.T) {
		s, _ := newTestStore(t)
		s.AddGroup("web")
		if _, err := s.AddChild("web", "nonexistent"); !errors.Is(err, ErrUnknownEntity) {
			t.Errorf("expected ErrUnknownEntity, got %v", err)
		}
	})

	t.Run("rejects self attachment", func(t *testing.T) {
		s, _ := newTestStore(t)
		s.AddGroup("g")
		if _, err := s.AddChild("g", "g"); !errors.Is(err, ErrRecursiveDependency) {
			t.Errorf("expected ErrRecursiveDependency, got %v", err)
		}
	})

	t.Run("rejects ancestry cycle", func(t *testing.T) {
		s, _ := newTestStore(t)
		s.AddGroup("a")
		s.AddGroup("b")
		s.AddGroup("c")
		s.AddChild("a", "b")
		s.AddChild("b", "c")
		if _, err := s.AddChild("c", "a"); !errors.Is(err, ErrRecursiveDependency) {
			t.Errorf("expected ErrRecursiveDependency, got %v", err)
		}
	})
}

func TestSetVariable(t *testing.T) {
	t.Run("groups resolve before hosts", func(t *testing.T) {
		s, _ := newTestStore(t)
		s.AddGroup("shared")
		s.AddHost("shared", "", 0)
		if err := s.SetVariable("shared", "k", "v"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := s.Group("shared").Vars["k"]; got != "v" {
			t.Errorf("expected group variable set, got %v", got)
		}
		if _, ok := s.Host("shared").Vars["k"]; ok {
			t.Error("expected host variable untouched")
		}
	})

	t.Run("last write wins", func(t *testing.T) {
		s, _ := newTestStore(t)
		s.AddHost("h1", "", 0)
		s.SetVariable("h1", "k", 1)
		s.SetVariable("h1", "k", 2)
		if got := s.Host("h1").Vars["k"]; got != 2 {
			t.Errorf("expected 2, got %v", got)
		}
	})

	t.Run("unknown entity fails", func(t *testing.T) {
		s, _ := newTestStore(t)
		if err := s.SetVariable("ghost", "k", "v"); !errors.Is(err, ErrUnknownEntity) {
			t.Errorf("expected ErrUnknownEntity, got %v", err)
		}
	})
}

func TestRemoveGroup(t *testing.T) {
	t.Run("clears membership everywhere", func(t *testing.T) {
		s, _ := newTestStore(t)
		s.AddGroup("web")
		s.AddHost("h1", "web", 0)
		s.RemoveGroup("web")

		if s.Group("web") != nil {
			t.Error("expected group 'web' to be gone")
		}
		if s.Host("h1").InGroup("web") {
			t.Error("expected h1 membership cleared")
		}
		if _, ok := s.GroupsDict()["web"]; ok {
			t.Error("expected 'web' absent from groups dict")
		}
	})

	t.Run("detaches child and parent links", func(t *testing.T) {
		s, _ := newTestStore(t)
		s.AddGroup("parent")
		s.AddGroup("child")
		s.AddChild("parent", "child")
		s.RemoveGroup("parent")
		if hasName(s.Group("child").Parents(), "parent") {
			t.Error("expected parent link removed from child")
		}
	})

	t.Run("absent group is a no-op", func(t *testing.T) {
		s, _ := newTestStore(t)
		s.RemoveGroup("missing")
	})
}

func TestRemoveHost(t *testing.T) {
	t.Run("clears membership everywhere", func(t *testing.T) {
		s, _ := newTestStore(t)
		s.AddGroup("web")
		s.AddHost("h1", "web", 0)
		s.RemoveHost("h1")

		if s.Host("h1") != nil {
			t.Error("expected host 'h1' to be gone")
		}
		if s.Group("web").HasHost("h1") {
			t.Error("expected membership cleared from group")
		}
	})

	t.Run("absent host is a no-op", func(t *testing.T) {
		s, _ := newTestStore(t)
		s.RemoveHost("missing")
	})
}

func TestGetHost(t *testing.T) {
	t.Run("absent non-alias returns nil", func(t *testing.T) {
		s, _ := newTestStore(t)
		if h := s.GetHost("no-such-host"); h != nil {
			t.Errorf("expected nil, got %v", h)
		}
	})

	t.Run("returns registered host", func(t *testing.T) {
		s, _ := newTestStore(t)
		s.AddHost("h1", "", 0)
		if h := s.GetHost("h1"); h == nil || h.Name != "h1" {
			t.Errorf("expected host 'h1', got %v", h)
		}
	})
}

func TestGroupsDict(t *testing.T) {
	t.Run("transitive closure through child groups", func(t *testing.T) {
		s, _ := newTestStore(t)
		s.AddGroup("app")
		s.AddGroup("web")
		s.AddChild("app", "web")
		s.AddHost("h1", "web", 0)
		s.AddHost("h2", "app", 0)

		d := s.GroupsDict()
		if got := d["web"]; !reflect.DeepEqual(got, []string{"h1"}) {
			t.Errorf("expected web=[h1], got %v", got)
		}
		if got := d["app"]; !reflect.DeepEqual(got, []string{"h2", "h1"}) {
			t.Errorf("expected app=[h2 h1], got %v", got)
		}
		if got := d["all"]; len(got) != 0 {
			// Neither host is attached beneath "all" until reconciliation
			// links the groups in.
			t.Errorf("expected all=[] before reconcile, got %v", got)
		}
	})

	t.Run("stable across repeated calls without mutation", func(t *testing.T) {
		s, _ := newTestStore(t)
		s.AddGroup("web")
		s.AddHost("h1", "web", 0)
		s.Reconcile()

		first := s.GroupsDict()
		second := s.GroupsDict()
		if !reflect.DeepEqual(first, second) {
			t.Errorf("expected stable mapping, got %v then %v", first, second)
		}
	})

	t.Run("rebuilt after structural mutation", func(t *testing.T) {
		s, _ := newTestStore(t)
		s.AddGroup("web")
		s.AddHost("h1", "web", 0)
		if got := s.GroupsDict()["web"]; !reflect.DeepEqual(got, []string{"h1"}) {
			t.Fatalf("expected web=[h1], got %v", got)
		}

		s.AddHost("h2", "web", 0)
		if got := s.GroupsDict()["web"]; !reflect.DeepEqual(got, []string{"h1", "h2"}) {
			t.Errorf("expected web=[h1 h2] after mutation, got %v", got)
		}
	})
}

func TestHostsAndGroupsSorted(t *testing.T) {
	s, _ := newTestStore(t)
	s.AddHost("zeta", "", 0)
	s.AddHost("alpha", "", 0)
	s.AddGroup("zgroup")
	s.AddGroup("agroup")

	hosts := s.Hosts()
	if hosts[0].Name != "alpha" || hosts[1].Name != "zeta" {
		t.Errorf("expected hosts sorted by name, got %v", []string{hosts[0].Name, hosts[1].Name})
	}

	groups := s.Groups()
	var names []string
	for _, g := range groups {
		names = append(names, g.Name)
	}
	if !reflect.DeepEqual(names, []string{"agroup", "all", "ungrouped", "zgroup"}) {
		t.Errorf("expected groups sorted by name, got %v", names)
	}
}
