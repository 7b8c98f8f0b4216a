package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"inventorium/internal/inventory"
	"inventorium/internal/repository/sqlite"
)

func newTestService(t *testing.T) (*InventoryService, *sqlite.Repository, *EventBus) {
	t.Helper()
	repo, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	bus := NewEventBus()
	svc := NewInventoryService(repo, bus, inventory.WithWarnFunc(func(string, ...any) {}))
	return svc, repo, bus
}

func subscribeEvents(t *testing.T, bus *EventBus) <-chan Event {
	t.Helper()
	ch := make(chan Event, 16)
	bus.Subscribe(ch)
	return ch
}

func hasName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func hasEvent(types []EventType, want EventType) bool {
	for _, tt := range types {
		if tt == want {
			return true
		}
	}
	return false
}

func TestAddHost(t *testing.T) {
	svc, _, bus := newTestService(t)
	events := subscribeEvents(t, bus)
	ctx := context.Background()

	if _, err := svc.AddGroup(ctx, "web"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	name, err := svc.AddHost(ctx, "h1", "web", 2222)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "h1" {
		t.Errorf("expected name 'h1', got %q", name)
	}

	rec, ok := svc.GetHost("h1")
	if !ok {
		t.Fatal("expected host h1")
	}
	if rec.Port != 2222 {
		t.Errorf("expected port 2222, got %d", rec.Port)
	}
	if !hasName(rec.Groups, "web") {
		t.Errorf("expected membership in web, got %v", rec.Groups)
	}

	var types []EventType
	for len(events) > 0 {
		types = append(types, (<-events).Type)
	}
	if !hasEvent(types, EventGroupAdded) || !hasEvent(types, EventHostAdded) {
		t.Errorf("expected group_added and host_added events, got %v", types)
	}
}

func TestAddHostUnknownGroup(t *testing.T) {
	svc, _, _ := newTestService(t)
	if _, err := svc.AddHost(context.Background(), "h1", "missing", 0); !errors.Is(err, inventory.ErrUnknownEntity) {
		t.Errorf("expected ErrUnknownEntity, got %v", err)
	}
}

func TestGetHostImplicitLocalhost(t *testing.T) {
	svc, _, _ := newTestService(t)
	rec, ok := svc.GetHost("localhost")
	if !ok {
		t.Fatal("expected an implicit localhost")
	}
	if !rec.Implicit {
		t.Error("expected implicit flag set")
	}
	if rec.Address != "127.0.0.1" {
		t.Errorf("expected loopback address, got %q", rec.Address)
	}
}

func TestLoadSourceFilesAndRestore(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	dir := t.TempDir()
	path := filepath.Join(dir, "prod.yaml")
	src := []byte(`
groups:
  web:
    members: [edge1]
    vars:
      tier: frontend
hosts:
  edge1:
    port: 2222
`)
	if err := os.WriteFile(path, src, 0o644); err != nil {
		t.Fatal(err)
	}

	if err := svc.LoadSourceFiles(ctx, []string{path}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	d := svc.GroupsDict()
	if !reflect.DeepEqual(d["web"], []string{"edge1"}) {
		t.Errorf("expected web=[edge1], got %v", d["web"])
	}

	// A fresh service backed by the same repository sees the loaded state.
	restored := NewInventoryService(repo, NewEventBus(), inventory.WithWarnFunc(func(string, ...any) {}))
	if err := restored.Restore(ctx, inventory.WithWarnFunc(func(string, ...any) {})); err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	rec, ok := restored.GetHost("edge1")
	if !ok {
		t.Fatal("expected edge1 after restore")
	}
	if rec.Port != 2222 {
		t.Errorf("expected port 2222 after restore, got %d", rec.Port)
	}
}

func TestRemoveHost(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	svc.AddHost(ctx, "h1", "", 0)
	if err := svc.RemoveHost(ctx, "h1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := svc.GetHost("h1"); ok {
		t.Error("expected h1 gone")
	}
}

func TestSetVariable(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	svc.AddHost(ctx, "h1", "", 0)
	if err := svc.SetVariable(ctx, "h1", "role", "edge"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec, _ := svc.GetHost("h1")
	if got := rec.Vars["role"]; got != "edge" {
		t.Errorf("expected role=edge, got %v", got)
	}

	if err := svc.SetVariable(ctx, "ghost", "k", "v"); !errors.Is(err, inventory.ErrUnknownEntity) {
		t.Errorf("expected ErrUnknownEntity, got %v", err)
	}
}

func TestAddChildRejectsCycles(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	svc.AddGroup(ctx, "a")
	svc.AddGroup(ctx, "b")
	if err := svc.AddChild(ctx, "a", "b"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.AddChild(ctx, "b", "a"); !errors.Is(err, inventory.ErrRecursiveDependency) {
		t.Errorf("expected ErrRecursiveDependency, got %v", err)
	}
}

func TestImportExportRoundTrip(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	svc.AddGroup(ctx, "web")
	svc.AddHost(ctx, "h1", "web", 0)
	svc.SetVariable(ctx, "h1", "role", "edge")

	data, err := svc.ExportBytes("json")
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}

	other, _, _ := newTestService(t)
	if err := other.Import(ctx, "json", data, inventory.WithWarnFunc(func(string, ...any) {})); err != nil {
		t.Fatalf("import failed: %v", err)
	}

	rec, ok := other.GetHost("h1")
	if !ok {
		t.Fatal("expected h1 after import")
	}
	if got := rec.Vars["role"]; got != "edge" {
		t.Errorf("expected role=edge, got %v", got)
	}

	t.Run("unknown format", func(t *testing.T) {
		if _, err := svc.ExportBytes("toml"); err == nil {
			t.Error("expected an error for unknown format")
		}
		if err := svc.Import(ctx, "toml", nil); err == nil {
			t.Error("expected an error for unknown format")
		}
	})
}

func TestConcurrentReadsDuringMutation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	source := []byte(`
groups:
  web:
    members: [h1, h2, h3]
  app:
    children: [web]
`)
	if err := svc.ApplySource(ctx, "prod", source); err != nil {
		t.Fatalf("failed to apply source: %v", err)
	}

	var wg sync.WaitGroup
	stop := make(chan struct{})

	// Readers hammer every read path, including the two that take the
	// write lock internally (implicit-localhost factory, cache rebuild).
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				if _, ok := svc.GetHost("h1"); !ok {
					t.Error("expected h1 present throughout")
					return
				}
				svc.GetHost("localhost")
				if d := svc.GroupsDict(); len(d["web"]) != 3 {
					t.Errorf("expected 3 hosts in web, got %v", d["web"])
					return
				}
				svc.Hosts()
				svc.Groups()
			}
		}()
	}

	// Mutations interleave with the readers.
	for i := 0; i < 20; i++ {
		if err := svc.SetVariable(ctx, "web", "tier", i); err != nil {
			t.Fatalf("mutation failed: %v", err)
		}
		if _, err := svc.AddGroup(ctx, "db"); err != nil {
			t.Fatalf("mutation failed: %v", err)
		}
	}

	close(stop)
	wg.Wait()

	rec, ok := svc.GetHost("h1")
	if !ok || !hasName(rec.Groups, "web") {
		t.Errorf("expected h1 in web after the run, got %+v", rec)
	}
}
