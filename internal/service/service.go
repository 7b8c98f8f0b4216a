package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"inventorium/internal/codec"
	"inventorium/internal/inventory"
	"inventorium/internal/loader"
	"inventorium/internal/repository"
)

// InventoryService provides business logic for inventory operations. It
// serializes access to the underlying store, persists state through the
// repository, and publishes change events.
type InventoryService struct {
	mu       sync.RWMutex
	store    *inventory.Store
	repo     repository.Repository
	eventBus *EventBus
}

// NewInventoryService creates a new inventory service. The repository may be
// nil for a purely in-memory service.
func NewInventoryService(repo repository.Repository, eventBus *EventBus, opts ...inventory.Option) *InventoryService {
	return &InventoryService{
		store:    inventory.New(opts...),
		repo:     repo,
		eventBus: eventBus,
	}
}

// Restore replaces the in-memory state with the persisted snapshot, if one
// exists. Called at startup before sources are loaded.
func (s *InventoryService) Restore(ctx context.Context, opts ...inventory.Option) error {
	if s.repo == nil {
		return nil
	}

	snap, err := s.repo.LoadSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to load snapshot: %w", err)
	}
	if snap == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.store = inventory.FromSnapshot(snap, opts...)
	s.store.Reconcile()
	return nil
}

// LoadSourceFiles loads each YAML source in order, reconciling after every
// source and persisting once at the end.
func (s *InventoryService) LoadSourceFiles(ctx context.Context, paths []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, path := range paths {
		if err := loader.LoadFile(s.store, path); err != nil {
			return err
		}
		s.store.Reconcile()
	}
	s.store.Reconcile()

	if err := s.saveLocked(ctx); err != nil {
		return err
	}

	s.eventBus.Publish(Event{
		Type:    EventInventoryReloaded,
		Payload: map[string]int{"sources": len(paths), "hosts": s.store.HostCount()},
	})
	return nil
}

// ApplySource applies a single in-memory YAML source document.
func (s *InventoryService) ApplySource(ctx context.Context, name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := loader.Load(s.store, name, data); err != nil {
		return err
	}
	s.store.Reconcile()

	if err := s.saveLocked(ctx); err != nil {
		return err
	}

	s.eventBus.Publish(Event{
		Type:    EventInventoryReloaded,
		Payload: map[string]string{"source": name},
	})
	return nil
}

// AddHost adds a host, optionally assigning it to a group.
func (s *InventoryService) AddHost(ctx context.Context, name, group string, port int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	used, err := s.store.AddHost(name, group, port)
	if err != nil {
		return "", err
	}
	s.store.Reconcile()

	if err := s.saveLocked(ctx); err != nil {
		return "", err
	}

	s.eventBus.Publish(Event{
		Type:    EventHostAdded,
		Payload: map[string]string{"host": used, "group": group},
	})
	return used, nil
}

// RemoveHost removes a host.
func (s *InventoryService) RemoveHost(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.store.RemoveHost(name)
	s.store.Reconcile()

	if err := s.saveLocked(ctx); err != nil {
		return err
	}

	s.eventBus.Publish(Event{
		Type:    EventHostRemoved,
		Payload: map[string]string{"host": name},
	})
	return nil
}

// AddGroup adds a group and returns the canonical name used.
func (s *InventoryService) AddGroup(ctx context.Context, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	used, err := s.store.AddGroup(name)
	if err != nil {
		return "", err
	}
	s.store.Reconcile()

	if err := s.saveLocked(ctx); err != nil {
		return "", err
	}

	s.eventBus.Publish(Event{
		Type:    EventGroupAdded,
		Payload: map[string]string{"group": used},
	})
	return used, nil
}

// RemoveGroup removes a group.
func (s *InventoryService) RemoveGroup(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.store.RemoveGroup(name)
	s.store.Reconcile()

	if err := s.saveLocked(ctx); err != nil {
		return err
	}

	s.eventBus.Publish(Event{
		Type:    EventGroupRemoved,
		Payload: map[string]string{"group": name},
	})
	return nil
}

// AddChild attaches a child group or member host to a group.
func (s *InventoryService) AddChild(ctx context.Context, group, child string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	added, err := s.store.AddChild(group, child)
	if err != nil {
		return err
	}
	s.store.Reconcile()

	if err := s.saveLocked(ctx); err != nil {
		return err
	}

	if added {
		s.eventBus.Publish(Event{
			Type:    EventChildAdded,
			Payload: map[string]string{"group": group, "child": child},
		})
	}
	return nil
}

// SetVariable sets a variable on a host or group.
func (s *InventoryService) SetVariable(ctx context.Context, entity, key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.SetVariable(entity, key, value); err != nil {
		return err
	}

	if err := s.saveLocked(ctx); err != nil {
		return err
	}

	s.eventBus.Publish(Event{
		Type:    EventVariableSet,
		Payload: map[string]string{"entity": entity, "key": key},
	})
	return nil
}

// GetHost returns a copy of the named host's record. The implicit-localhost
// factory applies, so looking up a recognized alias can create the canonical
// localhost; the second return reports whether a host was found.
func (s *InventoryService) GetHost(name string) (inventory.HostRecord, bool) {
	// Write lock: the lookup may register the implicit localhost.
	s.mu.Lock()
	defer s.mu.Unlock()

	h := s.store.GetHost(name)
	if h == nil {
		return inventory.HostRecord{}, false
	}
	return h.Record(), true
}

// Hosts returns copies of all host records sorted by name.
func (s *InventoryService) Hosts() []inventory.HostRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hosts := s.store.Hosts()
	out := make([]inventory.HostRecord, 0, len(hosts))
	for _, h := range hosts {
		out = append(out, h.Record())
	}
	return out
}

// Groups returns copies of all group records sorted by name.
func (s *InventoryService) Groups() []inventory.GroupRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	groups := s.store.Groups()
	out := make([]inventory.GroupRecord, 0, len(groups))
	for _, g := range groups {
		out = append(out, g.Record())
	}
	return out
}

// GroupsDict returns a copy of the group-to-hosts mapping.
func (s *InventoryService) GroupsDict() map[string][]string {
	// Write lock: the read may rebuild the memoized view.
	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.store.GroupsDict()
	out := make(map[string][]string, len(d))
	for name, hosts := range d {
		cp := make([]string, len(hosts))
		copy(cp, hosts)
		out[name] = cp
	}
	return out
}

// Snapshot returns a detached snapshot of the current state.
func (s *InventoryService) Snapshot() *inventory.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Snapshot()
}

// Export writes the inventory in the named format.
func (s *InventoryService) Export(format string, w io.Writer) error {
	c := codec.ForFormat(format)
	if c == nil {
		return fmt.Errorf("unknown export format %q", format)
	}
	return c.Export(s.Snapshot(), w)
}

// ExportBytes returns the inventory serialized in the named format.
func (s *InventoryService) ExportBytes(format string) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.Export(format, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Import replaces the inventory with a snapshot parsed from the named
// format.
func (s *InventoryService) Import(ctx context.Context, format string, data []byte, opts ...inventory.Option) error {
	c := codec.ForFormat(format)
	if c == nil {
		return fmt.Errorf("unknown import format %q", format)
	}

	snap, err := c.Parse(bytes.NewReader(data))
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.store = inventory.FromSnapshot(snap, opts...)
	s.store.Reconcile()

	if err := s.saveLocked(ctx); err != nil {
		return err
	}

	s.eventBus.Publish(Event{
		Type:    EventInventoryReloaded,
		Payload: map[string]string{"format": format},
	})
	return nil
}

// Save persists the current state.
func (s *InventoryService) Save(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saveLocked(ctx)
}

// saveLocked persists the current state. Callers must hold the lock.
func (s *InventoryService) saveLocked(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	if err := s.repo.SaveSnapshot(ctx, s.store.Snapshot()); err != nil {
		return fmt.Errorf("failed to persist snapshot: %w", err)
	}
	return nil
}
