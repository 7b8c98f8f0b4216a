// Package inventory implements the in-memory inventory graph store for
// Inventorium: the set of managed hosts, their organizational groups, the
// variables attached to each, and the derived views served to readers.
//
// # Entities
//
// Host represents a single managed node with a unique name, an optional
// connection port, a variable mapping, and the set of groups it is a direct
// member of. Group represents a named collection of hosts and child groups
// with its own variable mapping. Membership is stored as interned names on
// both sides and resolved through the Store, so entities never hold mutual
// object pointers.
//
// # Store
//
// Store is the aggregate that owns all hosts and groups. Inventory source
// loaders drive its mutation operations (AddGroup, AddHost, AddChild,
// SetVariable, RemoveGroup, RemoveHost) while a source context is active;
// readers use GetHost, GroupsDict, and the entity accessors. The builtin
// groups "all" and "ungrouped" always exist, and "ungrouped" is a child of
// "all".
//
// # Reconciliation
//
// Reconcile is an idempotent convergence pass that restores the global
// invariants after a batch of mutations: every group reaches "all" through
// its ancestry, hosts with no meaningful membership live in "ungrouped",
// and the implicit localhost inherits the "all" group's variables. Callers
// run it after every source load and once more after the final source.
//
// # Derived views
//
// GroupsDict returns the memoized mapping from group name to the transitive
// list of member host names. Any structural mutation clears the cache in
// full; the next read rebuilds it from scratch.
//
// # Concurrency
//
// The Store performs no internal locking. It assumes a single-threaded load
// phase followed by a read phase; callers that interleave mutation with
// concurrent reads must serialize access themselves (the service layer does
// this with a coarse RWMutex).
//
// # Failure taxonomy
//
// Hard failures (ErrInvalidName, ErrUnknownEntity, ErrRecursiveDependency)
// abort the offending operation and are returned to the caller. Soft
// conditions (name collisions across namespaces, duplicate localhost
// registration, unresolvable interpreter path) are reported through the
// store's warning sink and never abort.
package inventory
