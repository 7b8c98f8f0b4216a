// Package sqlite implements snapshot persistence on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"inventorium/internal/inventory"
)

// Repository implements repository.Repository using SQLite
type Repository struct {
	db *sql.DB
}

// New creates a new SQLite repository. Use ":memory:" for an ephemeral
// database.
func New(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Each pooled connection would otherwise see its own empty
		// in-memory database.
		db.SetMaxOpenConns(1)
	}

	repo := &Repository{db: db}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return repo, nil
}

func (r *Repository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS hosts (
		name TEXT PRIMARY KEY,
		address TEXT NOT NULL,
		port INTEGER NOT NULL DEFAULT 0,
		uuid TEXT NOT NULL,
		implicit INTEGER NOT NULL DEFAULT 0,
		source TEXT,
		vars JSON,
		groups JSON,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS groups (
		name TEXT PRIMARY KEY,
		vars JSON,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS group_hosts (
		group_name TEXT NOT NULL,
		host_name TEXT NOT NULL,
		ord INTEGER NOT NULL,
		PRIMARY KEY (group_name, host_name),
		FOREIGN KEY (group_name) REFERENCES groups(name) ON DELETE CASCADE,
		FOREIGN KEY (host_name) REFERENCES hosts(name) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS group_children (
		parent_name TEXT NOT NULL,
		child_name TEXT NOT NULL,
		ord INTEGER NOT NULL,
		PRIMARY KEY (parent_name, child_name),
		FOREIGN KEY (parent_name) REFERENCES groups(name) ON DELETE CASCADE,
		FOREIGN KEY (child_name) REFERENCES groups(name) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS sources (
		ord INTEGER PRIMARY KEY,
		name TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_group_hosts_host ON group_hosts(host_name);
	CREATE INDEX IF NOT EXISTS idx_group_children_child ON group_children(child_name);
	`

	_, err := r.db.Exec(schema)
	return err
}

// LoadSnapshot loads the stored snapshot. Returns nil when the database
// holds no entities.
func (r *Repository) LoadSnapshot(ctx context.Context) (*inventory.Snapshot, error) {
	snap := &inventory.Snapshot{}

	rows, err := r.db.QueryContext(ctx, `
		SELECT name, address, port, uuid, implicit, source, vars, groups
		FROM hosts ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query hosts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			name, address, uuid  string
			port, implicit       int
			source, vars, groups sql.NullString
		)
		if err := rows.Scan(&name, &address, &port, &uuid, &implicit, &source, &vars, &groups); err != nil {
			return nil, fmt.Errorf("failed to scan host: %w", err)
		}

		hr := inventory.HostRecord{
			Name:     name,
			Address:  address,
			Port:     port,
			UUID:     uuid,
			Implicit: implicit != 0,
			Source:   nullToString(source),
		}
		if err := unmarshalVars(vars, &hr.Vars); err != nil {
			return nil, fmt.Errorf("failed to unmarshal vars for host %s: %w", name, err)
		}
		if err := unmarshalNames(groups, &hr.Groups); err != nil {
			return nil, fmt.Errorf("failed to unmarshal groups for host %s: %w", name, err)
		}
		snap.Hosts = append(snap.Hosts, hr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating hosts: %w", err)
	}

	groupRows, err := r.db.QueryContext(ctx, `SELECT name, vars FROM groups ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query groups: %w", err)
	}
	defer groupRows.Close()

	groupIndex := make(map[string]int)
	for groupRows.Next() {
		var (
			name string
			vars sql.NullString
		)
		if err := groupRows.Scan(&name, &vars); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}

		gr := inventory.GroupRecord{Name: name}
		if err := unmarshalVars(vars, &gr.Vars); err != nil {
			return nil, fmt.Errorf("failed to unmarshal vars for group %s: %w", name, err)
		}
		groupIndex[name] = len(snap.Groups)
		snap.Groups = append(snap.Groups, gr)
	}
	if err := groupRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating groups: %w", err)
	}

	if len(snap.Hosts) == 0 && len(snap.Groups) == 0 {
		return nil, nil
	}

	memberRows, err := r.db.QueryContext(ctx, `
		SELECT group_name, host_name FROM group_hosts ORDER BY group_name, ord
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query memberships: %w", err)
	}
	defer memberRows.Close()

	for memberRows.Next() {
		var group, host string
		if err := memberRows.Scan(&group, &host); err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		if gi, ok := groupIndex[group]; ok {
			snap.Groups[gi].Hosts = append(snap.Groups[gi].Hosts, host)
		}
	}
	if err := memberRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating memberships: %w", err)
	}

	childRows, err := r.db.QueryContext(ctx, `
		SELECT parent_name, child_name FROM group_children ORDER BY parent_name, ord
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query child edges: %w", err)
	}
	defer childRows.Close()

	for childRows.Next() {
		var parent, child string
		if err := childRows.Scan(&parent, &child); err != nil {
			return nil, fmt.Errorf("failed to scan child edge: %w", err)
		}
		if gi, ok := groupIndex[parent]; ok {
			snap.Groups[gi].Children = append(snap.Groups[gi].Children, child)
		}
	}
	if err := childRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating child edges: %w", err)
	}

	sourceRows, err := r.db.QueryContext(ctx, `SELECT name FROM sources ORDER BY ord`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sources: %w", err)
	}
	defer sourceRows.Close()

	for sourceRows.Next() {
		var name string
		if err := sourceRows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		snap.Sources = append(snap.Sources, name)
	}
	if err := sourceRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sources: %w", err)
	}

	return snap, nil
}

// SaveSnapshot replaces all stored data with the snapshot contents.
func (r *Repository) SaveSnapshot(ctx context.Context, snap *inventory.Snapshot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Clear existing data (order matters due to foreign keys)
	for _, table := range []string{"group_hosts", "group_children", "sources", "hosts", "groups"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	hostStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO hosts (name, address, port, uuid, implicit, source, vars, groups)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare host statement: %w", err)
	}
	defer hostStmt.Close()

	for _, h := range snap.Hosts {
		vars, err := marshalVars(h.Vars)
		if err != nil {
			return fmt.Errorf("failed to marshal vars for host %s: %w", h.Name, err)
		}
		groups, err := marshalNames(h.Groups)
		if err != nil {
			return fmt.Errorf("failed to marshal groups for host %s: %w", h.Name, err)
		}
		implicit := 0
		if h.Implicit {
			implicit = 1
		}
		if _, err := hostStmt.ExecContext(ctx, h.Name, h.Address, h.Port, h.UUID, implicit, stringToNull(h.Source), vars, groups); err != nil {
			return fmt.Errorf("failed to insert host %s: %w", h.Name, err)
		}
	}

	groupStmt, err := tx.PrepareContext(ctx, `INSERT INTO groups (name, vars) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare group statement: %w", err)
	}
	defer groupStmt.Close()

	memberStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO group_hosts (group_name, host_name, ord) VALUES (?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare membership statement: %w", err)
	}
	defer memberStmt.Close()

	childStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO group_children (parent_name, child_name, ord) VALUES (?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare child statement: %w", err)
	}
	defer childStmt.Close()

	for _, g := range snap.Groups {
		vars, err := marshalVars(g.Vars)
		if err != nil {
			return fmt.Errorf("failed to marshal vars for group %s: %w", g.Name, err)
		}
		if _, err := groupStmt.ExecContext(ctx, g.Name, vars); err != nil {
			return fmt.Errorf("failed to insert group %s: %w", g.Name, err)
		}
		for i, host := range g.Hosts {
			if _, err := memberStmt.ExecContext(ctx, g.Name, host, i); err != nil {
				return fmt.Errorf("failed to insert membership %s/%s: %w", g.Name, host, err)
			}
		}
		for i, child := range g.Children {
			if _, err := childStmt.ExecContext(ctx, g.Name, child, i); err != nil {
				return fmt.Errorf("failed to insert child edge %s/%s: %w", g.Name, child, err)
			}
		}
	}

	for i, name := range snap.Sources {
		if _, err := tx.ExecContext(ctx, `INSERT INTO sources (ord, name) VALUES (?, ?)`, i, name); err != nil {
			return fmt.Errorf("failed to insert source %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}
