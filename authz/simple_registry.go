package authz

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/normatel/norahub/db"
)

const cargoColumns = `id, name, kind, manager_tier, scoped_project_ids,
	can_manage_users, can_manage_permissions, can_create_cargos,
	can_create_projects, can_edit_project_cards, version, created_at, updated_at`

// SimpleCargoRegistry implements CargoRegistry using SQL
type SimpleCargoRegistry struct {
	db *sql.DB
}

// NewSimpleCargoRegistry creates a new SimpleCargoRegistry
func NewSimpleCargoRegistry(database *sql.DB) *SimpleCargoRegistry {
	return &SimpleCargoRegistry{db: database}
}

// Ensure SimpleCargoRegistry implements CargoRegistry
var _ CargoRegistry = (*SimpleCargoRegistry)(nil)

// Create creates a new cargo
func (r *SimpleCargoRegistry) Create(ctx context.Context, cargo *db.Cargo) error {
	if cargo.Name == "" {
		return ErrInvalidInput
	}
	if cargo.ID == "" {
		cargo.ID = uuid.New().String()
	}
	now := time.Now()
	cargo.Version = 1
	cargo.CreatedAt = now
	cargo.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO cargos (id, name, kind, manager_tier, scoped_project_ids,
		                    can_manage_users, can_manage_permissions, can_create_cargos,
		                    can_create_projects, can_edit_project_cards, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, cargo.ID, cargo.Name, cargo.Kind, cargo.ManagerTier, pq.Array(cargo.ScopedProjectIDs),
		cargo.CanManageUsers, cargo.CanManagePermissions, cargo.CanCreateCargos,
		cargo.CanCreateProjects, cargo.CanEditProjectCards, cargo.Version, cargo.CreatedAt, cargo.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: cargo name already taken", ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create cargo: %w", err)
	}
	return nil
}

// Get retrieves a cargo by ID
func (r *SimpleCargoRegistry) Get(ctx context.Context, id string) (*db.Cargo, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+cargoColumns+`
		FROM cargos
		WHERE id = $1
	`, id)
	return scanCargo(row)
}

// FindByName retrieves a cargo by exact display-name match. The comparison
// is case-sensitive on purpose: the legacy data joins on the raw string.
func (r *SimpleCargoRegistry) FindByName(ctx context.Context, name string) (*db.Cargo, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+cargoColumns+`
		FROM cargos
		WHERE name = $1
	`, name)
	return scanCargo(row)
}

// List returns all cargos ordered by name
func (r *SimpleCargoRegistry) List(ctx context.Context) ([]db.Cargo, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+cargoColumns+`
		FROM cargos
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list cargos: %w", err)
	}
	defer rows.Close()

	cargos := make([]db.Cargo, 0)
	for rows.Next() {
		var c db.Cargo
		var scoped pq.StringArray
		if err := rows.Scan(&c.ID, &c.Name, &c.Kind, &c.ManagerTier, &scoped,
			&c.CanManageUsers, &c.CanManagePermissions, &c.CanCreateCargos,
			&c.CanCreateProjects, &c.CanEditProjectCards, &c.Version, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cargo: %w", err)
		}
		c.ScopedProjectIDs = scoped
		cargos = append(cargos, c)
	}
	return cargos, rows.Err()
}

// Update updates a cargo with a compare-and-swap on the version column
func (r *SimpleCargoRegistry) Update(ctx context.Context, cargo *db.Cargo) error {
	cargo.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, `
		UPDATE cargos
		SET name = $3, kind = $4, manager_tier = $5, scoped_project_ids = $6,
		    can_manage_users = $7, can_manage_permissions = $8, can_create_cargos = $9,
		    can_create_projects = $10, can_edit_project_cards = $11,
		    version = version + 1, updated_at = $12
		WHERE id = $1 AND version = $2
	`, cargo.ID, cargo.Version, cargo.Name, cargo.Kind, cargo.ManagerTier, pq.Array(cargo.ScopedProjectIDs),
		cargo.CanManageUsers, cargo.CanManagePermissions, cargo.CanCreateCargos,
		cargo.CanCreateProjects, cargo.CanEditProjectCards, cargo.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: cargo name already taken", ErrAlreadyExists)
		}
		return fmt.Errorf("failed to update cargo: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		// Either gone or concurrently modified; distinguish for the caller.
		var exists bool
		r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM cargos WHERE id = $1)`, cargo.ID).Scan(&exists)
		if exists {
			return ErrConflict
		}
		return ErrNotFound
	}
	cargo.Version++
	return nil
}

// Delete removes a cargo unless a user still references it
func (r *SimpleCargoRegistry) Delete(ctx context.Context, id string) error {
	inUse, err := r.InUse(ctx, id)
	if err != nil {
		return err
	}
	if inUse {
		return ErrCargoInUse
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM cargos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete cargo: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// InUse checks whether any user references the cargo by ID or legacy name
func (r *SimpleCargoRegistry) InUse(ctx context.Context, id string) (bool, error) {
	var inUse bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM users u
			WHERE u.cargo_id = $1
			   OR u.funcao = (SELECT name FROM cargos WHERE id = $1)
		)
	`, id).Scan(&inUse)
	if err != nil {
		return false, fmt.Errorf("failed to check cargo usage: %w", err)
	}
	return inUse, nil
}

// Bootstrap seeds the default cargo set exactly once. The count check and
// the inserts share a transaction, so a concurrent bootstrap from a second
// instance blocks and then sees a non-empty table.
func (r *SimpleCargoRegistry) Bootstrap(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin bootstrap: %w", err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM cargos`).Scan(&count); err != nil {
		return fmt.Errorf("failed to count cargos: %w", err)
	}
	if count > 0 {
		return nil
	}

	now := time.Now()
	for _, c := range db.SeedCargos() {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO cargos (id, name, kind, manager_tier, scoped_project_ids,
			                    can_manage_users, can_manage_permissions, can_create_cargos,
			                    can_create_projects, can_edit_project_cards, version, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 1, $11, $11)
			ON CONFLICT (id) DO NOTHING
		`, c.ID, c.Name, c.Kind, c.ManagerTier, pq.Array(c.ScopedProjectIDs),
			c.CanManageUsers, c.CanManagePermissions, c.CanCreateCargos,
			c.CanCreateProjects, c.CanEditProjectCards, now)
		if err != nil {
			return fmt.Errorf("failed to seed cargo %q: %w", c.Name, err)
		}
	}

	return tx.Commit()
}

// scanCargo scans a single cargo row
func scanCargo(row *sql.Row) (*db.Cargo, error) {
	var c db.Cargo
	var scoped pq.StringArray
	err := row.Scan(&c.ID, &c.Name, &c.Kind, &c.ManagerTier, &scoped,
		&c.CanManageUsers, &c.CanManagePermissions, &c.CanCreateCargos,
		&c.CanCreateProjects, &c.CanEditProjectCards, &c.Version, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get cargo: %w", err)
	}
	c.ScopedProjectIDs = scoped
	return &c, nil
}

func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	return false
}
