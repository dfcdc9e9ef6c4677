package authz

import (
	"context"

	"github.com/normatel/norahub/db"
)

// CargoRegistry handles CRUD and lookups for cargos (named roles).
// This is purely a data access layer - no authorization logic.
type CargoRegistry interface {
	// Create creates a new cargo
	Create(ctx context.Context, cargo *db.Cargo) error

	// Get retrieves a cargo by its immutable ID
	Get(ctx context.Context, id string) (*db.Cargo, error)

	// FindByName retrieves a cargo by exact, case-sensitive display name.
	// This is the legacy join path for user rows without a cargo_id.
	FindByName(ctx context.Context, name string) (*db.Cargo, error)

	// List returns every cargo (the resolver works over a full snapshot)
	List(ctx context.Context) ([]db.Cargo, error)

	// Update updates a cargo. The write is conditional on the version the
	// caller read; a concurrent modification returns ErrConflict.
	Update(ctx context.Context, cargo *db.Cargo) error

	// Delete removes a cargo. Refused with ErrCargoInUse while any user
	// still references it by ID or legacy name.
	Delete(ctx context.Context, id string) error

	// InUse reports whether any user references the cargo
	InUse(ctx context.Context, id string) (bool, error)

	// Bootstrap seeds the default cargo set when the registry is empty.
	// The emptiness check and the inserts run in one transaction so two
	// concurrent bootstraps cannot double-seed.
	Bootstrap(ctx context.Context) error
}
