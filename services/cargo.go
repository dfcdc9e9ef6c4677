package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/normatel/norahub/authz"
	"github.com/normatel/norahub/db"
)

// CargoService wraps the cargo registry with permission checks. The registry
// itself is storage-only; every caller-facing operation resolves the actor's
// decision first.
type CargoService struct {
	Registry authz.CargoRegistry
	Users    *UserService
}

func NewCargoService(registry authz.CargoRegistry, users *UserService) *CargoService {
	return &CargoService{Registry: registry, Users: users}
}

// CargoInput is the create/update payload for a cargo
type CargoInput struct {
	Name                 string   `json:"name" binding:"required"`
	Kind                 string   `json:"kind"`
	ManagerTier          bool     `json:"manager_tier"`
	ScopedProjectIDs     []string `json:"scoped_project_ids"`
	CanManageUsers       bool     `json:"can_manage_users"`
	CanManagePermissions bool     `json:"can_manage_permissions"`
	CanCreateCargos      bool     `json:"can_create_cargos"`
	CanCreateProjects    bool     `json:"can_create_projects"`
	CanEditProjectCards  bool     `json:"can_edit_project_cards"`
	Version              int      `json:"version"`
}

// List returns all cargos. Read access needs no special permission: the
// resolver needs the full snapshot and the frontend shows role names in the
// directory.
func (s *CargoService) List(ctx context.Context) ([]db.Cargo, error) {
	return s.Registry.List(ctx)
}

// Get returns a single cargo by ID
func (s *CargoService) Get(ctx context.Context, id string) (*db.Cargo, error) {
	return s.Registry.Get(ctx, id)
}

// Create adds a new cargo. Requires the CanManageRoles decision bit.
func (s *CargoService) Create(ctx context.Context, actorID string, input CargoInput) (*db.Cargo, error) {
	if err := s.requireRoleManager(ctx, actorID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, authz.ErrInvalidInput
	}

	kind := input.Kind
	if kind == "" {
		kind = db.CargoKindCollaborator
	}

	now := time.Now()
	cargo := &db.Cargo{
		ID:                   uuid.New().String(),
		Name:                 strings.TrimSpace(input.Name),
		Kind:                 kind,
		ManagerTier:          input.ManagerTier,
		ScopedProjectIDs:     input.ScopedProjectIDs,
		CanManageUsers:       input.CanManageUsers,
		CanManagePermissions: input.CanManagePermissions,
		CanCreateCargos:      input.CanCreateCargos,
		CanCreateProjects:    input.CanCreateProjects,
		CanEditProjectCards:  input.CanEditProjectCards,
		Version:              1,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if cargo.ScopedProjectIDs == nil {
		cargo.ScopedProjectIDs = []string{}
	}

	if err := s.Registry.Create(ctx, cargo); err != nil {
		return nil, err
	}
	return cargo, nil
}

// Update rewrites a cargo's flags, scope and display name. The ID never
// changes, so users joined by cargo_id keep their role across renames.
func (s *CargoService) Update(ctx context.Context, actorID, cargoID string, input CargoInput) (*db.Cargo, error) {
	if err := s.requireRoleManager(ctx, actorID); err != nil {
		return nil, err
	}

	cargo, err := s.Registry.Get(ctx, cargoID)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(input.Name) != "" {
		cargo.Name = strings.TrimSpace(input.Name)
	}
	if input.Kind != "" {
		cargo.Kind = input.Kind
	}
	cargo.ManagerTier = input.ManagerTier
	cargo.CanManageUsers = input.CanManageUsers
	cargo.CanManagePermissions = input.CanManagePermissions
	cargo.CanCreateCargos = input.CanCreateCargos
	cargo.CanCreateProjects = input.CanCreateProjects
	cargo.CanEditProjectCards = input.CanEditProjectCards
	if input.ScopedProjectIDs != nil {
		cargo.ScopedProjectIDs = input.ScopedProjectIDs
	}
	if input.Version != 0 {
		cargo.Version = input.Version
	}

	if err := s.Registry.Update(ctx, cargo); err != nil {
		return nil, err
	}
	return cargo, nil
}

// Delete removes a cargo. The registry refuses while any user still
// references it, so a role can never silently vanish from under a profile.
func (s *CargoService) Delete(ctx context.Context, actorID, cargoID string) error {
	if err := s.requireRoleManager(ctx, actorID); err != nil {
		return err
	}
	return s.Registry.Delete(ctx, cargoID)
}

func (s *CargoService) requireRoleManager(ctx context.Context, actorID string) error {
	actor, cargos, err := s.Users.ActorContext(ctx, actorID)
	if err != nil {
		return err
	}
	decision := authz.Resolve(actor, cargos, nil)
	if !decision.CanManageRoles {
		return authz.ErrForbidden
	}
	return nil
}

// ComputeManagerTier infers the manager flag from a legacy cargo name. Used
// once when migrating name-only rows; new cargos set the flag explicitly.
func ComputeManagerTier(legacyName string) bool {
	return strings.Contains(strings.ToLower(legacyName), "gerente")
}
