package authz

import (
	"strings"

	"github.com/normatel/norahub/db"
)

// managerSubstring is the legacy marker: any funcao whose lower-cased form
// contains it gets full manager rights, however broad the name ("Vice
// Gerente Assistente" qualifies). Preserved as observed in the original
// portal; new cargos should use the explicit ManagerTier flag instead.
const managerSubstring = "gerente"

// Resolve computes the permission decision for a user against an optional
// project, given a snapshot of the cargo registry. It is a pure function:
// lookup failures resolve to the zero (all-false) decision, never an error.
//
// Rule order matters and callers depend on it:
//  1. no user            -> denied (caller redirects to login)
//  2. pending account    -> denied (caller renders the pending placeholder)
//  3. admin marker       -> everything, unconditionally
//  4. manager tier       -> manage users, create projects, edit cards,
//     view/edit every project
//  5. matched cargo      -> capability flags; project edit from the cargo's
//     scope, project view from the user's own assignments or the project's
//     member list (independent grants)
//  6. no cargo match     -> denied
func Resolve(user *db.User, cargos []db.Cargo, project *db.Project) Decision {
	if user == nil {
		return Decision{}
	}
	if user.IsPending() {
		return Decision{}
	}
	if user.IsAdmin() {
		return AllGranted()
	}

	cargo := matchCargo(user, cargos)

	if !isManagerTier(user, cargo) && cargo == nil {
		// Unknown funcao: fail closed.
		return Decision{}
	}

	var d Decision
	if cargo != nil {
		d.CanManageUsers = cargo.CanManageUsers
		d.CanManageRoles = cargo.CanCreateCargos
		d.CanCreateProjects = cargo.CanCreateProjects
		d.CanEditCards = cargo.CanEditProjectCards
		if project != nil {
			d.CanEdit = containsID(cargo.ScopedProjectIDs, project.ID)
		}
	}
	if project != nil {
		d.CanView = containsID(user.AssignedProjectIDs, project.ID) || project.HasMember(user.ID)
	}

	if isManagerTier(user, cargo) {
		d.CanManageUsers = true
		d.CanCreateProjects = true
		d.CanEditCards = true
		d.CanView = true
		d.CanEdit = true
	}

	return d
}

// CanAssignProjects reports whether the user may change other users' project
// assignment lists. Admins and manager-tier roles always can; otherwise the
// cargo's permissions flag decides.
func CanAssignProjects(user *db.User, cargos []db.Cargo) bool {
	if user == nil || user.IsPending() {
		return false
	}
	if user.IsAdmin() {
		return true
	}
	cargo := matchCargo(user, cargos)
	if isManagerTier(user, cargo) {
		return true
	}
	return cargo != nil && cargo.CanManagePermissions
}

// matchCargo resolves the user's cargo from a registry snapshot. The stable
// ID join wins; legacy rows without a cargo_id fall back to exact
// case-sensitive name match on the funcao string. No match returns nil.
func matchCargo(user *db.User, cargos []db.Cargo) *db.Cargo {
	if user.CargoID != "" {
		for i := range cargos {
			if cargos[i].ID == user.CargoID {
				return &cargos[i]
			}
		}
	}
	for i := range cargos {
		if cargos[i].Name == user.Funcao {
			return &cargos[i]
		}
	}
	return nil
}

func isManagerTier(user *db.User, cargo *db.Cargo) bool {
	if cargo != nil && cargo.ManagerTier {
		return true
	}
	return strings.Contains(strings.ToLower(user.Funcao), managerSubstring)
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
