package authz

import "github.com/normatel/norahub/db"

// VisibleProjects filters a project listing down to what the user may see.
// Admin and manager-tier users see everything. Everyone else sees the union
// of their own assignments, their cargo's edit scope and the projects that
// list them as an explicit member. Stale IDs referencing deleted projects
// drop out naturally because only the live listing is walked.
func VisibleProjects(user *db.User, cargos []db.Cargo, projects []db.Project) []db.Project {
	visible := make([]db.Project, 0)
	if user == nil || user.IsPending() {
		return visible
	}

	cargo := matchCargo(user, cargos)
	if user.IsAdmin() || isManagerTier(user, cargo) {
		return append(visible, projects...)
	}
	if cargo == nil {
		return visible
	}

	for _, p := range projects {
		if containsID(user.AssignedProjectIDs, p.ID) ||
			containsID(cargo.ScopedProjectIDs, p.ID) ||
			p.HasMember(user.ID) {
			visible = append(visible, p)
		}
	}
	return visible
}

// CanMutateCard gates card create/edit/delete on a project. The decision
// must have been resolved for that same project.
func CanMutateCard(d Decision) bool {
	return d.CanEditCards
}
