package authz

// Decision is the resolved bundle of boolean permissions for a user and
// (optionally) a project. It is computed fresh on every check and never
// cached or persisted.
type Decision struct {
	CanView           bool `json:"can_view"`
	CanEdit           bool `json:"can_edit"`
	CanManageUsers    bool `json:"can_manage_users"`
	CanManageRoles    bool `json:"can_manage_roles"`
	CanCreateProjects bool `json:"can_create_projects"`
	CanEditCards      bool `json:"can_edit_cards"`
}

// AllGranted is the admin decision: every field true.
func AllGranted() Decision {
	return Decision{
		CanView:           true,
		CanEdit:           true,
		CanManageUsers:    true,
		CanManageRoles:    true,
		CanCreateProjects: true,
		CanEditCards:      true,
	}
}

// Denied reports whether the decision grants nothing at all. Callers treat a
// fully denied decision as "show nothing / redirect".
func (d Decision) Denied() bool {
	return d == Decision{}
}
