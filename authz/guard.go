package authz

import "github.com/normatel/norahub/db"

// CanManageTarget reports whether actor may view or mutate the target user
// profile. Admin profiles are untouchable by anyone but another admin, even
// for actors whose cargo grants user management.
func CanManageTarget(actor, target *db.User) bool {
	if actor == nil || target == nil {
		return false
	}
	if actor.IsAdmin() {
		return true
	}
	return !target.IsAdmin()
}

// CanAssignFuncao reports whether actor may set the target's funcao to the
// given value. Only admins may promote anyone to admin or change an existing
// admin's role.
func CanAssignFuncao(actor, target *db.User, newFuncao string) bool {
	if actor == nil || target == nil {
		return false
	}
	if actor.IsAdmin() {
		return true
	}
	if newFuncao == db.FuncaoAdmin {
		return false
	}
	return !target.IsAdmin()
}
