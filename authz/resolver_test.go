package authz

import (
	"testing"

	"github.com/normatel/norahub/db"
)

func activeUser(funcao string) *db.User {
	return &db.User{ID: "u-1", Funcao: funcao, AccessStatus: db.AccessActive}
}

func TestResolve_AdminDominance(t *testing.T) {
	admin := activeUser(db.FuncaoAdmin)

	// A registry snapshot that would deny everything to a normal user, and
	// a project the admin is neither assigned to nor scoped for.
	cargos := []db.Cargo{{ID: "c-1", Name: "Colaborador"}}
	project := &db.Project{ID: "P9"}

	tests := []struct {
		name    string
		project *db.Project
	}{
		{"with project", project},
		{"without project", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(admin, cargos, tt.project)
			if got != AllGranted() {
				t.Errorf("Resolve() = %+v, want all-true", got)
			}
		})
	}
}

func TestResolve_PendingLockout(t *testing.T) {
	tests := []struct {
		name   string
		funcao string
	}{
		{"pending admin", db.FuncaoAdmin},
		{"pending manager", "Gerente Geral"},
		{"pending collaborator", "Colaborador"},
	}

	cargos := []db.Cargo{{ID: "c-1", Name: "Colaborador"}}
	project := &db.Project{ID: "P1"}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &db.User{ID: "u-1", Funcao: tt.funcao, AccessStatus: db.AccessPending,
				AssignedProjectIDs: []string{"P1"}}
			got := Resolve(u, cargos, project)
			if !got.Denied() {
				t.Errorf("Resolve() = %+v, want all-false for pending account", got)
			}
		})
	}
}

func TestResolve_ManagerSubstring(t *testing.T) {
	// The substring rule is deliberately coarse: any funcao containing
	// "gerente" (case-insensitive, any position) gets full manager rights.
	// Asserted as current behavior, adversarial names included.
	tests := []struct {
		name   string
		funcao string
	}{
		{"plain manager", "Gerente Geral"},
		{"upper case", "GERENTE DE CONTRATOS"},
		{"substring in the middle", "Vice Gerente Assistente"},
		{"lower case", "subgerente"},
	}

	project := &db.Project{ID: "P7"}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(activeUser(tt.funcao), nil, project)
			if !got.CanManageUsers || !got.CanCreateProjects || !got.CanEditCards {
				t.Errorf("Resolve() = %+v, want manager grants", got)
			}
			if !got.CanView || !got.CanEdit {
				t.Errorf("Resolve() = %+v, want view/edit on every project", got)
			}
			if got.CanManageRoles {
				t.Errorf("Resolve() granted CanManageRoles without a cargo flag")
			}
		})
	}
}

func TestResolve_ManagerTierFlag(t *testing.T) {
	// The explicit flag grants manager rights even when the name carries no
	// legacy substring.
	cargos := []db.Cargo{{ID: "c-1", Name: "Coordenador Executivo", ManagerTier: true}}
	u := activeUser("Coordenador Executivo")

	got := Resolve(u, cargos, &db.Project{ID: "P1"})
	if !got.CanManageUsers || !got.CanEdit || !got.CanView {
		t.Errorf("Resolve() = %+v, want manager grants via ManagerTier flag", got)
	}
}

func TestResolve_FailClosedOnUnknownFuncao(t *testing.T) {
	cargos := []db.Cargo{{ID: "c-1", Name: "Colaborador"}}

	tests := []struct {
		name string
		user *db.User
	}{
		{"no user", nil},
		{"funcao matches nothing", activeUser("Estagiário")},
		{"case mismatch is not a match", activeUser("colaborador")},
		{"empty funcao", activeUser("")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.user, cargos, &db.Project{ID: "P1"})
			if !got.Denied() {
				t.Errorf("Resolve() = %+v, want all-false", got)
			}
		})
	}
}

func TestResolve_ViewEditIndependence(t *testing.T) {
	p1 := &db.Project{ID: "P1"}

	t.Run("edit scope without view assignment", func(t *testing.T) {
		// U1 has role R1 scoping P1 but no personal assignment: edit yes,
		// view no.
		cargos := []db.Cargo{{ID: "R1", Name: "Fiscal de Obras", ScopedProjectIDs: []string{"P1"}}}
		u1 := &db.User{ID: "U1", Funcao: "Fiscal de Obras", AccessStatus: db.AccessActive}

		got := Resolve(u1, cargos, p1)
		if !got.CanEdit {
			t.Errorf("CanEdit = false, want true (P1 in role scope)")
		}
		if got.CanView {
			t.Errorf("CanView = true, want false (U1 not assigned to P1)")
		}
	})

	t.Run("view assignment without edit scope", func(t *testing.T) {
		cargos := []db.Cargo{{ID: "R2", Name: "Consultor"}}
		u2 := &db.User{ID: "U2", Funcao: "Consultor", AccessStatus: db.AccessActive,
			AssignedProjectIDs: []string{"P1"}}

		got := Resolve(u2, cargos, p1)
		if !got.CanView {
			t.Errorf("CanView = false, want true (P1 in assignments)")
		}
		if got.CanEdit {
			t.Errorf("CanEdit = true, want false (empty role scope)")
		}
	})

	t.Run("project member list grants view", func(t *testing.T) {
		cargos := []db.Cargo{{ID: "R2", Name: "Consultor"}}
		u3 := &db.User{ID: "U3", Funcao: "Consultor", AccessStatus: db.AccessActive}
		shared := &db.Project{ID: "P1", MemberIDs: []string{"U3"}}

		got := Resolve(u3, cargos, shared)
		if !got.CanView {
			t.Errorf("CanView = false, want true (U3 in member list)")
		}
		if got.CanEdit {
			t.Errorf("CanEdit = true, want false")
		}
	})
}

func TestResolve_CargoIDJoinSurvivesRename(t *testing.T) {
	// The stable ID join must keep working when the display name changes
	// out from under the user's funcao string.
	cargos := []db.Cargo{{ID: "c-9", Name: "Fiscal de Campo (novo nome)",
		CanEditProjectCards: true, ScopedProjectIDs: []string{"P1"}}}
	u := &db.User{ID: "u-1", Funcao: "Fiscal de Campo", CargoID: "c-9",
		AccessStatus: db.AccessActive}

	got := Resolve(u, cargos, &db.Project{ID: "P1"})
	if !got.CanEditCards || !got.CanEdit {
		t.Errorf("Resolve() = %+v, want cargo flags via ID join after rename", got)
	}
}

func TestResolve_CargoFlagsCopied(t *testing.T) {
	cargos := []db.Cargo{{
		ID:                  "c-1",
		Name:                "Apoio Administrativo",
		CanManageUsers:      true,
		CanCreateCargos:     true,
		CanCreateProjects:   false,
		CanEditProjectCards: false,
	}}
	got := Resolve(activeUser("Apoio Administrativo"), cargos, nil)

	if !got.CanManageUsers {
		t.Errorf("CanManageUsers = false, want true")
	}
	if !got.CanManageRoles {
		t.Errorf("CanManageRoles = false, want true (from CanCreateCargos)")
	}
	if got.CanCreateProjects || got.CanEditCards {
		t.Errorf("got %+v, want create-projects/edit-cards false", got)
	}
	if got.CanView || got.CanEdit {
		t.Errorf("got %+v, want no project grants without a project", got)
	}
}

func TestCanAssignProjects(t *testing.T) {
	cargos := []db.Cargo{
		{ID: "c-1", Name: "Gestor de Acessos", CanManagePermissions: true},
		{ID: "c-2", Name: "Colaborador"},
	}

	tests := []struct {
		name string
		user *db.User
		want bool
	}{
		{"admin", activeUser(db.FuncaoAdmin), true},
		{"manager substring", activeUser("Gerente de Contratos"), true},
		{"permissions flag", activeUser("Gestor de Acessos"), true},
		{"plain collaborator", activeUser("Colaborador"), false},
		{"unknown funcao", activeUser("Visitante"), false},
		{"pending", &db.User{Funcao: db.FuncaoAdmin, AccessStatus: db.AccessPending}, false},
		{"nil user", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanAssignProjects(tt.user, cargos); got != tt.want {
				t.Errorf("CanAssignProjects() = %v, want %v", got, tt.want)
			}
		})
	}
}
