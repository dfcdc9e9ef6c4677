package authz

import (
	"testing"

	"github.com/normatel/norahub/db"
)

func TestCanManageTarget(t *testing.T) {
	admin := &db.User{ID: "a-1", Funcao: db.FuncaoAdmin, AccessStatus: db.AccessActive}
	manager := &db.User{ID: "m-1", Funcao: "Gerente de Usuários", AccessStatus: db.AccessActive}
	collaborator := &db.User{ID: "c-1", Funcao: "Colaborador", AccessStatus: db.AccessActive}

	tests := []struct {
		name   string
		actor  *db.User
		target *db.User
		want   bool
	}{
		{"admin manages admin", admin, admin, true},
		{"admin manages collaborator", admin, collaborator, true},
		{"manager manages collaborator", manager, collaborator, true},
		{"manager cannot touch admin", manager, admin, false},
		{"collaborator cannot touch admin", collaborator, admin, false},
		{"nil actor", nil, collaborator, false},
		{"nil target", admin, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanManageTarget(tt.actor, tt.target); got != tt.want {
				t.Errorf("CanManageTarget() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanAssignFuncao(t *testing.T) {
	admin := &db.User{ID: "a-1", Funcao: db.FuncaoAdmin}
	manager := &db.User{ID: "m-1", Funcao: "Gerente de Usuários"}
	collaborator := &db.User{ID: "c-1", Funcao: "Colaborador"}

	tests := []struct {
		name      string
		actor     *db.User
		target    *db.User
		newFuncao string
		want      bool
	}{
		{"admin promotes to admin", admin, collaborator, db.FuncaoAdmin, true},
		{"admin demotes admin", admin, admin, "Colaborador", true},
		{"manager cannot promote to admin", manager, collaborator, db.FuncaoAdmin, false},
		{"manager cannot demote admin", manager, admin, "Colaborador", false},
		{"manager reassigns collaborator", manager, collaborator, "Gerente de Projetos", true},
		{"collaborator cannot promote to admin", collaborator, collaborator, db.FuncaoAdmin, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanAssignFuncao(tt.actor, tt.target, tt.newFuncao); got != tt.want {
				t.Errorf("CanAssignFuncao() = %v, want %v", got, tt.want)
			}
		})
	}
}
