package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/normatel/norahub/authz"
	"github.com/normatel/norahub/db"
)

// fakeRegistry serves a fixed cargo snapshot
type fakeRegistry struct {
	cargos []db.Cargo
}

func (f *fakeRegistry) Create(ctx context.Context, cargo *db.Cargo) error { return nil }
func (f *fakeRegistry) Get(ctx context.Context, id string) (*db.Cargo, error) {
	return nil, authz.ErrNotFound
}
func (f *fakeRegistry) FindByName(ctx context.Context, name string) (*db.Cargo, error) {
	return nil, authz.ErrNotFound
}
func (f *fakeRegistry) List(ctx context.Context) ([]db.Cargo, error)  { return f.cargos, nil }
func (f *fakeRegistry) Update(ctx context.Context, cargo *db.Cargo) error { return nil }
func (f *fakeRegistry) Delete(ctx context.Context, id string) error       { return nil }
func (f *fakeRegistry) InUse(ctx context.Context, id string) (bool, error) {
	return false, nil
}
func (f *fakeRegistry) Bootstrap(ctx context.Context) error { return nil }

var userRows = []string{"id", "name", "email", "photo_url", "funcao", "cargo_id",
	"access_status", "assigned_project_ids", "favorite_project_ids", "fcm_token",
	"version", "created_at", "updated_at"}

func addUserRow(rows *sqlmock.Rows, id, funcao string) *sqlmock.Rows {
	now := time.Now()
	return rows.AddRow(id, "Name "+id, id+"@x.com", "", funcao, "",
		db.AccessActive, "{}", "{}", "", 1, now, now)
}

func TestDeleteUser_AdminTargetIsForbiddenNotMissing(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer mockDB.Close()

	registry := &fakeRegistry{cargos: []db.Cargo{{
		ID: "c-1", Name: "Gerente de Usuários", CanManageUsers: true,
	}}}
	svc := NewUserService(mockDB, nil, registry)
	ctx := context.Background()

	// Actor lookup, then target lookup. The target is an admin, so the
	// delete must stop at the guard: permission denied, not not-found.
	mock.ExpectQuery("SELECT (.+) FROM users WHERE id").
		WithArgs("u-manager").
		WillReturnRows(addUserRow(sqlmock.NewRows(userRows), "u-manager", "Gerente de Usuários"))
	mock.ExpectQuery("SELECT (.+) FROM users WHERE id").
		WithArgs("u-admin").
		WillReturnRows(addUserRow(sqlmock.NewRows(userRows), "u-admin", db.FuncaoAdmin))

	err = svc.DeleteUser(ctx, "u-manager", "u-admin")
	if !errors.Is(err, authz.ErrForbidden) {
		t.Errorf("DeleteUser() error = %v, want ErrForbidden", err)
	}
	if errors.Is(err, authz.ErrNotFound) {
		t.Error("admin target must not be reported as missing")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestWriteUser_StaleVersionConflict(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer mockDB.Close()

	svc := NewUserService(mockDB, nil, &fakeRegistry{})
	ctx := context.Background()

	user := &db.User{ID: "u-1", Name: "Maria", Email: "maria@x.com", Funcao: "Colaborador",
		AccessStatus: db.AccessActive, Version: 2}

	t.Run("stale version returns ErrConflict", func(t *testing.T) {
		mock.ExpectExec("UPDATE users").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT EXISTS").
			WithArgs("u-1").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		if err := svc.writeUser(ctx, user); !errors.Is(err, authz.ErrConflict) {
			t.Errorf("writeUser() error = %v, want ErrConflict", err)
		}
	})

	t.Run("missing row returns ErrNotFound", func(t *testing.T) {
		mock.ExpectExec("UPDATE users").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT EXISTS").
			WithArgs("u-1").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		if err := svc.writeUser(ctx, user); !errors.Is(err, authz.ErrNotFound) {
			t.Errorf("writeUser() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("successful write bumps version", func(t *testing.T) {
		before := user.Version
		mock.ExpectExec("UPDATE users").
			WillReturnResult(sqlmock.NewResult(0, 1))

		if err := svc.writeUser(ctx, user); err != nil {
			t.Fatalf("writeUser() error = %v", err)
		}
		if user.Version != before+1 {
			t.Errorf("Version = %d, want %d", user.Version, before+1)
		}
	})

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
