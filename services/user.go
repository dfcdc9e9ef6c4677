package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/lib/pq"

	"github.com/normatel/norahub/authz"
	"github.com/normatel/norahub/db"
)

const userColumns = `id, name, email, COALESCE(photo_url, ''), funcao, COALESCE(cargo_id, ''),
	access_status, assigned_project_ids, favorite_project_ids, COALESCE(fcm_token, ''),
	version, created_at, updated_at`

// UserService manages the user directory. Every mutation of someone else's
// profile goes through the resolver decision and the admin-on-admin guard.
type UserService struct {
	PG       *sql.DB
	Redis    *redis.Client
	Registry authz.CargoRegistry

	notifier *NotificationService
}

func NewUserService(pg *sql.DB, rdb *redis.Client, registry authz.CargoRegistry) *UserService {
	return &UserService{PG: pg, Redis: rdb, Registry: registry}
}

// SetNotifier wires the notification service in after construction
func (s *UserService) SetNotifier(n *NotificationService) {
	s.notifier = n
}

// UpdateUserInput is a partial profile patch
type UpdateUserInput struct {
	Name     *string `json:"name,omitempty"`
	PhotoURL *string `json:"photo_url,omitempty"`
	Funcao   *string `json:"funcao,omitempty"`
	CargoID  *string `json:"cargo_id,omitempty"`
	Version  int     `json:"version"`
}

// GetUser retrieves a user by ID
func (s *UserService) GetUser(ctx context.Context, id string) (*db.User, error) {
	row := s.PG.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// GetUserByEmail retrieves a user by e-mail
func (s *UserService) GetUserByEmail(ctx context.Context, email string) (*db.User, error) {
	row := s.PG.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// GetUserFor retrieves a profile on behalf of an actor. Admin profiles are
// invisible to non-admin actors; that denial is a permission error, not a
// not-found.
func (s *UserService) GetUserFor(ctx context.Context, actorID, targetID string) (*db.User, error) {
	target, err := s.GetUser(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if actorID == targetID {
		return target, nil
	}
	actor, err := s.GetUser(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !authz.CanManageTarget(actor, target) {
		return nil, authz.ErrForbidden
	}
	return target, nil
}

// ActorContext loads the acting user together with a cargo snapshot for the
// resolver. The snapshot is fetched fresh on every call - decisions are
// never cached.
func (s *UserService) ActorContext(ctx context.Context, actorID string) (*db.User, []db.Cargo, error) {
	actor, err := s.GetUser(ctx, actorID)
	if err != nil {
		return nil, nil, err
	}
	cargos, err := s.Registry.List(ctx)
	if err != nil {
		// Fail closed: a broken registry lookup yields an empty snapshot,
		// which resolves to no custom-role permissions.
		log.Printf("cargo snapshot failed for actor %s: %v", actorID, err)
		cargos = nil
	}
	return actor, cargos, nil
}

// Decision resolves the permission decision for a user, optionally against
// a project.
func (s *UserService) Decision(ctx context.Context, userID, projectID string) (authz.Decision, error) {
	user, cargos, err := s.ActorContext(ctx, userID)
	if err != nil {
		return authz.Decision{}, err
	}
	var project *db.Project
	if projectID != "" {
		project = &db.Project{ID: projectID}
		row := s.PG.QueryRowContext(ctx, `SELECT member_ids FROM projects WHERE id = $1`, projectID)
		var members pq.StringArray
		if err := row.Scan(&members); err == nil {
			project.MemberIDs = members
		}
	}
	return authz.Resolve(user, cargos, project), nil
}

// ListUsers returns the directory visible to the actor. Non-admin actors
// never see admin profiles, even with CanManageUsers.
func (s *UserService) ListUsers(ctx context.Context, actorID string) ([]db.User, error) {
	actor, cargos, err := s.ActorContext(ctx, actorID)
	if err != nil {
		return nil, err
	}
	decision := authz.Resolve(actor, cargos, nil)
	if !decision.CanManageUsers && !actor.IsAdmin() {
		return nil, authz.ErrForbidden
	}

	rows, err := s.PG.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := make([]db.User, 0)
	for rows.Next() {
		u, err := scanUserRows(rows)
		if err != nil {
			return nil, err
		}
		if !authz.CanManageTarget(actor, u) {
			continue
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// CreateUserRecord inserts a profile row (used by the auth middleware's
// first-login auto-sync)
func (s *UserService) CreateUserRecord(ctx context.Context, user *db.User) error {
	if user.ID == "" || user.Email == "" {
		return authz.ErrInvalidInput
	}
	now := time.Now()
	user.Version = 1
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.AssignedProjectIDs == nil {
		user.AssignedProjectIDs = []string{}
	}

	_, err := s.PG.ExecContext(ctx, `
		INSERT INTO users (id, name, email, photo_url, funcao, cargo_id, access_status,
		                   assigned_project_ids, favorite_project_ids, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, '{}', $9, $10, $11)
	`, user.ID, user.Name, user.Email, user.PhotoURL, user.Funcao, user.CargoID,
		user.AccessStatus, pq.Array(user.AssignedProjectIDs), user.Version, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if isUniqueViolationErr(err) {
			return authz.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// UpdateUser patches a profile. Self-service is limited to display fields;
// role changes go through the funcao guard.
func (s *UserService) UpdateUser(ctx context.Context, actorID, targetID string, input UpdateUserInput) (*db.User, error) {
	actor, cargos, err := s.ActorContext(ctx, actorID)
	if err != nil {
		return nil, err
	}
	target, err := s.GetUser(ctx, targetID)
	if err != nil {
		return nil, err
	}

	self := actorID == targetID
	roleChange := input.Funcao != nil || input.CargoID != nil

	if !self {
		decision := authz.Resolve(actor, cargos, nil)
		if !decision.CanManageUsers {
			return nil, authz.ErrForbidden
		}
		if !authz.CanManageTarget(actor, target) {
			return nil, authz.ErrForbidden
		}
	}
	if roleChange {
		newFuncao := target.Funcao
		if input.Funcao != nil {
			newFuncao = *input.Funcao
		}
		if self && !actor.IsAdmin() {
			return nil, authz.ErrForbidden
		}
		if !authz.CanAssignFuncao(actor, target, newFuncao) {
			return nil, authz.ErrForbidden
		}
	}

	if input.Name != nil {
		target.Name = *input.Name
	}
	if input.PhotoURL != nil {
		target.PhotoURL = *input.PhotoURL
	}
	if input.Funcao != nil {
		target.Funcao = *input.Funcao
	}
	if input.CargoID != nil {
		target.CargoID = *input.CargoID
	}
	if input.Version != 0 {
		target.Version = input.Version
	}

	if err := s.writeUser(ctx, target); err != nil {
		return nil, err
	}
	return target, nil
}

// ApproveUser flips a pending account to active
func (s *UserService) ApproveUser(ctx context.Context, actorID, targetID string) (*db.User, error) {
	actor, cargos, err := s.ActorContext(ctx, actorID)
	if err != nil {
		return nil, err
	}
	decision := authz.Resolve(actor, cargos, nil)
	if !decision.CanManageUsers {
		return nil, authz.ErrForbidden
	}

	target, err := s.GetUser(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if !authz.CanManageTarget(actor, target) {
		return nil, authz.ErrForbidden
	}
	if !target.IsPending() {
		return target, nil
	}

	target.AccessStatus = db.AccessActive
	if err := s.writeUser(ctx, target); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.Notify(ctx, &db.Notification{
			UserID:   target.ID,
			Title:    "Acesso aprovado",
			Body:     "Seu acesso ao NoraHub foi aprovado.",
			Kind:     db.NotificationAccessApproved,
			Channels: []string{"push", "email"},
		})
	}
	return target, nil
}

// DeleteUser removes a profile. Admin profiles are untouchable by non-admin
// actors: that is a permission-denied outcome, distinct from not-found.
func (s *UserService) DeleteUser(ctx context.Context, actorID, targetID string) error {
	actor, cargos, err := s.ActorContext(ctx, actorID)
	if err != nil {
		return err
	}
	decision := authz.Resolve(actor, cargos, nil)
	if !decision.CanManageUsers {
		return authz.ErrForbidden
	}

	target, err := s.GetUser(ctx, targetID)
	if err != nil {
		return err
	}
	if !authz.CanManageTarget(actor, target) {
		return authz.ErrForbidden
	}

	result, err := s.PG.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, targetID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return authz.ErrNotFound
	}
	return nil
}

// ToggleProjectAssignment adds or removes a project from the target's
// assignment list. Repeated toggles alternate cleanly: state after n calls
// equals state after n mod 2.
func (s *UserService) ToggleProjectAssignment(ctx context.Context, actorID, targetID, projectID string) (bool, error) {
	actor, cargos, err := s.ActorContext(ctx, actorID)
	if err != nil {
		return false, err
	}
	if !authz.CanAssignProjects(actor, cargos) {
		return false, authz.ErrForbidden
	}

	target, err := s.GetUser(ctx, targetID)
	if err != nil {
		return false, err
	}
	if !authz.CanManageTarget(actor, target) {
		return false, authz.ErrForbidden
	}

	target.AssignedProjectIDs, _ = toggleID(target.AssignedProjectIDs, projectID)
	if err := s.writeUser(ctx, target); err != nil {
		return false, err
	}

	if s.notifier != nil && containsStr(target.AssignedProjectIDs, projectID) {
		s.notifier.Notify(ctx, &db.Notification{
			UserID:   target.ID,
			Title:    "Projeto compartilhado",
			Body:     "Um projeto foi adicionado à sua lista de acessos.",
			Kind:     db.NotificationProjectShared,
			Channels: []string{"push"},
		})
	}
	return containsStr(target.AssignedProjectIDs, projectID), nil
}

// ToggleFavorite adds or removes a project from the user's own favorites,
// with the same add/remove parity as assignment toggling.
func (s *UserService) ToggleFavorite(ctx context.Context, userID, projectID string) (bool, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return false, err
	}

	user.FavoriteProjectIDs, _ = toggleID(user.FavoriteProjectIDs, projectID)
	if err := s.writeUser(ctx, user); err != nil {
		return false, err
	}

	if s.Redis != nil {
		s.Redis.Del(ctx, favoritesCacheKey(userID))
	}
	return containsStr(user.FavoriteProjectIDs, projectID), nil
}

// Favorites returns the user's favorite project IDs, cached in Redis
func (s *UserService) Favorites(ctx context.Context, userID string) ([]string, error) {
	if s.Redis != nil {
		if cached, err := s.Redis.Get(ctx, favoritesCacheKey(userID)).Result(); err == nil {
			var ids []string
			if json.Unmarshal([]byte(cached), &ids) == nil {
				return ids, nil
			}
		}
	}

	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := user.FavoriteProjectIDs
	if ids == nil {
		ids = []string{}
	}

	if s.Redis != nil {
		if payload, err := json.Marshal(ids); err == nil {
			s.Redis.Set(ctx, favoritesCacheKey(userID), payload, 5*time.Minute)
		}
	}
	return ids, nil
}

// UpdateFCMToken stores the push delivery token for a user
func (s *UserService) UpdateFCMToken(ctx context.Context, userID, token string) error {
	_, err := s.PG.ExecContext(ctx, `
		UPDATE users SET fcm_token = $2, updated_at = $3 WHERE id = $1
	`, userID, token, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update fcm token: %w", err)
	}
	return nil
}

// writeUser persists a profile with a compare-and-swap on the version
func (s *UserService) writeUser(ctx context.Context, user *db.User) error {
	user.UpdatedAt = time.Now()

	result, err := s.PG.ExecContext(ctx, `
		UPDATE users
		SET name = $3, email = $4, photo_url = $5, funcao = $6, cargo_id = NULLIF($7, ''),
		    access_status = $8, assigned_project_ids = $9, favorite_project_ids = $10,
		    version = version + 1, updated_at = $11
		WHERE id = $1 AND version = $2
	`, user.ID, user.Version, user.Name, user.Email, user.PhotoURL, user.Funcao, user.CargoID,
		user.AccessStatus, pq.Array(user.AssignedProjectIDs), pq.Array(user.FavoriteProjectIDs), user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		var exists bool
		s.PG.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, user.ID).Scan(&exists)
		if exists {
			return authz.ErrConflict
		}
		return authz.ErrNotFound
	}
	user.Version++
	return nil
}

// toggleID flips membership of id in ids. Returns the new slice and whether
// the id is now present. Duplicate entries can never accumulate: every
// occurrence is removed on the off toggle.
func toggleID(ids []string, id string) ([]string, bool) {
	out := make([]string, 0, len(ids))
	found := false
	for _, v := range ids {
		if v == id {
			found = true
			continue
		}
		out = append(out, v)
	}
	if found {
		return out, false
	}
	return append(out, id), true
}

func containsStr(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func favoritesCacheKey(userID string) string {
	return "favorites:" + userID
}

func scanUser(row *sql.Row) (*db.User, error) {
	var u db.User
	var assigned, favorites pq.StringArray
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PhotoURL, &u.Funcao, &u.CargoID,
		&u.AccessStatus, &assigned, &favorites, &u.FCMToken, &u.Version, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, authz.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	u.AssignedProjectIDs = assigned
	u.FavoriteProjectIDs = favorites
	return &u, nil
}

func scanUserRows(rows *sql.Rows) (*db.User, error) {
	var u db.User
	var assigned, favorites pq.StringArray
	err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.PhotoURL, &u.Funcao, &u.CargoID,
		&u.AccessStatus, &assigned, &favorites, &u.FCMToken, &u.Version, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	u.AssignedProjectIDs = assigned
	u.FavoriteProjectIDs = favorites
	return &u, nil
}

func isUniqueViolationErr(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	return false
}
