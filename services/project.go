package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/normatel/norahub/authz"
	"github.com/normatel/norahub/db"
)

const projectColumns = `id, name, COALESCE(description, ''), COALESCE(forms_url, ''),
	COALESCE(sharepoint_url, ''), extra_cards, member_ids, version, created_at, updated_at`

// ProjectService manages projects, their member lists and their extra cards.
// View access and edit access are resolved independently per project.
type ProjectService struct {
	PG    *sql.DB
	Users *UserService

	folders  *FolderService
	notifier *NotificationService
}

func NewProjectService(pg *sql.DB, users *UserService) *ProjectService {
	return &ProjectService{PG: pg, Users: users}
}

func (s *ProjectService) SetFolders(f *FolderService) {
	s.folders = f
}

func (s *ProjectService) SetNotifier(n *NotificationService) {
	s.notifier = n
}

// ProjectInput is the create/update payload for a project
type ProjectInput struct {
	Name          string `json:"name" binding:"required"`
	Description   string `json:"description"`
	FormsURL      string `json:"forms_url"`
	SharePointURL string `json:"sharepoint_url"`
	Version       int    `json:"version"`
}

// CardInput is the create/update payload for an extra card
type CardInput struct {
	Name               string         `json:"name" binding:"required"`
	Description        string         `json:"description"`
	URL                string         `json:"url"`
	Type               string         `json:"type" binding:"required"`
	FormFields         []db.FormField `json:"form_fields"`
	EmailNotifications bool           `json:"email_notifications"`
	NotificationEmails []string       `json:"notification_emails"`
}

// ListProjects returns the projects visible to the actor
func (s *ProjectService) ListProjects(ctx context.Context, actorID string) ([]db.Project, error) {
	actor, cargos, err := s.Users.ActorContext(ctx, actorID)
	if err != nil {
		return nil, err
	}

	rows, err := s.PG.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	all := make([]db.Project, 0)
	for rows.Next() {
		p, err := scanProjectRows(rows)
		if err != nil {
			return nil, err
		}
		all = append(all, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return authz.VisibleProjects(actor, cargos, all), nil
}

// GetProject returns a project the actor can view
func (s *ProjectService) GetProject(ctx context.Context, actorID, projectID string) (*db.Project, error) {
	actor, cargos, err := s.Users.ActorContext(ctx, actorID)
	if err != nil {
		return nil, err
	}
	project, err := s.getProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	decision := authz.Resolve(actor, cargos, project)
	if !decision.CanView {
		return nil, authz.ErrForbidden
	}
	return project, nil
}

// CreateProject adds a new project
func (s *ProjectService) CreateProject(ctx context.Context, actorID string, input ProjectInput) (*db.Project, error) {
	actor, cargos, err := s.Users.ActorContext(ctx, actorID)
	if err != nil {
		return nil, err
	}
	decision := authz.Resolve(actor, cargos, nil)
	if !decision.CanCreateProjects {
		return nil, authz.ErrForbidden
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, authz.ErrInvalidInput
	}

	now := time.Now()
	project := &db.Project{
		ID:            uuid.New().String(),
		Name:          strings.TrimSpace(input.Name),
		Description:   input.Description,
		FormsURL:      input.FormsURL,
		SharePointURL: input.SharePointURL,
		ExtraCards:    []db.Card{},
		MemberIDs:     []string{},
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	cards, err := json.Marshal(project.ExtraCards)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cards: %w", err)
	}

	_, err = s.PG.ExecContext(ctx, `
		INSERT INTO projects (id, name, description, forms_url, sharepoint_url,
		                      extra_cards, member_ids, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, project.ID, project.Name, project.Description, project.FormsURL, project.SharePointURL,
		cards, pq.Array(project.MemberIDs), project.Version, project.CreatedAt, project.UpdatedAt)
	if err != nil {
		if isUniqueViolationErr(err) {
			return nil, authz.ErrAlreadyExists
		}
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	return project, nil
}

// UpdateProject patches the project's own fields (not cards, not members)
func (s *ProjectService) UpdateProject(ctx context.Context, actorID, projectID string, input ProjectInput) (*db.Project, error) {
	project, _, err := s.requireEdit(ctx, actorID, projectID)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(input.Name) != "" {
		project.Name = strings.TrimSpace(input.Name)
	}
	project.Description = input.Description
	project.FormsURL = input.FormsURL
	project.SharePointURL = input.SharePointURL
	if input.Version != 0 {
		project.Version = input.Version
	}

	if err := s.writeProject(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

// DeleteProject removes a project and schedules removal of its stored files
func (s *ProjectService) DeleteProject(ctx context.Context, actorID, projectID string) error {
	actor, cargos, err := s.Users.ActorContext(ctx, actorID)
	if err != nil {
		return err
	}
	project, err := s.getProject(ctx, projectID)
	if err != nil {
		return err
	}
	decision := authz.Resolve(actor, cargos, project)
	if !decision.CanCreateProjects {
		return authz.ErrForbidden
	}

	result, err := s.PG.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, projectID)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return authz.ErrNotFound
	}

	if s.folders != nil {
		if _, err := s.folders.DeleteFolder(ctx, actorID, projectPrefix(projectID)); err != nil {
			log.Printf("folder cleanup for project %s not scheduled: %v", projectID, err)
		}
	}
	return nil
}

// AddMember grants a user explicit view access to the project
func (s *ProjectService) AddMember(ctx context.Context, actorID, projectID, userID string) (*db.Project, error) {
	project, err := s.requireMembershipControl(ctx, actorID, projectID)
	if err != nil {
		return nil, err
	}
	if project.HasMember(userID) {
		return project, nil
	}

	project.MemberIDs = append(project.MemberIDs, userID)
	if err := s.writeProject(ctx, project); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.Notify(ctx, &db.Notification{
			UserID:   userID,
			Title:    "Projeto compartilhado",
			Body:     fmt.Sprintf("Você agora tem acesso ao projeto %s.", project.Name),
			Kind:     db.NotificationProjectShared,
			Channels: []string{"push"},
		})
	}
	return project, nil
}

// RemoveMember revokes a user's explicit view access
func (s *ProjectService) RemoveMember(ctx context.Context, actorID, projectID, userID string) (*db.Project, error) {
	project, err := s.requireMembershipControl(ctx, actorID, projectID)
	if err != nil {
		return nil, err
	}

	if !project.HasMember(userID) {
		return project, nil
	}
	project.MemberIDs, _ = toggleID(project.MemberIDs, userID)

	if err := s.writeProject(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

// AddCard appends an extra card to the project. The card gets a generated
// immutable ID that storage paths and form responses key on, so later renames
// never orphan files or responses.
func (s *ProjectService) AddCard(ctx context.Context, actorID, projectID string, input CardInput) (*db.Card, error) {
	project, decision, err := s.requireEdit(ctx, actorID, projectID)
	if err != nil {
		return nil, err
	}
	if !authz.CanMutateCard(decision) {
		return nil, authz.ErrForbidden
	}
	if err := validateCardInput(input); err != nil {
		return nil, err
	}

	card := db.Card{
		ID:                 uuid.New().String(),
		Name:               strings.TrimSpace(input.Name),
		Description:        input.Description,
		URL:                input.URL,
		Type:               input.Type,
		FormFields:         input.FormFields,
		EmailNotifications: input.EmailNotifications,
		NotificationEmails: input.NotificationEmails,
	}

	project.ExtraCards = append(project.ExtraCards, card)
	if err := s.writeProject(ctx, project); err != nil {
		return nil, err
	}
	return &card, nil
}

// UpdateCard patches an existing card in place. Renaming is purely cosmetic:
// the card keeps its ID and everything keyed on it.
func (s *ProjectService) UpdateCard(ctx context.Context, actorID, projectID, cardID string, input CardInput) (*db.Card, error) {
	project, decision, err := s.requireEdit(ctx, actorID, projectID)
	if err != nil {
		return nil, err
	}
	if !authz.CanMutateCard(decision) {
		return nil, authz.ErrForbidden
	}

	idx := findCard(project.ExtraCards, cardID)
	if idx < 0 {
		return nil, authz.ErrNotFound
	}

	card := &project.ExtraCards[idx]
	if strings.TrimSpace(input.Name) != "" {
		card.Name = strings.TrimSpace(input.Name)
	}
	card.Description = input.Description
	card.URL = input.URL
	if input.Type != "" {
		card.Type = input.Type
	}
	if input.FormFields != nil {
		card.FormFields = input.FormFields
	}
	card.EmailNotifications = input.EmailNotifications
	card.NotificationEmails = input.NotificationEmails

	if err := s.writeProject(ctx, project); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		for _, memberID := range project.MemberIDs {
			s.notifier.Notify(ctx, &db.Notification{
				UserID:   memberID,
				Title:    "Card atualizado",
				Body:     fmt.Sprintf("O card %s do projeto %s foi atualizado.", card.Name, project.Name),
				Kind:     db.NotificationCardUpdated,
				Channels: []string{"push"},
			})
		}
	}
	return card, nil
}

// DeleteCard removes a card and schedules removal of its stored files
func (s *ProjectService) DeleteCard(ctx context.Context, actorID, projectID, cardID string) error {
	project, decision, err := s.requireEdit(ctx, actorID, projectID)
	if err != nil {
		return err
	}
	if !authz.CanMutateCard(decision) {
		return authz.ErrForbidden
	}

	idx := findCard(project.ExtraCards, cardID)
	if idx < 0 {
		return authz.ErrNotFound
	}
	removed := project.ExtraCards[idx]
	project.ExtraCards = append(project.ExtraCards[:idx], project.ExtraCards[idx+1:]...)

	if err := s.writeProject(ctx, project); err != nil {
		return err
	}

	if removed.NeedsStorage() && s.folders != nil {
		if _, err := s.folders.DeleteFolder(ctx, actorID, cardPrefix(projectID, cardID)); err != nil {
			log.Printf("folder cleanup for card %s not scheduled: %v", cardID, err)
		}
	}
	return nil
}

// FindCard returns a card by ID from a project the actor can view
func (s *ProjectService) FindCard(ctx context.Context, actorID, projectID, cardID string) (*db.Project, *db.Card, error) {
	project, err := s.GetProject(ctx, actorID, projectID)
	if err != nil {
		return nil, nil, err
	}
	idx := findCard(project.ExtraCards, cardID)
	if idx < 0 {
		return nil, nil, authz.ErrNotFound
	}
	return project, &project.ExtraCards[idx], nil
}

// ===========================
// INTERNAL HELPERS
// ===========================

func (s *ProjectService) getProject(ctx context.Context, id string) (*db.Project, error) {
	row := s.PG.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, id)
	return scanProject(row)
}

func (s *ProjectService) requireEdit(ctx context.Context, actorID, projectID string) (*db.Project, authz.Decision, error) {
	actor, cargos, err := s.Users.ActorContext(ctx, actorID)
	if err != nil {
		return nil, authz.Decision{}, err
	}
	project, err := s.getProject(ctx, projectID)
	if err != nil {
		return nil, authz.Decision{}, err
	}
	decision := authz.Resolve(actor, cargos, project)
	if !decision.CanEdit {
		return nil, decision, authz.ErrForbidden
	}
	return project, decision, nil
}

func (s *ProjectService) requireMembershipControl(ctx context.Context, actorID, projectID string) (*db.Project, error) {
	actor, cargos, err := s.Users.ActorContext(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !authz.CanAssignProjects(actor, cargos) {
		return nil, authz.ErrForbidden
	}
	return s.getProject(ctx, projectID)
}

func (s *ProjectService) writeProject(ctx context.Context, project *db.Project) error {
	project.UpdatedAt = time.Now()

	cards, err := json.Marshal(project.ExtraCards)
	if err != nil {
		return fmt.Errorf("failed to encode cards: %w", err)
	}

	result, err := s.PG.ExecContext(ctx, `
		UPDATE projects
		SET name = $3, description = $4, forms_url = $5, sharepoint_url = $6,
		    extra_cards = $7, member_ids = $8, version = version + 1, updated_at = $9
		WHERE id = $1 AND version = $2
	`, project.ID, project.Version, project.Name, project.Description, project.FormsURL,
		project.SharePointURL, cards, pq.Array(project.MemberIDs), project.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		var exists bool
		s.PG.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM projects WHERE id = $1)`, project.ID).Scan(&exists)
		if exists {
			return authz.ErrConflict
		}
		return authz.ErrNotFound
	}
	project.Version++
	return nil
}

func scanProject(row *sql.Row) (*db.Project, error) {
	var p db.Project
	var cards []byte
	var members pq.StringArray
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.FormsURL, &p.SharePointURL,
		&cards, &members, &p.Version, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, authz.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	if err := json.Unmarshal(cards, &p.ExtraCards); err != nil {
		return nil, fmt.Errorf("failed to decode cards: %w", err)
	}
	p.MemberIDs = members
	return &p, nil
}

func scanProjectRows(rows *sql.Rows) (*db.Project, error) {
	var p db.Project
	var cards []byte
	var members pq.StringArray
	err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.FormsURL, &p.SharePointURL,
		&cards, &members, &p.Version, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan project: %w", err)
	}
	if err := json.Unmarshal(cards, &p.ExtraCards); err != nil {
		return nil, fmt.Errorf("failed to decode cards: %w", err)
	}
	p.MemberIDs = members
	return &p, nil
}

func findCard(cards []db.Card, cardID string) int {
	for i := range cards {
		if cards[i].ID == cardID {
			return i
		}
	}
	return -1
}

func validateCardInput(input CardInput) error {
	switch input.Type {
	case db.CardTypeLink, db.CardTypeDocuments, db.CardTypeReports, db.CardTypeFiles,
		db.CardTypeSpreadsheets, db.CardTypeForms, db.CardTypeApprovals,
		db.CardTypeInventory, db.CardTypeFinancial, db.CardTypeHR:
	default:
		return fmt.Errorf("%w: unknown card type %q", authz.ErrInvalidInput, input.Type)
	}
	if input.Type == db.CardTypeForms && len(input.FormFields) == 0 {
		return fmt.Errorf("%w: forms card needs at least one field", authz.ErrInvalidInput)
	}
	return nil
}

// projectPrefix is the storage folder of a whole project
func projectPrefix(projectID string) string {
	return "projects/" + projectID + "/"
}

// cardPrefix is the storage folder of a single card, keyed by card ID so
// card renames never require moving objects
func cardPrefix(projectID, cardID string) string {
	return "projects/" + projectID + "/cards/" + cardID + "/"
}
