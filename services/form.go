package services

import (
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/normatel/norahub/authz"
	"github.com/normatel/norahub/db"
)

// FormService handles submissions to forms cards. Responses are keyed by the
// card's immutable ID, so renaming a card keeps its response history.
type FormService struct {
	PG       *sql.DB
	Projects *ProjectService

	notifier *NotificationService
}

func NewFormService(pg *sql.DB, projects *ProjectService) *FormService {
	return &FormService{PG: pg, Projects: projects}
}

func (s *FormService) SetNotifier(n *NotificationService) {
	s.notifier = n
}

// SubmitResponse validates a submission against the card's field definitions
// and stores it. Any viewer of the project may submit.
func (s *FormService) SubmitResponse(ctx context.Context, actorID, projectID, cardID string, values map[string]string) (*db.FormResponse, error) {
	project, card, err := s.Projects.FindCard(ctx, actorID, projectID, cardID)
	if err != nil {
		return nil, err
	}
	if card.Type != db.CardTypeForms {
		return nil, fmt.Errorf("%w: card %s is not a forms card", authz.ErrInvalidInput, cardID)
	}
	if err := validateValues(card.FormFields, values); err != nil {
		return nil, err
	}

	response := &db.FormResponse{
		ID:          uuid.New().String(),
		CardID:      card.ID,
		ProjectID:   project.ID,
		SubmittedBy: actorID,
		Values:      values,
		CreatedAt:   time.Now(),
	}

	encoded, err := json.Marshal(response.Values)
	if err != nil {
		return nil, fmt.Errorf("failed to encode response values: %w", err)
	}

	_, err = s.PG.ExecContext(ctx, `
		INSERT INTO form_responses (id, card_id, project_id, submitted_by, answers, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, response.ID, response.CardID, response.ProjectID, response.SubmittedBy, encoded, response.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to store form response: %w", err)
	}

	if s.notifier != nil && card.EmailNotifications {
		s.notifier.NotifyEmails(ctx, card.NotificationEmails, &db.Notification{
			Title:    fmt.Sprintf("Nova resposta: %s", card.Name),
			Body:     fmt.Sprintf("O formulário %s do projeto %s recebeu uma nova resposta.", card.Name, project.Name),
			Kind:     db.NotificationFormResponse,
			Channels: []string{"email"},
		})
	}
	return response, nil
}

// ListResponses returns a card's responses, newest first. Requires the edit
// decision: submissions are viewer-writable but reading them back is a
// management concern.
func (s *FormService) ListResponses(ctx context.Context, actorID, projectID, cardID string) ([]db.FormResponse, error) {
	if _, _, err := s.Projects.requireEdit(ctx, actorID, projectID); err != nil {
		return nil, err
	}

	rows, err := s.PG.QueryContext(ctx, `
		SELECT id, card_id, project_id, submitted_by, answers, created_at
		FROM form_responses
		WHERE card_id = $1
		ORDER BY created_at DESC
	`, cardID)
	if err != nil {
		return nil, fmt.Errorf("failed to list form responses: %w", err)
	}
	defer rows.Close()

	responses := make([]db.FormResponse, 0)
	for rows.Next() {
		var r db.FormResponse
		var encoded []byte
		if err := rows.Scan(&r.ID, &r.CardID, &r.ProjectID, &r.SubmittedBy, &encoded, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan form response: %w", err)
		}
		if err := json.Unmarshal(encoded, &r.Values); err != nil {
			return nil, fmt.Errorf("failed to decode response values: %w", err)
		}
		responses = append(responses, r)
	}
	return responses, rows.Err()
}

// ExportCSV streams a card's responses as CSV. Columns follow the card's
// field order; values with commas, quotes or newlines are quoted per RFC
// 4180 by the encoder.
func (s *FormService) ExportCSV(ctx context.Context, actorID, projectID, cardID string, w io.Writer) error {
	_, card, err := s.Projects.FindCard(ctx, actorID, projectID, cardID)
	if err != nil {
		return err
	}
	if _, _, err := s.Projects.requireEdit(ctx, actorID, projectID); err != nil {
		return err
	}

	responses, err := s.ListResponses(ctx, actorID, projectID, cardID)
	if err != nil {
		return err
	}

	return writeResponsesCSV(w, card.FormFields, responses)
}

func writeResponsesCSV(w io.Writer, fields []db.FormField, responses []db.FormResponse) error {
	cw := csv.NewWriter(w)

	header := []string{"submitted_by", "submitted_at"}
	for _, field := range fields {
		header = append(header, field.Key)
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, r := range responses {
		record := []string{r.SubmittedBy, r.CreatedAt.Format(time.RFC3339)}
		for _, field := range fields {
			record = append(record, r.Values[field.Key])
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv record: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// validateValues checks a submission against the field definitions
func validateValues(fields []db.FormField, values map[string]string) error {
	known := make(map[string]db.FormField, len(fields))
	for _, f := range fields {
		known[f.Key] = f
	}

	for _, f := range fields {
		if f.Required && values[f.Key] == "" {
			return fmt.Errorf("%w: field %q is required", authz.ErrInvalidInput, f.Key)
		}
	}
	for key, value := range values {
		f, ok := known[key]
		if !ok {
			return fmt.Errorf("%w: unknown field %q", authz.ErrInvalidInput, key)
		}
		if f.Kind == db.FieldKindSelect && value != "" && !containsStr(f.Options, value) {
			return fmt.Errorf("%w: field %q has no option %q", authz.ErrInvalidInput, key, value)
		}
	}
	return nil
}
