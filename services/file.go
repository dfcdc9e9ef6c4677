package services

import (
	"context"
	"io"
	"time"

	"github.com/normatel/norahub/authz"
)

// FileService exposes per-card file operations. Viewing files follows the
// project's view decision; uploading and deleting follow the card-edit
// decision.
type FileService struct {
	Projects *ProjectService
	Folders  *FolderService
	Store    ObjectStore
}

func NewFileService(projects *ProjectService, folders *FolderService, store ObjectStore) *FileService {
	return &FileService{Projects: projects, Folders: folders, Store: store}
}

// ListFiles lists the objects stored under a card
func (s *FileService) ListFiles(ctx context.Context, actorID, projectID, cardID string) ([]ObjectInfo, error) {
	_, card, err := s.Projects.FindCard(ctx, actorID, projectID, cardID)
	if err != nil {
		return nil, err
	}
	if !card.NeedsStorage() {
		return nil, authz.ErrInvalidInput
	}
	return s.Store.List(ctx, cardPrefix(projectID, cardID))
}

// UploadFile stores a file under a card's folder
func (s *FileService) UploadFile(ctx context.Context, actorID, projectID, cardID, filename, contentType string, body io.Reader) (*ObjectInfo, error) {
	project, decision, err := s.Projects.requireEdit(ctx, actorID, projectID)
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
	if !project.ExtraCards[idx].NeedsStorage() {
		return nil, authz.ErrInvalidInput
	}
	if filename == "" {
		return nil, authz.ErrInvalidInput
	}

	return s.Store.Upload(ctx, cardPrefix(projectID, cardID)+filename, contentType, body)
}

// DeleteFile removes a single stored file from a card
func (s *FileService) DeleteFile(ctx context.Context, actorID, projectID, cardID, filename string) error {
	_, decision, err := s.Projects.requireEdit(ctx, actorID, projectID)
	if err != nil {
		return err
	}
	if !authz.CanMutateCard(decision) {
		return authz.ErrForbidden
	}
	return s.Store.Delete(ctx, cardPrefix(projectID, cardID)+filename)
}

// DownloadURL returns a short-lived signed URL for a stored file
func (s *FileService) DownloadURL(ctx context.Context, actorID, projectID, cardID, filename string) (string, error) {
	_, card, err := s.Projects.FindCard(ctx, actorID, projectID, cardID)
	if err != nil {
		return "", err
	}
	if !card.NeedsStorage() {
		return "", authz.ErrInvalidInput
	}
	return s.Store.SignedURL(ctx, cardPrefix(projectID, cardID)+filename, 15*time.Minute)
}
