package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/normatel/norahub/authz"
	"github.com/normatel/norahub/db"
)

const storageOpColumns = `id, kind, source_prefix, COALESCE(dest_prefix, ''), cursor,
	copied, deleted, failed, status, started_by, created_at, updated_at`

// StorageOpRepo persists folder operation records
type StorageOpRepo interface {
	Create(ctx context.Context, op *db.StorageOp) error
	Save(ctx context.Context, op *db.StorageOp) error
	Get(ctx context.Context, id string) (*db.StorageOp, error)
	ListUnfinished(ctx context.Context) ([]db.StorageOp, error)
}

// FolderService runs multi-object folder operations against the object
// store. The store has no native move or recursive delete, so each operation
// is persisted as a row with a cursor and executed object by object; a crash
// mid-way leaves a resumable record instead of a silent half-moved folder.
type FolderService struct {
	Repo  StorageOpRepo
	Store ObjectStore
}

func NewFolderService(pg *sql.DB, store ObjectStore) *FolderService {
	return &FolderService{Repo: NewSQLStorageOpRepo(pg), Store: store}
}

// RenameFolder moves every object under srcPrefix to dstPrefix
// (copy then delete per object) and returns the finished operation record.
func (s *FolderService) RenameFolder(ctx context.Context, actorID, srcPrefix, dstPrefix string) (*db.StorageOp, error) {
	if srcPrefix == "" || dstPrefix == "" || srcPrefix == dstPrefix {
		return nil, authz.ErrInvalidInput
	}
	op := &db.StorageOp{
		ID:           uuid.New().String(),
		Kind:         db.StorageOpRename,
		SourcePrefix: srcPrefix,
		DestPrefix:   dstPrefix,
		Status:       db.StorageOpPending,
		StartedBy:    actorID,
		CreatedAt:    time.Now(),
	}
	if err := s.Repo.Create(ctx, op); err != nil {
		return nil, err
	}
	return s.run(ctx, op)
}

// DeleteFolder removes every object under prefix
func (s *FolderService) DeleteFolder(ctx context.Context, actorID, prefix string) (*db.StorageOp, error) {
	if prefix == "" {
		return nil, authz.ErrInvalidInput
	}
	op := &db.StorageOp{
		ID:           uuid.New().String(),
		Kind:         db.StorageOpDelete,
		SourcePrefix: prefix,
		Status:       db.StorageOpPending,
		StartedBy:    actorID,
		CreatedAt:    time.Now(),
	}
	if err := s.Repo.Create(ctx, op); err != nil {
		return nil, err
	}
	return s.run(ctx, op)
}

// Resume picks up an interrupted operation from its cursor. Objects at or
// before the cursor are already fully processed and are skipped.
func (s *FolderService) Resume(ctx context.Context, opID string) (*db.StorageOp, error) {
	op, err := s.Repo.Get(ctx, opID)
	if err != nil {
		return nil, err
	}
	if op.Status == db.StorageOpDone {
		return op, nil
	}
	return s.run(ctx, op)
}

// GetOp returns a stored operation record
func (s *FolderService) GetOp(ctx context.Context, opID string) (*db.StorageOp, error) {
	return s.Repo.Get(ctx, opID)
}

// ListUnfinished returns operations a worker should resume after a restart
func (s *FolderService) ListUnfinished(ctx context.Context) ([]db.StorageOp, error) {
	return s.Repo.ListUnfinished(ctx)
}

// ===========================
// SAGA EXECUTION
// ===========================

func (s *FolderService) run(ctx context.Context, op *db.StorageOp) (*db.StorageOp, error) {
	op.Status = db.StorageOpRunning
	if err := s.Repo.Save(ctx, op); err != nil {
		return nil, err
	}

	objects, err := s.Store.List(ctx, op.SourcePrefix)
	if err != nil {
		op.Status = db.StorageOpFailed
		s.Repo.Save(ctx, op)
		return op, fmt.Errorf("failed to list %s: %w", op.SourcePrefix, err)
	}
	sortObjects(objects)

	for _, obj := range objects {
		if op.Cursor != "" && obj.Path <= op.Cursor {
			continue
		}
		if err := ctx.Err(); err != nil {
			// Interrupted: leave the row running with the cursor intact
			s.Repo.Save(ctx, op)
			return op, err
		}

		if err := s.processObject(ctx, op, obj.Path); err != nil {
			op.Failed++
			log.Printf("storage op %s: object %s failed: %v", op.ID, obj.Path, err)
			s.Repo.Save(ctx, op)
			continue
		}

		// Advance the cursor only after the object is fully processed
		op.Cursor = obj.Path
		if err := s.Repo.Save(ctx, op); err != nil {
			return op, err
		}
	}

	if op.Failed > 0 {
		op.Status = db.StorageOpFailed
	} else {
		op.Status = db.StorageOpDone
	}
	if err := s.Repo.Save(ctx, op); err != nil {
		return op, err
	}
	return op, nil
}

func (s *FolderService) processObject(ctx context.Context, op *db.StorageOp, path string) error {
	if op.Kind == db.StorageOpRename {
		dst := op.DestPrefix + strings.TrimPrefix(path, op.SourcePrefix)
		if err := s.Store.Copy(ctx, path, dst); err != nil {
			return err
		}
		op.Copied++
	}
	if err := s.Store.Delete(ctx, path); err != nil {
		return err
	}
	op.Deleted++
	return nil
}

// ===========================
// SQL REPO
// ===========================

// SQLStorageOpRepo implements StorageOpRepo over Postgres
type SQLStorageOpRepo struct {
	PG *sql.DB
}

var _ StorageOpRepo = (*SQLStorageOpRepo)(nil)

func NewSQLStorageOpRepo(pg *sql.DB) *SQLStorageOpRepo {
	return &SQLStorageOpRepo{PG: pg}
}

func (r *SQLStorageOpRepo) Create(ctx context.Context, op *db.StorageOp) error {
	op.UpdatedAt = op.CreatedAt
	_, err := r.PG.ExecContext(ctx, `
		INSERT INTO storage_ops (id, kind, source_prefix, dest_prefix, cursor,
		                         copied, deleted, failed, status, started_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, '', 0, 0, 0, $5, $6, $7, $8)
	`, op.ID, op.Kind, op.SourcePrefix, op.DestPrefix, op.Status, op.StartedBy, op.CreatedAt, op.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create storage op: %w", err)
	}
	return nil
}

func (r *SQLStorageOpRepo) Save(ctx context.Context, op *db.StorageOp) error {
	op.UpdatedAt = time.Now()
	_, err := r.PG.ExecContext(ctx, `
		UPDATE storage_ops
		SET cursor = $2, copied = $3, deleted = $4, failed = $5, status = $6, updated_at = $7
		WHERE id = $1
	`, op.ID, op.Cursor, op.Copied, op.Deleted, op.Failed, op.Status, op.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save storage op: %w", err)
	}
	return nil
}

func (r *SQLStorageOpRepo) Get(ctx context.Context, id string) (*db.StorageOp, error) {
	row := r.PG.QueryRowContext(ctx, `SELECT `+storageOpColumns+` FROM storage_ops WHERE id = $1`, id)

	var op db.StorageOp
	err := row.Scan(&op.ID, &op.Kind, &op.SourcePrefix, &op.DestPrefix, &op.Cursor,
		&op.Copied, &op.Deleted, &op.Failed, &op.Status, &op.StartedBy, &op.CreatedAt, &op.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, authz.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get storage op: %w", err)
	}
	return &op, nil
}

func (r *SQLStorageOpRepo) ListUnfinished(ctx context.Context) ([]db.StorageOp, error) {
	rows, err := r.PG.QueryContext(ctx, `
		SELECT `+storageOpColumns+` FROM storage_ops
		WHERE status IN ($1, $2)
		ORDER BY created_at
	`, db.StorageOpPending, db.StorageOpRunning)
	if err != nil {
		return nil, fmt.Errorf("failed to list storage ops: %w", err)
	}
	defer rows.Close()

	ops := make([]db.StorageOp, 0)
	for rows.Next() {
		var op db.StorageOp
		err := rows.Scan(&op.ID, &op.Kind, &op.SourcePrefix, &op.DestPrefix, &op.Cursor,
			&op.Copied, &op.Deleted, &op.Failed, &op.Status, &op.StartedBy, &op.CreatedAt, &op.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan storage op: %w", err)
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}
