package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/normatel/norahub/authz"
	"github.com/normatel/norahub/db"
)

// ===========================
// IN-MEMORY FAKES
// ===========================

type memOpRepo struct {
	mu  sync.Mutex
	ops map[string]db.StorageOp
}

func newMemOpRepo() *memOpRepo {
	return &memOpRepo{ops: make(map[string]db.StorageOp)}
}

func (r *memOpRepo) Create(ctx context.Context, op *db.StorageOp) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops[op.ID] = *op
	return nil
}

func (r *memOpRepo) Save(ctx context.Context, op *db.StorageOp) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops[op.ID] = *op
	return nil
}

func (r *memOpRepo) Get(ctx context.Context, id string) (*db.StorageOp, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	op, ok := r.ops[id]
	if !ok {
		return nil, authz.ErrNotFound
	}
	return &op, nil
}

func (r *memOpRepo) ListUnfinished(ctx context.Context) ([]db.StorageOp, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []db.StorageOp
	for _, op := range r.ops {
		if op.Status == db.StorageOpPending || op.Status == db.StorageOpRunning {
			out = append(out, op)
		}
	}
	return out, nil
}

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte

	// paths whose copy or delete should fail
	failCopy   map[string]bool
	failDelete map[string]bool
}

func newMemStore(paths ...string) *memStore {
	s := &memStore{
		objects:    make(map[string][]byte),
		failCopy:   make(map[string]bool),
		failDelete: make(map[string]bool),
	}
	for _, p := range paths {
		s.objects[p] = []byte("data")
	}
	return s
}

func (s *memStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ObjectInfo
	for path, data := range s.objects {
		if len(path) >= len(prefix) && path[:len(prefix)] == prefix {
			out = append(out, ObjectInfo{Path: path, Size: int64(len(data))})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (s *memStore) Upload(ctx context.Context, path, contentType string, body io.Reader) (*ObjectInfo, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[path] = data
	return &ObjectInfo{Path: path, Size: int64(len(data)), ContentType: contentType, Updated: time.Now()}, nil
}

func (s *memStore) Copy(ctx context.Context, src, dst string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCopy[src] {
		return errors.New("copy failed")
	}
	data, ok := s.objects[src]
	if !ok {
		return errors.New("source missing")
	}
	s.objects[dst] = append([]byte(nil), data...)
	return nil
}

func (s *memStore) Delete(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failDelete[path] {
		return errors.New("delete failed")
	}
	delete(s.objects, path)
	return nil
}

func (s *memStore) SignedURL(ctx context.Context, path string, expiry time.Duration) (string, error) {
	return "https://signed.example/" + path, nil
}

func (s *memStore) has(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[path]
	return ok
}

// ===========================
// TESTS
// ===========================

func TestFolderService_RenameFolder(t *testing.T) {
	store := newMemStore(
		"projects/p1/cards/c1/a.pdf",
		"projects/p1/cards/c1/b.pdf",
		"projects/p1/cards/c2/other.pdf",
	)
	svc := &FolderService{Repo: newMemOpRepo(), Store: store}

	op, err := svc.RenameFolder(context.Background(), "u1", "projects/p1/cards/c1/", "projects/p1/cards/c9/")
	if err != nil {
		t.Fatalf("RenameFolder() error = %v", err)
	}

	if op.Status != db.StorageOpDone {
		t.Errorf("Status = %s, want done", op.Status)
	}
	if op.Copied != 2 || op.Deleted != 2 || op.Failed != 0 {
		t.Errorf("counts = copied %d deleted %d failed %d, want 2/2/0", op.Copied, op.Deleted, op.Failed)
	}
	if !store.has("projects/p1/cards/c9/a.pdf") || !store.has("projects/p1/cards/c9/b.pdf") {
		t.Error("objects not copied to destination prefix")
	}
	if store.has("projects/p1/cards/c1/a.pdf") {
		t.Error("source object not deleted")
	}
	if !store.has("projects/p1/cards/c2/other.pdf") {
		t.Error("object outside the prefix was touched")
	}
}

func TestFolderService_RenamePartialFailure(t *testing.T) {
	store := newMemStore(
		"docs/a.pdf",
		"docs/b.pdf",
		"docs/c.pdf",
	)
	store.failCopy["docs/b.pdf"] = true
	svc := &FolderService{Repo: newMemOpRepo(), Store: store}

	op, err := svc.RenameFolder(context.Background(), "u1", "docs/", "archive/")
	if err != nil {
		t.Fatalf("RenameFolder() error = %v", err)
	}

	if op.Status != db.StorageOpFailed {
		t.Errorf("Status = %s, want failed", op.Status)
	}
	if op.Copied != 2 || op.Deleted != 2 || op.Failed != 1 {
		t.Errorf("counts = copied %d deleted %d failed %d, want 2/2/1", op.Copied, op.Deleted, op.Failed)
	}
	// The failed object stays in place for a later retry
	if !store.has("docs/b.pdf") {
		t.Error("failed object was removed from the source")
	}
}

func TestFolderService_ResumeSkipsProcessedObjects(t *testing.T) {
	store := newMemStore(
		"docs/a.pdf",
		"docs/b.pdf",
		"docs/c.pdf",
	)
	repo := newMemOpRepo()
	svc := &FolderService{Repo: repo, Store: store}

	// Simulate a crash after a.pdf was fully processed
	interrupted := &db.StorageOp{
		ID:           "op-1",
		Kind:         db.StorageOpDelete,
		SourcePrefix: "docs/",
		Cursor:       "docs/a.pdf",
		Deleted:      1,
		Status:       db.StorageOpRunning,
		StartedBy:    "u1",
	}
	repo.Create(context.Background(), interrupted)
	store.Delete(context.Background(), "docs/a.pdf")

	op, err := svc.Resume(context.Background(), "op-1")
	if err != nil {
		t.Fatalf("Resume() error = %v", err)
	}

	if op.Status != db.StorageOpDone {
		t.Errorf("Status = %s, want done", op.Status)
	}
	if op.Deleted != 3 {
		t.Errorf("Deleted = %d, want 3 (1 before crash + 2 resumed)", op.Deleted)
	}
	if store.has("docs/b.pdf") || store.has("docs/c.pdf") {
		t.Error("remaining objects not deleted on resume")
	}
}

func TestFolderService_ResumeFinishedOpIsNoop(t *testing.T) {
	repo := newMemOpRepo()
	repo.Create(context.Background(), &db.StorageOp{
		ID: "op-done", Kind: db.StorageOpDelete, SourcePrefix: "docs/",
		Status: db.StorageOpDone, Deleted: 5,
	})
	svc := &FolderService{Repo: repo, Store: newMemStore()}

	op, err := svc.Resume(context.Background(), "op-done")
	if err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if op.Deleted != 5 || op.Status != db.StorageOpDone {
		t.Errorf("finished op was re-run: %+v", op)
	}
}

func TestFolderService_InvalidInput(t *testing.T) {
	svc := &FolderService{Repo: newMemOpRepo(), Store: newMemStore()}

	if _, err := svc.RenameFolder(context.Background(), "u1", "same/", "same/"); !errors.Is(err, authz.ErrInvalidInput) {
		t.Errorf("rename to same prefix: error = %v, want ErrInvalidInput", err)
	}
	if _, err := svc.DeleteFolder(context.Background(), "u1", ""); !errors.Is(err, authz.ErrInvalidInput) {
		t.Errorf("delete empty prefix: error = %v, want ErrInvalidInput", err)
	}
}

func TestMemStoreUploadRoundTrip(t *testing.T) {
	store := newMemStore()
	info, err := store.Upload(context.Background(), "docs/report.pdf", "application/pdf", bytes.NewReader([]byte("hello")))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if info.Size != 5 {
		t.Errorf("Size = %d, want 5", info.Size)
	}
	if !store.has("docs/report.pdf") {
		t.Error("uploaded object missing")
	}
}
