package workers

import (
	"context"
	"log"
	"time"

	"github.com/normatel/norahub/services"
)

const storagePollInterval = 30 * time.Second

// StorageOpWorker resumes folder operations that were interrupted by a crash
// or deploy. Each unfinished row carries its own cursor, so resuming never
// repeats completed copy/delete steps.
type StorageOpWorker struct {
	Folders *services.FolderService
}

func NewStorageOpWorker(folders *services.FolderService) *StorageOpWorker {
	return &StorageOpWorker{Folders: folders}
}

// Run resumes unfinished operations once at startup, then keeps polling for
// rows left behind by other instances.
func (w *StorageOpWorker) Run(ctx context.Context) {
	log.Println("Storage op worker started")
	w.resumeAll(ctx)

	ticker := time.NewTicker(storagePollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Storage op worker stopped")
			return
		case <-ticker.C:
			w.resumeAll(ctx)
		}
	}
}

func (w *StorageOpWorker) resumeAll(ctx context.Context) {
	ops, err := w.Folders.ListUnfinished(ctx)
	if err != nil {
		log.Printf("storage worker: failed to list unfinished ops: %v", err)
		return
	}
	for _, op := range ops {
		if _, err := w.Folders.Resume(ctx, op.ID); err != nil {
			log.Printf("storage worker: resume of %s failed: %v", op.ID, err)
		}
	}
}
