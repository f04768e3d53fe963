package registry

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"docchat/internal/models"
)

// Remover deletes the physical bytes behind a file record.
type Remover interface {
	Remove(ctx context.Context, file models.IngestedFile) error
}

// Registry keeps ingested files per owner for the lifetime of the process.
// Every operation is scoped to a single owner.
type Registry struct {
	mu      sync.RWMutex
	files   map[string][]*models.IngestedFile
	remover Remover
	now     func() time.Time
}

// New constructs an empty registry. remover may be nil.
func New(remover Remover) *Registry {
	return &Registry{
		files:   make(map[string][]*models.IngestedFile),
		remover: remover,
		now:     time.Now,
	}
}

// Store assigns a fresh id to file, appends it to the owner's list and returns
// the stored record.
func (r *Registry) Store(ownerID string, file models.IngestedFile) models.IngestedFile {
	file.ID = uuid.NewString()
	file.OwnerID = ownerID
	if file.UploadedAt.IsZero() {
		file.UploadedAt = r.now()
	}
	stored := file

	r.mu.Lock()
	r.files[ownerID] = append(r.files[ownerID], &stored)
	r.mu.Unlock()
	return file
}

// Restore re-adds previously stored files with their ids intact, in the given
// order. Files without an id or already present are skipped. It returns the
// number of files added.
func (r *Registry) Restore(files []models.IngestedFile) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]bool)
	for _, owned := range r.files {
		for _, f := range owned {
			seen[f.ID] = true
		}
	}
	added := 0
	for _, file := range files {
		if file.ID == "" || seen[file.ID] {
			continue
		}
		seen[file.ID] = true
		stored := file
		r.files[file.OwnerID] = append(r.files[file.OwnerID], &stored)
		added++
	}
	return added
}

// List returns the owner's files in insertion order.
func (r *Registry) List(ownerID string) []models.IngestedFile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	files := r.files[ownerID]
	out := make([]models.IngestedFile, 0, len(files))
	for _, f := range files {
		out = append(out, *f)
	}
	return out
}

// Get fetches a single file owned by ownerID.
func (r *Registry) Get(ownerID, fileID string) (models.IngestedFile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, f := range r.files[ownerID] {
		if f.ID == fileID {
			return *f, true
		}
	}
	return models.IngestedFile{}, false
}

// Delete removes the record and, best-effort, its stored bytes. It reports
// false when the owner or file is unknown.
func (r *Registry) Delete(ctx context.Context, ownerID, fileID string) bool {
	r.mu.Lock()
	files := r.files[ownerID]
	idx := -1
	for i, f := range files {
		if f.ID == fileID {
			idx = i
			break
		}
	}
	if idx < 0 {
		r.mu.Unlock()
		return false
	}
	removed := *files[idx]
	files = append(files[:idx], files[idx+1:]...)
	if len(files) == 0 {
		delete(r.files, ownerID)
	} else {
		r.files[ownerID] = files
	}
	r.mu.Unlock()

	if r.remover != nil {
		if err := r.remover.Remove(ctx, removed); err != nil {
			log.Printf("registry: remove stored file %s for %s: %v", removed.ID, ownerID, err)
		}
	}
	return true
}

// Reset drops every record without touching stored bytes.
func (r *Registry) Reset() {
	r.mu.Lock()
	r.files = make(map[string][]*models.IngestedFile)
	r.mu.Unlock()
}
