// database/memory_repository.go
package database

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/BotCoder254/streamvibes/models"
)

// MemoryRepository keeps records in process memory. Every read and write
// works on clones, so callers never alias stored state.
type MemoryRepository struct {
	mu     sync.Mutex
	videos map[string]*models.Video
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{videos: make(map[string]*models.Video)}
}

func (r *MemoryRepository) Create(ctx context.Context, v *models.Video) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.videos[v.ID]; ok {
		return models.E("create video", models.ErrConflict, "video %s already exists", v.ID)
	}
	stored := v.Clone()
	stored.Version = 1
	r.videos[v.ID] = stored
	v.Version = 1
	return nil
}

func (r *MemoryRepository) Get(ctx context.Context, id string) (*models.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.videos[id]
	if !ok {
		return nil, models.E("get video", models.ErrNotFound, "video %s not found", id)
	}
	return v.Clone(), nil
}

func (r *MemoryRepository) List(ctx context.Context, filter models.VideoFilter) ([]*models.Video, error) {
	r.mu.Lock()
	out := make([]*models.Video, 0, len(r.videos))
	for _, v := range r.videos {
		if matches(v, filter) {
			out = append(out, v.Clone())
		}
	}
	r.mu.Unlock()

	slices.SortFunc(out, func(a, b *models.Video) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *MemoryRepository) Update(ctx context.Context, id string, mutate func(*models.Video) error) (*models.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.videos[id]
	if !ok {
		return nil, models.E("update video", models.ErrNotFound, "video %s not found", id)
	}
	next := current.Clone()
	if err := mutate(next); err != nil {
		return nil, err
	}
	next.ID = id
	next.Version = current.Version + 1
	r.videos[id] = next
	return next.Clone(), nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.videos[id]; !ok {
		return models.E("delete video", models.ErrNotFound, "video %s not found", id)
	}
	delete(r.videos, id)
	return nil
}

func matches(v *models.Video, f models.VideoFilter) bool {
	if f.UploaderID != "" && v.UploaderID != f.UploaderID {
		return false
	}
	if f.Status != "" && v.Status != f.Status {
		return false
	}
	if len(f.IDs) > 0 && !slices.Contains(f.IDs, v.ID) {
		return false
	}
	if !f.CreatedBefore.IsZero() && !v.CreatedAt.Before(f.CreatedBefore) {
		return false
	}
	return true
}
