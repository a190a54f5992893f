// database/repository.go
package database

import (
	"context"

	"github.com/BotCoder254/streamvibes/models"
)

// maxUpdateAttempts bounds optimistic retries of a single Update.
const maxUpdateAttempts = 16

// VideoRepository stores Video records. Update is an atomic
// read-modify-write: mutate sees a private copy and its changes are applied
// only if no other writer committed in between. Returning an error from
// mutate aborts the update and the error is passed through unchanged.
type VideoRepository interface {
	Create(ctx context.Context, v *models.Video) error
	Get(ctx context.Context, id string) (*models.Video, error)
	List(ctx context.Context, filter models.VideoFilter) ([]*models.Video, error)
	Update(ctx context.Context, id string, mutate func(*models.Video) error) (*models.Video, error)
	Delete(ctx context.Context, id string) error
}
