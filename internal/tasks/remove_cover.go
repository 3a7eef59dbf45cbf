package tasks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"
)

// CoverFiles deletes stored cover images.
type CoverFiles interface {
	Remove(name string) error
}

// ThumbnailInvalidator drops cached thumbnails of a cover.
type ThumbnailInvalidator interface {
	Invalidate(name string) error
}

// RemoveCoverTask deletes a cover that no book references anymore.
type RemoveCoverTask struct {
	Filename string `json:"filename"`
}

// Config returns the queue configuration for cover removal.
func (t RemoveCoverTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "remove_cover",
		MaxAttempts: 3,
		Backoff:     30 * time.Second,
		Timeout:     30 * time.Second,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: true,
		},
	}
}

// RemoveCoverProcessor creates a processor function for RemoveCoverTask.
func RemoveCoverProcessor(files CoverFiles, thumbs ThumbnailInvalidator) backlite.QueueProcessor[RemoveCoverTask] {
	return func(ctx context.Context, task RemoveCoverTask) error {
		return removeCover(files, thumbs, task.Filename)
	}
}

// NewRemoveCoverQueue creates a backlite queue for cover removal tasks.
func NewRemoveCoverQueue(files CoverFiles, thumbs ThumbnailInvalidator) backlite.Queue {
	return backlite.NewQueue(RemoveCoverProcessor(files, thumbs))
}

func removeCover(files CoverFiles, thumbs ThumbnailInvalidator, name string) error {
	if files == nil {
		return errors.New("cover store not configured")
	}
	if err := files.Remove(name); err != nil {
		return fmt.Errorf("remove cover %s: %w", name, err)
	}
	if thumbs != nil {
		if err := thumbs.Invalidate(name); err != nil {
			return fmt.Errorf("remove thumbnail %s: %w", name, err)
		}
	}
	log.Printf("[TASK] Removed cover %s", name)
	return nil
}

// CoverRemover schedules removal of a cover file that was replaced or
// cleared.
type CoverRemover interface {
	RemoveCover(ctx context.Context, name string) error
}

// QueuedCoverRemover enqueues remove_cover tasks.
type QueuedCoverRemover struct {
	client *Client
}

// NewQueuedCoverRemover returns a remover backed by the task queue. The
// client must have the queue from NewRemoveCoverQueue registered.
func NewQueuedCoverRemover(client *Client) *QueuedCoverRemover {
	return &QueuedCoverRemover{client: client}
}

func (r *QueuedCoverRemover) RemoveCover(ctx context.Context, name string) error {
	if _, err := r.client.Add(RemoveCoverTask{Filename: name}).Ctx(ctx).Save(); err != nil {
		return fmt.Errorf("enqueue cover removal: %w", err)
	}
	return nil
}

// SyncCoverRemover removes covers immediately. Used when the task queue is
// disabled.
type SyncCoverRemover struct {
	files  CoverFiles
	thumbs ThumbnailInvalidator
}

func NewSyncCoverRemover(files CoverFiles, thumbs ThumbnailInvalidator) *SyncCoverRemover {
	return &SyncCoverRemover{files: files, thumbs: thumbs}
}

func (r *SyncCoverRemover) RemoveCover(_ context.Context, name string) error {
	return removeCover(r.files, r.thumbs, name)
}
