package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"jamesfarrell.me/video-moments/internal/storage/models"
)

type VideoRepository struct {
	db *sql.DB
}

func NewVideoRepository(db *sql.DB) *VideoRepository {
	return &VideoRepository{db: db}
}

// GetVideo returns the video if it exists and belongs to userID.
func (r *VideoRepository) GetVideo(ctx context.Context, videoID, userID string) (*models.Video, error) {
	if _, err := uuid.Parse(videoID); err != nil {
		return nil, models.ErrNotFound
	}

	const query = `
		SELECT id, "videoUrl", duration, transcription, status,
			   "createdAt", "updatedAt", "userId"
		FROM "Video"
		WHERE id = $1 AND "userId" = $2
	`

	var video models.Video
	err := r.db.QueryRowContext(ctx, query, videoID, userID).Scan(
		&video.ID,
		&video.VideoURL,
		&video.Duration,
		&video.Transcription,
		&video.Status,
		&video.CreatedAt,
		&video.UpdatedAt,
		&video.UserID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get video %s: %w", videoID, err)
	}
	return &video, nil
}
