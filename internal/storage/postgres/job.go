package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"jamesfarrell.me/video-moments/internal/storage/models"
)

const uniqueViolation = "23505"

type JobRepository struct {
	db *sql.DB
}

func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

const jobColumns = `id, video_id, user_id, status, progress, total_segments,
	processed_segments, error_message, created_at, updated_at`

// CreateJob inserts a job. The one_active_job_per_video index turns a second
// concurrent start for the same video into ErrConflict.
func (r *JobRepository) CreateJob(ctx context.Context, job *models.IndexingJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}

	const insertSQL = `
		INSERT INTO "IndexingJob" (id, video_id, user_id, status, progress, total_segments, processed_segments, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, insertSQL,
		job.ID,
		job.VideoID,
		job.UserID,
		string(job.Status),
		job.Progress,
		job.TotalSegments,
		job.ProcessedSegments,
		job.ErrorMessage,
	).Scan(&job.CreatedAt, &job.UpdatedAt)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return models.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert indexing job: %w", err)
	}
	return nil
}

func (r *JobRepository) UpdateJob(ctx context.Context, job *models.IndexingJob) error {
	const updateSQL = `
		UPDATE "IndexingJob"
		SET status = $1, progress = $2, total_segments = $3, processed_segments = $4,
			error_message = $5, updated_at = CURRENT_TIMESTAMP
		WHERE id = $6
		RETURNING updated_at
	`
	err := r.db.QueryRowContext(ctx, updateSQL,
		string(job.Status),
		job.Progress,
		job.TotalSegments,
		job.ProcessedSegments,
		job.ErrorMessage,
		job.ID,
	).Scan(&job.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return models.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("update indexing job %s: %w", job.ID, err)
	}
	return nil
}

// ExpireJobs marks the video's active jobs that have not been updated since
// before as failed, releasing the one_active_job_per_video claim.
func (r *JobRepository) ExpireJobs(ctx context.Context, videoID string, before time.Time, reason string) (int, error) {
	if _, err := uuid.Parse(videoID); err != nil {
		return 0, nil
	}
	const expireSQL = `
		UPDATE "IndexingJob"
		SET status = 'error', error_message = $3, updated_at = CURRENT_TIMESTAMP
		WHERE video_id = $1 AND status IN ('pending', 'processing') AND updated_at < $2
	`
	res, err := r.db.ExecContext(ctx, expireSQL, videoID, before, reason)
	if err != nil {
		return 0, fmt.Errorf("expire indexing jobs for %s: %w", videoID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expire indexing jobs for %s: %w", videoID, err)
	}
	return int(n), nil
}

func (r *JobRepository) GetJob(ctx context.Context, jobID, userID string) (*models.IndexingJob, error) {
	if _, err := uuid.Parse(jobID); err != nil {
		return nil, models.ErrNotFound
	}
	query := `SELECT ` + jobColumns + ` FROM "IndexingJob" WHERE id = $1 AND user_id = $2`
	return r.scanJob(r.db.QueryRowContext(ctx, query, jobID, userID))
}

// LatestJob returns the most recently created job for the pair.
func (r *JobRepository) LatestJob(ctx context.Context, videoID, userID string) (*models.IndexingJob, error) {
	if _, err := uuid.Parse(videoID); err != nil {
		return nil, models.ErrNotFound
	}
	query := `SELECT ` + jobColumns + ` FROM "IndexingJob"
		WHERE video_id = $1 AND user_id = $2
		ORDER BY created_at DESC
		LIMIT 1`
	return r.scanJob(r.db.QueryRowContext(ctx, query, videoID, userID))
}

func (r *JobRepository) DeleteJobs(ctx context.Context, videoID, userID string) error {
	if _, err := uuid.Parse(videoID); err != nil {
		return nil
	}
	const deleteSQL = `DELETE FROM "IndexingJob" WHERE video_id = $1 AND user_id = $2`
	if _, err := r.db.ExecContext(ctx, deleteSQL, videoID, userID); err != nil {
		return fmt.Errorf("delete indexing jobs for %s: %w", videoID, err)
	}
	return nil
}

func (r *JobRepository) scanJob(row *sql.Row) (*models.IndexingJob, error) {
	var (
		job    models.IndexingJob
		status string
	)
	err := row.Scan(
		&job.ID,
		&job.VideoID,
		&job.UserID,
		&status,
		&job.Progress,
		&job.TotalSegments,
		&job.ProcessedSegments,
		&job.ErrorMessage,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan indexing job: %w", err)
	}
	job.Status = models.JobStatus(status)
	return &job, nil
}
