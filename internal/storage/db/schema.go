package db

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is idempotent. "Video" is owned by the upload service; it is created
// here only so the indexer can run against an empty database, and gains the
// duration column the segmenter needs.
const schema = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS "Video" (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	"videoUrl" TEXT NOT NULL,
	transcription TEXT,
	status TEXT NOT NULL DEFAULT 'pending',
	"isSearchable" BOOLEAN NOT NULL DEFAULT false,
	"createdAt" TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	"updatedAt" TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	"userId" TEXT NOT NULL
);

ALTER TABLE "Video" ADD COLUMN IF NOT EXISTS duration DOUBLE PRECISION;

CREATE TABLE IF NOT EXISTS "IndexingJob" (
	id UUID PRIMARY KEY,
	video_id UUID NOT NULL,
	user_id TEXT NOT NULL,
	status TEXT NOT NULL CHECK (status IN ('pending', 'processing', 'complete', 'error')),
	progress INTEGER NOT NULL DEFAULT 0 CHECK (progress BETWEEN 0 AND 100),
	total_segments INTEGER NOT NULL,
	processed_segments INTEGER NOT NULL DEFAULT 0,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE UNIQUE INDEX IF NOT EXISTS one_active_job_per_video
	ON "IndexingJob" (video_id) WHERE status IN ('pending', 'processing');

CREATE INDEX IF NOT EXISTS indexing_job_video_idx
	ON "IndexingJob" (video_id, user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS "TemporalSegment" (
	id UUID PRIMARY KEY,
	video_id UUID NOT NULL,
	user_id TEXT NOT NULL,
	segment_number INTEGER NOT NULL CHECK (segment_number > 0),
	start_time DOUBLE PRECISION NOT NULL,
	end_time DOUBLE PRECISION NOT NULL,
	description TEXT NOT NULL,
	entities TEXT[] NOT NULL DEFAULT '{}',
	scene_type TEXT NOT NULL,
	confidence DOUBLE PRECISION NOT NULL CHECK (confidence BETWEEN 0 AND 1),
	embedding vector(1536),
	created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS temporal_segment_video_idx
	ON "TemporalSegment" (video_id, user_id, segment_number);
`

// Migrate creates the indexing tables if they do not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
