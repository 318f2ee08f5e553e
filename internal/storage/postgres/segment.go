package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"jamesfarrell.me/video-moments/internal/storage/models"
)

type SegmentRepository struct {
	db *sql.DB
}

func NewSegmentRepository(db *sql.DB) *SegmentRepository {
	return &SegmentRepository{db: db}
}

const segmentColumns = `id, video_id, user_id, segment_number, start_time, end_time,
	description, entities, scene_type, confidence, created_at`

func (r *SegmentRepository) CreateSegment(ctx context.Context, seg *models.TemporalSegment) error {
	if seg.ID == "" {
		seg.ID = uuid.NewString()
	}

	// A nil interface stores NULL for segments indexed without an embedder.
	var embedding any
	if len(seg.Embedding) > 0 {
		embedding = pgvector.NewVector(seg.Embedding)
	}

	entities := seg.Entities
	if entities == nil {
		entities = []string{}
	}

	const insertSQL = `
		INSERT INTO "TemporalSegment" (id, video_id, user_id, segment_number, start_time, end_time,
			description, entities, scene_type, confidence, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, insertSQL,
		seg.ID,
		seg.VideoID,
		seg.UserID,
		seg.SegmentNumber,
		seg.StartTime,
		seg.EndTime,
		seg.Description,
		pq.Array(entities),
		seg.SceneType,
		seg.Confidence,
		embedding,
	).Scan(&seg.CreatedAt)
	if err != nil {
		return fmt.Errorf("segment insert failed: %w", err)
	}
	return nil
}

func (r *SegmentRepository) DeleteSegments(ctx context.Context, videoID, userID string) error {
	if _, err := uuid.Parse(videoID); err != nil {
		return nil
	}
	const deleteSQL = `DELETE FROM "TemporalSegment" WHERE video_id = $1 AND user_id = $2`
	if _, err := r.db.ExecContext(ctx, deleteSQL, videoID, userID); err != nil {
		return fmt.Errorf("delete segments for %s: %w", videoID, err)
	}
	return nil
}

func (r *SegmentRepository) CountSegments(ctx context.Context, videoID, userID string) (int, error) {
	if _, err := uuid.Parse(videoID); err != nil {
		return 0, nil
	}
	const countSQL = `SELECT COUNT(*) FROM "TemporalSegment" WHERE video_id = $1 AND user_id = $2`
	var n int
	if err := r.db.QueryRowContext(ctx, countSQL, videoID, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count segments for %s: %w", videoID, err)
	}
	return n, nil
}

// ListSegments returns the pair's segments passing filter, in segment order.
// The structural filter runs in SQL so only candidates leave the database.
func (r *SegmentRepository) ListSegments(ctx context.Context, videoID, userID string, filter models.SegmentFilter) ([]models.TemporalSegment, error) {
	if _, err := uuid.Parse(videoID); err != nil {
		return []models.TemporalSegment{}, nil
	}

	query, args := buildSegmentQuery(videoID, userID, filter)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query segments for %s: %w", videoID, err)
	}
	defer rows.Close()

	segments := []models.TemporalSegment{}
	for rows.Next() {
		seg, err := scanSegment(rows)
		if err != nil {
			return nil, err
		}
		segments = append(segments, *seg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate segments for %s: %w", videoID, err)
	}
	return segments, nil
}

// SimilarSegments finds the nearest neighbours of segmentID by cosine distance
// between description embeddings.
func (r *SegmentRepository) SimilarSegments(ctx context.Context, videoID, userID, segmentID string, limit int) ([]models.SimilarSegment, error) {
	if _, err := uuid.Parse(segmentID); err != nil {
		return nil, models.ErrNotFound
	}
	if _, err := uuid.Parse(videoID); err != nil {
		return nil, models.ErrNotFound
	}

	var hasEmbedding bool
	err := r.db.QueryRowContext(ctx, `
		SELECT embedding IS NOT NULL FROM "TemporalSegment"
		WHERE id = $1 AND video_id = $2 AND user_id = $3
	`, segmentID, videoID, userID).Scan(&hasEmbedding)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load segment %s: %w", segmentID, err)
	}
	if !hasEmbedding {
		return []models.SimilarSegment{}, nil
	}

	if limit <= 0 {
		limit = 5
	}

	rows, err := r.db.QueryContext(ctx, `
		WITH source AS (
			SELECT embedding AS vec FROM "TemporalSegment" WHERE id = $1
		)
		SELECT
			s.id, s.video_id, s.user_id, s.segment_number, s.start_time, s.end_time,
			s.description, s.entities, s.scene_type, s.confidence, s.created_at,
			1 - (s.embedding <=> (SELECT vec FROM source)) AS similarity
		FROM "TemporalSegment" s
		WHERE s.video_id = $2 AND s.user_id = $3 AND s.id <> $1 AND s.embedding IS NOT NULL
		ORDER BY s.embedding <=> (SELECT vec FROM source)
		LIMIT $4
	`, segmentID, videoID, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query similar segments: %w", err)
	}
	defer rows.Close()

	results := []models.SimilarSegment{}
	for rows.Next() {
		var (
			result   models.SimilarSegment
			entities pq.StringArray
		)
		seg := &result.Segment
		err := rows.Scan(
			&seg.ID, &seg.VideoID, &seg.UserID, &seg.SegmentNumber, &seg.StartTime, &seg.EndTime,
			&seg.Description, &entities, &seg.SceneType, &seg.Confidence, &seg.CreatedAt,
			&result.Similarity,
		)
		if err != nil {
			return nil, fmt.Errorf("scan similar segment: %w", err)
		}
		seg.Entities = []string(entities)
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate similar segments: %w", err)
	}
	return results, nil
}

func scanSegment(rows *sql.Rows) (*models.TemporalSegment, error) {
	var (
		seg      models.TemporalSegment
		entities pq.StringArray
	)
	err := rows.Scan(
		&seg.ID,
		&seg.VideoID,
		&seg.UserID,
		&seg.SegmentNumber,
		&seg.StartTime,
		&seg.EndTime,
		&seg.Description,
		&entities,
		&seg.SceneType,
		&seg.Confidence,
		&seg.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan segment: %w", err)
	}
	seg.Entities = []string(entities)
	if seg.Entities == nil {
		seg.Entities = []string{}
	}
	return &seg, nil
}

// buildSegmentQuery renders the structural filter as SQL. Entity filters are
// ANDed; each must match some array element as a case-insensitive substring.
func buildSegmentQuery(videoID, userID string, f models.SegmentFilter) (string, []any) {
	args := []any{videoID, userID}
	conds := []string{"video_id = $1", "user_id = $2"}

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.TimeRange != nil {
		conds = append(conds, "start_time >= "+arg(f.TimeRange.Start))
		conds = append(conds, "end_time <= "+arg(f.TimeRange.End))
	}

	if len(f.SceneTypes) > 0 {
		lowered := make([]string, len(f.SceneTypes))
		for i, st := range f.SceneTypes {
			lowered[i] = strings.ToLower(st)
		}
		conds = append(conds, "lower(scene_type) = ANY("+arg(pq.Array(lowered))+")")
	}

	for _, e := range f.Entities {
		conds = append(conds, "EXISTS (SELECT 1 FROM unnest(entities) AS e WHERE e ILIKE "+arg("%"+escapeLike(e)+"%")+")")
	}

	query := `SELECT ` + segmentColumns + ` FROM "TemporalSegment" WHERE ` +
		strings.Join(conds, " AND ") + ` ORDER BY segment_number`
	return query, args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
