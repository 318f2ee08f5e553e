// Package search answers queries against a video's indexed segments.
package search

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"jamesfarrell.me/video-moments/internal/storage/models"
)

const defaultSimilarLimit = 5

type SegmentStore interface {
	ListSegments(ctx context.Context, videoID, userID string, filter models.SegmentFilter) ([]models.TemporalSegment, error)
	SimilarSegments(ctx context.Context, videoID, userID, segmentID string, limit int) ([]models.SimilarSegment, error)
}

type Engine struct {
	segments SegmentStore
	scorer   *Scorer
}

func NewEngine(segments SegmentStore, scorer *Scorer) *Engine {
	if scorer == nil {
		scorer = NewScorer(nil, 0, 0)
	}
	return &Engine{segments: segments, scorer: scorer}
}

// SearchVideo runs req against the segments of one video. Structural filters
// are applied by the store, so scoring only sees candidates; matches below
// the threshold are dropped and the rest are ordered by score, then segment
// number.
func (e *Engine) SearchVideo(ctx context.Context, videoID, userID string, req models.SearchRequest) (*models.SearchResponse, error) {
	started := time.Now()

	if req.SearchType == "" {
		req.SearchType = models.SearchText
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	candidates, err := e.segments.ListSegments(ctx, videoID, userID, req.Filter())
	if err != nil {
		return nil, fmt.Errorf("load segments for %s: %w", videoID, err)
	}

	resp := &models.SearchResponse{
		Matches: []models.SearchMatch{},
		Query:   req.Query,
	}
	if len(candidates) == 0 {
		resp.SearchTime = time.Since(started)
		return resp, nil
	}

	scores := e.scorer.Score(ctx, req, candidates)
	threshold := req.EffectiveThreshold()
	for i, seg := range candidates {
		if scores[i] < threshold {
			continue
		}
		resp.Matches = append(resp.Matches, models.SearchMatch{
			SegmentID:      seg.ID,
			SegmentNumber:  seg.SegmentNumber,
			StartTime:      seg.StartTime,
			EndTime:        seg.EndTime,
			Description:    seg.Description,
			Entities:       seg.Entities,
			SceneType:      seg.SceneType,
			Confidence:     seg.Confidence,
			RelevanceScore: scores[i],
		})
	}

	// Candidates arrive in segment order, so a stable sort keeps ties temporal.
	sort.SliceStable(resp.Matches, func(i, j int) bool {
		return resp.Matches[i].RelevanceScore > resp.Matches[j].RelevanceScore
	})

	resp.TotalResults = len(resp.Matches)
	resp.SearchTime = time.Since(started)
	log.Printf("[search] video %s: %q (%s) matched %d of %d candidates in %s",
		videoID, req.Query, req.SearchType, resp.TotalResults, len(candidates), resp.SearchTime)
	return resp, nil
}

func validate(req models.SearchRequest) error {
	if strings.TrimSpace(req.Query) == "" {
		return fmt.Errorf("query is required: %w", models.ErrInvalidArgument)
	}
	if !req.SearchType.Valid() {
		return fmt.Errorf("unknown search type %q: %w", req.SearchType, models.ErrInvalidArgument)
	}
	if t := req.EffectiveThreshold(); t < 0 || t > 1 {
		return fmt.Errorf("threshold %v outside [0, 1]: %w", t, models.ErrInvalidArgument)
	}
	if tr := req.TimeRange; tr != nil && tr.End < tr.Start {
		return fmt.Errorf("time range ends before it starts: %w", models.ErrInvalidArgument)
	}
	return nil
}

// FindSimilarSegments returns the segments whose descriptions are closest in
// meaning to segmentID's. Segments indexed without embeddings have no
// neighbours.
func (e *Engine) FindSimilarSegments(ctx context.Context, videoID, userID, segmentID string, limit int) ([]models.SimilarSegment, error) {
	if limit <= 0 {
		limit = defaultSimilarLimit
	}
	return e.segments.SimilarSegments(ctx, videoID, userID, segmentID, limit)
}
