// Package memory is an in-process implementation of the video, job and segment
// stores. It backs local development and tests.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"jamesfarrell.me/video-moments/internal/storage/models"
)

type Store struct {
	mu       sync.RWMutex
	videos   map[string]models.Video
	jobs     []models.IndexingJob // creation order
	segments []models.TemporalSegment
}

func NewStore() *Store {
	return &Store{videos: make(map[string]models.Video)}
}

// PutVideo registers or replaces a video.
func (s *Store) PutVideo(v models.Video) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.videos[v.ID] = v
}

func (s *Store) GetVideo(ctx context.Context, videoID, userID string) (*models.Video, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.videos[videoID]
	if !ok || v.UserID != userID {
		return nil, models.ErrNotFound
	}
	return &v, nil
}

// CreateJob inserts a job, refusing a second active job for the same video.
func (s *Store) CreateJob(ctx context.Context, job *models.IndexingJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, j := range s.jobs {
		if j.VideoID == job.VideoID && j.Status.Active() {
			return models.ErrConflict
		}
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	now := time.Now()
	job.CreatedAt, job.UpdatedAt = now, now
	s.jobs = append(s.jobs, *job)
	return nil
}

func (s *Store) UpdateJob(ctx context.Context, job *models.IndexingJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job.Status.Active() {
		for _, j := range s.jobs {
			if j.ID != job.ID && j.VideoID == job.VideoID && j.Status.Active() {
				return models.ErrConflict
			}
		}
	}
	for i := range s.jobs {
		if s.jobs[i].ID == job.ID {
			job.UpdatedAt = time.Now()
			job.CreatedAt = s.jobs[i].CreatedAt
			s.jobs[i] = *job
			return nil
		}
	}
	return models.ErrNotFound
}

func (s *Store) ExpireJobs(ctx context.Context, videoID string, before time.Time, reason string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	now := time.Now()
	for i := range s.jobs {
		j := &s.jobs[i]
		if j.VideoID != videoID || !j.Status.Active() || !j.UpdatedAt.Before(before) {
			continue
		}
		msg := reason
		j.Status = models.JobError
		j.ErrorMessage = &msg
		j.UpdatedAt = now
		n++
	}
	return n, nil
}

func (s *Store) GetJob(ctx context.Context, jobID, userID string) (*models.IndexingJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, j := range s.jobs {
		if j.ID == jobID && j.UserID == userID {
			return &j, nil
		}
	}
	return nil, models.ErrNotFound
}

func (s *Store) LatestJob(ctx context.Context, videoID, userID string) (*models.IndexingJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.jobs) - 1; i >= 0; i-- {
		j := s.jobs[i]
		if j.VideoID == videoID && j.UserID == userID {
			return &j, nil
		}
	}
	return nil, models.ErrNotFound
}

func (s *Store) DeleteJobs(ctx context.Context, videoID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.jobs[:0]
	for _, j := range s.jobs {
		if j.VideoID != videoID || j.UserID != userID {
			kept = append(kept, j)
		}
	}
	s.jobs = kept
	return nil
}

func (s *Store) CreateSegment(ctx context.Context, seg *models.TemporalSegment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seg.ID == "" {
		seg.ID = uuid.NewString()
	}
	seg.CreatedAt = time.Now()
	cp := *seg
	cp.Entities = append([]string(nil), seg.Entities...)
	s.segments = append(s.segments, cp)
	return nil
}

func (s *Store) DeleteSegments(ctx context.Context, videoID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.segments[:0]
	for _, seg := range s.segments {
		if seg.VideoID != videoID || seg.UserID != userID {
			kept = append(kept, seg)
		}
	}
	s.segments = kept
	return nil
}

func (s *Store) CountSegments(ctx context.Context, videoID, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, seg := range s.segments {
		if seg.VideoID == videoID && seg.UserID == userID {
			n++
		}
	}
	return n, nil
}

// ListSegments returns the pair's segments that pass filter, ordered by segment number.
func (s *Store) ListSegments(ctx context.Context, videoID, userID string, filter models.SegmentFilter) ([]models.TemporalSegment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.TemporalSegment{}
	for _, seg := range s.segments {
		if seg.VideoID != videoID || seg.UserID != userID || !filter.Matches(&seg) {
			continue
		}
		seg.Entities = append([]string(nil), seg.Entities...)
		out = append(out, seg)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SegmentNumber < out[j].SegmentNumber
	})
	return out, nil
}

// SimilarSegments ranks the pair's other segments by cosine similarity of
// their description embeddings to the embedding of segmentID.
func (s *Store) SimilarSegments(ctx context.Context, videoID, userID, segmentID string, limit int) ([]models.SimilarSegment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var source *models.TemporalSegment
	for i := range s.segments {
		seg := &s.segments[i]
		if seg.ID == segmentID && seg.VideoID == videoID && seg.UserID == userID {
			source = seg
			break
		}
	}
	if source == nil {
		return nil, models.ErrNotFound
	}
	if len(source.Embedding) == 0 {
		return []models.SimilarSegment{}, nil
	}

	results := []models.SimilarSegment{}
	for _, seg := range s.segments {
		if seg.ID == segmentID || seg.VideoID != videoID || seg.UserID != userID || len(seg.Embedding) == 0 {
			continue
		}
		results = append(results, models.SimilarSegment{
			Segment:    seg,
			Similarity: cosineSimilarity(source.Embedding, seg.Embedding),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if limit > 0 && limit < len(results) {
		results = results[:limit]
	}
	return results, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return dot / denom
}
