package indexing

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"jamesfarrell.me/video-moments/internal/analyzer"
	"jamesfarrell.me/video-moments/internal/embeddings"
	"jamesfarrell.me/video-moments/internal/queue"
	"jamesfarrell.me/video-moments/internal/storage/models"
)

type VideoStore interface {
	GetVideo(ctx context.Context, videoID, userID string) (*models.Video, error)
}

type JobStore interface {
	CreateJob(ctx context.Context, job *models.IndexingJob) error
	UpdateJob(ctx context.Context, job *models.IndexingJob) error
	GetJob(ctx context.Context, jobID, userID string) (*models.IndexingJob, error)
	LatestJob(ctx context.Context, videoID, userID string) (*models.IndexingJob, error)
	DeleteJobs(ctx context.Context, videoID, userID string) error
	// ExpireJobs moves the video's pending or processing jobs last updated
	// before the cutoff to the error state and returns how many it moved.
	ExpireJobs(ctx context.Context, videoID string, before time.Time, reason string) (int, error)
}

type SegmentStore interface {
	CreateSegment(ctx context.Context, seg *models.TemporalSegment) error
	DeleteSegments(ctx context.Context, videoID, userID string) error
	CountSegments(ctx context.Context, videoID, userID string) (int, error)
	ListSegments(ctx context.Context, videoID, userID string, filter models.SegmentFilter) ([]models.TemporalSegment, error)
}

// SegmentAnalyzer describes one time slice of a video.
type SegmentAnalyzer interface {
	AnalyzeSegment(ctx context.Context, media analyzer.Media, startTime, endTime float64) (*analyzer.SegmentAnalysis, error)
	SegmentLength() float64
}

// DefaultJobLease is how long an active job may go without a progress update
// before a new start for the same video takes it over.
const DefaultJobLease = 10 * time.Minute

// Service drives video indexing: it validates and creates jobs, hands them to
// the queue, and runs the per-video segmentation loop when a task arrives.
type Service struct {
	videos   VideoStore
	jobs     JobStore
	segments SegmentStore
	analyzer SegmentAnalyzer
	queue    queue.Queue
	embedder embeddings.Embedder
	lease    time.Duration
	now      func() time.Time
}

type Option func(*Service)

// WithEmbedder stores a description embedding with every segment.
func WithEmbedder(e embeddings.Embedder) Option {
	return func(s *Service) { s.embedder = e }
}

// WithJobLease sets how long an active job may go without progress before it
// is considered abandoned.
func WithJobLease(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.lease = d
		}
	}
}

func NewService(videos VideoStore, jobs JobStore, segments SegmentStore, a SegmentAnalyzer, q queue.Queue, opts ...Option) *Service {
	s := &Service{
		videos:   videos,
		jobs:     jobs,
		segments: segments,
		analyzer: a,
		queue:    q,
		lease:    DefaultJobLease,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TotalSegments is ceil(duration / segmentLength).
func TotalSegments(duration, segmentLength float64) int {
	return int(math.Ceil(duration / segmentLength))
}

// SegmentBounds returns [start, end) of the i-th (0-based) segment. The last
// segment ends exactly at duration.
func SegmentBounds(i int, duration, segmentLength float64) (float64, float64) {
	start := float64(i) * segmentLength
	end := math.Min(float64(i+1)*segmentLength, duration)
	return start, end
}

// StartIndexing creates a pending job for the video and queues it. It returns
// as soon as the task is queued.
func (s *Service) StartIndexing(ctx context.Context, videoID, userID string) (*models.IndexingJob, error) {
	video, err := s.videos.GetVideo(ctx, videoID, userID)
	if err != nil {
		return nil, err
	}
	if !video.HasDuration() {
		return nil, fmt.Errorf("video %s has no known duration: %w", videoID, models.ErrInvalidState)
	}

	job := &models.IndexingJob{
		VideoID:       videoID,
		UserID:        userID,
		Status:        models.JobPending,
		TotalSegments: TotalSegments(*video.Duration, s.analyzer.SegmentLength()),
	}
	cutoff := s.now().Add(-s.lease)
	reason := fmt.Sprintf("abandoned: no progress since %s", cutoff.UTC().Format(time.RFC3339))
	n, err := s.jobs.ExpireJobs(ctx, videoID, cutoff, reason)
	if err != nil {
		return nil, fmt.Errorf("expire stale jobs: %w", err)
	}
	if n > 0 {
		log.Printf("[indexing] video %s: expired %d stale job(s)", videoID, n)
	}

	if err := s.jobs.CreateJob(ctx, job); err != nil {
		return nil, err
	}

	// Reindexing replaces the previous index wholesale.
	if err := s.segments.DeleteSegments(ctx, videoID, userID); err != nil {
		s.fail(ctx, job, fmt.Sprintf("clear previous segments: %v", err))
		return nil, fmt.Errorf("clear previous segments: %w", err)
	}

	task := queue.Task{JobID: job.ID, VideoID: videoID, UserID: userID}
	if err := s.queue.Enqueue(ctx, task); err != nil {
		s.fail(ctx, job, fmt.Sprintf("enqueue: %v", err))
		return nil, fmt.Errorf("enqueue indexing job %s: %w", job.ID, err)
	}

	log.Printf("[indexing] queued job %s for video %s (%d segments)", job.ID, videoID, job.TotalSegments)
	return job, nil
}

// RunJob is the queue handler. Segments are analyzed strictly in order; a
// segment whose analysis fails is skipped, while a missing video, unreadable
// media or a store error ends the job in the error state.
func (s *Service) RunJob(ctx context.Context, task queue.Task) error {
	job, err := s.jobs.GetJob(ctx, task.JobID, task.UserID)
	if err != nil {
		return fmt.Errorf("load job %s: %w", task.JobID, err)
	}
	if !job.Status.Active() {
		log.Printf("[indexing] job %s already %s, skipping", job.ID, job.Status)
		return nil
	}

	job.Status = models.JobProcessing
	if err := s.jobs.UpdateJob(ctx, job); err != nil {
		return fmt.Errorf("mark job %s processing: %w", job.ID, err)
	}

	video, err := s.videos.GetVideo(ctx, job.VideoID, job.UserID)
	if err != nil {
		return s.fail(ctx, job, fmt.Sprintf("load video: %v", err))
	}
	if !video.HasDuration() {
		return s.fail(ctx, job, "video has no known duration")
	}
	media, err := analyzer.NewMedia(video)
	if err != nil {
		return s.fail(ctx, job, err.Error())
	}

	duration := *video.Duration
	length := s.analyzer.SegmentLength()
	job.TotalSegments = TotalSegments(duration, length)
	job.ProcessedSegments = 0

	skipped, degraded := 0, 0
	for i := 0; i < job.TotalSegments; i++ {
		if err := ctx.Err(); err != nil {
			return s.fail(context.WithoutCancel(ctx), job, fmt.Sprintf("interrupted: %v", err))
		}

		start, end := SegmentBounds(i, duration, length)
		analysis, err := s.analyzer.AnalyzeSegment(ctx, media, start, end)
		if errors.Is(err, analyzer.ErrMediaUnavailable) {
			return s.fail(ctx, job, err.Error())
		}
		if err != nil {
			skipped++
			log.Printf("[indexing] job %s: skipping segment %d: %v", job.ID, i+1, err)
		} else {
			if analysis.Degraded {
				degraded++
			}
			if err := s.saveSegment(ctx, job, analysis); err != nil {
				return s.fail(ctx, job, fmt.Sprintf("save segment %d: %v", analysis.SegmentNumber, err))
			}
		}

		job.ProcessedSegments++
		job.Progress = progress(job.ProcessedSegments, job.TotalSegments)
		if err := s.jobs.UpdateJob(ctx, job); err != nil {
			return s.fail(ctx, job, fmt.Sprintf("update progress: %v", err))
		}
	}

	job.Status = models.JobComplete
	job.Progress = 100
	if err := s.jobs.UpdateJob(ctx, job); err != nil {
		return fmt.Errorf("mark job %s complete: %w", job.ID, err)
	}
	log.Printf("[indexing] job %s complete: %d segments (%d unparsed), %d skipped", job.ID, job.TotalSegments-skipped, degraded, skipped)
	return nil
}

func (s *Service) saveSegment(ctx context.Context, job *models.IndexingJob, a *analyzer.SegmentAnalysis) error {
	seg := &models.TemporalSegment{
		VideoID:       job.VideoID,
		UserID:        job.UserID,
		SegmentNumber: a.SegmentNumber,
		StartTime:     a.StartTime,
		EndTime:       a.EndTime,
		Description:   a.Description,
		Entities:      a.Entities,
		SceneType:     a.SceneType,
		Confidence:    a.Confidence,
	}

	if s.embedder != nil {
		vec, err := s.embedder.Embed(ctx, a.Description)
		switch {
		case err != nil:
			log.Printf("[indexing] job %s: segment %d stored without embedding: %v", job.ID, a.SegmentNumber, err)
		case len(vec) != embeddings.Dimensions:
			log.Printf("[indexing] job %s: segment %d stored without embedding: got %d dimensions, want %d", job.ID, a.SegmentNumber, len(vec), embeddings.Dimensions)
		default:
			seg.Embedding = vec
		}
	}

	return s.segments.CreateSegment(ctx, seg)
}

// fail records msg on the job and moves it to the error state. The returned
// error carries msg for the queue's log.
func (s *Service) fail(ctx context.Context, job *models.IndexingJob, msg string) error {
	job.Status = models.JobError
	job.ErrorMessage = &msg
	if err := s.jobs.UpdateJob(ctx, job); err != nil {
		log.Printf("[indexing] job %s: could not record failure %q: %v", job.ID, msg, err)
	}
	return fmt.Errorf("indexing job %s: %s", job.ID, msg)
}

func progress(processed, total int) int {
	if total <= 0 {
		return 100
	}
	return int(math.Round(float64(processed) / float64(total) * 100))
}

func (s *Service) GetIndexingStatus(ctx context.Context, jobID, userID string) (*models.IndexingJob, error) {
	return s.jobs.GetJob(ctx, jobID, userID)
}

// GetIndexingStatusByVideo returns the video's most recent job.
func (s *Service) GetIndexingStatusByVideo(ctx context.Context, videoID, userID string) (*models.IndexingJob, error) {
	return s.jobs.LatestJob(ctx, videoID, userID)
}

// IsVideoIndexed reports whether any segment is stored for the pair, whatever
// the state of its jobs.
func (s *Service) IsVideoIndexed(ctx context.Context, videoID, userID string) (bool, error) {
	n, err := s.segments.CountSegments(ctx, videoID, userID)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteVideoIndex removes every segment and job for the pair. A job that is
// already running is not stopped and may keep writing segments.
func (s *Service) DeleteVideoIndex(ctx context.Context, videoID, userID string) error {
	if err := s.segments.DeleteSegments(ctx, videoID, userID); err != nil {
		return err
	}
	return s.jobs.DeleteJobs(ctx, videoID, userID)
}

func (s *Service) GetVideoSegments(ctx context.Context, videoID, userID string) ([]models.TemporalSegment, error) {
	return s.segments.ListSegments(ctx, videoID, userID, models.SegmentFilter{})
}
