package models

import (
	"strings"
	"time"
)

type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobComplete   JobStatus = "complete"
	JobError      JobStatus = "error"
)

// Active reports whether a job still holds the per-video indexing claim.
func (s JobStatus) Active() bool {
	return s == JobPending || s == JobProcessing
}

type IndexingJob struct {
	ID                string    `json:"id"`
	VideoID           string    `json:"videoId"`
	UserID            string    `json:"userId"`
	Status            JobStatus `json:"status"`
	Progress          int       `json:"progress"`
	TotalSegments     int       `json:"totalSegments"`
	ProcessedSegments int       `json:"processedSegments"`
	ErrorMessage      *string   `json:"errorMessage,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// TemporalSegment is one analyzed time slice of a video. Segments are written
// once and only ever removed as a whole when the video is reindexed.
type TemporalSegment struct {
	ID            string    `json:"id"`
	VideoID       string    `json:"videoId"`
	UserID        string    `json:"userId"`
	SegmentNumber int       `json:"segmentNumber"`
	StartTime     float64   `json:"startTime"`
	EndTime       float64   `json:"endTime"`
	Description   string    `json:"description"`
	Entities      []string  `json:"entities"`
	SceneType     string    `json:"sceneType"`
	Confidence    float64   `json:"confidence"`
	Embedding     []float32 `json:"-"`
	CreatedAt     time.Time `json:"createdAt"`
}

// SegmentFilter holds the structural constraints applied before any scoring.
// Zero values mean "no constraint".
type SegmentFilter struct {
	TimeRange  *TimeRange
	SceneTypes []string
	Entities   []string
}

type TimeRange struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Contains reports whether [start, end] lies fully inside the range.
func (r TimeRange) Contains(start, end float64) bool {
	return start >= r.Start && end <= r.End
}

// Matches applies the filter to a single segment. Scene types compare
// case-insensitively; every entity filter must be a case-insensitive
// substring of at least one of the segment's entities.
func (f SegmentFilter) Matches(s *TemporalSegment) bool {
	if f.TimeRange != nil && !f.TimeRange.Contains(s.StartTime, s.EndTime) {
		return false
	}

	if len(f.SceneTypes) > 0 {
		ok := false
		for _, st := range f.SceneTypes {
			if strings.EqualFold(st, s.SceneType) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}

	for _, want := range f.Entities {
		if !HasEntity(s.Entities, want) {
			return false
		}
	}
	return true
}

// HasEntity reports whether any entity contains term, ignoring case.
func HasEntity(entities []string, term string) bool {
	term = strings.ToLower(term)
	for _, e := range entities {
		if strings.Contains(strings.ToLower(e), term) {
			return true
		}
	}
	return false
}
