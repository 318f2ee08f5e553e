package models

import (
	"time"
)

// Video is the slice of the "Video" row the indexer needs. Upload and
// transcoding own the rest of the table.
type Video struct {
	ID            string    `json:"id"`
	VideoURL      string    `json:"videoUrl"`
	Duration      *float64  `json:"duration,omitempty"`
	Transcription *string   `json:"transcription,omitempty"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
	UserID        string    `json:"userId"`
}

// HasDuration reports whether the video has a known, positive duration.
func (v *Video) HasDuration() bool {
	return v.Duration != nil && *v.Duration > 0
}
