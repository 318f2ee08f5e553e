package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"jamesfarrell.me/video-moments/internal/storage/models"
	"jamesfarrell.me/video-moments/internal/transcription"
)

// ErrMediaUnavailable means the source media cannot be read at all. Unlike
// other analyzer errors it is fatal to an indexing job.
var ErrMediaUnavailable = errors.New("media unavailable")

// ContentAnalyzer is the external collaborator that describes media intervals
// and answers scoring questions. Both calls are free text in, free text out.
type ContentAnalyzer interface {
	DescribeInterval(ctx context.Context, media Media, start, end float64, instructions string) (string, error)
	ScoreRelevance(ctx context.Context, instructions string) (string, error)
}

// Media is the handle an analyzer works from: where the video lives and,
// when one exists, its timed transcript.
type Media struct {
	VideoID string
	URL     string
	Cues    []transcription.Cue
}

// Transcript returns the transcript text overlapping [start, end) seconds.
func (m Media) Transcript(start, end float64) string {
	return transcription.TextBetween(m.Cues, seconds(start), seconds(end))
}

// NewMedia resolves the media handle for a video. A video with neither a
// media URL nor a readable transcript cannot be analyzed.
func NewMedia(video *models.Video) (Media, error) {
	media := Media{VideoID: video.ID, URL: video.VideoURL}

	var parseErr error
	if video.Transcription != nil && *video.Transcription != "" {
		cues, err := transcription.ParseVTT(*video.Transcription)
		if err != nil {
			parseErr = err
			log.Printf("[analyzer] video %s: ignoring unreadable transcript: %v", video.ID, err)
		} else {
			media.Cues = cues
		}
	}

	if media.URL == "" && len(media.Cues) == 0 {
		if parseErr != nil {
			return Media{}, fmt.Errorf("video %s: %w: %v", video.ID, ErrMediaUnavailable, parseErr)
		}
		return Media{}, fmt.Errorf("video %s: %w: no media url or transcript", video.ID, ErrMediaUnavailable)
	}
	return media, nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
