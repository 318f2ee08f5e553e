package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// DefaultSegmentLength is the fixed time slice, in seconds, a video is cut into.
	DefaultSegmentLength = 30.0

	UnknownSceneType   = "unknown"
	FallbackConfidence = 0.5

	maxFallbackDescription = 500
)

// SegmentAnalysis is the structured description of one time slice.
type SegmentAnalysis struct {
	SegmentNumber int
	StartTime     float64
	EndTime       float64
	Description   string
	Entities      []string
	SceneType     string
	Confidence    float64
	// Degraded is set when the reply could not be parsed and the fallback was used.
	Degraded bool
}

// SegmentAnalyzer turns a (media, time range) pair into a SegmentAnalysis.
// All parsing of the collaborator's free-text replies happens here.
type SegmentAnalyzer struct {
	content       ContentAnalyzer
	segmentLength float64
	timeout       time.Duration
}

func NewSegmentAnalyzer(content ContentAnalyzer, segmentLength float64, timeout time.Duration) *SegmentAnalyzer {
	if segmentLength <= 0 {
		segmentLength = DefaultSegmentLength
	}
	return &SegmentAnalyzer{
		content:       content,
		segmentLength: segmentLength,
		timeout:       timeout,
	}
}

func (a *SegmentAnalyzer) SegmentLength() float64 {
	return a.segmentLength
}

// AnalyzeSegment describes [startTime, endTime). It fails only when the
// collaborator errors, times out or replies with nothing at all; any
// non-empty reply yields an analysis, degraded if it does not parse.
func (a *SegmentAnalyzer) AnalyzeSegment(ctx context.Context, media Media, startTime, endTime float64) (*SegmentAnalysis, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	raw, err := a.content.DescribeInterval(ctx, media, startTime, endTime, segmentInstructions(startTime, endTime))
	if err != nil {
		return nil, fmt.Errorf("describe %.1fs-%.1fs: %w", startTime, endTime, err)
	}

	analysis, err := parseSegmentReply(raw)
	if err != nil {
		analysis, err = fallbackAnalysis(raw)
		if err != nil {
			return nil, fmt.Errorf("describe %.1fs-%.1fs: %w", startTime, endTime, err)
		}
	}

	analysis.SegmentNumber = SegmentNumber(startTime, a.segmentLength)
	analysis.StartTime = startTime
	analysis.EndTime = endTime
	return analysis, nil
}

// SegmentNumber derives the 1-based segment number from the start time.
func SegmentNumber(startTime, segmentLength float64) int {
	return int(math.Floor(startTime/segmentLength)) + 1
}

func segmentInstructions(start, end float64) string {
	return fmt.Sprintf(`Analyze the video strictly between %s and %s (%.1fs to %.1fs).

1. Describe what happens in this interval in one or two sentences.
2. List the people, objects, places and sounds that are visible or audible.
3. Classify the scene type with one short lowercase label (for example: dialogue, action, landscape, presentation, montage).
4. Rate your confidence in this analysis from 0 to 1.

Reply with a single JSON object and nothing else:
{"description": "...", "entities": ["..."], "sceneType": "...", "confidence": 0.0}`,
		clock(start), clock(end), start, end)
}

func clock(seconds float64) string {
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, total/60%60, total%60)
}

type segmentReply struct {
	Description string   `json:"description"`
	Entities    []string `json:"entities"`
	SceneType   string   `json:"sceneType"`
	Confidence  *float64 `json:"confidence"`
}

var errNoObject = errors.New("no JSON object in reply")

// parseSegmentReply reads the first well-formed JSON object embedded in raw.
func parseSegmentReply(raw string) (*SegmentAnalysis, error) {
	var reply segmentReply
	if err := decodeFirstObject(raw, &reply); err != nil {
		return nil, err
	}

	description := strings.TrimSpace(reply.Description)
	if description == "" {
		return nil, errors.New("reply has no description")
	}

	sceneType := strings.ToLower(strings.TrimSpace(reply.SceneType))
	if sceneType == "" {
		sceneType = UnknownSceneType
	}

	confidence := FallbackConfidence
	if reply.Confidence != nil && !math.IsNaN(*reply.Confidence) {
		confidence = math.Max(0, math.Min(1, *reply.Confidence))
	}

	return &SegmentAnalysis{
		Description: description,
		Entities:    dedupe(reply.Entities),
		SceneType:   sceneType,
		Confidence:  confidence,
	}, nil
}

// decodeFirstObject finds the first '{' in raw that starts a well-formed JSON
// object and unmarshals that object into v. Text around the object is ignored.
func decodeFirstObject(raw string, v any) error {
	for i := strings.IndexByte(raw, '{'); i >= 0; {
		var obj json.RawMessage
		if err := json.NewDecoder(strings.NewReader(raw[i:])).Decode(&obj); err == nil {
			return json.Unmarshal(obj, v)
		}
		next := strings.IndexByte(raw[i+1:], '{')
		if next < 0 {
			break
		}
		i += next + 1
	}
	return errNoObject
}

func fallbackAnalysis(raw string) (*SegmentAnalysis, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, errors.New("empty reply")
	}
	return &SegmentAnalysis{
		Description: truncate(text, maxFallbackDescription),
		Entities:    []string{},
		SceneType:   UnknownSceneType,
		Confidence:  FallbackConfidence,
		Degraded:    true,
	}, nil
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

// dedupe trims entities and drops empties and repeats, keeping first-seen order.
func dedupe(entities []string) []string {
	seen := make(map[string]bool, len(entities))
	out := make([]string, 0, len(entities))
	for _, e := range entities {
		e = strings.TrimSpace(e)
		key := strings.ToLower(e)
		if e == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, e)
	}
	return out
}
