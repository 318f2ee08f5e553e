package search

import (
	"context"
	"fmt"
	"log"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"jamesfarrell.me/video-moments/internal/storage/models"
)

// Heuristic weights for text search.
const (
	descriptionWeight = 0.8
	entityWeight      = 0.3
	sceneTypeWeight   = 0.2
	timeRangeBonus    = 0.1

	// DefaultScore is used when an analyzer reply carries no usable number.
	DefaultScore = 0.5

	DefaultConcurrency = 4
	DefaultTimeout     = 45 * time.Second
)

// RelevanceAnalyzer answers a free-text scoring question.
type RelevanceAnalyzer interface {
	ScoreRelevance(ctx context.Context, instructions string) (string, error)
}

// Scorer computes 0..1 relevance scores for candidate segments.
type Scorer struct {
	content     RelevanceAnalyzer
	concurrency int
	timeout     time.Duration
}

// NewScorer returns a scorer that delegates non-text searches to content.
// A nil content scores every search type with the text heuristic.
func NewScorer(content RelevanceAnalyzer, concurrency int, timeout time.Duration) *Scorer {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Scorer{content: content, concurrency: concurrency, timeout: timeout}
}

// Score returns one score per segment, index-aligned with segs. It never
// fails: analyzer errors fall back to the text heuristic for that segment.
func (s *Scorer) Score(ctx context.Context, req models.SearchRequest, segs []models.TemporalSegment) []float64 {
	scores := make([]float64, len(segs))
	if req.SearchType == models.SearchText || s.content == nil {
		for i := range segs {
			scores[i] = TextScore(req, &segs[i])
		}
		return scores
	}

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i := range segs {
		seg := &segs[i]
		g.Go(func() error {
			scores[i] = s.scoreOne(ctx, req, seg)
			return nil
		})
	}
	_ = g.Wait()
	return scores
}

func (s *Scorer) scoreOne(ctx context.Context, req models.SearchRequest, seg *models.TemporalSegment) float64 {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	reply, err := s.content.ScoreRelevance(ctx, scoringInstructions(req, seg))
	if err != nil {
		log.Printf("[search] scoring segment %d failed, using text heuristic: %v", seg.SegmentNumber, err)
		return TextScore(req, seg)
	}
	return parseScore(reply)
}

// TextScore is the local heuristic: a description match dominates, matching
// entities and scene type add smaller amounts, and segments inside a
// requested time range get a bonus. Matching ignores case.
func TextScore(req models.SearchRequest, seg *models.TemporalSegment) float64 {
	query := strings.ToLower(strings.TrimSpace(req.Query))
	score := 0.0

	if query != "" {
		if strings.Contains(strings.ToLower(seg.Description), query) {
			score += descriptionWeight
		}
		for _, e := range seg.Entities {
			if strings.Contains(strings.ToLower(e), query) {
				score += entityWeight
			}
		}
		if strings.Contains(strings.ToLower(seg.SceneType), query) {
			score += sceneTypeWeight
		}
	}

	if req.TimeRange != nil && req.TimeRange.Contains(seg.StartTime, seg.EndTime) {
		score += timeRangeBonus
	}
	return math.Min(score, 1.0)
}

var scoringFocus = map[models.SearchType]string{
	models.SearchSemantic:  "how closely the meaning of the segment matches the query, even if different words are used",
	models.SearchEntity:    "whether the people, objects or places named in the query appear in the segment",
	models.SearchAction:    "whether the action or activity described by the query happens in the segment",
	models.SearchSceneType: "whether the segment's setting or scene type matches the one described by the query",
}

func scoringInstructions(req models.SearchRequest, seg *models.TemporalSegment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Rate the relevance of a video segment to the search query %q.\n", req.Query)
	fmt.Fprintf(&b, "Judge %s.\n\n", scoringFocus[req.SearchType])
	fmt.Fprintf(&b, "Segment %d (%.1fs-%.1fs)\n", seg.SegmentNumber, seg.StartTime, seg.EndTime)
	fmt.Fprintf(&b, "Description: %s\n", seg.Description)
	if len(seg.Entities) > 0 {
		fmt.Fprintf(&b, "Entities: %s\n", strings.Join(seg.Entities, ", "))
	}
	fmt.Fprintf(&b, "Scene type: %s\n\n", seg.SceneType)
	b.WriteString("Respond with only a number between 0 and 1, where 1 is a perfect match.")
	return b.String()
}

var leadingNumber = regexp.MustCompile(`^[-+]?(\d+(\.\d*)?|\.\d+)`)

// parseScore reads the number at the start of reply. Anything else, or a
// value outside [0, 1], yields DefaultScore.
func parseScore(reply string) float64 {
	m := leadingNumber.FindString(strings.TrimSpace(reply))
	if m == "" {
		return DefaultScore
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil || v < 0 || v > 1 {
		return DefaultScore
	}
	return v
}
