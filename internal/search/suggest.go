package search

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"jamesfarrell.me/video-moments/internal/storage/models"
)

const (
	maxSuggestions  = 10
	maxPopularTerms = 10
)

// GetSearchSuggestions returns entity and scene type strings containing
// partial, in the order they first appear in the video.
func (e *Engine) GetSearchSuggestions(ctx context.Context, videoID, userID, partial string) ([]string, error) {
	segs, err := e.segments.ListSegments(ctx, videoID, userID, models.SegmentFilter{})
	if err != nil {
		return nil, fmt.Errorf("load segments for %s: %w", videoID, err)
	}

	partial = strings.ToLower(strings.TrimSpace(partial))
	seen := make(map[string]struct{})
	suggestions := []string{}

	add := func(term string) bool {
		if term == "" || !strings.Contains(strings.ToLower(term), partial) {
			return false
		}
		if _, ok := seen[term]; ok {
			return false
		}
		seen[term] = struct{}{}
		suggestions = append(suggestions, term)
		return len(suggestions) == maxSuggestions
	}

	for _, seg := range segs {
		for _, entity := range seg.Entities {
			if add(entity) {
				return suggestions, nil
			}
		}
		if add(seg.SceneType) {
			return suggestions, nil
		}
	}
	return suggestions, nil
}

// GetPopularSearchTerms returns the video's most frequent entities.
func (e *Engine) GetPopularSearchTerms(ctx context.Context, videoID, userID string) ([]string, error) {
	segs, err := e.segments.ListSegments(ctx, videoID, userID, models.SegmentFilter{})
	if err != nil {
		return nil, fmt.Errorf("load segments for %s: %w", videoID, err)
	}

	counts := make(map[string]int)
	var order []string
	for _, seg := range segs {
		for _, entity := range seg.Entities {
			if _, ok := counts[entity]; !ok {
				order = append(order, entity)
			}
			counts[entity]++
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > maxPopularTerms {
		order = order[:maxPopularTerms]
	}
	if order == nil {
		order = []string{}
	}
	return order, nil
}
