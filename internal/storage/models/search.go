package models

import "time"

type SearchType string

const (
	SearchText      SearchType = "text"
	SearchSemantic  SearchType = "semantic"
	SearchEntity    SearchType = "entity"
	SearchAction    SearchType = "action"
	SearchSceneType SearchType = "scene_type"
)

// DefaultThreshold is applied when a request leaves Threshold unset.
const DefaultThreshold = 0.5

func (t SearchType) Valid() bool {
	switch t {
	case SearchText, SearchSemantic, SearchEntity, SearchAction, SearchSceneType:
		return true
	}
	return false
}

type SearchRequest struct {
	Query         string     `json:"query"`
	Threshold     *float64   `json:"threshold,omitempty"`
	TimeRange     *TimeRange `json:"timeRange,omitempty"`
	EntityFilters []string   `json:"entityFilters,omitempty"`
	SceneTypes    []string   `json:"sceneTypes,omitempty"`
	SearchType    SearchType `json:"searchType"`
}

// EffectiveThreshold returns the requested threshold or the default.
func (r SearchRequest) EffectiveThreshold() float64 {
	if r.Threshold == nil {
		return DefaultThreshold
	}
	return *r.Threshold
}

// Filter converts the request's structural constraints into a store filter.
func (r SearchRequest) Filter() SegmentFilter {
	return SegmentFilter{
		TimeRange:  r.TimeRange,
		SceneTypes: r.SceneTypes,
		Entities:   r.EntityFilters,
	}
}

type SearchMatch struct {
	SegmentID      string   `json:"segmentId"`
	SegmentNumber  int      `json:"segmentNumber"`
	StartTime      float64  `json:"startTime"`
	EndTime        float64  `json:"endTime"`
	Description    string   `json:"description"`
	Entities       []string `json:"entities"`
	SceneType      string   `json:"sceneType"`
	Confidence     float64  `json:"confidence"`
	RelevanceScore float64  `json:"relevanceScore"`
}

type SearchResponse struct {
	Matches      []SearchMatch `json:"matches"`
	TotalResults int           `json:"totalResults"`
	SearchTime   time.Duration `json:"searchTimeNs"`
	Query        string        `json:"query"`
}

// SimilarSegment is a neighbour found by description embedding distance.
type SimilarSegment struct {
	Segment    TemporalSegment `json:"segment"`
	Similarity float64         `json:"similarity"`
}
