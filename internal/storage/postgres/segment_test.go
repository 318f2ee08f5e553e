package postgres

import (
	"strings"
	"testing"

	"github.com/lib/pq"

	"jamesfarrell.me/video-moments/internal/storage/models"
)

func TestBuildSegmentQuery(t *testing.T) {
	tests := []struct {
		name      string
		filter    models.SegmentFilter
		wantConds []string
		wantArgs  int
	}{
		{
			name:      "scope only",
			filter:    models.SegmentFilter{},
			wantConds: []string{"video_id = $1 AND user_id = $2 ORDER BY segment_number"},
			wantArgs:  2,
		},
		{
			name:      "time range",
			filter:    models.SegmentFilter{TimeRange: &models.TimeRange{Start: 30, End: 90}},
			wantConds: []string{"start_time >= $3", "end_time <= $4"},
			wantArgs:  4,
		},
		{
			name:   "scene types and entities",
			filter: models.SegmentFilter{SceneTypes: []string{"Action"}, Entities: []string{"cat", "dog"}},
			wantConds: []string{
				"lower(scene_type) = ANY($3)",
				"e ILIKE $4",
				"e ILIKE $5",
			},
			wantArgs: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := buildSegmentQuery("vid", "user", tt.filter)
			for _, c := range tt.wantConds {
				if !strings.Contains(query, c) {
					t.Errorf("query missing %q:\n%s", c, query)
				}
			}
			if len(args) != tt.wantArgs {
				t.Errorf("got %d args, want %d", len(args), tt.wantArgs)
			}
		})
	}
}

func TestBuildSegmentQueryArgs(t *testing.T) {
	_, args := buildSegmentQuery("vid", "user", models.SegmentFilter{
		SceneTypes: []string{"Action", "DIALOGUE"},
		Entities:   []string{"100%_real"},
	})

	scenes, ok := args[2].(*pq.StringArray)
	if !ok {
		t.Fatalf("scene type arg is %T, want *pq.StringArray", args[2])
	}
	if strings.Join(*scenes, ",") != "action,dialogue" {
		t.Errorf("scene types = %v, want lowered", *scenes)
	}
	if args[3] != `%100\%\_real%` {
		t.Errorf("entity pattern = %v", args[3])
	}
}
