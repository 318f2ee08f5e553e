package cli

import (
	"fmt"
	"io"
	"math"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"jamesfarrell.me/video-moments/internal/storage/models"
)

var (
	flagSearchType      string
	flagSearchThreshold float64
	flagSearchEntities  []string
	flagSearchScenes    []string
	flagSearchFrom      float64
	flagSearchTo        float64
)

var searchCmd = &cobra.Command{
	Use:   "search <video-id> <query>",
	Short: "Search the moments of an indexed video",
	Long: `Search an indexed video.

Example:
  momentctl search 4f1c... "dog catches frisbee" --type action
  momentctl search 4f1c... dog --entity dog --entity ball --from 60 --to 180`,
	Args: cobra.MinimumNArgs(2),
	RunE: runSearch,
}

var segmentsCmd = &cobra.Command{
	Use:   "segments <video-id>",
	Short: "List the stored segments of a video",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireUser(); err != nil {
			return err
		}
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		segs, err := a.Indexing.GetVideoSegments(ctx, args[0], flagUser)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(cmd.OutOrStdout(), segs)
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "#\tTIME\tSCENE\tCONF\tDESCRIPTION")
		for _, s := range segs {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%.2f\t%s\n", s.SegmentNumber, span(s.StartTime, s.EndTime), s.SceneType, s.Confidence, s.Description)
		}
		return tw.Flush()
	},
}

var suggestCmd = &cobra.Command{
	Use:   "suggest <video-id> <partial>",
	Short: "Suggest search terms containing a fragment",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireUser(); err != nil {
			return err
		}
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		terms, err := a.Search.GetSearchSuggestions(ctx, args[0], flagUser, args[1])
		if err != nil {
			return err
		}
		return printTerms(cmd.OutOrStdout(), terms)
	},
}

var popularCmd = &cobra.Command{
	Use:   "popular <video-id>",
	Short: "Show the most frequent entities of a video",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireUser(); err != nil {
			return err
		}
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		terms, err := a.Search.GetPopularSearchTerms(ctx, args[0], flagUser)
		if err != nil {
			return err
		}
		return printTerms(cmd.OutOrStdout(), terms)
	},
}

func init() {
	registerSearchFlags()
	rootCmd.AddCommand(searchCmd, segmentsCmd, suggestCmd, popularCmd)
}

func registerSearchFlags() {
	searchCmd.Flags().StringVarP(&flagSearchType, "type", "t", string(models.SearchText), "Search type: text, semantic, entity, action or scene_type")
	searchCmd.Flags().Float64Var(&flagSearchThreshold, "threshold", models.DefaultThreshold, "Minimum relevance score (0 to 1)")
	searchCmd.Flags().StringArrayVar(&flagSearchEntities, "entity", nil, "Only segments showing this entity (repeatable, all must match)")
	searchCmd.Flags().StringArrayVar(&flagSearchScenes, "scene", nil, "Only segments of this scene type (repeatable, any may match)")
	searchCmd.Flags().Float64Var(&flagSearchFrom, "from", 0, "Only segments starting at or after this second")
	searchCmd.Flags().Float64Var(&flagSearchTo, "to", 0, "Only segments ending at or before this second")
}

func runSearch(cmd *cobra.Command, args []string) error {
	if err := requireUser(); err != nil {
		return err
	}
	req := buildSearchRequest(cmd, strings.Join(args[1:], " "))

	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	resp, err := a.Search.SearchVideo(ctx, args[0], flagUser, req)
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(cmd.OutOrStdout(), resp)
	}
	printSearchResponse(cmd.OutOrStdout(), resp)
	return nil
}

func buildSearchRequest(cmd *cobra.Command, query string) models.SearchRequest {
	req := models.SearchRequest{
		Query:         query,
		SearchType:    models.SearchType(flagSearchType),
		EntityFilters: flagSearchEntities,
		SceneTypes:    flagSearchScenes,
	}
	if cmd.Flags().Changed("threshold") {
		t := flagSearchThreshold
		req.Threshold = &t
	}
	if cmd.Flags().Changed("from") || cmd.Flags().Changed("to") {
		tr := &models.TimeRange{Start: flagSearchFrom, End: flagSearchTo}
		if !cmd.Flags().Changed("to") {
			tr.End = math.MaxFloat64
		}
		req.TimeRange = tr
	}
	return req
}

func printSearchResponse(w io.Writer, resp *models.SearchResponse) {
	fmt.Fprintf(w, "%q: %d matches in %s\n\n", resp.Query, resp.TotalResults, resp.SearchTime)
	if resp.TotalResults == 0 {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SCORE\t#\tTIME\tSCENE\tDESCRIPTION")
	for _, m := range resp.Matches {
		fmt.Fprintf(tw, "%.2f\t%d\t%s\t%s\t%s\n", m.RelevanceScore, m.SegmentNumber, span(m.StartTime, m.EndTime), m.SceneType, m.Description)
	}
	tw.Flush()
}

func printTerms(w io.Writer, terms []string) error {
	if flagJSON {
		return printJSON(w, terms)
	}
	for _, t := range terms {
		fmt.Fprintln(w, t)
	}
	return nil
}

func span(start, end float64) string {
	return fmt.Sprintf("%s-%s", clock(start), clock(end))
}

func clock(seconds float64) string {
	total := int(seconds)
	if total >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", total/3600, total/60%60, total%60)
	}
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
