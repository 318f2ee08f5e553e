package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"jamesfarrell.me/video-moments/internal/config"
	"jamesfarrell.me/video-moments/internal/storage/models"
)

var (
	flagWait    bool
	flagTimeout time.Duration
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.Migrate(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
		return nil
	},
}

var indexCmd = &cobra.Command{
	Use:   "index <video-id>",
	Short: "Start indexing a video",
	Long: `Start an indexing job for a video.

With the local queue the job runs inside momentctl and the command waits for
it. With the redis or postgres queue the job is handed to cmd/indexer; pass
--wait to follow it until it finishes.`,
	Args: cobra.ExactArgs(1),
	RunE: runIndex,
}

var statusCmd = &cobra.Command{
	Use:   "status <video-id>",
	Short: "Show the latest indexing job of a video",
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

		job, err := a.Indexing.GetIndexingStatusByVideo(ctx, args[0], flagUser)
		if err != nil {
			return err
		}
		indexed, err := a.Indexing.IsVideoIndexed(ctx, args[0], flagUser)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(cmd.OutOrStdout(), map[string]any{"job": job, "indexed": indexed})
		}
		printJob(cmd.OutOrStdout(), job)
		fmt.Fprintf(cmd.OutOrStdout(), "Indexed:  %v\n", indexed)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <video-id>",
	Short: "Delete every segment and job of a video",
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

		if err := a.Indexing.DeleteVideoIndex(ctx, args[0], flagUser); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "index of %s deleted\n", args[0])
		return nil
	},
}

func init() {
	indexCmd.Flags().BoolVar(&flagWait, "wait", false, "Wait for a queued job to finish")
	indexCmd.Flags().DurationVar(&flagTimeout, "timeout", time.Hour, "Give up waiting after this long")
	rootCmd.AddCommand(migrateCmd, indexCmd, statusCmd, deleteCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	if err := requireUser(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), flagTimeout)
	defer cancel()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	wait := flagWait
	if a.Config.Queue == config.QueueLocal {
		wait = true
		go a.Work(ctx)
	}

	job, err := a.Indexing.StartIndexing(ctx, args[0], flagUser)
	if err != nil {
		return err
	}
	if wait {
		if job, err = waitForJob(ctx, a.Indexing.GetIndexingStatus, job); err != nil {
			return err
		}
	}

	if flagJSON {
		return printJSON(cmd.OutOrStdout(), job)
	}
	printJob(cmd.OutOrStdout(), job)
	if job.Status == models.JobError {
		return fmt.Errorf("indexing failed")
	}
	return nil
}

type jobLookup func(ctx context.Context, jobID, userID string) (*models.IndexingJob, error)

func waitForJob(ctx context.Context, lookup jobLookup, job *models.IndexingJob) (*models.IndexingJob, error) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for job.Status.Active() {
		select {
		case <-ctx.Done():
			return job, fmt.Errorf("waiting for job %s: %w", job.ID, ctx.Err())
		case <-ticker.C:
		}
		next, err := lookup(ctx, job.ID, job.UserID)
		if err != nil {
			return job, err
		}
		job = next
	}
	return job, nil
}

func printJob(w io.Writer, job *models.IndexingJob) {
	fmt.Fprintf(w, "Job:      %s\n", job.ID)
	fmt.Fprintf(w, "Video:    %s\n", job.VideoID)
	fmt.Fprintf(w, "Status:   %s (%d%%, %d/%d segments)\n", job.Status, job.Progress, job.ProcessedSegments, job.TotalSegments)
	if job.ErrorMessage != nil {
		fmt.Fprintf(w, "Error:    %s\n", *job.ErrorMessage)
	}
	fmt.Fprintf(w, "Updated:  %s\n", job.UpdatedAt.Format(time.RFC3339))
}
