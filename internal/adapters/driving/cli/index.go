package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-site/internal/core/domain"
	"github.com/custodia-labs/sercha-site/internal/core/ports/driving"
)

var (
	indexForce     bool
	indexVariants  []string
	indexBatchSize int
	indexDrain     bool
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build and maintain the page index",
	Long: `Commands for crawling the site and maintaining the chunk index.

A full reindex reads the sitemap and queues pages; "index work" then
processes the queue in leased batches. The scheduler in "serve" does the
same in the background.`,
}

var indexAllCmd = &cobra.Command{
	Use:   "all",
	Short: "Queue every sitemap page for indexing",
	Args:  cobra.NoArgs,
	RunE:  runIndexAll,
}

var indexURLCmd = &cobra.Command{
	Use:   "url [url]",
	Short: "Fetch and index one page now",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndexURL,
}

var indexRemoveCmd = &cobra.Command{
	Use:   "remove [url]",
	Short: "Remove a page and the cached answers citing it",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndexRemove,
}

var indexWorkCmd = &cobra.Command{
	Use:   "work",
	Short: "Process queued pages",
	Long: `Processes one batch of queued pages under the crawl lease.
With --drain, keeps processing batches until the queue is empty.`,
	Args: cobra.NoArgs,
	RunE: runIndexWork,
}

var indexStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show crawl progress and index totals",
	Args:  cobra.NoArgs,
	RunE:  runIndexStatus,
}

func init() {
	indexAllCmd.Flags().BoolVarP(&indexForce, "force", "f", false, "queue pages that are already indexed")
	indexURLCmd.Flags().BoolVarP(&indexForce, "force", "f", false, "rewrite chunks even if the content is unchanged")
	indexURLCmd.Flags().StringSliceVar(&indexVariants, "variant", nil, "previous URLs of the page to purge")
	indexRemoveCmd.Flags().StringSliceVar(&indexVariants, "variant", nil, "other URLs of the page to remove")
	indexWorkCmd.Flags().IntVarP(&indexBatchSize, "batch-size", "n", 0, "pages per batch (default from settings)")
	indexWorkCmd.Flags().BoolVar(&indexDrain, "drain", false, "keep working until the queue is empty")

	indexCmd.AddCommand(indexAllCmd, indexURLCmd, indexRemoveCmd, indexWorkCmd, indexStatusCmd)
	rootCmd.AddCommand(indexCmd)
}

func runIndexAll(cmd *cobra.Command, _ []string) error {
	indexer, err := indexerService()
	if err != nil {
		return err
	}

	res, err := indexer.IndexAll(cmd.Context(), driving.IndexAllOptions{Force: indexForce})
	if err != nil {
		return fmt.Errorf("reindex failed: %w", err)
	}
	if useJSON(cmd) {
		return printJSON(cmd.OutOrStdout(), res)
	}
	cmd.Println(res.Message)
	return nil
}

func runIndexURL(cmd *cobra.Command, args []string) error {
	indexer, err := indexerService()
	if err != nil {
		return err
	}

	outcome, err := indexer.IndexSingleURL(cmd.Context(), args[0], driving.IndexURLOptions{
		Force:         indexForce,
		KnownVariants: indexVariants,
	})
	if err != nil {
		return fmt.Errorf("indexing %s: %w", args[0], err)
	}
	if useJSON(cmd) {
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"url":     args[0],
			"outcome": outcome,
			"result":  outcome.Result(),
		})
	}
	cmd.Printf("%s: %s\n", args[0], outcome)
	return nil
}

func runIndexRemove(cmd *cobra.Command, args []string) error {
	indexer, err := indexerService()
	if err != nil {
		return err
	}

	res, err := indexer.RemoveURL(cmd.Context(), args[0], indexVariants)
	if err != nil {
		return fmt.Errorf("removing %s: %w", args[0], err)
	}
	if useJSON(cmd) {
		return printJSON(cmd.OutOrStdout(), res)
	}
	cmd.Printf("Removed %d chunks and %d cached answers.\n", res.Chunks, res.CacheEntries)
	return nil
}

func runIndexWork(cmd *cobra.Command, _ []string) error {
	indexer, err := indexerService()
	if err != nil {
		return err
	}

	for {
		res, err := indexer.WorkBatch(cmd.Context(), indexBatchSize)
		if err != nil {
			return fmt.Errorf("batch failed: %w", err)
		}
		if useJSON(cmd) {
			if err := printJSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
		} else {
			printBatch(cmd, res)
		}
		if !indexDrain || res.LeaseHeld || res.Completed || res.Processed == 0 {
			return nil
		}
	}
}

func printBatch(cmd *cobra.Command, res *domain.BatchResult) {
	if res.LeaseHeld {
		cmd.Println("Another worker holds the crawl lease; nothing processed.")
		return
	}
	cmd.Printf("Processed %d: %d indexed, %d unchanged, %d skipped, %d failed (%d/%d)\n",
		res.Processed, res.Indexed, res.Unchanged, res.Skipped, res.Failed, res.Cursor, res.Total)
	if res.Completed {
		cmd.Println("Queue complete.")
	}
}

func runIndexStatus(cmd *cobra.Command, _ []string) error {
	indexer, err := indexerService()
	if err != nil {
		return err
	}

	st, err := indexer.Status(cmd.Context())
	if err != nil {
		return fmt.Errorf("status failed: %w", err)
	}
	if useJSON(cmd) {
		return printJSON(cmd.OutOrStdout(), st)
	}

	cmd.Println("Index Status")
	cmd.Println("============")
	cmd.Printf("  Documents: %d\n", st.Documents)
	cmd.Printf("  Chunks:    %d\n", st.Chunks)
	if st.Total > 0 {
		cmd.Printf("  Queue:     %d/%d\n", st.Cursor, st.Total)
	} else {
		cmd.Println("  Queue:     empty")
	}
	if st.LeaseHolder != "" {
		cmd.Printf("  Worker:    %s\n", st.LeaseHolder)
	}
	if st.LastCompleted != nil {
		cmd.Printf("  Last run:  %s\n", st.LastCompleted.Local().Format(time.RFC1123))
	}
	if len(st.Failures) > 0 {
		cmd.Println()
		cmd.Println("Recent failures:")
		for _, f := range st.Failures {
			cmd.Printf("  %s  %s\n", f.URL, f.Reason)
		}
	}
	return nil
}
