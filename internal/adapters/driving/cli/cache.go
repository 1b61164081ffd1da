package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the answer cache",
}

var cacheFindCmd = &cobra.Command{
	Use:   "find [question]",
	Short: "Show the cached answer a question would hit",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCacheFind,
}

var cacheDeleteCmd = &cobra.Command{
	Use:   "delete [id...]",
	Short: "Delete cached answers by ID",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCacheDelete,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every cached answer",
	Args:  cobra.NoArgs,
	RunE:  runCacheClear,
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge [url-or-path...]",
	Short: "Delete cached answers citing pages",
	Long: `Deletes every cached answer whose sources include one of the given
pages. Arguments starting with "/" are matched as site paths, anything
else as full URLs.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCachePurge,
}

func init() {
	cacheCmd.AddCommand(cacheFindCmd, cacheDeleteCmd, cacheClearCmd, cachePurgeCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheFind(cmd *cobra.Command, args []string) error {
	cache, err := cacheService()
	if err != nil {
		return err
	}

	entry, err := cache.Find(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return fmt.Errorf("cache lookup failed: %w", err)
	}
	if useJSON(cmd) {
		return printJSON(cmd.OutOrStdout(), entry)
	}
	if entry == nil {
		cmd.Println("No cached answer.")
		return nil
	}
	cmd.Printf("ID:       %s\n", entry.ID)
	cmd.Printf("Question: %s\n", entry.Question)
	cmd.Printf("Hits:     %d\n", entry.HitCount)
	cmd.Println()
	cmd.Println(entry.Answer)
	if len(entry.Sources) > 0 {
		cmd.Println()
		printSources(cmd, entry.Sources)
	}
	return nil
}

func runCacheDelete(cmd *cobra.Command, args []string) error {
	cache, err := cacheService()
	if err != nil {
		return err
	}
	n, err := cache.Delete(cmd.Context(), args...)
	if err != nil {
		return fmt.Errorf("cache delete failed: %w", err)
	}
	return printDeleted(cmd, n)
}

func runCacheClear(cmd *cobra.Command, _ []string) error {
	cache, err := cacheService()
	if err != nil {
		return err
	}
	n, err := cache.Clear(cmd.Context())
	if err != nil {
		return fmt.Errorf("cache clear failed: %w", err)
	}
	return printDeleted(cmd, n)
}

func runCachePurge(cmd *cobra.Command, args []string) error {
	cache, err := cacheService()
	if err != nil {
		return err
	}

	var urls, paths []string
	for _, a := range args {
		if strings.HasPrefix(a, "/") {
			paths = append(paths, a)
		} else {
			urls = append(urls, a)
		}
	}
	n, err := cache.PurgeBySourceURLs(cmd.Context(), urls, paths)
	if err != nil {
		return fmt.Errorf("cache purge failed: %w", err)
	}
	return printDeleted(cmd, n)
}

func printDeleted(cmd *cobra.Command, n int) error {
	if useJSON(cmd) {
		return printJSON(cmd.OutOrStdout(), map[string]int{"deleted": n})
	}
	cmd.Printf("Deleted %d cached answers.\n", n)
	return nil
}
