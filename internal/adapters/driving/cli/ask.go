package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-site/internal/core/domain"
)

var (
	retrieveTopK int
	retrieveURLs []string
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve [question]",
	Short: "Show the site context retrieved for a question",
	Long: `Runs hybrid retrieval for a question and prints the grounded context
and its source pages, without generating an answer. Combines keyword
overlap and semantic similarity with title, freshness and category signals.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRetrieve,
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from the site's content",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	retrieveCmd.Flags().IntVarP(&retrieveTopK, "top", "k", 0, "maximum source pages (default from settings)")
	retrieveCmd.Flags().StringSliceVar(&retrieveURLs, "hint", nil, "page URLs already believed relevant")
	rootCmd.AddCommand(retrieveCmd, askCmd)
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	retriever, err := retrieverService()
	if err != nil {
		return err
	}

	question := strings.Join(args, " ")
	res, err := retriever.Retrieve(cmd.Context(), question, retrieveTopK, domain.RetrievalHints{URLs: retrieveURLs})
	if err != nil {
		return fmt.Errorf("retrieval failed: %w", err)
	}
	if useJSON(cmd) {
		return printJSON(cmd.OutOrStdout(), res)
	}

	if res.Empty() {
		cmd.Println("No relevant content found.")
		return nil
	}
	cmd.Println(res.Context)
	cmd.Println()
	printSources(cmd, res.Sources)
	return nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	answerer, err := answererService()
	if err != nil {
		return err
	}

	ans, err := answerer.Answer(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return fmt.Errorf("answer failed: %w", err)
	}
	if useJSON(cmd) {
		return printJSON(cmd.OutOrStdout(), ans)
	}

	cmd.Println(ans.Text)
	if len(ans.Sources) > 0 {
		cmd.Println()
		printSources(cmd, ans.Sources)
	}
	if ans.Cached {
		cmd.Println("(cached)")
	}
	return nil
}

func printSources(cmd *cobra.Command, sources []domain.SourceRef) {
	cmd.Println("Sources:")
	for i, src := range sources {
		title := src.Title
		if title == "" {
			title = src.URL
		}
		cmd.Printf("  [%d] %s (%.2f)\n", i+1, title, src.Score)
		cmd.Printf("      %s\n", src.URL)
	}
}
