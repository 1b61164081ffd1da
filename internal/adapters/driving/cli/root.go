// Package cli provides the sercha-site command line.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/sercha-site/internal/core/domain"
	"github.com/custodia-labs/sercha-site/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-site/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-site/internal/logger"
)

// version is set at build time with -ldflags.
var version = "dev"

// Services holds what the commands drive. Any field may be nil when the
// backing component could not be configured.
type Services struct {
	Indexer   driving.Indexer
	Retriever driving.Retriever
	Answerer  driving.Answerer
	Cache     driving.AnswerCache
	Scheduler driving.Scheduler

	SchedulerConfig domain.SchedulerConfig
	ServerAddr      string
	ServerToken     string

	// Metrics serves the Prometheus registry.
	Metrics http.Handler

	// Close releases stores and clients.
	Close func() error
}

// Bootstrapper builds the application for a config file.
type Bootstrapper interface {
	// OpenConfig opens the config store at path; empty means the default location.
	OpenConfig(path string) (driven.ConfigStore, error)

	// Build wires the services from an open config store.
	Build(ctx context.Context, config driven.ConfigStore) (*Services, error)
}

// Command annotations.
const (
	// annotationConfigOnly marks commands that need the config store but no services.
	annotationConfigOnly = "config-only"

	// annotationStandalone marks commands that need neither.
	annotationStandalone = "standalone"
)

var (
	bootstrapper Bootstrapper
	services     *Services
	configStore  driven.ConfigStore

	configPath   string
	verbose      bool
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "sercha-site",
	Short: "Question answering over a website's own content",
	Long: `sercha-site crawls a website from its sitemap, indexes the pages as
embedded chunks, and answers visitor questions from that content only.

Run "sercha-site config init <site-url>" to create a config file, then
"sercha-site index all" and "sercha-site index work" to build the index.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.sercha-site/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print pipeline traces to stderr")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "auto", "output format: auto, text or json")
}

// SetBootstrapper sets how commands obtain their services.
func SetBootstrapper(b Bootstrapper) {
	bootstrapper = b
}

// SetVersion sets the version printed by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	defer closeServices()
	return rootCmd.ExecuteContext(ctx)
}

func setup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	if cmd.Annotations[annotationStandalone] == "true" {
		return nil
	}
	if configStore == nil {
		if bootstrapper == nil {
			return errors.New("application not configured")
		}
		store, err := bootstrapper.OpenConfig(configPath)
		if err != nil {
			return fmt.Errorf("opening config: %w", err)
		}
		configStore = store
	}
	if cmd.Annotations[annotationConfigOnly] == "true" || services != nil {
		return nil
	}

	svc, err := bootstrapper.Build(cmd.Context(), configStore)
	if err != nil {
		return fmt.Errorf("starting: %w", err)
	}
	services = svc
	return nil
}

func closeServices() {
	if services != nil && services.Close != nil {
		if err := services.Close(); err != nil {
			logger.Error("closing: %v", err)
		}
	}
}

// useJSON reports whether output should be JSON. Auto picks JSON when
// stdout is a file or pipe rather than a terminal.
func useJSON(cmd *cobra.Command) bool {
	switch outputFormat {
	case "json":
		return true
	case "text":
		return false
	}
	f, ok := cmd.OutOrStdout().(*os.File)
	return ok && !term.IsTerminal(int(f.Fd()))
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	return nil
}

func indexerService() (driving.Indexer, error) {
	if services == nil || services.Indexer == nil {
		return nil, errors.New("indexer not configured")
	}
	return services.Indexer, nil
}

func retrieverService() (driving.Retriever, error) {
	if services == nil || services.Retriever == nil {
		return nil, errors.New("retriever not configured: check the embedding settings")
	}
	return services.Retriever, nil
}

func answererService() (driving.Answerer, error) {
	if services == nil || services.Answerer == nil {
		return nil, errors.New("answerer not configured")
	}
	return services.Answerer, nil
}

func cacheService() (driving.AnswerCache, error) {
	if services == nil || services.Cache == nil {
		return nil, errors.New("answer cache not configured")
	}
	return services.Cache, nil
}
