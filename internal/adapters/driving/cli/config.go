package cli

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	coreservices "github.com/custodia-labs/sercha-site/internal/core/services"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
	Long: `View and edit the TOML configuration file.

Secrets can be left out of the file: OPENAI_API_KEY is used when no
api_key is configured for an OpenAI provider.`,
}

var configInitCmd = &cobra.Command{
	Use:         "init [site-url]",
	Short:       "Write a config file with defaults for a site",
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{annotationConfigOnly: "true"},
	RunE:        runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:         "show",
	Short:       "Show the current configuration",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationConfigOnly: "true"},
	RunE:        runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set one configuration value",
	Long: `Sets a dotted key such as retrieval.top_k or crawl.throttle.
Integers, decimals and true/false are stored as such; comma separated
values are stored as lists when the key already holds a list.`,
	Args:        cobra.ExactArgs(2),
	Annotations: map[string]string{annotationConfigOnly: "true"},
	RunE:        runConfigSet,
}

var configValidateCmd = &cobra.Command{
	Use:         "validate",
	Short:       "Check the configuration for settings that cannot work",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationConfigOnly: "true"},
	RunE:        runConfigValidate,
}

func init() {
	configInitCmd.Flags().BoolVarP(&configForce, "force", "f", false, "overwrite an existing configuration")
	configCmd.AddCommand(configInitCmd, configShowCmd, configSetCmd, configValidateCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	u, err := url.Parse(args[0])
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("invalid site URL %q: expected http(s)://host", args[0])
	}
	if len(configStore.Keys("")) > 0 && !configForce {
		return fmt.Errorf("%s already exists; use --force to overwrite", configStore.Path())
	}

	for key, value := range coreservices.Defaults(strings.TrimRight(args[0], "/")) {
		if err := configStore.Set(key, value); err != nil {
			return fmt.Errorf("setting %s: %w", key, err)
		}
	}
	if err := configStore.Save(); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	cmd.Printf("Wrote %s\n", configStore.Path())
	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	keys := configStore.Keys("")
	sort.Strings(keys)

	values := make(map[string]any, len(keys))
	for _, k := range keys {
		v, _ := configStore.Get(k)
		if isSecret(k) {
			v = maskSecret(fmt.Sprint(v))
		}
		values[k] = v
	}
	if useJSON(cmd) {
		return printJSON(cmd.OutOrStdout(), values)
	}

	cmd.Printf("Config: %s\n\n", configStore.Path())
	if len(keys) == 0 {
		cmd.Println("(empty) run \"sercha-site config init <site-url>\" first")
		return nil
	}
	for _, k := range keys {
		cmd.Printf("  %s = %v\n", k, values[k])
	}
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, raw := args[0], args[1]
	if strings.TrimSpace(key) == "" {
		return errors.New("key must not be empty")
	}

	var value any = parseValue(raw)
	if existing, ok := configStore.Get(key); ok {
		if _, isList := existing.([]any); isList {
			value = splitList(raw)
		}
		if _, isList := existing.([]string); isList {
			value = splitList(raw)
		}
	}

	if err := configStore.Set(key, value); err != nil {
		return fmt.Errorf("setting %s: %w", key, err)
	}
	if err := configStore.Save(); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	cmd.Printf("%s = %v\n", key, value)
	return nil
}

func runConfigValidate(cmd *cobra.Command, _ []string) error {
	if err := coreservices.NewSettingsService(configStore).Validate(); err != nil {
		return err
	}
	cmd.Println("Configuration OK.")
	return nil
}

func parseValue(raw string) any {
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(raw); err == nil && (raw == "true" || raw == "false") {
		return b
	}
	return raw
}

func splitList(raw string) []string {
	out := []string{}
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func isSecret(key string) bool {
	return strings.HasSuffix(key, "api_key") || strings.HasSuffix(key, "password") || strings.HasSuffix(key, "token")
}

// maskSecret keeps the first and last four characters of long values.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
