package cli

import (
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// versionInfo is what "version -o json" prints.
type versionInfo struct {
	Version  string `json:"version"`
	Commit   string `json:"commit,omitempty"`
	Modified bool   `json:"modified,omitempty"`
	Go       string `json:"go"`
	Platform string `json:"platform"`
}

var versionCmd = &cobra.Command{
	Use:         "version",
	Short:       "Print the version number",
	Annotations: map[string]string{annotationStandalone: "true"},
	Args:        cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		info := buildInfo()
		if useJSON(cmd) {
			return printJSON(cmd.OutOrStdout(), info)
		}
		cmd.Printf("sercha-site version %s\n", info.Version)
		if info.Commit != "" {
			suffix := ""
			if info.Modified {
				suffix = " (modified)"
			}
			cmd.Printf("commit %s%s\n", info.Commit, suffix)
		}
		cmd.Printf("%s %s\n", info.Go, info.Platform)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func buildInfo() versionInfo {
	info := versionInfo{
		Version:  version,
		Go:       runtime.Version(),
		Platform: runtime.GOOS + "/" + runtime.GOARCH,
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			info.Commit = s.Value
			if len(info.Commit) > 12 {
				info.Commit = info.Commit[:12]
			}
		case "vcs.modified":
			info.Modified = s.Value == "true"
		}
	}
	return info
}
