package cli

import (
	"encoding/json"
	"fmt"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"solution-gateway/internal/version"
)

var versionJSON bool

type VersionInfo struct {
	Version      string `json:"version"`
	GitCommit    string `json:"git_commit"`
	GitBranch    string `json:"git_branch"`
	BuildTime    string `json:"build_time"`
	BuildUser    string `json:"build_user"`
	GoVersion    string `json:"go_version"`
	Platform     string `json:"platform"`
	Architecture string `json:"architecture"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version and build information",
	Long: `Display version and build information for Solution Gateway.

Version information can be customized at build time using:
  go build -ldflags "-X 'solution-gateway/internal/version.Version=v1.0.0'"`,
	RunE: runVersion,
}

func runVersion(cmd *cobra.Command, args []string) error {
	versionInfo := VersionInfo{
		Version:      version.Version,
		GitCommit:    version.GitCommit,
		GitBranch:    version.GitBranch,
		BuildTime:    version.BuildTime,
		BuildUser:    version.BuildUser,
		GoVersion:    runtime.Version(),
		Platform:     runtime.GOOS,
		Architecture: runtime.GOARCH,
	}

	out := cmd.OutOrStdout()

	if versionJSON {
		jsonData, err := json.MarshalIndent(versionInfo, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal version information: %w", err)
		}
		fmt.Fprintln(out, string(jsonData))
		return nil
	}

	fmt.Fprintf(out, "Solution Gateway %s\n", versionInfo.Version)

	if version.GitCommit != "unknown" {
		commit := version.GitCommit
		if len(commit) > 7 {
			commit = commit[:7]
		}
		fmt.Fprintf(out, "Git Commit:   %s\n", commit)
	}

	if version.GitBranch != "unknown" {
		fmt.Fprintf(out, "Git Branch:   %s\n", version.GitBranch)
	}

	if version.BuildTime != "unknown" {
		if t, err := time.Parse(time.RFC3339, version.BuildTime); err == nil {
			fmt.Fprintf(out, "Build Time:   %s\n", t.Format("2006-01-02 15:04:05 UTC"))
		} else {
			fmt.Fprintf(out, "Build Time:   %s\n", version.BuildTime)
		}
	}

	fmt.Fprintf(out, "Go Version:   %s\n", versionInfo.GoVersion)
	fmt.Fprintf(out, "Platform:     %s/%s\n", versionInfo.Platform, versionInfo.Architecture)

	return nil
}

func init() {
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "Output version information in JSON format")

	rootCmd.AddCommand(versionCmd)
}
