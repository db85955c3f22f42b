package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"solution-gateway/internal/config"
)

var (
	cacheConfigPath string
	cacheJSON       bool
	cacheServerURL  string
)

// cacheCmd inspects the workspace solution cache: its static
// configuration from a config file, or live occupancy from a running
// gateway.
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the workspace solution cache",
	Long: `Inspect the workspace solution cache.

The solution cache has no size or TTL knobs by design: every checksum it has
ever been asked to materialize stays cached until no caller holds a
reference to it. The only tunables are its logging behavior.

Examples:
  solution-gateway cache show
  solution-gateway cache show --config ./config.yaml --json
  solution-gateway cache stats --url http://localhost:8080`,
}

var cacheShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the solution cache configuration",
	RunE:  cacheShow,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show live cache occupancy from a running gateway",
	RunE:  cacheStats,
}

func cacheShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(cacheConfigPath)
	if err != nil {
		return HandleConfigError(err, cacheConfigPath)
	}

	sc := cfg.SolutionCache
	out := cmd.OutOrStdout()

	if cacheJSON {
		data, err := json.MarshalIndent(sc, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal solution cache config: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	fmt.Fprintln(out, "Workspace Solution Cache")
	fmt.Fprintf(out, "  Logging enabled:            %t\n", sc.EnableLogging)
	fmt.Fprintf(out, "  Materialization log level:  %s\n", sc.MaterializationLogLevel)
	fmt.Fprintln(out, "  Admission control:          none (no size/TTL bounds)")

	return nil
}

type cacheStatsPayload struct {
	AnyBranchEntries     int   `json:"anyBranchEntries"`
	PrimaryBranchEntries int   `json:"primaryBranchEntries"`
	CurrentVersion       int64 `json:"currentVersion"`
	HasCurrentSolution   bool  `json:"hasCurrentSolution"`
}

func cacheStats(cmd *cobra.Command, args []string) error {
	reqBody, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "cache/stats",
	})
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Post(cacheServerURL+"/jsonrpc", "application/json", bytes.NewReader(reqBody))
	if err != nil {
		return &CLIError{
			Type:    ErrorTypeNetwork,
			Message: fmt.Sprintf("failed to reach gateway at %s", cacheServerURL),
			Cause:   err,
			Suggestions: []string{
				"Check that the gateway is running: solution-gateway serve",
				"Pass the right address with --url",
			},
		}
	}
	defer resp.Body.Close()

	var rpcResp struct {
		Result *cacheStatsPayload `json:"result"`
		Error  *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("failed to parse gateway response: %w", err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("gateway returned error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}
	if rpcResp.Result == nil {
		return fmt.Errorf("gateway returned no result")
	}

	stats := rpcResp.Result
	out := cmd.OutOrStdout()

	if cacheJSON {
		data, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	fmt.Fprintln(out, "Workspace Solution Cache (live)")
	fmt.Fprintf(out, "  Any-branch entries:      %d\n", stats.AnyBranchEntries)
	fmt.Fprintf(out, "  Primary-branch entries:  %d\n", stats.PrimaryBranchEntries)
	if stats.HasCurrentSolution {
		fmt.Fprintf(out, "  Current version:         %d\n", stats.CurrentVersion)
	} else {
		fmt.Fprintln(out, "  Current version:         none (no primary solution yet)")
	}

	return nil
}

func init() {
	cacheCmd.PersistentFlags().StringVar(&cacheConfigPath, "config", "", "Path to configuration file")
	cacheCmd.PersistentFlags().BoolVar(&cacheJSON, "json", false, "Output in JSON format")
	cacheStatsCmd.Flags().StringVar(&cacheServerURL, "url", "http://localhost:8080", "Base URL of a running gateway")

	cacheCmd.AddCommand(cacheShowCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	rootCmd.AddCommand(cacheCmd)
}
