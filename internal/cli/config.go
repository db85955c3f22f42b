package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"solution-gateway/internal/config"
)

var (
	configOutputPath string
	configFilePath   string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the gateway configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	RunE:  configInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	RunE:  configValidate,
}

func configInit(cmd *cobra.Command, args []string) error {
	cfg := config.DefaultConfig()
	if err := config.SaveConfig(cfg, configOutputPath); err != nil {
		return fmt.Errorf("failed to write configuration: %w", err)
	}

	path := configOutputPath
	if path == "" {
		path = config.DefaultConfigFile
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote default configuration to %s\n", path)
	return nil
}

func configValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configFilePath)
	if err != nil {
		return HandleConfigError(err, configFilePath)
	}

	if err := cfg.Validate(); err != nil {
		return HandleConfigError(err, configFilePath)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Configuration is valid")
	return nil
}

func init() {
	configInitCmd.Flags().StringVarP(&configOutputPath, "output", "o", "", "Where to write the configuration file")
	configValidateCmd.Flags().StringVarP(&configFilePath, "config", "c", config.DefaultConfigFile, "Configuration file path")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(configCmd)
}
