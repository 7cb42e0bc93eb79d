package cmd

import (
	"fmt"
	"os"

	"github.com/lao-tseu-is-alive/go-swarm-flock/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Config prints the configuration after the file, flags and FLOCK_*
variables are applied, in any supported format.`,
	RunE: printConfig,
}

var validateCmd = &cobra.Command{
	Use:   "validate FILE...",
	Short: "Check configuration files against the schema",
	Args:  cobra.MinimumNArgs(1),
	RunE:  validateConfigs,
}

func init() {
	configCmd.Flags().StringP("format", "f", config.FormatYAML, "output format (json, yaml, toml)")
	configCmd.AddCommand(validateCmd)
}

func printConfig(cmd *cobra.Command, _ []string) error {
	format, _ := cmd.Flags().GetString("format")
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return cfg.Encode(os.Stdout, format)
}

func validateConfigs(_ *cobra.Command, args []string) error {
	failed := 0
	for _, path := range args {
		if _, err := config.Load(path); err != nil {
			failed++
			_, _ = warnColor.Printf("✗ %v\n", err)
			continue
		}
		_, _ = okColor.Printf("✓ %s\n", path)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files invalid", failed, len(args))
	}
	return nil
}
