package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/abdul-hamid-achik/hncheck/packages/core/config"
	"github.com/spf13/cobra"
)

var forceInit bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter hncheck configuration",
	Long: `Write hncheck.yaml with the default settings to the current directory.

Examples:
  hncheck init
  hncheck init --force`,
	Args: cobra.NoArgs,
	RunE: initCommand,
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite an existing file")
}

func initCommand(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	return writeStarterConfig(cmd, filepath.Join(cwd, "hncheck.yaml"), forceInit)
}

func writeStarterConfig(cmd *cobra.Command, path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return withCode(ExitConfigError, fmt.Errorf("file already exists: %s (use --force to overwrite)", path))
		}
	}

	cfg := config.DefaultConfig()
	cfg.Headers = map[string]string{"User-Agent": "hncheck/" + version}
	cfg.HistoryPath = ".hncheck/history.db"
	if err := cfg.SaveConfig(path); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", path)
	fmt.Fprintf(cmd.OutOrStdout(), "\nRun 'hncheck run' to check the item API.\n")
	return nil
}
