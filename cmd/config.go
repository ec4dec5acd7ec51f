package cmd

import (
	"os"

	"github.com/samogod/dreamprep/pkg/config"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the dreamprep configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a configuration file with the default settings",
	Long: `Write a configuration file with the default settings. Without a path the
file goes to the user config directory.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runConfigInit,
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing file")

	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) {
	path := config.GetDefaultConfigPath()
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		color.Red("Error: could not determine the user config directory, pass a path")
		os.Exit(1)
	}

	if _, err := os.Stat(path); err == nil && !configForce {
		color.Red("Error: %s already exists, use --force to overwrite", path)
		os.Exit(1)
	}

	if err := config.Save(config.Default(), path); err != nil {
		color.Red("Failed to write config: %v", err)
		os.Exit(1)
	}

	color.Green("Configuration written to %s", path)
}
