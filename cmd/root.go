package cmd

import (
	"fmt"
	"os"

	"github.com/samogod/dreamprep/pkg/concept"
	"github.com/samogod/dreamprep/pkg/config"
	"github.com/samogod/dreamprep/pkg/database"
	"github.com/samogod/dreamprep/pkg/images"
	"github.com/samogod/dreamprep/pkg/orchestrator"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	configFile string
	silent     bool
	verbose    bool
)

var Verbose bool

var rootCmd = &cobra.Command{
	Use:   "dreamprep",
	Short: "prepare dreambooth fine-tuning runs",
	Long: `dreamprep builds the concepts list, provisions instance directories,
checks training images and renders the accelerate launch command for
train_dreambooth.py. Training itself is left to the external script.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		Verbose = verbose
		if verbose {
			setDebugLogFunctions()
		}
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	hasSilentFlag := false
	for i, arg := range os.Args {
		if arg == "-silent" {
			os.Args[i] = "--silent"
			hasSilentFlag = true
		}
		if arg == "--silent" {
			hasSilentFlag = true
		}
	}

	if !hasSilentFlag {
		printBanner()
	}

	if err := rootCmd.Execute(); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func DebugLog(format string, args ...interface{}) {
	if Verbose {
		fmt.Fprintf(os.Stderr, "[DBG] "+format+"\n", args...)
	}
}

func setDebugLogFunctions() {
	config.DebugLog = DebugLog
	concept.DebugLog = DebugLog
	images.DebugLog = DebugLog
	database.DebugLog = DebugLog
	orchestrator.DebugLog = DebugLog
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (default: ./dreamprep.yaml or user config dir)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose/debug output")
	rootCmd.PersistentFlags().BoolVar(&silent, "silent", false, "silent mode - no banner or extra output")

	rootCmd.AddCommand(versionCmd)
}

// loadConfig resolves the configuration the same way the orchestrator does,
// for commands that do not need a full orchestrator.
func loadConfig() *config.Config {
	manager := config.NewManager(configFile)
	if err := manager.LoadConfig(); err != nil {
		color.Red("Failed to load configuration: %v", err)
		os.Exit(1)
	}
	return manager.GetConfig()
}

func printBanner() {
	banner := color.CyanString(`
┌┬┐┬─┐┌─┐┌─┐┌┬┐┌─┐┬─┐┌─┐┌─┐
 ││├┬┘├┤ ├─┤│││├─┘├┬┘├┤ ├─┘
─┴┘┴└─└─┘┴ ┴┴ ┴┴  ┴└─└─┘┴
`)
	info := color.HiBlackString("dreambooth run preparation: concepts, images, steps, launch command")
	fmt.Println(banner)
	fmt.Println(info)
	fmt.Println()
}
