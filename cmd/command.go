package cmd

import (
	"os"

	"github.com/samogod/dreamprep/pkg/training"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	commandModel      string
	commandOutputDir  string
	commandConcepts   string
	commandSteps      int
	commandPrompt     string
	commandResolution int
	commandBatchSize  int
	commandLR         float64
	commandOutputFile string
)

var commandCmd = &cobra.Command{
	Use:   "command",
	Short: "Render the accelerate launch command without touching the filesystem",
	Example: `  dreamprep command --output-dir /content/weights --concepts /content/concepts_list.json \
    --steps 800 --prompt "photo of nitsuah man"`,
	Run: runCommand,
}

func init() {
	commandCmd.Flags().StringVar(&commandModel, "model", "", "pretrained model name or path (default from config)")
	commandCmd.Flags().StringVar(&commandOutputDir, "output-dir", "", "directory for trained weights")
	commandCmd.Flags().StringVar(&commandConcepts, "concepts", "", "concepts list file (default from config)")
	commandCmd.Flags().IntVar(&commandSteps, "steps", 0, "max training steps")
	commandCmd.Flags().StringVar(&commandPrompt, "prompt", "", "sample prompt")
	commandCmd.Flags().IntVar(&commandResolution, "resolution", 0, "training resolution (default from config)")
	commandCmd.Flags().IntVar(&commandBatchSize, "batch-size", 0, "training batch size (default from config)")
	commandCmd.Flags().Float64Var(&commandLR, "lr", 0, "learning rate (default from config)")
	commandCmd.Flags().StringVarP(&commandOutputFile, "output", "o", "", "file to write the launch command to")

	rootCmd.AddCommand(commandCmd)
}

func runCommand(cmd *cobra.Command, args []string) {
	if commandOutputDir == "" || commandSteps <= 0 {
		color.Red("Error: --output-dir and a positive --steps are required")
		cmd.Help()
		os.Exit(1)
	}

	cfg := loadConfig()

	opts := training.CommandOptions{
		ModelName:      commandModel,
		OutputDir:      commandOutputDir,
		ConceptsFile:   commandConcepts,
		MaxTrainSteps:  commandSteps,
		SamplePrompt:   commandPrompt,
		Resolution:     commandResolution,
		TrainBatchSize: commandBatchSize,
		LearningRate:   commandLR,
	}
	if opts.ModelName == "" {
		opts.ModelName = cfg.Training.ModelName
	}
	if opts.ConceptsFile == "" {
		opts.ConceptsFile = cfg.Data.ConceptsFile
	}
	if opts.Resolution == 0 {
		opts.Resolution = cfg.Training.Resolution
	}
	if opts.TrainBatchSize == 0 {
		opts.TrainBatchSize = cfg.Training.TrainBatchSize
	}
	if opts.LearningRate == 0 {
		opts.LearningRate = cfg.Training.LearningRate
	}

	if err := writeCommand(cmd, training.BuildCommand(opts), commandOutputFile); err != nil {
		color.Red("Output error: %v", err)
		os.Exit(1)
	}
}
