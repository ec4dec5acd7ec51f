package cmd

import (
	"fmt"
	"os"

	"github.com/samogod/dreamprep/pkg/orchestrator"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	prepareInstance   string
	prepareClass      string
	prepareBaseDir    string
	prepareConcepts   string
	prepareModel      string
	prepareOutputDir  string
	preparePrompt     string
	prepareSteps      int
	prepareResolution int
	prepareBatchSize  int
	prepareLR         float64
	prepareOutputFile string
)

var prepareCmd = &cobra.Command{
	Use:   "prepare",
	Short: "Prepare a complete training run",
	Long: `Build and save the concepts list, create the instance directory, check the
images in it, estimate training steps and print the launch command.`,
	Example: `  dreamprep prepare -i nitsuah -k man
  dreamprep prepare -i nitsuah -k man --base-dir /content/data --steps 1200 -o train.sh`,
	Run: runPrepare,
}

func init() {
	prepareCmd.Flags().StringVarP(&prepareInstance, "instance", "i", "", "unique instance token of the subject (e.g. 'nitsuah')")
	prepareCmd.Flags().StringVarP(&prepareClass, "class", "k", "", "class of the subject (e.g. 'man', 'woman', 'person')")
	prepareCmd.Flags().StringVar(&prepareBaseDir, "base-dir", "", "base directory for instance and class data (default from config)")
	prepareCmd.Flags().StringVar(&prepareConcepts, "concepts", "", "concepts list file to write (.json or .yaml)")
	prepareCmd.Flags().StringVar(&prepareModel, "model", "", "pretrained model name or path")
	prepareCmd.Flags().StringVar(&prepareOutputDir, "output-dir", "", "directory for trained weights (default: <training.output_dir>/<instance>)")
	prepareCmd.Flags().StringVar(&preparePrompt, "prompt", "", "sample prompt (default: the instance prompt)")
	prepareCmd.Flags().IntVar(&prepareSteps, "steps", 0, "max training steps (default: estimated from image count)")
	prepareCmd.Flags().IntVar(&prepareResolution, "resolution", 0, "training resolution")
	prepareCmd.Flags().IntVar(&prepareBatchSize, "batch-size", 0, "training batch size")
	prepareCmd.Flags().Float64Var(&prepareLR, "lr", 0, "learning rate")
	prepareCmd.Flags().StringVarP(&prepareOutputFile, "output", "o", "", "file to write the launch command to")

	rootCmd.AddCommand(prepareCmd)
}

func runPrepare(cmd *cobra.Command, args []string) {
	if prepareInstance == "" || prepareClass == "" {
		color.Red("Error: both -i (instance) and -k (class) are required")
		cmd.Help()
		os.Exit(1)
	}

	orch, err := orchestrator.NewOrchestrator(configFile)
	if err != nil {
		color.Red("Failed to initialize orchestrator: %v", err)
		os.Exit(1)
	}
	defer orch.Close()

	if silent {
		orch.Logger().SetLevel(logrus.WarnLevel)
	}

	result, err := orch.Prepare(orchestrator.PrepareOptions{
		Instance:       prepareInstance,
		Class:          prepareClass,
		BaseDir:        prepareBaseDir,
		ConceptsFile:   prepareConcepts,
		ModelName:      prepareModel,
		OutputDir:      prepareOutputDir,
		SamplePrompt:   preparePrompt,
		MaxTrainSteps:  prepareSteps,
		Resolution:     prepareResolution,
		TrainBatchSize: prepareBatchSize,
		LearningRate:   prepareLR,
	})
	if err != nil {
		color.Red("Prepare failed: %v", err)
		os.Exit(1)
	}

	if err := writeCommand(cmd, result.Command, prepareOutputFile); err != nil {
		color.Red("Output error: %v", err)
		os.Exit(1)
	}

	if !silent {
		displayPrepareSummary(result)
	}
}

func displayPrepareSummary(result *orchestrator.PrepareResult) {
	fmt.Println()
	color.Green("Run prepared in %v", result.Duration)
	fmt.Printf(" %-16s %s\n", "Concepts file", result.ConceptsFile)
	fmt.Printf(" %-16s %s\n", "Instance dir", result.Concepts[0].InstanceDataDir)
	fmt.Printf(" %-16s %d\n", "Images", result.Images.Count)
	fmt.Printf(" %-16s %d\n", "Max steps", result.MaxTrainSteps)
	if result.RunID != "" {
		fmt.Printf(" %-16s %s\n", "Run ID", result.RunID)
	}
}

// writeCommand prints the launch command or, with a target file, writes it
// there followed by a newline.
func writeCommand(cmd *cobra.Command, command, outputFile string) error {
	if outputFile == "" {
		fmt.Fprintln(cmd.OutOrStdout(), command)
		return nil
	}

	if err := os.WriteFile(outputFile, []byte(command+"\n"), 0755); err != nil {
		return fmt.Errorf("failed to write command file: %w", err)
	}

	if !silent {
		color.Green("Launch command written to %s", outputFile)
	}

	return nil
}
