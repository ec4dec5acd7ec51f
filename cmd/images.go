package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/samogod/dreamprep/pkg/images"
	"github.com/samogod/dreamprep/pkg/training"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	imagesMin  int
	imagesMax  int
	imagesList bool
	stepsBase  int
)

var imagesCmd = &cobra.Command{
	Use:   "images <dir>",
	Short: "Check the number of training images in a directory",
	Long: `Count .jpg, .jpeg and .png files directly inside <dir> and compare the
count with the recommended range. Exits with status 1 when the count is
outside the range. A directory that does not exist counts as empty.`,
	Args: cobra.ExactArgs(1),
	Run:  runImages,
}

var stepsCmd = &cobra.Command{
	Use:   "steps <image-count>",
	Short: "Estimate training steps for a number of images",
	Args:  cobra.ExactArgs(1),
	Run:   runSteps,
}

func init() {
	imagesCmd.Flags().IntVar(&imagesMin, "min", -1, "minimum recommended images (default from config)")
	imagesCmd.Flags().IntVar(&imagesMax, "max", -1, "maximum recommended images (default from config)")
	imagesCmd.Flags().BoolVar(&imagesList, "list", false, "list the matching files")

	stepsCmd.Flags().IntVar(&stepsBase, "base", -1, "base steps added to 100 steps per image (default from config)")

	rootCmd.AddCommand(imagesCmd)
	rootCmd.AddCommand(stepsCmd)
}

func runImages(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	policy := cfg.ImagePolicy()
	if imagesMin >= 0 {
		policy.Min = imagesMin
	}
	if imagesMax >= 0 {
		policy.Max = imagesMax
	}

	result, err := images.ValidateImageCountWith(args[0], policy)
	if err != nil {
		color.Red("Failed to inventory images: %v", err)
		os.Exit(1)
	}

	if imagesList {
		names, err := images.ListImages(args[0], policy.Extensions...)
		if err != nil {
			color.Red("Failed to list images: %v", err)
			os.Exit(1)
		}
		for _, name := range names {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
	}

	if result.Valid {
		color.Green("[INF] %s", result.Message)
		fmt.Fprintf(cmd.OutOrStdout(), "recommended steps: %d\n",
			training.RecommendedSteps(result.Count, cfg.Training.BaseSteps))
		return
	}

	color.Yellow("[WARN] %s", result.Message)
	os.Exit(1)
}

func runSteps(cmd *cobra.Command, args []string) {
	count, err := strconv.Atoi(args[0])
	if err != nil || count < 0 {
		color.Red("Error: image count must be a non-negative integer, got %q", args[0])
		os.Exit(1)
	}

	base := stepsBase
	if base < 0 {
		base = loadConfig().Training.BaseSteps
	}

	fmt.Fprintln(cmd.OutOrStdout(), training.RecommendedSteps(count, base))
}
