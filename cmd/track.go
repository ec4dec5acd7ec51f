package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/samogod/dreamprep/pkg/database"
	"github.com/samogod/dreamprep/pkg/orchestrator"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	trackAll      bool
	trackCommands bool
)

var trackCmd = &cobra.Command{
	Use:   "track [instance]",
	Short: "Query the run ledger",
	Long:  `List prepared runs recorded in the local run ledger for one instance or for all instances`,
	Args:  cobra.MaximumNArgs(1),
	Run:   runTrack,
}

func init() {
	trackCmd.Flags().BoolVar(&trackAll, "all", false, "list runs of all instances")
	trackCmd.Flags().BoolVar(&trackCommands, "commands", false, "print the launch command of each run")
	rootCmd.AddCommand(trackCmd)
}

func runTrack(cmd *cobra.Command, args []string) {
	if !trackAll && len(args) == 0 {
		color.Red("Error: either provide an instance or use --all flag")
		cmd.Help()
		os.Exit(1)
	}

	if trackAll && len(args) > 0 {
		color.Red("Error: cannot use both instance and --all flag together")
		cmd.Help()
		os.Exit(1)
	}

	orch, err := orchestrator.NewOrchestrator(configFile)
	if err != nil {
		color.Red("Failed to initialize orchestrator: %v", err)
		os.Exit(1)
	}
	defer orch.Close()

	db := orch.GetDB()
	if db == nil || !db.IsEnabled() {
		color.Red("Error: Run ledger is not enabled. Please enable it in dreamprep.yaml")
		os.Exit(1)
	}

	instance := ""
	if len(args) > 0 {
		instance = args[0]
	}

	records, err := db.QueryRuns(instance)
	if err != nil {
		color.Red("Failed to query ledger: %v", err)
		os.Exit(1)
	}

	if len(records) == 0 {
		if instance != "" {
			color.Yellow("[INF] Instance %s not found in ledger.", instance)
		} else {
			color.Yellow("[INF] Ledger is empty.")
		}
		return
	}

	printRuns(cmd.OutOrStdout(), records)
	color.Green("\nTotal records: %d", len(records))
}

func printRuns(out io.Writer, records []database.RunRecord) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, color.CyanString("ID\tINSTANCE\tCLASS\tIMAGES\tSTEPS\tCREATED"))
	fmt.Fprintln(w, strings.Repeat("-", 100))

	for _, r := range records {
		images := color.GreenString("%d", r.ImageCount)
		if !r.ImagesValid {
			images = color.YellowString("%d", r.ImageCount)
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			shortID(r.ID),
			r.Instance,
			r.Class,
			images,
			r.MaxTrainSteps,
			r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
		)
	}
	w.Flush()

	if trackCommands {
		for _, r := range records {
			fmt.Fprintln(out)
			fmt.Fprintln(out, color.CyanString("# %s (%s)", r.ID, r.Instance))
			fmt.Fprintln(out, r.Command)
		}
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
