package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/samogod/dreamprep/pkg/concept"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	conceptsInstance string
	conceptsClass    string
	conceptsBaseDir  string
	conceptsOut      string
	conceptsMkdirs   bool
)

var conceptsCmd = &cobra.Command{
	Use:   "concepts",
	Short: "Create and check concepts list files",
}

var conceptsCreateCmd = &cobra.Command{
	Use:     "create",
	Short:   "Write a concepts list for one subject",
	Example: `  dreamprep concepts create -i nitsuah -k man --out concepts_list.json --mkdirs`,
	Run:     runConceptsCreate,
}

var conceptsCheckCmd = &cobra.Command{
	Use:   "check <file>",
	Short: "Check that every record of a concepts list has the required fields",
	Args:  cobra.ExactArgs(1),
	Run:   runConceptsCheck,
}

func init() {
	conceptsCreateCmd.Flags().StringVarP(&conceptsInstance, "instance", "i", "", "unique instance token of the subject")
	conceptsCreateCmd.Flags().StringVarP(&conceptsClass, "class", "k", "", "class of the subject")
	conceptsCreateCmd.Flags().StringVar(&conceptsBaseDir, "base-dir", "", "base data directory (default from config)")
	conceptsCreateCmd.Flags().StringVar(&conceptsOut, "out", "", "file to write (default from config, '-' for stdout)")
	conceptsCreateCmd.Flags().BoolVar(&conceptsMkdirs, "mkdirs", false, "also create the instance data directories")

	conceptsCmd.AddCommand(conceptsCreateCmd)
	conceptsCmd.AddCommand(conceptsCheckCmd)
	rootCmd.AddCommand(conceptsCmd)
}

func runConceptsCreate(cmd *cobra.Command, args []string) {
	if conceptsInstance == "" || conceptsClass == "" {
		color.Red("Error: both -i (instance) and -k (class) are required")
		cmd.Help()
		os.Exit(1)
	}

	cfg := loadConfig()

	baseDir := conceptsBaseDir
	if baseDir == "" {
		baseDir = cfg.Data.BaseDir
	}
	concepts := concept.NewConceptsList(conceptsInstance, conceptsClass, baseDir)

	out := conceptsOut
	if out == "" {
		out = cfg.Data.ConceptsFile
	}

	if out == "-" {
		data, err := concept.Marshal(concepts, "concepts.json")
		if err != nil {
			color.Red("Failed to encode concepts: %v", err)
			os.Exit(1)
		}
		fmt.Fprint(cmd.OutOrStdout(), string(data))
	} else {
		if err := concept.Save(concepts, out); err != nil {
			color.Red("Failed to save concepts: %v", err)
			os.Exit(1)
		}
		if !silent {
			color.Green("Concepts list written to %s", out)
		}
	}

	if conceptsMkdirs {
		if err := concept.ProvisionDirectories(concepts); err != nil {
			color.Red("Failed to create directories: %v", err)
			os.Exit(1)
		}
		if !silent {
			for _, c := range concepts {
				color.Green("Instance directory ready: %s", c.InstanceDataDir)
			}
		}
	}
}

func runConceptsCheck(cmd *cobra.Command, args []string) {
	records, err := concept.LoadRaw(args[0])
	if err != nil {
		color.Red("Failed to load concepts: %v", err)
		os.Exit(1)
	}

	if len(records) == 0 {
		color.Yellow("[WARN] %s contains no concepts", args[0])
		os.Exit(1)
	}

	invalid := 0
	for i, record := range records {
		if concept.ValidateStructure(record) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s concept %d\n", color.GreenString("[OK]"), i)
			continue
		}

		invalid++
		missing := concept.MissingFields(record)
		fmt.Fprintf(cmd.OutOrStdout(), "%s concept %d: missing %s\n",
			color.RedString("[ERR]"), i, strings.Join(missing, ", "))
	}

	if invalid > 0 {
		os.Exit(1)
	}
}
