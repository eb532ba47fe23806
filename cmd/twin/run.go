package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/snappy-loop/shadowtwin/internal/models"
)

var runProgress bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Generate a timeline, posts, comparison and narration",
	Long: `Runs one simulation and prints the result as JSON.
Stages that fail fall back to generated placeholders; the errors list says why.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	addInputFlags(runCmd)
	runCmd.Flags().BoolVar(&runProgress, "progress", false, "print stage events to stderr")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	in, err := loadInput()
	if err != nil {
		return err
	}
	r, err := getRunner(cmd.Context())
	if err != nil {
		return err
	}

	var progress func(models.StageEvent)
	if runProgress {
		progress = func(e models.StageEvent) {
			fmt.Fprintf(cmd.ErrOrStderr(), "%-10s %s %s\n", e.Stage, e.Status, e.Message)
		}
	}
	return printJSON(cmd, r.RunWithProgress(cmd.Context(), in, progress))
}
