// Command slicer validates and renders planning artifacts.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"slicer/internal/config"
	"slicer/internal/ui"
)

// Exit codes. Validation failures and IO failures are distinct so scripts
// can tell a broken artifact from a missing one.
const (
	exitOK      = 0
	exitInvalid = 1
	exitIOError = 2
)

var rootCmd = &cobra.Command{
	Use:   "slicer",
	Short: "Validate and render planning artifacts",
	Long: `slicer checks planning artifacts (slice maps and issue bundles) against
their built-in schemas and renders them as Markdown.

Artifacts are plain JSON files. A slice map is an ordered list of story
outlines for a feature; an issue bundle is a backlog of epics, user
stories, tasks, and bugs. Validation reports every defect in one pass,
in document order, so an artifact can be fixed without re-running.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
			ui.SetColorEnabled(false)
		}
	},
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "validation", Title: "Validation Commands:"},
		&cobra.Group{ID: "advanced", Title: "Advanced Commands:"},
	)

	rootCmd.PersistentFlags().String("config", "", "path to project config (default: ./"+config.DefaultFileName+")")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored output")
}

// loadProjectConfig resolves the project configuration for a command: the
// --config flag if given, otherwise .slicer.yml in the working directory,
// otherwise built-in defaults.
func loadProjectConfig(cmd *cobra.Command) (*config.Config, error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return config.Load(path)
	}
	return config.LoadOrDefault(".")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitIOError)
	}
}
