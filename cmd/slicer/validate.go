package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"slicer/internal/artifact"
	"slicer/internal/schema"
	"slicer/internal/store"
	"slicer/internal/ui"
)

var validateCmd = &cobra.Command{
	Use:     "validate <artifact.json> [more...]",
	GroupID: "validation",
	Short:   "Validate planning artifacts against their schemas",
	Long: `Validate one or more artifact files against their schemas.

The schema is picked per file from the project config rules (or the
--schema flag, which applies to every file). All defects are reported in
one pass, ordered by document position. A valid artifact produces no
output; pass --verbose to print a PASS line per file.

Exit codes:
  0  all artifacts valid
  1  at least one artifact has violations (or warnings, with --strict)
  2  a file could not be read or parsed, or the schema name is unknown

Example usage:
  slicer validate artifacts/acme-slice-map.json
  slicer validate --schema issue-bundle backlog.json
  slicer validate --strict artifacts/*.json`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		schemaFlag, _ := cmd.Flags().GetString("schema")
		strict, _ := cmd.Flags().GetBool("strict")
		quiet, _ := cmd.Flags().GetBool("quiet")
		verbose, _ := cmd.Flags().GetBool("verbose")
		noHistory, _ := cmd.Flags().GetBool("no-history")

		cfg, err := loadProjectConfig(cmd)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(exitIOError)
		}
		if cfg.Strict {
			strict = true
		}

		var history *store.Store
		if !noHistory {
			history, err = store.Open(cfg.HistoryDB)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: history disabled: %v\n", err)
			} else {
				defer history.Close()
			}
		}

		exitCode := exitOK
		for _, path := range args {
			schemaName := schemaFlag
			if schemaName == "" {
				schemaName = cfg.SchemaFor(path)
			}

			doc, err := artifact.ReadDocumentFile(path)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s %s: %v\n", ui.RenderFail("✗"), path, err)
				exitCode = exitIOError
				continue
			}

			res, err := schema.Validate(doc, schemaName)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s %s: %v\n", ui.RenderFail("✗"), path, err)
				exitCode = exitIOError
				continue
			}

			if history != nil {
				if _, err := history.RecordRun(path, schemaName, res); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to record run: %v\n", err)
				}
			}

			if shouldReport(res, strict, verbose) {
				printResult(path, schemaName, res, quiet)
			}

			if !res.Valid || (strict && len(res.Warnings) > 0) {
				if exitCode < exitInvalid {
					exitCode = exitInvalid
				}
			}
		}

		os.Exit(exitCode)
	},
}

// shouldReport decides whether validate prints anything for a result.
// A valid artifact is silent unless --verbose, except when --strict turns
// its warnings into a failure that needs explaining.
func shouldReport(res *schema.Result, strict, verbose bool) bool {
	if verbose || !res.Valid {
		return true
	}
	return strict && len(res.Warnings) > 0
}

// printResult prints one validation outcome: a status line, then the
// violations and warnings unless quiet is set.
func printResult(path, schemaName string, res *schema.Result, quiet bool) {
	reportResult(os.Stdout, path, schemaName, res, quiet)
}

func reportResult(out io.Writer, path, schemaName string, res *schema.Result, quiet bool) {
	if res.Valid {
		fmt.Fprintf(out, "%s %s: PASS (%s)\n", ui.RenderPass("✓"), path, schemaName)
	} else {
		fmt.Fprintf(out, "%s %s: FAIL (%s, %d violations)\n",
			ui.RenderFail("✗"), path, schemaName, len(res.Violations))
	}
	if quiet {
		return
	}

	for _, v := range res.Violations {
		fmt.Fprintf(out, "   %s %s: %s: %s\n", ui.RenderFail("•"), v.Path, ui.RenderAccent(string(v.Kind)), v.Message)
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(out, "   %s %s: %s\n", ui.RenderWarn("⚠"), w.Path, w.Message)
	}
}

func init() {
	validateCmd.Flags().StringP("schema", "s", "", "schema to validate against (overrides config rules)")
	validateCmd.Flags().Bool("strict", false, "treat warnings as failures")
	validateCmd.Flags().BoolP("quiet", "q", false, "print status lines only")
	validateCmd.Flags().BoolP("verbose", "v", false, "print a PASS line for valid artifacts")
	validateCmd.Flags().Bool("no-history", false, "skip recording results in the history database")

	rootCmd.AddCommand(validateCmd)
}
