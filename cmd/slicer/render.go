package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"slicer/internal/artifact"
	"slicer/internal/render"
	"slicer/internal/schema"
	"slicer/internal/ui"
)

var renderCmd = &cobra.Command{
	Use:     "render <artifact.json>",
	GroupID: "validation",
	Short:   "Render a validated artifact as Markdown",
	Long: `Render an artifact file as a Markdown document.

The artifact is validated first; rendering refuses invalid input so the
projection never has to guess at missing fields. Output goes to stdout
unless --out is given.

Example usage:
  slicer render artifacts/acme-slice-map.json
  slicer render --out BACKLOG.md --embed-json backlog.json`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		schemaFlag, _ := cmd.Flags().GetString("schema")
		out, _ := cmd.Flags().GetString("out")
		embedJSON, _ := cmd.Flags().GetBool("embed-json")

		cfg, err := loadProjectConfig(cmd)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(exitIOError)
		}

		path := args[0]
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to read artifact: %v\n", err)
			os.Exit(exitIOError)
		}

		doc, err := artifact.ParseDocument(data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to parse %s: %v\n", path, err)
			os.Exit(exitIOError)
		}

		schemaName := schemaFlag
		if schemaName == "" {
			schemaName = cfg.SchemaFor(path)
		}

		res, err := schema.Validate(doc, schemaName)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(exitIOError)
		}
		if !res.Valid {
			fmt.Fprintf(os.Stderr, "%s %s: cannot render an invalid artifact\n", ui.RenderFail("✗"), path)
			printResult(path, schemaName, res, false)
			os.Exit(exitInvalid)
		}

		var markdown string
		switch schemaName {
		case "slice-map":
			sm, err := artifact.DecodeSliceMap(data)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(exitIOError)
			}
			markdown = render.SliceMap(sm)
		case "issue-bundle":
			ib, err := artifact.DecodeIssueBundle(data)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(exitIOError)
			}
			markdown = render.IssueBundle(ib, render.BundleOptions{EmbedJSON: embedJSON, Raw: data})
		default:
			fmt.Fprintf(os.Stderr, "Error: no renderer for schema %q\n", schemaName)
			os.Exit(exitIOError)
		}

		if out == "" {
			fmt.Print(markdown)
			return
		}
		if err := writeFileAtomic(out, []byte(markdown)); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(exitIOError)
		}
		fmt.Printf("%s Rendered %s -> %s\n", ui.RenderPass("✓"), path, out)
	},
}

// writeFileAtomic writes via a temp file and rename so a crash mid-write
// never leaves a truncated document behind.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to move output into place: %w", err)
	}
	return nil
}

func init() {
	renderCmd.Flags().StringP("schema", "s", "", "schema to validate against (overrides config rules)")
	renderCmd.Flags().StringP("out", "o", "", "write Markdown to a file instead of stdout")
	renderCmd.Flags().Bool("embed-json", false, "append the artifact JSON to the document (issue bundles)")

	rootCmd.AddCommand(renderCmd)
}
