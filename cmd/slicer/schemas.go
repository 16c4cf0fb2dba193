package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"slicer/internal/schema"
	"slicer/internal/ui"
)

var schemaDescriptions = map[string]string{
	"slice-map":    "Ordered list of story outlines for a feature",
	"issue-bundle": "Backlog of epics, user stories, tasks, and bugs",
}

var schemasCmd = &cobra.Command{
	Use:     "schemas",
	GroupID: "validation",
	Short:   "List the built-in artifact schemas",
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range schema.Names() {
			desc := schemaDescriptions[name]
			fmt.Printf("%s  %s\n", ui.RenderAccent(fmt.Sprintf("%-14s", name)), desc)
		}
	},
}

func init() {
	rootCmd.AddCommand(schemasCmd)
}
