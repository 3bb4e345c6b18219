// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/thesis-engine/internal/outline"
)

var outlineCmd = &cobra.Command{
	Use:   "outline",
	Short: "Preview the planned section structure and word budgets",
	Long: `Outline prints the sections a document type gets at the requested level
and how the target word count is divided among them, without running
research or generation.`,
	RunE: runOutline,
}

func runOutline(cmd *cobra.Command, args []string) error {
	req, err := requestFromFlags(cmd)
	if err != nil {
		return err
	}
	cfg := pipelineConfig(cmd)

	plan, err := outline.Plan(req, cfg.Outline)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(plan)
	}

	fmt.Printf("%-24s  %-22s  %s\n", "ID", "Title", "Budget")
	for _, node := range plan.Nodes {
		fmt.Printf("%-24s  %-22s  %6d\n", node.ID, node.Title, node.WordBudget)
	}
	fmt.Printf("%-24s  %-22s  %6d\n", "", "total", plan.TotalBudget())
	return nil
}

func init() {
	addRequestFlags(outlineCmd)
	outlineCmd.Flags().Bool("json", false, "output the outline as JSON")
	outlineCmd.MarkFlagRequired("topic")

	rootCmd.AddCommand(outlineCmd)
}
