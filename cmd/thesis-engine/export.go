// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/thesis-engine/internal/assemble"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Convert a generated Markdown document to HTML",
	RunE:  runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	inPath, _ := cmd.Flags().GetString("in")
	outPath, _ := cmd.Flags().GetString("out")

	data, err := os.ReadFile(inPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", inPath, err)
	}
	markdown := string(data)

	title, _ := cmd.Flags().GetString("title")
	if title == "" {
		title = firstHeading(markdown)
	}

	html, err := assemble.ExportHTML(markdown, title)
	if err != nil {
		return err
	}

	if outPath == "" {
		outPath = strings.TrimSuffix(inPath, ".md") + ".html"
	}
	if err := os.WriteFile(outPath, []byte(html), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", outPath, err)
	}
	fmt.Fprintf(os.Stderr, "wrote %s\n", outPath)
	return nil
}

// firstHeading returns the first level-one heading's text, or a fallback.
func firstHeading(markdown string) string {
	for _, line := range strings.Split(markdown, "\n") {
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}
	}
	return "Document"
}

func init() {
	exportCmd.Flags().String("in", "", "input Markdown file (required)")
	exportCmd.Flags().String("out", "", "output HTML file (default: input with .html)")
	exportCmd.Flags().String("title", "", "HTML page title (default: first heading)")
	exportCmd.MarkFlagRequired("in")

	rootCmd.AddCommand(exportCmd)
}
