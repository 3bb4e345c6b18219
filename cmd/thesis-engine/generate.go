// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/thesis-engine/internal/pipeline"
	"github.com/pdiddy/thesis-engine/internal/store"
	"github.com/pdiddy/thesis-engine/pkg/types"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Run the full pipeline and produce a document",
	Long: `Generate plans an outline, aggregates research, drafts and refines every
section, resolves citations, and writes the assembled Markdown document.

The generation API key is read from .secrets/groq-api-key (or
.secrets/openai-api-key), the GROQ_API_KEY / OPENAI_API_KEY environment
variables, or the config file.`,
	RunE: runGenerate,
}

func runGenerate(cmd *cobra.Command, args []string) error {
	req, err := requestFromFlags(cmd)
	if err != nil {
		return err
	}
	cfg := pipelineConfig(cmd)

	engine, err := pipeline.New(cfg)
	if err != nil {
		return err
	}

	if dbPath, _ := cmd.Flags().GetString("audit-db"); dbPath != "" {
		st, err := store.Open(dbPath)
		if err != nil {
			return err
		}
		defer st.Close()
		engine.Auditor = st
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	doc, err := engine.Generate(ctx, req, cfg, os.Stderr)
	if err != nil {
		return err
	}

	outPath, _ := cmd.Flags().GetString("out")
	if outPath == "" {
		fmt.Println(doc.Markdown)
		return nil
	}
	if err := os.WriteFile(outPath, []byte(doc.Markdown), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", outPath, err)
	}
	fmt.Fprintf(os.Stderr, "wrote %s (%d words)\n", outPath, doc.WordCount)
	return nil
}

// requestFromFlags builds and validates the generation request shared by
// the generate and outline commands.
func requestFromFlags(cmd *cobra.Command) (types.GenerationRequest, error) {
	topic, _ := cmd.Flags().GetString("topic")
	docType, _ := cmd.Flags().GetString("type")
	level, _ := cmd.Flags().GetString("level")
	words, _ := cmd.Flags().GetInt("words")
	focus, _ := cmd.Flags().GetString("focus")
	style, _ := cmd.Flags().GetString("style")

	var focusAreas []string
	for _, f := range strings.Split(focus, ",") {
		if f = strings.TrimSpace(f); f != "" {
			focusAreas = append(focusAreas, f)
		}
	}

	req := types.GenerationRequest{
		Topic:         strings.TrimSpace(topic),
		DocumentType:  types.DocumentType(docType),
		AcademicLevel: types.AcademicLevel(level),
		TargetWords:   words,
		FocusAreas:    focusAreas,
		Style:         types.CitationStyle(style),
	}
	if err := req.Validate(); err != nil {
		return types.GenerationRequest{}, err
	}
	return req, nil
}

func addRequestFlags(cmd *cobra.Command) {
	cmd.Flags().String("topic", "", "document topic (required)")
	cmd.Flags().String("type", "thesis", "document type: thesis, synopsis, dissertation, research-paper, literature-review, research-proposal")
	cmd.Flags().String("level", "masters", "academic level: undergraduate, masters, phd")
	cmd.Flags().Int("words", 8000, "target word count")
	cmd.Flags().String("focus", "", "research focus areas (comma-separated)")
	cmd.Flags().String("style", "apa", "citation style: apa, mla, chicago")
}

func init() {
	addRequestFlags(generateCmd)
	generateCmd.Flags().String("out", "", "output Markdown file (default: stdout)")
	generateCmd.Flags().String("audit-db", "", "SQLite file to record the run in")
	generateCmd.Flags().String("model", "", "generation model override")
	generateCmd.Flags().Int("workers", 0, "concurrent section workers override")
	generateCmd.MarkFlagRequired("topic")

	rootCmd.AddCommand(generateCmd)
}
