// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/pdiddy/thesis-engine/internal/research"
)

var researchCmd = &cobra.Command{
	Use:   "research",
	Short: "Aggregate and print the research corpus for a topic",
	Long: `Research runs the aggregation stage on its own: one query for the topic
and one per focus area against arXiv and OpenAlex, with filtering and
deduplication. Useful for checking source coverage before a full run.`,
	RunE: runResearch,
}

func runResearch(cmd *cobra.Command, args []string) error {
	topic, _ := cmd.Flags().GetString("topic")
	if strings.TrimSpace(topic) == "" {
		return fmt.Errorf("topic is required")
	}
	focus, _ := cmd.Flags().GetString("focus")
	var focusAreas []string
	for _, f := range strings.Split(focus, ",") {
		if f = strings.TrimSpace(f); f != "" {
			focusAreas = append(focusAreas, f)
		}
	}

	cfg := pipelineConfig(cmd)

	var backends []research.Backend
	if cfg.Research.EnableArxiv {
		backends = append(backends, &research.ArxivBackend{})
	}
	if cfg.Research.EnableOpenAlex {
		backends = append(backends, &research.OpenAlexBackend{Email: cfg.Research.OpenAlexEmail})
	}

	agg := &research.Aggregator{Backends: backends}
	if cfg.Research.RatePerSecond > 0 {
		agg.Limiter = rate.NewLimiter(rate.Limit(cfg.Research.RatePerSecond), 1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	corpus, err := agg.Aggregate(ctx, strings.TrimSpace(topic), focusAreas, cfg.Research, os.Stderr)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(corpus)
	}
	research.FormatTable(corpus, os.Stdout)
	return nil
}

func init() {
	researchCmd.Flags().String("topic", "", "research topic (required)")
	researchCmd.Flags().String("focus", "", "additional focus area queries (comma-separated)")
	researchCmd.Flags().Bool("json", false, "output the corpus as JSON")
	researchCmd.MarkFlagRequired("topic")

	rootCmd.AddCommand(researchCmd)
}
