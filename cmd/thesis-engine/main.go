// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the thesis-engine CLI.
// Implements: prd001-pipeline, prd002-research, prd003-outline,
//             prd006-assembly (CLI surface).
// See docs/ARCHITECTURE § Pipeline Interface, § Project Structure.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/thesis-engine/internal/secrets"
	"github.com/pdiddy/thesis-engine/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets secrets.Secrets

// rootCmd is the base command for the thesis-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "thesis-engine",
	Short: "Academic document generation pipeline",
	Long: `thesis-engine generates structured academic documents: theses, synopses,
dissertations, research papers, literature reviews, and proposals. It plans
an outline, aggregates research from scholarly APIs, drafts and refines each
section, and assembles the result with citations and a bibliography.

Each stage is reachable on its own: outline previews the section plan,
research prints the aggregated corpus, generate runs the full pipeline, and
export converts finished Markdown to HTML.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./thesis-engine.yaml or ~/.config/thesis-engine/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("thesis-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "thesis-engine"))
		}
	}

	viper.SetEnvPrefix("THESIS_ENGINE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// pipelineConfig builds the run configuration: tuned defaults, overridden
// by config file keys, overridden by flags where set.
func pipelineConfig(cmd *cobra.Command) types.PipelineConfig {
	cfg := types.DefaultConfig()

	if viper.IsSet("model") {
		cfg.Draft.Model = viper.GetString("model")
	}
	if viper.IsSet("base_url") {
		cfg.Draft.BaseURL = viper.GetString("base_url")
	}
	if viper.IsSet("workers") {
		cfg.Workers = viper.GetInt("workers")
	}
	if viper.IsSet("research.rate_per_second") {
		cfg.Research.RatePerSecond = viper.GetFloat64("research.rate_per_second")
	}
	if viper.IsSet("draft.rate_per_second") {
		cfg.Draft.RatePerSecond = viper.GetFloat64("draft.rate_per_second")
	}
	if viper.IsSet("refine.accept_threshold") {
		cfg.Refine.AcceptThreshold = viper.GetFloat64("refine.accept_threshold")
	}
	if viper.IsSet("refine.max_attempts") {
		cfg.Refine.MaxAttempts = viper.GetInt("refine.max_attempts")
	}

	if cmd.Flags().Changed("model") {
		cfg.Draft.Model, _ = cmd.Flags().GetString("model")
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers, _ = cmd.Flags().GetInt("workers")
	}

	cfg.Draft.APIKey = loadedSecrets.Resolve(secrets.KeyGroqAPI, "GROQ_API_KEY")
	if cfg.Draft.APIKey == "" {
		// Fall back to an OpenAI key; unless overridden, retarget the
		// endpoint and model to match.
		if key := loadedSecrets.Resolve(secrets.KeyOpenAIAPI, "OPENAI_API_KEY"); key != "" {
			cfg.Draft.APIKey = key
			if !viper.IsSet("base_url") {
				cfg.Draft.BaseURL = ""
			}
			if !viper.IsSet("model") && !cmd.Flags().Changed("model") {
				cfg.Draft.Model = "gpt-4o-mini"
			}
		}
	}
	cfg.Research.OpenAlexEmail = loadedSecrets.Resolve(secrets.KeyOpenAlexEmail, "")
	if cfg.Research.OpenAlexEmail == "" {
		cfg.Research.OpenAlexEmail = viper.GetString("openalex_email")
	}

	return cfg
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
