// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pdiddy/thesis-engine/internal/store"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect recorded generation runs",
	Long: `Audit reads the SQLite database written by generate --audit-db. Use list
to see recorded runs and show to print a run's document.`,
}

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openAuditStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		runs, err := st.Runs(context.Background())
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No runs recorded.")
			return nil
		}

		fmt.Printf("%-5s  %-40s  %-18s  %7s  %7s  %s\n", "ID", "Topic", "Type", "Target", "Words", "Generated")
		for _, r := range runs {
			topic := r.Topic
			if len(topic) > 40 {
				topic = topic[:37] + "..."
			}
			fmt.Printf("%-5d  %-40s  %-18s  %7d  %7d  %s\n",
				r.ID, topic, r.DocumentType, r.TargetWords, r.WordCount, r.Generated.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

var auditShowCmd = &cobra.Command{
	Use:   "show [run-id]",
	Short: "Print the Markdown document recorded for a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid run id %q", args[0])
		}

		st, err := openAuditStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		doc, err := st.Document(context.Background(), runID)
		if err != nil {
			return err
		}
		fmt.Println(doc.Markdown)
		return nil
	},
}

func openAuditStore(cmd *cobra.Command) (*store.Store, error) {
	dbPath, _ := cmd.Flags().GetString("db")
	return store.Open(dbPath)
}

func init() {
	auditCmd.PersistentFlags().String("db", "thesis-engine.db", "audit database file")
	auditCmd.AddCommand(auditListCmd)
	auditCmd.AddCommand(auditShowCmd)

	rootCmd.AddCommand(auditCmd)
}
