package main

import (
	"errors"
	"fmt"

	"github.com/aretw0/adtkit/pkg/adapters/sqlite"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Show recent edit transactions",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.Journal.Path == "" {
			return errors.New("journal is disabled (journal.path is empty)")
		}
		limit, _ := cmd.Flags().GetInt("limit")

		journal, err := sqlite.Open(cfg.Journal.Path)
		if err != nil {
			return err
		}
		defer journal.Close()

		entries, err := journal.Recent(cmd.Context(), limit)
		if err != nil {
			return err
		}
		if jsonMode, _ := cmd.Flags().GetBool("json"); jsonMode {
			newPrinter(cmd).Value(entries)
			return nil
		}
		if len(entries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No transactions recorded.")
			return nil
		}
		for _, e := range entries {
			status := color.GreenString("ok")
			if !e.Success {
				status = color.RedString("%s", e.ErrorKind)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %-8s %-10s %-40s %s\n",
				e.CreatedAt.Local().Format("2006-01-02 15:04:05"), e.SessionID, e.Operation, e.Ref, status)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.Flags().Int("limit", 20, "Number of entries to show")
}
