package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/aretw0/adtkit"
	"github.com/aretw0/adtkit/internal/cli"
	"github.com/aretw0/adtkit/internal/config"
	"github.com/aretw0/adtkit/internal/presentation/tui"
	"github.com/spf13/cobra"
)

// errReported marks a failure that was already printed.
var errReported = errors.New("failure already reported")

var rootCmd = &cobra.Command{
	Use:   "adtkit",
	Short: "adtkit edits ABAP repository objects transactionally over ADT",
	Long: `adtkit runs create, update, delete, check, activate, lock and unlock on ABAP
repository objects through the ADT REST API, keeping locks and activation
consistent across each edit transaction.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", config.DefaultPath, "Configuration file (YAML or JSON)")
	rootCmd.PersistentFlags().Bool("debug", false, "Log phases and ADT primitives to stderr")
	rootCmd.PersistentFlags().Bool("json", false, "Print results as JSON")
	rootCmd.PersistentFlags().String("session", "cli", "ADT session to run on")
	rootCmd.PersistentFlags().Bool("trace", false, "Print the phase trace of each transaction")
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, fmt.Errorf("error loading config: %w", err)
	}
	return cfg, nil
}

// newApp loads the configuration and assembles the application for a command.
func newApp(cmd *cobra.Command, opts cli.AppOptions) (*cli.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	opts.Debug, _ = cmd.Flags().GetBool("debug")
	return cli.NewApp(cfg, opts)
}

func newPrinter(cmd *cobra.Command) *cli.Printer {
	jsonMode, _ := cmd.Flags().GetBool("json")
	trace, _ := cmd.Flags().GetBool("trace")
	rich := !jsonMode && tui.IsTerminal(os.Stdout)
	return cli.NewPrinter(cmd.OutOrStdout(), jsonMode, rich, trace)
}

func sessionFlag(cmd *cobra.Command) string {
	id, _ := cmd.Flags().GetString("session")
	return id
}

func printBanner(cmd *cobra.Command) {
	if tui.IsTerminal(os.Stderr) {
		tui.PrintBanner(cmd.ErrOrStderr(), adtkit.Version)
	}
}
