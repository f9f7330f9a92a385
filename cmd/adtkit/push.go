package main

import (
	"fmt"

	"github.com/aretw0/adtkit/internal/cli"
	"github.com/aretw0/adtkit/pkg/adapters/loam"
	"github.com/aretw0/adtkit/pkg/domain"
	"github.com/spf13/cobra"
)

var pushCmd = &cobra.Command{
	Use:   "push [dir]",
	Short: "Write the source documents of a directory to the system",
	Long: `Reads every Markdown, JSON or YAML document with a 'kind' in its front matter
and updates (or, with --create, creates) the object it describes.
The source is the first fenced code block of the document, or its whole body.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd, cli.AppOptions{})
		if err != nil {
			return err
		}
		defer app.Close()

		dir := app.Config.Docs.Path
		if len(args) > 0 {
			dir = args[0]
		}
		src, err := loam.Open(dir)
		if err != nil {
			return err
		}

		create, _ := cmd.Flags().GetBool("create")
		watch, _ := cmd.Flags().GetBool("watch")
		opts := cli.PushOptions{SessionID: sessionFlag(cmd), Create: create}
		if cmd.Flags().Changed("activate") {
			activate, _ := cmd.Flags().GetBool("activate")
			opts.ActivateAll = domain.Bool(activate)
		}

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		docs, err := src.List(ctx)
		if err != nil {
			return err
		}
		if len(docs) == 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "No object documents found in %s\n", dir)
		}

		p := newPrinter(cmd)
		if err := cli.PushDocuments(ctx, app, docs, opts, p); err != nil {
			if !watch {
				return err
			}
			app.Logger.Warn("initial push incomplete", "err", err)
		}
		if !watch {
			return nil
		}
		printBanner(cmd)
		return cli.WatchPush(ctx, app, src, opts, p, cmd.ErrOrStderr())
	},
}

func init() {
	rootCmd.AddCommand(pushCmd)
	pushCmd.Flags().Bool("create", false, "Create the objects instead of updating them")
	pushCmd.Flags().Bool("activate", false, "Override the activate flag of every document")
	pushCmd.Flags().Bool("watch", false, "Keep running and push documents again when they change")
}
