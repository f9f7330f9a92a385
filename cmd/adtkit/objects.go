package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aretw0/adtkit/internal/cli"
	"github.com/aretw0/adtkit/pkg/domain"
	"github.com/spf13/cobra"
)

// objectRef builds the reference named by <kind> <name> and the --group flag.
func objectRef(cmd *cobra.Command, args []string, pkg string) (domain.ObjectRef, error) {
	kind, err := domain.ParseKind(args[0])
	if err != nil {
		return domain.ObjectRef{}, err
	}
	ref := domain.NewObjectRef(kind, args[1], pkg)
	if group, _ := cmd.Flags().GetString("group"); group != "" {
		ref = ref.WithParent(group)
	}
	if err := ref.Validate(); err != nil {
		return domain.ObjectRef{}, err
	}
	return ref, nil
}

// readSource reads --source: a file path, "-" for stdin, or empty.
func readSource(cmd *cobra.Command) (string, error) {
	path, _ := cmd.Flags().GetString("source")
	switch path {
	case "":
		return "", nil
	case "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		return string(data), err
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read source: %w", err)
		}
		return string(data), nil
	}
}

// runOnSession assembles the app and runs op on the --session session, printing its result.
func runOnSession(cmd *cobra.Command, op func(ctx context.Context, app *cli.App, sess *domain.Session) (*domain.Result, error)) error {
	app, err := newApp(cmd, cli.AppOptions{})
	if err != nil {
		return err
	}
	defer app.Close()

	p := newPrinter(cmd)
	var res *domain.Result
	err = app.Sessions.WithSession(cmd.Context(), sessionFlag(cmd), func(ctx context.Context, sess *domain.Session) error {
		var opErr error
		res, opErr = op(ctx, app, sess)
		return opErr
	})
	p.Result(res)
	if err != nil {
		p.Error(err)
		return errReported
	}
	return nil
}

func kindList() string {
	names := make([]string, 0, len(domain.AllKinds))
	for _, k := range domain.AllKinds {
		names = append(names, string(k))
	}
	return strings.Join(names, ", ")
}

var createCmd = &cobra.Command{
	Use:   "create <kind> <name>",
	Short: "Create an object, write its source and activate it",
	Long:  "Create an object, write its source and activate it.\n\nKinds: " + kindList(),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		pkg, _ := cmd.Flags().GetString("package")
		ref, err := objectRef(cmd, args, pkg)
		if err != nil {
			return err
		}
		source, err := readSource(cmd)
		if err != nil {
			return err
		}
		description, _ := cmd.Flags().GetString("description")
		transport, _ := cmd.Flags().GetString("transport")
		responsible, _ := cmd.Flags().GetString("responsible")
		noActivate, _ := cmd.Flags().GetBool("no-activate")
		extra, _ := cmd.Flags().GetStringToString("extra")

		req := domain.CreateRequest{
			Ref:              ref,
			Description:      description,
			Source:           source,
			TransportRequest: transport,
			Responsible:      responsible,
			Extra:            extra,
			Activate:         domain.Bool(!noActivate),
		}
		return runOnSession(cmd, func(ctx context.Context, app *cli.App, sess *domain.Session) (*domain.Result, error) {
			return app.Engine.Create(ctx, sess, req)
		})
	},
}

var updateCmd = &cobra.Command{
	Use:   "update <kind> <name>",
	Short: "Replace the source of an object",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := objectRef(cmd, args, "")
		if err != nil {
			return err
		}
		source, err := readSource(cmd)
		if err != nil {
			return err
		}
		transport, _ := cmd.Flags().GetString("transport")
		activate, _ := cmd.Flags().GetBool("activate")

		req := domain.UpdateRequest{
			Ref:              ref,
			Source:           source,
			TransportRequest: transport,
			Activate:         domain.Bool(activate),
		}
		return runOnSession(cmd, func(ctx context.Context, app *cli.App, sess *domain.Session) (*domain.Result, error) {
			return app.Engine.Update(ctx, sess, req)
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <kind> <name>",
	Short: "Delete an object",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := objectRef(cmd, args, "")
		if err != nil {
			return err
		}
		transport, _ := cmd.Flags().GetString("transport")
		return runOnSession(cmd, func(ctx context.Context, app *cli.App, sess *domain.Session) (*domain.Result, error) {
			return app.Engine.Delete(ctx, sess, ref, transport)
		})
	},
}

var checkCmd = &cobra.Command{
	Use:   "check <kind> <name>",
	Short: "Run the syntax check on an object",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := objectRef(cmd, args, "")
		if err != nil {
			return err
		}
		version, _ := cmd.Flags().GetString("version")
		if version != string(domain.VersionActive) && version != string(domain.VersionInactive) {
			return fmt.Errorf("invalid version %q (want active or inactive)", version)
		}
		var override *string
		if cmd.Flags().Changed("source") {
			source, err := readSource(cmd)
			if err != nil {
				return err
			}
			override = &source
		}
		return runOnSession(cmd, func(ctx context.Context, app *cli.App, sess *domain.Session) (*domain.Result, error) {
			return app.Engine.Check(ctx, sess, ref, domain.Version(version), override)
		})
	},
}

var activateCmd = &cobra.Command{
	Use:   "activate <kind> <name>",
	Short: "Activate an object",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := objectRef(cmd, args, "")
		if err != nil {
			return err
		}
		return runOnSession(cmd, func(ctx context.Context, app *cli.App, sess *domain.Session) (*domain.Result, error) {
			return app.Engine.Activate(ctx, sess, ref)
		})
	},
}

var lockCmd = &cobra.Command{
	Use:   "lock <kind> <name>",
	Short: "Lock an object in the session and print its handle",
	Long: `Lock an object in the session and print its handle.
The lock lives in the persisted session; release it with 'adtkit unlock'.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := objectRef(cmd, args, "")
		if err != nil {
			return err
		}
		app, err := newApp(cmd, cli.AppOptions{})
		if err != nil {
			return err
		}
		defer app.Close()

		p := newPrinter(cmd)
		var handle *domain.LockHandle
		err = app.Sessions.WithSession(cmd.Context(), sessionFlag(cmd), func(ctx context.Context, sess *domain.Session) error {
			var lockErr error
			handle, lockErr = app.Engine.Lock(ctx, sess, ref)
			return lockErr
		})
		if err != nil {
			p.Error(err)
			return errReported
		}
		p.Lock(handle)
		return nil
	},
}

var unlockCmd = &cobra.Command{
	Use:   "unlock <kind> <name> <lock-handle>",
	Short: "Release a lock acquired with 'adtkit lock'",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := objectRef(cmd, args[:2], "")
		if err != nil {
			return err
		}
		token := args[2]
		return runOnSession(cmd, func(ctx context.Context, app *cli.App, sess *domain.Session) (*domain.Result, error) {
			return app.Engine.Unlock(ctx, sess, ref, token)
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{createCmd, updateCmd, deleteCmd, checkCmd, activateCmd, lockCmd, unlockCmd} {
		c.Flags().String("group", "", "Owning function group (function modules only)")
		rootCmd.AddCommand(c)
	}

	createCmd.Flags().String("package", "", "Package of the new object")
	createCmd.Flags().String("description", "", "Short description")
	createCmd.Flags().String("source", "", "Source file to write ('-' for stdin)")
	createCmd.Flags().String("transport", "", "Transport request")
	createCmd.Flags().String("responsible", "", "Responsible user")
	createCmd.Flags().Bool("no-activate", false, "Leave the new object inactive")
	createCmd.Flags().StringToString("extra", nil, "Kind-specific metadata (key=value)")
	_ = createCmd.MarkFlagRequired("package")
	_ = createCmd.MarkFlagRequired("description")

	updateCmd.Flags().String("source", "", "Source file to write ('-' for stdin)")
	updateCmd.Flags().String("transport", "", "Transport request")
	updateCmd.Flags().Bool("activate", false, "Activate after writing the source")
	_ = updateCmd.MarkFlagRequired("source")

	deleteCmd.Flags().String("transport", "", "Transport request")

	checkCmd.Flags().String("version", string(domain.VersionInactive), "Version to check: active or inactive")
	checkCmd.Flags().String("source", "", "Check this source instead of the stored one ('-' for stdin)")
}
