// Package cli contains the ghmirrorctl admin commands, built using the Cobra library.
package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/alimgiray/ghmirror/internal/app"
	"github.com/alimgiray/ghmirror/pkg/config"
	"github.com/alimgiray/ghmirror/pkg/database"
	"github.com/alimgiray/ghmirror/pkg/logger"
)

// runtime is what every command needs once the root command has set up
type runtime struct {
	db  *sql.DB
	app *app.App
}

// newRootCmd builds the command tree. The commands share rt.
func newRootCmd(rt *runtime) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ghmirrorctl",
		Short: "Administer the GitHub activity mirror",
		Long: `ghmirrorctl manages the repositories whose activity is mirrored:
track new repositories, seed their known contributors, and run sync cycles.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Load(); err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			cfg := config.AppConfig

			level := "warn"
			if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
				level = "debug"
			}
			logger.Configure(logger.Options{Level: level, File: cfg.Log.File, Output: cmd.ErrOrStderr()})

			db, err := database.Open(cfg.Database.Path)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			a, err := app.New(cfg, db)
			if err != nil {
				db.Close()
				return err
			}
			rt.db, rt.app = db, a
			return nil
		},
	}

	// Add a persistent flag for verbose output, available to all commands.
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose/debug logging")

	rootCmd.AddCommand(
		newTrackCmd(rt),
		newSeedCmd(rt),
		newSyncCmd(rt),
		newTargetsCmd(rt),
	)
	return rootCmd
}

func (rt *runtime) close() error {
	if rt.db == nil {
		return nil
	}
	err := rt.db.Close()
	rt.db = nil
	return err
}

// Run executes the command line args and releases the database afterwards
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	rt := &runtime{}
	defer rt.close()

	rootCmd := newRootCmd(rt)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	return rootCmd.ExecuteContext(ctx)
}

// Execute runs the process arguments until they finish or the process is interrupted
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// printJSON writes v to the command's output as indented JSON
func printJSON(cmd *cobra.Command, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}
