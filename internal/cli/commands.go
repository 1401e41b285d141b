package cli

import (
	"github.com/spf13/cobra"

	"github.com/alimgiray/ghmirror/internal/models"
)

func newTrackCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "track owner/name",
		Short: "Start tracking a repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, name, err := models.ParseFullName(args[0])
			if err != nil {
				return err
			}
			enterprise, _ := cmd.Flags().GetBool("enterprise")

			target, _, err := rt.app.Targets.Track(cmd.Context(), owner, name, enterprise)
			if err != nil {
				return err
			}
			return printJSON(cmd, target)
		},
	}
	cmd.Flags().Bool("enterprise", false, "Read the repository from the configured enterprise host")
	return cmd
}

func newSeedCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "seed-contributors owner/name",
		Short: "Backfill every listed contributor of a tracked repository",
		Long: `Lists the repository's contributors and backfills each one that has no
activity record yet. Bot accounts are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, name, err := models.ParseFullName(args[0])
			if err != nil {
				return err
			}
			result, err := rt.app.Targets.SeedContributors(cmd.Context(), owner, name)
			if result != nil {
				if printErr := printJSON(cmd, result); printErr != nil {
					return printErr
				}
			}
			return err
		},
	}
}

func newSyncCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "sync [owner/name]",
		Short: "Run one sync cycle for a repository, or for every tracked repository",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				result, err := rt.app.Scheduler.Sweep(cmd.Context())
				if result != nil {
					if printErr := printJSON(cmd, result); printErr != nil {
						return printErr
					}
				}
				return err
			}

			owner, name, err := models.ParseFullName(args[0])
			if err != nil {
				return err
			}
			run, err := rt.app.Scheduler.SyncOne(cmd.Context(), owner, name)
			if run != nil {
				if printErr := printJSON(cmd, run); printErr != nil {
					return printErr
				}
			}
			return err
		},
	}
}

func newTargetsCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "targets",
		Short: "List tracked repositories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			targets, err := rt.app.Targets.List()
			if err != nil {
				return err
			}
			return printJSON(cmd, targets)
		},
	}
}
