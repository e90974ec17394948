package cmd

import (
	"github.com/spf13/cobra"

	"github.com/crewmesh-systems/crewmesh/pkg/output"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Replay queued events to the mission service",
	Long: `Deliver pending events in clock order. Events the service accepts
(or already has) are marked delivered; definitive rejections are marked
failed and reported; anything the service could not be reached for
stays pending for the next attempt.`,
	Example: `  crewmesh sync
  crewmesh sync --retry-failed`,
	RunE: func(cmd *cobra.Command, args []string) error {
		missionID, err := mission()
		if err != nil {
			return err
		}

		retryFailed, _ := cmd.Flags().GetBool("retry-failed")

		eng, err := buildEngine()
		if err != nil {
			return err
		}

		res, err := eng.Sync(cmd.Context(), missionID, retryFailed)
		if err != nil {
			return err
		}

		if jsonOutput() {
			return output.JSON(res)
		}

		output.Success("%d delivered", len(res.Accepted))
		for id, reason := range res.Rejected {
			output.Error("rejected %s: %s", id, reason)
		}
		if res.Deferred > 0 {
			output.Warn("%d still pending; will retry on the next sync", res.Deferred)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().Bool("retry-failed", false, "requeue events a previous replay marked failed")
}
