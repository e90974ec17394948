package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crewmesh-systems/crewmesh/internal/event"
)

var driveCmd = &cobra.Command{
	Use:   "drive <active|inactive>",
	Short: "Transition drive intent",
	Long: `Record a drive_set event. Going active runs the collision check
against the current roster first: if another participant is already
actively driving the same focus target the transition is suspended and
a warning is recorded instead. Going inactive is unconditional.`,
	Example: `  crewmesh drive active
  crewmesh drive inactive`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		missionID, err := mission()
		if err != nil {
			return err
		}

		intent := event.DriveIntent(args[0])
		if intent != event.DriveActive && intent != event.DriveInactive {
			return fmt.Errorf("intent must be %q or %q, got %q", event.DriveActive, event.DriveInactive, args[0])
		}

		eng, err := buildEngine()
		if err != nil {
			return err
		}

		res, err := eng.SetDrive(cmd.Context(), missionID, intent)
		if err != nil {
			return err
		}
		return renderResult(res, fmt.Sprintf("drive intent set to %s", intent))
	},
}

func init() {
	rootCmd.AddCommand(driveCmd)
}
