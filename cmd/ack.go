package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crewmesh-systems/crewmesh/internal/event"
)

var ackCmd = &cobra.Command{
	Use:   "ack <warning-id>",
	Short: "Acknowledge a collision warning",
	Long: `Record a collision_acknowledged event for a suspended drive
transition. Actions:

  continue  proceed with the transition despite the warning
  hold      stay inactive for now
  reassign  suggest the conflicting participant hands the work over
  defer     abandon the transition entirely`,
	Example: `  crewmesh ack 01J8ZC3... --action continue`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		missionID, err := mission()
		if err != nil {
			return err
		}

		action, _ := cmd.Flags().GetString("action")
		if action == "" {
			return fmt.Errorf("--action is required (continue, hold, reassign, defer)")
		}

		eng, err := buildEngine()
		if err != nil {
			return err
		}

		res, err := eng.Acknowledge(cmd.Context(), missionID, args[0], event.AckAction(action))
		if err != nil {
			return err
		}
		return renderResult(res, fmt.Sprintf("warning acknowledged: %s", action))
	},
}

func init() {
	rootCmd.AddCommand(ackCmd)

	ackCmd.Flags().StringP("action", "a", "", "response: continue, hold, reassign, defer")
}
