package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var focusCmd = &cobra.Command{
	Use:   "focus [target]",
	Short: "Declare focus on a work item",
	Long: `Record a focus_changed event. Changing focus implicitly releases the
previous target; omitting the target clears focus entirely. Focus is a
declaration of intent, never a lock.`,
	Example: `  crewmesh focus wp:WP01
  crewmesh focus --clear`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		missionID, err := mission()
		if err != nil {
			return err
		}

		clear, _ := cmd.Flags().GetBool("clear")
		var target string
		if len(args) > 0 {
			target = args[0]
		}
		if target == "" && !clear {
			return fmt.Errorf("a focus target is required (or --clear to release)")
		}
		if target != "" && clear {
			return fmt.Errorf("--clear cannot be combined with a target")
		}

		eng, err := buildEngine()
		if err != nil {
			return err
		}

		res, err := eng.SetFocus(cmd.Context(), missionID, target)
		if err != nil {
			return err
		}
		done := "focus cleared"
		if target != "" {
			done = fmt.Sprintf("focused on %s", target)
		}
		return renderResult(res, done)
	},
}

func init() {
	rootCmd.AddCommand(focusCmd)

	focusCmd.Flags().Bool("clear", false, "release the current focus target")
}
