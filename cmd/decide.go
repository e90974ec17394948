package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var decideCmd = &cobra.Command{
	Use:     "decide",
	Short:   "Record a mission decision",
	Example: `  crewmesh decide --subject "storage layer" --outcome "append-only JSONL, no database"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		missionID, err := mission()
		if err != nil {
			return err
		}

		subject, _ := cmd.Flags().GetString("subject")
		outcome, _ := cmd.Flags().GetString("outcome")
		if subject == "" || outcome == "" {
			return fmt.Errorf("--subject and --outcome are both required")
		}

		eng, err := buildEngine()
		if err != nil {
			return err
		}

		res, err := eng.Decide(cmd.Context(), missionID, subject, outcome)
		if err != nil {
			return err
		}
		return renderResult(res, fmt.Sprintf("decision recorded: %s", subject))
	},
}

func init() {
	rootCmd.AddCommand(decideCmd)

	decideCmd.Flags().StringP("subject", "s", "", "what was decided about")
	decideCmd.Flags().String("outcome", "", "what was decided")
}
