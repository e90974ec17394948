package cmd

import (
	"strings"

	"github.com/spf13/cobra"
)

var commentCmd = &cobra.Command{
	Use:   "comment <body...>",
	Short: "Record a comment on the mission",
	Example: `  crewmesh comment "taking the slow path on WP01, migration first"
  crewmesh comment --at p-bert "WP03 is blocked on your review"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		missionID, err := mission()
		if err != nil {
			return err
		}

		directedAt, _ := cmd.Flags().GetString("at")

		eng, err := buildEngine()
		if err != nil {
			return err
		}

		res, err := eng.Comment(cmd.Context(), missionID, strings.Join(args, " "), directedAt)
		if err != nil {
			return err
		}
		return renderResult(res, "comment recorded")
	},
}

func init() {
	rootCmd.AddCommand(commentCmd)

	commentCmd.Flags().String("at", "", "participant the comment is directed at")
}
