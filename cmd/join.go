package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var joinCmd = &cobra.Command{
	Use:   "join",
	Short: "Join a mission",
	Long: `Cache the identity issued by the mission service and record a
participant_joined event. The participant ID and token come from the
service at enrollment; this command never mints them locally.`,
	Example: `  crewmesh join --mission m-42 --participant p-ada --token eyJ... --name "Ada" --role builder`,
	RunE: func(cmd *cobra.Command, args []string) error {
		missionID, err := mission()
		if err != nil {
			return err
		}

		participantID, _ := cmd.Flags().GetString("participant")
		token, _ := cmd.Flags().GetString("token")
		name, _ := cmd.Flags().GetString("name")
		role, _ := cmd.Flags().GetString("role")

		if participantID == "" {
			return fmt.Errorf("--participant is required")
		}

		eng, err := buildEngine()
		if err != nil {
			return err
		}

		res, err := eng.Join(cmd.Context(), missionID, participantID, token, name, role)
		if err != nil {
			return err
		}
		return renderResult(res, fmt.Sprintf("joined %s as %s", missionID, participantID))
	},
}

func init() {
	rootCmd.AddCommand(joinCmd)

	joinCmd.Flags().StringP("participant", "p", "", "participant ID issued by the mission service")
	joinCmd.Flags().StringP("token", "t", "", "bearer token issued by the mission service")
	joinCmd.Flags().String("name", "", "display name")
	joinCmd.Flags().String("role", "", "role within the mission")
}
