package cmd

import (
	"sort"

	"github.com/spf13/cobra"

	"github.com/crewmesh-systems/crewmesh/pkg/output"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the mission roster and local queue health",
	Long: `Rebuild the participant roster from the local event log and report
queue counts: how many events are waiting for delivery and which ones
the service definitively rejected.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		missionID, err := mission()
		if err != nil {
			return err
		}

		eng, err := buildEngine()
		if err != nil {
			return err
		}

		report, err := eng.Status(missionID)
		if err != nil {
			return err
		}

		if jsonOutput() {
			return output.JSON(report)
		}

		ids := make([]string, 0, len(report.Roster))
		for id := range report.Roster {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		tbl := output.NewTable("PARTICIPANT", "NAME", "ROLE", "FOCUS", "DRIVE", "LAST ACTIVITY")
		for _, id := range ids {
			snap := report.Roster[id]
			tbl.AddRow(
				snap.ParticipantID,
				snap.DisplayName,
				snap.Role,
				snap.Focus,
				string(snap.DriveIntent),
				snap.LastActivityAt.Format("2006-01-02 15:04:05"),
			)
		}
		tbl.Render()

		output.Info("")
		output.Info("%d events total, %d pending delivery", report.Total, report.Pending)
		for _, entry := range report.Failed {
			output.Error("rejected: %s %s (retry with 'crewmesh sync --retry-failed')",
				entry.EventID, entry.EventType)
		}
		if report.StaleTok {
			output.Warn("cached token is past its expiry; rejoin before syncing")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
