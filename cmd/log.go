package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/crewmesh-systems/crewmesh/internal/queue"
	"github.com/crewmesh-systems/crewmesh/pkg/output"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show the local event log for a mission",
	Example: `  crewmesh log
  crewmesh log --status pending`,
	RunE: func(cmd *cobra.Command, args []string) error {
		missionID, err := mission()
		if err != nil {
			return err
		}

		statusFilter, _ := cmd.Flags().GetString("status")
		switch queue.Status(statusFilter) {
		case "", queue.StatusPending, queue.StatusDelivered, queue.StatusFailed:
		default:
			return fmt.Errorf("unknown status %q (pending, delivered, failed)", statusFilter)
		}

		eng, err := buildEngine()
		if err != nil {
			return err
		}

		entries, err := eng.Log(missionID)
		if err != nil {
			return err
		}
		if statusFilter != "" {
			filtered := entries[:0]
			for _, entry := range entries {
				if entry.ReplayStatus == queue.Status(statusFilter) {
					filtered = append(filtered, entry)
				}
			}
			entries = filtered
		}

		if jsonOutput() {
			return output.JSON(entries)
		}

		tbl := output.NewTable("CLOCK", "TYPE", "ACTOR", "STATUS", "RETRIES", "EVENT ID")
		for _, entry := range entries {
			actor, _ := entry.Actor()
			tbl.AddRow(
				strconv.FormatInt(entry.LogicalClock, 10),
				string(entry.EventType),
				actor,
				string(entry.ReplayStatus),
				strconv.Itoa(entry.RetryCount),
				entry.EventID,
			)
		}
		tbl.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logCmd)

	logCmd.Flags().String("status", "", "only entries with this replay status")
}
