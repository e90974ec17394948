package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crewmesh-systems/crewmesh/internal/seeder"
	"github.com/crewmesh-systems/crewmesh/pkg/output"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill the local queue with synthetic mission activity",
	Long: `Generate realistic participants, focus changes, drive transitions,
and comments for demos and local development. Events are appended
pending, so a later sync delivers them like any real activity.`,
	Example: `  crewmesh seed --participants 4 --events 50
  crewmesh seed --seed 42`,
	RunE: func(cmd *cobra.Command, args []string) error {
		missionID, err := mission()
		if err != nil {
			return err
		}

		participants, _ := cmd.Flags().GetInt("participants")
		events, _ := cmd.Flags().GetInt("events")
		targets, _ := cmd.Flags().GetInt("targets")
		seed, _ := cmd.Flags().GetInt64("seed")

		eng, err := buildEngine()
		if err != nil {
			return err
		}

		s := seeder.New(eng.QueueStore(), eng.Clock())
		total, err := s.Seed(missionID, seeder.Options{
			Participants: participants,
			Events:       events,
			FocusTargets: targets,
			Seed:         seed,
		})
		if err != nil {
			return fmt.Errorf("seed mission: %w", err)
		}

		if jsonOutput() {
			return output.JSON(map[string]int{"events": total})
		}
		output.Success("seeded %d events into %s", total, missionID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().Int("participants", 3, "participants to generate")
	seedCmd.Flags().Int("events", 20, "activity events after the joins")
	seedCmd.Flags().Int("targets", 5, "size of the synthetic work-package pool")
	seedCmd.Flags().Int64("seed", 0, "random seed for reproducible output")
}
