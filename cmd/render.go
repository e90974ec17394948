package cmd

import (
	"strings"

	"github.com/crewmesh-systems/crewmesh/internal/engine"
	"github.com/crewmesh-systems/crewmesh/pkg/output"
)

// renderResult prints the outcome of one domain operation. The verb
// commands all succeed once the event is durable locally; delivery
// state only changes the wording.
func renderResult(res engine.Result, done string) error {
	if jsonOutput() {
		return output.JSON(res)
	}

	if res.Warning != nil {
		var ids []string
		for _, snap := range res.Warning.Conflicting {
			ids = append(ids, snap.ParticipantID)
		}
		output.Warn("%s collision on %s: %s also driving",
			res.Warning.Severity, res.Warning.FocusTarget, strings.Join(ids, ", "))
		output.Info("drive transition suspended; acknowledge with:")
		output.Info("  crewmesh ack %s --action continue|hold|reassign|defer", res.Warning.WarningID)
		return nil
	}

	if res.NoOp {
		output.Info("already in effect, nothing recorded")
		return nil
	}

	if res.Synced {
		output.Success("%s (synced)", done)
	} else {
		output.Success("%s (queued; will sync when online)", done)
	}
	return nil
}
