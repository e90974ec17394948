// Package collision implements the advisory pre-check that runs
// before a participant transitions to actively driving a focus
// target. Warnings inform, they never block: soft coordination only.
package collision

import (
	"fmt"
	"sort"

	"github.com/crewmesh-systems/crewmesh/internal/event"
	"github.com/crewmesh-systems/crewmesh/internal/logging"
	"github.com/crewmesh-systems/crewmesh/internal/roster"
)

// Warning is the detected conflict. It is not stored on its own; the
// emitted warning event is the durable record and the causation root
// for the eventual acknowledgement.
type Warning struct {
	// WarningID is the event ID of the emitted warning event.
	WarningID   string            `json:"warning_id"`
	Severity    event.Severity    `json:"severity"`
	FocusTarget string            `json:"focus_target"`
	Conflicting []roster.Snapshot `json:"conflicting_participants"`
}

// Emitter appends a new event to the mission stream. Implemented by
// the engine so the detector stays ignorant of clocks and queues.
type Emitter interface {
	Emit(streamID string, payload event.Payload, causationID string) (event.Envelope, error)
}

// Detector checks the materialized roster for concurrent drivers.
type Detector struct {
	view    *roster.View
	emitter Emitter
	log     *logging.Logger
}

// NewDetector wires a detector over the roster view.
func NewDetector(view *roster.View, emitter Emitter, log *logging.Logger) *Detector {
	if log == nil {
		log = logging.Discard()
	}
	return &Detector{view: view, emitter: emitter, log: log}
}

// Detect returns nil when no other participant is actively driving
// focusTarget. Otherwise it classifies severity (one other driver:
// medium; two or more: high), emits the warning event, and returns
// the warning. Callers run this before drive_intent goes active and
// never on release.
func (d *Detector) Detect(streamID, requester, focusTarget string) (*Warning, error) {
	if focusTarget == "" {
		return nil, nil
	}

	snapshots, err := d.view.Build(streamID)
	if err != nil {
		return nil, fmt.Errorf("build roster: %w", err)
	}

	var conflicting []roster.Snapshot
	for id, snap := range snapshots {
		if id == requester {
			continue
		}
		if snap.Focus == focusTarget && snap.DriveIntent == event.DriveActive {
			conflicting = append(conflicting, snap)
		}
	}
	if len(conflicting) == 0 {
		return nil, nil
	}

	sort.Slice(conflicting, func(i, j int) bool {
		return conflicting[i].ParticipantID < conflicting[j].ParticipantID
	})

	severity := event.SeverityMedium
	if len(conflicting) >= 2 {
		severity = event.SeverityHigh
	}

	ids := make([]string, len(conflicting))
	for i, snap := range conflicting {
		ids[i] = snap.ParticipantID
	}

	env, err := d.emitter.Emit(streamID, event.CollisionPayload{
		ParticipantID: requester,
		FocusTarget:   focusTarget,
		Severity:      severity,
		Conflicting:   ids,
	}, "")
	if err != nil {
		return nil, fmt.Errorf("emit collision warning: %w", err)
	}

	d.log.Warn("collision detected",
		logging.Mission(streamID),
		logging.Participant(requester),
		"focus_target", focusTarget,
		"severity", string(severity),
		"conflicting", ids,
	)

	return &Warning{
		WarningID:   env.EventID,
		Severity:    severity,
		FocusTarget: focusTarget,
		Conflicting: conflicting,
	}, nil
}
