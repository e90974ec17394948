// Package roster materializes current participant state by folding
// the local event log in append order. The roster is never stored; it
// is rebuilt from scratch on every call, which keeps it trivially
// consistent with the queue at the volumes a single mission sees.
package roster

import (
	"time"

	"github.com/crewmesh-systems/crewmesh/internal/event"
	"github.com/crewmesh-systems/crewmesh/internal/logging"
	"github.com/crewmesh-systems/crewmesh/internal/queue"
)

// Snapshot is the derived state of one participant.
type Snapshot struct {
	ParticipantID  string            `json:"participant_id"`
	DisplayName    string            `json:"display_name,omitempty"`
	Role           string            `json:"role,omitempty"`
	Focus          string            `json:"focus,omitempty"`
	DriveIntent    event.DriveIntent `json:"drive_intent"`
	LastActivityAt time.Time         `json:"last_activity_at"`
}

// View rebuilds rosters from a queue store.
type View struct {
	store *queue.Store
	log   *logging.Logger
}

// NewView binds a view to its event source.
func NewView(store *queue.Store, log *logging.Logger) *View {
	if log == nil {
		log = logging.Discard()
	}
	return &View{store: store, log: log}
}

// Build folds the full log for streamID into participant snapshots.
// Repeated calls with no new events return identical results.
func (v *View) Build(streamID string) (map[string]Snapshot, error) {
	entries, err := v.store.ReadAll(streamID)
	if err != nil {
		return nil, err
	}
	return v.fold(streamID, entries), nil
}

// fold applies entries in append order. Only a participant_joined
// event creates a snapshot; every other event is applied if and only
// if its actor already has one. Events naming an unknown participant
// are dropped silently — they are stale or foreign, not errors.
func (v *View) fold(streamID string, entries []queue.Entry) map[string]Snapshot {
	snapshots := make(map[string]Snapshot)

	for _, entry := range entries {
		payload, err := entry.DecodePayload()
		if err != nil {
			v.log.Warn("skipping undecodable event in fold",
				logging.Mission(streamID), logging.EventID(entry.EventID), logging.Error(err))
			continue
		}

		actor := payload.Actor()

		if joined, ok := payload.(*event.JoinedPayload); ok {
			if _, exists := snapshots[actor]; exists {
				// Duplicate join: idempotent, first one wins.
				continue
			}
			snapshots[actor] = Snapshot{
				ParticipantID:  actor,
				DisplayName:    joined.DisplayName,
				Role:           joined.Role,
				DriveIntent:    event.DriveInactive,
				LastActivityAt: entry.Timestamp,
			}
			continue
		}

		snap, exists := snapshots[actor]
		if !exists {
			continue
		}

		switch p := payload.(type) {
		case *event.FocusPayload:
			snap.Focus = p.Target
		case *event.DrivePayload:
			snap.DriveIntent = p.Intent
		}
		snap.LastActivityAt = entry.Timestamp
		snapshots[actor] = snap
	}

	return snapshots
}
