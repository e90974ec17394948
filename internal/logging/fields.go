package logging

import "log/slog"

// Common field names for consistent logging across the engine.
const (
	FieldMission     = "mission_id"
	FieldParticipant = "participant_id"
	FieldEventID     = "event_id"
	FieldEventType   = "event_type"
	FieldNode        = "node_id"
	FieldBatch       = "batch_size"
	FieldError       = "error"
)

// Mission returns a slog attribute for the mission (stream) ID.
func Mission(id string) slog.Attr {
	return slog.String(FieldMission, id)
}

// Participant returns a slog attribute for a participant ID.
func Participant(id string) slog.Attr {
	return slog.String(FieldParticipant, id)
}

// EventID returns a slog attribute for an event ID.
func EventID(id string) slog.Attr {
	return slog.String(FieldEventID, id)
}

// EventType returns a slog attribute for an event type.
func EventType(t string) slog.Attr {
	return slog.String(FieldEventType, t)
}

// Node returns a slog attribute for the origin node ID.
func Node(id string) slog.Attr {
	return slog.String(FieldNode, id)
}

// Batch returns a slog attribute for a replay batch size.
func Batch(n int) slog.Attr {
	return slog.Int(FieldBatch, n)
}

// Error returns a slog attribute for an error.
func Error(err error) slog.Attr {
	return slog.String(FieldError, err.Error())
}
