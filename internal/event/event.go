// Package event defines the immutable envelope that is the unit of
// record for all mission activity, plus the typed payloads carried
// inside it.
package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/crewmesh-systems/crewmesh/internal/eventid"
)

// Type identifies one kind of mission event. The set is closed: the
// queue, the roster fold, and the remote contract all reject anything
// outside it.
type Type string

const (
	TypeParticipantJoined       Type = "participant_joined"
	TypeFocusChanged            Type = "focus_changed"
	TypeDriveSet                Type = "drive_set"
	TypeCommentAdded            Type = "comment_added"
	TypeDecisionRecorded        Type = "decision_recorded"
	TypePotentialCollision      Type = "potential_collision"
	TypeConcurrentDriverWarning Type = "concurrent_driver_warning"
	TypeCollisionAcknowledged   Type = "collision_acknowledged"
)

// Known reports whether t is part of the closed event-kind set.
func Known(t Type) bool {
	switch t {
	case TypeParticipantJoined, TypeFocusChanged, TypeDriveSet,
		TypeCommentAdded, TypeDecisionRecorded,
		TypePotentialCollision, TypeConcurrentDriverWarning,
		TypeCollisionAcknowledged:
		return true
	}
	return false
}

// Envelope is the immutable record of one domain event. Fields never
// change after construction; replay status lives on the queue entry,
// not here. Timestamp is advisory wall-clock only — LogicalClock is
// authoritative for ordering.
type Envelope struct {
	EventID      string          `json:"event_id"`
	EventType    Type            `json:"event_type"`
	AggregateID  string          `json:"aggregate_id"`
	Payload      json.RawMessage `json:"payload"`
	Timestamp    time.Time       `json:"timestamp"`
	OriginNode   string          `json:"origin_node"`
	LogicalClock int64           `json:"logical_clock"`
	CausationID  string          `json:"causation_id,omitempty"`
}

// New constructs an envelope around a validated payload, minting a
// fresh event ID and timestamp. causationID may be empty for root
// events.
func New(aggregateID string, payload Payload, originNode string, logicalClock int64, causationID string) (Envelope, error) {
	if aggregateID == "" {
		return Envelope{}, fmt.Errorf("aggregate id is required")
	}
	if originNode == "" {
		return Envelope{}, fmt.Errorf("origin node is required")
	}
	if logicalClock < 0 {
		return Envelope{}, fmt.Errorf("logical clock must be non-negative, got %d", logicalClock)
	}
	if causationID != "" && !eventid.Valid(causationID) {
		return Envelope{}, fmt.Errorf("causation id %q is not a valid event id", causationID)
	}
	if err := payload.Validate(); err != nil {
		return Envelope{}, fmt.Errorf("invalid %s payload: %w", payload.Kind(), err)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", payload.Kind(), err)
	}

	return Envelope{
		EventID:      eventid.New(),
		EventType:    payload.Kind(),
		AggregateID:  aggregateID,
		Payload:      raw,
		Timestamp:    time.Now().UTC(),
		OriginNode:   originNode,
		LogicalClock: logicalClock,
		CausationID:  causationID,
	}, nil
}

// Validate checks envelope-level invariants. Used when reading
// entries back from the local queue.
func (e Envelope) Validate() error {
	if !eventid.Valid(e.EventID) {
		return fmt.Errorf("event id %q is not a valid 26-char identifier", e.EventID)
	}
	if !Known(e.EventType) {
		return fmt.Errorf("unknown event type %q", e.EventType)
	}
	if e.AggregateID == "" {
		return fmt.Errorf("aggregate id is required")
	}
	if e.OriginNode == "" {
		return fmt.Errorf("origin node is required")
	}
	if e.LogicalClock < 0 {
		return fmt.Errorf("logical clock must be non-negative, got %d", e.LogicalClock)
	}
	if e.CausationID != "" && !eventid.Valid(e.CausationID) {
		return fmt.Errorf("causation id %q is not a valid event id", e.CausationID)
	}
	return nil
}

// DecodePayload unmarshals the raw payload into its typed form based
// on the envelope's event type.
func (e Envelope) DecodePayload() (Payload, error) {
	var p Payload
	switch e.EventType {
	case TypeParticipantJoined:
		p = &JoinedPayload{}
	case TypeFocusChanged:
		p = &FocusPayload{}
	case TypeDriveSet:
		p = &DrivePayload{}
	case TypeCommentAdded:
		p = &CommentPayload{}
	case TypeDecisionRecorded:
		p = &DecisionPayload{}
	case TypePotentialCollision, TypeConcurrentDriverWarning:
		p = &CollisionPayload{}
	case TypeCollisionAcknowledged:
		p = &AckPayload{}
	default:
		return nil, fmt.Errorf("unknown event type %q", e.EventType)
	}

	if err := json.Unmarshal(e.Payload, p); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", e.EventType, err)
	}
	return p, nil
}

// Actor returns the acting participant named in the payload, or an
// error if the payload cannot be decoded.
func (e Envelope) Actor() (string, error) {
	p, err := e.DecodePayload()
	if err != nil {
		return "", err
	}
	return p.Actor(), nil
}
