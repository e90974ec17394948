package event

import "fmt"

// DriveIntent is whether a participant is actively executing work or
// merely observing.
type DriveIntent string

const (
	DriveActive   DriveIntent = "active"
	DriveInactive DriveIntent = "inactive"
)

// Severity classifies an advisory collision warning.
type Severity string

const (
	// SeverityMedium: exactly one other active driver on the focus target.
	SeverityMedium Severity = "medium"
	// SeverityHigh: two or more concurrent active drivers on the focus target.
	SeverityHigh Severity = "high"
)

// AckAction is a participant's response to a collision warning.
type AckAction string

const (
	AckContinue AckAction = "continue"
	AckHold     AckAction = "hold"
	AckReassign AckAction = "reassign"
	AckDefer    AckAction = "defer"
)

// ValidAckAction reports whether a is one of the recognized
// acknowledgement responses.
func ValidAckAction(a AckAction) bool {
	switch a {
	case AckContinue, AckHold, AckReassign, AckDefer:
		return true
	}
	return false
}

// Payload is the event-kind-specific body of an envelope. Every
// payload names the acting participant; validation runs at
// construction so malformed payloads never reach the queue.
type Payload interface {
	Kind() Type
	Actor() string
	Validate() error
}

// JoinedPayload records a participant entering the mission. The
// participant ID is remotely issued, never minted locally.
type JoinedPayload struct {
	ParticipantID string `json:"participant_id"`
	DisplayName   string `json:"display_name,omitempty"`
	Role          string `json:"role,omitempty"`
}

func (p JoinedPayload) Kind() Type    { return TypeParticipantJoined }
func (p JoinedPayload) Actor() string { return p.ParticipantID }

func (p JoinedPayload) Validate() error {
	if p.ParticipantID == "" {
		return fmt.Errorf("participant id is required")
	}
	return nil
}

// FocusPayload records a focus change. An empty target clears focus;
// a change to a new target implicitly releases the previous one.
type FocusPayload struct {
	ParticipantID string `json:"participant_id"`
	Target        string `json:"target"`
}

func (p FocusPayload) Kind() Type    { return TypeFocusChanged }
func (p FocusPayload) Actor() string { return p.ParticipantID }

func (p FocusPayload) Validate() error {
	if p.ParticipantID == "" {
		return fmt.Errorf("participant id is required")
	}
	return nil
}

// DrivePayload records a drive-intent transition.
type DrivePayload struct {
	ParticipantID string      `json:"participant_id"`
	Intent        DriveIntent `json:"intent"`
}

func (p DrivePayload) Kind() Type    { return TypeDriveSet }
func (p DrivePayload) Actor() string { return p.ParticipantID }

func (p DrivePayload) Validate() error {
	if p.ParticipantID == "" {
		return fmt.Errorf("participant id is required")
	}
	if p.Intent != DriveActive && p.Intent != DriveInactive {
		return fmt.Errorf("intent must be %q or %q, got %q", DriveActive, DriveInactive, p.Intent)
	}
	return nil
}

// CommentPayload records free-form commentary, optionally directed at
// another participant (the reassign acknowledgement uses this).
type CommentPayload struct {
	ParticipantID string `json:"participant_id"`
	Body          string `json:"body"`
	DirectedAt    string `json:"directed_at,omitempty"`
}

func (p CommentPayload) Kind() Type    { return TypeCommentAdded }
func (p CommentPayload) Actor() string { return p.ParticipantID }

func (p CommentPayload) Validate() error {
	if p.ParticipantID == "" {
		return fmt.Errorf("participant id is required")
	}
	if p.Body == "" {
		return fmt.Errorf("comment body is required")
	}
	return nil
}

// DecisionPayload records a mission decision.
type DecisionPayload struct {
	ParticipantID string `json:"participant_id"`
	Subject       string `json:"subject"`
	Outcome       string `json:"outcome"`
}

func (p DecisionPayload) Kind() Type    { return TypeDecisionRecorded }
func (p DecisionPayload) Actor() string { return p.ParticipantID }

func (p DecisionPayload) Validate() error {
	if p.ParticipantID == "" {
		return fmt.Errorf("participant id is required")
	}
	if p.Subject == "" {
		return fmt.Errorf("decision subject is required")
	}
	if p.Outcome == "" {
		return fmt.Errorf("decision outcome is required")
	}
	return nil
}

// CollisionPayload is the body of an advisory collision warning. The
// warning's own event ID doubles as the warning ID referenced by the
// eventual acknowledgement.
type CollisionPayload struct {
	ParticipantID string   `json:"participant_id"`
	FocusTarget   string   `json:"focus_target"`
	Severity      Severity `json:"severity"`
	Conflicting   []string `json:"conflicting_participants"`
}

// Kind maps severity to the corresponding warning event type.
func (p CollisionPayload) Kind() Type {
	if p.Severity == SeverityHigh {
		return TypeConcurrentDriverWarning
	}
	return TypePotentialCollision
}

func (p CollisionPayload) Actor() string { return p.ParticipantID }

func (p CollisionPayload) Validate() error {
	if p.ParticipantID == "" {
		return fmt.Errorf("participant id is required")
	}
	if p.FocusTarget == "" {
		return fmt.Errorf("focus target is required")
	}
	if p.Severity != SeverityMedium && p.Severity != SeverityHigh {
		return fmt.Errorf("severity must be %q or %q, got %q", SeverityMedium, SeverityHigh, p.Severity)
	}
	if len(p.Conflicting) == 0 {
		return fmt.Errorf("a collision warning needs at least one conflicting participant")
	}
	return nil
}

// AckPayload records a participant's response to a collision warning.
type AckPayload struct {
	ParticipantID string    `json:"participant_id"`
	Action        AckAction `json:"action"`
	WarningID     string    `json:"warning_id"`
}

func (p AckPayload) Kind() Type    { return TypeCollisionAcknowledged }
func (p AckPayload) Actor() string { return p.ParticipantID }

func (p AckPayload) Validate() error {
	if p.ParticipantID == "" {
		return fmt.Errorf("participant id is required")
	}
	if !ValidAckAction(p.Action) {
		return fmt.Errorf("unrecognized acknowledgement action %q", p.Action)
	}
	if p.WarningID == "" {
		return fmt.Errorf("warning id is required")
	}
	return nil
}
