// Package engine implements the domain operations behind the CLI
// verbs: join, focus, drive, comment, decide, acknowledge. Every
// operation consults the materialized roster, appends its event
// durably, and only then attempts best-effort delivery — a failed
// delivery is an advisory, never an operation failure.
package engine

import (
	"context"
	"fmt"

	"github.com/crewmesh-systems/crewmesh/internal/clock"
	"github.com/crewmesh-systems/crewmesh/internal/collision"
	"github.com/crewmesh-systems/crewmesh/internal/event"
	"github.com/crewmesh-systems/crewmesh/internal/logging"
	"github.com/crewmesh-systems/crewmesh/internal/queue"
	"github.com/crewmesh-systems/crewmesh/internal/replay"
	"github.com/crewmesh-systems/crewmesh/internal/roster"
	"github.com/crewmesh-systems/crewmesh/internal/session"
)

// Result is the outcome of one domain operation.
type Result struct {
	// Emitted holds the envelopes this operation appended, in order.
	Emitted []event.Envelope
	// NoOp is true when the requested transition was already in
	// effect and nothing was emitted.
	NoOp bool
	// Warning is non-nil when a drive transition was suspended
	// pending acknowledgement.
	Warning *collision.Warning
	// Synced is true when everything pending reached the remote
	// service during this operation. False means "queued; will sync
	// when online".
	Synced bool
}

// Engine owns the explicit handles (queue, clock, transport, session)
// for one node. Nothing here is a package-level singleton: tests
// simulate multiple nodes by constructing multiple engines.
type Engine struct {
	store     *queue.Store
	clk       *clock.Clock
	view      *roster.View
	detector  *collision.Detector
	transport *replay.Transport
	sessions  *session.Store
	log       *logging.Logger
}

// New wires an engine. transport may be nil for offline-only use
// (every operation then reports Synced=false).
func New(store *queue.Store, clk *clock.Clock, transport *replay.Transport, sessions *session.Store, log *logging.Logger) *Engine {
	if log == nil {
		log = logging.Discard()
	}
	e := &Engine{
		store:     store,
		clk:       clk,
		transport: transport,
		sessions:  sessions,
		log:       log,
	}
	e.view = roster.NewView(store, log)
	e.detector = collision.NewDetector(e.view, e, log)
	return e
}

// Emit advances the Lamport clock, builds the envelope, and appends
// it pending. Implements the collision detector's Emitter.
func (e *Engine) Emit(streamID string, payload event.Payload, causationID string) (event.Envelope, error) {
	tick, err := e.clk.Increment()
	if err != nil {
		return event.Envelope{}, fmt.Errorf("advance clock: %w", err)
	}
	env, err := event.New(streamID, payload, e.clk.NodeID(), tick, causationID)
	if err != nil {
		return event.Envelope{}, err
	}
	if err := e.store.Append(streamID, env, queue.StatusPending); err != nil {
		return event.Envelope{}, err
	}
	e.log.Debug("event appended",
		logging.Mission(streamID),
		logging.EventID(env.EventID),
		logging.EventType(string(env.EventType)),
		"logical_clock", tick,
	)
	return env, nil
}

// Join caches the remotely-issued identity and emits
// participant_joined. The identity layer, not this core, minted
// participantID and token.
func (e *Engine) Join(ctx context.Context, missionID, participantID, token, displayName, role string) (Result, error) {
	if err := e.sessions.Put(missionID, participantID, token); err != nil {
		return Result{}, fmt.Errorf("cache session: %w", err)
	}

	env, err := e.Emit(missionID, event.JoinedPayload{
		ParticipantID: participantID,
		DisplayName:   displayName,
		Role:          role,
	}, "")
	if err != nil {
		return Result{}, err
	}
	return e.finish(ctx, missionID, Result{Emitted: []event.Envelope{env}}), nil
}

// SetFocus declares intent toward a work item. Changing focus
// implicitly and atomically releases the previous target; asking for
// the current target again is a no-op.
func (e *Engine) SetFocus(ctx context.Context, missionID, target string) (Result, error) {
	participantID, snap, err := e.requester(missionID)
	if err != nil {
		return Result{}, err
	}

	if snap != nil && snap.Focus == target {
		return Result{NoOp: true}, nil
	}

	env, err := e.Emit(missionID, event.FocusPayload{ParticipantID: participantID, Target: target}, "")
	if err != nil {
		return Result{}, err
	}
	return e.finish(ctx, missionID, Result{Emitted: []event.Envelope{env}}), nil
}

// SetDrive transitions drive intent. inactive→active runs the
// collision check first; a warning suspends the transition (only the
// warning event is emitted) until the participant acknowledges.
// active→inactive is unconditional. Self-transitions are no-ops.
func (e *Engine) SetDrive(ctx context.Context, missionID string, intent event.DriveIntent) (Result, error) {
	if intent != event.DriveActive && intent != event.DriveInactive {
		return Result{}, fmt.Errorf("intent must be %q or %q, got %q", event.DriveActive, event.DriveInactive, intent)
	}

	participantID, snap, err := e.requester(missionID)
	if err != nil {
		return Result{}, err
	}

	if snap != nil && snap.DriveIntent == intent {
		return Result{NoOp: true}, nil
	}

	if intent == event.DriveActive {
		var focus string
		if snap != nil {
			focus = snap.Focus
		}
		warning, err := e.detector.Detect(missionID, participantID, focus)
		if err != nil {
			return Result{}, err
		}
		if warning != nil {
			// Suspended: the warning event is already in the queue as
			// the causation root for the eventual acknowledgement.
			return e.finish(ctx, missionID, Result{Warning: warning}), nil
		}
	}

	env, err := e.Emit(missionID, event.DrivePayload{ParticipantID: participantID, Intent: intent}, "")
	if err != nil {
		return Result{}, err
	}
	return e.finish(ctx, missionID, Result{Emitted: []event.Envelope{env}}), nil
}

// Acknowledge records the participant's response to a collision
// warning. continue re-issues the drive transition bypassing the
// check; hold stays inactive; reassign emits an advisory comment at
// the conflicting participant; defer abandons the operation. Any
// other action is an input-validation failure and nothing is emitted.
func (e *Engine) Acknowledge(ctx context.Context, missionID, warningID string, action event.AckAction) (Result, error) {
	if !event.ValidAckAction(action) {
		return Result{}, fmt.Errorf("unrecognized acknowledgement action %q (valid: continue, hold, reassign, defer)", action)
	}

	participantID, _, err := e.requester(missionID)
	if err != nil {
		return Result{}, err
	}

	warning, err := e.findWarning(missionID, warningID)
	if err != nil {
		return Result{}, err
	}

	ack, err := e.Emit(missionID, event.AckPayload{
		ParticipantID: participantID,
		Action:        action,
		WarningID:     warningID,
	}, warningID)
	if err != nil {
		return Result{}, err
	}
	emitted := []event.Envelope{ack}

	switch action {
	case event.AckContinue:
		drive, err := e.Emit(missionID, event.DrivePayload{
			ParticipantID: participantID,
			Intent:        event.DriveActive,
		}, ack.EventID)
		if err != nil {
			return Result{}, err
		}
		emitted = append(emitted, drive)

	case event.AckReassign:
		// Advisory only: a comment directed at the conflicting
		// participant, no state change on either side.
		comment, err := e.Emit(missionID, event.CommentPayload{
			ParticipantID: participantID,
			Body:          fmt.Sprintf("suggest handing %s over; I am about to drive it", warning.FocusTarget),
			DirectedAt:    warning.Conflicting[0],
		}, ack.EventID)
		if err != nil {
			return Result{}, err
		}
		emitted = append(emitted, comment)

	case event.AckHold, event.AckDefer:
		// No further state change.
	}

	return e.finish(ctx, missionID, Result{Emitted: emitted}), nil
}

// Comment records free-form commentary, optionally directed at
// another participant.
func (e *Engine) Comment(ctx context.Context, missionID, body, directedAt string) (Result, error) {
	participantID, _, err := e.requester(missionID)
	if err != nil {
		return Result{}, err
	}

	env, err := e.Emit(missionID, event.CommentPayload{
		ParticipantID: participantID,
		Body:          body,
		DirectedAt:    directedAt,
	}, "")
	if err != nil {
		return Result{}, err
	}
	return e.finish(ctx, missionID, Result{Emitted: []event.Envelope{env}}), nil
}

// Decide records a mission decision.
func (e *Engine) Decide(ctx context.Context, missionID, subject, outcome string) (Result, error) {
	participantID, _, err := e.requester(missionID)
	if err != nil {
		return Result{}, err
	}

	env, err := e.Emit(missionID, event.DecisionPayload{
		ParticipantID: participantID,
		Subject:       subject,
		Outcome:       outcome,
	}, "")
	if err != nil {
		return Result{}, err
	}
	return e.finish(ctx, missionID, Result{Emitted: []event.Envelope{env}}), nil
}

// Roster rebuilds the materialized participant view.
func (e *Engine) Roster(missionID string) (map[string]roster.Snapshot, error) {
	return e.view.Build(missionID)
}

// Log returns the mission's local event log in clock order, including
// replay status and retry bookkeeping.
func (e *Engine) Log(missionID string) ([]queue.Entry, error) {
	return e.store.ReadAll(missionID)
}

// QueueStore exposes the underlying store for tooling (the seeder
// writes through it directly).
func (e *Engine) QueueStore() *queue.Store { return e.store }

// Clock exposes this node's Lamport clock.
func (e *Engine) Clock() *clock.Clock { return e.clk }

// StatusReport summarizes local queue health for the status command.
type StatusReport struct {
	Roster   map[string]roster.Snapshot
	Pending  int
	Failed   []queue.Entry
	Total    int
	StaleTok bool
}

// Status reports the roster plus queue counts, surfacing definitive
// rejections recorded by earlier replays.
func (e *Engine) Status(missionID string) (StatusReport, error) {
	snapshots, err := e.view.Build(missionID)
	if err != nil {
		return StatusReport{}, err
	}

	entries, err := e.store.ReadAll(missionID)
	if err != nil {
		return StatusReport{}, err
	}

	report := StatusReport{
		Roster:   snapshots,
		Total:    len(entries),
		StaleTok: e.sessions.TokenExpired(missionID),
	}
	for _, entry := range entries {
		switch entry.ReplayStatus {
		case queue.StatusPending:
			report.Pending++
		case queue.StatusFailed:
			report.Failed = append(report.Failed, entry)
		}
	}
	return report, nil
}

// Sync runs an operator-triggered replay. retryFailed first requeues
// entries a previous replay marked failed.
func (e *Engine) Sync(ctx context.Context, missionID string, retryFailed bool) (replay.Result, error) {
	if e.transport == nil {
		return replay.Result{}, fmt.Errorf("no replay transport configured")
	}
	if retryFailed {
		n, err := e.store.RetryFailed(missionID)
		if err != nil {
			return replay.Result{}, err
		}
		if n > 0 {
			e.log.Info("requeued failed entries", logging.Mission(missionID), "count", n)
		}
	}
	return e.transport.Replay(ctx, missionID)
}

// requester resolves the acting participant and its current snapshot
// (nil when the join event has not been folded yet).
func (e *Engine) requester(missionID string) (string, *roster.Snapshot, error) {
	participantID, err := e.sessions.Participant(missionID)
	if err != nil {
		return "", nil, err
	}
	snapshots, err := e.view.Build(missionID)
	if err != nil {
		return "", nil, err
	}
	if snap, ok := snapshots[participantID]; ok {
		return participantID, &snap, nil
	}
	return participantID, nil, nil
}

// findWarning locates a prior collision warning event in the local
// log and decodes its payload.
func (e *Engine) findWarning(missionID, warningID string) (*event.CollisionPayload, error) {
	entries, err := e.store.ReadAll(missionID)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if entry.EventID != warningID {
			continue
		}
		payload, err := entry.DecodePayload()
		if err != nil {
			return nil, fmt.Errorf("decode warning %s: %w", warningID, err)
		}
		warning, ok := payload.(*event.CollisionPayload)
		if !ok {
			return nil, fmt.Errorf("event %s is a %s, not a collision warning", warningID, entry.EventType)
		}
		return warning, nil
	}
	return nil, fmt.Errorf("no collision warning %s in mission %s", warningID, missionID)
}

// finish attempts best-effort delivery of everything pending. The
// events are already durable, so a delivery failure downgrades to an
// advisory: the caller reports "queued; will sync when online".
func (e *Engine) finish(ctx context.Context, missionID string, result Result) Result {
	if e.transport == nil {
		return result
	}
	res, err := e.transport.Replay(ctx, missionID)
	if err != nil {
		e.log.Warn("immediate delivery failed, events remain queued",
			logging.Mission(missionID), logging.Error(err))
		return result
	}
	result.Synced = res.Deferred == 0
	return result
}
