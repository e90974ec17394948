// Package replay delivers queued events to the remote ingestion
// service in batches and folds the per-event verdicts back into the
// local queue. The queue stays the source of truth: delivery is
// best-effort and an event is never discarded here.
package replay

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/crewmesh-systems/crewmesh/internal/clock"
	"github.com/crewmesh-systems/crewmesh/internal/event"
	"github.com/crewmesh-systems/crewmesh/internal/logging"
	"github.com/crewmesh-systems/crewmesh/internal/queue"
	"github.com/crewmesh-systems/crewmesh/internal/remote"
)

// MaxBatchSize is the remote contract's batch ceiling.
const MaxBatchSize = 100

// Submitter is the slice of the remote client the transport needs.
type Submitter interface {
	SubmitBatch(ctx context.Context, missionID string, envelopes []event.Envelope) (*remote.BatchResponse, error)
}

// Result summarizes one Replay call.
type Result struct {
	// Accepted holds event IDs the server accepted (or already had).
	Accepted []string
	// Rejected holds event IDs the server definitively refused, with
	// the machine-readable reason. These are marked failed and are not
	// retried automatically.
	Rejected map[string]string
	// Deferred counts entries left pending because delivery could not
	// be attempted or completed (offline, timeout, retry ceiling).
	Deferred int
}

// Transport replays pending queue entries for one mission stream.
type Transport struct {
	store     *queue.Store
	client    Submitter
	clk       *clock.Clock
	policy    Policy
	batchSize int
	log       *logging.Logger
}

// NewTransport wires a transport. clk may be nil when no local clock
// should observe the server's high-water mark (tests). batchSize is
// clamped to the remote contract's ceiling.
func NewTransport(store *queue.Store, client Submitter, clk *clock.Clock, policy Policy, batchSize int, log *logging.Logger) *Transport {
	if batchSize <= 0 || batchSize > MaxBatchSize {
		batchSize = MaxBatchSize
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Transport{
		store:     store,
		client:    client,
		clk:       clk,
		policy:    policy,
		batchSize: batchSize,
		log:       log,
	}
}

// Replay reads all pending entries for streamID, submits them in
// batches, and persists the verdicts. Transient failures retry per
// the policy; when the ceiling is hit the batch stays pending with
// its retry metadata bumped and the remaining batches are deferred to
// the next call (the network is evidently down). Definitive per-event
// rejections are marked failed and do not stop the batch.
func (t *Transport) Replay(ctx context.Context, streamID string) (Result, error) {
	result := Result{Rejected: make(map[string]string)}

	pending, err := t.store.ReadPending(streamID)
	if err != nil {
		return result, fmt.Errorf("read pending: %w", err)
	}
	if len(pending) == 0 {
		return result, nil
	}

	for start := 0; start < len(pending); start += t.batchSize {
		end := start + t.batchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]

		resp, err := t.submitWithRetry(ctx, streamID, batch)
		if err != nil {
			if remote.IsTransient(err) {
				// Retry ceiling hit: bump retry metadata, keep the
				// batch pending, and stop — later batches would only
				// hit the same outage.
				t.log.Warn("replay deferred, remote unreachable",
					logging.Mission(streamID), logging.Batch(len(batch)), logging.Error(err))
				if err := t.markDeferred(streamID, batch); err != nil {
					return result, err
				}
				result.Deferred += len(pending) - start
				return result, nil
			}
			return result, fmt.Errorf("submit batch: %w", err)
		}

		if err := t.applyVerdicts(streamID, batch, resp, &result); err != nil {
			return result, err
		}

		if t.clk != nil && resp.LogicalClock > 0 {
			if _, err := t.clk.Observe(resp.LogicalClock); err != nil {
				t.log.Warn("failed to observe remote clock", logging.Error(err))
			}
		}
	}

	return result, nil
}

func (t *Transport) submitWithRetry(ctx context.Context, streamID string, batch []queue.Entry) (*remote.BatchResponse, error) {
	envelopes := make([]event.Envelope, len(batch))
	for i, entry := range batch {
		envelopes[i] = entry.Envelope
	}

	bo := t.policy.NewBackOff()
	for attempt := 1; ; attempt++ {
		resp, err := t.client.SubmitBatch(ctx, streamID, envelopes)
		if err == nil {
			return resp, nil
		}
		if !remote.IsTransient(err) || attempt >= t.policy.MaxAttempts {
			return nil, err
		}

		wait := bo.NextBackOff()
		if wait == backoff.Stop {
			return nil, err
		}
		t.log.Debug("transient replay failure, backing off",
			logging.Mission(streamID), "attempt", attempt, "wait", wait.String(), logging.Error(err))

		select {
		case <-ctx.Done():
			return nil, &remote.TransientError{Err: ctx.Err()}
		case <-time.After(wait):
		}
	}
}

// markDeferred records a failed delivery attempt without changing
// replay status: the entries stay pending and eligible for the next
// replay, per the never-failed-solely-on-timeout contract.
func (t *Transport) markDeferred(streamID string, batch []queue.Entry) error {
	updates := make([]queue.Update, len(batch))
	for i, entry := range batch {
		updates[i] = queue.Update{EventID: entry.EventID, Status: queue.StatusPending, BumpRetry: true}
	}
	if err := t.store.UpdateStatus(streamID, updates...); err != nil {
		return fmt.Errorf("record deferred batch: %w", err)
	}
	return nil
}

func (t *Transport) applyVerdicts(streamID string, batch []queue.Entry, resp *remote.BatchResponse, result *Result) error {
	verdicts := make(map[string]remote.EventResult, len(resp.Results))
	for _, r := range resp.Results {
		verdicts[r.EventID] = r
	}

	var updates []queue.Update
	for _, entry := range batch {
		v, ok := verdicts[entry.EventID]
		if !ok {
			// No verdict for a submitted event: leave it pending so a
			// later replay settles it.
			t.log.Warn("batch response missing verdict",
				logging.Mission(streamID), logging.EventID(entry.EventID))
			result.Deferred++
			continue
		}

		switch v.Verdict {
		case remote.VerdictAccepted, remote.VerdictDuplicate:
			updates = append(updates, queue.Update{EventID: entry.EventID, Status: queue.StatusDelivered})
			result.Accepted = append(result.Accepted, entry.EventID)
		case remote.VerdictRejected:
			// Definitive: no retry bump, retry_count stays untouched.
			updates = append(updates, queue.Update{EventID: entry.EventID, Status: queue.StatusFailed})
			result.Rejected[entry.EventID] = v.Reason
			t.log.Warn("event rejected by ingestion service",
				logging.Mission(streamID), logging.EventID(entry.EventID), "reason", v.Reason)
		default:
			t.log.Warn("unknown verdict, leaving entry pending",
				logging.Mission(streamID), logging.EventID(entry.EventID), "verdict", string(v.Verdict))
			result.Deferred++
		}
	}

	if len(updates) == 0 {
		return nil
	}
	if err := t.store.UpdateStatus(streamID, updates...); err != nil {
		return fmt.Errorf("persist verdicts: %w", err)
	}
	return nil
}
