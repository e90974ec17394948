package replay

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewmesh-systems/crewmesh/internal/clock"
	"github.com/crewmesh-systems/crewmesh/internal/event"
	"github.com/crewmesh-systems/crewmesh/internal/logging"
	"github.com/crewmesh-systems/crewmesh/internal/queue"
	"github.com/crewmesh-systems/crewmesh/internal/remote"
)

const stream = "mission-7"

type fakeSubmitter struct {
	calls     int
	batches   [][]event.Envelope
	responder func(call int, envelopes []event.Envelope) (*remote.BatchResponse, error)
}

func (f *fakeSubmitter) SubmitBatch(_ context.Context, _ string, envelopes []event.Envelope) (*remote.BatchResponse, error) {
	f.calls++
	f.batches = append(f.batches, envelopes)
	return f.responder(f.calls, envelopes)
}

func acceptAll(_ int, envelopes []event.Envelope) (*remote.BatchResponse, error) {
	results := make([]remote.EventResult, len(envelopes))
	for i, env := range envelopes {
		results[i] = remote.EventResult{EventID: env.EventID, Verdict: remote.VerdictAccepted}
	}
	return &remote.BatchResponse{Results: results}, nil
}

func newStore(t *testing.T) *queue.Store {
	t.Helper()
	s, err := queue.NewStore(t.TempDir(), logging.Discard())
	require.NoError(t, err)
	return s
}

func appendEvents(t *testing.T, s *queue.Store, n int) []event.Envelope {
	t.Helper()
	envs := make([]event.Envelope, 0, n)
	for i := 1; i <= n; i++ {
		env, err := event.New(stream, event.CommentPayload{
			ParticipantID: "p1",
			Body:          fmt.Sprintf("update %d", i),
		}, "node-a", int64(i), "")
		require.NoError(t, err)
		require.NoError(t, s.Append(stream, env, queue.StatusPending))
		envs = append(envs, env)
	}
	return envs
}

func TestReplay_AllAccepted(t *testing.T) {
	store := newStore(t)
	envs := appendEvents(t, store, 3)

	sub := &fakeSubmitter{responder: acceptAll}
	tr := NewTransport(store, sub, nil, ZeroDelayPolicy(3), MaxBatchSize, logging.Discard())

	res, err := tr.Replay(context.Background(), stream)
	require.NoError(t, err)
	assert.Len(t, res.Accepted, 3)
	assert.Empty(t, res.Rejected)
	assert.Zero(t, res.Deferred)
	assert.Equal(t, 1, sub.calls)

	pending, err := store.ReadPending(stream)
	require.NoError(t, err)
	assert.Empty(t, pending, "delivered entries must leave the pending set")

	// Replaying delivered entries is a no-op: nothing left to submit.
	res, err = tr.Replay(context.Background(), stream)
	require.NoError(t, err)
	assert.Empty(t, res.Accepted)
	assert.Equal(t, 1, sub.calls)

	_ = envs
}

func TestReplay_DuplicateAndRejectedVerdicts(t *testing.T) {
	store := newStore(t)
	envs := appendEvents(t, store, 2)

	sub := &fakeSubmitter{responder: func(_ int, es []event.Envelope) (*remote.BatchResponse, error) {
		return &remote.BatchResponse{Results: []remote.EventResult{
			{EventID: es[0].EventID, Verdict: remote.VerdictDuplicate},
			{EventID: es[1].EventID, Verdict: remote.VerdictRejected, Reason: "participant not in mission roster"},
		}}, nil
	}}
	tr := NewTransport(store, sub, nil, ZeroDelayPolicy(3), MaxBatchSize, logging.Discard())

	res, err := tr.Replay(context.Background(), stream)
	require.NoError(t, err)
	assert.Equal(t, []string{envs[0].EventID}, res.Accepted)
	assert.Equal(t, "participant not in mission roster", res.Rejected[envs[1].EventID])

	all, err := store.ReadAll(stream)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, queue.StatusDelivered, all[0].ReplayStatus)
	assert.Equal(t, queue.StatusFailed, all[1].ReplayStatus)
	assert.Zero(t, all[1].RetryCount, "rejection is not a retryable failure")
	assert.Nil(t, all[1].LastRetryAt)
}

func TestReplay_TransientExhaustionLeavesPending(t *testing.T) {
	store := newStore(t)
	appendEvents(t, store, 2)

	sub := &fakeSubmitter{responder: func(int, []event.Envelope) (*remote.BatchResponse, error) {
		return nil, &remote.TransientError{Err: errors.New("connection refused")}
	}}
	tr := NewTransport(store, sub, nil, ZeroDelayPolicy(3), MaxBatchSize, logging.Discard())

	res, err := tr.Replay(context.Background(), stream)
	require.NoError(t, err, "an offline replay is a deferral, not an error")
	assert.Equal(t, 2, res.Deferred)
	assert.Equal(t, 3, sub.calls, "policy allows three attempts per batch")

	pending, err := store.ReadPending(stream)
	require.NoError(t, err)
	require.Len(t, pending, 2, "timeout never produces failed entries")
	for _, entry := range pending {
		assert.Equal(t, 1, entry.RetryCount)
		assert.NotNil(t, entry.LastRetryAt)
	}

	// A later replay picks the same entries up again.
	sub.responder = acceptAll
	res, err = tr.Replay(context.Background(), stream)
	require.NoError(t, err)
	assert.Len(t, res.Accepted, 2)
}

func TestReplay_TransientThenSuccess(t *testing.T) {
	store := newStore(t)
	appendEvents(t, store, 1)

	sub := &fakeSubmitter{responder: func(call int, es []event.Envelope) (*remote.BatchResponse, error) {
		if call < 3 {
			return nil, &remote.TransientError{Err: errors.New("i/o timeout")}
		}
		return acceptAll(call, es)
	}}
	tr := NewTransport(store, sub, nil, ZeroDelayPolicy(3), MaxBatchSize, logging.Discard())

	res, err := tr.Replay(context.Background(), stream)
	require.NoError(t, err)
	assert.Len(t, res.Accepted, 1)
	assert.Equal(t, 3, sub.calls)
}

func TestReplay_DefinitiveBatchErrorPropagates(t *testing.T) {
	store := newStore(t)
	appendEvents(t, store, 1)

	sub := &fakeSubmitter{responder: func(int, []event.Envelope) (*remote.BatchResponse, error) {
		return nil, errors.New("ingestion status 422: malformed batch")
	}}
	tr := NewTransport(store, sub, nil, ZeroDelayPolicy(3), MaxBatchSize, logging.Discard())

	_, err := tr.Replay(context.Background(), stream)
	require.Error(t, err)
	assert.Equal(t, 1, sub.calls, "definitive errors are not retried")

	pending, err := store.ReadPending(stream)
	require.NoError(t, err)
	assert.Len(t, pending, 1, "nothing is discarded on a batch-level error")
}

func TestReplay_Batching(t *testing.T) {
	store := newStore(t)
	appendEvents(t, store, 7)

	sub := &fakeSubmitter{responder: acceptAll}
	tr := NewTransport(store, sub, nil, ZeroDelayPolicy(1), 3, logging.Discard())

	res, err := tr.Replay(context.Background(), stream)
	require.NoError(t, err)
	assert.Len(t, res.Accepted, 7)
	require.Equal(t, 3, sub.calls)
	assert.Len(t, sub.batches[0], 3)
	assert.Len(t, sub.batches[1], 3)
	assert.Len(t, sub.batches[2], 1)
}

func TestReplay_ObservesRemoteClock(t *testing.T) {
	store := newStore(t)
	appendEvents(t, store, 1)

	clk := clock.New("node-a", filepath.Join(t.TempDir(), "clocks.yaml"))
	sub := &fakeSubmitter{responder: func(call int, es []event.Envelope) (*remote.BatchResponse, error) {
		resp, _ := acceptAll(call, es)
		resp.LogicalClock = 99
		return resp, nil
	}}
	tr := NewTransport(store, sub, clk, ZeroDelayPolicy(1), MaxBatchSize, logging.Discard())

	_, err := tr.Replay(context.Background(), stream)
	require.NoError(t, err)
	assert.Equal(t, int64(100), clk.Current(), "clock observes the server high-water mark")
}

func TestReplay_MissingVerdictStaysPending(t *testing.T) {
	store := newStore(t)
	envs := appendEvents(t, store, 2)

	sub := &fakeSubmitter{responder: func(_ int, es []event.Envelope) (*remote.BatchResponse, error) {
		return &remote.BatchResponse{Results: []remote.EventResult{
			{EventID: es[0].EventID, Verdict: remote.VerdictAccepted},
		}}, nil
	}}
	tr := NewTransport(store, sub, nil, ZeroDelayPolicy(1), MaxBatchSize, logging.Discard())

	res, err := tr.Replay(context.Background(), stream)
	require.NoError(t, err)
	assert.Len(t, res.Accepted, 1)
	assert.Equal(t, 1, res.Deferred)

	pending, err := store.ReadPending(stream)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, envs[1].EventID, pending[0].EventID)
}
