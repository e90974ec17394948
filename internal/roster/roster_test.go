package roster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewmesh-systems/crewmesh/internal/event"
	"github.com/crewmesh-systems/crewmesh/internal/logging"
	"github.com/crewmesh-systems/crewmesh/internal/queue"
)

const stream = "mission-7"

type fixture struct {
	store *queue.Store
	view  *View
	clock int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := queue.NewStore(t.TempDir(), logging.Discard())
	require.NoError(t, err)
	return &fixture{store: store, view: NewView(store, logging.Discard())}
}

func (f *fixture) emit(t *testing.T, payload event.Payload) {
	t.Helper()
	f.clock++
	env, err := event.New(stream, payload, "node-a", f.clock, "")
	require.NoError(t, err)
	require.NoError(t, f.store.Append(stream, env, queue.StatusPending))
}

func TestBuild_JoinFocusDrive(t *testing.T) {
	f := newFixture(t)
	f.emit(t, event.JoinedPayload{ParticipantID: "p1", DisplayName: "Ada", Role: "driver"})
	f.emit(t, event.FocusPayload{ParticipantID: "p1", Target: "wp:WP01"})
	f.emit(t, event.DrivePayload{ParticipantID: "p1", Intent: event.DriveActive})

	snapshots, err := f.view.Build(stream)
	require.NoError(t, err)
	require.Len(t, snapshots, 1)

	snap := snapshots["p1"]
	assert.Equal(t, "Ada", snap.DisplayName)
	assert.Equal(t, "wp:WP01", snap.Focus)
	assert.Equal(t, event.DriveActive, snap.DriveIntent)
	assert.False(t, snap.LastActivityAt.IsZero())
}

func TestBuild_UnknownParticipantIsDropped(t *testing.T) {
	f := newFixture(t)
	f.emit(t, event.JoinedPayload{ParticipantID: "p1"})
	// p2 never joined: everything it does is invisible to the fold.
	f.emit(t, event.FocusPayload{ParticipantID: "p2", Target: "wp:WP01"})
	f.emit(t, event.DrivePayload{ParticipantID: "p2", Intent: event.DriveActive})

	snapshots, err := f.view.Build(stream)
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	assert.Contains(t, snapshots, "p1")
	assert.NotContains(t, snapshots, "p2")
}

func TestBuild_DuplicateJoinIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.emit(t, event.JoinedPayload{ParticipantID: "p1", DisplayName: "Ada"})
	f.emit(t, event.FocusPayload{ParticipantID: "p1", Target: "wp:WP01"})
	f.emit(t, event.JoinedPayload{ParticipantID: "p1", DisplayName: "Impostor"})

	snapshots, err := f.view.Build(stream)
	require.NoError(t, err)

	snap := snapshots["p1"]
	assert.Equal(t, "Ada", snap.DisplayName, "first join wins")
	assert.Equal(t, "wp:WP01", snap.Focus, "replayed join must not reset state")
}

func TestBuild_FocusChangeReleasesPrevious(t *testing.T) {
	f := newFixture(t)
	f.emit(t, event.JoinedPayload{ParticipantID: "p1"})
	f.emit(t, event.FocusPayload{ParticipantID: "p1", Target: "wp:WP01"})
	f.emit(t, event.FocusPayload{ParticipantID: "p1", Target: "wp:WP02"})

	snapshots, err := f.view.Build(stream)
	require.NoError(t, err)
	assert.Equal(t, "wp:WP02", snapshots["p1"].Focus)
}

func TestBuild_IsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.emit(t, event.JoinedPayload{ParticipantID: "p1"})
	f.emit(t, event.JoinedPayload{ParticipantID: "p2"})
	f.emit(t, event.FocusPayload{ParticipantID: "p1", Target: "wp:WP01"})
	f.emit(t, event.DrivePayload{ParticipantID: "p1", Intent: event.DriveActive})
	f.emit(t, event.CommentPayload{ParticipantID: "p2", Body: "watching"})

	first, err := f.view.Build(stream)
	require.NoError(t, err)
	second, err := f.view.Build(stream)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestBuild_EmptyLog(t *testing.T) {
	f := newFixture(t)
	snapshots, err := f.view.Build(stream)
	require.NoError(t, err)
	assert.Empty(t, snapshots)
}
