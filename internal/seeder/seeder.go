// Package seeder fills a local queue with synthetic mission activity
// for demos and fixtures: participants join, pick focus targets,
// start and stop driving, and comment along the way.
package seeder

import (
	"fmt"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/crewmesh-systems/crewmesh/internal/clock"
	"github.com/crewmesh-systems/crewmesh/internal/event"
	"github.com/crewmesh-systems/crewmesh/internal/queue"
)

// Options shapes the generated activity.
type Options struct {
	// Participants joining the mission.
	Participants int
	// Events emitted after the joins.
	Events int
	// FocusTargets is the size of the synthetic work-package pool.
	FocusTargets int
	// Seed makes generation reproducible when non-zero.
	Seed int64
}

// Seeder appends synthetic events to a queue store.
type Seeder struct {
	store *queue.Store
	clk   *clock.Clock
}

// New builds a seeder over the given store and clock.
func New(store *queue.Store, clk *clock.Clock) *Seeder {
	return &Seeder{store: store, clk: clk}
}

// Seed generates opts.Participants joins followed by opts.Events
// random focus/drive/comment events, all appended pending. Returns
// the total number of events written.
func (s *Seeder) Seed(missionID string, opts Options) (int, error) {
	if opts.Participants <= 0 {
		opts.Participants = 3
	}
	if opts.Events <= 0 {
		opts.Events = 20
	}
	if opts.FocusTargets <= 0 {
		opts.FocusTargets = 5
	}

	faker := gofakeit.New(opts.Seed)

	targets := make([]string, opts.FocusTargets)
	for i := range targets {
		targets[i] = fmt.Sprintf("wp:WP%02d", i+1)
	}

	participants := make([]string, opts.Participants)
	total := 0
	for i := range participants {
		participants[i] = fmt.Sprintf("seed-%s", faker.Username())
		err := s.emit(missionID, event.JoinedPayload{
			ParticipantID: participants[i],
			DisplayName:   faker.Name(),
			Role:          faker.RandomString([]string{"driver", "reviewer", "observer"}),
		})
		if err != nil {
			return total, err
		}
		total++
	}

	// Track per-participant state locally so the generated stream is
	// internally consistent (no drive without focus, no redundant
	// self-transitions).
	focus := make(map[string]string)
	driving := make(map[string]bool)

	for i := 0; i < opts.Events; i++ {
		who := participants[faker.Number(0, len(participants)-1)]

		var payload event.Payload
		switch faker.Number(0, 3) {
		case 0:
			target := targets[faker.Number(0, len(targets)-1)]
			if focus[who] == target {
				target = targets[(faker.Number(0, len(targets)-1)+1)%len(targets)]
			}
			focus[who] = target
			payload = event.FocusPayload{ParticipantID: who, Target: target}
		case 1:
			if focus[who] == "" || driving[who] {
				driving[who] = false
				payload = event.DrivePayload{ParticipantID: who, Intent: event.DriveInactive}
			} else {
				driving[who] = true
				payload = event.DrivePayload{ParticipantID: who, Intent: event.DriveActive}
			}
		default:
			payload = event.CommentPayload{ParticipantID: who, Body: faker.HackerPhrase()}
		}

		if err := s.emit(missionID, payload); err != nil {
			return total, err
		}
		total++
	}

	return total, nil
}

func (s *Seeder) emit(missionID string, payload event.Payload) error {
	tick, err := s.clk.Increment()
	if err != nil {
		return err
	}
	env, err := event.New(missionID, payload, s.clk.NodeID(), tick, "")
	if err != nil {
		return err
	}
	return s.store.Append(missionID, env, queue.StatusPending)
}
