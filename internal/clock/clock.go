// Package clock implements the per-node Lamport clock that orders
// events across offline/online transitions. Wall-clock time is never
// consulted; only the logical counter is authoritative.
package clock

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Clock is a persistent Lamport clock for one node. Counters for all
// nodes sharing a machine live in one keyed file so test fixtures can
// run several nodes against the same state directory without
// cross-contaminating each other.
type Clock struct {
	nodeID string
	path   string
}

// New returns a clock for nodeID persisted at path. The file is
// created lazily on the first Increment or Observe.
func New(nodeID, path string) *Clock {
	return &Clock{nodeID: nodeID, path: path}
}

// NodeID returns the node identifier this clock advances for.
func (c *Clock) NodeID() string {
	return c.nodeID
}

// Current reads the counter without advancing it. A missing or
// unreadable file yields zero: logical clocks only need to be
// monotonic within a node's own history, so starting over is a safe
// degradation rather than data loss.
func (c *Clock) Current() int64 {
	return c.load()[c.nodeID]
}

// Increment advances the counter by one, persists it, and returns the
// new value. Called whenever this node produces an event.
func (c *Clock) Increment() (int64, error) {
	counters := c.load()
	next := counters[c.nodeID] + 1
	counters[c.nodeID] = next
	if err := c.store(counters); err != nil {
		return 0, err
	}
	return next, nil
}

// Observe folds in a remote ordering hint: the counter becomes
// max(local, remote) + 1. Used during reconciliation with the remote
// ingestion service.
func (c *Clock) Observe(remote int64) (int64, error) {
	counters := c.load()
	next := counters[c.nodeID]
	if remote > next {
		next = remote
	}
	next++
	counters[c.nodeID] = next
	if err := c.store(counters); err != nil {
		return 0, err
	}
	return next, nil
}

func (c *Clock) load() map[string]int64 {
	counters := make(map[string]int64)

	data, err := os.ReadFile(c.path)
	if err != nil {
		return counters
	}
	if err := yaml.Unmarshal(data, &counters); err != nil {
		// Corrupt state file: fall back to zero for every node.
		return make(map[string]int64)
	}
	return counters
}

// store writes the full counter map with write-temp-then-rename so a
// crash mid-write can never leave a torn file behind.
func (c *Clock) store(counters map[string]int64) error {
	data, err := yaml.Marshal(counters)
	if err != nil {
		return fmt.Errorf("marshal clock state: %w", err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create clock directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".clock-*.tmp")
	if err != nil {
		return fmt.Errorf("create clock temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod clock temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write clock state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync clock state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close clock temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), c.path); err != nil {
		return fmt.Errorf("replace clock state: %w", err)
	}
	return nil
}
