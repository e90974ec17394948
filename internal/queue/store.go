// Package queue implements the durable, append-only local event log.
// One JSON-lines file per mission holds every envelope the node has
// produced, tagged with replay metadata. Entries are never deleted;
// a delivered entry stays in the log as the audit trail and as input
// to the roster fold.
package queue

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/crewmesh-systems/crewmesh/internal/event"
	"github.com/crewmesh-systems/crewmesh/internal/logging"
)

// Status is the local replay state of a queue entry. The remote
// service never mutates local entries; it only returns verdicts that
// the replay transport translates into these states.
type Status string

const (
	StatusPending   Status = "pending"
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
)

// ErrNotFound is returned by UpdateStatus when an event ID has no
// entry in the stream's log.
var ErrNotFound = errors.New("queue entry not found")

// Entry wraps an envelope with local-only replay metadata. The
// envelope's fields never change after append; only the replay fields
// are rewritten.
type Entry struct {
	event.Envelope
	ReplayStatus Status     `json:"replay_status"`
	RetryCount   int        `json:"retry_count"`
	LastRetryAt  *time.Time `json:"last_retry_at,omitempty"`
}

// Update describes one status rewrite. BumpRetry records a failed
// delivery attempt: RetryCount increments and LastRetryAt is set.
// Definitive rejections set Status without BumpRetry so RetryCount
// reflects transient attempts only.
type Update struct {
	EventID   string
	Status    Status
	BumpRetry bool
}

// Store is the append-only queue for one node. Concurrent CLI
// invocations on the same node serialize through an advisory file
// lock per stream; cross-node coordination is the remote service's
// problem, not the local store's.
type Store struct {
	dir string
	log *logging.Logger
}

// NewStore creates a store rooted at dir, creating it owner-only if
// needed.
func NewStore(dir string, log *logging.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create queue directory: %w", err)
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Store{dir: dir, log: log}, nil
}

// Append durably persists a new entry for streamID. The write is
// line-buffered, flushed, and fsynced before Append returns, so a
// crash mid-append can never leave a torn entry visible to readers:
// either the full line made it to disk or the trailing fragment is
// skipped as corrupt on the next read.
func (s *Store) Append(streamID string, env event.Envelope, status Status) error {
	if err := env.Validate(); err != nil {
		return fmt.Errorf("refusing to append invalid envelope: %w", err)
	}
	if status == "" {
		status = StatusPending
	}

	entry := Entry{Envelope: env, ReplayStatus: status}
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal queue entry: %w", err)
	}

	lock := s.streamLock(streamID)
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock queue for %s: %w", streamID, err)
	}
	defer lock.Unlock()

	f, err := os.OpenFile(s.streamPath(streamID), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("open queue for %s: %w", streamID, err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append queue entry %s: %w", env.EventID, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync queue for %s: %w", streamID, err)
	}
	return nil
}

// ReadPending returns the stream's entries still awaiting delivery,
// in append order.
func (s *Store) ReadPending(streamID string) ([]Entry, error) {
	all, err := s.ReadAll(streamID)
	if err != nil {
		return nil, err
	}

	pending := make([]Entry, 0, len(all))
	for _, e := range all {
		if e.ReplayStatus == StatusPending {
			pending = append(pending, e)
		}
	}
	return pending, nil
}

// ReadAll returns every entry for streamID in append order, all
// statuses. This is the input to the roster fold. A malformed line is
// logged and skipped; one corrupt record never blocks access to the
// rest of the log.
func (s *Store) ReadAll(streamID string) ([]Entry, error) {
	lock := s.streamLock(streamID)
	if err := lock.RLock(); err != nil {
		return nil, fmt.Errorf("lock queue for %s: %w", streamID, err)
	}
	defer lock.Unlock()

	return s.readLocked(streamID)
}

func (s *Store) readLocked(streamID string) ([]Entry, error) {
	f, err := os.Open(s.streamPath(streamID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open queue for %s: %w", streamID, err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}

		var entry Entry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			s.log.Warn("skipping corrupt queue entry",
				logging.Mission(streamID), "line", lineNo, logging.Error(err))
			continue
		}
		if err := entry.Validate(); err != nil {
			s.log.Warn("skipping invalid queue entry",
				logging.Mission(streamID), "line", lineNo, logging.Error(err))
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read queue for %s: %w", streamID, err)
	}
	return entries, nil
}

// UpdateStatus applies replay verdicts. The whole log is rewritten to
// a temp file and renamed into place, so readers either see the old
// statuses or the new ones, never a mix. After it returns, entries
// marked delivered no longer show up in ReadPending.
func (s *Store) UpdateStatus(streamID string, updates ...Update) error {
	if len(updates) == 0 {
		return nil
	}

	lock := s.streamLock(streamID)
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock queue for %s: %w", streamID, err)
	}
	defer lock.Unlock()

	entries, err := s.readLocked(streamID)
	if err != nil {
		return err
	}

	byID := make(map[string]*Entry, len(entries))
	for i := range entries {
		byID[entries[i].EventID] = &entries[i]
	}

	now := time.Now().UTC()
	for _, u := range updates {
		entry, ok := byID[u.EventID]
		if !ok {
			return fmt.Errorf("update %s in %s: %w", u.EventID, streamID, ErrNotFound)
		}
		entry.ReplayStatus = u.Status
		if u.BumpRetry {
			entry.RetryCount++
			t := now
			entry.LastRetryAt = &t
		}
	}

	return s.rewriteLocked(streamID, entries)
}

// RetryFailed flips every failed entry back to pending so an
// operator-triggered replay picks it up again. Returns the number of
// entries requeued.
func (s *Store) RetryFailed(streamID string) (int, error) {
	lock := s.streamLock(streamID)
	if err := lock.Lock(); err != nil {
		return 0, fmt.Errorf("lock queue for %s: %w", streamID, err)
	}
	defer lock.Unlock()

	entries, err := s.readLocked(streamID)
	if err != nil {
		return 0, err
	}

	requeued := 0
	for i := range entries {
		if entries[i].ReplayStatus == StatusFailed {
			entries[i].ReplayStatus = StatusPending
			requeued++
		}
	}
	if requeued == 0 {
		return 0, nil
	}
	if err := s.rewriteLocked(streamID, entries); err != nil {
		return 0, err
	}
	return requeued, nil
}

func (s *Store) rewriteLocked(streamID string, entries []Entry) error {
	tmp, err := os.CreateTemp(s.dir, ".queue-*.tmp")
	if err != nil {
		return fmt.Errorf("create queue temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod queue temp file: %w", err)
	}

	w := bufio.NewWriter(tmp)
	for _, entry := range entries {
		line, err := json.Marshal(entry)
		if err != nil {
			tmp.Close()
			return fmt.Errorf("marshal queue entry %s: %w", entry.EventID, err)
		}
		if _, err := w.Write(append(line, '\n')); err != nil {
			tmp.Close()
			return fmt.Errorf("write queue entry %s: %w", entry.EventID, err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush queue rewrite: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync queue rewrite: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close queue temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.streamPath(streamID)); err != nil {
		return fmt.Errorf("replace queue for %s: %w", streamID, err)
	}
	return nil
}

func (s *Store) streamPath(streamID string) string {
	return filepath.Join(s.dir, sanitize(streamID)+".jsonl")
}

func (s *Store) streamLock(streamID string) *flock.Flock {
	return flock.New(filepath.Join(s.dir, sanitize(streamID)+".lock"))
}

// sanitize keeps stream IDs usable as file names.
func sanitize(streamID string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '_'
		}
	}, streamID)
}
