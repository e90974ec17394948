// Package session caches the remotely-issued participant identity and
// bearer credential per mission. This core never mints participant
// IDs; it only stores what the identity service handed out at join
// time and serves it back to the engine and the replay transport.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"gopkg.in/yaml.v3"
)

// ErrNoSession is returned when a mission has no cached identity yet,
// i.e. the participant has not joined.
var ErrNoSession = errors.New("no session for mission, join first")

// Session is one mission's cached identity.
type Session struct {
	ParticipantID string    `yaml:"participant_id"`
	Token         string    `yaml:"token"`
	JoinedAt      time.Time `yaml:"joined_at"`
}

// Store is the YAML-backed session cache, one file for all missions.
type Store struct {
	Missions map[string]*Session `yaml:"missions"`
	path     string
}

// DefaultPath returns ~/.crewmesh/session.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".crewmesh", "session.yaml"), nil
}

// Load reads the session cache at path; a missing file yields an
// empty store.
func Load(path string) (*Store, error) {
	store := &Store{Missions: make(map[string]*Session), path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return store, nil
		}
		return nil, fmt.Errorf("read session cache: %w", err)
	}
	if err := yaml.Unmarshal(data, store); err != nil {
		return nil, fmt.Errorf("parse session cache: %w", err)
	}
	if store.Missions == nil {
		store.Missions = make(map[string]*Session)
	}
	return store, nil
}

// Save writes the cache back, owner-only.
func (s *Store) Save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session cache: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("write session cache: %w", err)
	}
	return nil
}

// Put stores the identity issued for a mission and persists the cache.
func (s *Store) Put(missionID, participantID, token string) error {
	if participantID == "" {
		return fmt.Errorf("participant id is required")
	}
	s.Missions[missionID] = &Session{
		ParticipantID: participantID,
		Token:         token,
		JoinedAt:      time.Now().UTC(),
	}
	return s.Save()
}

// Participant returns the cached participant ID for a mission.
func (s *Store) Participant(missionID string) (string, error) {
	sess, ok := s.Missions[missionID]
	if !ok || sess.ParticipantID == "" {
		return "", ErrNoSession
	}
	return sess.ParticipantID, nil
}

// Token returns the cached bearer credential for a mission. Satisfies
// the replay transport's TokenProvider.
func (s *Store) Token(missionID string) (string, error) {
	sess, ok := s.Missions[missionID]
	if !ok || sess.Token == "" {
		return "", ErrNoSession
	}
	return sess.Token, nil
}

// TokenExpiry inspects the cached token's exp claim without verifying
// the signature (verification is the server's job; this is a local
// freshness hint so the CLI can warn before a doomed replay). The
// second return is false when the token is opaque or carries no exp.
func (s *Store) TokenExpiry(missionID string) (time.Time, bool) {
	sess, ok := s.Missions[missionID]
	if !ok || sess.Token == "" {
		return time.Time{}, false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(sess.Token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// TokenExpired reports whether the cached token is past its exp
// claim. Opaque tokens are never reported expired.
func (s *Store) TokenExpired(missionID string) bool {
	exp, ok := s.TokenExpiry(missionID)
	return ok && time.Now().After(exp)
}
