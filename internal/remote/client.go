// Package remote is the HTTP client for the shared ingestion service.
// The service is an external collaborator: this client submits
// envelope batches and interprets verdicts, nothing more.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/crewmesh-systems/crewmesh/internal/event"
)

// SchemaVersion is the batch wire-format version. Envelope identity
// is versionless; the batch wrapper carries the version so the schema
// owner can evolve the contract around it.
const SchemaVersion = 1

// Verdict is the server's per-event decision.
type Verdict string

const (
	VerdictAccepted Verdict = "accepted"
	// VerdictDuplicate means the event was already ingested. Batches
	// are safe to repeat; duplicates are treated exactly like accepts.
	VerdictDuplicate Verdict = "duplicate"
	VerdictRejected  Verdict = "rejected"
)

// EventResult is one verdict from a batch submission.
type EventResult struct {
	EventID string  `json:"event_id"`
	Verdict Verdict `json:"verdict"`
	Reason  string  `json:"reason,omitempty"`
}

// BatchResponse carries the per-event verdicts plus an optional
// high-water logical clock the caller can feed to clock.Observe.
type BatchResponse struct {
	Results      []EventResult `json:"results"`
	LogicalClock int64         `json:"logical_clock,omitempty"`
}

type batchRequest struct {
	SchemaVersion int              `json:"schema_version"`
	MissionID     string           `json:"mission_id"`
	Events        []event.Envelope `json:"events"`
}

// TransientError marks a failure worth retrying: network error,
// timeout, 429, or 5xx. Anything else from the server is definitive.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err is retryable.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// TokenProvider supplies the bearer credential for batch submissions.
// Implemented by the session layer.
type TokenProvider interface {
	Token(missionID string) (string, error)
}

// Client submits envelope batches to the ingestion endpoint.
type Client struct {
	baseURL    string
	tokens     TokenProvider
	httpClient *http.Client
}

// NewClient builds a client with an explicit request timeout; a
// replay attempt must never block indefinitely.
func NewClient(baseURL string, tokens TokenProvider, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		tokens:     tokens,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SubmitBatch POSTs up to 100 envelopes and returns per-event
// verdicts. Transient failures come back wrapped in TransientError so
// the replay transport can decide whether to back off and retry.
func (c *Client) SubmitBatch(ctx context.Context, missionID string, envelopes []event.Envelope) (*BatchResponse, error) {
	token, err := c.tokens.Token(missionID)
	if err != nil {
		return nil, fmt.Errorf("resolve credentials: %w", err)
	}

	body, err := json.Marshal(batchRequest{
		SchemaVersion: SchemaVersion,
		MissionID:     missionID,
		Events:        envelopes,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal batch: %w", err)
	}

	url := c.baseURL + "/api/v1/missions/" + missionID + "/events"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Connection failures and client timeouts are retryable.
		return nil, &TransientError{Err: fmt.Errorf("send batch: %w", err)}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, &TransientError{Err: fmt.Errorf("ingestion status %d", resp.StatusCode)}
	default:
		var errBody map[string]string
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		return nil, fmt.Errorf("ingestion status %d: %s", resp.StatusCode, errBody["message"])
	}

	var result BatchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &TransientError{Err: fmt.Errorf("decode batch response: %w", err)}
	}
	return &result, nil
}
