// Package clients contains thin REST clients for the insurance platform
// services the funnel consumes. Every client normalizes backend shapes at
// this boundary; nothing deeper branches on wire formats.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/ahmetcantryk/sigorka-new-ui-sub002/internal/config"
	"github.com/ahmetcantryk/sigorka-new-ui-sub002/internal/session"
)

// genericFailureMessage is surfaced when the platform returns no structured
// message.
const genericFailureMessage = "The operation could not be completed. Please try again."

// Platform is the shared client for all insurance platform endpoints.
type Platform struct {
	baseURL    string
	agentID    string
	channel    string
	httpClient *http.Client
}

// NewPlatform creates a Platform client from configuration.
func NewPlatform(cfg config.PlatformConfig) *Platform {
	return &Platform{
		baseURL: cfg.BaseURL,
		agentID: cfg.AgentID,
		channel: cfg.Channel,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// AgentID returns the configured agency identifier sent with login calls.
func (p *Platform) AgentID() string { return p.agentID }

// Channel returns the configured sales channel tag sent with proposals.
func (p *Platform) Channel() string { return p.channel }

// do performs one JSON request against the platform. A non-nil token reader
// attaches the session's bearer token. out may be nil for calls whose body
// is irrelevant; a 2xx response with an empty body leaves out untouched and
// returns errEmptyBody so callers can distinguish bodiless success.
func (p *Platform) do(ctx context.Context, method, path string, tok session.TokenReader, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok != nil {
		if token := tok.AccessToken(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return &RequestError{StatusCode: 0, Message: genericFailureMessage}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &RequestError{StatusCode: resp.StatusCode, Message: genericFailureMessage}
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &RequestError{
			StatusCode: resp.StatusCode,
			Message:    firstStructuredMessage(raw),
		}
	}

	if out == nil {
		return nil
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return errEmptyBody
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &RequestError{StatusCode: resp.StatusCode, Message: genericFailureMessage}
	}
	return nil
}

// errEmptyBody marks a 2xx response whose body was empty.
var errEmptyBody = fmt.Errorf("empty response body")

// apiErrorEnvelope covers both error shapes the platform uses: a top-level
// message and a list of structured errors.
type apiErrorEnvelope struct {
	Message string `json:"message"`
	Errors  []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// firstStructuredMessage extracts the first structured server message from
// an error body, falling back to the generic message.
func firstStructuredMessage(raw []byte) string {
	var envelope apiErrorEnvelope
	if err := json.Unmarshal(raw, &envelope); err == nil {
		for _, e := range envelope.Errors {
			if e.Message != "" {
				return e.Message
			}
		}
		if envelope.Message != "" {
			return envelope.Message
		}
	}
	return genericFailureMessage
}
