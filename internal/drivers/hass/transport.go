package hass

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// maxResponseBody caps how much of a hub response is read.
const maxResponseBody = 1 << 20

// Transport is the channel to the hub. Both calls are one-shot: no retry,
// no backoff.
type Transport interface {
	// GetState fetches the state and attributes of one entity.
	GetState(ctx context.Context, entityID string) (*EntityState, error)

	// CallService posts one service call.
	CallService(ctx context.Context, cmd HubCommand) error
}

// HTTPTransport talks to the Home Assistant REST API with a long-lived
// bearer token.
//
// Thread Safety: safe for concurrent use.
type HTTPTransport struct {
	baseURL string
	token   string
	client  *http.Client
	logger  Logger
}

// NewHTTPTransport creates a transport for cfg. A nil client gets a
// dedicated http.Client with the configured request timeout.
func NewHTTPTransport(cfg Config, client *http.Client, logger Logger) *HTTPTransport {
	if client == nil {
		client = &http.Client{Timeout: cfg.requestTimeout()}
	}
	return &HTTPTransport{
		baseURL: cfg.BaseURL(),
		token:   cfg.AccessToken,
		client:  client,
		logger:  logger,
	}
}

// GetState performs GET /api/states/{entity_id}. Only HTTP 200 succeeds.
func (t *HTTPTransport) GetState(ctx context.Context, entityID string) (*EntityState, error) {
	endpoint := t.baseURL + "/api/states/" + url.PathEscape(entityID)
	body, err := t.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var state EntityState
	if err := json.Unmarshal(body, &state); err != nil {
		return nil, &HubError{
			Method:     http.MethodGet,
			URL:        endpoint,
			StatusCode: http.StatusOK,
			Body:       truncate(body),
			Err:        fmt.Errorf("decoding entity state: %w", err),
		}
	}
	if state.EntityID == "" {
		state.EntityID = entityID
	}
	return &state, nil
}

// CallService performs POST /api/services/{domain}/{service}.
func (t *HTTPTransport) CallService(ctx context.Context, cmd HubCommand) error {
	payload, err := json.Marshal(cmd.Body)
	if err != nil {
		return fmt.Errorf("encoding service call %s: %w", cmd.Path(), err)
	}
	if _, err := t.do(ctx, http.MethodPost, t.baseURL+cmd.Path(), payload); err != nil {
		return err
	}
	if t.logger != nil {
		t.logger.Info("hub service call succeeded",
			"service", cmd.Domain+"."+cmd.Service,
			"entity_id", cmd.Body["entity_id"],
		)
	}
	return nil
}

// do sends one request and returns the body of a 200 response.
func (t *HTTPTransport) do(ctx context.Context, method, endpoint string, payload []byte) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, &HubError{Method: method, URL: endpoint, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+t.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, &HubError{Method: method, URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, &HubError{Method: method, URL: endpoint, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &HubError{Method: method, URL: endpoint, StatusCode: resp.StatusCode, Body: truncate(body)}
	}
	return body, nil
}

// maxErrorBody limits how much response text is kept on a HubError.
const maxErrorBody = 512

func truncate(body []byte) string {
	if len(body) > maxErrorBody {
		return string(body[:maxErrorBody]) + "..."
	}
	return string(body)
}
