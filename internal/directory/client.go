// Package directory resolves user ids to contact identities through the
// user-directory service, wrapping the remote calls in resilience policies.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/taskhub/taskhub-api/internal/domain"
)

// ErrUserNotFound is returned when the directory has no record for the id.
// It is not a transient failure: retrying will not resolve the user.
var ErrUserNotFound = errors.New("user not found in directory")

// Client is the raw user-directory client, without resilience policies.
type Client interface {
	// GetUser resolves a single user id.
	// Returns ErrUserNotFound if the directory has no record.
	GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetUsers resolves a set of ids in one call. Ids absent from the
	// returned map are unresolved individually; the batch as a whole only
	// fails on transport errors.
	GetUsers(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.User, error)
}

// HTTPClient talks to the user-directory service over HTTP.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates a directory client for the given base URL.
// The timeout bounds each individual request.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Ensure HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)

// GetUser implements Client.GetUser via GET /users/{id}.
func (c *HTTPClient) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	url := fmt.Sprintf("%s/users/%s", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build directory request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("directory request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
		var user domain.User
		if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
			return nil, fmt.Errorf("failed to decode directory response: %w", err)
		}
		return &user, nil
	case http.StatusNotFound:
		return nil, ErrUserNotFound
	default:
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("directory returned status %d", resp.StatusCode)
	}
}

// GetUsers implements Client.GetUsers via POST /users/batch with a JSON
// array of ids. The response maps id to user; missing ids stay missing.
func (c *HTTPClient) GetUsers(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.User, error) {
	body, err := json.Marshal(ids)
	if err != nil {
		return nil, fmt.Errorf("failed to encode id batch: %w", err)
	}

	url := c.baseURL + "/users/batch"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build directory request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("directory request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("directory returned status %d", resp.StatusCode)
	}

	var users map[uuid.UUID]*domain.User
	if err := json.NewDecoder(resp.Body).Decode(&users); err != nil {
		return nil, fmt.Errorf("failed to decode directory response: %w", err)
	}
	return users, nil
}
