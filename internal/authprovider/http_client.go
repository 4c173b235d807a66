package authprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPClient talks to a GoTrue-style admin API with a service-role key.
type HTTPClient struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
}

// NewHTTPClient creates a provider client. baseURL is the root of the
// provider's auth API, serviceKey its admin credential.
func NewHTTPClient(baseURL, serviceKey string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		serviceKey: serviceKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type createIdentityRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	EmailConfirm bool   `json:"email_confirm"`
}

type listIdentitiesResponse struct {
	Users []Identity `json:"users"`
}

// CreateIdentity registers a confirmed identity with the given credentials.
func (c *HTTPClient) CreateIdentity(ctx context.Context, email, password string) (*Identity, error) {
	var identity Identity
	err := c.do(ctx, http.MethodPost, "/admin/users", createIdentityRequest{
		Email:        email,
		Password:     password,
		EmailConfirm: true,
	}, &identity)
	if err != nil {
		return nil, err
	}
	return &identity, nil
}

// FindIdentityByEmail scans the provider's user listing for an email.
// The provider keys identities by its own IDs, so lookup goes through the
// listing the same way the admin console does.
func (c *HTTPClient) FindIdentityByEmail(ctx context.Context, email string) (*Identity, error) {
	var listing listIdentitiesResponse
	if err := c.do(ctx, http.MethodGet, "/admin/users", nil, &listing); err != nil {
		return nil, err
	}

	for i := range listing.Users {
		if strings.EqualFold(listing.Users[i].Email, email) {
			return &listing.Users[i], nil
		}
	}

	return nil, ErrIdentityNotFound
}

// UpdateIdentity applies a partial update to an identity.
func (c *HTTPClient) UpdateIdentity(ctx context.Context, id string, update IdentityUpdate) error {
	return c.do(ctx, http.MethodPut, "/admin/users/"+id, update, nil)
}

// DeleteIdentity removes an identity.
func (c *HTTPClient) DeleteIdentity(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/admin/users/"+id, nil, nil)
}

type providerErrorBody struct {
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	ErrorDescription string `json:"error_description"`
}

func (b providerErrorBody) text() string {
	switch {
	case b.Msg != "":
		return b.Msg
	case b.Message != "":
		return b.Message
	case b.ErrorDescription != "":
		return b.ErrorDescription
	}
	return ""
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal provider request: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create provider request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("apikey", c.serviceKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("auth provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errBody providerErrorBody
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		msg := errBody.text()
		if msg == "" {
			msg = resp.Status
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode provider response: %w", err)
		}
	}

	return nil
}
