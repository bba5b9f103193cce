package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/bootcamp-checkout/internal/model"
)

// ErrUserNotFound is returned when the provider has no such account.
var ErrUserNotFound = errors.New("user not found")

// AdminClient calls the Supabase Auth admin API with the service role key.
type AdminClient struct {
	baseURL    string
	serviceKey string
	adminRole  string
	http       *http.Client
}

// NewAdminClient constructs an AdminClient for the project at baseURL.
func NewAdminClient(baseURL, serviceKey, adminRole string, timeout time.Duration) *AdminClient {
	return &AdminClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		adminRole:  adminRole,
		http:       &http.Client{Timeout: timeout},
	}
}

type providerUser struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	CreatedAt    time.Time      `json:"created_at"`
	LastSignInAt *time.Time     `json:"last_sign_in_at"`
	AppMetadata  appMetadata    `json:"app_metadata"`
	UserMetadata map[string]any `json:"user_metadata"`
}

// ListUsers returns one page of accounts (page is 1-based).
func (c *AdminClient) ListUsers(ctx context.Context, page, perPage int) ([]model.User, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))

	var body struct {
		Users []providerUser `json:"users"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth/v1/admin/users?"+q.Encode(), &body); err != nil {
		return nil, err
	}

	users := make([]model.User, 0, len(body.Users))
	for _, u := range body.Users {
		users = append(users, model.User{
			ID:           u.ID,
			Email:        u.Email,
			Name:         displayName(u.UserMetadata),
			IsAdmin:      u.AppMetadata.IsAdmin || (c.adminRole != "" && u.AppMetadata.Role == c.adminRole),
			CreatedAt:    u.CreatedAt,
			LastSignInAt: u.LastSignInAt,
		})
	}
	return users, nil
}

// DeleteUser removes an account at the provider.
func (c *AdminClient) DeleteUser(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/auth/v1/admin/users/"+url.PathEscape(id), nil)
}

func (c *AdminClient) do(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("auth admin %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrUserNotFound
	}
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("auth admin %s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode auth admin response: %w", err)
	}
	return nil
}
