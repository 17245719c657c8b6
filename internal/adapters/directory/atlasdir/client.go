package atlasdir

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"patient-record-sharing/internal/platform/httpclient"
	"patient-record-sharing/internal/ports/directory"
)

var (
	ErrDirNotConfigured = errors.New("atlas directory client not configured")
	ErrDirUpstream      = errors.New("atlas directory upstream error")
)

type Config struct {
	BaseURL string
	APIKey  string

	APIKeyHeader string
	Timeout      time.Duration
}

// Client resuelve perfiles de usuario contra el directorio de Atlas.
// Implementa directory.Directory.
type Client struct {
	http         *httpclient.Client
	apiKey       string
	apiKeyHeader string
	configured   bool
}

func NewClient(cfg Config) (*Client, error) {
	h := strings.TrimSpace(cfg.APIKeyHeader)
	if h == "" {
		h = "X-Api-Key"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return &Client{}, nil
	}

	hc, err := httpclient.NewWithBaseURL(baseURL, timeout)
	if err != nil {
		return nil, err
	}

	return &Client{
		http:         hc,
		apiKey:       strings.TrimSpace(cfg.APIKey),
		apiKeyHeader: h,
		configured:   true,
	}, nil
}

func (c *Client) IsConfigured() bool {
	return c != nil && c.configured
}

// Lookup trae el perfil de un usuario por id.
// TODO(atlas): ajustar path/fields cuando exista contrato real.
func (c *Client) Lookup(ctx context.Context, userID string) (directory.UserProfile, error) {
	if !c.IsConfigured() {
		return directory.UserProfile{}, ErrDirNotConfigured
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return directory.UserProfile{}, errors.New("userID required")
	}

	var out struct {
		ID               string `json:"id"`
		Name             string `json:"name"`
		Email            string `json:"email"`
		OrganizationID   string `json:"organization_id"`
		OrganizationName string `json:"organization_name"`
	}

	headers := map[string]string{c.apiKeyHeader: c.apiKey}
	path := "/v1/users/" + userID

	if err := c.http.DoJSON(ctx, http.MethodGet, path, headers, nil, &out); err != nil {
		return directory.UserProfile{}, fmt.Errorf("%w: %v", ErrDirUpstream, err)
	}

	out.ID = strings.TrimSpace(out.ID)
	if out.ID == "" {
		return directory.UserProfile{}, errors.New("atlas directory response missing id")
	}

	return directory.UserProfile{
		ID:               out.ID,
		Name:             strings.TrimSpace(out.Name),
		Email:            strings.TrimSpace(out.Email),
		OrganizationID:   strings.TrimSpace(out.OrganizationID),
		OrganizationName: strings.TrimSpace(out.OrganizationName),
	}, nil
}
