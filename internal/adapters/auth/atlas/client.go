package atlas

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"patient-record-sharing/internal/ports/auth"
)

var (
	ErrAtlasNotConfigured = errors.New("atlas client not configured")
	ErrAtlasUnauthorized  = errors.New("atlas unauthorized")
	ErrAtlasUpstream      = errors.New("atlas upstream error")
)

// Config del cliente Atlas (IAM central).
// BaseURL y APIKey normalmente vendrán de env vars en el servicio que lo instancie.
type Config struct {
	BaseURL string
	APIKey  string

	// Opcional: nombre del header donde se manda la API key.
	// Si está vacío, se usa "X-Api-Key".
	APIKeyHeader string

	// Timeout HTTP (si http.Client es nil, se usa este).
	Timeout time.Duration
}

type Client struct {
	baseURL      string
	apiKey       string
	apiKeyHeader string
	httpClient   *http.Client
}

func NewClient(cfg Config) *Client {
	h := strings.TrimSpace(cfg.APIKeyHeader)
	if h == "" {
		h = "X-Api-Key"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Client{
		baseURL:      strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:       strings.TrimSpace(cfg.APIKey),
		apiKeyHeader: h,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) IsConfigured() bool {
	return c != nil && c.baseURL != "" && c.apiKey != ""
}

// VerifyToken llama a Atlas para verificar un token y traer claims.
// ⚠️ Endpoint/payload: es un placeholder estable para el esqueleto.
// Cuando Atlas esté listo, reemplazar verifyPath + request/response según contrato real.
func (c *Client) VerifyToken(ctx context.Context, token string) (auth.Claims, error) {
	if !c.IsConfigured() {
		return auth.Claims{}, ErrAtlasNotConfigured
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return auth.Claims{}, ErrAtlasUnauthorized
	}

	// TODO(atlas): ajustar path cuando exista contrato real.
	const verifyPath = "/v1/tokens/verify"

	reqBody := map[string]string{
		"token": token,
	}
	b, _ := json.Marshal(reqBody)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+verifyPath, bytes.NewReader(b))
	if err != nil {
		return auth.Claims{}, fmt.Errorf("%w: %v", ErrAtlasUpstream, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(c.apiKeyHeader, c.apiKey)

	// Algunos IAM esperan el token en Authorization, aunque también vaya en body.
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return auth.Claims{}, fmt.Errorf("%w: %v", ErrAtlasUpstream, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// ok
	case http.StatusUnauthorized, http.StatusForbidden:
		return auth.Claims{}, ErrAtlasUnauthorized
	default:
		return auth.Claims{}, fmt.Errorf("%w: status=%d", ErrAtlasUpstream, resp.StatusCode)
	}

	// TODO(atlas): ajustar fields reales. Esto es un formato típico.
	var out struct {
		UserID         string `json:"user_id"`
		Email          string `json:"email"`
		OrganizationID string `json:"organization_id"`
		Role           string `json:"role"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return auth.Claims{}, fmt.Errorf("%w: invalid json: %v", ErrAtlasUpstream, err)
	}

	out.UserID = strings.TrimSpace(out.UserID)
	if out.UserID == "" {
		return auth.Claims{}, errors.New("atlas response missing user_id")
	}

	return auth.Claims{
		UserID:         out.UserID,
		Email:          strings.TrimSpace(out.Email),
		OrganizationID: strings.TrimSpace(out.OrganizationID),
		Role:           auth.Role(strings.TrimSpace(out.Role)),
	}, nil
}
