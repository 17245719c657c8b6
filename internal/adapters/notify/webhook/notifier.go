package webhook

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"patient-record-sharing/internal/platform/httpclient"
	"patient-record-sharing/internal/ports/notify"
)

var ErrWebhookNotConfigured = errors.New("webhook notifier not configured")

type Config struct {
	// URL completa del endpoint que recibe eventos (POST).
	URL string

	// Opcional: secreto compartido, va en X-Webhook-Secret.
	Secret string

	Timeout time.Duration
}

// Notifier empuja eventos de grants a un webhook externo.
// Implementa notify.Notifier. El caller ya lo invoca fire-and-forget.
type Notifier struct {
	http   *httpclient.Client
	url    string
	secret string
}

func New(cfg Config) *Notifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Notifier{
		http:   httpclient.New(timeout),
		url:    strings.TrimSpace(cfg.URL),
		secret: strings.TrimSpace(cfg.Secret),
	}
}

func (n *Notifier) IsConfigured() bool {
	return n != nil && n.url != ""
}

func (n *Notifier) Send(ctx context.Context, ev notify.Event) error {
	if !n.IsConfigured() {
		return ErrWebhookNotConfigured
	}

	payload := struct {
		Type           string `json:"type"`
		GrantID        string `json:"grant_id"`
		PatientID      string `json:"patient_id"`
		GranteeUserID  string `json:"grantee_user_id"`
		OwnerOrgID     string `json:"owner_org_id"`
		RequesterOrgID string `json:"requester_org_id,omitempty"`
	}{
		Type:           string(ev.Type),
		GrantID:        ev.GrantID,
		PatientID:      ev.PatientID,
		GranteeUserID:  ev.GranteeUserID,
		OwnerOrgID:     ev.OwnerOrgID,
		RequesterOrgID: ev.RequesterOrgID,
	}

	var headers map[string]string
	if n.secret != "" {
		headers = map[string]string{"X-Webhook-Secret": n.secret}
	}

	return n.http.DoJSON(ctx, http.MethodPost, n.url, headers, payload, nil)
}
