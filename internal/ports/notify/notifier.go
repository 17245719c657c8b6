package notify

import "context"

type EventType string

const (
	EventGrantRequested EventType = "grant_requested"
	EventGrantApproved  EventType = "grant_approved"
	EventGrantDenied    EventType = "grant_denied"
	EventGrantRevoked   EventType = "grant_revoked"
)

// Event es el payload mínimo que se empuja al servicio de notificaciones.
// La entrega real (email, push) vive fuera de este servicio.
type Event struct {
	Type           EventType
	GrantID        string
	PatientID      string
	GranteeUserID  string
	OwnerOrgID     string
	RequesterOrgID string
}

// Notifier envía notificaciones fire-and-forget.
// Los llamadores no consultan el resultado; un error solo se loguea.
type Notifier interface {
	Send(ctx context.Context, ev Event) error
}
