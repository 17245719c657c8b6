package accessgrants

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, g Grant) error
	Update(ctx context.Context, g Grant) error
	GetByID(ctx context.Context, id string) (Grant, error)
	ListByPatient(ctx context.Context, patientID string) ([]Grant, error)
	ListByGrantee(ctx context.Context, granteeUserID string) ([]Grant, error)
	ActiveFor(ctx context.Context, patientID, granteeUserID string) (Grant, error)

	// ListExpired devuelve grants approved cuyo expires_at ya pasó.
	// Lo consume el sweep; los paths de lectura nunca mutan por expiración.
	ListExpired(ctx context.Context, now time.Time) ([]Grant, error)
}
