package patients

import "context"

type Repository interface {
	Create(ctx context.Context, p Patient) error
	Update(ctx context.Context, p Patient) error
	GetByID(ctx context.Context, id string) (Patient, error)
	GetByShareToken(ctx context.Context, token string) (Patient, error)
	ListByOrg(ctx context.Context, orgID string) ([]Patient, error)
}
