package comments

import "context"

type Repository interface {
	Create(ctx context.Context, c Comment) error
	ListByPatient(ctx context.Context, patientID string) ([]Comment, error)
}
