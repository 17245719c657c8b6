package documents

import "context"

type Repository interface {
	Create(ctx context.Context, d Document) error
	ListByPatient(ctx context.Context, patientID string) ([]Document, error)
}
