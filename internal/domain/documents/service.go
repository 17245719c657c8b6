package documents

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

type RegisterInput struct {
	FileName    string
	ContentType string
	SizeBytes   int64
	StorageKey  string
}

// Register deja constancia de un archivo ya subido al storage externo.
func (s *Service) Register(ctx context.Context, patientID, uploaderUserID, uploaderOrgID string, in RegisterInput) (Document, error) {
	patientID = strings.TrimSpace(patientID)
	uploaderUserID = strings.TrimSpace(uploaderUserID)

	if patientID == "" || uploaderUserID == "" {
		return Document{}, ErrInvalidInput
	}
	if strings.TrimSpace(in.FileName) == "" || strings.TrimSpace(in.StorageKey) == "" {
		return Document{}, ErrInvalidInput
	}
	if in.SizeBytes < 0 {
		return Document{}, ErrInvalidInput
	}

	d := Document{
		ID:            uuid.NewString(),
		PatientID:     patientID,
		FileName:      strings.TrimSpace(in.FileName),
		ContentType:   strings.TrimSpace(in.ContentType),
		SizeBytes:     in.SizeBytes,
		StorageKey:    strings.TrimSpace(in.StorageKey),
		UploadedBy:    uploaderUserID,
		UploadedByOrg: strings.TrimSpace(uploaderOrgID),
		UploadedAt:    s.now(),
	}

	if err := s.repo.Create(ctx, d); err != nil {
		return Document{}, err
	}
	return d, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID string) ([]Document, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.ListByPatient(ctx, patientID)
}
