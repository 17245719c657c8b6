package patients

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
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

type CreateInput struct {
	FullName   string
	Sex        string
	BirthDate  *time.Time
	MedicareNo string
	Notes      string
}

func (s *Service) Create(ctx context.Context, ownerOrgID string, in CreateInput) (Patient, error) {
	ownerOrgID = strings.TrimSpace(ownerOrgID)
	if ownerOrgID == "" {
		return Patient{}, ErrInvalidInput
	}
	if strings.TrimSpace(in.FullName) == "" {
		return Patient{}, ErrInvalidInput
	}

	sex := Sex(strings.TrimSpace(in.Sex))
	if sex == "" {
		sex = SexUnknown
	}

	now := s.now()
	p := Patient{
		ID:         uuid.NewString(),
		OwnerOrgID: ownerOrgID,
		ShareToken: NewShareToken(),
		FullName:   strings.TrimSpace(in.FullName),
		Sex:        sex,
		BirthDate:  in.BirthDate,
		MedicareNo: strings.TrimSpace(in.MedicareNo),
		Notes:      strings.TrimSpace(in.Notes),
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return Patient{}, err
	}
	return p, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Patient, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Patient{}, ErrInvalidInput
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByOrg(ctx context.Context, orgID string) ([]Patient, error) {
	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.ListByOrg(ctx, orgID)
}

// Deactivate apaga el flag Active (soft delete). Los grants quedan como
// historial; la visibilidad se corta porque ningún path devuelve
// pacientes inactivos.
func (s *Service) Deactivate(ctx context.Context, patientID, callerOrgID string) error {
	patientID = strings.TrimSpace(patientID)
	callerOrgID = strings.TrimSpace(callerOrgID)
	if patientID == "" || callerOrgID == "" {
		return ErrInvalidInput
	}

	p, err := s.repo.GetByID(ctx, patientID)
	if err != nil {
		return ErrNotFound
	}
	if p.OwnerOrgID != callerOrgID {
		return ErrForbidden
	}
	if !p.Active {
		// Idempotente
		return nil
	}

	p.Active = false
	p.UpdatedAt = s.now()
	return s.repo.Update(ctx, p)
}
