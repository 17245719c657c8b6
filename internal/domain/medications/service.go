package medications

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
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

type AddInput struct {
	Name         string
	Dosage       string
	Frequency    string
	Instructions string
}

func (s *Service) Add(ctx context.Context, patientID string, prescriber Prescriber, in AddInput) (Medication, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return Medication{}, ErrInvalidInput
	}
	if strings.TrimSpace(in.Name) == "" {
		return Medication{}, ErrInvalidInput
	}
	if strings.TrimSpace(prescriber.UserID) == "" {
		return Medication{}, ErrInvalidInput
	}

	now := s.now()
	m := Medication{
		ID:           uuid.NewString(),
		PatientID:    patientID,
		Name:         strings.TrimSpace(in.Name),
		Dosage:       strings.TrimSpace(in.Dosage),
		Frequency:    strings.TrimSpace(in.Frequency),
		Instructions: strings.TrimSpace(in.Instructions),
		Prescriber:   prescriber,
		Status:       StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, m); err != nil {
		return Medication{}, err
	}
	return m, nil
}

// UpdateInput usa punteros para PATCH real: nil = no tocar.
type UpdateInput struct {
	Name         *string
	Dosage       *string
	Frequency    *string
	Instructions *string
	Status       *Status
}

func (s *Service) Update(ctx context.Context, patientID, medicationID string, editor Prescriber, in UpdateInput) (Medication, error) {
	medicationID = strings.TrimSpace(medicationID)
	if medicationID == "" {
		return Medication{}, ErrInvalidInput
	}

	m, err := s.repo.GetByID(ctx, medicationID)
	if err != nil {
		return Medication{}, ErrNotFound
	}
	// La medicación tiene que colgar del paciente de la URL.
	if m.PatientID != strings.TrimSpace(patientID) {
		return Medication{}, ErrNotFound
	}

	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return Medication{}, ErrInvalidInput
		}
		m.Name = strings.TrimSpace(*in.Name)
	}
	if in.Dosage != nil {
		m.Dosage = strings.TrimSpace(*in.Dosage)
	}
	if in.Frequency != nil {
		m.Frequency = strings.TrimSpace(*in.Frequency)
	}
	if in.Instructions != nil {
		m.Instructions = strings.TrimSpace(*in.Instructions)
	}
	if in.Status != nil {
		switch *in.Status {
		case StatusActive, StatusDiscontinued:
			m.Status = *in.Status
		default:
			return Medication{}, ErrInvalidInput
		}
	}

	m.Prescriber = editor
	m.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, m); err != nil {
		return Medication{}, err
	}
	return m, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID string) ([]Medication, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.ListByPatient(ctx, patientID)
}
