package comments

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

const maxBodyLen = 4000

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

func (s *Service) Add(ctx context.Context, patientID string, author Author, body string) (Comment, error) {
	patientID = strings.TrimSpace(patientID)
	body = strings.TrimSpace(body)

	if patientID == "" || body == "" {
		return Comment{}, ErrInvalidInput
	}
	if len(body) > maxBodyLen {
		return Comment{}, ErrInvalidInput
	}
	if strings.TrimSpace(author.UserID) == "" {
		return Comment{}, ErrInvalidInput
	}

	c := Comment{
		ID:        uuid.NewString(),
		PatientID: patientID,
		Author:    author,
		Body:      body,
		CreatedAt: s.now(),
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return Comment{}, err
	}
	return c, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID string) ([]Comment, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.ListByPatient(ctx, patientID)
}
