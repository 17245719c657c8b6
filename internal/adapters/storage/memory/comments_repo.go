package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"patient-record-sharing/internal/domain/comments"
)

type commentRepo struct {
	mu   sync.RWMutex
	byID map[string]comments.Comment
}

func NewCommentsRepo() comments.Repository {
	return &commentRepo{
		byID: make(map[string]comments.Comment),
	}
}

func (r *commentRepo) Create(ctx context.Context, c comments.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c.ID == "" {
		return errors.New("comment id required")
	}
	if _, exists := r.byID[c.ID]; exists {
		return errors.New("comment already exists")
	}
	r.byID[c.ID] = c
	return nil
}

func (r *commentRepo) ListByPatient(ctx context.Context, patientID string) ([]comments.Comment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]comments.Comment, 0)
	for _, c := range r.byID {
		if c.PatientID == patientID {
			out = append(out, c)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	return out, nil
}
