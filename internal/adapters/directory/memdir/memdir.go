package memdir

import (
	"context"
	"errors"
	"strings"
	"sync"

	"patient-record-sharing/internal/ports/directory"
)

var ErrNotFound = errors.New("user not found")

// Directory en memoria para dev y tests.
// Se siembra a mano con Add; Lookup nunca pega a la red.
type Directory struct {
	mu   sync.RWMutex
	byID map[string]directory.UserProfile
}

func New() *Directory {
	return &Directory{
		byID: make(map[string]directory.UserProfile),
	}
}

// FromEnv arma un directorio desde un string tipo
// "user-1:org-a,user-2:org-b". Pares malformados se ignoran.
// Pensado para sembrar el modo dev vía env var.
func FromEnv(raw string) *Directory {
	d := New()
	for _, pair := range strings.Split(raw, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), ":", 2)
		if len(parts) != 2 {
			continue
		}
		d.Add(directory.UserProfile{
			ID:             strings.TrimSpace(parts[0]),
			OrganizationID: strings.TrimSpace(parts[1]),
		})
	}
	return d
}

func (d *Directory) Add(p directory.UserProfile) {
	p.ID = strings.TrimSpace(p.ID)
	if p.ID == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.byID[p.ID] = p
}

func (d *Directory) Lookup(_ context.Context, userID string) (directory.UserProfile, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return directory.UserProfile{}, ErrNotFound
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.byID[userID]
	if !ok {
		return directory.UserProfile{}, ErrNotFound
	}
	return p, nil
}
