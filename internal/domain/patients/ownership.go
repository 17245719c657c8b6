package patients

import "context"

// Estos dos métodos satisfacen accessgrants.PatientLookup.
// Se exponen como firmas planas para evitar ciclos de imports entre
// módulos (patients -> accessgrants para visibilidad, nunca al revés).

// ResolveShareToken devuelve el paciente ACTIVO dueño del token.
// Token de paciente inactivo => not found, igual que un token inventado.
func (s *Service) ResolveShareToken(ctx context.Context, token string) (string, string, error) {
	p, err := s.repo.GetByShareToken(ctx, token)
	if err != nil {
		return "", "", err
	}
	if !p.Active {
		return "", "", ErrNotFound
	}
	return p.ID, p.OwnerOrgID, nil
}

// OwnerOrgOf devuelve la organización dueña de un paciente activo.
func (s *Service) OwnerOrgOf(ctx context.Context, patientID string) (string, error) {
	p, err := s.repo.GetByID(ctx, patientID)
	if err != nil {
		return "", err
	}
	if !p.Active {
		return "", ErrNotFound
	}
	return p.OwnerOrgID, nil
}

// ShareTokenOf devuelve el share token de un paciente activo.
func (s *Service) ShareTokenOf(ctx context.Context, patientID string) (string, error) {
	p, err := s.repo.GetByID(ctx, patientID)
	if err != nil {
		return "", err
	}
	if !p.Active {
		return "", ErrNotFound
	}
	return p.ShareToken, nil
}
