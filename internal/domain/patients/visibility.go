package patients

import (
	"context"
	"sort"
	"time"

	"patient-record-sharing/internal/domain/accessgrants"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// VisiblePatient es un paciente anotado con cómo lo ve el caller:
// propio (isShared=false, permisos completos) o compartido vía grant.
type VisiblePatient struct {
	Patient

	IsShared    bool
	AccessType  accessgrants.AccessType
	Permissions []accessgrants.Permission

	// Solo para acceso cross-org.
	GrantID   string
	ExpiresAt *time.Time
}

// VisibilityResolver computa qué pacientes puede ver un caller:
// los de su organización más los compartidos hacia él por grant.
type VisibilityResolver struct {
	patients *Service
	grants   *accessgrants.Service
	now      func() time.Time
}

func NewVisibilityResolver(patients *Service, grants *accessgrants.Service) *VisibilityResolver {
	return &VisibilityResolver{
		patients: patients,
		grants:   grants,
		now:      time.Now,
	}
}

// ListVisible mergea (a) pacientes activos de la org del caller y
// (b) pacientes con grant approved+activo hacia el caller, sin expirar
// (expirados se filtran, no se mutan). Dedup por id de paciente: si el
// paciente es propio, gana ownership y aparece una sola vez como no
// compartido. Orden por created_at desc, luego offset/limit.
//
// Full scan + merge + paginación en memoria: asumible a la escala
// esperada por organización. Si el volumen crece, la paginación tiene
// que bajar al storage.
func (v *VisibilityResolver) ListVisible(ctx context.Context, userID, orgID string, limit, offset int) ([]VisiblePatient, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	now := v.now()
	out := make([]VisiblePatient, 0)
	seen := map[string]struct{}{}

	if orgID != "" {
		own, err := v.patients.ListByOrg(ctx, orgID)
		if err != nil {
			return nil, err
		}
		for _, p := range own {
			if !p.Active {
				continue
			}
			seen[p.ID] = struct{}{}
			out = append(out, VisiblePatient{
				Patient:     p,
				IsShared:    false,
				AccessType:  accessgrants.AccessSameOrganization,
				Permissions: accessgrants.FullPermissions(),
			})
		}
	}

	granted, err := v.grants.ListByGrantee(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, g := range granted {
		if !g.Usable(now) {
			continue
		}
		// Sin `view` el grant habilita otras operaciones, no el perfil.
		if !accessgrants.HasPermission(g, accessgrants.PermissionView) {
			continue
		}
		if _, ok := seen[g.PatientID]; ok {
			// Ya visible por ownership; un grant viejo no lo re-taggea.
			continue
		}

		p, err := v.patients.GetByID(ctx, g.PatientID)
		if err != nil || !p.Active {
			continue
		}

		seen[p.ID] = struct{}{}
		out = append(out, VisiblePatient{
			Patient:     p,
			IsShared:    true,
			AccessType:  g.AccessType,
			Permissions: g.Permissions,
			GrantID:     g.ID,
			ExpiresAt:   g.ExpiresAt,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if offset >= len(out) {
		return []VisiblePatient{}, nil
	}
	end := offset + limit
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end], nil
}

// GetOneVisible responde la pregunta de acceso para un solo paciente.
// NotFound si no existe o está inactivo; Forbidden si el caller no es
// de la org dueña y no tiene grant vigente.
func (v *VisibilityResolver) GetOneVisible(ctx context.Context, userID, orgID, patientID string) (VisiblePatient, error) {
	p, err := v.patients.GetByID(ctx, patientID)
	if err != nil {
		return VisiblePatient{}, ErrNotFound
	}
	if !p.Active {
		return VisiblePatient{}, ErrNotFound
	}

	if orgID != "" && p.OwnerOrgID == orgID {
		return VisiblePatient{
			Patient:     p,
			IsShared:    false,
			AccessType:  accessgrants.AccessSameOrganization,
			Permissions: accessgrants.FullPermissions(),
		}, nil
	}

	g, err := v.grants.ActiveGrant(ctx, patientID, userID)
	if err != nil {
		return VisiblePatient{}, ErrForbidden
	}
	if !accessgrants.HasPermission(g, accessgrants.PermissionView) {
		return VisiblePatient{}, ErrForbidden
	}

	return VisiblePatient{
		Patient:     p,
		IsShared:    true,
		AccessType:  g.AccessType,
		Permissions: g.Permissions,
		GrantID:     g.ID,
		ExpiresAt:   g.ExpiresAt,
	}, nil
}
