package accessgrants

import (
	"context"
	"errors"
	"strings"
	"time"

	"patient-record-sharing/internal/platform/logger"
	"patient-record-sharing/internal/ports/directory"
	"patient-record-sharing/internal/ports/notify"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrBadState     = errors.New("invalid state")
	ErrConflict     = errors.New("conflict")
)

// PatientLookup evita importar el paquete patients (rompe ciclos).
// Solo lo mínimo que este módulo necesita saber de un paciente.
type PatientLookup interface {
	// ResolveShareToken devuelve el paciente activo dueño del token.
	ResolveShareToken(ctx context.Context, token string) (patientID, ownerOrgID string, err error)
	// OwnerOrgOf devuelve la organización dueña de un paciente activo.
	OwnerOrgOf(ctx context.Context, patientID string) (string, error)
	// ShareTokenOf devuelve el share token de un paciente activo.
	ShareTokenOf(ctx context.Context, patientID string) (string, error)
}

type Service struct {
	repo     Repository
	patients PatientLookup
	dir      directory.Directory // opcional; enriquecimiento y grants directos
	notifier notify.Notifier     // opcional; fire-and-forget
	log      logger.Logger       // opcional; solo para fallas de notify
	now      func() time.Time
}

func NewService(repo Repository, patients PatientLookup) *Service {
	return &Service{
		repo:     repo,
		patients: patients,
		now:      time.Now,
	}
}

func (s *Service) WithDirectory(d directory.Directory) *Service {
	s.dir = d
	return s
}

func (s *Service) WithNotifier(n notify.Notifier, log logger.Logger) *Service {
	s.notifier = n
	s.log = log
	return s
}

// RequestAccess crea un grant a partir del share token de un paciente.
// Same-org: queda approved+activo de una (no existe paso de aprobación).
// Cross-org: queda pending hasta que el staff de la org dueña decida.
func (s *Service) RequestAccess(ctx context.Context, shareToken, requesterUserID, requesterOrgID string) (Grant, error) {
	shareToken = strings.TrimSpace(shareToken)
	requesterUserID = strings.TrimSpace(requesterUserID)
	requesterOrgID = strings.TrimSpace(requesterOrgID)

	if shareToken == "" || requesterUserID == "" || requesterOrgID == "" {
		return Grant{}, ErrInvalidInput
	}

	patientID, ownerOrgID, err := s.patients.ResolveShareToken(ctx, shareToken)
	if err != nil {
		return Grant{}, ErrNotFound
	}

	// Duplicados: un solo grant no-terminal por (paciente, solicitante).
	// Chequeo atómico dentro de esta llamada; el índice parcial en storage
	// cubre la carrera entre llamadas concurrentes.
	existing, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return Grant{}, err
	}
	now := s.now()
	for _, g := range existing {
		if g.GrantedTo != requesterUserID {
			continue
		}
		if g.Status == StatusPending {
			return Grant{}, ErrConflict
		}
		if g.Usable(now) {
			return Grant{}, ErrConflict
		}
		// Approved pero ya vencido y todavía sin barrer: se cierra acá
		// mismo para liberar el par (paciente, solicitante) antes del
		// insert. El índice parcial de storage no mira expires_at.
		if g.Status == StatusApproved && g.Expired(now) {
			g.Status = StatusRevoked
			g.IsActive = false
			g.RevokedAt = &now
			g.UpdatedAt = now
			if err := s.repo.Update(ctx, g); err != nil {
				return Grant{}, err
			}
		}
	}

	g := Grant{
		ID:           uuid.NewString(),
		PatientID:    patientID,
		ShareToken:   shareToken,
		GrantedTo:    requesterUserID,
		GrantedToOrg: requesterOrgID,
		GrantedByOrg: ownerOrgID,
		Status:       StatusPending,
		Permissions:  []Permission{},
		RequestedAt:  now,
		UpdatedAt:    now,
	}

	if requesterOrgID == ownerOrgID {
		// Relación same-org: auto-aprobada y activa desde la creación.
		g.AccessType = AccessSameOrganization
		g.Status = StatusApproved
		g.IsActive = true
		g.Permissions = FullPermissions()
		g.GrantedAt = &now
	} else {
		g.AccessType = AccessCrossOrganization
	}

	if err := s.repo.Create(ctx, g); err != nil {
		return Grant{}, err
	}

	if g.Status == StatusPending {
		s.dispatch(notify.Event{
			Type:           notify.EventGrantRequested,
			GrantID:        g.ID,
			PatientID:      g.PatientID,
			GranteeUserID:  g.GrantedTo,
			OwnerOrgID:     g.GrantedByOrg,
			RequesterOrgID: g.GrantedToOrg,
		})
	}

	return g, nil
}

// Approve pasa un grant pending a approved.
// Solo el staff de la organización dueña del paciente puede aprobar.
func (s *Service) Approve(ctx context.Context, grantID, approverUserID, approverOrgID string, permissions []Permission, expiresInDays *int) (Grant, error) {
	grantID = strings.TrimSpace(grantID)
	approverUserID = strings.TrimSpace(approverUserID)
	approverOrgID = strings.TrimSpace(approverOrgID)

	if grantID == "" || approverUserID == "" || approverOrgID == "" {
		return Grant{}, ErrInvalidInput
	}

	perms, err := normalizePermissions(permissions)
	if err != nil {
		return Grant{}, err
	}
	if len(perms) == 0 {
		// Default mínimo para no dejar un grant approved sin permisos.
		perms = []Permission{PermissionView}
	}

	g, err := s.repo.GetByID(ctx, grantID)
	if err != nil {
		return Grant{}, ErrNotFound
	}

	if g.GrantedByOrg != approverOrgID {
		return Grant{}, ErrForbidden
	}
	if !CanTransition(g.Status, StatusApproved) {
		return Grant{}, ErrBadState
	}

	now := s.now()

	g.Status = StatusApproved
	g.IsActive = true
	g.Permissions = perms
	g.ExpiresAt = expiryFrom(now, expiresInDays)
	g.GrantedBy = approverUserID
	g.GrantedAt = &now
	g.UpdatedAt = now

	if err := s.repo.Update(ctx, g); err != nil {
		return Grant{}, err
	}

	s.dispatch(notify.Event{
		Type:          notify.EventGrantApproved,
		GrantID:       g.ID,
		PatientID:     g.PatientID,
		GranteeUserID: g.GrantedTo,
		OwnerOrgID:    g.GrantedByOrg,
	})

	return g, nil
}

// Deny pasa un grant pending a denied (terminal).
func (s *Service) Deny(ctx context.Context, grantID, approverUserID, approverOrgID string) (Grant, error) {
	grantID = strings.TrimSpace(grantID)
	approverUserID = strings.TrimSpace(approverUserID)
	approverOrgID = strings.TrimSpace(approverOrgID)

	if grantID == "" || approverUserID == "" || approverOrgID == "" {
		return Grant{}, ErrInvalidInput
	}

	g, err := s.repo.GetByID(ctx, grantID)
	if err != nil {
		return Grant{}, ErrNotFound
	}

	if g.GrantedByOrg != approverOrgID {
		return Grant{}, ErrForbidden
	}
	if !CanTransition(g.Status, StatusDenied) {
		return Grant{}, ErrBadState
	}

	now := s.now()

	g.Status = StatusDenied
	g.IsActive = false
	g.DeniedAt = &now
	g.DeniedBy = approverUserID
	g.UpdatedAt = now

	if err := s.repo.Update(ctx, g); err != nil {
		return Grant{}, err
	}

	s.dispatch(notify.Event{
		Type:          notify.EventGrantDenied,
		GrantID:       g.ID,
		PatientID:     g.PatientID,
		GranteeUserID: g.GrantedTo,
		OwnerOrgID:    g.GrantedByOrg,
	})

	return g, nil
}

// Revoke es la única salida explícita de approved.
// El sweep de expiración llega al mismo estado terminal por otro camino.
func (s *Service) Revoke(ctx context.Context, grantID, revokerUserID, revokerOrgID string) (Grant, error) {
	grantID = strings.TrimSpace(grantID)
	revokerUserID = strings.TrimSpace(revokerUserID)
	revokerOrgID = strings.TrimSpace(revokerOrgID)

	if grantID == "" || revokerUserID == "" || revokerOrgID == "" {
		return Grant{}, ErrInvalidInput
	}

	g, err := s.repo.GetByID(ctx, grantID)
	if err != nil {
		return Grant{}, ErrNotFound
	}

	if g.GrantedByOrg != revokerOrgID {
		return Grant{}, ErrForbidden
	}
	if !CanTransition(g.Status, StatusRevoked) {
		return Grant{}, ErrBadState
	}

	now := s.now()

	g.Status = StatusRevoked
	g.IsActive = false
	g.RevokedAt = &now
	g.RevokedBy = revokerUserID
	g.UpdatedAt = now

	if err := s.repo.Update(ctx, g); err != nil {
		return Grant{}, err
	}

	s.dispatch(notify.Event{
		Type:          notify.EventGrantRevoked,
		GrantID:       g.ID,
		PatientID:     g.PatientID,
		GranteeUserID: g.GrantedTo,
		OwnerOrgID:    g.GrantedByOrg,
	})

	return g, nil
}

// DirectGrant es el push directo del staff de la org dueña: saltea el
// paso pending. Si ya existe un grant no-terminal para el par
// (paciente, grantee), se actualiza ese registro en lugar de insertar
// una segunda fila.
func (s *Service) DirectGrant(ctx context.Context, patientID, granteeUserID, granterUserID, granterOrgID string, permissions []Permission, expiresInDays *int) (Grant, error) {
	patientID = strings.TrimSpace(patientID)
	granteeUserID = strings.TrimSpace(granteeUserID)
	granterUserID = strings.TrimSpace(granterUserID)
	granterOrgID = strings.TrimSpace(granterOrgID)

	if patientID == "" || granteeUserID == "" || granterUserID == "" || granterOrgID == "" {
		return Grant{}, ErrInvalidInput
	}

	perms, err := normalizePermissions(permissions)
	if err != nil {
		return Grant{}, err
	}
	if len(perms) == 0 {
		perms = []Permission{PermissionView}
	}

	ownerOrgID, err := s.patients.OwnerOrgOf(ctx, patientID)
	if err != nil {
		return Grant{}, ErrNotFound
	}
	if granterOrgID != ownerOrgID {
		return Grant{}, ErrForbidden
	}

	// El grant guarda copia del token del paciente, venga de request o
	// de push directo.
	shareToken, err := s.patients.ShareTokenOf(ctx, patientID)
	if err != nil {
		return Grant{}, ErrNotFound
	}

	if s.dir == nil {
		return Grant{}, ErrNotFound
	}
	grantee, err := s.dir.Lookup(ctx, granteeUserID)
	if err != nil {
		return Grant{}, ErrNotFound
	}

	accessType := AccessCrossOrganization
	if grantee.OrganizationID == ownerOrgID {
		accessType = AccessSameOrganization
	}

	now := s.now()
	expiresAt := expiryFrom(now, expiresInDays)

	// Dedup: si hay un grant no-terminal para el par, se refresca in place.
	existing, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return Grant{}, err
	}
	for _, g := range existing {
		if g.GrantedTo != granteeUserID || g.Status.Terminal() {
			continue
		}

		g.Status = StatusApproved
		g.IsActive = true
		g.AccessType = accessType
		g.ShareToken = shareToken
		g.GrantedToOrg = grantee.OrganizationID
		g.Permissions = perms
		g.ExpiresAt = expiresAt
		g.GrantedBy = granterUserID
		g.GrantedAt = &now
		g.UpdatedAt = now

		if err := s.repo.Update(ctx, g); err != nil {
			return Grant{}, err
		}
		return g, nil
	}

	g := Grant{
		ID:           uuid.NewString(),
		PatientID:    patientID,
		ShareToken:   shareToken,
		GrantedTo:    granteeUserID,
		GrantedToOrg: grantee.OrganizationID,
		GrantedBy:    granterUserID,
		GrantedByOrg: ownerOrgID,
		AccessType:   accessType,
		Status:       StatusApproved,
		IsActive:     true,
		Permissions:  perms,
		ExpiresAt:    expiresAt,
		RequestedAt:  now,
		GrantedAt:    &now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, g); err != nil {
		return Grant{}, err
	}

	s.dispatch(notify.Event{
		Type:          notify.EventGrantApproved,
		GrantID:       g.ID,
		PatientID:     g.PatientID,
		GranteeUserID: g.GrantedTo,
		OwnerOrgID:    g.GrantedByOrg,
	})

	return g, nil
}

// EnrichedGrant agrega nombres resueltos vía directorio, para la vista
// del staff de la org dueña.
type EnrichedGrant struct {
	Grant

	GranteeName    string
	GranteeOrgName string
	ApproverName   string
}

// ListByPatient lista todos los grants de un paciente (historial completo,
// nada se borra). Solo la organización dueña.
func (s *Service) ListByPatient(ctx context.Context, patientID, callerOrgID string) ([]EnrichedGrant, error) {
	patientID = strings.TrimSpace(patientID)
	callerOrgID = strings.TrimSpace(callerOrgID)
	if patientID == "" || callerOrgID == "" {
		return nil, ErrInvalidInput
	}

	ownerOrgID, err := s.patients.OwnerOrgOf(ctx, patientID)
	if err != nil {
		return nil, ErrNotFound
	}
	if callerOrgID != ownerOrgID {
		return nil, ErrForbidden
	}

	items, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	out := make([]EnrichedGrant, 0, len(items))
	for _, g := range items {
		out = append(out, s.enrich(ctx, g))
	}
	return out, nil
}

// ListByGrantee lista los grants que tiene un usuario (su propia vista).
func (s *Service) ListByGrantee(ctx context.Context, granteeUserID string) ([]Grant, error) {
	granteeUserID = strings.TrimSpace(granteeUserID)
	if granteeUserID == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.ListByGrantee(ctx, granteeUserID)
}

// ActiveGrant devuelve el grant vigente de un usuario sobre un paciente.
// Expirado cuenta como inexistente; acá no se muta nada.
func (s *Service) ActiveGrant(ctx context.Context, patientID, granteeUserID string) (Grant, error) {
	patientID = strings.TrimSpace(patientID)
	granteeUserID = strings.TrimSpace(granteeUserID)
	if patientID == "" || granteeUserID == "" {
		return Grant{}, ErrInvalidInput
	}

	g, err := s.repo.ActiveFor(ctx, patientID, granteeUserID)
	if err != nil {
		return Grant{}, ErrNotFound
	}
	if !g.Usable(s.now()) {
		return Grant{}, ErrNotFound
	}
	return g, nil
}

// HasAccess es el gate único que consultan medicaciones, comentarios y
// documentos antes de tocar sub-registros de un paciente.
// Predicado puro: nunca muta grants (la materialización de expirados
// vive en SweepExpired).
func (s *Service) HasAccess(ctx context.Context, patientID, userID, userOrgID string) (bool, error) {
	return s.Allows(ctx, patientID, userID, userOrgID, "")
}

// Allows es HasAccess más el permiso requerido para callers cross-org.
// Staff de la org dueña pasa siempre; un delegado necesita grant vigente
// que incluya perm (perm vacío = solo el gate grueso).
func (s *Service) Allows(ctx context.Context, patientID, userID, userOrgID string, perm Permission) (bool, error) {
	patientID = strings.TrimSpace(patientID)
	userID = strings.TrimSpace(userID)
	if patientID == "" || userID == "" {
		return false, ErrInvalidInput
	}

	ownerOrgID, err := s.patients.OwnerOrgOf(ctx, patientID)
	if err != nil {
		return false, ErrNotFound
	}

	// Staff de la org dueña: acceso incondicional, sin grant de por medio.
	if userOrgID != "" && userOrgID == ownerOrgID {
		return true, nil
	}

	g, err := s.ActiveGrant(ctx, patientID, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if perm != "" && !HasPermission(g, perm) {
		return false, nil
	}
	return true, nil
}

// SweepExpired pasa a revoked todos los grants approved ya expirados.
// Corre por ticker desde main; también se puede invocar explícitamente.
// Mismo efecto terminal que una revocación, sin usuario revocador.
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	now := s.now()

	items, err := s.repo.ListExpired(ctx, now)
	if err != nil {
		return 0, err
	}

	swept := 0
	for _, g := range items {
		if !CanTransition(g.Status, StatusRevoked) {
			continue
		}
		g.Status = StatusRevoked
		g.IsActive = false
		g.RevokedAt = &now
		g.UpdatedAt = now

		if err := s.repo.Update(ctx, g); err != nil {
			return swept, err
		}
		swept++
	}
	return swept, nil
}

func (s *Service) enrich(ctx context.Context, g Grant) EnrichedGrant {
	out := EnrichedGrant{Grant: g}
	if s.dir == nil {
		return out
	}

	// Best-effort: si el directorio falla, los nombres quedan vacíos.
	if p, err := s.dir.Lookup(ctx, g.GrantedTo); err == nil {
		out.GranteeName = p.Name
		out.GranteeOrgName = p.OrganizationName
	}
	if g.GrantedBy != "" {
		if p, err := s.dir.Lookup(ctx, g.GrantedBy); err == nil {
			out.ApproverName = p.Name
		}
	}
	return out
}

func (s *Service) dispatch(ev notify.Event) {
	if s.notifier == nil {
		return
	}
	// Fire-and-forget post-commit; nadie espera el resultado.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.notifier.Send(ctx, ev); err != nil && s.log != nil {
			s.log.Warn("notify failed", map[string]any{
				"event":    string(ev.Type),
				"grant_id": ev.GrantID,
				"err":      err.Error(),
			})
		}
	}()
}

func expiryFrom(now time.Time, days *int) *time.Time {
	if days == nil {
		return nil
	}
	t := now.Add(time.Duration(*days) * 24 * time.Hour)
	return &t
}

func normalizePermissions(in []Permission) ([]Permission, error) {
	allowed := map[Permission]struct{}{
		PermissionView:            {},
		PermissionComment:         {},
		PermissionViewMedications: {},
	}

	seen := map[Permission]struct{}{}
	out := make([]Permission, 0, len(in))

	for _, raw := range in {
		p := Permission(strings.TrimSpace(string(raw)))
		if p == "" {
			continue
		}
		if _, ok := allowed[p]; !ok {
			return nil, ErrInvalidInput
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}

	return out, nil
}
