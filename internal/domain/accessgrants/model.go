package accessgrants

import "time"

// Permission es el permiso concedido sobre el paciente compartido.
type Permission string

const (
	PermissionView            Permission = "view"
	PermissionComment         Permission = "comment"
	PermissionViewMedications Permission = "view_medications"
)

// AccessType distingue acceso dentro de la organización dueña vs entre organizaciones.
type AccessType string

const (
	AccessSameOrganization  AccessType = "same_organization"
	AccessCrossOrganization AccessType = "cross_organization"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDenied   Status = "denied"
	StatusRevoked  Status = "revoked"
)

// Transiciones legales del ciclo de vida.
// pending -> approved | denied; approved -> revoked.
// denied y revoked son terminales: no salen de ahí.
var transitions = map[Status]map[Status]struct{}{
	StatusPending:  {StatusApproved: {}, StatusDenied: {}},
	StatusApproved: {StatusRevoked: {}},
}

// CanTransition responde si from -> to es una transición legal.
// Toda mutación de status pasa por acá; ErrBadState solo nace de esta tabla.
func CanTransition(from, to Status) bool {
	allowed, ok := transitions[from]
	if !ok {
		return false
	}
	_, ok = allowed[to]
	return ok
}

// Terminal indica si el status es un sumidero del ciclo de vida.
func (s Status) Terminal() bool {
	return s == StatusDenied || s == StatusRevoked
}

// Grant autoriza a un usuario a ver/modificar datos de un paciente
// fuera de la organización dueña del registro (o deja constancia del
// acceso same-org auto-aprobado).
type Grant struct {
	ID        string
	PatientID string

	// Copia del share token del paciente al momento del grant.
	ShareToken string

	GrantedTo    string // user id del delegado
	GrantedToOrg string

	GrantedBy    string // user id de quien aprobó/otorgó; vacío mientras pending
	GrantedByOrg string // organización dueña del paciente

	AccessType  AccessType
	Status      Status
	Permissions []Permission

	// IsActive solo es true con status=approved y sin expirar.
	IsActive bool

	// nil = nunca expira.
	ExpiresAt *time.Time

	RequestedAt time.Time
	GrantedAt   *time.Time
	DeniedAt    *time.Time
	DeniedBy    string
	RevokedAt   *time.Time
	RevokedBy   string // vacío cuando la revocación vino del sweep de expiración

	UpdatedAt time.Time
}

// Expired responde si el grant ya pasó su expiresAt.
// expiresAt == now todavía cuenta como vigente.
func (g Grant) Expired(now time.Time) bool {
	return g.ExpiresAt != nil && g.ExpiresAt.Before(now)
}

// Usable es la condición única bajo la cual un grant confiere acceso.
func (g Grant) Usable(now time.Time) bool {
	return g.Status == StatusApproved && g.IsActive && !g.Expired(now)
}

// HasPermission valida si el grant incluye un permiso.
func HasPermission(g Grant, p Permission) bool {
	for _, gp := range g.Permissions {
		if gp == p {
			return true
		}
	}
	return false
}

// FullPermissions es el set completo, el que siempre tiene el staff de la
// organización dueña.
func FullPermissions() []Permission {
	return []Permission{PermissionView, PermissionComment, PermissionViewMedications}
}
