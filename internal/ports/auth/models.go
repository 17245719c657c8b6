package auth

// Role dentro de una organización.
// Por ahora solo se transporta en claims; el gating real de grants es por organización.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
	RoleViewer Role = "viewer"
)

// Claims representa la información extraída del token.
// OrganizationID es la organización "casa" del usuario (farmacia, clínica u hospital).
type Claims struct {
	UserID         string
	Email          string
	OrganizationID string
	Role           Role
}
