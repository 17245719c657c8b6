package directory

import "context"

// UserProfile es la vista mínima de un usuario que necesita este servicio:
// quién es y a qué organización pertenece.
type UserProfile struct {
	ID               string
	Name             string
	Email            string
	OrganizationID   string
	OrganizationName string
}

// Directory resuelve perfiles de usuario para enriquecer grants
// (nombres de grantee/aprobador) y para resolver la organización
// de un grantee en grants directos.
type Directory interface {
	Lookup(ctx context.Context, userID string) (UserProfile, error)
}
