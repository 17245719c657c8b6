package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"patient-record-sharing/internal/domain/accessgrants"
)

type AccessGrantsRepo struct {
	db *sql.DB
}

func NewAccessGrantsRepo(db *sql.DB) *AccessGrantsRepo {
	return &AccessGrantsRepo{db: db}
}

const grantColumns = `
	id, patient_id, share_token,
	granted_to, granted_to_org, granted_by, granted_by_org,
	access_type, status, permissions, is_active, expires_at,
	requested_at, granted_at, denied_at, denied_by,
	revoked_at, revoked_by, updated_at
`

func (r *AccessGrantsRepo) Create(ctx context.Context, g accessgrants.Grant) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO access_grants (
			id, patient_id, share_token,
			granted_to, granted_to_org, granted_by, granted_by_org,
			access_type, status, permissions, is_active, expires_at,
			requested_at, granted_at, denied_at, denied_by,
			revoked_at, revoked_by, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
	`,
		g.ID,
		g.PatientID,
		g.ShareToken,
		g.GrantedTo,
		g.GrantedToOrg,
		g.GrantedBy,
		g.GrantedByOrg,
		string(g.AccessType),
		string(g.Status),
		permissionsToTextArray(g.Permissions),
		g.IsActive,
		toNullTime(g.ExpiresAt),
		g.RequestedAt,
		toNullTime(g.GrantedAt),
		toNullTime(g.DeniedAt),
		g.DeniedBy,
		toNullTime(g.RevokedAt),
		g.RevokedBy,
		g.UpdatedAt,
	)
	if err != nil {
		// El índice parcial (patient_id, granted_to) sobre grants
		// abiertos cubre la carrera entre dos requests concurrentes.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return accessgrants.ErrConflict
		}
		return err
	}
	return nil
}

func (r *AccessGrantsRepo) Update(ctx context.Context, g accessgrants.Grant) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE access_grants
		SET
			granted_to_org = $2,
			granted_by = $3,
			access_type = $4,
			status = $5,
			permissions = $6,
			is_active = $7,
			expires_at = $8,
			granted_at = $9,
			denied_at = $10,
			denied_by = $11,
			revoked_at = $12,
			revoked_by = $13,
			updated_at = $14
		WHERE id = $1
	`,
		g.ID,
		g.GrantedToOrg,
		g.GrantedBy,
		string(g.AccessType),
		string(g.Status),
		permissionsToTextArray(g.Permissions),
		g.IsActive,
		toNullTime(g.ExpiresAt),
		toNullTime(g.GrantedAt),
		toNullTime(g.DeniedAt),
		g.DeniedBy,
		toNullTime(g.RevokedAt),
		g.RevokedBy,
		g.UpdatedAt,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *AccessGrantsRepo) GetByID(ctx context.Context, id string) (accessgrants.Grant, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return accessgrants.Grant{}, ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT `+grantColumns+`
		FROM access_grants
		WHERE id = $1
	`, id)

	return scanGrant(row)
}

func (r *AccessGrantsRepo) ListByPatient(ctx context.Context, patientID string) ([]accessgrants.Grant, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+grantColumns+`
		FROM access_grants
		WHERE patient_id = $1
		ORDER BY requested_at ASC
	`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectGrants(rows)
}

func (r *AccessGrantsRepo) ListByGrantee(ctx context.Context, granteeUserID string) ([]accessgrants.Grant, error) {
	granteeUserID = strings.TrimSpace(granteeUserID)
	if granteeUserID == "" {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+grantColumns+`
		FROM access_grants
		WHERE granted_to = $1
		ORDER BY updated_at DESC
	`, granteeUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectGrants(rows)
}

func (r *AccessGrantsRepo) ActiveFor(ctx context.Context, patientID, granteeUserID string) (accessgrants.Grant, error) {
	patientID = strings.TrimSpace(patientID)
	granteeUserID = strings.TrimSpace(granteeUserID)
	if patientID == "" || granteeUserID == "" {
		return accessgrants.Grant{}, ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT `+grantColumns+`
		FROM access_grants
		WHERE patient_id = $1
		  AND granted_to = $2
		  AND status = 'approved'
		  AND is_active
		ORDER BY updated_at DESC
		LIMIT 1
	`, patientID, granteeUserID)

	return scanGrant(row)
}

func (r *AccessGrantsRepo) ListExpired(ctx context.Context, now time.Time) ([]accessgrants.Grant, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+grantColumns+`
		FROM access_grants
		WHERE status = 'approved'
		  AND expires_at IS NOT NULL
		  AND expires_at < $1
	`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectGrants(rows)
}

func scanGrant(row rowScanner) (accessgrants.Grant, error) {
	var g accessgrants.Grant
	var accessType, status string
	var permissions []string
	var expiresAt, grantedAt, deniedAt, revokedAt sql.NullTime

	if err := row.Scan(
		&g.ID,
		&g.PatientID,
		&g.ShareToken,
		&g.GrantedTo,
		&g.GrantedToOrg,
		&g.GrantedBy,
		&g.GrantedByOrg,
		&accessType,
		&status,
		&permissions,
		&g.IsActive,
		&expiresAt,
		&g.RequestedAt,
		&grantedAt,
		&deniedAt,
		&g.DeniedBy,
		&revokedAt,
		&g.RevokedBy,
		&g.UpdatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return accessgrants.Grant{}, ErrNotFound
		}
		return accessgrants.Grant{}, err
	}

	g.AccessType = accessgrants.AccessType(accessType)
	g.Status = accessgrants.Status(status)
	g.Permissions = textArrayToPermissions(permissions)
	g.ExpiresAt = fromNullTime(expiresAt)
	g.GrantedAt = fromNullTime(grantedAt)
	g.DeniedAt = fromNullTime(deniedAt)
	g.RevokedAt = fromNullTime(revokedAt)

	return g, nil
}

func collectGrants(rows *sql.Rows) ([]accessgrants.Grant, error) {
	out := make([]accessgrants.Grant, 0)
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// helpers
func permissionsToTextArray(in []accessgrants.Permission) []string {
	if len(in) == 0 {
		return []string{}
	}
	out := make([]string, 0, len(in))
	for _, p := range in {
		out = append(out, string(p))
	}
	return out
}

func textArrayToPermissions(in []string) []accessgrants.Permission {
	if len(in) == 0 {
		return []accessgrants.Permission{}
	}
	out := make([]accessgrants.Permission, 0, len(in))
	for _, p := range in {
		out = append(out, accessgrants.Permission(p))
	}
	return out
}
