package postgres

import (
	"context"
	"database/sql"
	"strings"

	"patient-record-sharing/internal/domain/patients"
)

type PatientsRepo struct {
	db *sql.DB
}

func NewPatientsRepo(db *sql.DB) *PatientsRepo {
	return &PatientsRepo{db: db}
}

const patientColumns = `
	id, owner_org_id, share_token,
	full_name, sex, birth_date, medicare_no, notes,
	active, created_at, updated_at
`

func (r *PatientsRepo) Create(ctx context.Context, p patients.Patient) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO patients (
			id, owner_org_id, share_token,
			full_name, sex, birth_date, medicare_no, notes,
			active, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`,
		p.ID,
		p.OwnerOrgID,
		p.ShareToken,
		p.FullName,
		string(p.Sex),
		toNullTime(p.BirthDate),
		p.MedicareNo,
		p.Notes,
		p.Active,
		p.CreatedAt,
		p.UpdatedAt,
	)
	return err
}

func (r *PatientsRepo) Update(ctx context.Context, p patients.Patient) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE patients
		SET
			full_name = $2,
			sex = $3,
			birth_date = $4,
			medicare_no = $5,
			notes = $6,
			active = $7,
			updated_at = $8
		WHERE id = $1
	`,
		p.ID,
		p.FullName,
		string(p.Sex),
		toNullTime(p.BirthDate),
		p.MedicareNo,
		p.Notes,
		p.Active,
		p.UpdatedAt,
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

func (r *PatientsRepo) GetByID(ctx context.Context, id string) (patients.Patient, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return patients.Patient{}, ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT `+patientColumns+`
		FROM patients
		WHERE id = $1
	`, id)

	return scanPatient(row)
}

func (r *PatientsRepo) GetByShareToken(ctx context.Context, token string) (patients.Patient, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return patients.Patient{}, ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT `+patientColumns+`
		FROM patients
		WHERE share_token = $1
	`, token)

	return scanPatient(row)
}

func (r *PatientsRepo) ListByOrg(ctx context.Context, orgID string) ([]patients.Patient, error) {
	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+patientColumns+`
		FROM patients
		WHERE owner_org_id = $1
		ORDER BY created_at ASC
	`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]patients.Patient, 0)
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}

	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPatient(row rowScanner) (patients.Patient, error) {
	var p patients.Patient
	var sex string
	var bd sql.NullTime

	if err := row.Scan(
		&p.ID,
		&p.OwnerOrgID,
		&p.ShareToken,
		&p.FullName,
		&sex,
		&bd,
		&p.MedicareNo,
		&p.Notes,
		&p.Active,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return patients.Patient{}, ErrNotFound
		}
		return patients.Patient{}, err
	}

	p.Sex = patients.Sex(sex)
	p.BirthDate = fromNullTime(bd)

	return p, nil
}
