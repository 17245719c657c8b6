package postgres

import (
	"context"
	"database/sql"
	"strings"

	"patient-record-sharing/internal/domain/documents"
)

type DocumentsRepo struct {
	db *sql.DB
}

func NewDocumentsRepo(db *sql.DB) *DocumentsRepo {
	return &DocumentsRepo{db: db}
}

func (r *DocumentsRepo) Create(ctx context.Context, d documents.Document) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO documents (
			id, patient_id, file_name, content_type, size_bytes, storage_key,
			uploaded_by, uploaded_by_org, uploaded_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`,
		d.ID,
		d.PatientID,
		d.FileName,
		d.ContentType,
		d.SizeBytes,
		d.StorageKey,
		d.UploadedBy,
		d.UploadedByOrg,
		d.UploadedAt,
	)
	return err
}

func (r *DocumentsRepo) ListByPatient(ctx context.Context, patientID string) ([]documents.Document, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, patient_id, file_name, content_type, size_bytes, storage_key,
		       uploaded_by, uploaded_by_org, uploaded_at
		FROM documents
		WHERE patient_id = $1
		ORDER BY uploaded_at ASC
	`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]documents.Document, 0)
	for rows.Next() {
		var d documents.Document
		if err := rows.Scan(
			&d.ID,
			&d.PatientID,
			&d.FileName,
			&d.ContentType,
			&d.SizeBytes,
			&d.StorageKey,
			&d.UploadedBy,
			&d.UploadedByOrg,
			&d.UploadedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, d)
	}

	return out, rows.Err()
}
