package postgres

import (
	"context"
	"database/sql"
	"strings"

	"patient-record-sharing/internal/domain/comments"
)

type CommentsRepo struct {
	db *sql.DB
}

func NewCommentsRepo(db *sql.DB) *CommentsRepo {
	return &CommentsRepo{db: db}
}

func (r *CommentsRepo) Create(ctx context.Context, c comments.Comment) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO comments (
			id, patient_id, author_user_id, author_org_id, body, created_at
		) VALUES ($1,$2,$3,$4,$5,$6)
	`,
		c.ID,
		c.PatientID,
		c.Author.UserID,
		c.Author.OrgID,
		c.Body,
		c.CreatedAt,
	)
	return err
}

func (r *CommentsRepo) ListByPatient(ctx context.Context, patientID string) ([]comments.Comment, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, patient_id, author_user_id, author_org_id, body, created_at
		FROM comments
		WHERE patient_id = $1
		ORDER BY created_at ASC
	`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]comments.Comment, 0)
	for rows.Next() {
		var c comments.Comment
		if err := rows.Scan(
			&c.ID,
			&c.PatientID,
			&c.Author.UserID,
			&c.Author.OrgID,
			&c.Body,
			&c.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, c)
	}

	return out, rows.Err()
}
