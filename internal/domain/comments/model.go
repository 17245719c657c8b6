package comments

import "time"

// Author de un comentario: usuario + su org (puede no ser la org dueña).
type Author struct {
	UserID string
	OrgID  string
}

type Comment struct {
	ID        string
	PatientID string

	Author Author
	Body   string

	CreatedAt time.Time
}
