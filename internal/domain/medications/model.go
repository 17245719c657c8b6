package medications

import "time"

type Status string

const (
	StatusActive       Status = "active"
	StatusDiscontinued Status = "discontinued"
)

// Prescriber es quién cargó/modificó la medicación: usuario + su org.
// La org puede diferir de la dueña del paciente (acceso por grant).
type Prescriber struct {
	UserID string
	OrgID  string
}

// Medication es un sub-registro del paciente. Nunca se borra;
// discontinuar es un cambio de status.
type Medication struct {
	ID        string
	PatientID string

	Name         string
	Dosage       string // "500mg"
	Frequency    string // "cada 8 horas"
	Instructions string

	Prescriber Prescriber
	Status     Status

	CreatedAt time.Time
	UpdatedAt time.Time
}
