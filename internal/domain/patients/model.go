package patients

import "time"

// Sex del paciente.
// @Enum male, female, other, unknown
type Sex string

const (
	SexMale    Sex = "male"
	SexFemale  Sex = "female"
	SexOther   Sex = "other"
	SexUnknown Sex = "unknown"
)

// Patient es un registro clínico propiedad de exactamente una organización.
// El ShareToken es el handle público e inmutable con el que otras
// organizaciones inician una solicitud de acceso.
type Patient struct {
	ID         string
	OwnerOrgID string

	// Capability string, formato PAT-XXXX-XXXX-XXXX. No cambia nunca.
	ShareToken string

	FullName   string
	Sex        Sex
	BirthDate  *time.Time
	MedicareNo string
	Notes      string

	// Soft delete: solo la organización dueña lo apaga.
	Active bool

	CreatedAt time.Time
	UpdatedAt time.Time
}
