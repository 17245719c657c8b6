package documents

import "time"

// Document es solo metadata: los bytes viven en un storage externo y
// se referencian por StorageKey opaco. Este servicio nunca mueve archivos.
type Document struct {
	ID        string
	PatientID string

	FileName    string
	ContentType string
	SizeBytes   int64
	StorageKey  string

	UploadedBy    string // user id
	UploadedByOrg string

	UploadedAt time.Time
}
