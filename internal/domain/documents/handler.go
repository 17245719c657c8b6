package documents

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"patient-record-sharing/internal/domain/accessgrants"
	"patient-record-sharing/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service, grantsSvc *accessgrants.Service) {
	r.Route("/patients/{patientID}/documents", func(dr chi.Router) {
		dr.Post("/", registerDocumentHandler(svc, grantsSvc))
		dr.Get("/", listDocumentsHandler(svc, grantsSvc))
	})
}

type registerDocumentRequest struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
	StorageKey  string `json:"storage_key"`
}

type documentResponse struct {
	ID            string    `json:"id"`
	PatientID     string    `json:"patient_id"`
	FileName      string    `json:"file_name"`
	ContentType   string    `json:"content_type,omitempty"`
	SizeBytes     int64     `json:"size_bytes"`
	StorageKey    string    `json:"storage_key"`
	UploadedBy    string    `json:"uploaded_by"`
	UploadedByOrg string    `json:"uploaded_by_org"`
	UploadedAt    time.Time `json:"uploaded_at"`
}

func registerDocumentHandler(svc *Service, grantsSvc *accessgrants.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		patientID := chi.URLParam(r, "patientID")
		if !gate(w, r, grantsSvc, patientID, accessgrants.PermissionView) {
			return
		}

		var req registerDocumentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		d, err := svc.Register(r.Context(), patientID, claims.UserID, claims.OrganizationID, RegisterInput{
			FileName:    req.FileName,
			ContentType: req.ContentType,
			SizeBytes:   req.SizeBytes,
			StorageKey:  req.StorageKey,
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		writeJSON(w, http.StatusCreated, toDocumentResponse(d))
	}
}

func listDocumentsHandler(svc *Service, grantsSvc *accessgrants.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		patientID := chi.URLParam(r, "patientID")
		if !gate(w, r, grantsSvc, patientID, accessgrants.PermissionView) {
			return
		}

		items, err := svc.ListByPatient(r.Context(), patientID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]documentResponse, 0, len(items))
		for _, d := range items {
			out = append(out, toDocumentResponse(d))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// gate delega en el access check central; acá no se mira ningún grant.
func gate(w http.ResponseWriter, r *http.Request, grantsSvc *accessgrants.Service, patientID string, perm accessgrants.Permission) bool {
	claims, _ := middleware.GetClaims(r.Context())

	allowed, err := grantsSvc.Allows(r.Context(), patientID, claims.UserID, claims.OrganizationID, perm)
	if err != nil {
		switch err {
		case accessgrants.ErrNotFound:
			http.Error(w, "patient not found", http.StatusNotFound)
		case accessgrants.ErrInvalidInput:
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return false
	}
	if !allowed {
		http.Error(w, "forbidden", http.StatusForbidden)
		return false
	}
	return true
}

func toDocumentResponse(d Document) documentResponse {
	return documentResponse{
		ID:            d.ID,
		PatientID:     d.PatientID,
		FileName:      d.FileName,
		ContentType:   d.ContentType,
		SizeBytes:     d.SizeBytes,
		StorageKey:    d.StorageKey,
		UploadedBy:    d.UploadedBy,
		UploadedByOrg: d.UploadedByOrg,
		UploadedAt:    d.UploadedAt,
	}
}

// writeJSON está duplicado intencionalmente en handlers de distintos módulos
// para no crear helpers compartidos demasiado pronto.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
