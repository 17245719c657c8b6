package medications

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
	r.Route("/patients/{patientID}/medications", func(mr chi.Router) {
		mr.Post("/", addMedicationHandler(svc, grantsSvc))
		mr.Get("/", listMedicationsHandler(svc, grantsSvc))
		mr.Patch("/{medicationID}", updateMedicationHandler(svc, grantsSvc))
	})
}

type addMedicationRequest struct {
	Name         string `json:"name"`
	Dosage       string `json:"dosage"`
	Frequency    string `json:"frequency"`
	Instructions string `json:"instructions"`
}

type updateMedicationRequest struct {
	Name         *string `json:"name"`
	Dosage       *string `json:"dosage"`
	Frequency    *string `json:"frequency"`
	Instructions *string `json:"instructions"`
	Status       *Status `json:"status" enums:"active,discontinued"`
}

type medicationResponse struct {
	ID            string    `json:"id"`
	PatientID     string    `json:"patient_id"`
	Name          string    `json:"name"`
	Dosage        string    `json:"dosage,omitempty"`
	Frequency     string    `json:"frequency,omitempty"`
	Instructions  string    `json:"instructions,omitempty"`
	PrescriberID  string    `json:"prescriber_id"`
	PrescriberOrg string    `json:"prescriber_org"`
	Status        Status    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// addMedicationHandler godoc
// @Summary Agregar medicación a un paciente
// @Description Registra una medicación. Staff de la org dueña siempre puede; un usuario de otra org necesita un grant activo con permiso `view_medications`. Autenticación: `X-Debug-User-ID`/`X-Debug-Org-ID` (dev) o `Authorization: Bearer <token>` (prod).
// @Tags medications
// @Accept json
// @Produce json
// @Param patientID path string true "ID del paciente"
// @Param payload body addMedicationRequest true "Datos de la medicación"
// @Success 201 {object} medicationResponse
// @Failure 400 {string} string "invalid json / reglas de negocio"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "patient not found"
// @Router /patients/{patientID}/medications [post]
func addMedicationHandler(svc *Service, grantsSvc *accessgrants.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		patientID := chi.URLParam(r, "patientID")
		if !gate(w, r, grantsSvc, patientID, accessgrants.PermissionViewMedications) {
			return
		}

		var req addMedicationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		m, err := svc.Add(r.Context(), patientID, Prescriber{
			UserID: claims.UserID,
			OrgID:  claims.OrganizationID,
		}, AddInput{
			Name:         req.Name,
			Dosage:       req.Dosage,
			Frequency:    req.Frequency,
			Instructions: req.Instructions,
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		writeJSON(w, http.StatusCreated, toMedicationResponse(m))
	}
}

// listMedicationsHandler godoc
// @Summary Listar medicaciones de un paciente
// @Description Staff de la org dueña siempre puede; cross-org requiere grant activo con `view_medications`.
// @Tags medications
// @Produce json
// @Param patientID path string true "ID del paciente"
// @Success 200 {array} medicationResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "patient not found"
// @Router /patients/{patientID}/medications [get]
func listMedicationsHandler(svc *Service, grantsSvc *accessgrants.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		patientID := chi.URLParam(r, "patientID")
		if !gate(w, r, grantsSvc, patientID, accessgrants.PermissionViewMedications) {
			return
		}

		items, err := svc.ListByPatient(r.Context(), patientID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]medicationResponse, 0, len(items))
		for _, m := range items {
			out = append(out, toMedicationResponse(m))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func updateMedicationHandler(svc *Service, grantsSvc *accessgrants.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		patientID := chi.URLParam(r, "patientID")
		if !gate(w, r, grantsSvc, patientID, accessgrants.PermissionViewMedications) {
			return
		}

		var req updateMedicationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		medicationID := chi.URLParam(r, "medicationID")
		m, err := svc.Update(r.Context(), patientID, medicationID, Prescriber{
			UserID: claims.UserID,
			OrgID:  claims.OrganizationID,
		}, UpdateInput{
			Name:         req.Name,
			Dosage:       req.Dosage,
			Frequency:    req.Frequency,
			Instructions: req.Instructions,
			Status:       req.Status,
		})
		if err != nil {
			switch err {
			case ErrInvalidInput:
				http.Error(w, err.Error(), http.StatusBadRequest)
			case ErrNotFound:
				http.Error(w, "medication not found", http.StatusNotFound)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusOK, toMedicationResponse(m))
	}
}

// gate es el único chequeo de autorización de este módulo: delega todo
// en el access check central. No se duplica lógica de grants acá.
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

func toMedicationResponse(m Medication) medicationResponse {
	return medicationResponse{
		ID:            m.ID,
		PatientID:     m.PatientID,
		Name:          m.Name,
		Dosage:        m.Dosage,
		Frequency:     m.Frequency,
		Instructions:  m.Instructions,
		PrescriberID:  m.Prescriber.UserID,
		PrescriberOrg: m.Prescriber.OrgID,
		Status:        m.Status,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// writeJSON está duplicado intencionalmente en handlers de distintos módulos
// para no crear helpers compartidos demasiado pronto.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
