package comments

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
	r.Route("/patients/{patientID}/comments", func(cr chi.Router) {
		cr.Post("/", addCommentHandler(svc, grantsSvc))
		cr.Get("/", listCommentsHandler(svc, grantsSvc))
	})
}

type addCommentRequest struct {
	Body string `json:"body"`
}

type commentResponse struct {
	ID        string    `json:"id"`
	PatientID string    `json:"patient_id"`
	AuthorID  string    `json:"author_id"`
	AuthorOrg string    `json:"author_org"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

func addCommentHandler(svc *Service, grantsSvc *accessgrants.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		patientID := chi.URLParam(r, "patientID")
		// Comentar cross-org requiere el permiso `comment` del grant.
		if !gate(w, r, grantsSvc, patientID, accessgrants.PermissionComment) {
			return
		}

		var req addCommentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		c, err := svc.Add(r.Context(), patientID, Author{
			UserID: claims.UserID,
			OrgID:  claims.OrganizationID,
		}, req.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		writeJSON(w, http.StatusCreated, toCommentResponse(c))
	}
}

func listCommentsHandler(svc *Service, grantsSvc *accessgrants.Service) http.HandlerFunc {
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

		out := make([]commentResponse, 0, len(items))
		for _, c := range items {
			out = append(out, toCommentResponse(c))
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

func toCommentResponse(c Comment) commentResponse {
	return commentResponse{
		ID:        c.ID,
		PatientID: c.PatientID,
		AuthorID:  c.Author.UserID,
		AuthorOrg: c.Author.OrgID,
		Body:      c.Body,
		CreatedAt: c.CreatedAt,
	}
}

// writeJSON está duplicado intencionalmente en handlers de distintos módulos
// para no crear helpers compartidos demasiado pronto.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
