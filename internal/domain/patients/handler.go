package patients

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"patient-record-sharing/internal/domain/accessgrants"
	"patient-record-sharing/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service, vis *VisibilityResolver) {
	r.Route("/patients", func(pr chi.Router) {
		pr.Post("/", createPatientHandler(svc))

		// Lista mergeada: propios + compartidos conmigo
		pr.Get("/", listVisiblePatientsHandler(vis))

		pr.Get("/{patientID}", getPatientHandler(vis))
		pr.Delete("/{patientID}", deactivatePatientHandler(svc))
	})
}

type createPatientRequest struct {
	FullName   string `json:"full_name"`
	Sex        string `json:"sex"`
	BirthDate  string `json:"birth_date"` // YYYY-MM-DD opcional
	MedicareNo string `json:"medicare_no"`
	Notes      string `json:"notes"`
}

type patientResponse struct {
	ID         string     `json:"id"`
	OwnerOrgID string     `json:"owner_org_id"`
	ShareToken string     `json:"share_token,omitempty"`
	FullName   string     `json:"full_name"`
	Sex        Sex        `json:"sex"`
	BirthDate  *time.Time `json:"birth_date,omitempty"`
	MedicareNo string     `json:"medicare_no,omitempty"`
	Notes      string     `json:"notes,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

type visiblePatientResponse struct {
	patientResponse

	IsShared    bool                      `json:"is_shared"`
	AccessType  accessgrants.AccessType   `json:"access_type"`
	Permissions []accessgrants.Permission `json:"permissions"`
	GrantID     string                    `json:"grant_id,omitempty"`
	ExpiresAt   *time.Time                `json:"expires_at,omitempty"`
}

func createPatientHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if strings.TrimSpace(claims.OrganizationID) == "" {
			http.Error(w, "organization required", http.StatusForbidden)
			return
		}

		var req createPatientRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		var bd *time.Time
		if strings.TrimSpace(req.BirthDate) != "" {
			t, err := time.Parse("2006-01-02", req.BirthDate)
			if err != nil {
				http.Error(w, "birth_date must be YYYY-MM-DD", http.StatusBadRequest)
				return
			}
			bd = &t
		}

		p, err := svc.Create(r.Context(), claims.OrganizationID, CreateInput{
			FullName:   req.FullName,
			Sex:        req.Sex,
			BirthDate:  bd,
			MedicareNo: req.MedicareNo,
			Notes:      req.Notes,
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		writeJSON(w, http.StatusCreated, toPatientResponse(p, true))
	}
}

func listVisiblePatientsHandler(vis *VisibilityResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		limit := parseIntQuery(r, "limit", 0)
		offset := parseIntQuery(r, "offset", 0)

		items, err := vis.ListVisible(r.Context(), claims.UserID, claims.OrganizationID, limit, offset)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]visiblePatientResponse, 0, len(items))
		for _, vp := range items {
			out = append(out, toVisibleResponse(vp))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func getPatientHandler(vis *VisibilityResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		patientID := chi.URLParam(r, "patientID")
		vp, err := vis.GetOneVisible(r.Context(), claims.UserID, claims.OrganizationID, patientID)
		if err != nil {
			switch err {
			case ErrNotFound:
				http.Error(w, "patient not found", http.StatusNotFound)
			case ErrForbidden:
				http.Error(w, "forbidden", http.StatusForbidden)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusOK, toVisibleResponse(vp))
	}
}

func deactivatePatientHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		patientID := chi.URLParam(r, "patientID")
		if err := svc.Deactivate(r.Context(), patientID, claims.OrganizationID); err != nil {
			switch err {
			case ErrInvalidInput:
				http.Error(w, err.Error(), http.StatusBadRequest)
			case ErrNotFound:
				http.Error(w, "patient not found", http.StatusNotFound)
			case ErrForbidden:
				http.Error(w, "forbidden", http.StatusForbidden)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// toPatientResponse: el share token solo viaja hacia la org dueña
// (withToken). Para pacientes compartidos no se expone.
func toPatientResponse(p Patient, withToken bool) patientResponse {
	out := patientResponse{
		ID:         p.ID,
		OwnerOrgID: p.OwnerOrgID,
		FullName:   p.FullName,
		Sex:        p.Sex,
		BirthDate:  p.BirthDate,
		MedicareNo: p.MedicareNo,
		Notes:      p.Notes,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
	if withToken {
		out.ShareToken = p.ShareToken
	}
	return out
}

func toVisibleResponse(vp VisiblePatient) visiblePatientResponse {
	return visiblePatientResponse{
		patientResponse: toPatientResponse(vp.Patient, !vp.IsShared),
		IsShared:        vp.IsShared,
		AccessType:      vp.AccessType,
		Permissions:     vp.Permissions,
		GrantID:         vp.GrantID,
		ExpiresAt:       vp.ExpiresAt,
	}
}

func parseIntQuery(r *http.Request, key string, def int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// writeJSON está duplicado intencionalmente en handlers de distintos módulos
// para no crear helpers compartidos demasiado pronto.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
