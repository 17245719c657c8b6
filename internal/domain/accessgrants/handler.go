package accessgrants

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"patient-record-sharing/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	// Solicitud por share token (el requester puede ser de cualquier org)
	r.Post("/access-requests", requestAccessHandler(svc))

	// Decisiones sobre un grant (staff de la org dueña)
	r.Route("/grants/{grantID}", func(gr chi.Router) {
		gr.Post("/approve", approveGrantHandler(svc))
		gr.Post("/deny", denyGrantHandler(svc))
		gr.Post("/revoke", revokeGrantHandler(svc))
	})

	// Grants de un paciente (staff de la org dueña)
	r.Route("/patients/{patientID}/grants", func(pr chi.Router) {
		pr.Get("/", listGrantsByPatientHandler(svc))
		pr.Post("/", directGrantHandler(svc))
	})

	// Delegado: ver sus propios grants
	r.Get("/me/grants", listMyGrantsHandler(svc))
}

type requestAccessRequest struct {
	ShareToken string `json:"share_token"`
}

type decideGrantRequest struct {
	Permissions   []Permission `json:"permissions"`
	ExpiresInDays *int         `json:"expires_in_days"`
}

type directGrantRequest struct {
	GranteeUserID string       `json:"grantee_user_id"`
	Permissions   []Permission `json:"permissions"`
	ExpiresInDays *int         `json:"expires_in_days"`
}

type grantResponse struct {
	ID           string       `json:"id"`
	PatientID    string       `json:"patient_id"`
	GrantedTo    string       `json:"granted_to"`
	GrantedToOrg string       `json:"granted_to_org"`
	GrantedBy    string       `json:"granted_by,omitempty"`
	GrantedByOrg string       `json:"granted_by_org"`
	AccessType   AccessType   `json:"access_type"`
	Status       Status       `json:"status"`
	Permissions  []Permission `json:"permissions"`
	IsActive     bool         `json:"is_active"`
	ExpiresAt    *time.Time   `json:"expires_at,omitempty"`
	RequestedAt  time.Time    `json:"requested_at"`
	GrantedAt    *time.Time   `json:"granted_at,omitempty"`
	DeniedAt     *time.Time   `json:"denied_at,omitempty"`
	RevokedAt    *time.Time   `json:"revoked_at,omitempty"`
}

type enrichedGrantResponse struct {
	grantResponse

	GranteeName    string `json:"grantee_name,omitempty"`
	GranteeOrgName string `json:"grantee_org_name,omitempty"`
	ApproverName   string `json:"approver_name,omitempty"`
}

func requestAccessHandler(svc *Service) http.HandlerFunc {
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

		var req requestAccessRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		g, err := svc.RequestAccess(r.Context(), req.ShareToken, claims.UserID, claims.OrganizationID)
		if err != nil {
			writeGrantError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toGrantResponse(g))
	}
}

func approveGrantHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req decideGrantRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		grantID := chi.URLParam(r, "grantID")
		g, err := svc.Approve(r.Context(), grantID, claims.UserID, claims.OrganizationID, req.Permissions, req.ExpiresInDays)
		if err != nil {
			writeGrantError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toGrantResponse(g))
	}
}

func denyGrantHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		grantID := chi.URLParam(r, "grantID")
		g, err := svc.Deny(r.Context(), grantID, claims.UserID, claims.OrganizationID)
		if err != nil {
			writeGrantError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toGrantResponse(g))
	}
}

func revokeGrantHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		grantID := chi.URLParam(r, "grantID")
		g, err := svc.Revoke(r.Context(), grantID, claims.UserID, claims.OrganizationID)
		if err != nil {
			writeGrantError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toGrantResponse(g))
	}
}

func directGrantHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req directGrantRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(req.GranteeUserID) == "" {
			http.Error(w, "grantee_user_id required", http.StatusBadRequest)
			return
		}

		patientID := chi.URLParam(r, "patientID")
		g, err := svc.DirectGrant(r.Context(), patientID, req.GranteeUserID, claims.UserID, claims.OrganizationID, req.Permissions, req.ExpiresInDays)
		if err != nil {
			writeGrantError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toGrantResponse(g))
	}
}

func listGrantsByPatientHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		patientID := chi.URLParam(r, "patientID")
		items, err := svc.ListByPatient(r.Context(), patientID, claims.OrganizationID)
		if err != nil {
			writeGrantError(w, err)
			return
		}

		out := make([]enrichedGrantResponse, 0, len(items))
		for _, g := range items {
			out = append(out, enrichedGrantResponse{
				grantResponse:  toGrantResponse(g.Grant),
				GranteeName:    g.GranteeName,
				GranteeOrgName: g.GranteeOrgName,
				ApproverName:   g.ApproverName,
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func listMyGrantsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		// status=pending,approved (CSV opcional)
		allowed := parseStatusFilter(r.URL.Query().Get("status"))

		items, err := svc.ListByGrantee(r.Context(), claims.UserID)
		if err != nil {
			writeGrantError(w, err)
			return
		}

		if len(allowed) > 0 {
			filtered := make([]Grant, 0, len(items))
			for _, g := range items {
				if _, ok := allowed[g.Status]; ok {
					filtered = append(filtered, g)
				}
			}
			items = filtered
		}

		out := make([]grantResponse, 0, len(items))
		for _, g := range items {
			out = append(out, toGrantResponse(g))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func toGrantResponse(g Grant) grantResponse {
	return grantResponse{
		ID:           g.ID,
		PatientID:    g.PatientID,
		GrantedTo:    g.GrantedTo,
		GrantedToOrg: g.GrantedToOrg,
		GrantedBy:    g.GrantedBy,
		GrantedByOrg: g.GrantedByOrg,
		AccessType:   g.AccessType,
		Status:       g.Status,
		Permissions:  g.Permissions,
		IsActive:     g.IsActive,
		ExpiresAt:    g.ExpiresAt,
		RequestedAt:  g.RequestedAt,
		GrantedAt:    g.GrantedAt,
		DeniedAt:     g.DeniedAt,
		RevokedAt:    g.RevokedAt,
	}
}

func parseStatusFilter(raw string) map[Status]struct{} {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := map[Status]struct{}{}
	for _, p := range parts {
		s := Status(strings.TrimSpace(p))
		if s == "" {
			continue
		}
		out[s] = struct{}{}
	}
	return out
}

func writeGrantError(w http.ResponseWriter, err error) {
	switch err {
	case ErrInvalidInput:
		http.Error(w, err.Error(), http.StatusBadRequest)
	case ErrForbidden:
		http.Error(w, "forbidden", http.StatusForbidden)
	case ErrNotFound:
		http.Error(w, "not found", http.StatusNotFound)
	case ErrBadState, ErrConflict:
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// writeJSON está duplicado intencionalmente en handlers de distintos módulos
// para no crear helpers compartidos demasiado pronto.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
