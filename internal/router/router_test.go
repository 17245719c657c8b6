package router_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"patient-record-sharing/internal/adapters/directory/memdir"
	"patient-record-sharing/internal/ports/directory"
	"patient-record-sharing/internal/router"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	dir := memdir.New()
	dir.Add(directory.UserProfile{
		ID:               "pharmacist-1",
		Name:             "Ana Quiroga",
		OrganizationID:   "org-pharmacy",
		OrganizationName: "Farmacia Central",
	})

	h, _ := router.NewRouter(router.Options{
		AuthVerifier: nil,
		Directory:    dir,
	})
	return httptest.NewServer(h)
}

func TestHTTP_EndToEnd_CrossOrgSharing(t *testing.T) {
	ts := newTestServer(t)
	defer ts.Close()

	hospitalStaff := user{"doctor-1", "org-hospital"}
	pharmacist := user{"pharmacist-1", "org-pharmacy"}

	// 1) Hospital crea paciente y recibe el share token
	patientID, shareToken := createPatient(t, ts.URL, hospitalStaff, map[string]any{
		"full_name": "Elena Ruiz",
		"sex":       "female",
	})

	// 2) Farmacéutico aún no ve el paciente
	{
		st, _ := doReq(t, ts.URL, "GET", "/patients/"+patientID, pharmacist, nil)
		if st != http.StatusForbidden {
			t.Fatalf("expected 403 before grant, got %d", st)
		}
	}

	// 3) Farmacéutico solicita acceso con el token => pending
	grantID := ""
	{
		st, body := doReq(t, ts.URL, "POST", "/access-requests", pharmacist, map[string]any{
			"share_token": shareToken,
		})
		if st != http.StatusCreated {
			t.Fatalf("expected 201 access request, got %d body=%s", st, string(body))
		}
		var resp struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		}
		_ = json.Unmarshal(body, &resp)
		if resp.ID == "" || resp.Status != "pending" {
			t.Fatalf("expected pending grant, got %s", string(body))
		}
		grantID = resp.ID
	}

	// 4) Solicitud duplicada => 409
	{
		st, _ := doReq(t, ts.URL, "POST", "/access-requests", pharmacist, map[string]any{
			"share_token": shareToken,
		})
		if st != http.StatusConflict {
			t.Fatalf("expected 409 duplicate request, got %d", st)
		}
	}

	// 5) El farmacéutico ve su solicitud en /me/grants
	{
		st, body := doReq(t, ts.URL, "GET", "/me/grants?status=pending", pharmacist, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 my grants, got %d body=%s", st, string(body))
		}
		var resp []struct {
			ID string `json:"id"`
		}
		_ = json.Unmarshal(body, &resp)
		if len(resp) != 1 || resp[0].ID != grantID {
			t.Fatalf("expected own pending grant, got %s", string(body))
		}
	}

	// 6) Otra org no puede aprobar
	{
		st, _ := doReq(t, ts.URL, "POST", "/grants/"+grantID+"/approve", pharmacist, map[string]any{})
		if st != http.StatusForbidden {
			t.Fatalf("expected 403 approve by requester, got %d", st)
		}
	}

	// 7) Hospital aprueba con view+comment por 7 días
	{
		st, body := doReq(t, ts.URL, "POST", "/grants/"+grantID+"/approve", hospitalStaff, map[string]any{
			"permissions":     []string{"view", "comment"},
			"expires_in_days": 7,
		})
		if st != http.StatusOK {
			t.Fatalf("expected 200 approve, got %d body=%s", st, string(body))
		}
		var resp struct {
			Status    string `json:"status"`
			IsActive  bool   `json:"is_active"`
			ExpiresAt string `json:"expires_at"`
		}
		_ = json.Unmarshal(body, &resp)
		if resp.Status != "approved" || !resp.IsActive || resp.ExpiresAt == "" {
			t.Fatalf("expected approved+active+expiry, got %s", string(body))
		}
	}

	// 8) Aprobar dos veces => 409
	{
		st, _ := doReq(t, ts.URL, "POST", "/grants/"+grantID+"/approve", hospitalStaff, map[string]any{})
		if st != http.StatusConflict {
			t.Fatalf("expected 409 double approve, got %d", st)
		}
	}

	// 9) Ahora el paciente es visible, compartido y SIN share token
	{
		st, body := doReq(t, ts.URL, "GET", "/patients/"+patientID, pharmacist, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 shared patient, got %d body=%s", st, string(body))
		}
		var resp struct {
			IsShared   bool   `json:"is_shared"`
			ShareToken string `json:"share_token"`
		}
		_ = json.Unmarshal(body, &resp)
		if !resp.IsShared {
			t.Fatalf("expected is_shared=true, got %s", string(body))
		}
		if resp.ShareToken != "" {
			t.Fatalf("share token must not leak to grantees")
		}
	}

	// 10) Aparece en la lista mergeada del farmacéutico
	{
		st, body := doReq(t, ts.URL, "GET", "/patients", pharmacist, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 list, got %d body=%s", st, string(body))
		}
		var resp []struct {
			ID       string `json:"id"`
			IsShared bool   `json:"is_shared"`
		}
		_ = json.Unmarshal(body, &resp)
		if len(resp) != 1 || resp[0].ID != patientID || !resp[0].IsShared {
			t.Fatalf("expected shared patient in list, got %s", string(body))
		}
	}

	// 11) Puede comentar (permiso comment)
	{
		st, body := doReq(t, ts.URL, "POST", "/patients/"+patientID+"/comments", pharmacist, map[string]any{
			"body": "Revisada la interacción con anticoagulantes.",
		})
		if st != http.StatusCreated {
			t.Fatalf("expected 201 comment, got %d body=%s", st, string(body))
		}
	}

	// 12) Pero NO puede ver medicaciones (sin view_medications)
	{
		st, _ := doReq(t, ts.URL, "GET", "/patients/"+patientID+"/medications", pharmacist, nil)
		if st != http.StatusForbidden {
			t.Fatalf("expected 403 medications without permission, got %d", st)
		}
	}

	// 13) El staff del hospital sí, sin grant de por medio
	{
		st, body := doReq(t, ts.URL, "POST", "/patients/"+patientID+"/medications", hospitalStaff, map[string]any{
			"name":   "Warfarina",
			"dosage": "5mg",
		})
		if st != http.StatusCreated {
			t.Fatalf("expected 201 medication by owner staff, got %d body=%s", st, string(body))
		}
	}

	// 14) Hospital ve el historial de grants del paciente
	{
		st, body := doReq(t, ts.URL, "GET", "/patients/"+patientID+"/grants", hospitalStaff, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 grants list, got %d body=%s", st, string(body))
		}
		var resp []struct {
			ID          string `json:"id"`
			GranteeName string `json:"grantee_name"`
		}
		_ = json.Unmarshal(body, &resp)
		if len(resp) != 1 || resp[0].ID != grantID {
			t.Fatalf("expected 1 grant in history, got %s", string(body))
		}
		// enriquecido vía directorio
		if resp[0].GranteeName != "Ana Quiroga" {
			t.Fatalf("expected enriched grantee name, got %s", string(body))
		}
	}

	// 15) Hospital revoca
	{
		st, body := doReq(t, ts.URL, "POST", "/grants/"+grantID+"/revoke", hospitalStaff, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 revoke, got %d body=%s", st, string(body))
		}
	}

	// 16) Acceso cortado de inmediato
	{
		st, _ := doReq(t, ts.URL, "GET", "/patients/"+patientID, pharmacist, nil)
		if st != http.StatusForbidden {
			t.Fatalf("expected 403 after revoke, got %d", st)
		}
	}
	{
		st, _ := doReq(t, ts.URL, "POST", "/patients/"+patientID+"/comments", pharmacist, map[string]any{
			"body": "should fail",
		})
		if st != http.StatusForbidden {
			t.Fatalf("expected 403 comment after revoke, got %d", st)
		}
	}
}

func TestHTTP_SameOrg_TokenAutoApproves(t *testing.T) {
	ts := newTestServer(t)
	defer ts.Close()

	staffA := user{"doctor-1", "org-hospital"}
	staffB := user{"doctor-2", "org-hospital"}

	_, shareToken := createPatient(t, ts.URL, staffA, map[string]any{
		"full_name": "Mario Peña",
	})

	st, body := doReq(t, ts.URL, "POST", "/access-requests", staffB, map[string]any{
		"share_token": shareToken,
	})
	if st != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", st, string(body))
	}
	var resp struct {
		Status     string `json:"status"`
		AccessType string `json:"access_type"`
		IsActive   bool   `json:"is_active"`
	}
	_ = json.Unmarshal(body, &resp)
	if resp.Status != "approved" || !resp.IsActive || resp.AccessType != "same_organization" {
		t.Fatalf("expected same-org auto approval, got %s", string(body))
	}
}

func TestHTTP_DirectGrant_ByOwnerStaff(t *testing.T) {
	ts := newTestServer(t)
	defer ts.Close()

	hospitalStaff := user{"doctor-1", "org-hospital"}
	pharmacist := user{"pharmacist-1", "org-pharmacy"}

	patientID, _ := createPatient(t, ts.URL, hospitalStaff, map[string]any{
		"full_name": "Sofía Blanco",
	})

	// grantee_user_id se resuelve contra el directorio
	st, body := doReq(t, ts.URL, "POST", "/patients/"+patientID+"/grants", hospitalStaff, map[string]any{
		"grantee_user_id": "pharmacist-1",
		"permissions":     []string{"view", "view_medications"},
	})
	if st != http.StatusCreated {
		t.Fatalf("expected 201 direct grant, got %d body=%s", st, string(body))
	}
	var resp struct {
		Status       string `json:"status"`
		GrantedToOrg string `json:"granted_to_org"`
	}
	_ = json.Unmarshal(body, &resp)
	if resp.Status != "approved" || resp.GrantedToOrg != "org-pharmacy" {
		t.Fatalf("expected approved grant for org-pharmacy, got %s", string(body))
	}

	// el permiso otorgado abre medicaciones
	st, _ = doReq(t, ts.URL, "GET", "/patients/"+patientID+"/medications", pharmacist, nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 medications with view_medications, got %d", st)
	}

	// usuario desconocido para el directorio => 404
	st, _ = doReq(t, ts.URL, "POST", "/patients/"+patientID+"/grants", hospitalStaff, map[string]any{
		"grantee_user_id": "ghost-9",
	})
	if st != http.StatusNotFound {
		t.Fatalf("expected 404 unknown grantee, got %d", st)
	}
}

func TestHTTP_DevMode_DirectoryFromEnv(t *testing.T) {
	t.Setenv("DEV_DIRECTORY", "pharmacist-9:org-pharmacy")

	// Sin Directory explícito: el modo dev arma uno desde DEV_DIRECTORY.
	h, _ := router.NewRouter(router.Options{AuthVerifier: nil})
	ts := httptest.NewServer(h)
	defer ts.Close()

	hospitalStaff := user{"doctor-1", "org-hospital"}

	patientID, _ := createPatient(t, ts.URL, hospitalStaff, map[string]any{
		"full_name": "Caso Dev",
	})

	st, body := doReq(t, ts.URL, "POST", "/patients/"+patientID+"/grants", hospitalStaff, map[string]any{
		"grantee_user_id": "pharmacist-9",
	})
	if st != http.StatusCreated {
		t.Fatalf("expected 201 direct grant in dev mode, got %d body=%s", st, string(body))
	}
	var resp struct {
		GrantedToOrg string `json:"granted_to_org"`
	}
	_ = json.Unmarshal(body, &resp)
	if resp.GrantedToOrg != "org-pharmacy" {
		t.Fatalf("expected org resolved from DEV_DIRECTORY, got %s", string(body))
	}
}

func TestHTTP_DeactivatedPatient_Disappears(t *testing.T) {
	ts := newTestServer(t)
	defer ts.Close()

	hospitalStaff := user{"doctor-1", "org-hospital"}
	otherOrg := user{"user-9", "org-other"}

	patientID, shareToken := createPatient(t, ts.URL, hospitalStaff, map[string]any{
		"full_name": "Registro Temporal",
	})

	// otra org no puede desactivar
	st, _ := doReq(t, ts.URL, "DELETE", "/patients/"+patientID, otherOrg, nil)
	if st != http.StatusForbidden {
		t.Fatalf("expected 403 deactivate by other org, got %d", st)
	}

	st, _ = doReq(t, ts.URL, "DELETE", "/patients/"+patientID, hospitalStaff, nil)
	if st != http.StatusNoContent {
		t.Fatalf("expected 204 deactivate, got %d", st)
	}

	// idempotente
	st, _ = doReq(t, ts.URL, "DELETE", "/patients/"+patientID, hospitalStaff, nil)
	if st != http.StatusNoContent {
		t.Fatalf("expected 204 on repeat deactivate, got %d", st)
	}

	// desaparece hasta para la org dueña
	st, _ = doReq(t, ts.URL, "GET", "/patients/"+patientID, hospitalStaff, nil)
	if st != http.StatusNotFound {
		t.Fatalf("expected 404 inactive patient, got %d", st)
	}

	// su token deja de resolver
	st, _ = doReq(t, ts.URL, "POST", "/access-requests", otherOrg, map[string]any{
		"share_token": shareToken,
	})
	if st != http.StatusNotFound {
		t.Fatalf("expected 404 token of inactive patient, got %d", st)
	}
}

// -------------------------
// Helpers
// -------------------------

type user struct {
	id    string
	orgID string
}

func createPatient(t *testing.T, baseURL string, u user, payload map[string]any) (string, string) {
	t.Helper()

	st, body := doReq(t, baseURL, "POST", "/patients", u, payload)
	if st != http.StatusCreated {
		t.Fatalf("expected 201 create patient, got %d body=%s", st, string(body))
	}

	var resp struct {
		ID         string `json:"id"`
		ShareToken string `json:"share_token"`
	}
	_ = json.Unmarshal(body, &resp)
	if resp.ID == "" || resp.ShareToken == "" {
		t.Fatalf("create patient: missing id/share_token body=%s", string(body))
	}
	return resp.ID, resp.ShareToken
}

func doReq(t *testing.T, baseURL, method, path string, u user, payload map[string]any) (int, []byte) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, baseURL+path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("X-Debug-User-ID", u.id)
	req.Header.Set("X-Debug-Org-ID", u.orgID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, raw
}
