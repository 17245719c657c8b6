package accessgrants

import (
	"context"
	"errors"
	"testing"
	"time"

	"patient-record-sharing/internal/ports/directory"
)

// -------------------------
// Test repo (in-memory)
// -------------------------

var errRepoNotFound = errors.New("repo: not found")

type testRepo struct {
	byID map[string]Grant
}

func newTestRepo() *testRepo {
	return &testRepo{byID: map[string]Grant{}}
}

func (r *testRepo) Create(ctx context.Context, g Grant) error {
	if g.ID == "" {
		return errors.New("repo: id required")
	}
	if _, ok := r.byID[g.ID]; ok {
		return errors.New("repo: already exists")
	}
	r.byID[g.ID] = g
	return nil
}

func (r *testRepo) Update(ctx context.Context, g Grant) error {
	if g.ID == "" {
		return errors.New("repo: id required")
	}
	if _, ok := r.byID[g.ID]; !ok {
		return errRepoNotFound
	}
	r.byID[g.ID] = g
	return nil
}

func (r *testRepo) GetByID(ctx context.Context, id string) (Grant, error) {
	g, ok := r.byID[id]
	if !ok {
		return Grant{}, errRepoNotFound
	}
	return g, nil
}

func (r *testRepo) ListByPatient(ctx context.Context, patientID string) ([]Grant, error) {
	out := make([]Grant, 0)
	for _, g := range r.byID {
		if g.PatientID == patientID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (r *testRepo) ListByGrantee(ctx context.Context, granteeUserID string) ([]Grant, error) {
	out := make([]Grant, 0)
	for _, g := range r.byID {
		if g.GrantedTo == granteeUserID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (r *testRepo) ActiveFor(ctx context.Context, patientID, granteeUserID string) (Grant, error) {
	var winner Grant
	has := false

	for _, g := range r.byID {
		if g.PatientID != patientID {
			continue
		}
		if g.GrantedTo != granteeUserID {
			continue
		}
		if g.Status != StatusApproved || !g.IsActive {
			continue
		}

		if !has {
			winner = g
			has = true
			continue
		}
		if g.UpdatedAt.After(winner.UpdatedAt) {
			winner = g
		}
	}

	if !has {
		return Grant{}, errRepoNotFound
	}
	return winner, nil
}

func (r *testRepo) ListExpired(ctx context.Context, now time.Time) ([]Grant, error) {
	out := make([]Grant, 0)
	for _, g := range r.byID {
		if g.Status == StatusApproved && g.Expired(now) {
			out = append(out, g)
		}
	}
	return out, nil
}

// -------------------------
// Test patient lookup
// -------------------------

type testPatients struct {
	byToken map[string][2]string // token -> (patientID, ownerOrgID)
	orgByID map[string]string
}

func newTestPatients() *testPatients {
	return &testPatients{
		byToken: map[string][2]string{},
		orgByID: map[string]string{},
	}
}

func (p *testPatients) add(patientID, ownerOrgID, token string) {
	p.byToken[token] = [2]string{patientID, ownerOrgID}
	p.orgByID[patientID] = ownerOrgID
}

func (p *testPatients) ResolveShareToken(ctx context.Context, token string) (string, string, error) {
	v, ok := p.byToken[token]
	if !ok {
		return "", "", errRepoNotFound
	}
	return v[0], v[1], nil
}

func (p *testPatients) OwnerOrgOf(ctx context.Context, patientID string) (string, error) {
	org, ok := p.orgByID[patientID]
	if !ok {
		return "", errRepoNotFound
	}
	return org, nil
}

func (p *testPatients) ShareTokenOf(ctx context.Context, patientID string) (string, error) {
	for token, v := range p.byToken {
		if v[0] == patientID {
			return token, nil
		}
	}
	return "", errRepoNotFound
}

func newTestService() (*Service, *testRepo, *testPatients) {
	repo := newTestRepo()
	pats := newTestPatients()
	pats.add("pat-1", "org-a", "PAT-AAAA-BBBB-CCCC")
	return NewService(repo, pats), repo, pats
}

// -------------------------
// Tests
// -------------------------

func TestService_RequestAccess_SameOrg_AutoApproved(t *testing.T) {
	svc, _, _ := newTestService()

	now := time.Date(2026, 8, 10, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	g, err := svc.RequestAccess(context.Background(), "PAT-AAAA-BBBB-CCCC", "user-1", "org-a")
	if err != nil {
		t.Fatalf("RequestAccess error: %v", err)
	}
	if g.Status != StatusApproved {
		t.Fatalf("expected approved, got %s", g.Status)
	}
	if !g.IsActive {
		t.Fatalf("expected IsActive for same-org grant")
	}
	if g.AccessType != AccessSameOrganization {
		t.Fatalf("expected same_organization, got %s", g.AccessType)
	}
	if g.GrantedAt == nil || !g.GrantedAt.Equal(now) {
		t.Fatalf("expected GrantedAt = now")
	}
	if len(g.Permissions) != len(FullPermissions()) {
		t.Fatalf("expected full permissions, got %#v", g.Permissions)
	}
}

func TestService_RequestAccess_CrossOrg_Pending(t *testing.T) {
	svc, _, _ := newTestService()

	g, err := svc.RequestAccess(context.Background(), "PAT-AAAA-BBBB-CCCC", "user-2", "org-b")
	if err != nil {
		t.Fatalf("RequestAccess error: %v", err)
	}
	if g.Status != StatusPending {
		t.Fatalf("expected pending, got %s", g.Status)
	}
	if g.IsActive {
		t.Fatalf("pending grant must not be active")
	}
	if g.AccessType != AccessCrossOrganization {
		t.Fatalf("expected cross_organization, got %s", g.AccessType)
	}
	if len(g.Permissions) != 0 {
		t.Fatalf("pending grant must carry no permissions, got %#v", g.Permissions)
	}
}

func TestService_RequestAccess_UnknownToken_NotFound(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.RequestAccess(context.Background(), "PAT-XXXX-XXXX-XXXX", "user-2", "org-b")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestService_RequestAccess_DuplicatePending_Conflict(t *testing.T) {
	svc, _, _ := newTestService()

	if _, err := svc.RequestAccess(context.Background(), "PAT-AAAA-BBBB-CCCC", "user-2", "org-b"); err != nil {
		t.Fatalf("RequestAccess #1 error: %v", err)
	}
	_, err := svc.RequestAccess(context.Background(), "PAT-AAAA-BBBB-CCCC", "user-2", "org-b")
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestService_RequestAccess_ExpiredUnsweptGrant_ReplacedNotConflict(t *testing.T) {
	svc, repo, _ := newTestService()

	now := time.Date(2026, 8, 10, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	g, err := svc.RequestAccess(context.Background(), "PAT-AAAA-BBBB-CCCC", "user-2", "org-b")
	if err != nil {
		t.Fatalf("RequestAccess error: %v", err)
	}
	days := 1
	if _, err := svc.Approve(context.Background(), g.ID, "staff-1", "org-a", nil, &days); err != nil {
		t.Fatalf("Approve error: %v", err)
	}

	// Vence el grant pero el sweep todavía no corrió: un nuevo request
	// tiene que pasar, y el viejo queda cerrado para no dejar dos filas
	// abiertas del mismo par.
	svc.now = func() time.Time { return now.Add(48 * time.Hour) }
	fresh, err := svc.RequestAccess(context.Background(), "PAT-AAAA-BBBB-CCCC", "user-2", "org-b")
	if err != nil {
		t.Fatalf("RequestAccess after expiry error: %v", err)
	}
	if fresh.ID == g.ID {
		t.Fatalf("expected a fresh grant, got the old row back")
	}
	if fresh.Status != StatusPending {
		t.Fatalf("expected pending, got %s", fresh.Status)
	}

	stale := repo.byID[g.ID]
	if stale.Status != StatusRevoked || stale.IsActive {
		t.Fatalf("expected stale grant revoked, got %s active=%v", stale.Status, stale.IsActive)
	}

	open := 0
	for _, it := range repo.byID {
		if !it.Status.Terminal() {
			open++
		}
	}
	if open != 1 {
		t.Fatalf("expected exactly 1 open grant for the pair, got %d", open)
	}
}

func TestService_Approve_SetsExpiry_AndDefaultPermission(t *testing.T) {
	svc, _, _ := newTestService()

	now := time.Date(2026, 8, 10, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	g, err := svc.RequestAccess(context.Background(), "PAT-AAAA-BBBB-CCCC", "user-2", "org-b")
	if err != nil {
		t.Fatalf("RequestAccess error: %v", err)
	}

	days := 7
	approved, err := svc.Approve(context.Background(), g.ID, "staff-1", "org-a", nil, &days)
	if err != nil {
		t.Fatalf("Approve error: %v", err)
	}
	if approved.Status != StatusApproved || !approved.IsActive {
		t.Fatalf("expected approved+active, got %s active=%v", approved.Status, approved.IsActive)
	}
	if approved.ExpiresAt == nil || !approved.ExpiresAt.Equal(now.Add(7*24*time.Hour)) {
		t.Fatalf("expected expiry exactly 7 days out, got %v", approved.ExpiresAt)
	}
	// perms vacíos => default view
	if len(approved.Permissions) != 1 || approved.Permissions[0] != PermissionView {
		t.Fatalf("expected default [view], got %#v", approved.Permissions)
	}
	if approved.GrantedBy != "staff-1" {
		t.Fatalf("expected GrantedBy staff-1, got %s", approved.GrantedBy)
	}
}

func TestService_Approve_WrongOrg_Forbidden(t *testing.T) {
	svc, _, _ := newTestService()

	g, err := svc.RequestAccess(context.Background(), "PAT-AAAA-BBBB-CCCC", "user-2", "org-b")
	if err != nil {
		t.Fatalf("RequestAccess error: %v", err)
	}

	_, err = svc.Approve(context.Background(), g.ID, "staff-x", "org-b", nil, nil)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestService_Approve_Twice_BadState(t *testing.T) {
	svc, _, _ := newTestService()

	g, err := svc.RequestAccess(context.Background(), "PAT-AAAA-BBBB-CCCC", "user-2", "org-b")
	if err != nil {
		t.Fatalf("RequestAccess error: %v", err)
	}
	if _, err := svc.Approve(context.Background(), g.ID, "staff-1", "org-a", nil, nil); err != nil {
		t.Fatalf("Approve #1 error: %v", err)
	}
	_, err = svc.Approve(context.Background(), g.ID, "staff-1", "org-a", nil, nil)
	if !errors.Is(err, ErrBadState) {
		t.Fatalf("expected ErrBadState, got %v", err)
	}
}

func TestService_Approve_UnknownPermission_InvalidInput(t *testing.T) {
	svc, _, _ := newTestService()

	g, err := svc.RequestAccess(context.Background(), "PAT-AAAA-BBBB-CCCC", "user-2", "org-b")
	if err != nil {
		t.Fatalf("RequestAccess error: %v", err)
	}
	_, err = svc.Approve(context.Background(), g.ID, "staff-1", "org-a", []Permission{"edit_everything"}, nil)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestService_Deny_Terminal(t *testing.T) {
	svc, _, _ := newTestService()

	g, err := svc.RequestAccess(context.Background(), "PAT-AAAA-BBBB-CCCC", "user-2", "org-b")
	if err != nil {
		t.Fatalf("RequestAccess error: %v", err)
	}

	denied, err := svc.Deny(context.Background(), g.ID, "staff-1", "org-a")
	if err != nil {
		t.Fatalf("Deny error: %v", err)
	}
	if denied.Status != StatusDenied || denied.IsActive {
		t.Fatalf("expected denied+inactive, got %s active=%v", denied.Status, denied.IsActive)
	}
	if denied.DeniedBy != "staff-1" || denied.DeniedAt == nil {
		t.Fatalf("expected denial audit fields set")
	}

	// terminal: no se puede aprobar después
	_, err = svc.Approve(context.Background(), g.ID, "staff-1", "org-a", nil, nil)
	if !errors.Is(err, ErrBadState) {
		t.Fatalf("expected ErrBadState after deny, got %v", err)
	}
}

func TestService_Revoke_OnlyFromApproved(t *testing.T) {
	svc, _, _ := newTestService()

	g, err := svc.RequestAccess(context.Background(), "PAT-AAAA-BBBB-CCCC", "user-2", "org-b")
	if err != nil {
		t.Fatalf("RequestAccess error: %v", err)
	}

	// pending -> revoked no es transición legal
	_, err = svc.Revoke(context.Background(), g.ID, "staff-1", "org-a")
	if !errors.Is(err, ErrBadState) {
		t.Fatalf("expected ErrBadState revoking pending, got %v", err)
	}

	if _, err := svc.Approve(context.Background(), g.ID, "staff-1", "org-a", nil, nil); err != nil {
		t.Fatalf("Approve error: %v", err)
	}

	revoked, err := svc.Revoke(context.Background(), g.ID, "staff-2", "org-a")
	if err != nil {
		t.Fatalf("Revoke error: %v", err)
	}
	if revoked.Status != StatusRevoked || revoked.IsActive {
		t.Fatalf("expected revoked+inactive, got %s active=%v", revoked.Status, revoked.IsActive)
	}
	if revoked.RevokedBy != "staff-2" || revoked.RevokedAt == nil {
		t.Fatalf("expected revocation audit fields set")
	}
}

// stubDir: userID -> orgID, suficiente para DirectGrant.
type stubDir map[string]string

func (d stubDir) Lookup(ctx context.Context, userID string) (directory.UserProfile, error) {
	org, ok := d[userID]
	if !ok {
		return directory.UserProfile{}, errRepoNotFound
	}
	return directory.UserProfile{ID: userID, OrganizationID: org}, nil
}

func TestService_DirectGrant_DedupUpdatesInPlace(t *testing.T) {
	svc, repo, _ := newTestService()
	svc = svc.WithDirectory(stubDir{"user-2": "org-b"})

	now := time.Date(2026, 8, 10, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	// request pendiente previo del mismo par (paciente, grantee)
	pending, err := svc.RequestAccess(context.Background(), "PAT-AAAA-BBBB-CCCC", "user-2", "org-b")
	if err != nil {
		t.Fatalf("RequestAccess error: %v", err)
	}

	g, err := svc.DirectGrant(context.Background(), "pat-1", "user-2", "staff-1", "org-a", []Permission{PermissionView, PermissionComment}, nil)
	if err != nil {
		t.Fatalf("DirectGrant error: %v", err)
	}
	if g.ID != pending.ID {
		t.Fatalf("expected dedup onto existing grant, got %s vs %s", g.ID, pending.ID)
	}
	if g.Status != StatusApproved || !g.IsActive {
		t.Fatalf("expected approved+active, got %s", g.Status)
	}
	if len(repo.byID) != 1 {
		t.Fatalf("expected single grant row, got %d", len(repo.byID))
	}
}

func TestService_DirectGrant_FreshRowCarriesShareToken(t *testing.T) {
	svc, _, _ := newTestService()
	svc = svc.WithDirectory(stubDir{"user-2": "org-b"})

	g, err := svc.DirectGrant(context.Background(), "pat-1", "user-2", "staff-1", "org-a", nil, nil)
	if err != nil {
		t.Fatalf("DirectGrant error: %v", err)
	}
	if g.ShareToken != "PAT-AAAA-BBBB-CCCC" {
		t.Fatalf("expected patient share token copied onto grant, got %q", g.ShareToken)
	}
}

func TestService_DirectGrant_WrongOrg_Forbidden(t *testing.T) {
	svc, _, _ := newTestService()
	svc = svc.WithDirectory(stubDir{"user-2": "org-b"})

	_, err := svc.DirectGrant(context.Background(), "pat-1", "user-2", "staff-x", "org-b", nil, nil)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestService_HasAccess_PureOnExpiredGrant(t *testing.T) {
	svc, repo, _ := newTestService()

	now := time.Date(2026, 8, 10, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	g, err := svc.RequestAccess(context.Background(), "PAT-AAAA-BBBB-CCCC", "user-2", "org-b")
	if err != nil {
		t.Fatalf("RequestAccess error: %v", err)
	}
	days := 1
	if _, err := svc.Approve(context.Background(), g.ID, "staff-1", "org-a", nil, &days); err != nil {
		t.Fatalf("Approve error: %v", err)
	}

	// vigente
	ok, err := svc.HasAccess(context.Background(), "pat-1", "user-2", "org-b")
	if err != nil || !ok {
		t.Fatalf("expected access before expiry, got ok=%v err=%v", ok, err)
	}

	// pasa la expiración: HasAccess niega pero NO muta el grant
	svc.now = func() time.Time { return now.Add(48 * time.Hour) }
	ok, err = svc.HasAccess(context.Background(), "pat-1", "user-2", "org-b")
	if err != nil || ok {
		t.Fatalf("expected no access after expiry, got ok=%v err=%v", ok, err)
	}

	stored := repo.byID[g.ID]
	if stored.Status != StatusApproved {
		t.Fatalf("HasAccess must not mutate: expected approved in repo, got %s", stored.Status)
	}
}

func TestService_HasAccess_SameOrg_NoGrantNeeded(t *testing.T) {
	svc, _, _ := newTestService()

	ok, err := svc.HasAccess(context.Background(), "pat-1", "staff-9", "org-a")
	if err != nil || !ok {
		t.Fatalf("expected same-org access, got ok=%v err=%v", ok, err)
	}
}

func TestService_Allows_ChecksPermission(t *testing.T) {
	svc, _, _ := newTestService()

	g, err := svc.RequestAccess(context.Background(), "PAT-AAAA-BBBB-CCCC", "user-2", "org-b")
	if err != nil {
		t.Fatalf("RequestAccess error: %v", err)
	}
	if _, err := svc.Approve(context.Background(), g.ID, "staff-1", "org-a", []Permission{PermissionView}, nil); err != nil {
		t.Fatalf("Approve error: %v", err)
	}

	ok, err := svc.Allows(context.Background(), "pat-1", "user-2", "org-b", PermissionView)
	if err != nil || !ok {
		t.Fatalf("expected view allowed, got ok=%v err=%v", ok, err)
	}
	ok, err = svc.Allows(context.Background(), "pat-1", "user-2", "org-b", PermissionViewMedications)
	if err != nil || ok {
		t.Fatalf("expected view_medications denied, got ok=%v err=%v", ok, err)
	}
}

func TestService_SweepExpired_RevokesAndCounts(t *testing.T) {
	svc, repo, _ := newTestService()

	now := time.Date(2026, 8, 10, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	g, err := svc.RequestAccess(context.Background(), "PAT-AAAA-BBBB-CCCC", "user-2", "org-b")
	if err != nil {
		t.Fatalf("RequestAccess error: %v", err)
	}
	days := 1
	if _, err := svc.Approve(context.Background(), g.ID, "staff-1", "org-a", nil, &days); err != nil {
		t.Fatalf("Approve error: %v", err)
	}

	svc.now = func() time.Time { return now.Add(48 * time.Hour) }
	n, err := svc.SweepExpired(context.Background())
	if err != nil {
		t.Fatalf("SweepExpired error: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 swept, got %d", n)
	}

	stored := repo.byID[g.ID]
	if stored.Status != StatusRevoked || stored.IsActive {
		t.Fatalf("expected revoked+inactive after sweep, got %s active=%v", stored.Status, stored.IsActive)
	}
	// revocación por sweep: sin usuario revocador
	if stored.RevokedBy != "" || stored.RevokedAt == nil {
		t.Fatalf("expected system revocation audit, got by=%q at=%v", stored.RevokedBy, stored.RevokedAt)
	}

	// segundo sweep: nada para barrer
	n, err = svc.SweepExpired(context.Background())
	if err != nil || n != 0 {
		t.Fatalf("expected idempotent sweep, got n=%d err=%v", n, err)
	}
}
