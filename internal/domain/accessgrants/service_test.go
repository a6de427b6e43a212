package accessgrants

import (
	"context"
	"errors"
	"testing"
	"time"

	"petpal/internal/domain/users"
	"petpal/internal/platform/apperr"
)

// -------------------------
// Test repo (in-memory)
// -------------------------

var errRepoNotFound = apperr.ErrNotFound

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

func (r *testRepo) ListByPet(ctx context.Context, petID string) ([]Grant, error) {
	out := make([]Grant, 0)
	for _, g := range r.byID {
		if g.PetID == petID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (r *testRepo) GetActiveGrant(ctx context.Context, petID, granteeUserID string) (Grant, error) {
	var winner Grant
	has := false

	for _, g := range r.byID {
		if g.PetID != petID {
			continue
		}
		if g.GranteeUserID != granteeUserID {
			continue
		}
		if g.Status != StatusActive {
			continue
		}

		if !has {
			winner = g
			has = true
			continue
		}
		if g.UpdatedAt.After(winner.UpdatedAt) {
			winner = g
			continue
		}
		if g.UpdatedAt.Equal(winner.UpdatedAt) && g.CreatedAt.After(winner.CreatedAt) {
			winner = g
		}
	}

	if !has {
		return Grant{}, errRepoNotFound
	}
	return winner, nil
}

func (r *testRepo) ListByGrantee(ctx context.Context, granteeUserID string) ([]Grant, error) {
	out := make([]Grant, 0)
	for _, g := range r.byID {
		if g.GranteeUserID == granteeUserID {
			out = append(out, g)
		}
	}
	return out, nil
}

type testPets map[string]string // petID => ownerID

func (p testPets) OwnerOf(_ context.Context, petID string) (string, error) {
	owner, ok := p[petID]
	if !ok {
		return "", apperr.ErrNotFound
	}
	return owner, nil
}

type testUsers map[string]string // email => userID

func (u testUsers) GetByEmail(_ context.Context, email string) (users.User, error) {
	id, ok := u[email]
	if !ok {
		return users.User{}, apperr.ErrNotFound
	}
	return users.User{ID: id, Email: email}, nil
}

func newTestService(repo Repository) *Service {
	return NewService(repo,
		testPets{"pet-1": "owner-1"},
		testUsers{"owner@x.com": "owner-1", "delegate@x.com": "delegate-1"},
	)
}

// -------------------------
// Tests
// -------------------------

func TestService_Invite_DefaultScopes_WhenEmpty(t *testing.T) {
	repo := newTestRepo()
	svc := newTestService(repo)

	now := time.Date(2025, 12, 22, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	g, err := svc.Invite(context.Background(), InviteInput{
		PetID:        "pet-1",
		OwnerUserID:  "owner-1",
		GranteeEmail: "Delegate@x.com",
		Scopes:       nil,
	})
	if err != nil {
		t.Fatalf("Invite returned error: %v", err)
	}
	if g.Status != StatusInvited {
		t.Fatalf("expected status invited, got %s", g.Status)
	}
	if g.GranteeUserID != "delegate-1" {
		t.Fatalf("expected grantee resolved by email, got %q", g.GranteeUserID)
	}
	if g.CreatedAt != now || g.UpdatedAt != now {
		t.Fatalf("expected CreatedAt/UpdatedAt to be now")
	}
	// default: pet:read + records:read
	if !HasScope(g, ScopePetRead) || !HasScope(g, ScopeRecordsRead) {
		t.Fatalf("expected default scopes pet:read + records:read, got %#v", g.Scopes)
	}
}

func TestService_Invite_StrictScopes_RejectsUnknown(t *testing.T) {
	repo := newTestRepo()
	svc := newTestService(repo)

	_, err := svc.invite(context.Background(), "pet-1", "owner-1", "delegate-1",
		[]Scope{ScopeRecordsRead, Scope("bad:scope")})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestService_Invite_Dedup_UpdatesSameGrant(t *testing.T) {
	repo := newTestRepo()
	svc := newTestService(repo)

	now1 := time.Date(2025, 12, 22, 10, 0, 0, 0, time.UTC)
	now2 := now1.Add(5 * time.Minute)

	svc.now = func() time.Time { return now1 }
	g1, err := svc.invite(context.Background(), "pet-1", "owner-1", "delegate-1", []Scope{ScopeRecordsRead})
	if err != nil {
		t.Fatalf("Invite #1 error: %v", err)
	}

	svc.now = func() time.Time { return now2 }
	g2, err := svc.invite(context.Background(), "pet-1", "owner-1", "delegate-1", []Scope{ScopeRecordsRead, ScopeRecordsWrite})
	if err != nil {
		t.Fatalf("Invite #2 error: %v", err)
	}

	if g2.ID != g1.ID {
		t.Fatalf("expected same grant ID (dedup), got %s vs %s", g1.ID, g2.ID)
	}
	if g2.UpdatedAt != now2 {
		t.Fatalf("expected UpdatedAt to change on reinvite")
	}
	if !HasScope(g2, ScopeRecordsWrite) || !HasScope(g2, ScopeRecordsRead) {
		t.Fatalf("expected scopes updated, got %#v", g2.Scopes)
	}
}

func TestService_Accept_SetsActive_AndIdempotent(t *testing.T) {
	repo := newTestRepo()
	svc := newTestService(repo)

	now1 := time.Date(2025, 12, 22, 10, 0, 0, 0, time.UTC)
	now2 := now1.Add(2 * time.Minute)

	svc.now = func() time.Time { return now1 }
	g, err := svc.invite(context.Background(), "pet-1", "owner-1", "delegate-1", nil)
	if err != nil {
		t.Fatalf("Invite error: %v", err)
	}

	svc.now = func() time.Time { return now2 }
	accepted, err := svc.Accept(context.Background(), g.ID, "delegate-1")
	if err != nil {
		t.Fatalf("Accept error: %v", err)
	}
	if accepted.Status != StatusActive {
		t.Fatalf("expected active, got %s", accepted.Status)
	}

	// idempotente
	accepted2, err := svc.Accept(context.Background(), g.ID, "delegate-1")
	if err != nil {
		t.Fatalf("Accept #2 error: %v", err)
	}
	if accepted2.Status != StatusActive {
		t.Fatalf("expected active after idempotent accept, got %s", accepted2.Status)
	}
}

func TestService_Accept_LeavesOnlyOneActive_ForPetAndGrantee(t *testing.T) {
	// con data sucia (varios invites para el mismo par), al aceptar uno queda 1 activo
	repo := newTestRepo()
	svc := newTestService(repo)

	now := time.Date(2025, 12, 22, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	// Seed “data sucia”: 2 invites para el mismo (pet, owner, grantee)
	g1 := Grant{
		ID:            "g1",
		PetID:         "pet-1",
		OwnerUserID:   "owner-1",
		GranteeUserID: "delegate-1",
		Scopes:        []Scope{ScopeRecordsRead},
		Status:        StatusInvited,
		CreatedAt:     now.Add(-10 * time.Minute),
		UpdatedAt:     now.Add(-10 * time.Minute),
	}
	g2 := Grant{
		ID:            "g2",
		PetID:         "pet-1",
		OwnerUserID:   "owner-1",
		GranteeUserID: "delegate-1",
		Scopes:        []Scope{ScopeRecordsRead},
		Status:        StatusInvited,
		CreatedAt:     now.Add(-5 * time.Minute),
		UpdatedAt:     now.Add(-5 * time.Minute),
	}
	_ = repo.Create(context.Background(), g1)
	_ = repo.Create(context.Background(), g2)

	_, err := svc.Accept(context.Background(), "g2", "delegate-1")
	if err != nil {
		t.Fatalf("Accept error: %v", err)
	}

	// Contar activos para (pet-1, delegate-1)
	activeCount := 0
	for _, g := range repo.byID {
		if g.PetID == "pet-1" && g.GranteeUserID == "delegate-1" && g.Status == StatusActive {
			activeCount++
		}
	}
	if activeCount != 1 {
		t.Fatalf("expected exactly 1 active grant, got %d", activeCount)
	}
}

func TestService_Invite_RequiresOwner(t *testing.T) {
	svc := newTestService(newTestRepo())

	_, err := svc.Invite(context.Background(), InviteInput{
		PetID:        "pet-1",
		OwnerUserID:  "delegate-1",
		GranteeEmail: "owner@x.com",
	})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	_, err = svc.Invite(context.Background(), InviteInput{
		PetID:        "missing",
		OwnerUserID:  "owner-1",
		GranteeEmail: "delegate@x.com",
	})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found for missing pet, got %v", err)
	}
}

func TestService_Invite_UnknownEmail(t *testing.T) {
	svc := newTestService(newTestRepo())

	_, err := svc.Invite(context.Background(), InviteInput{
		PetID:        "pet-1",
		OwnerUserID:  "owner-1",
		GranteeEmail: "nobody@x.com",
	})
	if !errors.Is(err, ErrUnknownUser) {
		t.Fatalf("expected ErrUnknownUser, got %v", err)
	}
}

func TestService_Invite_Self(t *testing.T) {
	svc := newTestService(newTestRepo())

	_, err := svc.Invite(context.Background(), InviteInput{
		PetID:        "pet-1",
		OwnerUserID:  "owner-1",
		GranteeEmail: "owner@x.com",
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestService_HasScope(t *testing.T) {
	repo := newTestRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	g, err := svc.invite(ctx, "pet-1", "owner-1", "delegate-1", []Scope{ScopeRecordsRead})
	if err != nil {
		t.Fatalf("invite error: %v", err)
	}

	// invitado todavía no concede nada
	ok, err := svc.HasScope(ctx, "pet-1", "delegate-1", string(ScopeRecordsRead))
	if err != nil || ok {
		t.Fatalf("expected no scope before accept, got ok=%v err=%v", ok, err)
	}

	if _, err := svc.Accept(ctx, g.ID, "delegate-1"); err != nil {
		t.Fatalf("Accept error: %v", err)
	}

	ok, err = svc.HasScope(ctx, "pet-1", "delegate-1", string(ScopeRecordsRead))
	if err != nil || !ok {
		t.Fatalf("expected records:read, got ok=%v err=%v", ok, err)
	}
	ok, _ = svc.HasScope(ctx, "pet-1", "delegate-1", string(ScopeRecordsWrite))
	if ok {
		t.Fatalf("records:write was not granted")
	}

	if _, err := svc.Revoke(ctx, g.ID, "owner-1"); err != nil {
		t.Fatalf("Revoke error: %v", err)
	}
	ok, _ = svc.HasScope(ctx, "pet-1", "delegate-1", string(ScopeRecordsRead))
	if ok {
		t.Fatalf("expected no scope after revoke")
	}
}

func TestService_ListByPet_OwnerOnly(t *testing.T) {
	svc := newTestService(newTestRepo())
	ctx := context.Background()

	if _, err := svc.invite(ctx, "pet-1", "owner-1", "delegate-1", nil); err != nil {
		t.Fatalf("invite error: %v", err)
	}
	list, err := svc.ListByPet(ctx, "pet-1", "owner-1")
	if err != nil || len(list) != 1 {
		t.Fatalf("expected 1 grant, got %d err=%v", len(list), err)
	}
	if _, err := svc.ListByPet(ctx, "pet-1", "delegate-1"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}
