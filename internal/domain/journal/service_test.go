package journal

import (
	"context"
	"sort"
	"testing"
	"time"

	"petpal/internal/domain/pets"
	"petpal/internal/platform/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRepo struct {
	byID map[string]Entry
}

func (r *testRepo) Create(_ context.Context, e Entry) error {
	r.byID[e.ID] = e
	return nil
}

func (r *testRepo) Update(_ context.Context, e Entry) error {
	if _, ok := r.byID[e.ID]; !ok {
		return apperr.ErrNotFound
	}
	r.byID[e.ID] = e
	return nil
}

func (r *testRepo) GetByID(_ context.Context, id string) (Entry, error) {
	e, ok := r.byID[id]
	if !ok {
		return Entry{}, apperr.ErrNotFound
	}
	return e, nil
}

func (r *testRepo) ListByPet(_ context.Context, petID string) ([]Entry, error) {
	out := []Entry{}
	for _, e := range r.byID {
		if e.PetID == petID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (r *testRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.byID[id]; !ok {
		return apperr.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

type testPets struct{}

func (testPets) Authorize(_ context.Context, petID, userID string, perm pets.Permission) (pets.Pet, error) {
	if petID != "pet-1" {
		return pets.Pet{}, apperr.New(apperr.ErrNotFound, "pet not found")
	}
	if userID == "owner-1" || (userID == "reader-1" && perm == pets.PermRecordsRead) {
		return pets.Pet{ID: petID, OwnerUserID: "owner-1"}, nil
	}
	return pets.Pet{}, apperr.ErrForbidden
}

func newTestService() (*Service, *testRepo) {
	repo := &testRepo{byID: map[string]Entry{}}
	svc := NewService(repo, testPets{}, nil)
	svc.now = func() time.Time { return time.Date(2026, 5, 20, 18, 30, 0, 0, time.UTC) }
	return svc, repo
}

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestCreate_DefaultsDateToToday(t *testing.T) {
	svc, _ := newTestService()

	e, err := svc.Create(context.Background(), "pet-1", "owner-1", EntryInput{Title: " Vet ", Content: "checkup ok"})
	require.NoError(t, err)
	assert.Equal(t, "Vet", e.Title)
	assert.Equal(t, *day(2026, 5, 20), e.Date)
}

func TestCreate_RequiresTitleAndContent(t *testing.T) {
	svc, repo := newTestService()

	_, err := svc.Create(context.Background(), "pet-1", "owner-1", EntryInput{Title: "  "})
	var fe apperr.FieldErrors
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe, "title")
	assert.Contains(t, fe, "content")
	assert.Empty(t, repo.byID)
}

func TestCreate_FormErrorsAfterAuthorization(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	bad := EntryInput{Title: "Vet", Content: "ok", FormErrors: apperr.FieldErrors{"date": "must be YYYY-MM-DD"}}

	_, err := svc.Create(ctx, "pet-1", "reader-1", bad)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = svc.Create(ctx, "pet-9", "owner-1", bad)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = svc.Create(ctx, "pet-1", "owner-1", bad)
	var fe apperr.FieldErrors
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "must be YYYY-MM-DD", fe["date"])
	assert.Empty(t, repo.byID)
}

func TestList_DateDescending(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, "pet-1", "owner-1", EntryInput{Title: "old", Content: "a", Date: day(2026, 1, 2)})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "pet-1", "owner-1", EntryInput{Title: "new", Content: "b", Date: day(2026, 4, 2)})
	require.NoError(t, err)

	list, err := svc.ListByPet(ctx, "pet-1", "reader-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].Title)
	assert.Equal(t, "old", list[1].Title)
}

func TestUpdate_KeepsDateWhenOmitted(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	e, err := svc.Create(ctx, "pet-1", "owner-1", EntryInput{Title: "t", Content: "c", Date: day(2026, 2, 1)})
	require.NoError(t, err)

	_, err = svc.Update(ctx, e.ID, "reader-1", EntryInput{Title: "t2", Content: "c2"})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	upd, err := svc.Update(ctx, e.ID, "owner-1", EntryInput{Title: "t2", Content: "c2"})
	require.NoError(t, err)
	assert.Equal(t, "t2", upd.Title)
	assert.Equal(t, *day(2026, 2, 1), upd.Date)

	got, err := svc.Read(ctx, e.ID, "reader-1")
	require.NoError(t, err)
	assert.Equal(t, "c2", got.Content)
}

func TestDelete(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	e, err := svc.Create(ctx, "pet-1", "owner-1", EntryInput{Title: "t", Content: "c"})
	require.NoError(t, err)

	_, err = svc.Delete(ctx, e.ID, "owner-1")
	require.NoError(t, err)
	assert.Empty(t, repo.byID)

	_, err = svc.Read(ctx, e.ID, "owner-1")
	assert.ErrorIs(t, err, ErrNotFound)
}
