package photos

import (
	"context"
	"errors"
	"io"
	"os"
	"sort"
	"strings"
	"testing"
	"time"

	"petpal/internal/domain/pets"
	"petpal/internal/platform/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRepo struct {
	byID     map[string]Photo
	failNext error
}

func (r *testRepo) Create(_ context.Context, p Photo) error {
	if r.failNext != nil {
		err := r.failNext
		r.failNext = nil
		return err
	}
	r.byID[p.ID] = p
	return nil
}

func (r *testRepo) GetByID(_ context.Context, id string) (Photo, error) {
	p, ok := r.byID[id]
	if !ok {
		return Photo{}, apperr.ErrNotFound
	}
	return p, nil
}

func (r *testRepo) ListByPet(_ context.Context, petID string) ([]Photo, error) {
	out := []Photo{}
	for _, p := range r.byID {
		if p.PetID == petID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *testRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.byID[id]; !ok {
		return apperr.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

type testFiles struct {
	saved   map[string]bool
	removed []string
	n       int
}

func (f *testFiles) Save(original string, r io.Reader) (string, error) {
	if !strings.HasSuffix(original, ".png") {
		return "", apperr.New(apperr.ErrInvalidInput, "only images")
	}
	_, _ = io.Copy(io.Discard, r)
	f.n++
	name := "photo-" + string(rune('a'+f.n)) + ".png"
	f.saved[name] = true
	return name, nil
}

func (f *testFiles) Remove(name string) error {
	f.removed = append(f.removed, name)
	if !f.saved[name] {
		return os.ErrNotExist
	}
	delete(f.saved, name)
	return nil
}

// testPets: owner-1 es dueño de pet-1; reader-1 solo tiene records:read.
type testPets struct{}

func (testPets) Authorize(_ context.Context, petID, userID string, perm pets.Permission) (pets.Pet, error) {
	if petID != "pet-1" {
		return pets.Pet{}, apperr.New(apperr.ErrNotFound, "pet not found")
	}
	switch {
	case userID == "owner-1":
	case userID == "reader-1" && perm == pets.PermRecordsRead:
	default:
		return pets.Pet{}, apperr.ErrForbidden
	}
	return pets.Pet{ID: petID, OwnerUserID: "owner-1"}, nil
}

func newTestService() (*Service, *testRepo, *testFiles) {
	repo := &testRepo{byID: map[string]Photo{}}
	files := &testFiles{saved: map[string]bool{}}
	svc := NewService(repo, testPets{}, files, nil)
	return svc, repo, files
}

func png(name string) *pets.Image {
	return &pets.Image{Filename: name, Body: strings.NewReader("\x89PNG")}
}

func TestUpload_ListNewestFirst(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }
	first, err := svc.Upload(ctx, "pet-1", "owner-1", "  first ", png("a.png"))
	require.NoError(t, err)
	assert.Equal(t, "first", first.Title)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), first.UploadedOn)

	svc.now = func() time.Time { return base.Add(time.Hour) }
	second, err := svc.Upload(ctx, "pet-1", "owner-1", "", png("b.png"))
	require.NoError(t, err)

	list, err := svc.ListByPet(ctx, "pet-1", "reader-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
}

func TestUpload_Validation(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Upload(ctx, "pet-1", "owner-1", "x", nil)
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))

	_, err = svc.Upload(ctx, "pet-1", "owner-1", "x", png("doc.pdf"))
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))

	_, err = svc.Upload(ctx, "pet-1", "reader-1", "x", png("a.png"))
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	_, err = svc.Upload(ctx, "pet-9", "owner-1", "x", png("a.png"))
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestUpload_RemovesFileWhenInsertFails(t *testing.T) {
	svc, repo, files := newTestService()
	repo.failNext = errors.New("disk full")

	_, err := svc.Upload(context.Background(), "pet-1", "owner-1", "", png("a.png"))
	require.Error(t, err)
	assert.Empty(t, files.saved)
	assert.Len(t, files.removed, 1)
}

func TestDelete_RemovesRowAndFile(t *testing.T) {
	svc, repo, files := newTestService()
	ctx := context.Background()

	ph, err := svc.Upload(ctx, "pet-1", "owner-1", "", png("a.png"))
	require.NoError(t, err)

	_, err = svc.Delete(ctx, ph.ID, "reader-1")
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	_, err = svc.Delete(ctx, ph.ID, "owner-1")
	require.NoError(t, err)
	assert.Empty(t, repo.byID)
	assert.Equal(t, []string{ph.Filename}, files.removed)

	_, err = svc.Delete(ctx, ph.ID, "owner-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete_MissingFileIsNotAnError(t *testing.T) {
	svc, repo, _ := newTestService()
	repo.byID["p1"] = Photo{ID: "p1", PetID: "pet-1", Filename: "gone.png"}

	_, err := svc.Delete(context.Background(), "p1", "owner-1")
	require.NoError(t, err)
}
