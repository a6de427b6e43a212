package trackers

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"testing"
	"time"

	"petpal/internal/domain/pets"
	"petpal/internal/domain/trackers/details"
	"petpal/internal/platform/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRepo struct {
	byID map[string]CareEvent
}

func (r *testRepo) Create(_ context.Context, e CareEvent) error {
	r.byID[e.ID] = e
	return nil
}

func (r *testRepo) GetByID(_ context.Context, id string) (CareEvent, error) {
	e, ok := r.byID[id]
	if !ok {
		return CareEvent{}, apperr.ErrNotFound
	}
	return e, nil
}

func (r *testRepo) ListByPet(_ context.Context, petID string, f ListFilter) ([]CareEvent, error) {
	out := []CareEvent{}
	for _, e := range r.byID {
		if e.PetID == petID && f.Matches(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].RecordedAt.After(out[j].RecordedAt)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *testRepo) Void(_ context.Context, id string, at time.Time) error {
	e, ok := r.byID[id]
	if !ok {
		return apperr.ErrNotFound
	}
	e.Status = StatusVoided
	e.VoidedAt = &at
	r.byID[id] = e
	return nil
}

type testPets struct{}

func (testPets) Authorize(_ context.Context, petID, userID string, perm pets.Permission) (pets.Pet, error) {
	if petID != "pet-1" && petID != "pet-2" {
		return pets.Pet{}, apperr.New(apperr.ErrNotFound, "pet not found")
	}
	if userID == "owner-1" || (userID == "reader-1" && perm == pets.PermRecordsRead) {
		return pets.Pet{ID: petID, OwnerUserID: "owner-1"}, nil
	}
	return pets.Pet{}, apperr.ErrForbidden
}

var now = time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)

func newTestService() (*Service, *testRepo) {
	repo := &testRepo{byID: map[string]CareEvent{}}
	svc := NewService(repo, testPets{}, nil)
	clock := now
	svc.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return svc, repo
}

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func addWeight(t *testing.T, svc *Service, d *time.Time, kg float64) CareEvent {
	t.Helper()
	e, err := svc.Add(context.Background(), "pet-1", "owner-1", "weight", AddInput{
		Date:    d,
		Details: &details.Weight{WeightKg: kg},
	})
	require.NoError(t, err)
	return e
}

func TestTrackerNames(t *testing.T) {
	tr, ok := Lookup("internal_deworming")
	require.True(t, ok)
	assert.Equal(t, "Internal Deworming Tracker", tr.Name)
	assert.Equal(t, "Keep track of your pet's internal deworming", tr.Description)

	_, ok = Lookup("bath")
	assert.False(t, ok)
	assert.Len(t, All(), 5)
}

func TestAdd_Validation(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	_, err := svc.Add(ctx, "pet-1", "owner-1", "grooming", AddInput{Date: day(2026, 5, 1)})
	assert.ErrorIs(t, err, ErrUnknownType)

	_, err = svc.Add(ctx, "pet-1", "owner-1", "vaccine", AddInput{Details: &details.Vaccine{VaccineName: "Rabies"}})
	var fe apperr.FieldErrors
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe, "date")

	_, err = svc.Add(ctx, "pet-1", "owner-1", "weight", AddInput{Date: day(2026, 5, 1), Details: &details.Weight{}})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = svc.Add(ctx, "pet-1", "owner-1", "vaccine", AddInput{
		Date:    day(2026, 5, 10),
		NextDue: day(2026, 5, 1),
		Details: &details.Vaccine{VaccineName: "Rabies"},
	})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = svc.Add(ctx, "pet-1", "reader-1", "weight", AddInput{Date: day(2026, 5, 1), Details: &details.Weight{WeightKg: 3}})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	assert.Empty(t, repo.byID)
}

func TestAdd_FormErrorsAfterAuthorization(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	bad := AddInput{
		Details:    &details.Weight{},
		FormErrors: apperr.FieldErrors{"date": "must be YYYY-MM-DD"},
	}

	_, err := svc.Add(ctx, "pet-1", "reader-1", "weight", bad)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = svc.Add(ctx, "pet-9", "owner-1", "weight", bad)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = svc.Add(ctx, "pet-1", "owner-1", "weight", bad)
	var fe apperr.FieldErrors
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "must be YYYY-MM-DD", fe["date"])
	assert.Empty(t, repo.byID)
}

func TestAdd_StoresDetailsAsJSON(t *testing.T) {
	svc, _ := newTestService()

	e, err := svc.Add(context.Background(), "pet-1", "owner-1", "medication", AddInput{
		Date:    day(2026, 5, 3),
		NextDue: day(2026, 5, 4),
		Notes:   " after meals ",
		Details: &details.Medication{ProductName: "Amoxicillin", Dosage: "2 ml"},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusActive, e.Status)
	assert.Equal(t, "after meals", e.Notes)
	assert.Equal(t, "owner-1", e.RecordedBy)
	assert.JSONEq(t, `{"product_name":"Amoxicillin","dosage":"2 ml"}`, string(e.Details))
}

func TestSummaries_LastTenActivePerType(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	for i := 1; i <= 12; i++ {
		addWeight(t, svc, day(2026, 4, i), float64(i))
	}
	v := addWeight(t, svc, day(2026, 4, 30), 99)
	_, err := svc.Void(ctx, "pet-1", v.ID, "owner-1")
	require.NoError(t, err)

	sums, err := svc.Summaries(ctx, "pet-1", "reader-1")
	require.NoError(t, err)
	require.Len(t, sums, 5)

	assert.Equal(t, TypeWeight, sums[0].Tracker.Type)
	require.Len(t, sums[0].Entries, SummaryLimit)
	assert.Equal(t, *day(2026, 4, 12), sums[0].Entries[0].Date)
	for _, s := range sums[1:] {
		assert.Empty(t, s.Entries)
	}
}

func TestList_Filters(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Add(ctx, "pet-1", "owner-1", "vaccine", AddInput{Date: day(2026, 1, 5), Details: &details.Vaccine{VaccineName: "Rabies"}})
	require.NoError(t, err)
	_, err = svc.Add(ctx, "pet-1", "owner-1", "vaccine", AddInput{Date: day(2026, 3, 5), Details: &details.Vaccine{VaccineName: "Parvovirus"}})
	require.NoError(t, err)
	addWeight(t, svc, day(2026, 3, 6), 4)

	all, err := svc.List(ctx, "pet-1", "owner-1", TypeVaccine, ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	from := day(2026, 2, 1)
	recent, err := svc.List(ctx, "pet-1", "owner-1", TypeVaccine, ListFilter{From: from})
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Contains(t, string(recent[0].Details), "Parvovirus")

	q, err := svc.List(ctx, "pet-1", "owner-1", TypeVaccine, ListFilter{Query: "rabies"})
	require.NoError(t, err)
	assert.Len(t, q, 1)
}

func TestVoid(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	e := addWeight(t, svc, day(2026, 5, 1), 4)

	_, err := svc.Void(ctx, "pet-2", e.ID, "owner-1")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Void(ctx, "pet-1", e.ID, "reader-1")
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	v, err := svc.Void(ctx, "pet-1", e.ID, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, StatusVoided, v.Status)

	// idempotente
	_, err = svc.Void(ctx, "pet-1", e.ID, "owner-1")
	require.NoError(t, err)

	list, err := svc.List(ctx, "pet-1", "owner-1", TypeWeight, ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestWeightChart_NoSamples(t *testing.T) {
	svc, _ := newTestService()

	c, err := svc.WeightChart(context.Background(), "pet-1", "owner-1", 0, 0)
	require.NoError(t, err)
	assert.Nil(t, c.SVG)
	assert.Equal(t, time.May, c.Month)
	assert.Equal(t, "May", c.MonthName)
	assert.Len(t, c.Days, 31)
	assert.Equal(t, time.May, c.CurrentMonth)
	assert.Equal(t, 2026, c.CurrentYear)
}

func TestWeightChart_OneSample(t *testing.T) {
	svc, _ := newTestService()
	addWeight(t, svc, day(2026, 2, 14), 5.5)

	c, err := svc.WeightChart(context.Background(), "pet-1", "owner-1", 2, 2026)
	require.NoError(t, err)
	require.NotNil(t, c.SVG)
	assert.Len(t, c.Days, 28)
	assert.Equal(t, 1, strings.Count(*c.SVG, `class="point"`))
	assert.Equal(t, 0, strings.Count(*c.SVG, `class="series"`))
}

func TestWeightChart_GapsAndLatestWins(t *testing.T) {
	svc, _ := newTestService()
	addWeight(t, svc, day(2026, 3, 1), 4)
	addWeight(t, svc, day(2026, 3, 2), 4.1)
	addWeight(t, svc, day(2026, 3, 2), 4.3) // corrección del mismo día
	addWeight(t, svc, day(2026, 3, 10), 4.6)
	addWeight(t, svc, day(2026, 4, 1), 9) // otro mes

	c, err := svc.WeightChart(context.Background(), "pet-1", "owner-1", 3, 2026)
	require.NoError(t, err)
	require.NotNil(t, c.SVG)

	require.NotNil(t, c.Days[1].WeightKg)
	assert.Equal(t, 4.3, *c.Days[1].WeightKg)
	assert.Nil(t, c.Days[2].WeightKg)
	assert.Nil(t, c.Days[30].WeightKg)

	// días 1-2 unidos, 10 suelto
	assert.Equal(t, 1, strings.Count(*c.SVG, `class="series"`))
	assert.Equal(t, 3, strings.Count(*c.SVG, `class="point"`))
}

func TestWeightChart_InvalidMonth(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.WeightChart(context.Background(), "pet-1", "owner-1", 13, 2026)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestMonthlyWeights_IgnoresVoidedAndBadPayload(t *testing.T) {
	first := *day(2026, 6, 1)
	raw, _ := json.Marshal(details.Weight{WeightKg: 3})
	samples := []CareEvent{
		{Type: TypeWeight, Status: StatusVoided, Date: first, Details: raw},
		{Type: TypeWeight, Status: StatusActive, Date: first.AddDate(0, 0, 1), Details: []byte(`not json`)},
		{Type: TypeWeight, Status: StatusActive, Date: first.AddDate(0, 0, 2), Details: raw},
	}

	days := MonthlyWeights(first, samples)
	require.Len(t, days, 30)
	assert.Nil(t, days[0].WeightKg)
	assert.Nil(t, days[1].WeightKg)
	require.NotNil(t, days[2].WeightKg)
	assert.Equal(t, 3.0, *days[2].WeightKg)
}
