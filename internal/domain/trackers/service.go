package trackers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"petpal/internal/domain/pets"
	"petpal/internal/domain/trackers/details"
	"petpal/internal/platform/apperr"
	"petpal/internal/platform/chart"
	"petpal/internal/platform/logger"

	"github.com/google/uuid"
)

const (
	SummaryLimit = 10
	DefaultLimit = 50
	MaxLimit     = 200
)

var (
	ErrNotFound    = apperr.New(apperr.ErrNotFound, "entry not found")
	ErrUnknownType = apperr.New(apperr.ErrInvalidInput, "invalid tracker type")
)

type PetAuthorizer interface {
	Authorize(ctx context.Context, petID, userID string, perm pets.Permission) (pets.Pet, error)
}

type Service struct {
	repo Repository
	pets PetAuthorizer
	log  logger.Logger
	now  func() time.Time
}

func NewService(repo Repository, petsAuth PetAuthorizer, log logger.Logger) *Service {
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{
		repo: repo,
		pets: petsAuth,
		log:  log,
		now:  time.Now,
	}
}

type AddInput struct {
	Date    *time.Time
	NextDue *time.Time
	Notes   string
	Details details.Payload

	// FormErrors son errores de formato; se reportan después de autorizar.
	FormErrors apperr.FieldErrors
}

// Summary es un tracker con sus últimos registros.
type Summary struct {
	Tracker Tracker
	Entries []CareEvent
}

// Summaries arma la pantalla de trackers: últimos 10 registros activos por tipo.
func (s *Service) Summaries(ctx context.Context, petID, userID string) ([]Summary, error) {
	if _, err := s.pets.Authorize(ctx, petID, userID, pets.PermRecordsRead); err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(all))
	for _, tr := range all {
		items, err := s.repo.ListByPet(ctx, petID, ListFilter{Types: []Type{tr.Type}, Limit: SummaryLimit})
		if err != nil {
			return nil, fmt.Errorf("trackers: list %s: %w", tr.Type, err)
		}
		out = append(out, Summary{Tracker: tr, Entries: items})
	}
	return out, nil
}

func (s *Service) Add(ctx context.Context, petID, userID, typ string, in AddInput) (CareEvent, error) {
	tr, ok := Lookup(typ)
	if !ok {
		return CareEvent{}, ErrUnknownType
	}
	p, err := s.pets.Authorize(ctx, petID, userID, pets.PermRecordsWrite)
	if err != nil {
		return CareEvent{}, err
	}

	fe := apperr.FieldErrors{}
	fe.Merge(in.FormErrors)
	if in.Date == nil {
		fe.Add("date", "required")
	}
	if in.Date != nil && in.NextDue != nil && in.NextDue.Before(*in.Date) {
		fe.Add("next_dosis", "cannot be before date")
	}
	if err := fe.Err(); err != nil {
		return CareEvent{}, err
	}
	if in.Details == nil {
		return CareEvent{}, apperr.New(apperr.ErrInvalidInput, "details required")
	}
	if err := in.Details.Validate(); err != nil {
		return CareEvent{}, err
	}
	raw, err := json.Marshal(in.Details)
	if err != nil {
		return CareEvent{}, fmt.Errorf("trackers: encode details: %w", err)
	}

	e := CareEvent{
		ID:         uuid.NewString(),
		PetID:      p.ID,
		Type:       tr.Type,
		Date:       *in.Date,
		NextDue:    in.NextDue,
		Notes:      strings.TrimSpace(in.Notes),
		Details:    raw,
		Status:     StatusActive,
		RecordedBy: userID,
		RecordedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, e); err != nil {
		return CareEvent{}, fmt.Errorf("trackers: create: %w", err)
	}
	return e, nil
}

// List es el listado de un tipo con filtros.
func (s *Service) List(ctx context.Context, petID, userID string, typ Type, filter ListFilter) ([]CareEvent, error) {
	if _, err := s.pets.Authorize(ctx, petID, userID, pets.PermRecordsRead); err != nil {
		return nil, err
	}
	if filter.Limit <= 0 || filter.Limit > MaxLimit {
		filter.Limit = DefaultLimit
	}
	filter.Types = []Type{typ}
	filter.IncludeVoided = false
	return s.repo.ListByPet(ctx, petID, filter)
}

// Void anula un registro de la mascota. Anular dos veces no falla.
func (s *Service) Void(ctx context.Context, petID, entryID, userID string) (CareEvent, error) {
	if _, err := s.pets.Authorize(ctx, petID, userID, pets.PermRecordsWrite); err != nil {
		return CareEvent{}, err
	}

	e, err := s.repo.GetByID(ctx, strings.TrimSpace(entryID))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return CareEvent{}, ErrNotFound
		}
		return CareEvent{}, fmt.Errorf("trackers: get: %w", err)
	}
	// No filtrar registros de otra mascota
	if e.PetID != petID {
		return CareEvent{}, ErrNotFound
	}
	if e.Status == StatusVoided {
		return e, nil
	}

	now := s.now().UTC()
	if err := s.repo.Void(ctx, e.ID, now); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return CareEvent{}, ErrNotFound
		}
		return CareEvent{}, fmt.Errorf("trackers: void: %w", err)
	}
	e.Status = StatusVoided
	e.VoidedAt = &now
	s.log.Info("care event voided", map[string]any{"pet_id": petID, "entry_id": e.ID, "by": userID})
	return e, nil
}

// DayWeight es un día del mes; WeightKg nil si no hubo registro.
type DayWeight struct {
	Date     time.Time
	WeightKg *float64
}

type WeightChart struct {
	Year      int
	Month     time.Month
	MonthName string
	Days      []DayWeight
	// SVG es nil cuando el mes no tiene registros.
	SVG *string

	CurrentMonth time.Month
	CurrentYear  int
}

// WeightChart arma el gráfico mensual. month 0 / year 0 => mes actual.
func (s *Service) WeightChart(ctx context.Context, petID, userID string, month, year int) (WeightChart, error) {
	if _, err := s.pets.Authorize(ctx, petID, userID, pets.PermRecordsRead); err != nil {
		return WeightChart{}, err
	}

	now := s.now().UTC()
	if month == 0 {
		month = int(now.Month())
	}
	if year == 0 {
		year = now.Year()
	}
	fe := apperr.FieldErrors{}
	if month < 1 || month > 12 {
		fe.Add("month", "must be between 1 and 12")
	}
	if year < 1 || year > 9999 {
		fe.Add("year", "out of range")
	}
	if err := fe.Err(); err != nil {
		return WeightChart{}, err
	}

	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	samples, err := s.repo.ListByPet(ctx, petID, ListFilter{
		Types: []Type{TypeWeight},
		From:  &first,
		To:    &last,
	})
	if err != nil {
		return WeightChart{}, fmt.Errorf("trackers: list weights: %w", err)
	}

	days := MonthlyWeights(first, samples)

	out := WeightChart{
		Year:         year,
		Month:        first.Month(),
		MonthName:    first.Month().String(),
		Days:         days,
		CurrentMonth: now.Month(),
		CurrentYear:  now.Year(),
	}

	points := make([]chart.Point, len(days))
	for i, d := range days {
		points[i] = chart.Point{Label: fmt.Sprintf("%d", d.Date.Day()), Value: d.WeightKg}
	}
	svg, err := chart.Render(chart.LineChart{
		Title:  fmt.Sprintf("Pet's Weight for %s %d", first.Month(), year),
		XLabel: "Day",
		YLabel: "Weight (kg)",
		Color:  "green",
		Points: points,
	})
	switch {
	case errors.Is(err, chart.ErrNoData):
		return out, nil
	case err != nil:
		return WeightChart{}, fmt.Errorf("trackers: render chart: %w", err)
	}
	out.SVG = &svg
	return out, nil
}

// MonthlyWeights arma un día por fecha del mes de first; a igual día gana
// el registro cargado más tarde. Los días sin registro quedan en nil.
func MonthlyWeights(first time.Time, samples []CareEvent) []DayWeight {
	type pick struct {
		kg float64
		at time.Time
	}
	byDay := map[int]pick{}
	for _, e := range samples {
		if e.Type != TypeWeight || e.Status != StatusActive {
			continue
		}
		if e.Date.Year() != first.Year() || e.Date.Month() != first.Month() {
			continue
		}
		var w details.Weight
		if err := json.Unmarshal(e.Details, &w); err != nil || w.WeightKg <= 0 {
			continue
		}
		d := e.Date.Day()
		if cur, ok := byDay[d]; ok && !e.RecordedAt.After(cur.at) {
			continue
		}
		byDay[d] = pick{kg: w.WeightKg, at: e.RecordedAt}
	}

	n := first.AddDate(0, 1, -1).Day()
	out := make([]DayWeight, n)
	for i := 0; i < n; i++ {
		out[i] = DayWeight{Date: first.AddDate(0, 0, i)}
		if p, ok := byDay[i+1]; ok {
			kg := p.kg
			out[i].WeightKg = &kg
		}
	}
	return out
}
