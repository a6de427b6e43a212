package trackers

import (
	"context"
	"strings"
	"time"
)

type Repository interface {
	Create(ctx context.Context, e CareEvent) error
	GetByID(ctx context.Context, id string) (CareEvent, error)
	// ListByPet ordena por fecha descendente y luego recorded_at descendente.
	ListByPet(ctx context.Context, petID string, filter ListFilter) ([]CareEvent, error)
	Void(ctx context.Context, id string, at time.Time) error
}

// ListFilter: From/To inclusivos sobre Date. Query busca en notas y detalles.
type ListFilter struct {
	Types         []Type
	From          *time.Time
	To            *time.Time
	Query         string
	Limit         int
	IncludeVoided bool
}

// Matches aplica el filtro en memoria (Limit aparte).
func (f ListFilter) Matches(e CareEvent) bool {
	if !f.IncludeVoided && e.Status != StatusActive {
		return false
	}
	if len(f.Types) > 0 {
		ok := false
		for _, t := range f.Types {
			if t == e.Type {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if f.From != nil && e.Date.Before(*f.From) {
		return false
	}
	if f.To != nil && e.Date.After(*f.To) {
		return false
	}
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		if !strings.Contains(strings.ToLower(e.Notes), q) && !strings.Contains(strings.ToLower(string(e.Details)), q) {
			return false
		}
	}
	return true
}
