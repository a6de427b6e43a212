package trackers

import (
	"encoding/json"
	"time"
)

// CareEvent es el registro genérico detrás de los cinco trackers.
// Es append-only: anular (void) lo oculta de listados y gráficos.
type CareEvent struct {
	ID    string
	PetID string
	Type  Type

	Date    time.Time
	NextDue *time.Time
	Notes   string

	// Details es el payload del tipo (ver paquete details).
	Details json.RawMessage

	Status     Status
	RecordedBy string
	RecordedAt time.Time
	VoidedAt   *time.Time
}
