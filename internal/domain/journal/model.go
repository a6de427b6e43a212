package journal

import "time"

// Entry es una entrada del diario de la mascota.
type Entry struct {
	ID        string
	PetID     string
	Title     string
	Date      time.Time
	Content   string
	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}
