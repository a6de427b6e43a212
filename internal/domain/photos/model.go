package photos

import "time"

// Photo es una imagen de la galería de una mascota.
type Photo struct {
	ID         string
	PetID      string
	Filename   string
	Title      string
	UploadedBy string
	UploadedOn time.Time
	CreatedAt  time.Time
}
