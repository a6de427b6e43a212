package pets

import "time"

// Sex usa los valores del formulario (M/F).
// @Enum M, F
type Sex string

const (
	SexMale   Sex = "M"
	SexFemale Sex = "F"
)

// Permission es lo que un usuario puede hacer sobre una mascota ajena.
// El dueño las tiene todas.
type Permission string

const (
	PermPetRead        Permission = "pet:read"
	PermPetEditProfile Permission = "pet:edit_profile"
	PermRecordsRead    Permission = "records:read"
	PermRecordsWrite   Permission = "records:write"

	// permOwner nunca se delega: borrar mascota, gestionar grants.
	permOwner Permission = "owner"
)

// Pet representa el perfil de una mascota registrada en el sistema.
type Pet struct {
	ID          string
	OwnerUserID string

	Name      string
	SpeciesID string
	BreedID   string // opcional; si viene, es de SpeciesID
	Sex       Sex

	BirthDate    *time.Time
	AdoptionDate *time.Time
	Sterilized   bool

	MicrochipNumber  string
	InsuranceCompany string
	InsuranceNumber  string

	ProfilePhoto string // nombre de archivo en uploads
	Notes        string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Age devuelve los años cumplidos a la fecha today, o nil sin fecha de nacimiento.
// Un nacimiento el 29 de febrero cumple el 1 de marzo en años no bisiestos.
func Age(birth *time.Time, today time.Time) *int {
	if birth == nil {
		return nil
	}
	b := *birth
	years := today.Year() - b.Year()

	bm, bd := b.Month(), b.Day()
	if bm == time.February && bd == 29 && !isLeap(today.Year()) {
		bm, bd = time.March, 1
	}
	if today.Month() < bm || (today.Month() == bm && today.Day() < bd) {
		years--
	}
	if years < 0 {
		years = 0
	}
	return &years
}

func isLeap(y int) bool {
	return y%4 == 0 && (y%100 != 0 || y%400 == 0)
}
