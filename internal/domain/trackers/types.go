package trackers

import (
	"strings"

	"petpal/internal/domain/trackers/details"
)

type Type string

const (
	TypeWeight            Type = details.KindWeight
	TypeVaccine           Type = details.KindVaccine
	TypeInternalDeworming Type = details.KindInternalDeworming
	TypeExternalDeworming Type = details.KindExternalDeworming
	TypeMedication        Type = details.KindMedication
)

type Status string

const (
	StatusActive Status = "active"
	StatusVoided Status = "voided"
)

// Tracker describe un tipo en la pantalla de trackers.
type Tracker struct {
	Type        Type
	Name        string
	Description string
	// Slug es el segmento del listado: /{petID}/{slug}.
	Slug string
}

var all = []Tracker{
	describe(TypeWeight, "weights"),
	describe(TypeVaccine, "vaccinations"),
	describe(TypeInternalDeworming, "internal_deworming"),
	describe(TypeExternalDeworming, "external_deworming"),
	describe(TypeMedication, "medications"),
}

// All devuelve los trackers en orden de pantalla.
func All() []Tracker {
	return append([]Tracker(nil), all...)
}

// Lookup resuelve un tipo conocido.
func Lookup(t string) (Tracker, bool) {
	for _, tr := range all {
		if string(tr.Type) == t {
			return tr, true
		}
	}
	return Tracker{}, false
}

// "internal_deworming" => "Internal Deworming Tracker" / "Keep track of your pet's internal deworming"
func describe(t Type, slug string) Tracker {
	words := strings.Split(string(t), "_")
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return Tracker{
		Type:        t,
		Name:        strings.Join(words, " ") + " Tracker",
		Description: "Keep track of your pet's " + strings.ReplaceAll(string(t), "_", " "),
		Slug:        slug,
	}
}
