// Package details define el payload específico de cada tipo de tracker.
// Se guarda como JSON en la columna details del care event.
package details

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"petpal/internal/platform/apperr"
)

// Payload es el detalle validable de un registro.
type Payload interface {
	Validate() error
}

// Kinds conocidos. Coinciden con trackers.Type.
const (
	KindWeight            = "weight"
	KindVaccine           = "vaccine"
	KindInternalDeworming = "internal_deworming"
	KindExternalDeworming = "external_deworming"
	KindMedication        = "medication"
)

// New devuelve un payload vacío para kind.
func New(kind string) (Payload, error) {
	switch kind {
	case KindWeight:
		return &Weight{}, nil
	case KindVaccine:
		return &Vaccine{}, nil
	case KindInternalDeworming, KindExternalDeworming:
		return &Deworming{}, nil
	case KindMedication:
		return &Medication{}, nil
	default:
		return nil, fmt.Errorf("details: unknown kind %q", kind)
	}
}

// Decode parsea y valida el JSON guardado.
func Decode(kind string, raw []byte) (Payload, error) {
	p, err := New(kind)
	if err != nil {
		return nil, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, p); err != nil {
			return nil, fmt.Errorf("details: decode %s: %w", kind, err)
		}
	}
	return p, nil
}

// FromForm arma el payload de kind desde un formulario y lo valida.
func FromForm(kind string, v url.Values) (Payload, error) {
	fe := apperr.FieldErrors{}
	p, err := Parse(kind, v, fe)
	if err != nil {
		return nil, err
	}
	if err := fe.Err(); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Parse lee el payload sin validarlo; los errores de formato quedan en fe.
func Parse(kind string, v url.Values, fe apperr.FieldErrors) (Payload, error) {
	get := func(k string) string { return strings.TrimSpace(v.Get(k)) }

	var p Payload
	switch kind {
	case KindWeight:
		w := &Weight{}
		raw := get("weight_kg")
		if raw == "" {
			raw = get("weight")
		}
		if raw != "" {
			f, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
			if err != nil {
				fe.Add("weight_kg", "must be a number")
			}
			w.WeightKg = f
		}
		p = w
	case KindVaccine:
		p = &Vaccine{VaccineName: get("vaccine_name"), AdministeredBy: get("administered_by")}
	case KindInternalDeworming, KindExternalDeworming:
		p = &Deworming{ProductName: get("product_name"), Dose: get("dose")}
	case KindMedication:
		p = &Medication{ProductName: get("product_name"), Dosage: get("dosage"), Frequency: get("frequency")}
	default:
		return nil, apperr.New(apperr.ErrInvalidInput, "invalid tracker type")
	}
	return p, nil
}
