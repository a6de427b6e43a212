package details

import (
	"strings"

	"petpal/internal/platform/apperr"
)

type Vaccine struct {
	VaccineName    string `json:"vaccine_name"`
	AdministeredBy string `json:"administered_by,omitempty"`
}

func (v *Vaccine) Validate() error {
	if strings.TrimSpace(v.VaccineName) == "" {
		return apperr.Invalid("vaccine_name", "required")
	}
	return nil
}
