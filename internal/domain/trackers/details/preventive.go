package details

import (
	"strings"

	"petpal/internal/platform/apperr"
)

// Deworming sirve para desparasitación interna y externa.
type Deworming struct {
	ProductName string `json:"product_name"`
	Dose        string `json:"dose,omitempty"`
}

func (d *Deworming) Validate() error {
	if strings.TrimSpace(d.ProductName) == "" {
		return apperr.Invalid("product_name", "required")
	}
	return nil
}
