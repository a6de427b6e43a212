package details

import (
	"strings"

	"petpal/internal/platform/apperr"
)

type Medication struct {
	ProductName string `json:"product_name"`
	Dosage      string `json:"dosage,omitempty"`    // "2 ml"
	Frequency   string `json:"frequency,omitempty"` // texto libre: "cada 12h"
}

func (m *Medication) Validate() error {
	if strings.TrimSpace(m.ProductName) == "" {
		return apperr.Invalid("product_name", "required")
	}
	return nil
}
