package details

import (
	"math"

	"petpal/internal/platform/apperr"
)

type Weight struct {
	WeightKg float64 `json:"weight_kg"`
}

func (w *Weight) Validate() error {
	if math.IsInf(w.WeightKg, 0) || math.IsNaN(w.WeightKg) {
		return apperr.Invalid("weight_kg", "must be a number")
	}
	if w.WeightKg <= 0 {
		return apperr.Invalid("weight_kg", "must be greater than 0")
	}
	return nil
}
