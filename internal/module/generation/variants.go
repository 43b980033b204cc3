package generation

import "math"

// Variant count bounds.
const (
	MinVariants = 1
	MaxVariants = 4
)

// ClampVariantCount rounds count half-up and clamps it to [MinVariants, MaxVariants].
func ClampVariantCount(count float64) int {
	if math.IsNaN(count) {
		return MinVariants
	}
	n := math.Floor(count + 0.5)
	if n < MinVariants {
		return MinVariants
	}
	if n > MaxVariants {
		return MaxVariants
	}
	return int(n)
}
