// Package risk implements the simplified lightning-exposure assessment from
// NBR 5419 Annex L: annual threat frequency versus tolerable frequency for a
// rectangular structure, with table-driven risk coefficients.
package risk

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidGeometry reports non-positive or non-finite structure geometry.
var ErrInvalidGeometry = errors.New("invalid structure geometry")

// Input describes the structure being assessed.
type Input struct {
	// FlashDensity is Ng, ground flash density in flashes/km²/year.
	FlashDensity float64

	// Length, Width and Height are the structure dimensions in meters.
	Length float64
	Width  float64
	Height float64

	// Categorical risk factors, using the backend's wire values.
	Structure   string // structure material (C2, combined with Roof)
	Roof        string // roof material (C2, combined with Structure)
	Contents    string // contents value class (C3)
	Occupancy   string // occupancy class (C4)
	Consequence string // strike consequence class (C5)
	Siting      string // relative siting (Cd)
}

// Output carries the computed assessment.
type Output struct {
	// CollectionArea is Ad, the equivalent collection area in m².
	CollectionArea float64

	// ThreatFrequency is Nd, the expected annual number of strikes.
	ThreatFrequency float64

	// TolerableFrequency is Nc, the tolerable annual number of strikes.
	TolerableFrequency float64

	// CombinedCoefficient is C = C2·C3·C4·C5.
	CombinedCoefficient float64

	// Resolved coefficients, kept for display.
	C2, C3, C4, C5, Cd float64

	// ProtectionRequired is true iff Nd exceeds Nc strictly.
	ProtectionRequired bool
}

// Calculate performs the simplified assessment. Geometry must be positive
// and finite; unknown categorical values fall back to neutral coefficients.
func Calculate(in Input) (Output, error) {
	if err := validateGeometry(in); err != nil {
		return Output{}, err
	}

	// Equivalent collection area, formula L.4.1.1.
	ad := in.Length*in.Width +
		6*in.Height*(in.Length+in.Width) +
		math.Pi*9*in.Height*in.Height

	c2 := StructureCoefficients.Lookup(in.Structure + "_" + in.Roof)
	c3 := ContentsCoefficients.Lookup(in.Contents)
	c4 := OccupancyCoefficients.Lookup(in.Occupancy)
	c5 := ConsequenceCoefficients.Lookup(in.Consequence)
	cd := SitingCoefficients.Lookup(in.Siting)

	// Formula L.5.1.1.
	c := c2 * c3 * c4 * c5
	nc := 1.5e-3 / c

	// Formula L.3.
	nd := in.FlashDensity * ad * cd * 1e-6

	return Output{
		CollectionArea:      ad,
		ThreatFrequency:     nd,
		TolerableFrequency:  nc,
		CombinedCoefficient: c,
		C2:                  c2,
		C3:                  c3,
		C4:                  c4,
		C5:                  c5,
		Cd:                  cd,
		ProtectionRequired:  nd > nc,
	}, nil
}

func validateGeometry(in Input) error {
	dimensions := map[string]float64{
		"length": in.Length,
		"width":  in.Width,
		"height": in.Height,
	}
	for name, value := range dimensions {
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return fmt.Errorf("%w: %s is not finite", ErrInvalidGeometry, name)
		}
		if value <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %g", ErrInvalidGeometry, name, value)
		}
	}
	if math.IsNaN(in.FlashDensity) || math.IsInf(in.FlashDensity, 0) {
		return fmt.Errorf("%w: flash density is not finite", ErrInvalidGeometry)
	}
	if in.FlashDensity < 0 {
		return fmt.Errorf("%w: flash density must not be negative, got %g", ErrInvalidGeometry, in.FlashDensity)
	}
	return nil
}
