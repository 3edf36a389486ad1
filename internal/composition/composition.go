// Package composition derives the five composition percentages of a
// certificate (gum content, protein, ash, AIR and fat) from the measured
// moisture.
package composition

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
)

var (
	// ErrMoistureRange is returned for moisture outside [0, 100] or NaN.
	ErrMoistureRange = errors.New("moisture must be between 0 and 100")
	// ErrSamplingRange is returned by Randomized when the moisture leaves
	// too little remainder for the gum content range.
	ErrSamplingRange = errors.New("moisture too high for randomized gum content range")
	// ErrUnknownPolicy is returned by ForName.
	ErrUnknownPolicy = errors.New("unknown composition policy")
)

// Components are percentages of the product by weight.
type Components struct {
	GumContent float64 `json:"gum_content"`
	Protein    float64 `json:"protein"`
	Ash        float64 `json:"ash"`
	AIR        float64 `json:"air"`
	Fat        float64 `json:"fat"`
}

// Sum returns the total of the five components.
func (c Components) Sum() float64 {
	return c.GumContent + c.Protein + c.Ash + c.AIR + c.Fat
}

// Policy computes components for a moisture percentage.
type Policy interface {
	Name() string
	Compute(moisture float64) (Components, error)
}

const (
	FixedBaselineName = "fixed-baseline"
	RandomizedName    = "randomized"
)

// Baseline is the reference composition FixedBaseline starts from.
var Baseline = Components{GumContent: 81.61, Protein: 3.15, Ash: 0.64, AIR: 3.0, Fat: 0.70}

// FixedBaseline keeps protein, ash, AIR and fat at their baseline values
// and gives gum content whatever is left, so moisture plus the components
// always totals 100. Gum content goes negative above 92.51% moisture.
type FixedBaseline struct{}

func (FixedBaseline) Name() string { return FixedBaselineName }

func (FixedBaseline) Compute(m float64) (Components, error) {
	if err := checkMoisture(m); err != nil {
		return Components{}, err
	}
	c := Baseline
	c.GumContent = round2(c.GumContent + (100 - (m + Baseline.Sum())))
	return c, nil
}

// Randomized samples gum content uniformly from [81, min(85, 98.5-m)] and
// splits the remainder between the other components with fixed caps and
// ratios. Fat takes what is left.
type Randomized struct {
	// Rand is the sampling source. Nil uses the global generator.
	Rand *rand.Rand
}

func (Randomized) Name() string { return RandomizedName }

func (r Randomized) Compute(m float64) (Components, error) {
	if err := checkMoisture(m); err != nil {
		return Components{}, err
	}
	remaining := 100 - m
	lo, hi := 81.0, math.Min(85, remaining-1.5)
	if hi < lo {
		return Components{}, fmt.Errorf("%w: moisture %.2f leaves upper bound %.2f", ErrSamplingRange, m, hi)
	}

	var c Components
	c.GumContent = round2(lo + r.float()*(hi-lo))
	remaining -= c.GumContent
	c.Protein = round2(math.Min(5, remaining*0.2))
	remaining -= c.Protein
	c.Ash = round2(math.Min(1, remaining*0.2))
	remaining -= c.Ash
	c.AIR = round2(math.Min(6, remaining*0.5))
	remaining -= c.AIR
	c.Fat = round2(remaining)
	return c, nil
}

func (r Randomized) float() float64 {
	if r.Rand != nil {
		return r.Rand.Float64()
	}
	return rand.Float64()
}

// ForName returns the policy registered under name. The empty string selects
// FixedBaseline.
func ForName(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", FixedBaselineName:
		return FixedBaseline{}, nil
	case RandomizedName:
		return Randomized{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
}

func checkMoisture(m float64) error {
	if math.IsNaN(m) || m < 0 || m > 100 {
		return fmt.Errorf("%w: got %v", ErrMoistureRange, m)
	}
	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
