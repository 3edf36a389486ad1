// Package simulation estimates the viscosity and reaction time of a gum
// solution batch from its mixing parameters.
package simulation

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrUnknownMesh  = errors.New("unknown powder mesh")
	ErrUnknownMixer = errors.New("unknown mixer size")
)

var meshFactors = map[string]float64{"80": 0.9, "100": 1.0, "200": 1.1}

var mixerFactors = map[string]float64{"Small": 0.8, "Medium": 1.0, "Large": 1.2}

// Chemical is an additive and its weight in grams.
type Chemical struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
}

// Input describes one mixing run.
type Input struct {
	PowderWeight float64    `json:"powder_weight"`
	PowderMesh   string     `json:"powder_mesh"`
	Moisture     float64    `json:"moisture"`
	RPM          float64    `json:"rpm"`
	MixerSize    string     `json:"mixer_size"`
	Water        float64    `json:"water"`
	SplitDaal    float64    `json:"split_daal"`
	Chemicals    []Chemical `json:"chemicals"`
	Method       string     `json:"method"`
	Viscometer   float64    `json:"viscometer"`
}

// Result is the simulated outcome alongside the input it came from.
type Result struct {
	Input
	Viscosity    float64 `json:"viscosity_cp"`
	ReactionTime float64 `json:"reaction_time_min"`
}

// Run computes the adjusted viscosity (cP) and estimated reaction time
// (minutes), both rounded to two decimals.
func Run(in Input) (Result, error) {
	mesh, ok := meshFactors[in.PowderMesh]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownMesh, in.PowderMesh)
	}
	mixer, ok := mixerFactors[in.MixerSize]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownMixer, in.MixerSize)
	}

	var chem float64
	for _, c := range in.Chemicals {
		chem += c.Weight
	}
	viscosity := in.Viscometer * (1 + 0.01*chem) * mesh * mixer
	reaction := (in.PowderWeight + in.Water + chem/1000) / (in.RPM + 1)

	return Result{
		Input:        in,
		Viscosity:    round2(viscosity),
		ReactionTime: round2(reaction),
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
