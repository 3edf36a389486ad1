package certificates

import (
	"errors"
	"math"
	"net/http"

	"coagen/internal/composition"
	"coagen/internal/response"
	"coagen/internal/simulation"
	"coagen/internal/validation"
)

// compositionRequest is the body of POST /api/v1/composition.
type compositionRequest struct {
	Moisture *float64 `json:"moisture"`
	Policy   string   `json:"policy,omitempty"`
}

type compositionResponse struct {
	Policy     string                 `json:"policy"`
	Moisture   float64                `json:"moisture"`
	Components composition.Components `json:"components"`
	Total      float64                `json:"total"`
}

// Composition handles POST /api/v1/composition.
func (h *Handler) Composition(w http.ResponseWriter, r *http.Request) {
	var req compositionRequest
	if err := response.DecodeBody(r, &req); err != nil {
		response.Err(w, "invalid body", http.StatusBadRequest)
		return
	}
	ve := &validation.ValidationErrors{}
	if req.Moisture == nil {
		ve.Add("moisture", "is required")
	} else {
		validation.ValidatePercentage(ve, "moisture", *req.Moisture)
	}
	validation.ValidateEnum(ve, "policy", req.Policy, validation.ValidPolicies)
	if ve.HasErrors() {
		response.Err(w, ve.Error(), http.StatusBadRequest)
		return
	}

	p, err := composition.ForName(req.Policy)
	if err != nil {
		writeGenerateError(w, err)
		return
	}
	c, err := p.Compute(*req.Moisture)
	if err != nil {
		writeGenerateError(w, err)
		return
	}
	response.JSON(w, compositionResponse{
		Policy:     p.Name(),
		Moisture:   *req.Moisture,
		Components: c,
		Total:      math.Round((*req.Moisture+c.Sum())*100) / 100,
	})
}

// Simulate handles POST /api/v1/simulation.
func (h *Handler) Simulate(w http.ResponseWriter, r *http.Request) {
	var in simulation.Input
	if err := response.DecodeBody(r, &in); err != nil {
		response.Err(w, "invalid body", http.StatusBadRequest)
		return
	}
	ve := &validation.ValidationErrors{}
	validation.ValidateNonNegativeFloat(ve, "powder_weight", in.PowderWeight)
	validation.RequireField(ve, "powder_mesh", in.PowderMesh)
	validation.ValidateEnum(ve, "powder_mesh", in.PowderMesh, validation.ValidMeshSizes)
	validation.ValidatePercentage(ve, "moisture", in.Moisture)
	validation.ValidateNonNegativeFloat(ve, "rpm", in.RPM)
	validation.RequireField(ve, "mixer_size", in.MixerSize)
	validation.ValidateEnum(ve, "mixer_size", in.MixerSize, validation.ValidMixerSizes)
	validation.ValidateNonNegativeFloat(ve, "water", in.Water)
	validation.ValidateNonNegativeFloat(ve, "split_daal", in.SplitDaal)
	validation.ValidateNonNegativeFloat(ve, "viscometer", in.Viscometer)
	for _, c := range in.Chemicals {
		validation.ValidateNonNegativeFloat(ve, "chemicals."+c.Name, c.Weight)
	}
	if ve.HasErrors() {
		response.Err(w, ve.Error(), http.StatusBadRequest)
		return
	}

	res, err := simulation.Run(in)
	if errors.Is(err, simulation.ErrUnknownMesh) || errors.Is(err, simulation.ErrUnknownMixer) {
		response.Err(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		response.Err(w, err.Error(), http.StatusInternalServerError)
		return
	}
	response.JSON(w, res)
}
