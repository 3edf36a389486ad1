// Package certificates serves the certificate API: single and batch
// generation, generated file download and preview, templates, generic
// fill, the composition calculator and the viscosity simulation.
package certificates

import (
	"errors"
	"net/http"
	"net/url"
	"path/filepath"

	"coagen/internal/audit"
	"coagen/internal/coa"
	"coagen/internal/composition"
	"coagen/internal/fill"
	"coagen/internal/preview"
	"coagen/internal/response"
	"coagen/internal/store"
	"coagen/internal/websocket"

	"go.uber.org/zap"
)

// DefaultMaxUpload bounds multipart uploads when MaxUploadBytes is unset.
const DefaultMaxUpload = 20 << 20

// Handler holds dependencies for certificate handlers.
type Handler struct {
	Store     *store.Store
	Hub       *websocket.Hub
	Audit     *audit.Logger
	Generator *coa.Generator
	Renderer  *preview.Renderer
	Logger    *zap.Logger

	// MaxUploadBytes limits multipart request bodies.
	MaxUploadBytes int64
}

func (h *Handler) log() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}

func (h *Handler) maxUpload() int64 {
	if h.MaxUploadBytes <= 0 {
		return DefaultMaxUpload
	}
	return h.MaxUploadBytes
}

func (h *Handler) broadcast(evt websocket.Event) {
	if h.Hub != nil {
		h.Hub.Broadcast(evt)
	}
}

func (h *Handler) logAudit(r *http.Request, action, module, recordID, summary string) {
	if h.Audit != nil {
		h.Audit.LogRequest(r, action, module, recordID, summary)
	}
}

// generator returns the configured generator, switched to the named
// policy when one is given.
func (h *Handler) generator(policy string) (*coa.Generator, error) {
	if policy == "" {
		return h.Generator, nil
	}
	p, err := composition.ForName(policy)
	if err != nil {
		return nil, err
	}
	return h.Generator.WithPolicy(p), nil
}

// outputPath resolves a generated file name inside the output directory.
func (h *Handler) outputPath(name string) string {
	return filepath.Join(h.Generator.OutputDir(), filepath.Base(name))
}

// FileURL is the download URL of a generated file.
func FileURL(name string) string {
	return "/api/v1/files/" + url.PathEscape(name)
}

// PreviewURL is the preview URL of a generated file.
func PreviewURL(name string) string {
	return FileURL(name) + "/preview"
}

// BatchURL is the summary URL of a stored batch.
func BatchURL(id string) string {
	return "/api/v1/batches/" + url.PathEscape(id)
}

// writeGenerateError maps generation errors to HTTP statuses.
func writeGenerateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, fill.ErrTemplateNotFound), errors.Is(err, store.ErrNotFound):
		response.Err(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, coa.ErrInvalidCode),
		errors.Is(err, composition.ErrMoistureRange),
		errors.Is(err, composition.ErrSamplingRange),
		errors.Is(err, composition.ErrUnknownPolicy),
		errors.Is(err, fill.ErrUnknownMode):
		response.Err(w, err.Error(), http.StatusBadRequest)
	default:
		response.Err(w, err.Error(), http.StatusInternalServerError)
	}
}
