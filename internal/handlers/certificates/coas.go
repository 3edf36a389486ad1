package certificates

import (
	"context"
	"errors"
	"net/http"

	"coagen/internal/audit"
	"coagen/internal/auth"
	"coagen/internal/coa"
	"coagen/internal/models"
	"coagen/internal/preview"
	"coagen/internal/response"
	"coagen/internal/sheet"
	"coagen/internal/store"
	"coagen/internal/validation"
	"coagen/internal/websocket"

	"go.uber.org/zap"
)

// coaRequest is the body of POST /api/v1/coas.
type coaRequest struct {
	coa.Record
	Policy string `json:"policy,omitempty"`
	// Preview selects an inline preview format; empty skips it.
	Preview string `json:"preview,omitempty"`
}

// coaResponse is a generated certificate with its links and optional
// preview.
type coaResponse struct {
	coa.Result
	Policy       string  `json:"policy"`
	DownloadURL  string  `json:"download_url"`
	PreviewURL   string  `json:"preview_url"`
	Preview      *string `json:"preview,omitempty"`
	PreviewError string  `json:"preview_error,omitempty"`
}

func validateRecord(ve *validation.ValidationErrors, rec coa.Record) {
	validation.RequireField(ve, "code", rec.Code)
	validation.ValidateCode(ve, "code", rec.Code)
	validation.RequireField(ve, "batch_no", rec.BatchNo)
	validation.ValidatePercentage(ve, "moisture", rec.Moisture)
	for field, v := range map[string]string{
		"code": rec.Code, "date": rec.Date, "batch_no": rec.BatchNo, "ph": rec.PH,
		"mesh_200": rec.Mesh200, "viscosity_2h": rec.Viscosity2H, "viscosity_24h": rec.Viscosity24H,
	} {
		validation.ValidateMaxLength(ve, field, v, validation.MaxStringLength)
	}
	validation.ValidateLabels(ve, "extra", rec.Extra)
}

// CreateCOA handles POST /api/v1/coas.
func (h *Handler) CreateCOA(w http.ResponseWriter, r *http.Request) {
	var req coaRequest
	if err := response.DecodeBody(r, &req); err != nil {
		response.Err(w, "invalid body", http.StatusBadRequest)
		return
	}

	ve := &validation.ValidationErrors{}
	validateRecord(ve, req.Record)
	validation.ValidateEnum(ve, "policy", req.Policy, validation.ValidPolicies)
	validation.ValidateEnum(ve, "preview", req.Preview, validation.ValidPreviewFormats)
	if ve.HasErrors() {
		response.Err(w, ve.Error(), http.StatusBadRequest)
		return
	}

	gen, err := h.generator(req.Policy)
	if err != nil {
		writeGenerateError(w, err)
		return
	}
	res, err := gen.Generate(r.Context(), req.Record)
	if err != nil {
		writeGenerateError(w, err)
		return
	}

	actor := auth.Actor(r.Context())
	if err := h.Store.RecordGeneration(r.Context(), "", actor, gen.Policy().Name(), res); err != nil {
		h.log().Error("record generation", zap.String("id", res.ID), zap.Error(err))
	}
	h.logAudit(r, audit.ActionGenerate, audit.ModuleCOA, res.ID, "Generated "+res.FileName)
	h.broadcast(websocket.Event{Type: websocket.EventGenerated, ID: res.ID, Action: "generated", Data: res})

	out := coaResponse{
		Result:      res,
		Policy:      gen.Policy().Name(),
		DownloadURL: FileURL(res.FileName),
		PreviewURL:  PreviewURL(res.FileName),
	}
	if req.Preview != "" {
		out.Preview, out.PreviewError = h.renderPreview(res.Path, req.Preview)
	}
	response.Created(w, out)
}

// renderPreview renders a generated file. Failure is reported in the
// second result and never fails the request.
func (h *Handler) renderPreview(path, format string) (*string, string) {
	rd := h.Renderer
	if rd == nil {
		rd = preview.New(h.Logger)
	}
	s, err := rd.RenderFile(path, format)
	if err != nil {
		h.log().Warn("preview failed", zap.String("path", path), zap.String("format", format), zap.Error(err))
		return nil, err.Error()
	}
	return &s, ""
}

// batchNotifier stores and broadcasts batch progress. Writes use a context
// that outlives request cancellation so rows already generated are kept.
type batchNotifier struct {
	h      *Handler
	ctx    context.Context
	actor  string
	policy string
}

func (n batchNotifier) Generated(batchID string, res coa.Result) {
	if err := n.h.Store.RecordGeneration(n.ctx, batchID, n.actor, n.policy, res); err != nil {
		n.h.log().Error("record generation", zap.String("batch_id", batchID), zap.Int("row", res.Row), zap.Error(err))
	}
	n.h.broadcast(websocket.Event{Type: websocket.EventGenerated, ID: batchID, Action: "generated", Data: res})
}

func (n batchNotifier) Skipped(batchID string, s coa.Skip) {
	if err := n.h.Store.RecordSkip(n.ctx, batchID, s); err != nil {
		n.h.log().Error("record skip", zap.String("batch_id", batchID), zap.Int("row", s.Row), zap.Error(err))
	}
	n.h.broadcast(websocket.Event{Type: websocket.EventSkipped, ID: batchID, Action: "skipped", Data: s})
}

// CreateBatch handles POST /api/v1/coas/batch with a multipart XLSX upload
// in the "file" part and an optional "policy" field.
func (h *Handler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload())
	if err := r.ParseMultipartForm(h.maxUpload()); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			response.Err(w, "upload too large", http.StatusRequestEntityTooLarge)
			return
		}
		response.Err(w, "invalid multipart form", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		response.Err(w, "file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	policy := r.FormValue("policy")
	ve := &validation.ValidationErrors{}
	validation.ValidateFileExtension(ve, "file", header.Filename, ".xlsx")
	validation.ValidateEnum(ve, "policy", policy, validation.ValidPolicies)
	if ve.HasErrors() {
		response.Err(w, ve.Error(), http.StatusBadRequest)
		return
	}

	rows, skips, err := sheet.ReadRecords(file)
	if err != nil {
		response.Err(w, err.Error(), http.StatusBadRequest)
		return
	}
	gen, err := h.generator(policy)
	if err != nil {
		writeGenerateError(w, err)
		return
	}

	ctx := r.Context()
	actor := auth.Actor(ctx)
	source := validation.SanitizeFilename(header.Filename)
	res := coa.NewBatchResult()
	if err := h.Store.CreateBatch(ctx, res.ID, source, actor); err != nil {
		response.Err(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.broadcast(websocket.Event{Type: websocket.EventBatchStarted, ID: res.ID, Action: "started",
		Data: map[string]any{"source": source, "rows": len(rows) + len(skips)}})

	n := batchNotifier{h: h, ctx: context.WithoutCancel(ctx), actor: actor, policy: gen.Policy().Name()}
	for _, s := range skips {
		n.Skipped(res.ID, s)
	}
	res.AddSkips(skips...)
	gen.RunBatch(ctx, res, rows, n)

	if err := h.Store.FinishBatch(n.ctx, res); err != nil {
		h.log().Error("finish batch", zap.String("batch_id", res.ID), zap.Error(err))
	}
	h.broadcast(websocket.Event{Type: websocket.EventBatchCompleted, ID: res.ID, Action: "completed",
		Data: map[string]any{"generated": len(res.Generated), "skipped": len(res.Skipped), "cancelled": res.Cancelled}})
	h.logAudit(r, audit.ActionBatch, audit.ModuleBatch, res.ID, "Batch "+source)

	b, err := h.Store.Batch(n.ctx, res.ID)
	if err != nil {
		writeGenerateError(w, err)
		return
	}
	response.Created(w, decorateBatch(b))
}

// decorateBatch fills in the download links of a stored batch.
func decorateBatch(b models.Batch) models.Batch {
	b.ArchiveURL = BatchURL(b.ID) + "/archive"
	b.ReportURL = BatchURL(b.ID) + "/report"
	for i := range b.Generations {
		b.Generations[i].DownloadURL = FileURL(b.Generations[i].FileName)
	}
	if b.Generations == nil {
		b.Generations = []models.Generation{}
	}
	if b.Skips == nil {
		b.Skips = []models.Skip{}
	}
	return b
}

// GetBatch handles GET /api/v1/batches/{id}.
func (h *Handler) GetBatch(w http.ResponseWriter, r *http.Request, id string) {
	b, err := h.Store.Batch(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		response.Err(w, "batch not found", http.StatusNotFound)
		return
	}
	if err != nil {
		response.Err(w, err.Error(), http.StatusInternalServerError)
		return
	}
	response.JSON(w, decorateBatch(b))
}
