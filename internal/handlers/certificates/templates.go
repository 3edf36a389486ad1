package certificates

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"coagen/internal/audit"
	"coagen/internal/docx"
	"coagen/internal/fill"
	"coagen/internal/models"
	"coagen/internal/response"
	"coagen/internal/validation"
)

// ListTemplates handles GET /api/v1/templates.
func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	codes, err := h.Generator.Templates()
	if err != nil {
		response.Err(w, err.Error(), http.StatusInternalServerError)
		return
	}
	items := make([]models.Template, 0, len(codes))
	for _, c := range codes {
		path, err := h.Generator.TemplatePath(c)
		if err != nil {
			continue
		}
		items = append(items, models.Template{Code: c, File: filepath.Base(path)})
	}
	response.JSON(w, items)
}

// TemplateFields handles GET /api/v1/templates/{code}/fields.
func (h *Handler) TemplateFields(w http.ResponseWriter, r *http.Request, code string) {
	path, err := h.Generator.TemplatePath(code)
	if err != nil {
		writeGenerateError(w, err)
		return
	}
	doc, err := fill.Open(path)
	if err != nil {
		writeGenerateError(w, err)
		return
	}
	response.JSON(w, models.Template{Code: code, File: filepath.Base(path), Fields: h.Generator.Filler().Tokens(doc)})
}

// Fill handles POST /api/v1/fill: a multipart "template" .docx, a "fields"
// JSON object and an optional "mode". It answers with the filled document;
// placeholder names left without a value are listed in the
// X-Unmatched-Placeholders header.
func (h *Handler) Fill(w http.ResponseWriter, r *http.Request) {
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
	file, header, err := r.FormFile("template")
	if err != nil {
		response.Err(w, "template is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	ve := &validation.ValidationErrors{}
	validation.ValidateFileExtension(ve, "template", header.Filename, ".docx")
	validation.ValidateEnum(ve, "mode", r.FormValue("mode"), validation.ValidModes)
	fields := fill.Fields{}
	if raw := r.FormValue("fields"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &fields); err != nil {
			ve.Add("fields", "must be a JSON object of strings")
		}
	}
	validation.ValidateFieldNames(ve, "fields", fields)
	if ve.HasErrors() {
		response.Err(w, ve.Error(), http.StatusBadRequest)
		return
	}
	mode, err := fill.ParseMode(r.FormValue("mode"))
	if err != nil {
		writeGenerateError(w, err)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		response.Err(w, err.Error(), http.StatusBadRequest)
		return
	}
	tpl, err := docx.Parse(data)
	if err != nil {
		response.Err(w, "template is not a valid .docx: "+err.Error(), http.StatusBadRequest)
		return
	}

	out, rep := fill.New(fill.Config{Mode: mode, Logger: h.Logger}).Apply(tpl, fields)
	body, err := out.Bytes()
	if err != nil {
		response.Err(w, err.Error(), http.StatusInternalServerError)
		return
	}

	name := "filled-" + validation.SanitizeFilename(header.Filename)
	h.logAudit(r, audit.ActionFill, audit.ModuleTemplate, name,
		"Filled "+header.Filename+" ("+strconv.Itoa(rep.Total())+" replacements)")
	w.Header().Set("X-Replacements", strconv.Itoa(rep.Total()))
	if len(rep.Unmatched) > 0 {
		w.Header().Set("X-Unmatched-Placeholders", strings.Join(rep.Unmatched, ","))
	}
	attachment(w, DocxContentType, name)
	w.Write(body)
}

// pageParams reads limit and page query parameters.
func pageParams(r *http.Request, def, max int) (limit, page int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = def
	}
	if limit > max {
		limit = max
	}
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	return limit, page
}

// History handles GET /api/v1/history?limit=&page=.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	limit, page := pageParams(r, 50, 500)
	items, total, err := h.Store.History(r.Context(), limit, (page-1)*limit)
	if err != nil {
		response.Err(w, err.Error(), http.StatusInternalServerError)
		return
	}
	for i := range items {
		items[i].DownloadURL = FileURL(items[i].FileName)
	}
	if items == nil {
		items = []models.Generation{}
	}
	response.JSONMeta(w, items, total, page, limit)
}

// AuditLog handles GET /api/v1/audit?limit=.
func (h *Handler) AuditLog(w http.ResponseWriter, r *http.Request) {
	if h.Audit == nil {
		response.JSON(w, []models.AuditEntry{})
		return
	}
	limit, _ := pageParams(r, 100, 1000)
	entries, err := h.Audit.Recent(r.Context(), limit)
	if err != nil {
		response.Err(w, err.Error(), http.StatusInternalServerError)
		return
	}
	response.JSON(w, entries)
}
