package certificates

import (
	"bytes"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"coagen/internal/audit"
	"coagen/internal/coa"
	"coagen/internal/models"
	"coagen/internal/preview"
	"coagen/internal/response"
	"coagen/internal/sheet"
	"coagen/internal/store"
	"coagen/internal/validation"

	"go.uber.org/zap"
)

// Content types of the files the API serves.
const (
	DocxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ZipContentType  = "application/zip"
)

func attachment(w http.ResponseWriter, contentType, name string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+validation.SanitizeFilename(name)+`"`)
}

// generatedFile validates name and opens it from the output directory.
// It writes the error response itself and returns false on failure.
func (h *Handler) generatedFile(w http.ResponseWriter, name string) (string, os.FileInfo, bool) {
	ve := &validation.ValidationErrors{}
	validation.ValidateFilename(ve, name)
	if ve.HasErrors() {
		response.Err(w, ve.Error(), http.StatusBadRequest)
		return "", nil, false
	}
	path := h.outputPath(name)
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && info.IsDir()) {
		response.Err(w, "file not found", http.StatusNotFound)
		return "", nil, false
	}
	if err != nil {
		response.Err(w, err.Error(), http.StatusInternalServerError)
		return "", nil, false
	}
	return path, info, true
}

// DownloadFile handles GET /api/v1/files/{name}.
func (h *Handler) DownloadFile(w http.ResponseWriter, r *http.Request, name string) {
	path, info, ok := h.generatedFile(w, name)
	if !ok {
		return
	}
	f, err := os.Open(path)
	if err != nil {
		response.Err(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer f.Close()

	h.logAudit(r, audit.ActionDownload, audit.ModuleFile, info.Name(), "Downloaded "+info.Name())
	attachment(w, DocxContentType, info.Name())
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

// PreviewFile handles GET /api/v1/files/{name}/preview?format=html|markdown.
// A rendering failure still answers 200 with preview_error set.
func (h *Handler) PreviewFile(w http.ResponseWriter, r *http.Request, name string) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = preview.FormatHTML
	}
	ve := &validation.ValidationErrors{}
	validation.ValidateEnum(ve, "format", format, validation.ValidPreviewFormats)
	if ve.HasErrors() {
		response.Err(w, ve.Error(), http.StatusBadRequest)
		return
	}
	path, info, ok := h.generatedFile(w, name)
	if !ok {
		return
	}

	p := models.Preview{FileName: info.Name(), Format: format, DownloadURL: FileURL(info.Name())}
	p.Preview, p.PreviewError = h.renderPreview(path, format)
	h.logAudit(r, audit.ActionPreview, audit.ModuleFile, info.Name(), "Previewed "+info.Name()+" as "+format)
	response.JSON(w, p)
}

// SpecificationSheet handles GET /api/v1/files/{name}/sheet: the printable
// specification sheet of the latest generation written to name.
func (h *Handler) SpecificationSheet(w http.ResponseWriter, r *http.Request, name string) {
	ve := &validation.ValidationErrors{}
	validation.ValidateFilename(ve, name)
	if ve.HasErrors() {
		response.Err(w, ve.Error(), http.StatusBadRequest)
		return
	}
	res, err := h.Store.LatestGeneration(r.Context(), name)
	if errors.Is(err, store.ErrNotFound) {
		response.Err(w, "no generation recorded for "+name, http.StatusNotFound)
		return
	}
	if err != nil {
		response.Err(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := preview.RenderSheet(&buf, coa.NewSpecification(res.Record, res.Components)); err != nil {
		response.Err(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

// storedBatch loads a batch result and resolves its files in the output
// directory.
func (h *Handler) storedBatch(w http.ResponseWriter, r *http.Request, id string) (*coa.BatchResult, bool) {
	res, err := h.Store.BatchResult(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		response.Err(w, "batch not found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		response.Err(w, err.Error(), http.StatusInternalServerError)
		return nil, false
	}
	for i := range res.Generated {
		res.Generated[i].Path = h.outputPath(res.Generated[i].FileName)
	}
	return res, true
}

// BatchArchive handles GET /api/v1/batches/{id}/archive. Files removed
// from the output directory since the batch ran are left out.
func (h *Handler) BatchArchive(w http.ResponseWriter, r *http.Request, id string) {
	res, ok := h.storedBatch(w, r, id)
	if !ok {
		return
	}
	var paths []string
	for _, p := range res.Paths() {
		if _, err := os.Stat(p); err != nil {
			h.log().Warn("archive file missing", zap.String("batch_id", id), zap.String("file", filepath.Base(p)))
			continue
		}
		paths = append(paths, p)
	}
	if len(paths) == 0 {
		response.Err(w, "batch has no generated files", http.StatusNotFound)
		return
	}

	var buf bytes.Buffer
	if err := coa.WriteArchive(&buf, paths); err != nil {
		response.Err(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.logAudit(r, audit.ActionExport, audit.ModuleBatch, id, "Downloaded "+coa.ArchiveName)
	attachment(w, ZipContentType, coa.ArchiveName)
	http.ServeContent(w, r, coa.ArchiveName, time.Now(), bytes.NewReader(buf.Bytes()))
}

// BatchReport handles GET /api/v1/batches/{id}/report.
func (h *Handler) BatchReport(w http.ResponseWriter, r *http.Request, id string) {
	res, ok := h.storedBatch(w, r, id)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := sheet.WriteReport(&buf, res); err != nil {
		response.Err(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.logAudit(r, audit.ActionExport, audit.ModuleBatch, id, "Downloaded "+sheet.ReportName)
	attachment(w, XLSXContentType, sheet.ReportName)
	w.Write(buf.Bytes())
}

// InputTemplate handles GET /api/v1/sheets/template: an empty batch input
// workbook with the expected header row.
func (h *Handler) InputTemplate(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := sheet.WriteTemplate(&buf); err != nil {
		response.Err(w, err.Error(), http.StatusInternalServerError)
		return
	}
	attachment(w, XLSXContentType, "coa_batch_input.xlsx")
	w.Write(buf.Bytes())
}
