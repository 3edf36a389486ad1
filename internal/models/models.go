package models

// APIResponse is the standard JSON envelope for all API responses.
type APIResponse struct {
	Data interface{} `json:"data"`
	Meta *Meta       `json:"meta,omitempty"`
}

// Meta contains pagination metadata.
type Meta struct {
	Total int `json:"total,omitempty"`
	Page  int `json:"page,omitempty"`
	Limit int `json:"limit,omitempty"`
}

// Generation is one stored certificate generation.
type Generation struct {
	ID          string            `json:"id"`
	BatchID     string            `json:"batch_id,omitempty"`
	Row         int               `json:"row,omitempty"`
	Code        string            `json:"code"`
	BatchNo     string            `json:"batch_no"`
	Date        string            `json:"date"`
	Moisture    float64           `json:"moisture"`
	Policy      string            `json:"policy"`
	FileName    string            `json:"file_name"`
	DownloadURL string            `json:"download_url,omitempty"`
	Fields      map[string]string `json:"fields,omitempty"`
	Actor       string            `json:"actor"`
	CreatedAt   string            `json:"created_at"`
}

// Skip is a stored batch row that produced no certificate.
type Skip struct {
	Row    int    `json:"row"`
	Code   string `json:"code"`
	Batch  string `json:"batch_no,omitempty"`
	Reason string `json:"reason"`
}

// Batch summarises one batch run.
type Batch struct {
	ID          string       `json:"id"`
	Source      string       `json:"source"`
	Status      string       `json:"status"`
	Generated   int          `json:"generated"`
	Skipped     int          `json:"skipped"`
	Actor       string       `json:"actor"`
	CreatedAt   string       `json:"created_at"`
	FinishedAt  *string      `json:"finished_at"`
	ArchiveURL  string       `json:"archive_url,omitempty"`
	ReportURL   string       `json:"report_url,omitempty"`
	Generations []Generation `json:"generations,omitempty"`
	Skips       []Skip       `json:"skips,omitempty"`
}

// AuditEntry is one row of the audit log.
type AuditEntry struct {
	ID        int    `json:"id"`
	Username  string `json:"username"`
	Action    string `json:"action"`
	Module    string `json:"module"`
	RecordID  string `json:"record_id"`
	Summary   string `json:"summary"`
	IPAddress string `json:"ip_address"`
	CreatedAt string `json:"created_at"`
}

// Template describes an available certificate template.
type Template struct {
	Code   string   `json:"code"`
	File   string   `json:"file"`
	Fields []string `json:"fields,omitempty"`
}

// Preview is the rendered preview of a generated file. Preview is nil and
// PreviewError set when rendering failed; the file is still downloadable.
type Preview struct {
	FileName     string  `json:"file_name"`
	Format       string  `json:"format"`
	Preview      *string `json:"preview"`
	PreviewError string  `json:"preview_error,omitempty"`
	DownloadURL  string  `json:"download_url"`
}
