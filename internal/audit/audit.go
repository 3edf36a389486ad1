package audit

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"coagen/internal/auth"
	"coagen/internal/models"
	"coagen/internal/websocket"

	"go.uber.org/zap"
)

// Action constants.
const (
	ActionGenerate = "GENERATE"
	ActionBatch    = "BATCH"
	ActionFill     = "FILL"
	ActionDownload = "DOWNLOAD"
	ActionExport   = "EXPORT"
	ActionPreview  = "PREVIEW"
)

// Modules.
const (
	ModuleCOA      = "coa"
	ModuleBatch    = "batch"
	ModuleTemplate = "template"
	ModuleFile     = "file"
)

// Options contains all options for one audit entry.
type Options struct {
	Username  string
	Action    string
	Module    string
	RecordID  string
	Summary   string
	IPAddress string
	UserAgent string
}

// Logger writes audit entries to the audit_log table and announces them on
// the hub. Failures are logged, never returned to the request.
type Logger struct {
	db  *sql.DB
	hub *websocket.Hub
	log *zap.Logger
}

// New returns an audit Logger. hub and logger may be nil.
func New(db *sql.DB, hub *websocket.Hub, logger *zap.Logger) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logger{db: db, hub: hub, log: logger.Named("audit")}
}

// Log records an entry.
func (l *Logger) Log(ctx context.Context, opts Options) {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO audit_log (username, action, module, record_id, summary, ip_address, user_agent)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		opts.Username, opts.Action, opts.Module, opts.RecordID, opts.Summary, opts.IPAddress, opts.UserAgent)
	if err != nil {
		l.log.Error("audit log error", zap.String("action", opts.Action), zap.String("module", opts.Module), zap.Error(err))
		return
	}
	if l.hub != nil {
		l.hub.BroadcastChange(opts.Module, strings.ToLower(opts.Action), opts.RecordID)
	}
}

// LogRequest records an entry attributed to the request's actor and client.
func (l *Logger) LogRequest(r *http.Request, action, module, recordID, summary string) {
	l.Log(r.Context(), Options{
		Username:  auth.Actor(r.Context()),
		Action:    action,
		Module:    module,
		RecordID:  recordID,
		Summary:   summary,
		IPAddress: GetClientIP(r),
		UserAgent: r.UserAgent(),
	})
}

// Recent returns the newest audit entries.
func (l *Logger) Recent(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, username, action, module, record_id, summary, ip_address, created_at
		FROM audit_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.AuditEntry{}
	for rows.Next() {
		var e models.AuditEntry
		if err := rows.Scan(&e.ID, &e.Username, &e.Action, &e.Module, &e.RecordID, &e.Summary, &e.IPAddress, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Cleanup deletes entries older than retentionDays.
func (l *Logger) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays).Format("2006-01-02 15:04:05")
	result, err := l.db.ExecContext(ctx, "DELETE FROM audit_log WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// GetClientIP extracts the real client IP from the request (handles proxies).
func GetClientIP(r *http.Request) string {
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[0])
	}
	xri := r.Header.Get("X-Real-IP")
	if xri != "" {
		return strings.TrimSpace(xri)
	}
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}
