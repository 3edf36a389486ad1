package validation

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
)

// ValidationError represents a structured validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors collects multiple field errors.
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (ve *ValidationErrors) Add(field, message string) {
	ve.Errors = append(ve.Errors, ValidationError{Field: field, Message: message})
}

func (ve *ValidationErrors) HasErrors() bool {
	return len(ve.Errors) > 0
}

func (ve *ValidationErrors) Error() string {
	msgs := make([]string, len(ve.Errors))
	for i, e := range ve.Errors {
		msgs[i] = e.Field + ": " + e.Message
	}
	return strings.Join(msgs, "; ")
}

// RequireField checks a required string field is non-empty.
func RequireField(ve *ValidationErrors, field, value string) {
	if strings.TrimSpace(value) == "" {
		ve.Add(field, "is required")
	}
}

// ValidateEnum checks a field is one of allowed values.
func ValidateEnum(ve *ValidationErrors, field, value string, allowed []string) {
	if value == "" {
		return
	}
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	ve.Add(field, fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")))
}

// ValidateNonNegativeFloat checks a field is >= 0.
func ValidateNonNegativeFloat(ve *ValidationErrors, field string, value float64) {
	if value < 0 {
		ve.Add(field, "must be non-negative")
	}
}

// ValidateFloatRange checks a field is within a specified range.
func ValidateFloatRange(ve *ValidationErrors, field string, value, min, max float64) {
	if value < min || value > max || value != value {
		ve.Add(field, fmt.Sprintf("must be between %.2f and %.2f", min, max))
	}
}

// ValidatePercentage checks a value is a valid percentage (0-100).
func ValidatePercentage(ve *ValidationErrors, field string, value float64) {
	if value < 0 || value > 100 || value != value {
		ve.Add(field, "must be between 0 and 100")
	}
}

// Length limits for free-text inputs.
const (
	MaxStringLength = 200
	MaxValueLength  = 10000
)

// ValidateMaxLength checks string doesn't exceed max length.
func ValidateMaxLength(ve *ValidationErrors, field, value string, max int) {
	if len(value) > max {
		ve.Add(field, fmt.Sprintf("must be at most %d characters", max))
	}
}

// CodePattern matches a product code: letters, digits, spaces, hyphens,
// underscores and dots, starting with a letter or digit.
var CodePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 \-_.]*$`)

// ValidateCode validates a product code used to resolve a template file.
func ValidateCode(ve *ValidationErrors, field, value string) {
	if value == "" {
		return
	}
	if !CodePattern.MatchString(value) || strings.Contains(value, "..") {
		ve.Add(field, "must contain only letters, numbers, spaces, hyphens, underscores, and dots")
	}
}

// FieldNamePattern matches a placeholder name.
var FieldNamePattern = regexp.MustCompile(`^[A-Za-z0-9_.\-]+$`)

// ValidateFieldNames checks every key of a field map is a usable
// placeholder name.
func ValidateFieldNames(ve *ValidationErrors, field string, values map[string]string) {
	for k, v := range values {
		if !FieldNamePattern.MatchString(k) {
			ve.Add(field+"."+k, "is not a valid placeholder name")
			continue
		}
		ValidateMaxLength(ve, field+"."+k, v, MaxValueLength)
	}
}

// ValidateLabels checks the keys of a free-form label map such as a
// record's extra columns. Labels may contain spaces and punctuation
// ("Invoice No.", "Yeast & Mould") but no control characters.
func ValidateLabels(ve *ValidationErrors, field string, values map[string]string) {
	for k, v := range values {
		name := field + "." + k
		if strings.TrimSpace(k) == "" {
			ve.Add(field, "labels must not be empty")
			continue
		}
		if len(k) > MaxStringLength {
			ve.Add(name, fmt.Sprintf("label must be at most %d characters", MaxStringLength))
			continue
		}
		if strings.IndexFunc(k, unicode.IsControl) >= 0 {
			ve.Add(name, "label must not contain control characters")
			continue
		}
		ValidateMaxLength(ve, name, v, MaxValueLength)
	}
}

// ValidateFilename checks for path traversal and malicious characters.
func ValidateFilename(ve *ValidationErrors, filename string) {
	if filename == "" {
		ve.Add("filename", "is required")
		return
	}

	if strings.Contains(filename, "..") {
		ve.Add("filename", "contains invalid path traversal sequence (..)")
	}
	if strings.HasPrefix(filename, "/") || strings.HasPrefix(filename, "\\") {
		ve.Add("filename", "cannot be an absolute path")
	}
	if strings.ContainsAny(filename, `/\`) {
		ve.Add("filename", "cannot contain path separators")
	}
	if strings.Contains(filename, "\x00") {
		ve.Add("filename", "contains null bytes")
	}
	if strings.ContainsAny(filename, "\r\n") {
		ve.Add("filename", "contains line breaks")
	}
}

// ValidateFileExtension checks the file has one of the allowed extensions.
func ValidateFileExtension(ve *ValidationErrors, field, filename string, allowed ...string) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ve.Add(field, "must have a file extension")
		return
	}
	for _, a := range allowed {
		if ext == a {
			return
		}
	}
	ve.Add(field, fmt.Sprintf("file type not allowed: %s (allowed: %s)", ext, strings.Join(allowed, ", ")))
}

// SanitizeFilename removes dangerous characters and path components.
func SanitizeFilename(filename string) string {
	filename = filepath.Base(filename)
	filename = strings.ReplaceAll(filename, "\x00", "")

	replacer := strings.NewReplacer(
		"..", "_", "/", "_", "\\", "_", "|", "_", "&", "_", ";", "_",
		"$", "_", "`", "_", "<", "_", ">", "_", "(", "", ")", "",
		"{", "", "}", "", "[", "", "]", "", "!", "", "*", "_", "?", "_",
		"\r", "", "\n", "", "\t", "_",
	)
	filename = replacer.Replace(filename)

	if len(filename) > 255 {
		ext := filepath.Ext(filename)
		nameWithoutExt := filename[:len(filename)-len(ext)]
		if len(nameWithoutExt) > 200 {
			nameWithoutExt = nameWithoutExt[:200]
		}
		filename = nameWithoutExt + ext
	}
	return filename
}
