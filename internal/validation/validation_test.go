package validation

import (
	"math"
	"strings"
	"testing"
)

func TestValidationErrorsCollect(t *testing.T) {
	ve := &ValidationErrors{}
	RequireField(ve, "code", "  ")
	ValidateEnum(ve, "policy", "golden", ValidPolicies)
	ValidatePercentage(ve, "moisture", math.NaN())
	ValidateFloatRange(ve, "ph", 6.5, 0, 14)

	if len(ve.Errors) != 3 {
		t.Fatalf("expected 3 errors, got %d: %v", len(ve.Errors), ve.Error())
	}
	want := "code: is required; policy: must be one of: fixed-baseline, randomized; moisture: must be between 0 and 100"
	if ve.Error() != want {
		t.Errorf("Error() = %q", ve.Error())
	}
}

func TestValidateCode(t *testing.T) {
	tests := []struct {
		code string
		ok   bool
	}{
		{"101", true},
		{"GG 200-B", true},
		{"../secrets", false},
		{"a/b", false},
		{`a\b`, false},
		{"-lead", false},
		{"1..2", false},
	}
	for _, tt := range tests {
		ve := &ValidationErrors{}
		ValidateCode(ve, "code", tt.code)
		if ve.HasErrors() == tt.ok {
			t.Errorf("ValidateCode(%q) errors = %v, want ok=%v", tt.code, ve.Errors, tt.ok)
		}
	}
}

func TestValidateFieldNames(t *testing.T) {
	ve := &ValidationErrors{}
	ValidateFieldNames(ve, "fields", map[string]string{"BATCH_NO": "B1", "bad key": "x"})
	if len(ve.Errors) != 1 || ve.Errors[0].Field != "fields.bad key" {
		t.Errorf("unexpected errors: %+v", ve.Errors)
	}
}

func TestValidateLabels(t *testing.T) {
	ve := &ValidationErrors{}
	ValidateLabels(ve, "extra", map[string]string{
		"Invoice No.":   "INV-1",
		"Yeast & Mould": "Absent",
		"APC/gm":        "<1000",
	})
	if ve.HasErrors() {
		t.Fatalf("label keys rejected: %+v", ve.Errors)
	}

	tests := []struct {
		key, value string
	}{
		{"", "x"},
		{"  ", "x"},
		{"PO\nNo.", "x"},
		{strings.Repeat("k", MaxStringLength+1), "x"},
		{"Notes", strings.Repeat("v", MaxValueLength+1)},
	}
	for _, tt := range tests {
		ve := &ValidationErrors{}
		ValidateLabels(ve, "extra", map[string]string{tt.key: tt.value})
		if !ve.HasErrors() {
			t.Errorf("ValidateLabels(%q) accepted", tt.key)
		}
	}
}

func TestValidateFilename(t *testing.T) {
	for _, name := range []string{"../etc/passwd", "/abs.docx", `dir\file.docx`, "a\x00.docx", ""} {
		ve := &ValidationErrors{}
		ValidateFilename(ve, name)
		if !ve.HasErrors() {
			t.Errorf("ValidateFilename(%q) accepted", name)
		}
	}
	ve := &ValidationErrors{}
	ValidateFilename(ve, "COA-B1-101.docx")
	if ve.HasErrors() {
		t.Errorf("valid name rejected: %v", ve.Errors)
	}
}

func TestValidateFileExtension(t *testing.T) {
	ve := &ValidationErrors{}
	ValidateFileExtension(ve, "file", "batch.XLSX", ".xlsx")
	if ve.HasErrors() {
		t.Errorf("xlsx rejected: %v", ve.Errors)
	}
	ValidateFileExtension(ve, "file", "batch.csv", ".xlsx")
	ValidateFileExtension(ve, "file", "batch", ".xlsx")
	if len(ve.Errors) != 2 {
		t.Errorf("expected 2 errors, got %v", ve.Errors)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"../../COA 101.docx": "COA 101.docx",
		"a|b;c.docx":         "a_b_c.docx",
		"COA [1].docx":       "COA 1.docx",
	}
	for in, want := range tests {
		if got := SanitizeFilename(in); got != want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
