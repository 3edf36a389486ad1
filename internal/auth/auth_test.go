package auth

import (
	"context"
	"errors"
	"testing"
)

func TestValidateKeyStrength(t *testing.T) {
	tests := []struct {
		key     string
		wantErr bool
	}{
		{"Short123!", true},
		{"alllowercaseonly", true},
		{"lowercase1234567", true},
		{"Lowercase1234567", false},
		{"lower-case-key-with-1", false},
		{"UPPER_AND_LOWER_x", false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			err := ValidateKeyStrength(tt.key)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateKeyStrength(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
			}
		})
	}
}

func TestKeyringVerify(t *testing.T) {
	hash, err := HashKey("Lab-Station-Key-01")
	if err != nil {
		t.Fatalf("HashKey: %v", err)
	}
	k := NewKeyring([]Key{{Name: "lab", Hash: hash}})

	for i := 0; i < 2; i++ {
		name, err := k.Verify("Lab-Station-Key-01")
		if err != nil || name != "lab" {
			t.Fatalf("Verify attempt %d = %q, %v", i, name, err)
		}
	}
	if _, err := k.Verify("Wrong-Station-Key-01"); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("expected ErrInvalidKey, got %v", err)
	}
	if _, err := k.Verify(""); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("expected ErrInvalidKey for empty key, got %v", err)
	}
}

func TestEmptyKeyringDisabled(t *testing.T) {
	k := NewKeyring(nil)
	if k.Enabled() {
		t.Error("empty keyring should be disabled")
	}
	if _, err := k.Verify("anything-Goes-123"); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("expected ErrInvalidKey, got %v", err)
	}
}

func TestActor(t *testing.T) {
	if got := Actor(context.Background()); got != Anonymous {
		t.Errorf("Actor() = %q", got)
	}
	if got := Actor(WithActor(context.Background(), "lab")); got != "lab" {
		t.Errorf("Actor() = %q", got)
	}
}

func TestHashKeyRejectsWeakKey(t *testing.T) {
	if _, err := HashKey("weak"); !errors.Is(err, ErrWeakKey) {
		t.Errorf("expected ErrWeakKey, got %v", err)
	}
}
