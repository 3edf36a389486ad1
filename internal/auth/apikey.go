package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidKey = errors.New("invalid API key")
	ErrWeakKey    = errors.New("API key must be at least 16 characters and contain at least 3 of: uppercase, lowercase, numbers, special characters")
)

// Key is a named API key stored as a bcrypt hash.
type Key struct {
	Name string `yaml:"name"`
	Hash string `yaml:"hash"`
}

// HashKey returns the bcrypt hash of an API key.
func HashKey(key string) (string, error) {
	if err := ValidateKeyStrength(key); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// ValidateKeyStrength checks key length and complexity.
func ValidateKeyStrength(key string) error {
	if len(key) < 16 {
		return ErrWeakKey
	}

	var (
		hasUpper   = regexp.MustCompile(`[A-Z]`).MatchString
		hasLower   = regexp.MustCompile(`[a-z]`).MatchString
		hasNumber  = regexp.MustCompile(`[0-9]`).MatchString
		hasSpecial = regexp.MustCompile(`[!@#$%^&*(),.?":{}|<>_\-+=]`).MatchString
	)

	checks := 0
	for _, has := range []func(string) bool{hasUpper, hasLower, hasNumber, hasSpecial} {
		if has(key) {
			checks++
		}
	}
	if checks < 3 {
		return ErrWeakKey
	}
	return nil
}

// Keyring verifies presented API keys against a set of hashes. Keys that
// verified once are remembered by digest so bcrypt runs once per key.
type Keyring struct {
	keys     []Key
	verified sync.Map // sha256 hex -> key name
}

// NewKeyring returns a Keyring for keys. An empty keyring disables
// authentication: Enabled reports false.
func NewKeyring(keys []Key) *Keyring {
	return &Keyring{keys: keys}
}

// Enabled reports whether any key is configured.
func (k *Keyring) Enabled() bool { return k != nil && len(k.keys) > 0 }

// Verify returns the name of the key matching presented.
func (k *Keyring) Verify(presented string) (string, error) {
	presented = strings.TrimSpace(presented)
	if presented == "" || !k.Enabled() {
		return "", ErrInvalidKey
	}
	sum := sha256.Sum256([]byte(presented))
	digest := hex.EncodeToString(sum[:])
	if name, ok := k.verified.Load(digest); ok {
		return name.(string), nil
	}
	for _, key := range k.keys {
		if bcrypt.CompareHashAndPassword([]byte(key.Hash), []byte(presented)) == nil {
			k.verified.Store(digest, key.Name)
			return key.Name, nil
		}
	}
	return "", ErrInvalidKey
}
