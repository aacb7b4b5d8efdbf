package auth

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"slices"
	"sync"

	"mercator-hq/arbiter/pkg/config"
)

var (
	// ErrInvalidKey is returned for an unknown key.
	ErrInvalidKey = errors.New("invalid API key")

	// ErrDisabledKey is returned for a configured but disabled key.
	ErrDisabledKey = errors.New("API key disabled")
)

// Key is an accepted API key without its secret value.
type Key struct {
	Name     string
	Tenants  []string
	Disabled bool
}

// AllowsTenant reports whether the key may act on tenantID.
func (k *Key) AllowsTenant(tenantID string) bool {
	return len(k.Tenants) == 0 || slices.Contains(k.Tenants, tenantID)
}

// Restricted reports whether the key is limited to a tenant list.
func (k *Key) Restricted() bool {
	return len(k.Tenants) > 0
}

// Validator looks up keys by the digest of their value.
type Validator struct {
	mu   sync.RWMutex
	keys map[[sha256.Size]byte]*Key
}

// NewValidator builds a validator from configured keys.
func NewValidator(keys []config.APIKeyConfig) *Validator {
	v := &Validator{keys: make(map[[sha256.Size]byte]*Key, len(keys))}
	for _, k := range keys {
		v.keys[sha256.Sum256([]byte(k.Key))] = &Key{
			Name:     k.Name,
			Tenants:  slices.Clone(k.Tenants),
			Disabled: k.Disabled,
		}
	}
	return v
}

// Validate returns the key matching raw.
func (v *Validator) Validate(raw string) (*Key, error) {
	if raw == "" {
		return nil, ErrInvalidKey
	}
	v.mu.RLock()
	key, ok := v.keys[sha256.Sum256([]byte(raw))]
	v.mu.RUnlock()

	switch {
	case !ok:
		return nil, ErrInvalidKey
	case key.Disabled:
		return nil, fmt.Errorf("%w: %s", ErrDisabledKey, key.Name)
	}
	return key, nil
}

// Replace swaps the accepted keys, for configuration reloads.
func (v *Validator) Replace(keys []config.APIKeyConfig) {
	next := NewValidator(keys)
	v.mu.Lock()
	v.keys = next.keys
	v.mu.Unlock()
}

// Len returns the number of configured keys.
func (v *Validator) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.keys)
}
