// internal/config/secrets.go
//
// `vault:` reference resolution.
//
// Context
// -------
// Secrets never live in YAML.  Operators write a reference instead:
//
//	database:
//	  password: "vault:secret/wpmn#db_password"
//
// `ResolveSecrets` walks the handful of secret-bearing fields and swaps
// each reference for the value returned by the resolver, normally the
// process-wide `*vault.Client`.
//
// Notes
// -----
//   • Reference grammar: `vault:<mount>/<path>#<key>`.
//   • Plain strings pass through untouched, so dev setups need no Vault.

package config

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const vaultPrefix = "vault:"

// SecretResolver is satisfied by *vault.Client.
type SecretResolver interface {
	GetKV(ctx context.Context, secretPath, key string, ttl time.Duration) (string, error)
}

// IsSecretRef reports whether s is a `vault:` reference.
func IsSecretRef(s string) bool { return strings.HasPrefix(s, vaultPrefix) }

// ResolveSecrets replaces every `vault:` reference in cfg in place.
func ResolveSecrets(ctx context.Context, cfg *Config, r SecretResolver) error {
	fields := []*string{
		&cfg.Database.Password,
		&cfg.Database.DSN,
		&cfg.Auth.JWTSecret,
	}
	for _, f := range fields {
		if !IsSecretRef(*f) {
			continue
		}
		if r == nil {
			return fmt.Errorf("config: %q needs vault but no client is configured", *f)
		}
		path, key, ok := strings.Cut(strings.TrimPrefix(*f, vaultPrefix), "#")
		if !ok || path == "" || key == "" {
			return fmt.Errorf("config: malformed vault reference %q", *f)
		}
		val, err := r.GetKV(ctx, path, key, 5*time.Minute)
		if err != nil {
			return fmt.Errorf("config: resolve %s#%s: %w", path, key, err)
		}
		*f = val
	}
	return nil
}

// NeedsVault reports whether any secret-bearing field holds a reference.
func NeedsVault(cfg *Config) bool {
	return IsSecretRef(cfg.Database.Password) ||
		IsSecretRef(cfg.Database.DSN) ||
		IsSecretRef(cfg.Auth.JWTSecret)
}
