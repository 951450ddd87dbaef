package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/incident-report-service/internal/config"
	apperrors "github.com/spec-kit/incident-report-service/pkg/util"
)

const (
	// HeaderAPIKey is the authentication header expected on every request.
	HeaderAPIKey = "X-API-Key"

	callerKeyLocal = "auth_caller_key"
)

// KeyChecker validates API keys against the configured key set. Keys may be
// listed in plaintext or as bcrypt hashes; both sets are checked.
type KeyChecker struct {
	keys   []string
	hashes []string
}

// NewKeyChecker builds the checker from auth configuration.
func NewKeyChecker(cfg config.AuthConfig) *KeyChecker {
	return &KeyChecker{keys: cfg.APIKeys, hashes: cfg.APIKeyHashes}
}

// Validate reports whether the presented key is accepted.
func (k *KeyChecker) Validate(presented string) bool {
	if presented == "" {
		return false
	}
	valid := false
	for _, key := range k.keys {
		if subtle.ConstantTimeCompare([]byte(key), []byte(presented)) == 1 {
			valid = true
		}
	}
	for _, hash := range k.hashes {
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(presented)) == nil {
			valid = true
		}
	}
	return valid
}

// RequireAPIKey returns a middleware enforcing the X-API-Key header.
func RequireAPIKey(checker *KeyChecker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get(HeaderAPIKey)
		if key == "" {
			return apperrors.NewUnauthorized("missing API key")
		}
		if !checker.Validate(key) {
			return apperrors.NewForbidden("invalid API key")
		}
		c.Locals(callerKeyLocal, CallerID(key))
		return c.Next()
	}
}

// CallerFromContext returns the opaque caller identifier for the request,
// suitable for rate-limit buckets and audit fields.
func CallerFromContext(c *fiber.Ctx) string {
	if val, ok := c.Locals(callerKeyLocal).(string); ok {
		return val
	}
	return "anonymous"
}

// CallerID derives a stable non-reversible identifier from an API key so
// raw keys never appear in Redis or logs.
func CallerID(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:8])
}
