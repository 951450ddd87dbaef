package auth

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/incident-report-service/internal/config"
	apperrors "github.com/spec-kit/incident-report-service/pkg/util"
)

func TestKeyCheckerPlaintext(t *testing.T) {
	checker := NewKeyChecker(config.AuthConfig{APIKeys: []string{"alpha", "beta"}})

	assert.True(t, checker.Validate("alpha"))
	assert.True(t, checker.Validate("beta"))
	assert.False(t, checker.Validate("gamma"))
	assert.False(t, checker.Validate(""))
}

func TestKeyCheckerBcryptHashes(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret-key"), bcrypt.MinCost)
	require.NoError(t, err)

	checker := NewKeyChecker(config.AuthConfig{APIKeyHashes: []string{string(hash)}})
	assert.True(t, checker.Validate("secret-key"))
	assert.False(t, checker.Validate("wrong-key"))
}

func TestCallerIDStableAndOpaque(t *testing.T) {
	first := CallerID("secret-key")
	second := CallerID("secret-key")

	assert.Equal(t, first, second)
	assert.Len(t, first, 16)
	assert.NotContains(t, first, "secret")
	assert.NotEqual(t, first, CallerID("other-key"))
}

func newAuthTestApp(checker *KeyChecker) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			domainErr := apperrors.ToDomainError(err)
			return c.Status(domainErr.HTTPStatus).JSON(fiber.Map{"code": domainErr.Code})
		},
	})
	app.Get("/protected", RequireAPIKey(checker), func(c *fiber.Ctx) error {
		return c.SendString(CallerFromContext(c))
	})
	return app
}

func TestRequireAPIKeyMissingHeader(t *testing.T) {
	app := newAuthTestApp(NewKeyChecker(config.AuthConfig{APIKeys: []string{"alpha"}}))

	resp, err := app.Test(httptest.NewRequest("GET", "/protected", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestRequireAPIKeyInvalidKey(t *testing.T) {
	app := newAuthTestApp(NewKeyChecker(config.AuthConfig{APIKeys: []string{"alpha"}}))

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set(HeaderAPIKey, "wrong")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestRequireAPIKeyValidKeySetsCaller(t *testing.T) {
	app := newAuthTestApp(NewKeyChecker(config.AuthConfig{APIKeys: []string{"alpha"}}))

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set(HeaderAPIKey, "alpha")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, CallerID("alpha"), string(body))
}
