package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// DownloadTokenManager issues and validates short-lived signed tokens that
// grant access to a single stored report without the API key.
type DownloadTokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewDownloadTokenManager builds a new manager.
func NewDownloadTokenManager(secret string, ttlMinutes int) *DownloadTokenManager {
	if ttlMinutes <= 0 {
		ttlMinutes = 15
	}
	return &DownloadTokenManager{secret: []byte(secret), ttl: time.Duration(ttlMinutes) * time.Minute}
}

// DownloadClaims describes the token payload.
type DownloadClaims struct {
	Artifact string `json:"artifact"`
	jwt.RegisteredClaims
}

// GenerateToken signs a token for one artifact name.
func (tm *DownloadTokenManager) GenerateToken(artifactName string) (string, time.Time, error) {
	expiresAt := time.Now().Add(tm.ttl)
	claims := &DownloadClaims{
		Artifact: artifactName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   artifactName,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseToken validates a token and returns the artifact it grants.
func (tm *DownloadTokenManager) ParseToken(tokenStr string) (*DownloadClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &DownloadClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*DownloadClaims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
