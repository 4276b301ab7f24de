package utils

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/efficienttutor/tuition_ledger_app/internal/middleware"
)

// GenerateAdminJWT generates a signed token for an authenticated admin. The
// privilege claim lets the read-only gate run without a database lookup.
func GenerateAdminJWT(adminID, privilege, secret string, expiryDuration time.Duration, issuer string) (string, error) {
	now := time.Now()
	claims := middleware.AdminClaims{
		Privilege: privilege,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   adminID,
			ExpiresAt: jwt.NewNumericDate(now.Add(expiryDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
