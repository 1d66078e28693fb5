// Package auth contains the credential primitives of the server: signed
// stateless tokens, password hashing and the brute-force lockout policy.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidSignedToken = errors.New("invalid signed token")

// GenerateSignedToken produces a tamper-evident HS256 token binding the
// subject (username) and an expiry. It is verifiable offline with the same
// secret, so it stays valid until expiry even after a logout; callers must
// prefer persistent session tokens wherever revocation matters.
func GenerateSignedToken(subject string, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// GetSubjectFromSignedToken verifies the signature and expiry of a signed
// token and returns the embedded subject. Expired, forged and malformed
// tokens all come back as ErrInvalidSignedToken; callers must not
// distinguish the cases to avoid oracle leakage.
func GetSubjectFromSignedToken(tokenString string, secretKey []byte) (string, error) {
	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSignedToken
		}
		return secretKey, nil
	})
	if err != nil {
		return "", ErrInvalidSignedToken
	}

	if !token.Valid || claims.Subject == "" {
		return "", ErrInvalidSignedToken
	}

	return claims.Subject, nil
}
