// Package auth issues and verifies session tokens and handles password
// hashing. Tokens are self-contained HS256 JWTs; nothing is stored
// server-side, so a token stays valid until it expires.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/storefront/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the subject identity. The "id" key matches what existing
// clients already decode; Subject repeats it under the registered name.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"id"`
	Email  string `json:"email"`
}

// Identity is what a verified token asserts about its holder.
type Identity struct {
	UserID string
	Email  string
}

// now is swapped in tests to move the clock.
var now = time.Now

// GenerateToken signs a token for userID and email that expires after
// validityDuration.
func GenerateToken(userID, email string, secretKey []byte, validityDuration time.Duration) (string, error) {
	issuedAt := now()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(validityDuration)),
		},
		UserID: userID,
		Email:  email,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken verifies tokenString and returns the identity it carries.
//
// It returns common.ErrMissingToken for an empty string,
// common.ErrTokenExpired once the clock is past the expiry and
// common.ErrInvalidToken for everything else: bad signature, wrong
// algorithm, undecodable payload or a token without a subject.
func ParseToken(tokenString string, secretKey []byte) (*Identity, error) {
	if tokenString == "" {
		return nil, common.ErrMissingToken
	}

	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) { return secretKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		// golang-jwt rejects at now >= exp; a token is still good at exp itself.
		jwt.WithLeeway(time.Nanosecond),
		jwt.WithTimeFunc(now),
	)
	if err != nil {
		// An expired token with a forged signature is still just invalid:
		// golang-jwt checks the signature before the claims.
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid || claims.UserID == "" {
		return nil, common.ErrInvalidToken
	}

	return &Identity{UserID: claims.UserID, Email: claims.Email}, nil
}
