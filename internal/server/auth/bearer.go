package auth

import (
	"strings"

	"github.com/dmitrijs2005/storefront/internal/common"
)

// BearerToken extracts the token from an Authorization header value.
// An empty header is ErrMissingToken; a header that is present but not of
// the form "Bearer <token>" is ErrInvalidToken.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", common.ErrMissingToken
	}

	token, ok := strings.CutPrefix(header, common.BearerPrefix)
	if !ok {
		return "", common.ErrInvalidToken
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", common.ErrInvalidToken
	}

	return token, nil
}
