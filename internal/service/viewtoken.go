package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/msomdec/sewing-vault/internal/domain"
)

const viewTokenTTL = 7 * 24 * time.Hour

// ViewTokenService signs and verifies the tokens that bind a browser page to
// the view key it was rendered for.
type ViewTokenService struct {
	secret []byte
}

// NewViewTokenService creates a new ViewTokenService.
func NewViewTokenService(secret string) *ViewTokenService {
	return &ViewTokenService{secret: []byte(secret)}
}

// Issue returns a signed token naming key.
func (s *ViewTokenService) Issue(key domain.ViewKey) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   key.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(viewTokenTTL)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign view token: %w", err)
	}
	return signed, nil
}

// Parse validates a token and returns the view key it names.
func (s *ViewTokenService) Parse(tokenString string) (domain.ViewKey, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return domain.ViewKey{}, domain.ErrUnauthorized
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		return domain.ViewKey{}, domain.ErrUnauthorized
	}

	key, err := domain.ParseViewKey(claims.Subject)
	if err != nil {
		return domain.ViewKey{}, domain.ErrUnauthorized
	}
	return key, nil
}
