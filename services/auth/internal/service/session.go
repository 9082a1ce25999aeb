package service

import (
	"context"
	"fmt"
	"time"

	"github.com/diagnosis/verifywoo/pkg/auth"
	"github.com/diagnosis/verifywoo/services/auth/internal/domain"
)

// SessionIssuer establishes an authenticated session for an account.
type SessionIssuer interface {
	Issue(ctx context.Context, account *domain.Account) (*domain.Session, error)
}

type jwtSessionIssuer struct {
	secret string
	ttl    time.Duration
}

func NewJWTSessionIssuer(secret string, ttl time.Duration) SessionIssuer {
	return &jwtSessionIssuer{secret: secret, ttl: ttl}
}

func (i *jwtSessionIssuer) Issue(_ context.Context, account *domain.Account) (*domain.Session, error) {
	token, err := auth.NewSessionToken(account.ID, account.Login, account.Role, i.secret, i.ttl)
	if err != nil {
		return nil, fmt.Errorf("sign session: %w", err)
	}
	return &domain.Session{
		Token:     token,
		ExpiresAt: time.Now().Add(i.ttl),
		Account:   account,
	}, nil
}
