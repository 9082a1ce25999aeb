package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const audience = "verifywoo"

// Form token purposes.
const (
	PurposeOTPNonce = "verify_woo_otp_nonce"
	PurposeCSRF     = "csrf"
)

var ErrTokenMismatch = errors.New("token does not match request")

// Claims identify a logged-in account.
type Claims struct {
	Sub   int64  `json:"sub"`
	Login string `json:"login"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// FormClaims bind an anti-forgery token to one visitor and one purpose.
type FormClaims struct {
	Purpose string `json:"purpose"`
	Visitor string `json:"vid"`
	jwt.RegisteredClaims
}

func NewSessionToken(sub int64, login, role, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Sub:   sub,
		Login: login,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Audience:  []string{audience},
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func Parse(tokenString, secret string) (*Claims, error) {
	tok, err := jwt.ParseWithClaims(tokenString, &Claims{}, keyFunc(secret),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(audience),
	)
	if err != nil {
		return nil, err
	}
	if claims, ok := tok.Claims.(*Claims); ok && tok.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

func NewFormToken(purpose, visitorID, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := FormClaims{
		Purpose: purpose,
		Visitor: visitorID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Audience:  []string{audience},
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// VerifyFormToken checks signature, expiry, purpose and visitor binding.
func VerifyFormToken(tokenString, purpose, visitorID, secret string) error {
	if tokenString == "" || visitorID == "" {
		return ErrTokenMismatch
	}
	tok, err := jwt.ParseWithClaims(tokenString, &FormClaims{}, keyFunc(secret),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(audience),
	)
	if err != nil {
		return err
	}
	claims, ok := tok.Claims.(*FormClaims)
	if !ok || !tok.Valid {
		return errors.New("invalid token")
	}
	if claims.Purpose != purpose || claims.Visitor != visitorID {
		return ErrTokenMismatch
	}
	return nil
}

func keyFunc(secret string) jwt.Keyfunc {
	return func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}
}
