package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/diagnosis/verifywoo/internal/http/response"
	"github.com/diagnosis/verifywoo/pkg/auth"
	"github.com/diagnosis/verifywoo/pkg/logger"
)

const visitorCookieTTL = 365 * 24 * time.Hour

type formTokens struct {
	Nonce string `json:"nonce"`
	CSRF  string `json:"csrf"`
}

// IssueNonce hands the login form its OTP nonce and CSRF token, creating the visitor cookie on first use.
func (h *Handlers) IssueNonce(w http.ResponseWriter, r *http.Request) {
	visitor := visitorID(r)
	if _, err := uuid.Parse(visitor); err != nil {
		visitor = uuid.NewString()
		http.SetCookie(w, &http.Cookie{
			Name:     VisitorCookie,
			Value:    visitor,
			Path:     "/",
			Expires:  time.Now().Add(visitorCookieTTL),
			HttpOnly: true,
			Secure:   isSecure(r),
			SameSite: http.SameSiteLaxMode,
		})
	}

	secret := h.config.Auth.JWTSecret
	ttl := h.config.Auth.NonceTTL

	nonce, err := auth.NewFormToken(auth.PurposeOTPNonce, visitor, secret, ttl)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to sign nonce", "error", err)
		response.InternalError(w, GenericFailure)
		return
	}
	csrf, err := auth.NewFormToken(auth.PurposeCSRF, visitor, secret, ttl)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to sign csrf token", "error", err)
		response.InternalError(w, GenericFailure)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	response.Success(w, formTokens{Nonce: nonce, CSRF: csrf})
}
