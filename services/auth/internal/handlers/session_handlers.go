package handlers

import (
	"net/http"

	"github.com/diagnosis/verifywoo/internal/http/response"
	"github.com/diagnosis/verifywoo/pkg/logger"
	"github.com/diagnosis/verifywoo/services/auth/internal/domain"
	"github.com/diagnosis/verifywoo/services/auth/internal/hooks"
)

type sessionInfo struct {
	Account *domain.Account `json:"account"`
	Phone   string          `json:"phone,omitempty"`
}

// Session reports the account behind the session cookie.
func (h *Handlers) Session(w http.ResponseWriter, r *http.Request) {
	claims, err := sessionClaims(r, h.config.Auth.JWTSecret)
	if err != nil {
		response.Unauthorized(w, "Not logged in.")
		return
	}

	account, err := h.accounts.FindByID(r.Context(), claims.Sub)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to load account", "account_id", claims.Sub, "error", err)
		response.InternalError(w, GenericFailure)
		return
	}
	if account == nil {
		response.Unauthorized(w, "Not logged in.")
		return
	}

	phone, err := h.accounts.GetMeta(r.Context(), account.ID, domain.PhoneMetaKey)
	if err != nil {
		logger.WarnContext(r.Context(), "Failed to load account phone", "account_id", account.ID, "error", err)
	}

	response.Success(w, sessionInfo{Account: account, Phone: phone})
}

// StorefrontView is the part of the general settings the storefront front door acts on.
type StorefrontView struct {
	CheckoutRedirect bool   `json:"checkout_redirect"`
	LoginRedirectURL string `json:"login_redirect_url,omitempty"`
}

// StorefrontSettings exposes the stored storefront toggles to the gateway.
func (h *Handlers) StorefrontSettings(w http.ResponseWriter, r *http.Request) {
	general, err := h.settings.GeneralSettings(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to load general settings", "error", err)
		response.InternalError(w, GenericFailure)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	response.Success(w, StorefrontView{
		CheckoutRedirect: general.CheckoutRedirect,
		LoginRedirectURL: general.LoginRedirectURL,
	})
}

// ListHooks lists the extension points listeners can attach to.
func (h *Handlers) ListHooks(w http.ResponseWriter, r *http.Request) {
	response.Success(w, hooks.Points())
}
