package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/diagnosis/verifywoo/internal/http/response"
	"github.com/diagnosis/verifywoo/internal/utils"
	"github.com/diagnosis/verifywoo/pkg/logger"
)

// Ajax actions posted by the storefront login form.
const (
	ActionSendOTP  = "verify_woo_send_otp"
	ActionCheckOTP = "verify_woo_check_otp"
)

const defaultRedirect = "/my-account/"

type verifyResult struct {
	Message  string `json:"message"`
	Redirect string `json:"redirect"`
}

// Ajax dispatches on the form "action" field.
func (h *Handlers) Ajax(w http.ResponseWriter, r *http.Request) {
	switch r.PostFormValue("action") {
	case ActionSendOTP:
		h.RequestOTP(w, r)
	case ActionCheckOTP:
		h.VerifyOTP(w, r)
	default:
		response.Failure(w, http.StatusBadRequest, "Unknown action.", response.CodeUnknownAction)
	}
}

func (h *Handlers) RequestOTP(w http.ResponseWriter, r *http.Request) {
	phone := utils.NormalizeString(r.PostFormValue("user_phone"))

	if err := h.issuance.RequestOTP(r.Context(), phone); err != nil {
		writeError(w, r, err)
		return
	}

	response.Success(w, fmt.Sprintf("OTP Sent to %s Successfully!", utils.DigitsOnly(phone)))
}

func (h *Handlers) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	phone := r.PostFormValue("user_phone")
	code := r.PostFormValue("otp")

	session, err := h.verification.Login(r.Context(), phone, code)
	if err != nil {
		writeError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   isSecure(r),
		SameSite: http.SameSiteLaxMode,
	})

	logger.InfoContext(r.Context(), "Account logged in by OTP",
		"account_id", session.Account.ID,
		"new_account", session.NewAccount,
	)

	response.Success(w, verifyResult{
		Message:  "OTP verified and user logged in.",
		Redirect: h.redirectURL(r.Context(), utils.DigitsOnly(phone)),
	})
}

func (h *Handlers) redirectURL(ctx context.Context, phone string) string {
	url := h.config.Account.LoginRedirectURL
	if general, err := h.settings.GeneralSettings(ctx); err != nil {
		logger.WarnContext(ctx, "Failed to load general settings", "error", err)
	} else if general.LoginRedirectURL != "" {
		url = general.LoginRedirectURL
	}
	if url == "" {
		url = defaultRedirect
	}
	return h.hooks.LoginRedirectURL.Apply(ctx, url, phone)
}
