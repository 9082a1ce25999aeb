package handlers

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/diagnosis/verifywoo/internal/http/response"
	"github.com/diagnosis/verifywoo/pkg/auth"
	"github.com/diagnosis/verifywoo/pkg/config"
	"github.com/diagnosis/verifywoo/pkg/logger"
	"github.com/diagnosis/verifywoo/services/auth/internal/domain"
	"github.com/diagnosis/verifywoo/services/auth/internal/hooks"
	"github.com/diagnosis/verifywoo/services/auth/internal/repository"
	"github.com/diagnosis/verifywoo/services/auth/internal/service"
)

const (
	VisitorCookie = "verifywoo_visitor"
	SessionCookie = "verifywoo_session"

	CSRFHeader     = "X-CSRF-Token"
	NonceFormField = "_nonce"
)

// GenericFailure is shown when account lookup or creation fails, so the
// response never tells whether a phone already has an account.
const GenericFailure = "Something went wrong. Please try again later."

type Handlers struct {
	issuance     service.IssuanceService
	verification service.VerificationService
	accounts     repository.AccountRepository
	settings     repository.SettingsStore
	throttle     repository.ThrottleRepository
	hooks        *hooks.Registry
	config       *config.Config
}

func New(
	issuance service.IssuanceService,
	verification service.VerificationService,
	accounts repository.AccountRepository,
	settings repository.SettingsStore,
	throttle repository.ThrottleRepository,
	hooks *hooks.Registry,
	config *config.Config,
) *Handlers {
	return &Handlers{
		issuance:     issuance,
		verification: verification,
		accounts:     accounts,
		settings:     settings,
		throttle:     throttle,
		hooks:        hooks,
		config:       config,
	}
}

// Mount registers the storefront routes on r.
func (h *Handlers) Mount(r chi.Router) {
	r.Get("/otp/nonce", h.IssueNonce)
	r.Get("/session", h.Session)
	r.Get("/hooks", h.ListHooks)
	r.Get("/settings/storefront", h.StorefrontSettings)

	r.Group(func(r chi.Router) {
		r.Use(h.RequestThrottle())
		r.Use(h.RequireFormTokens)

		r.Post("/ajax", h.Ajax)
		r.Post("/otp/request", h.RequestOTP)
		r.Post("/otp/verify", h.VerifyOTP)
	})
}

// RequestThrottle limits OTP traffic per client IP. A broken counter lets the request through.
func (h *Handlers) RequestThrottle() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limit := h.config.Auth.RequestsPerMinute
			if h.throttle == nil || limit <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			key := "otp:" + getClientIP(r)
			allowed, err := h.throttle.Allow(r.Context(), key, limit, time.Minute)
			if err != nil {
				logger.ErrorContext(r.Context(), "Throttle check failed", "error", err)
			} else if !allowed {
				w.Header().Set("Retry-After", "60")
				response.RateLimit(w, "Too many requests. Please try again later.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireFormTokens checks the per-visitor CSRF header and the OTP form nonce.
// Both must have been issued to the visitor cookie sent with the request.
func (h *Handlers) RequireFormTokens(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			response.BadRequest(w, "Invalid form data.")
			return
		}

		visitor := visitorID(r)
		secret := h.config.Auth.JWTSecret

		if err := auth.VerifyFormToken(r.Header.Get(CSRFHeader), auth.PurposeCSRF, visitor, secret); err != nil {
			logger.WarnContext(r.Context(), "CSRF token rejected", "error", err)
			response.Forbidden(w, "Security check failed. Please refresh the page.")
			return
		}
		if err := auth.VerifyFormToken(r.PostForm.Get(NonceFormField), auth.PurposeOTPNonce, visitor, secret); err != nil {
			logger.WarnContext(r.Context(), "OTP nonce rejected", "error", err)
			response.Forbidden(w, "Security check failed. Please refresh the page.")
			return
		}

		ctx := context.WithValue(r.Context(), logger.VisitorIDKey, visitor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// writeError maps service errors onto the storefront envelope.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, env := errorEnvelope(err)
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "OTP request failed", "error", err)
	}
	if env.WaitSeconds > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(env.WaitSeconds))
	}
	response.Write(w, status, env)
}

func errorEnvelope(err error) (int, response.Envelope) {
	e, ok := domain.AsError(err)
	if !ok {
		return http.StatusInternalServerError, response.Envelope{Data: GenericFailure, Code: response.CodeInternalError}
	}

	env := response.Envelope{Data: e.UserMessage()}
	status := http.StatusBadRequest

	switch e.Kind {
	case domain.KindInvalidInput:
		env.Code = response.CodeInvalidInput
	case domain.KindDisabled:
		status = http.StatusServiceUnavailable
		env.Code = response.CodeDisabled
	case domain.KindRateLimited:
		status = http.StatusTooManyRequests
		env.Code = response.CodeRateLimit
		env.WaitSeconds = e.WaitSeconds
	case domain.KindExpired:
		status = http.StatusGone
		env.Code = response.CodeExpired
	case domain.KindTooManyAttempts:
		status = http.StatusTooManyRequests
		env.Code = response.CodeTooManyAttempts
	case domain.KindIncorrect:
		status = http.StatusUnauthorized
		env.Code = response.CodeIncorrect
		env.AttemptsLeft = e.AttemptsLeft
	case domain.KindConfiguration:
		status = http.StatusInternalServerError
		env.Code = response.CodeConfiguration
	default:
		// Identity failures
		status = http.StatusInternalServerError
		env.Data = GenericFailure
		env.Code = response.CodeInternalError
	}
	return status, env
}

func visitorID(r *http.Request) string {
	c, err := r.Cookie(VisitorCookie)
	if err != nil {
		return ""
	}
	return c.Value
}

func sessionClaims(r *http.Request, secret string) (*auth.Claims, error) {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return nil, err
	}
	claims, err := auth.Parse(c.Value, secret)
	if err != nil {
		return nil, err
	}
	if claims.Sub <= 0 {
		return nil, errors.New("not a session token")
	}
	return claims, nil
}

func isSecure(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
