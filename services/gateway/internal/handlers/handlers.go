package handlers

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/diagnosis/verifywoo/pkg/auth"
	"github.com/diagnosis/verifywoo/pkg/config"
	"github.com/diagnosis/verifywoo/pkg/logger"
	"github.com/diagnosis/verifywoo/services/gateway/internal/proxy"
)

const (
	SessionCookie = "verifywoo_session"

	RedirectParam        = "verifywoo_redirect_url"
	MessageParam         = "verifywoo_msg"
	CheckoutLoginMessage = "login_checkout_required"
)

type claimsKey struct{}

type Handlers struct {
	authProxy *proxy.ServiceProxy
	shopProxy *proxy.ServiceProxy
	shop      config.ShopConfig
	secret    string
	settings  *settingsCache
}

func New(authProxy, shopProxy *proxy.ServiceProxy, cfg *config.Config) *Handlers {
	return &Handlers{
		authProxy: authProxy,
		shopProxy: shopProxy,
		shop:      cfg.Shop,
		secret:    cfg.Auth.JWTSecret,
		settings:  &settingsCache{},
	}
}

// Helper to copy request body and headers
func (h *Handlers) proxyRequest(w http.ResponseWriter, r *http.Request, serviceProxy *proxy.ServiceProxy, path string) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	headers := make(http.Header)
	for key, values := range r.Header {
		if shouldCopyHeader(key) {
			headers[key] = values
		}
	}
	// Client-sent forwarding headers are replaced with the peer address seen here.
	peer := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		peer = host
	}
	headers.Set("X-Forwarded-For", peer)
	headers.Set("X-Real-IP", peer)

	if r.URL.RawQuery != "" {
		path += "?" + r.URL.RawQuery
	}

	resp, err := serviceProxy.ProxyRequest(r.Context(), r.Method, path, body, headers)
	if err != nil {
		logger.ErrorContext(r.Context(), "Service proxy error", "error", err, "path", path)
		http.Error(w, "Service unavailable", http.StatusServiceUnavailable)
		return
	}
	defer resp.Body.Close()

	for key, values := range resp.Header {
		if !shouldCopyHeader(key) {
			continue
		}
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}

	w.WriteHeader(resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		logger.ErrorContext(r.Context(), "Failed to copy response body", "error", err)
	}
}

func shouldCopyHeader(key string) bool {
	switch strings.ToLower(key) {
	case "host", "connection", "upgrade", "proxy-connection", "proxy-authenticate",
		"proxy-authorization", "te", "trailers", "transfer-encoding", "keep-alive", "content-length":
		return false
	}
	return true
}

// Session attaches the logged-in account, if any, to the request context.
func (h *Handlers) Session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(SessionCookie)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := auth.Parse(c.Value, h.secret)
		// Form tokens share the signing key but carry no account.
		if err != nil || claims.Sub <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), logger.UserIDKey, claims.Sub)
		ctx = context.WithValue(ctx, claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func getClaims(r *http.Request) *auth.Claims {
	claims, _ := r.Context().Value(claimsKey{}).(*auth.Claims)
	return claims
}

// CheckoutGate sends visitors without a session from checkout to the account page,
// carrying the checkout URL back and a message key for the login form.
func (h *Handlers) CheckoutGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.isCheckout(r.URL.Path) || getClaims(r) != nil || !h.checkoutRedirect(r.Context()) {
			next.ServeHTTP(w, r)
			return
		}

		target := h.shop.AccountPath + "?" +
			RedirectParam + "=" + url.QueryEscape(h.shop.CheckoutPath) +
			"&" + MessageParam + "=" + CheckoutLoginMessage

		logger.InfoContext(r.Context(), "Guest redirected from checkout", "path", r.URL.Path)
		http.Redirect(w, r, target, http.StatusFound)
	})
}

func (h *Handlers) isCheckout(path string) bool {
	checkout := strings.TrimSuffix(h.shop.CheckoutPath, "/")
	if checkout == "" {
		return false
	}
	return path == checkout || strings.HasPrefix(path, checkout+"/")
}

// Auth forwards /auth/* to the auth service with the prefix stripped.
func (h *Handlers) Auth(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/auth")
	if path == "" {
		path = "/"
	}
	h.proxyRequest(w, r, h.authProxy, path)
}

// Shop forwards everything else to the storefront.
func (h *Handlers) Shop(w http.ResponseWriter, r *http.Request) {
	h.proxyRequest(w, r, h.shopProxy, r.URL.Path)
}
