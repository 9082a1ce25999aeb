package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/diagnosis/verifywoo/pkg/logger"
)

const storefrontSettingsPath = "/settings/storefront"

type storefrontSettings struct {
	CheckoutRedirect bool `json:"checkout_redirect"`
}

// settingsCache holds the last storefront settings read from auth.
type settingsCache struct {
	mu        sync.Mutex
	value     storefrontSettings
	fetchedAt time.Time
}

func (c *settingsCache) get(ttl time.Duration, now time.Time) (storefrontSettings, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ttl <= 0 || c.fetchedAt.IsZero() || now.Sub(c.fetchedAt) >= ttl {
		return storefrontSettings{}, false
	}
	return c.value, true
}

func (c *settingsCache) set(value storefrontSettings, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = value
	c.fetchedAt = now
}

// checkoutRedirect reports whether guests are sent from checkout to the login page.
// The stored setting wins; the configured value is used while auth cannot answer.
func (h *Handlers) checkoutRedirect(ctx context.Context) bool {
	now := time.Now()
	if cached, ok := h.settings.get(h.shop.SettingsTTL, now); ok {
		return cached.CheckoutRedirect
	}

	settings, err := h.fetchStorefrontSettings(ctx)
	if err != nil {
		logger.WarnContext(ctx, "Failed to load storefront settings, using configured default",
			"error", err,
			"checkout_redirect", h.shop.CheckoutRedirect,
		)
		return h.shop.CheckoutRedirect
	}

	h.settings.set(settings, now)
	return settings.CheckoutRedirect
}

func (h *Handlers) fetchStorefrontSettings(ctx context.Context) (storefrontSettings, error) {
	resp, err := h.authProxy.ProxyRequest(ctx, http.MethodGet, storefrontSettingsPath, nil, nil)
	if err != nil {
		return storefrontSettings{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return storefrontSettings{}, fmt.Errorf("auth returned status %d", resp.StatusCode)
	}

	var body struct {
		Success bool               `json:"success"`
		Data    storefrontSettings `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return storefrontSettings{}, fmt.Errorf("decode storefront settings: %w", err)
	}
	if !body.Success {
		return storefrontSettings{}, errors.New("auth reported failure")
	}
	return body.Data, nil
}
