// Package hooks holds the named extension points of the OTP login flow.
//
// Filters thread a value through their callbacks in registration order. Actions are
// notifications: a failing or panicking listener is logged and never aborts the flow.
package hooks

import (
	"context"
	"fmt"
	"sync"

	"github.com/diagnosis/verifywoo/pkg/logger"
	"github.com/diagnosis/verifywoo/services/auth/internal/domain"
)

const (
	BeforeLoginExistingUser = "verify_woo_before_login_existing_user"
	AfterRegisterUser       = "verify_woo_after_register_user"
	OTPGeneratedReadyToSend = "verify_woo_send_otp_sms"
	LoginRedirectURL        = "verify_woo_login_redirect_url"
	RateLimitSeconds        = "verify_woo_otp_rate_limit_seconds"
	OTPExpiration           = "verify_woo_otp_expiration"
	MaxOTPAttempts          = "verify_woo_max_otp_attempts"
	UsernamePrefix          = "verify_woo_username_prefix"
	AutoRegisterEnabled     = "verify_woo_auto_register_enabled"
	NewUserRole             = "verify_woo_new_user_role"
	NewUserData             = "verify_woo_new_user_data"
)

// Filter receives the current value and the phone the flow is handling.
type Filter[T any] func(ctx context.Context, value T, phone string) T

// Action receives an event payload.
type Action[T any] func(ctx context.Context, payload T) error

type FilterChain[T any] struct {
	name string
	mu   sync.RWMutex
	fns  []Filter[T]
}

func (c *FilterChain[T]) Name() string { return c.name }

func (c *FilterChain[T]) Add(fn Filter[T]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fns = append(c.fns, fn)
}

func (c *FilterChain[T]) Apply(ctx context.Context, value T, phone string) T {
	c.mu.RLock()
	fns := c.fns
	c.mu.RUnlock()

	for _, fn := range fns {
		value = fn(ctx, value, phone)
	}
	return value
}

type ActionList[T any] struct {
	name string
	mu   sync.RWMutex
	fns  []Action[T]
}

func (a *ActionList[T]) Name() string { return a.name }

func (a *ActionList[T]) Add(fn Action[T]) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.fns = append(a.fns, fn)
}

// Fire runs every listener synchronously and in order.
func (a *ActionList[T]) Fire(ctx context.Context, payload T) {
	a.mu.RLock()
	fns := a.fns
	a.mu.RUnlock()

	for i, fn := range fns {
		if err := a.call(ctx, fn, payload); err != nil {
			logger.WarnContext(ctx, "Hook listener failed", "hook", a.name, "listener", i, "error", err)
		}
	}
}

func (a *ActionList[T]) call(ctx context.Context, fn Action[T], payload T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx, payload)
}

type OTPGenerated struct {
	Phone string
	Code  int
}

type AccountRegistered struct {
	AccountID int64
	Phone     string
}

type ExistingLogin struct {
	Account *domain.Account
	Phone   string
}

// Registry is created once per process and injected into the services that fire it.
type Registry struct {
	BeforeLoginExistingUser ActionList[ExistingLogin]
	AfterRegisterUser       ActionList[AccountRegistered]
	OTPGenerated            ActionList[OTPGenerated]

	LoginRedirectURL    FilterChain[string]
	RateLimitSeconds    FilterChain[int]
	OTPExpiration       FilterChain[int]
	MaxOTPAttempts      FilterChain[int]
	UsernamePrefix      FilterChain[string]
	AutoRegisterEnabled FilterChain[bool]
	NewUserRole         FilterChain[string]
	NewUserData         FilterChain[domain.NewAccount]
}

func NewRegistry() *Registry {
	r := &Registry{}
	r.BeforeLoginExistingUser.name = BeforeLoginExistingUser
	r.AfterRegisterUser.name = AfterRegisterUser
	r.OTPGenerated.name = OTPGeneratedReadyToSend
	r.LoginRedirectURL.name = LoginRedirectURL
	r.RateLimitSeconds.name = RateLimitSeconds
	r.OTPExpiration.name = OTPExpiration
	r.MaxOTPAttempts.name = MaxOTPAttempts
	r.UsernamePrefix.name = UsernamePrefix
	r.AutoRegisterEnabled.name = AutoRegisterEnabled
	r.NewUserRole.name = NewUserRole
	r.NewUserData.name = NewUserData
	return r
}

// Point describes one extension point for listing.
type Point struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// Points lists every extension point in a stable order.
func Points() []Point {
	return []Point{
		{BeforeLoginExistingUser, "action", "Fires before an existing account is logged in."},
		{AfterRegisterUser, "action", "Fires after an account is auto-registered, with the account id and phone."},
		{OTPGeneratedReadyToSend, "action", "Fires when a code is generated and about to be sent, with the phone and code."},
		{LoginRedirectURL, "filter", "Filters the URL returned after a successful login."},
		{RateLimitSeconds, "filter", "Filters the cooldown between two codes for one phone, in seconds."},
		{OTPExpiration, "filter", "Filters the code lifetime, in seconds."},
		{MaxOTPAttempts, "filter", "Filters the number of wrong codes allowed."},
		{UsernamePrefix, "filter", "Filters the prefix of auto-registered logins."},
		{AutoRegisterEnabled, "filter", "Filters whether unknown phones get an account."},
		{NewUserRole, "filter", "Filters the role of auto-registered accounts."},
		{NewUserData, "filter", "Filters the data used to create an account."},
	}
}
