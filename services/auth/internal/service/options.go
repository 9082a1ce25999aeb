package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/alexedwards/argon2id"

	"github.com/diagnosis/verifywoo/pkg/config"
	"github.com/diagnosis/verifywoo/pkg/events"
	"github.com/diagnosis/verifywoo/pkg/logger"
	"github.com/diagnosis/verifywoo/services/auth/internal/domain"
	"github.com/diagnosis/verifywoo/services/auth/internal/hooks"
)

// Option overrides a source of time or randomness.
type Option func(*options)

type options struct {
	now       func() time.Time
	codes     func() (int, error)
	passwords func() (string, error)
	hash      func(password string) (string, error)
}

func defaultOptions() options {
	return options{
		now:       time.Now,
		codes:     generateCode,
		passwords: generatePassword,
		hash: func(password string) (string, error) {
			return argon2id.CreateHash(password, argon2id.DefaultParams)
		},
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func WithCodeGenerator(fn func() (int, error)) Option {
	return func(o *options) { o.codes = fn }
}

func WithPasswordGenerator(fn func() (string, error)) Option {
	return func(o *options) { o.passwords = fn }
}

func WithPasswordHasher(fn func(password string) (string, error)) Option {
	return func(o *options) { o.hash = fn }
}

// generateCode draws uniformly from [CodeMin, CodeMax).
func generateCode() (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(domain.CodeMax-domain.CodeMin))
	if err != nil {
		return 0, fmt.Errorf("generate otp code: %w", err)
	}
	return domain.CodeMin + int(n.Int64()), nil
}

const passwordAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*()"

func generatePassword() (string, error) {
	buf := make([]byte, 24)
	limit := big.NewInt(int64(len(passwordAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("generate password: %w", err)
		}
		buf[i] = passwordAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// otpPolicy is the cooldown, lifetime and attempt budget in force for one phone.
type otpPolicy struct {
	cooldown    time.Duration
	expiration  time.Duration
	maxAttempts int
}

func resolvePolicy(ctx context.Context, cfg *config.Config, h *hooks.Registry, phone string) otpPolicy {
	cooldown := h.RateLimitSeconds.Apply(ctx, seconds(cfg.OTP.Cooldown, domain.DefaultCooldown), phone)
	expiration := h.OTPExpiration.Apply(ctx, seconds(cfg.OTP.Expiration, domain.DefaultExpiration), phone)
	maxAttempts := cfg.OTP.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = domain.DefaultMaxAttempts
	}
	maxAttempts = h.MaxOTPAttempts.Apply(ctx, maxAttempts, phone)

	if cooldown < 0 {
		cooldown = 0
	}
	if expiration < 1 {
		expiration = 1
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return otpPolicy{
		cooldown:    time.Duration(cooldown) * time.Second,
		expiration:  time.Duration(expiration) * time.Second,
		maxAttempts: maxAttempts,
	}
}

func seconds(d, fallback time.Duration) int {
	if d <= 0 {
		d = fallback
	}
	return int(d / time.Second)
}

func publish(ctx context.Context, bus events.Publisher, subject string, payload interface{}) {
	if bus == nil {
		return
	}
	if err := bus.Publish(ctx, subject, payload); err != nil {
		logger.WarnContext(ctx, "Failed to publish event", "subject", subject, "error", err)
	}
}
