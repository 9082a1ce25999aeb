package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/diagnosis/verifywoo/internal/utils"
	"github.com/diagnosis/verifywoo/pkg/config"
	"github.com/diagnosis/verifywoo/pkg/events"
	"github.com/diagnosis/verifywoo/pkg/logger"
	"github.com/diagnosis/verifywoo/pkg/metrics"
	"github.com/diagnosis/verifywoo/services/auth/internal/domain"
	"github.com/diagnosis/verifywoo/services/auth/internal/hooks"
	"github.com/diagnosis/verifywoo/services/auth/internal/repository"
	"github.com/diagnosis/verifywoo/services/auth/internal/sms"
)

type IssuanceService interface {
	// RequestOTP issues a fresh code for phone and hands it to the SMS gateway.
	// A gateway that refuses the message does not fail the request.
	RequestOTP(ctx context.Context, phone string) error
}

type issuanceService struct {
	store    repository.OTPStore
	settings repository.SettingsStore
	factory  *sms.Factory
	hooks    *hooks.Registry
	eventBus events.Publisher
	config   *config.Config
	opts     options
}

func NewIssuanceService(
	store repository.OTPStore,
	settings repository.SettingsStore,
	factory *sms.Factory,
	hooks *hooks.Registry,
	eventBus events.Publisher,
	config *config.Config,
	opts ...Option,
) IssuanceService {
	return &issuanceService{
		store:    store,
		settings: settings,
		factory:  factory,
		hooks:    hooks,
		eventBus: eventBus,
		config:   config,
		opts:     applyOptions(opts),
	}
}

func (s *issuanceService) RequestOTP(ctx context.Context, rawPhone string) error {
	outcome := "error"
	defer func() { metrics.OTPRequests.WithLabelValues(outcome).Inc() }()

	gatewaySettings, err := s.settings.GatewaySettings(ctx)
	if err != nil {
		return fmt.Errorf("load gateway settings: %w", err)
	}
	if !gatewaySettings.Active {
		outcome = "disabled"
		return domain.ErrDisabled
	}

	req := &domain.OTPRequest{Phone: rawPhone}
	req.Normalize()
	if err := req.Validate(); err != nil {
		outcome = "invalid_input"
		return err
	}
	phone := utils.DigitsOnly(req.Phone)
	if phone == "" {
		outcome = "invalid_input"
		return domain.InvalidInput("Phone number is empty.")
	}

	// Resolve the driver before touching the store so a misconfigured gateway leaves no live code behind.
	gateway, err := s.factory.Driver(gatewaySettings.Provider, gatewaySettings.DriverSettings())
	if err != nil {
		outcome = "configuration"
		logger.ErrorContext(ctx, "SMS gateway unavailable", "provider", gatewaySettings.Provider, "error", err)
		return err
	}

	policy := resolvePolicy(ctx, s.config, s.hooks, phone)
	now := s.opts.now()

	existing, err := s.store.Get(ctx, phone)
	if err != nil {
		return fmt.Errorf("load otp: %w", err)
	}
	if existing != nil {
		if wait := existing.CooldownWait(now, policy.cooldown); wait > 0 {
			outcome = "rate_limited"
			return domain.RateLimited(wait)
		}
	}

	code, err := s.opts.codes()
	if err != nil {
		return err
	}

	record := domain.NewOTPRecord(code, now)
	if err := s.store.Put(ctx, phone, record, policy.expiration); err != nil {
		return fmt.Errorf("store otp: %w", err)
	}

	s.hooks.OTPGenerated.Fire(ctx, hooks.OTPGenerated{Phone: phone, Code: code})
	publish(ctx, s.eventBus, events.OTPGenerated, events.OTPGeneratedEvent{
		Phone:     phone,
		Driver:    gateway.Name(),
		Pattern:   gatewaySettings.Pattern != "",
		IssuedAt:  now.UTC(),
		ExpiresAt: now.Add(policy.expiration).UTC(),
	})

	sent := s.dispatch(ctx, gateway, gatewaySettings.Pattern, phone, code)
	if !sent {
		logger.WarnContext(ctx, "OTP issued but SMS gateway did not accept the message",
			"phone", logger.MaskPhone(phone),
			"provider", gateway.Name(),
		)
		publish(ctx, s.eventBus, events.SMSFailed, events.SMSFailedEvent{
			Phone:    phone,
			Driver:   gateway.Name(),
			Method:   dispatchMethod(gatewaySettings.Pattern),
			FailedAt: s.opts.now().UTC(),
		})
	}

	outcome = "issued"
	logger.InfoContext(ctx, "OTP issued",
		"phone", logger.MaskPhone(phone),
		"provider", gateway.Name(),
		"sent", sent,
		"expires_in", policy.expiration/time.Second,
	)
	logger.DebugContext(ctx, "OTP code", "phone", logger.MaskPhone(phone), "code", code)
	return nil
}

func (s *issuanceService) dispatch(ctx context.Context, gateway sms.Gateway, pattern, phone string, code int) bool {
	message := strconv.Itoa(code)
	if pattern != "" {
		return gateway.SendByPattern(ctx, phone, pattern, sms.OTPPatternData(message), sms.SendOptions{})
	}
	return gateway.Send(ctx, phone, message, sms.SendOptions{})
}

func dispatchMethod(pattern string) string {
	if pattern != "" {
		return "pattern"
	}
	return "send"
}
