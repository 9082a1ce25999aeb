package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/diagnosis/verifywoo/internal/utils"
	"github.com/diagnosis/verifywoo/pkg/config"
	"github.com/diagnosis/verifywoo/pkg/logger"
	"github.com/diagnosis/verifywoo/pkg/metrics"
	"github.com/diagnosis/verifywoo/services/auth/internal/domain"
	"github.com/diagnosis/verifywoo/services/auth/internal/hooks"
	"github.com/diagnosis/verifywoo/services/auth/internal/repository"
)

type VerificationService interface {
	// VerifyOTP consumes a correct code. Wrong codes count against the attempt budget.
	VerifyOTP(ctx context.Context, phone, code string) error
	// Login verifies the code and then resolves the account behind phone.
	Login(ctx context.Context, phone, code string) (*domain.Session, error)
}

type verificationService struct {
	store    repository.OTPStore
	resolver IdentityResolver
	hooks    *hooks.Registry
	config   *config.Config
	opts     options
}

func NewVerificationService(
	store repository.OTPStore,
	resolver IdentityResolver,
	hooks *hooks.Registry,
	config *config.Config,
	opts ...Option,
) VerificationService {
	return &verificationService{
		store:    store,
		resolver: resolver,
		hooks:    hooks,
		config:   config,
		opts:     applyOptions(opts),
	}
}

func (s *verificationService) Login(ctx context.Context, phone, code string) (*domain.Session, error) {
	if err := s.VerifyOTP(ctx, phone, code); err != nil {
		return nil, err
	}
	return s.resolver.ResolveAndLogin(ctx, phone)
}

func (s *verificationService) VerifyOTP(ctx context.Context, rawPhone, rawCode string) error {
	outcome := "error"
	defer func() { metrics.OTPVerifications.WithLabelValues(outcome).Inc() }()

	req := &domain.OTPVerify{Phone: rawPhone, Code: rawCode}
	req.Normalize()
	if err := req.Validate(); err != nil {
		outcome = "invalid_input"
		return err
	}
	phone := utils.DigitsOnly(req.Phone)
	if phone == "" {
		outcome = "invalid_input"
		return domain.InvalidInput("Phone or OTP is missing.")
	}

	policy := resolvePolicy(ctx, s.config, s.hooks, phone)

	record, err := s.store.Get(ctx, phone)
	if err != nil {
		return fmt.Errorf("load otp: %w", err)
	}
	if record == nil {
		outcome = "expired"
		return domain.ErrExpired
	}

	if record.Attempts >= policy.maxAttempts {
		outcome = "too_many_attempts"
		if err := s.store.Delete(ctx, phone); err != nil {
			return fmt.Errorf("delete otp: %w", err)
		}
		return domain.ErrTooManyAttempts
	}

	if submitted, convErr := strconv.Atoi(req.Code); convErr == nil && submitted == record.Code {
		if err := s.store.Delete(ctx, phone); err != nil {
			return fmt.Errorf("consume otp: %w", err)
		}
		outcome = "verified"
		logger.InfoContext(ctx, "OTP verified", "phone", logger.MaskPhone(phone))
		return nil
	}

	record.Attempts++
	if record.Attempts >= policy.maxAttempts {
		outcome = "too_many_attempts"
		if err := s.store.Delete(ctx, phone); err != nil {
			return fmt.Errorf("delete otp: %w", err)
		}
		return &domain.Error{Kind: domain.KindTooManyAttempts, Message: "Incorrect OTP. Maximum attempts reached."}
	}

	// The re-put keeps the original expiry instead of restarting the lifetime.
	remaining := record.RemainingTTL(s.opts.now(), policy.expiration)
	if remaining <= 0 {
		outcome = "expired"
		if err := s.store.Delete(ctx, phone); err != nil {
			return fmt.Errorf("delete otp: %w", err)
		}
		return domain.ErrExpired
	}
	if err := s.store.Put(ctx, phone, record, remaining); err != nil {
		return fmt.Errorf("store otp attempt: %w", err)
	}

	outcome = "incorrect"
	left := policy.maxAttempts - record.Attempts
	logger.InfoContext(ctx, "Incorrect OTP", "phone", logger.MaskPhone(phone), "attempts_left", left)
	return domain.Incorrect(left)
}
