package service

import (
	"context"
	"fmt"

	"github.com/diagnosis/verifywoo/internal/utils"
	"github.com/diagnosis/verifywoo/pkg/events"
	"github.com/diagnosis/verifywoo/pkg/logger"
	"github.com/diagnosis/verifywoo/services/auth/internal/domain"
	"github.com/diagnosis/verifywoo/services/auth/internal/hooks"
	"github.com/diagnosis/verifywoo/services/auth/internal/repository"
)

type IdentityResolver interface {
	// ResolveAndLogin logs in the account owning phone, creating it first when allowed.
	ResolveAndLogin(ctx context.Context, phone string) (*domain.Session, error)
}

type identityResolver struct {
	accounts repository.AccountRepository
	settings repository.SettingsStore
	sessions SessionIssuer
	hooks    *hooks.Registry
	eventBus events.Publisher
	opts     options
}

func NewIdentityResolver(
	accounts repository.AccountRepository,
	settings repository.SettingsStore,
	sessions SessionIssuer,
	hooks *hooks.Registry,
	eventBus events.Publisher,
	opts ...Option,
) IdentityResolver {
	return &identityResolver{
		accounts: accounts,
		settings: settings,
		sessions: sessions,
		hooks:    hooks,
		eventBus: eventBus,
		opts:     applyOptions(opts),
	}
}

func (r *identityResolver) ResolveAndLogin(ctx context.Context, rawPhone string) (*domain.Session, error) {
	phone := utils.DigitsOnly(rawPhone)
	if phone == "" {
		return nil, domain.InvalidInput("Phone number is empty.")
	}

	general, err := r.settings.GeneralSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load general settings: %w", err)
	}

	prefix := r.hooks.UsernamePrefix.Apply(ctx, general.UsernamePrefix, phone)
	login := utils.SanitizeUsername(prefix + phone)

	account, err := r.accounts.FindByLogin(ctx, login)
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}

	if account != nil {
		r.hooks.BeforeLoginExistingUser.Fire(ctx, hooks.ExistingLogin{Account: account, Phone: phone})
		return r.login(ctx, account, phone, false)
	}

	if !r.hooks.AutoRegisterEnabled.Apply(ctx, general.AutoRegister, phone) {
		logger.InfoContext(ctx, "Auto registration disabled", "phone", logger.MaskPhone(phone))
		return nil, domain.ErrRegistrationDisabled
	}

	account, err = r.register(ctx, login, phone, general.DefaultRole)
	if err != nil {
		return nil, err
	}
	return r.login(ctx, account, phone, true)
}

func (r *identityResolver) register(ctx context.Context, login, phone, defaultRole string) (*domain.Account, error) {
	if defaultRole == "" {
		defaultRole = domain.RoleCustomer
	}
	role := r.hooks.NewUserRole.Apply(ctx, defaultRole, phone)

	password, err := r.opts.passwords()
	if err != nil {
		return nil, domain.CreateFailed(err)
	}

	data := r.hooks.NewUserData.Apply(ctx, domain.NewAccount{
		Login:    login,
		Password: password,
		Role:     role,
	}, phone)

	hash, err := r.opts.hash(data.Password)
	if err != nil {
		return nil, domain.CreateFailed(fmt.Errorf("hash password: %w", err))
	}

	account, err := r.accounts.Create(ctx, &data, hash)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to create account", "login", data.Login, "error", err)
		return nil, domain.CreateFailed(err)
	}

	if err := r.accounts.SetMeta(ctx, account.ID, domain.PhoneMetaKey, phone); err != nil {
		logger.ErrorContext(ctx, "Failed to store account phone", "account_id", account.ID, "error", err)
	}

	r.hooks.AfterRegisterUser.Fire(ctx, hooks.AccountRegistered{AccountID: account.ID, Phone: phone})
	publish(ctx, r.eventBus, events.AccountRegistered, events.AccountRegisteredEvent{
		AccountID:    account.ID,
		Login:        account.Login,
		Phone:        phone,
		Role:         account.Role,
		RegisteredAt: r.opts.now().UTC(),
	})

	logger.InfoContext(ctx, "Account registered", "account_id", account.ID, "role", account.Role)
	return account, nil
}

func (r *identityResolver) login(ctx context.Context, account *domain.Account, phone string, created bool) (*domain.Session, error) {
	session, err := r.sessions.Issue(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("establish session: %w", err)
	}
	session.NewAccount = created

	publish(ctx, r.eventBus, events.AccountLoggedIn, events.AccountLoggedInEvent{
		AccountID:  account.ID,
		Login:      account.Login,
		Phone:      phone,
		NewAccount: created,
		LoggedInAt: r.opts.now().UTC(),
	})
	return session, nil
}
