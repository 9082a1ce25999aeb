package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/diagnosis/verifywoo/pkg/config"
	"github.com/diagnosis/verifywoo/services/auth/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SettingsStore is the key/value settings store behind the admin SMS gateway and general tabs.
type SettingsStore interface {
	GatewaySettings(ctx context.Context) (domain.GatewaySettings, error)
	GeneralSettings(ctx context.Context) (domain.GeneralSettings, error)
	SaveGatewaySettings(ctx context.Context, s domain.GatewaySettings) error
	SaveGeneralSettings(ctx context.Context, s domain.GeneralSettings) error
}

// DefaultSettings derives settings from the environment configuration.
func DefaultSettings(cfg *config.Config) (domain.GatewaySettings, domain.GeneralSettings) {
	gateway := domain.GatewaySettings{
		Active:            cfg.SMS.Active,
		Provider:          cfg.SMS.Gateway,
		Pattern:           cfg.SMS.Pattern,
		KavenegarAPIKey:   cfg.SMS.KavenegarAPIKey,
		KavenegarSender:   cfg.SMS.KavenegarSender,
		KavenegarInsecure: cfg.SMS.KavenegarInsecure,
	}
	general := domain.GeneralSettings{
		AutoRegister:     cfg.Account.AutoRegister,
		DefaultRole:      cfg.Account.DefaultRole,
		UsernamePrefix:   cfg.Account.UsernamePrefix,
		LoginRedirectURL: cfg.Account.LoginRedirectURL,
		CheckoutRedirect: cfg.Shop.CheckoutRedirect,
	}
	return gateway, general
}

type postgresSettingsStore struct {
	pool            *pgxpool.Pool
	gatewayDefaults domain.GatewaySettings
	generalDefaults domain.GeneralSettings
}

// NewPostgresSettingsStore reads JSON option rows, falling back to the given defaults
// for missing rows and missing fields.
func NewPostgresSettingsStore(pool *pgxpool.Pool, gateway domain.GatewaySettings, general domain.GeneralSettings) SettingsStore {
	return &postgresSettingsStore{pool: pool, gatewayDefaults: gateway, generalDefaults: general}
}

func (s *postgresSettingsStore) GatewaySettings(ctx context.Context) (domain.GatewaySettings, error) {
	settings := s.gatewayDefaults
	if err := s.load(ctx, domain.OptionGatewaySettings, &settings); err != nil {
		return domain.GatewaySettings{}, err
	}
	return settings, nil
}

func (s *postgresSettingsStore) GeneralSettings(ctx context.Context) (domain.GeneralSettings, error) {
	settings := s.generalDefaults
	if err := s.load(ctx, domain.OptionGeneralSettings, &settings); err != nil {
		return domain.GeneralSettings{}, err
	}
	return settings, nil
}

func (s *postgresSettingsStore) SaveGatewaySettings(ctx context.Context, settings domain.GatewaySettings) error {
	return s.save(ctx, domain.OptionGatewaySettings, settings)
}

func (s *postgresSettingsStore) SaveGeneralSettings(ctx context.Context, settings domain.GeneralSettings) error {
	return s.save(ctx, domain.OptionGeneralSettings, settings)
}

func (s *postgresSettingsStore) load(ctx context.Context, name string, into interface{}) error {
	const q = `SELECT option_value FROM verifywoo_options WHERE option_name = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var raw []byte
	err := s.pool.QueryRow(ctx, q, name).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load option %s: %w", name, err)
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return fmt.Errorf("decode option %s: %w", name, err)
	}
	return nil
}

func (s *postgresSettingsStore) save(ctx context.Context, name string, value interface{}) error {
	const q = `
		INSERT INTO verifywoo_options (option_name, option_value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (option_name) DO UPDATE SET option_value = EXCLUDED.option_value, updated_at = now()`

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode option %s: %w", name, err)
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if _, err := s.pool.Exec(ctx, q, name, payload); err != nil {
		return fmt.Errorf("save option %s: %w", name, err)
	}
	return nil
}

// StaticSettingsStore holds settings in memory.
type StaticSettingsStore struct {
	mu      sync.RWMutex
	gateway domain.GatewaySettings
	general domain.GeneralSettings
}

var _ SettingsStore = (*StaticSettingsStore)(nil)

func NewStaticSettingsStore(gateway domain.GatewaySettings, general domain.GeneralSettings) *StaticSettingsStore {
	return &StaticSettingsStore{gateway: gateway, general: general}
}

func (s *StaticSettingsStore) GatewaySettings(context.Context) (domain.GatewaySettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gateway, nil
}

func (s *StaticSettingsStore) GeneralSettings(context.Context) (domain.GeneralSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.general, nil
}

func (s *StaticSettingsStore) SaveGatewaySettings(_ context.Context, settings domain.GatewaySettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gateway = settings
	return nil
}

func (s *StaticSettingsStore) SaveGeneralSettings(_ context.Context, settings domain.GeneralSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.general = settings
	return nil
}
