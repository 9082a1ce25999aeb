package repository

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diagnosis/verifywoo/pkg/config"
	"github.com/diagnosis/verifywoo/pkg/database"
	"github.com/diagnosis/verifywoo/services/auth/internal/domain"
)

func TestDefaultSettingsFromConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.SMS.Active = true
	cfg.SMS.Gateway = "kavenegar"
	cfg.SMS.KavenegarAPIKey = "key"
	cfg.Account.UsernamePrefix = "customer_"
	cfg.Account.DefaultRole = "customer"
	cfg.Shop.CheckoutRedirect = true

	gateway, general := DefaultSettings(cfg)

	assert.True(t, gateway.Active)
	assert.Equal(t, "kavenegar", gateway.Provider)
	assert.Equal(t, "key", gateway.DriverSettings()["kavenegar_api_key"])
	assert.Equal(t, "", gateway.DriverSettings()["kavenegar_insecure"])
	assert.Equal(t, "customer_", general.UsernamePrefix)
	assert.True(t, general.CheckoutRedirect)
}

func TestStaticSettingsStore(t *testing.T) {
	ctx := context.Background()
	store := NewStaticSettingsStore(domain.GatewaySettings{Provider: "kavenegar"}, domain.GeneralSettings{})

	require.NoError(t, store.SaveGatewaySettings(ctx, domain.GatewaySettings{Active: true, Provider: "log"}))
	got, err := store.GatewaySettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "log", got.Provider)
	assert.True(t, got.Active)
}

func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("DATABASE_TEST_URL")
	if url == "" {
		t.Skip("DATABASE_TEST_URL not set")
	}
	ctx := context.Background()
	pool, err := database.Connect(ctx, config.DatabaseConfig{URL: url, MinConns: 1, MaxConns: 2})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(ctx, pool))
	t.Cleanup(pool.Close)
	return pool
}

func TestPostgresSettingsStore(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	_, err := pool.Exec(ctx, `DELETE FROM verifywoo_options`)
	require.NoError(t, err)

	defaults := domain.GeneralSettings{AutoRegister: true, DefaultRole: "customer", UsernamePrefix: "customer_"}
	store := NewPostgresSettingsStore(pool, domain.GatewaySettings{Provider: "kavenegar"}, defaults)

	general, err := store.GeneralSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, defaults, general)

	// Fields missing from the stored JSON keep their defaults.
	_, err = pool.Exec(ctx, `INSERT INTO verifywoo_options (option_name, option_value) VALUES ($1, $2)`,
		domain.OptionGeneralSettings, []byte(`{"auto_register": false}`))
	require.NoError(t, err)

	general, err = store.GeneralSettings(ctx)
	require.NoError(t, err)
	assert.False(t, general.AutoRegister)
	assert.Equal(t, "customer_", general.UsernamePrefix)

	require.NoError(t, store.SaveGatewaySettings(ctx, domain.GatewaySettings{Active: true, Provider: "kavenegar", Pattern: "verify"}))
	gateway, err := store.GatewaySettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "verify", gateway.Pattern)
}

func TestAccountRepository(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	repo := NewAccountRepository(pool)
	login := "customer_test_" + t.Name()
	_, err := pool.Exec(ctx, `DELETE FROM accounts WHERE login = $1`, login)
	require.NoError(t, err)

	missing, err := repo.FindByLogin(ctx, login)
	require.NoError(t, err)
	assert.Nil(t, missing)

	acc, err := repo.Create(ctx, &domain.NewAccount{Login: login, Role: "customer"}, "hash")
	require.NoError(t, err)
	assert.NotZero(t, acc.ID)

	require.NoError(t, repo.SetMeta(ctx, acc.ID, domain.PhoneMetaKey, "0912"))
	require.NoError(t, repo.SetMeta(ctx, acc.ID, domain.PhoneMetaKey, "0935"))
	phone, err := repo.GetMeta(ctx, acc.ID, domain.PhoneMetaKey)
	require.NoError(t, err)
	assert.Equal(t, "0935", phone)

	found, err := repo.FindByLogin(ctx, login)
	require.NoError(t, err)
	assert.Equal(t, acc.ID, found.ID)
}
