package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diagnosis/verifywoo/pkg/config"
	"github.com/diagnosis/verifywoo/services/auth/internal/domain"
	"github.com/diagnosis/verifywoo/services/auth/internal/repository"
	"github.com/diagnosis/verifywoo/services/auth/internal/sms"
)

type recordingGateway struct {
	to, message, pattern string
	data                 sms.PatternData
	opts                 sms.SendOptions
	accept               bool
}

func (g *recordingGateway) Name() string { return "recording" }

func (g *recordingGateway) Send(_ context.Context, to, message string, opts sms.SendOptions) bool {
	g.to, g.message, g.opts = to, message, opts
	return g.accept
}

func (g *recordingGateway) SendByPattern(_ context.Context, to, pattern string, data sms.PatternData, opts sms.SendOptions) bool {
	g.to, g.pattern, g.data, g.opts = to, pattern, data, opts
	return g.accept
}

func newTestApp(t *testing.T) (*app, *repository.StaticSettingsStore, *recordingGateway, *bytes.Buffer) {
	t.Helper()
	gw := &recordingGateway{accept: true}
	store := repository.NewStaticSettingsStore(
		domain.GatewaySettings{Active: true, Provider: "recording", KavenegarAPIKey: "secret-key-1234"},
		domain.GeneralSettings{AutoRegister: true, DefaultRole: domain.RoleCustomer, UsernamePrefix: "customer_"},
	)
	out := &bytes.Buffer{}
	a := &app{
		cfg: &config.Config{},
		out: out,
		factory: sms.NewFactory(map[string]sms.Constructor{
			"recording": func(map[string]string) (sms.Gateway, error) { return gw, nil },
			"log":       func(map[string]string) (sms.Gateway, error) { return sms.NewLogGateway(), nil },
		}),
		openPool: func(context.Context) (*pgxpool.Pool, error) {
			return nil, errors.New("no database in tests")
		},
		openStore: func(context.Context) (repository.SettingsStore, func(), error) {
			return store, func() {}, nil
		},
	}
	return a, store, gw, out
}

func run(t *testing.T, a *app, args ...string) error {
	t.Helper()
	cmd := rootCmd(a)
	cmd.SetArgs(args)
	cmd.SetOut(a.out)
	cmd.SetErr(a.out)
	return cmd.ExecuteContext(context.Background())
}

func TestSettingsShowMasksKey(t *testing.T) {
	a, _, _, out := newTestApp(t)

	require.NoError(t, run(t, a, "settings", "show"))

	var printed map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(out.Bytes(), &printed))
	var gateway domain.GatewaySettings
	require.NoError(t, json.Unmarshal(printed[domain.OptionGatewaySettings], &gateway))
	assert.Equal(t, "***********1234", gateway.KavenegarAPIKey)
	assert.Contains(t, printed, domain.OptionGeneralSettings)
}

func TestSetGatewayKeepsUnsetFields(t *testing.T) {
	a, store, _, _ := newTestApp(t)

	require.NoError(t, run(t, a, "settings", "set-gateway", "--pattern", "verify", "--sender", "10004346"))

	s, err := store.GatewaySettings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "verify", s.Pattern)
	assert.Equal(t, "10004346", s.KavenegarSender)
	assert.True(t, s.Active)
	assert.Equal(t, "recording", s.Provider)
	assert.Equal(t, "secret-key-1234", s.KavenegarAPIKey)

	require.NoError(t, run(t, a, "settings", "set-gateway", "--active=false"))
	s, _ = store.GatewaySettings(context.Background())
	assert.False(t, s.Active)
}

func TestSetGatewayRejectsUnknownProvider(t *testing.T) {
	a, store, _, _ := newTestApp(t)

	err := run(t, a, "settings", "set-gateway", "--provider", "twilio")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "available: log, recording")

	s, _ := store.GatewaySettings(context.Background())
	assert.Equal(t, "recording", s.Provider)
}

func TestSetGeneral(t *testing.T) {
	a, store, _, _ := newTestApp(t)

	require.NoError(t, run(t, a, "settings", "set-general", "--auto-register=false", "--checkout-redirect"))

	s, err := store.GeneralSettings(context.Background())
	require.NoError(t, err)
	assert.False(t, s.AutoRegister)
	assert.True(t, s.CheckoutRedirect)
	assert.Equal(t, "customer_", s.UsernamePrefix)
}

func TestSMSSendPlain(t *testing.T) {
	a, _, gw, out := newTestApp(t)

	require.NoError(t, run(t, a, "sms", "send", "--to", "0912 123 4567", "--message", "hello", "--local-id", "42"))

	assert.Equal(t, "09121234567", gw.to)
	assert.Equal(t, "hello", gw.message)
	assert.Equal(t, "42", gw.opts.LocalID)
	assert.Contains(t, out.String(), "Accepted by recording.")
}

func TestSMSSendPattern(t *testing.T) {
	a, _, gw, _ := newTestApp(t)

	require.NoError(t, run(t, a, "sms", "send", "--to", "0912", "--pattern", "verify", "--token", "1234", "--token10", "Ali"))

	assert.Equal(t, "verify", gw.pattern)
	assert.Equal(t, sms.PatternData{"token": "1234", "token10": "Ali"}, gw.data)
}

func TestSMSSendErrors(t *testing.T) {
	a, store, gw, _ := newTestApp(t)

	assert.Error(t, run(t, a, "sms", "send", "--to", "abc", "--message", "x"))
	assert.Error(t, run(t, a, "sms", "send", "--to", "0912"))
	assert.Error(t, run(t, a, "sms", "send", "--to", "0912", "--message", "x", "--pattern", "p"))

	gw.accept = false
	err := run(t, a, "sms", "send", "--to", "0912", "--message", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "did not accept")

	require.NoError(t, store.SaveGatewaySettings(context.Background(), domain.GatewaySettings{Provider: "twilio"}))
	err = run(t, a, "sms", "send", "--to", "0912", "--message", "x")
	assert.ErrorIs(t, err, domain.ErrUnsupportedDriver)
}

func TestMigrateReportsConnectionError(t *testing.T) {
	a, _, _, _ := newTestApp(t)
	err := run(t, a, "migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect database")
}

func TestHooksAndVersion(t *testing.T) {
	a, _, _, out := newTestApp(t)

	require.NoError(t, run(t, a, "hooks"))
	assert.Contains(t, out.String(), "verify_woo_send_otp_sms")

	require.NoError(t, run(t, a, "version"))
	assert.Contains(t, out.String(), "verifywoo version "+Version)
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", maskSecret(""))
	assert.Equal(t, "***", maskSecret("abc"))
	assert.Equal(t, "**cdef", maskSecret("abcdef"))
}
