package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diagnosis/verifywoo/services/auth/internal/domain"
	"github.com/diagnosis/verifywoo/services/auth/internal/hooks"
	"github.com/diagnosis/verifywoo/services/auth/internal/repository"
)

type verificationFixture struct {
	clock    *testClock
	store    *repository.MemoryOTPStore
	hooks    *hooks.Registry
	accounts *fakeAccounts
	sessions *fakeSessions
	svc      VerificationService
}

func newVerificationFixture(t *testing.T) *verificationFixture {
	t.Helper()
	f := &verificationFixture{
		clock:    newTestClock(),
		hooks:    hooks.NewRegistry(),
		accounts: newFakeAccounts(),
		sessions: &fakeSessions{},
	}
	f.store = repository.NewMemoryOTPStoreWithClock(f.clock.Now)
	settings := repository.NewStaticSettingsStore(
		domain.GatewaySettings{Active: true, Provider: "fake"},
		domain.GeneralSettings{AutoRegister: true, DefaultRole: "customer", UsernamePrefix: "customer_"},
	)
	resolver := NewIdentityResolver(f.accounts, settings, f.sessions, f.hooks, &recordingBus{},
		WithClock(f.clock.Now),
		WithPasswordHasher(fastHash),
	)
	f.svc = NewVerificationService(f.store, resolver, f.hooks, testConfig(), WithClock(f.clock.Now))
	return f
}

func (f *verificationFixture) issue(t *testing.T, phone string, code int) {
	t.Helper()
	require.NoError(t, f.store.Put(context.Background(), phone, domain.NewOTPRecord(code, f.clock.Now()), 60*time.Second))
}

func TestVerifyOTPCorrectCode(t *testing.T) {
	f := newVerificationFixture(t)
	f.issue(t, "09121234567", 4821)

	require.NoError(t, f.svc.VerifyOTP(context.Background(), "09121234567", "4821"))

	rec, _ := f.store.Get(context.Background(), "09121234567")
	assert.Nil(t, rec, "a verified code is consumed")
	assert.ErrorIs(t, f.svc.VerifyOTP(context.Background(), "09121234567", "4821"), domain.ErrExpired)
}

func TestVerifyOTPTrimsAndNormalizes(t *testing.T) {
	f := newVerificationFixture(t)
	f.issue(t, "09121234567", 4821)

	assert.NoError(t, f.svc.VerifyOTP(context.Background(), "0912 123 4567", " 4821 "))
}

func TestVerifyOTPMissingInput(t *testing.T) {
	f := newVerificationFixture(t)

	for _, tc := range [][2]string{{"", "4821"}, {"0912", ""}, {"  ", "  "}, {"phone", "4821"}} {
		err := f.svc.VerifyOTP(context.Background(), tc[0], tc[1])
		require.ErrorIs(t, err, domain.ErrInvalidInput)
		e, _ := domain.AsError(err)
		assert.Equal(t, "Phone or OTP is missing.", e.UserMessage())
	}
}

func TestVerifyOTPNoRecord(t *testing.T) {
	f := newVerificationFixture(t)

	err := f.svc.VerifyOTP(context.Background(), "09121234567", "4821")
	require.ErrorIs(t, err, domain.ErrExpired)
	e, _ := domain.AsError(err)
	assert.Equal(t, "OTP expired. Please request a new one.", e.UserMessage())
}

func TestVerifyOTPWrongCodesExhaustAttempts(t *testing.T) {
	f := newVerificationFixture(t)
	ctx := context.Background()
	f.issue(t, "09121234567", 4821)

	err := f.svc.VerifyOTP(ctx, "09121234567", "1111")
	e, ok := domain.AsError(err)
	require.True(t, ok)
	assert.Equal(t, domain.KindIncorrect, e.Kind)
	assert.Equal(t, 2, e.AttemptsLeft)
	assert.Equal(t, "Incorrect OTP. Try again.", e.UserMessage())

	rec, _ := f.store.Get(ctx, "09121234567")
	require.NotNil(t, rec)
	assert.Equal(t, 1, rec.Attempts)

	err = f.svc.VerifyOTP(ctx, "09121234567", "2222")
	e, _ = domain.AsError(err)
	assert.Equal(t, 1, e.AttemptsLeft)

	err = f.svc.VerifyOTP(ctx, "09121234567", "3333")
	require.ErrorIs(t, err, domain.ErrTooManyAttempts)
	e, _ = domain.AsError(err)
	assert.Equal(t, "Incorrect OTP. Maximum attempts reached.", e.UserMessage())

	rec, _ = f.store.Get(ctx, "09121234567")
	assert.Nil(t, rec)

	// Even the right code is useless now.
	assert.ErrorIs(t, f.svc.VerifyOTP(ctx, "09121234567", "4821"), domain.ErrExpired)
}

func TestVerifyOTPRecordAtLimit(t *testing.T) {
	f := newVerificationFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Put(ctx, "0912", &domain.OTPRecord{Code: 4821, Attempts: 3, IssuedAt: f.clock.Now().Unix()}, time.Minute))

	err := f.svc.VerifyOTP(ctx, "0912", "4821")
	require.ErrorIs(t, err, domain.ErrTooManyAttempts)
	e, _ := domain.AsError(err)
	assert.Equal(t, "Too many attempts. Try again later.", e.UserMessage())

	rec, _ := f.store.Get(ctx, "0912")
	assert.Nil(t, rec)
}

func TestVerifyOTPMaxAttemptsFilter(t *testing.T) {
	f := newVerificationFixture(t)
	f.hooks.MaxOTPAttempts.Add(func(_ context.Context, _ int, _ string) int { return 5 })
	ctx := context.Background()
	f.issue(t, "0912", 4821)

	for want := 4; want >= 1; want-- {
		e, _ := domain.AsError(f.svc.VerifyOTP(ctx, "0912", "1"))
		require.NotNil(t, e)
		assert.Equal(t, want, e.AttemptsLeft)
	}
	assert.ErrorIs(t, f.svc.VerifyOTP(ctx, "0912", "1"), domain.ErrTooManyAttempts)
}

func TestVerifyOTPNonNumericIsAMismatch(t *testing.T) {
	f := newVerificationFixture(t)
	f.issue(t, "0912", 4821)

	err := f.svc.VerifyOTP(context.Background(), "0912", "48a1")
	assert.ErrorIs(t, err, domain.ErrIncorrect)
}

func TestVerifyOTPWrongCodeKeepsOriginalExpiry(t *testing.T) {
	f := newVerificationFixture(t)
	ctx := context.Background()
	f.issue(t, "0912", 4821)

	f.clock.Advance(50 * time.Second)
	assert.ErrorIs(t, f.svc.VerifyOTP(ctx, "0912", "1111"), domain.ErrIncorrect)

	f.clock.Advance(11 * time.Second)
	assert.ErrorIs(t, f.svc.VerifyOTP(ctx, "0912", "4821"), domain.ErrExpired)
}

func TestLoginCreatesAccount(t *testing.T) {
	f := newVerificationFixture(t)
	f.issue(t, "09121234567", 4821)

	session, err := f.svc.Login(context.Background(), "09121234567", "4821")
	require.NoError(t, err)
	assert.True(t, session.NewAccount)
	assert.Equal(t, "customer_09121234567", session.Account.Login)
}

func TestLoginWrongCodeSkipsResolver(t *testing.T) {
	f := newVerificationFixture(t)
	f.issue(t, "09121234567", 4821)

	_, err := f.svc.Login(context.Background(), "09121234567", "0000")
	assert.ErrorIs(t, err, domain.ErrIncorrect)
	assert.Empty(t, f.accounts.created)
	assert.Empty(t, f.sessions.issued)
}
