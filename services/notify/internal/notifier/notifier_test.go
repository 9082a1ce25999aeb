package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diagnosis/verifywoo/pkg/events"
	"github.com/diagnosis/verifywoo/services/notify/internal/mailer"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (f *fakeMailer) Send(_ context.Context, msg mailer.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return f.err
}

type fakeBus struct {
	subs map[string]func(*events.Message)
}

func (b *fakeBus) Subscribe(subject string, h func(*events.Message)) error {
	return errors.New("plain subscriptions are not expected")
}

func (b *fakeBus) QueueSubscribe(subject, queue string, h func(*events.Message)) error {
	if queue != queueGroup {
		return errors.New("unexpected queue " + queue)
	}
	b.subs[subject] = h
	return nil
}

func (b *fakeBus) Close() error { return nil }

func message(t *testing.T, subject string, payload interface{}) *events.Message {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return &events.Message{Subject: subject, Data: data, ID: "1"}
}

func TestSubscribeRoutesSubjects(t *testing.T) {
	m := &fakeMailer{}
	n := New(m, "admin@shop.test", time.Minute)
	bus := &fakeBus{subs: map[string]func(*events.Message){}}

	require.NoError(t, n.Subscribe(bus))
	require.Len(t, bus.subs, 4)
	require.Contains(t, bus.subs, events.AccountRegistered)
	require.Contains(t, bus.subs, events.SMSFailed)
	require.Contains(t, bus.subs, events.OTPGenerated)
	require.Contains(t, bus.subs, events.AccountLoggedIn)

	bus.subs[events.AccountRegistered](message(t, events.AccountRegistered, events.AccountRegisteredEvent{
		AccountID: 42, Login: "customer_09121234567", Phone: "09121234567", Role: "customer",
		RegisteredAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}))

	require.Len(t, m.sent, 1)
	assert.Equal(t, "admin@shop.test", m.sent[0].To)
	assert.Contains(t, m.sent[0].Subject, "New customer")
	assert.Contains(t, m.sent[0].Text, "customer_09121234567")
	assert.Contains(t, m.sent[0].HTML, "<td>42</td>")
}

func TestSMSFailureAlertsAreThrottledPerDriver(t *testing.T) {
	m := &fakeMailer{}
	n := New(m, "admin@shop.test", 10*time.Minute)
	now := time.Unix(1_700_000_000, 0)
	n.now = func() time.Time { return now }

	fail := func(driver string) {
		n.HandleSMSFailed(message(t, events.SMSFailed, events.SMSFailedEvent{
			Phone: "09121234567", Driver: driver, Method: "send", FailedAt: now,
		}))
	}

	fail("kavenegar")
	fail("kavenegar")
	fail("log")
	assert.Len(t, m.sent, 2)

	now = now.Add(11 * time.Minute)
	fail("kavenegar")
	assert.Len(t, m.sent, 3)
	assert.Contains(t, m.sent[2].Subject, "kavenegar")
}

func TestNoAdminEmail(t *testing.T) {
	m := &fakeMailer{}
	n := New(m, "", time.Minute)

	n.HandleAccountRegistered(message(t, events.AccountRegistered, events.AccountRegisteredEvent{AccountID: 1}))
	n.HandleSMSFailed(message(t, events.SMSFailed, events.SMSFailedEvent{Driver: "kavenegar"}))

	assert.Empty(t, m.sent)
}

func TestBadPayloadIsDropped(t *testing.T) {
	m := &fakeMailer{}
	n := New(m, "admin@shop.test", time.Minute)

	n.HandleAccountRegistered(&events.Message{Data: []byte("{")})
	n.HandleSMSFailed(&events.Message{Data: []byte("[]")})

	assert.Empty(t, m.sent)
}

func TestMailerErrorIsSwallowed(t *testing.T) {
	m := &fakeMailer{err: errors.New("smtp down")}
	n := New(m, "admin@shop.test", time.Minute)

	assert.NotPanics(t, func() {
		n.HandleAccountRegistered(message(t, events.AccountRegistered, events.AccountRegisteredEvent{AccountID: 1}))
	})
	assert.Len(t, m.sent, 1)
}

func TestAuditLines(t *testing.T) {
	var buf bytes.Buffer
	m := &fakeMailer{}
	n := New(m, "admin@shop.test", time.Minute)
	n.audit = slog.New(slog.NewJSONHandler(&buf, nil))

	n.HandleOTPGenerated(message(t, events.OTPGenerated, events.OTPGeneratedEvent{
		Phone: "09121234567", Driver: "kavenegar", Pattern: true,
	}))
	n.HandleAccountLoggedIn(message(t, events.AccountLoggedIn, events.AccountLoggedInEvent{
		AccountID: 7, Login: "customer_09121234567", Phone: "09121234567", NewAccount: true,
	}))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var issued, loggedIn map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[0], &issued))
	require.NoError(t, json.Unmarshal(lines[1], &loggedIn))

	assert.Equal(t, events.OTPGenerated, issued["event"])
	assert.Equal(t, "kavenegar", issued["driver"])
	assert.NotContains(t, string(lines[0]), "09121234567", "phone is masked")

	assert.Equal(t, events.AccountLoggedIn, loggedIn["event"])
	assert.Equal(t, float64(7), loggedIn["account_id"])
	assert.Equal(t, true, loggedIn["new_account"])
	assert.Empty(t, m.sent, "audit events send no mail")
}
