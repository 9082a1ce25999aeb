// Package notifier turns auth events into audit log lines and admin e-mails.
package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/diagnosis/verifywoo/pkg/events"
	"github.com/diagnosis/verifywoo/pkg/logger"
	"github.com/diagnosis/verifywoo/pkg/metrics"
	"github.com/diagnosis/verifywoo/services/notify/internal/mailer"
)

const (
	queueGroup  = "notify"
	sendTimeout = 15 * time.Second
)

type Notifier struct {
	mailer     mailer.Service
	adminEmail string
	// alertEvery bounds SMS failure alerts to one per driver per window.
	alertEvery time.Duration
	now        func() time.Time
	audit      *slog.Logger

	mu        sync.Mutex
	lastAlert map[string]time.Time
}

func New(m mailer.Service, adminEmail string, alertEvery time.Duration) *Notifier {
	return &Notifier{
		mailer:     m,
		adminEmail: adminEmail,
		alertEvery: alertEvery,
		now:        time.Now,
		audit:      logger.Default().With("stream", "audit"),
		lastAlert:  make(map[string]time.Time),
	}
}

// Subscribe attaches the handlers to bus. Replicas share one queue group so each event is handled once.
func (n *Notifier) Subscribe(bus events.Subscriber) error {
	handlers := map[string]func(*events.Message){
		events.OTPGenerated:      n.HandleOTPGenerated,
		events.SMSFailed:         n.HandleSMSFailed,
		events.AccountRegistered: n.HandleAccountRegistered,
		events.AccountLoggedIn:   n.HandleAccountLoggedIn,
	}
	for subject, handler := range handlers {
		if err := bus.QueueSubscribe(subject, queueGroup, handler); err != nil {
			return fmt.Errorf("subscribe %s: %w", subject, err)
		}
	}
	return nil
}

func (n *Notifier) HandleOTPGenerated(msg *events.Message) {
	var evt events.OTPGeneratedEvent
	if err := json.Unmarshal(msg.Data, &evt); err != nil {
		logger.Error("Invalid otp.generated payload", "error", err, "message_id", msg.ID)
		return
	}
	n.audit.Info("OTP issued",
		"event", events.OTPGenerated,
		"phone", logger.MaskPhone(evt.Phone),
		"driver", evt.Driver,
		"pattern", evt.Pattern,
		"expires_at", evt.ExpiresAt,
	)
}

func (n *Notifier) HandleAccountLoggedIn(msg *events.Message) {
	var evt events.AccountLoggedInEvent
	if err := json.Unmarshal(msg.Data, &evt); err != nil {
		logger.Error("Invalid account.login payload", "error", err, "message_id", msg.ID)
		return
	}
	n.audit.Info("Account logged in",
		"event", events.AccountLoggedIn,
		"account_id", evt.AccountID,
		"login", evt.Login,
		"phone", logger.MaskPhone(evt.Phone),
		"new_account", evt.NewAccount,
	)
}

func (n *Notifier) HandleAccountRegistered(msg *events.Message) {
	var evt events.AccountRegisteredEvent
	if err := json.Unmarshal(msg.Data, &evt); err != nil {
		logger.Error("Invalid account.registered payload", "error", err, "message_id", msg.ID)
		return
	}
	n.audit.Info("Account registered",
		"event", events.AccountRegistered,
		"account_id", evt.AccountID,
		"login", evt.Login,
		"role", evt.Role,
	)
	if n.adminEmail == "" {
		logger.Debug("No admin e-mail configured, skipping new customer notice", "account_id", evt.AccountID)
		return
	}

	n.send("new_customer", mailer.NewCustomerMessage(n.adminEmail, evt))
}

func (n *Notifier) HandleSMSFailed(msg *events.Message) {
	var evt events.SMSFailedEvent
	if err := json.Unmarshal(msg.Data, &evt); err != nil {
		logger.Error("Invalid sms.failed payload", "error", err, "message_id", msg.ID)
		return
	}
	n.audit.Warn("SMS gateway failure reported",
		"event", events.SMSFailed,
		"driver", evt.Driver,
		"method", evt.Method,
		"phone", logger.MaskPhone(evt.Phone),
	)

	if n.adminEmail == "" || !n.allowAlert(evt.Driver) {
		return
	}

	n.send("sms_failure", mailer.SMSFailureMessage(n.adminEmail, evt))
}

func (n *Notifier) allowAlert(driver string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	now := n.now()
	if last, ok := n.lastAlert[driver]; ok && now.Sub(last) < n.alertEvery {
		return false
	}
	n.lastAlert[driver] = now
	return true
}

func (n *Notifier) send(kind string, msg mailer.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	if err := n.mailer.Send(ctx, msg); err != nil {
		metrics.Notifications.WithLabelValues(kind, "error").Inc()
		logger.Error("Failed to send notification", "kind", kind, "error", err)
		return
	}
	metrics.Notifications.WithLabelValues(kind, "sent").Inc()
	logger.Info("Notification sent", "kind", kind)
}
