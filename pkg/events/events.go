package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/diagnosis/verifywoo/pkg/logger"
	"github.com/nats-io/nats.go"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type Subscriber interface {
	Subscribe(subject string, handler func(msg *Message)) error
	QueueSubscribe(subject, queue string, handler func(msg *Message)) error
	Close() error
}

type EventBus interface {
	Publisher
	Subscriber
}

type Message struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
	ID        string
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Subscribe(subject string, handler func(msg *Message)) error {
	_, err := n.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
			ID:        fmt.Sprintf("%d", time.Now().UnixNano()),
		})
	})
	return err
}

func (n *NATSEventBus) QueueSubscribe(subject, queue string, handler func(msg *Message)) error {
	_, err := n.conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
			ID:        fmt.Sprintf("%d", time.Now().UnixNano()),
		})
	})
	return err
}

func (n *NATSEventBus) Close() error {
	n.conn.Close()
	return nil
}

// NopEventBus drops every event. Used when NATS is disabled.
type NopEventBus struct{}

func (NopEventBus) Publish(context.Context, string, interface{}) error     { return nil }
func (NopEventBus) Subscribe(string, func(msg *Message)) error              { return nil }
func (NopEventBus) QueueSubscribe(string, string, func(msg *Message)) error { return nil }
func (NopEventBus) Close() error                                            { return nil }

// Event types and subjects
const (
	OTPGenerated      = "otp.generated"
	SMSFailed         = "sms.failed"
	AccountRegistered = "account.registered"
	AccountLoggedIn   = "account.login"
)

// Event payloads. OTP codes never leave the auth service.
type OTPGeneratedEvent struct {
	Phone     string    `json:"phone"`
	Driver    string    `json:"driver"`
	Pattern   bool      `json:"pattern"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type SMSFailedEvent struct {
	Phone    string    `json:"phone"`
	Driver   string    `json:"driver"`
	Method   string    `json:"method"`
	FailedAt time.Time `json:"failed_at"`
}

type AccountRegisteredEvent struct {
	AccountID    int64     `json:"account_id"`
	Login        string    `json:"login"`
	Phone        string    `json:"phone"`
	Role         string    `json:"role"`
	RegisteredAt time.Time `json:"registered_at"`
}

type AccountLoggedInEvent struct {
	AccountID  int64     `json:"account_id"`
	Login      string    `json:"login"`
	Phone      string    `json:"phone"`
	NewAccount bool      `json:"new_account"`
	LoggedInAt time.Time `json:"logged_in_at"`
}
