package sms

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/diagnosis/verifywoo/pkg/logger"
	"github.com/diagnosis/verifywoo/pkg/metrics"
)

const KavenegarDriverName = "kavenegar"

// Settings keys read by the kavenegar driver.
const (
	SettingKavenegarAPIKey   = "kavenegar_api_key"
	SettingKavenegarSender   = "kavenegar_sender_number"
	SettingKavenegarInsecure = "kavenegar_insecure"
)

type KavenegarOption func(*kavenegarOptions)

type kavenegarOptions struct {
	timeout    time.Duration
	baseURL    string
	httpClient *http.Client
}

// WithKavenegarTimeout bounds every API call.
func WithKavenegarTimeout(d time.Duration) KavenegarOption {
	return func(o *kavenegarOptions) { o.timeout = d }
}

// WithKavenegarBaseURL points the client at another host, e.g. an httptest server.
func WithKavenegarBaseURL(url string) KavenegarOption {
	return func(o *kavenegarOptions) { o.baseURL = strings.TrimRight(url, "/") }
}

func WithKavenegarHTTPClient(c *http.Client) KavenegarOption {
	return func(o *kavenegarOptions) { o.httpClient = c }
}

// KavenegarDriver adapts KavenegarClient to Gateway.
type KavenegarDriver struct {
	client *KavenegarClient
	sender string
}

var _ Gateway = (*KavenegarDriver)(nil)

func NewKavenegarDriver(settings map[string]string, opts ...KavenegarOption) (*KavenegarDriver, error) {
	o := kavenegarOptions{timeout: DefaultKavenegarTimeout}
	for _, opt := range opts {
		opt(&o)
	}

	sender := strings.TrimSpace(settings[SettingKavenegarSender])
	if sender == "" {
		logger.Warn("Kavenegar sender number is missing in settings")
	}

	httpClient := o.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: o.timeout}
	}

	client, err := NewKavenegarClient(settings[SettingKavenegarAPIKey], isTruthy(settings[SettingKavenegarInsecure]), httpClient)
	if err != nil {
		return nil, err
	}
	client.baseURL = o.baseURL

	return &KavenegarDriver{client: client, sender: sender}, nil
}

func (d *KavenegarDriver) Name() string { return KavenegarDriverName }

func (d *KavenegarDriver) Send(ctx context.Context, to, message string, opts SendOptions) bool {
	entries, err := d.client.SendSMS(ctx, d.sender, to, message, opts)
	return d.result(ctx, "send", to, entries, err)
}

func (d *KavenegarDriver) SendByPattern(ctx context.Context, to, pattern string, data PatternData, opts SendOptions) bool {
	entries, err := d.client.VerifyLookup(ctx, to, pattern, data)
	return d.result(ctx, "lookup", to, entries, err)
}

func (d *KavenegarDriver) result(ctx context.Context, method, to string, entries []KavenegarEntry, err error) bool {
	if err != nil {
		logger.ErrorContext(ctx, "Kavenegar request failed",
			"provider", KavenegarDriverName,
			"method", method,
			"phone", to,
			"error", err,
		)
		metrics.SMSDispatch.WithLabelValues(KavenegarDriverName, "failed").Inc()
		return false
	}
	if len(entries) == 0 {
		logger.ErrorContext(ctx, "Kavenegar returned no entries",
			"provider", KavenegarDriverName,
			"method", method,
			"phone", to,
		)
		metrics.SMSDispatch.WithLabelValues(KavenegarDriverName, "failed").Inc()
		return false
	}
	logger.DebugContext(ctx, "Kavenegar accepted message", "method", method, "message_id", entries[0].MessageID)
	metrics.SMSDispatch.WithLabelValues(KavenegarDriverName, "sent").Inc()
	return true
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
