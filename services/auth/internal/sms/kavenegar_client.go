package sms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-querystring/query"
)

const (
	kavenegarAPIPath   = "%s://api.kavenegar.com/v1/%s/%s/%s.json/"
	kavenegarUserAgent = "verifywoo-kavenegar-client/1.0"

	DefaultKavenegarTimeout = 45 * time.Second
)

var ErrKavenegarEmptyAPIKey = errors.New("kavenegar api key is empty")

// KavenegarAPIError is a non-200 return.status reported by Kavenegar.
type KavenegarAPIError struct {
	Status  int
	Message string
}

func (e *KavenegarAPIError) Error() string {
	return fmt.Sprintf("kavenegar api error: %s (status: %d)", e.Message, e.Status)
}

// KavenegarHTTPError covers non-200 HTTP statuses and bodies that are not a Kavenegar envelope.
type KavenegarHTTPError struct {
	StatusCode int
	Body       string
}

func (e *KavenegarHTTPError) Error() string {
	return fmt.Sprintf("kavenegar api: http status %d or invalid json response: %s", e.StatusCode, e.Body)
}

type kavenegarEnvelope struct {
	Return *struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"return"`
	Entries json.RawMessage `json:"entries"`
}

// KavenegarEntry is one accepted message.
type KavenegarEntry struct {
	MessageID  int64  `json:"messageid"`
	Message    string `json:"message"`
	Status     int    `json:"status"`
	StatusText string `json:"statustext"`
	Sender     string `json:"sender"`
	Receptor   string `json:"receptor"`
	Date       int64  `json:"date"`
	Cost       int    `json:"cost"`
}

type kavenegarSendParams struct {
	Receptor string `url:"receptor,omitempty"`
	Sender   string `url:"sender,omitempty"`
	Message  string `url:"message,omitempty"`
	Date     int64  `url:"date,omitempty"`
	Type     string `url:"type,omitempty"`
	LocalID  string `url:"localid,omitempty"`
}

type kavenegarLookupParams struct {
	Receptor string `url:"receptor,omitempty"`
	Token    string `url:"token,omitempty"`
	Token2   string `url:"token2,omitempty"`
	Token3   string `url:"token3,omitempty"`
	Template string `url:"template,omitempty"`
	Type     string `url:"type,omitempty"`
	Token10  string `url:"token10,omitempty"`
	Token20  string `url:"token20,omitempty"`
}

// KavenegarClient talks to the Kavenegar REST API.
type KavenegarClient struct {
	apiKey   string
	insecure bool
	baseURL  string // replaces scheme and host when set
	client   *http.Client
}

func NewKavenegarClient(apiKey string, insecure bool, httpClient *http.Client) (*KavenegarClient, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrKavenegarEmptyAPIKey
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultKavenegarTimeout}
	}
	return &KavenegarClient{apiKey: apiKey, insecure: insecure, client: httpClient}, nil
}

func (c *KavenegarClient) path(method, base string) string {
	protocol := "https"
	if c.insecure {
		protocol = "http"
	}
	url := fmt.Sprintf(kavenegarAPIPath, protocol, c.apiKey, base, method)
	if c.baseURL != "" {
		url = c.baseURL + strings.TrimPrefix(url, protocol+"://api.kavenegar.com")
	}
	return url
}

// SendSMS posts to sms/send. Receptors and local ids may be comma separated.
func (c *KavenegarClient) SendSMS(ctx context.Context, sender, receptor, message string, opts SendOptions) ([]KavenegarEntry, error) {
	params := kavenegarSendParams{
		Receptor: receptor,
		Sender:   sender,
		Message:  message,
		Date:     opts.Date,
		Type:     opts.Type,
		LocalID:  opts.LocalID,
	}
	return c.execute(ctx, c.path("send", "sms"), params)
}

// VerifyLookup posts to verify/lookup with a pre-registered template.
func (c *KavenegarClient) VerifyLookup(ctx context.Context, receptor, template string, data PatternData) ([]KavenegarEntry, error) {
	kind := data["type"]
	if kind == "" {
		kind = "sms"
	}
	params := kavenegarLookupParams{
		Receptor: receptor,
		Token:    data["token"],
		Token2:   data["token2"],
		Token3:   data["token3"],
		Template: template,
		Type:     kind,
		Token10:  data["token10"],
		Token20:  data["token20"],
	}
	return c.execute(ctx, c.path("lookup", "verify"), params)
}

func (c *KavenegarClient) execute(ctx context.Context, url string, params interface{}) ([]KavenegarEntry, error) {
	form, err := query.Values(params)
	if err != nil {
		return nil, fmt.Errorf("encode kavenegar params: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=utf-8")
	req.Header.Set("User-Agent", kavenegarUserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kavenegar http error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read kavenegar response: %w", err)
	}

	var envelope kavenegarEnvelope
	if resp.StatusCode != http.StatusOK || json.Unmarshal(body, &envelope) != nil || envelope.Return == nil {
		return nil, &KavenegarHTTPError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if envelope.Return.Status != http.StatusOK {
		msg := envelope.Return.Message
		if msg == "" {
			msg = "unknown kavenegar api error"
		}
		return nil, &KavenegarAPIError{Status: envelope.Return.Status, Message: msg}
	}

	var entries []KavenegarEntry
	if len(envelope.Entries) > 0 && string(envelope.Entries) != "null" {
		if err := json.Unmarshal(envelope.Entries, &entries); err != nil {
			return nil, &KavenegarHTTPError{StatusCode: resp.StatusCode, Body: string(body)}
		}
	}
	return entries, nil
}
