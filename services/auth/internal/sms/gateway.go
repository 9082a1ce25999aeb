package sms

import "context"

// Gateway is an SMS provider adapter. Both methods report delivery acceptance as a bool;
// provider, transport and decoding failures are logged by the adapter and never returned.
type Gateway interface {
	Name() string
	Send(ctx context.Context, to, message string, opts SendOptions) bool
	SendByPattern(ctx context.Context, to, pattern string, data PatternData, opts SendOptions) bool
}

// SendOptions carries optional provider extras.
type SendOptions struct {
	Date    int64  // unix time for delayed delivery
	Type    string // provider message type
	LocalID string // caller-side message id
}

// PatternData fills a provider template. Keys: token, token2, token3, token10, token20, type.
type PatternData map[string]string

// OTPPatternData fills the first template token with the code.
func OTPPatternData(code string) PatternData {
	return PatternData{"token": code}
}
