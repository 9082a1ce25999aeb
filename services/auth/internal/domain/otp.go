package domain

import (
	"strings"
	"time"
)

const (
	DefaultCooldown    = 60 * time.Second
	DefaultExpiration  = 60 * time.Second
	DefaultMaxAttempts = 3

	// Codes are drawn from [CodeMin, CodeMax).
	CodeMin = 1000
	CodeMax = 9999
)

// OTPRecord is the per-phone state kept in the OTP store.
type OTPRecord struct {
	Code     int   `json:"code"`
	Attempts int   `json:"attempts"`
	IssuedAt int64 `json:"issued_at"` // unix seconds
}

func NewOTPRecord(code int, now time.Time) *OTPRecord {
	return &OTPRecord{Code: code, IssuedAt: now.Unix()}
}

// ElapsedSeconds is the whole number of seconds since issuance.
func (r *OTPRecord) ElapsedSeconds(now time.Time) int {
	return int(now.Unix() - r.IssuedAt)
}

// CooldownWait returns the seconds left before a new code may be issued, or 0.
func (r *OTPRecord) CooldownWait(now time.Time, cooldown time.Duration) int {
	wait := int(cooldown/time.Second) - r.ElapsedSeconds(now)
	if wait < 0 {
		return 0
	}
	return wait
}

// RemainingTTL is how long the record has left under the given expiration.
func (r *OTPRecord) RemainingTTL(now time.Time, expiration time.Duration) time.Duration {
	return time.Unix(r.IssuedAt, 0).Add(expiration).Sub(now)
}

type OTPRequest struct {
	Phone string `json:"user_phone"`
}

type OTPVerify struct {
	Phone string `json:"user_phone"`
	Code  string `json:"otp"`
}

func (r *OTPRequest) Normalize() {
	r.Phone = strings.TrimSpace(r.Phone)
}

func (r *OTPRequest) Validate() error {
	if r.Phone == "" {
		return InvalidInput("Phone number is required.")
	}
	return nil
}

func (r *OTPVerify) Normalize() {
	r.Phone = strings.TrimSpace(r.Phone)
	r.Code = strings.TrimSpace(r.Code)
}

func (r *OTPVerify) Validate() error {
	if r.Phone == "" || r.Code == "" {
		return InvalidInput("Phone or OTP is missing.")
	}
	return nil
}
