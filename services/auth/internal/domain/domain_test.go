package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOTPRecordCooldownWait(t *testing.T) {
	issued := time.Unix(1_700_000_000, 0)
	rec := NewOTPRecord(1234, issued)

	assert.Equal(t, 60, rec.CooldownWait(issued, DefaultCooldown))
	assert.Equal(t, 42, rec.CooldownWait(issued.Add(18*time.Second), DefaultCooldown))
	assert.Equal(t, 0, rec.CooldownWait(issued.Add(60*time.Second), DefaultCooldown))
	assert.Equal(t, 0, rec.CooldownWait(issued.Add(5*time.Minute), DefaultCooldown))
}

func TestOTPRecordRemainingTTL(t *testing.T) {
	issued := time.Unix(1_700_000_000, 0)
	rec := NewOTPRecord(1234, issued)

	assert.Equal(t, 40*time.Second, rec.RemainingTTL(issued.Add(20*time.Second), DefaultExpiration))
	assert.True(t, rec.RemainingTTL(issued.Add(61*time.Second), DefaultExpiration) < 0)
}

func TestErrorMatching(t *testing.T) {
	err := fmt.Errorf("request otp: %w", RateLimited(42))

	assert.True(t, errors.Is(err, ErrRateLimited))
	assert.False(t, errors.Is(err, ErrExpired))

	e, ok := AsError(err)
	assert.True(t, ok)
	assert.Equal(t, 42, e.WaitSeconds)
	assert.Equal(t, "Please wait 42 seconds before trying again.", e.UserMessage())
}

func TestConfigurationReasons(t *testing.T) {
	err := UnsupportedDriver("twilio")

	assert.True(t, errors.Is(err, ErrConfiguration))
	assert.True(t, errors.Is(err, ErrUnsupportedDriver))
	assert.False(t, errors.Is(err, ErrDriverInitFailed))
	assert.Equal(t, "SMS driver [twilio] is not supported.", err.Error())

	cause := errors.New("api key is empty")
	initErr := DriverInitFailed("kavenegar", cause)
	assert.True(t, errors.Is(initErr, ErrDriverInitFailed))
	assert.True(t, errors.Is(initErr, cause))
}

func TestRequestValidation(t *testing.T) {
	req := &OTPRequest{Phone: "   "}
	req.Normalize()
	assert.True(t, errors.Is(req.Validate(), ErrInvalidInput))

	v := &OTPVerify{Phone: " 0912 ", Code: ""}
	v.Normalize()
	err := v.Validate()
	e, _ := AsError(err)
	assert.Equal(t, "Phone or OTP is missing.", e.UserMessage())
}
