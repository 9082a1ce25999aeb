package domain

import (
	"errors"
	"fmt"
)

// Kind discriminates every failure the OTP flow can surface to a caller.
type Kind int

const (
	KindInvalidInput Kind = iota + 1
	KindDisabled
	KindRateLimited
	KindExpired
	KindTooManyAttempts
	KindIncorrect
	KindConfiguration
	KindRegistrationDisabled
	KindCreateFailed
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindDisabled:
		return "disabled"
	case KindRateLimited:
		return "rate_limited"
	case KindExpired:
		return "expired"
	case KindTooManyAttempts:
		return "too_many_attempts"
	case KindIncorrect:
		return "incorrect"
	case KindConfiguration:
		return "configuration"
	case KindRegistrationDisabled:
		return "registration_disabled"
	case KindCreateFailed:
		return "create_failed"
	}
	return "unknown"
}

// Configuration failure reasons.
const (
	ReasonUnsupportedDriver = "unsupported_driver"
	ReasonDriverInitFailed  = "driver_init_failed"
)

type Error struct {
	Kind         Kind
	Reason       string
	Message      string
	WaitSeconds  int
	AttemptsLeft int
	Err          error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = defaultMessage(e)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Kind, and on Reason when the target sets one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Reason == "" || t.Reason == e.Reason)
}

// UserMessage is the text shown to the storefront visitor.
func (e *Error) UserMessage() string {
	if e.Message != "" {
		return e.Message
	}
	return defaultMessage(e)
}

func defaultMessage(e *Error) string {
	switch e.Kind {
	case KindInvalidInput:
		return "Phone number is required."
	case KindDisabled:
		return "Login to the system is currently unavailable."
	case KindRateLimited:
		return fmt.Sprintf("Please wait %d seconds before trying again.", e.WaitSeconds)
	case KindExpired:
		return "OTP expired. Please request a new one."
	case KindTooManyAttempts:
		return "Too many attempts. Try again later."
	case KindIncorrect:
		return "Incorrect OTP. Try again."
	case KindConfiguration:
		return "SMS gateway is not configured correctly."
	case KindRegistrationDisabled:
		return "Registration is disabled."
	case KindCreateFailed:
		return "Could not create account."
	}
	return "Something went wrong. Please try again later."
}

// Sentinels for errors.Is.
var (
	ErrInvalidInput         = &Error{Kind: KindInvalidInput}
	ErrDisabled             = &Error{Kind: KindDisabled}
	ErrRateLimited          = &Error{Kind: KindRateLimited}
	ErrExpired              = &Error{Kind: KindExpired}
	ErrTooManyAttempts      = &Error{Kind: KindTooManyAttempts}
	ErrIncorrect            = &Error{Kind: KindIncorrect}
	ErrConfiguration        = &Error{Kind: KindConfiguration}
	ErrUnsupportedDriver    = &Error{Kind: KindConfiguration, Reason: ReasonUnsupportedDriver}
	ErrDriverInitFailed     = &Error{Kind: KindConfiguration, Reason: ReasonDriverInitFailed}
	ErrRegistrationDisabled = &Error{Kind: KindRegistrationDisabled}
	ErrCreateFailed         = &Error{Kind: KindCreateFailed}
)

func InvalidInput(message string) *Error {
	return &Error{Kind: KindInvalidInput, Message: message}
}

func RateLimited(waitSeconds int) *Error {
	return &Error{Kind: KindRateLimited, WaitSeconds: waitSeconds}
}

func Incorrect(attemptsLeft int) *Error {
	return &Error{Kind: KindIncorrect, AttemptsLeft: attemptsLeft}
}

func UnsupportedDriver(name string) *Error {
	return &Error{
		Kind:    KindConfiguration,
		Reason:  ReasonUnsupportedDriver,
		Message: fmt.Sprintf("SMS driver [%s] is not supported.", name),
	}
}

func DriverInitFailed(name string, err error) *Error {
	return &Error{
		Kind:    KindConfiguration,
		Reason:  ReasonDriverInitFailed,
		Message: fmt.Sprintf("failed to initialize SMS driver [%s]", name),
		Err:     err,
	}
}

func CreateFailed(err error) *Error {
	return &Error{Kind: KindCreateFailed, Err: err}
}

// AsError extracts a *Error from an error chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
