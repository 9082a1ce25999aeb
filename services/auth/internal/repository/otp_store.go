package repository

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/diagnosis/verifywoo/services/auth/internal/domain"
)

const otpKeyPrefix = "verify_woo_otp_"

// OTPStore keeps at most one live OTP record per phone. Phones are normalized digit strings.
// Get returns (nil, nil) when the record is absent or its TTL has lapsed.
type OTPStore interface {
	Get(ctx context.Context, phone string) (*domain.OTPRecord, error)
	Put(ctx context.Context, phone string, record *domain.OTPRecord, ttl time.Duration) error
	Delete(ctx context.Context, phone string) error
}

// OTPKey derives the storage key for a phone. The raw number never appears in a key.
func OTPKey(phone string) string {
	hasher := sha256.New()
	hasher.Write([]byte(phone))
	return fmt.Sprintf("%s%x", otpKeyPrefix, hasher.Sum(nil))
}
