package domain

import "time"

const (
	RoleCustomer = "customer"
	RoleAdmin    = "administrator"

	// PhoneMetaKey is the account meta entry holding the verified phone.
	PhoneMetaKey = "verify_woo_phone_number"
)

type Account struct {
	ID           int64     `json:"id"`
	Login        string    `json:"login"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewAccount is the data handed to the account system when auto-registering.
// Extension listeners may fill Email and DisplayName.
type NewAccount struct {
	Login       string `json:"login"`
	Password    string `json:"-"`
	Role        string `json:"role"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// Session is an established login for an account.
type Session struct {
	Token      string    `json:"-"`
	ExpiresAt  time.Time `json:"expires_at"`
	Account    *Account  `json:"account"`
	NewAccount bool      `json:"new_account"`
}
