package users

import "time"

// TokenRequest is the local login payload.
type TokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse carries a freshly minted session token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresAt   int64  `json:"expires_at,omitempty"`
}

// CreateUserRequest is the admin user-creation payload.
type CreateUserRequest struct {
	Username       string `json:"username"`
	Email          string `json:"email,omitempty"`
	Password       string `json:"password,omitempty"`
	Superuser      bool   `json:"superuser,omitempty"`
	ServiceAccount bool   `json:"service_account,omitempty"`
}

// UpdateUserRequest patches mutable account fields. Pointers distinguish
// "not sent" from zero values.
type UpdateUserRequest struct {
	Email     *string `json:"email,omitempty"`
	Password  *string `json:"password,omitempty"`
	Active    *bool   `json:"active,omitempty"`
	Superuser *bool   `json:"superuser,omitempty"`
}

// UserResponse is the public view of an account. Never carries hashes.
type UserResponse struct {
	ID             string     `json:"id"`
	Username       string     `json:"username"`
	Email          string     `json:"email,omitempty"`
	Active         bool       `json:"active"`
	Superuser      bool       `json:"superuser"`
	ServiceAccount bool       `json:"service_account"`
	SSOManaged     bool       `json:"sso_managed"`
	CreatedAt      time.Time  `json:"created_at"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty"`
}

// GeneratedTokenResponse returns an opaque token exactly once; only its
// hash is stored.
type GeneratedTokenResponse struct {
	Token string `json:"token"`
}
