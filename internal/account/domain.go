package account

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// Account represents a registered user.
type Account struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// State describes where an account is in the activation flow.
type State string

const (
	StatePending State = "pending"
	StateActive  State = "active"
)

// State reports the activation state derived from IsActive.
func (a *Account) State() State {
	if a.IsActive {
		return StateActive
	}
	return StatePending
}

// Activate marks the account active and reports whether the flag changed.
func (a *Account) Activate() bool {
	if a.IsActive {
		return false
	}
	a.IsActive = true
	return true
}

// ActivationRequest carries the raw email and id from an activation link.
// Both values are opaque; only presence is checked.
type ActivationRequest struct {
	Email string
	ID    string
}

// Validate rejects requests with a missing email or id.
func (r ActivationRequest) Validate() error {
	if r.Email == "" || r.ID == "" {
		return ErrInvalidParameters
	}
	return nil
}

// SignupRequest is the JSON payload accepted by the signup endpoint.
type SignupRequest struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	Name      string `json:"name" validate:"required,max=255"`
	Password1 string `json:"password1" validate:"required,min=8,max=72"`
	Password2 string `json:"password2" validate:"required,eqfield=Password1"`
}

var domainFolder = cases.Fold()

// NormalizeEmail trims the address and case-folds the domain part,
// leaving the local part untouched.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at+1] + domainFolder.String(email[at+1:])
}
