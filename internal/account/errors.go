package account

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pistigreen/pistigreen-backend/internal/shared"
)

// User facing messages returned by the activation endpoint.
const (
	MessageActivated         = "El usuario ahora está activado. Puedes seguir adelante e iniciar sesión."
	MessageInvalidParameters = "¡Los parámetros no son válidos!"
	MessageAccountNotFound   = "¡No existe ninguna cuenta con esos datos!"
	MessageInternalError     = "Error interno del servidor."
)

var (
	// ErrInvalidParameters indicates a missing email or id on activation.
	ErrInvalidParameters = fmt.Errorf("account: invalid activation parameters: %w", shared.ErrValidation)
	// ErrAccountNotFound indicates no account matched the lookup.
	ErrAccountNotFound = fmt.Errorf("account: %w", shared.ErrNotFound)
	// ErrEmailTaken indicates the email already belongs to an account.
	ErrEmailTaken = fmt.Errorf("account: email already registered: %w", shared.ErrDuplicate)
)

// ValidationError lists per-field problems with a signup payload.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "account: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return shared.ErrValidation
}
