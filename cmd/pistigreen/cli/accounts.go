package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/pistigreen/pistigreen-backend/internal/account"
)

// Activator activates accounts by email and id.
type Activator interface {
	Activate(ctx context.Context, req account.ActivationRequest) (string, error)
}

// ActivateAccount runs the activation flow from the command line and prints
// the same message a browser would see.
func ActivateAccount(ctx context.Context, svc Activator, email, id string, w io.Writer) error {
	message, err := svc.Activate(ctx, account.ActivationRequest{Email: email, ID: id})
	if _, writeErr := fmt.Fprintln(w, message); writeErr != nil && err == nil {
		err = writeErr
	}
	return err
}
