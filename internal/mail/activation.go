package mail

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/pistigreen/pistigreen-backend/internal/account"
	"github.com/pistigreen/pistigreen-backend/internal/view"
)

// ActivationPath is the route served by the activation handler.
const ActivationPath = "/account/activateemail/"

const activationSubject = "Activa tu cuenta"

// Enqueuer hands messages to the background mail queue.
type Enqueuer interface {
	EnqueueEmail(ctx context.Context, msg Message) error
}

// ActivationNotifier renders and queues the activation email for new accounts.
type ActivationNotifier struct {
	websiteURL string
	templates  *view.Engine
	queue      Enqueuer
}

// NewActivationNotifier constructs an ActivationNotifier.
func NewActivationNotifier(websiteURL string, templates *view.Engine, queue Enqueuer) *ActivationNotifier {
	return &ActivationNotifier{websiteURL: websiteURL, templates: templates, queue: queue}
}

// ActivationLink returns the link that activates the given account.
func ActivationLink(websiteURL, email string, id int64) string {
	q := url.Values{}
	q.Set("email", email)
	q.Set("id", strconv.FormatInt(id, 10))
	return strings.TrimRight(websiteURL, "/") + ActivationPath + "?" + q.Encode()
}

// SendActivation implements account.Notifier.
func (n *ActivationNotifier) SendActivation(ctx context.Context, acc *account.Account) error {
	data := view.ActivationData{
		Name:  acc.Name,
		Email: acc.Email,
		Link:  ActivationLink(n.websiteURL, acc.Email, acc.ID),
	}
	text, err := n.templates.RenderText(view.ActivationText, data)
	if err != nil {
		return fmt.Errorf("mail: render activation text: %w", err)
	}
	html, err := n.templates.RenderHTML(view.ActivationHTML, data)
	if err != nil {
		return fmt.Errorf("mail: render activation html: %w", err)
	}
	return n.queue.EnqueueEmail(ctx, Message{
		To:       acc.Email,
		Subject:  activationSubject,
		Body:     text,
		HTMLBody: html,
	})
}

var _ account.Notifier = (*ActivationNotifier)(nil)
