// Package mail builds and delivers transactional email.
package mail

import (
	"context"
	"errors"
	"fmt"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// Message is a transactional email with a text body and an optional HTML alternative.
type Message struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
	HTMLBody string `json:"html_body,omitempty"`
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Validate checks the fields every backend needs.
func (m Message) Validate() error {
	if m.To == "" {
		return errors.New("mail: recipient missing")
	}
	if m.Subject == "" {
		return errors.New("mail: subject missing")
	}
	if m.Body == "" {
		return errors.New("mail: body missing")
	}
	return nil
}

// newMsg renders msg with a text body and, when present, an HTML alternative.
func newMsg(from string, msg Message, now time.Time) (*gomail.Msg, error) {
	m := gomail.NewMsg()
	if err := m.From(from); err != nil {
		return nil, fmt.Errorf("mail: sender %q: %w", from, err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("mail: recipient %q: %w", msg.To, err)
	}
	m.Subject(msg.Subject)
	m.SetDateWithValue(now)
	m.SetBodyString(gomail.TypeTextPlain, msg.Body)
	if msg.HTMLBody != "" {
		m.AddAlternativeString(gomail.TypeTextHTML, msg.HTMLBody)
	}
	return m, nil
}
