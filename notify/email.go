package notify

import (
	"context"
	"fmt"

	"github.com/jrsteele09/go-otp-auth/verification"
	"gopkg.in/gomail.v2"
)

// Sender is satisfied by *gomail.Dialer.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type EmailChannel struct {
	sender  Sender
	from    string
	subject string
}

var _ Channel = (*EmailChannel)(nil)

func NewEmailChannel(sender Sender, from string) *EmailChannel {
	return &EmailChannel{
		sender:  sender,
		from:    from,
		subject: "Your verification code",
	}
}

// NewSMTPEmailChannel dials the SMTP server once per message.
func NewSMTPEmailChannel(host string, port int, account, password, from string) *EmailChannel {
	return NewEmailChannel(gomail.NewDialer(host, port, account, password), from)
}

func (c *EmailChannel) Deliver(ctx context.Context, identifier string, _ verification.Kind, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", c.from)
	m.SetHeader("To", identifier)
	m.SetHeader("Subject", c.subject)
	m.SetBody("text/plain", messageText(code))
	m.AddAlternative("text/html", fmt.Sprintf(`
		<h3>Verification code</h3>
		<p>Your verification code is <strong>%s</strong>.</p>
		<p>It expires in a few minutes. If you did not request it, you can ignore this email.</p>
	`, code))

	if err := c.sender.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send verification email: %w", err)
	}
	return nil
}
