package mailer

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

// Mailer sends account emails over SMTP (STARTTLS on port 587).
type Mailer struct {
	dialer *gomail.Dialer
	sender string
}

func New(host string, port int, username, password, sender string) *Mailer {
	return &Mailer{
		dialer: gomail.NewDialer(host, port, username, password),
		sender: sender,
	}
}

// SendPasswordReset emails a reset link to the given address.
func (m *Mailer) SendPasswordReset(to, link string) error {
	body := fmt.Sprintf(`To reset your password, visit the following link:
%s

If you did not make this request then simply ignore this email and no changes will be made.
`, link)

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.sender)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Password Reset Request")
	msg.SetBody("text/plain", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send reset email: %w", err)
	}
	return nil
}
