package mail

import (
	"fmt"

	"securesave/internal/config"

	"github.com/sirupsen/logrus" // Logging library
	"gopkg.in/gomail.v2"         // SMTP client
)

// Mailer delivers transactional mail over SMTP. When disabled it logs the
// reset link instead, so local setups work without a mail server.
type Mailer struct {
	enabled  bool
	host     string
	port     int
	username string
	password string
	from     string
}

// NewMailer builds a Mailer from the application configuration
func NewMailer(cfg *config.Config) *Mailer {
	return &Mailer{
		enabled:  cfg.SMTPEnabled,
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.SMTPUser,
		password: cfg.SMTPPass,
		from:     cfg.SMTPFrom,
	}
}

// SendPasswordReset delivers the reset link for the given account
func (m *Mailer) SendPasswordReset(toEmail, name, resetLink string) error {
	if !m.enabled {
		// Out-of-band delivery for development: surface the link in the server log
		logrus.WithFields(logrus.Fields{
			"email": toEmail,
			"link":  resetLink,
		}).Info("Password reset link (mailer disabled)")
		return nil
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", toEmail)
	msg.SetHeader("Subject", "SecureSave password reset")
	msg.SetBody("text/html", resetBody(name, resetLink))
	d := gomail.NewDialer(m.host, m.port, m.username, m.password)
	return d.DialAndSend(msg)
}

// resetBody renders the HTML body of the reset mail
func resetBody(name, resetLink string) string {
	return fmt.Sprintf(`<html><body>
<p>Hi %s,</p>
<p>We received a request to reset your SecureSave password. Click the link below to choose a new one:</p>
<p><a href="%s">Reset your password</a></p>
<p>The link is valid for 1 hour. If you did not request a reset, you can ignore this email.</p>
</body></html>`, name, resetLink)
}
