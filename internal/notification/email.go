package notification

import (
	"fmt"
	"net/smtp"

	"github.com/walletwise/walletwise/internal/config"
)

// EmailService sends transactional email over SMTP. Sends are synchronous;
// callers decide whether a failure is fatal for their operation.
type EmailService struct {
	config *config.MailConfig
}

func NewEmailService(config *config.MailConfig) *EmailService {
	return &EmailService{config: config}
}

func (s *EmailService) SendPasswordReset(to, name, resetURL string) error {
	subject := "Reset Your Password"
	body := fmt.Sprintf(`<html><body>
		<h2>Reset Your Password</h2>
		<p>Hi %s,</p>
		<p>A password reset has been requested for your account.</p>
		<p><a href="%s">Click here to reset your password</a></p>
		<p>Or copy this link to your browser: %s</p>
		<p>This link will expire in 1 hour.</p>
		<p>If you did not request this password reset, please ignore this email.</p>
	</body></html>`, name, resetURL, resetURL)
	return s.sendEmail(to, subject, body)
}

func (s *EmailService) SendAccountLocked(to, name, supportContact string) error {
	subject := "Your Account Has Been Locked"
	body := fmt.Sprintf(`<html><body>
		<h2>Account Locked</h2>
		<p>Hi %s,</p>
		<p>Your account has been locked after too many failed login attempts.</p>
		<p>If this was not you, please contact support at %s.</p>
	</body></html>`, name, supportContact)
	return s.sendEmail(to, subject, body)
}

func (s *EmailService) sendEmail(to, subject, body string) error {
	from := s.config.From
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		from, to, subject, body)

	auth := smtp.PlainAuth("", s.config.User, s.config.Password, s.config.Host)
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	return smtp.SendMail(addr, auth, s.config.From, []string{to}, []byte(msg))
}
