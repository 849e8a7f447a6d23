package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"
	"net/url"
	"time"

	"github.com/redmonkez12/users-api/internal/config"
	"github.com/redmonkez12/users-api/internal/logging"
)

var passwordResetTemplate = template.Must(template.New("passwordReset").Parse(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #4F46E5; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
        .content { background-color: #f9f9f9; padding: 30px; border-radius: 0 0 5px 5px; }
        .button { display: inline-block; background-color: #4F46E5; color: white !important; padding: 12px 30px; text-decoration: none; border-radius: 5px; margin: 20px 0; }
        .footer { margin-top: 30px; font-size: 12px; color: #666; text-align: center; }
    </style>
</head>
<body>
    <div class="header">
        <h1>Password Reset Request</h1>
    </div>
    <div class="content">
        <h2>Hi {{.Name}}, reset your password</h2>
        <p>You requested to reset your password. Click the button below to choose a new one.</p>

        <a href="{{.ResetLink}}" class="button" style="color: white !important;">Reset Password</a>

        <p>Or copy and paste this link into your browser:</p>
        <p style="word-break: break-all; color: #4F46E5;">{{.ResetLink}}</p>

        <p style="margin-top: 30px;">If you didn't request a password reset, you can safely ignore this email. Your password will remain unchanged.</p>
    </div>
    <div class="footer">
        <p>This link will expire in {{.ExpiresIn}}.</p>
    </div>
</body>
</html>
`))

// sendFunc matches smtp.SendMail.
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type Service struct {
	smtpHost     string
	smtpPort     string
	smtpUser     string
	smtpPassword string
	fromEmail    string
	frontendURL  string
	logLinks     bool
	send         sendFunc
}

func NewService(cfg config.EmailConfig) *Service {
	return &Service{
		smtpHost:     cfg.SMTPHost,
		smtpPort:     cfg.SMTPPort,
		smtpUser:     cfg.SMTPUser,
		smtpPassword: cfg.SMTPPassword,
		fromEmail:    cfg.SMTPUser,
		frontendURL:  cfg.FrontendURL,
		logLinks:     cfg.LogResetLinks,
		send:         smtp.SendMail,
	}
}

// Configured reports whether an SMTP host is set.
func (s *Service) Configured() bool {
	return s.smtpHost != ""
}

// ResetLink builds the frontend link carrying a password reset token.
func (s *Service) ResetLink(token string) string {
	return fmt.Sprintf("%s/reset-password?token=%s", s.frontendURL, url.QueryEscape(token))
}

// SendPasswordResetEmail sends a password reset link to the user.
// Without SMTP settings nothing is sent; the link is logged only when
// link logging is enabled, since the token in it is a live credential.
// This method is designed to be called in a goroutine
func (s *Service) SendPasswordResetEmail(ctx context.Context, toEmail, name, token string, expiresIn time.Duration) error {
	logger := logging.GetLoggerFromContext(ctx)

	resetLink := s.ResetLink(token)

	if !s.Configured() {
		if s.logLinks {
			logger.Debug("smtp not configured, password reset link not mailed", "email", toEmail, "link", resetLink)
		} else {
			logger.Warn("smtp not configured, password reset email dropped", "email", toEmail)
		}
		return nil
	}

	body, err := renderPasswordReset(name, resetLink, expiresIn)
	if err != nil {
		logger.Error("failed to render password reset email template", "error", err)
		return fmt.Errorf("render template: %w", err)
	}

	if err := s.sendEmail(toEmail, "Reset your password", body); err != nil {
		logger.Error("failed to send password reset email", "email", toEmail, "error", err)
		return fmt.Errorf("send email: %w", err)
	}

	logger.Info("password reset email sent", "email", toEmail)
	return nil
}

func (s *Service) sendEmail(to, subject, body string) error {
	auth := smtp.PlainAuth("", s.smtpUser, s.smtpPassword, s.smtpHost)

	msg := []byte(fmt.Sprintf(
		"From: %s\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=UTF-8\r\n"+
			"\r\n"+
			"%s\r\n",
		s.fromEmail, to, subject, body,
	))

	addr := fmt.Sprintf("%s:%s", s.smtpHost, s.smtpPort)
	return s.send(addr, auth, s.fromEmail, []string{to}, msg)
}

func renderPasswordReset(name, resetLink string, expiresIn time.Duration) (string, error) {
	var buf bytes.Buffer
	data := struct {
		Name      string
		ResetLink string
		ExpiresIn string
	}{
		Name:      name,
		ResetLink: resetLink,
		ExpiresIn: humanizeMinutes(expiresIn),
	}

	if err := passwordResetTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}

	return buf.String(), nil
}

func humanizeMinutes(d time.Duration) string {
	minutes := int(d.Round(time.Minute) / time.Minute)
	if minutes == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", minutes)
}
