package mailer

import (
	"bytes"
	"fmt"
	"text/template"
	"time"

	"github.com/aidrelay/aidrelay/config"
	"github.com/aidrelay/aidrelay/services/logging"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

var confirmationBody = template.Must(template.New("confirmation").Parse(
	`Hello,

Thank you for registering with {{.AppName}}.

Please confirm your email address by opening the link below:

{{.AppURL}}/register/confirm?token={{.Token}}

If you did not register, you can ignore this message.
`))

var passwordResetBody = template.Must(template.New("password_reset").Parse(
	`Hello,

A password reset was requested for your {{.AppName}} account.

Use the link below to choose a new password:

{{.AppURL}}/password/new?token={{.Token}}

If you did not request a reset, you can ignore this message.
`))

// Service delivers verification tokens over SMTP. It is a best-effort
// collaborator: callers dispatch asynchronously and never fail a
// request on delivery errors.
type Service struct {
	config *config.Config
	client *mail.Client
	logger *logging.Service
}

func NewService(cfg *config.Config, logger *logging.Service) (*Service, error) {
	if cfg.Mail.FromAddress == "" {
		return nil, fmt.Errorf("AIDRELAY_MAIL_FROM_ADDRESS is required")
	}

	clientOpts := []mail.Option{
		mail.WithPort(cfg.Mail.Port),
	}

	switch cfg.Mail.Encryption {
	case "tls", "starttls":
		clientOpts = append(clientOpts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	case "ssl":
		clientOpts = append(clientOpts, mail.WithSSL())
	case "none":
		clientOpts = append(clientOpts, mail.WithTLSPortPolicy(mail.NoTLS))
	default:
		clientOpts = append(clientOpts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	}

	if cfg.Mail.Username != "" {
		clientOpts = append(clientOpts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Mail.Username))
	}
	if cfg.Mail.Password != "" {
		clientOpts = append(clientOpts, mail.WithPassword(cfg.Mail.Password))
	}

	client, err := mail.NewClient(cfg.Mail.Host, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}

	logger.Info("mail service initialized",
		zap.String("host", cfg.Mail.Host),
		zap.Int("port", cfg.Mail.Port),
		zap.String("encryption", cfg.Mail.Encryption))

	return &Service{
		config: cfg,
		client: client,
		logger: logger,
	}, nil
}

func (s *Service) SendConfirmationToken(toEmail, token string) error {
	return s.sendToken(toEmail, token, "Please confirm your email address", confirmationBody)
}

func (s *Service) SendPasswordResetToken(toEmail, token string) error {
	return s.sendToken(toEmail, token, "Password reset request", passwordResetBody)
}

func (s *Service) sendToken(toEmail, token, subject string, body *template.Template) error {
	var buf bytes.Buffer
	err := body.Execute(&buf, map[string]string{
		"AppName": s.config.App.Name,
		"AppURL":  s.config.App.URL,
		"Token":   token,
	})
	if err != nil {
		return fmt.Errorf("failed to render mail body: %w", err)
	}

	message := mail.NewMsg()

	fromAddr := s.config.Mail.FromAddress
	if s.config.Mail.FromName != "" {
		fromAddr = fmt.Sprintf("%s <%s>", s.config.Mail.FromName, s.config.Mail.FromAddress)
	}
	if err := message.From(fromAddr); err != nil {
		return fmt.Errorf("failed to set FROM address: %w", err)
	}
	if err := message.To(toEmail); err != nil {
		return fmt.Errorf("failed to set TO address: %w", err)
	}

	message.Subject(subject)
	message.SetBodyString(mail.TypeTextPlain, buf.String())

	start := time.Now()
	if err := s.client.DialAndSend(message); err != nil {
		s.logger.Error("failed to send email",
			zap.Error(err),
			zap.Duration("attempt_duration", time.Since(start)))
		return err
	}

	s.logger.Info("email sent",
		zap.String("subject", subject),
		zap.Duration("send_duration", time.Since(start)))
	return nil
}
