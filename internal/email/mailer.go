// AngelaMos | 2026
// mailer.go

package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/carterperez-dev/quizforge/internal/config"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	SubjectVerification  = "Verify Your Email"
	SubjectPasswordReset = "Reset Your Password"
)

// Dialer delivers a rendered message. *gomail.Dialer satisfies it.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type Config struct {
	SMTP            config.SMTPConfig
	AppName         string
	FrontendURL     string
	VerificationTTL time.Duration
	ResetTTL        time.Duration
}

type templateData struct {
	Username  string
	URL       string
	ExpiresIn string
	Year      int
	AppName   string
}

// Mailer renders transactional emails and sends them over SMTP. Without a
// dialer it only logs what would have been sent.
type Mailer struct {
	dialer    Dialer
	cfg       Config
	templates *template.Template
	logger    *slog.Logger
}

func NewMailer(cfg Config, logger *slog.Logger) (*Mailer, error) {
	var dialer Dialer
	if cfg.SMTP.Enabled() {
		dialer = gomail.NewDialer(
			cfg.SMTP.Host,
			cfg.SMTP.Port,
			cfg.SMTP.Username,
			cfg.SMTP.Password,
		)
	}
	return newMailer(cfg, dialer, logger)
}

func newMailer(cfg Config, dialer Dialer, logger *slog.Logger) (*Mailer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse email templates: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Mailer{
		dialer:    dialer,
		cfg:       cfg,
		templates: tmpl,
		logger:    logger,
	}, nil
}

func (m *Mailer) Enabled() bool {
	return m.dialer != nil
}

func (m *Mailer) SendVerification(
	ctx context.Context,
	to, username, token string,
) error {
	return m.send(ctx, to, SubjectVerification, "verification.html", templateData{
		Username:  username,
		URL:       m.link("/verify-email", token),
		ExpiresIn: humanizeTTL(m.cfg.VerificationTTL),
	})
}

func (m *Mailer) SendPasswordReset(
	ctx context.Context,
	to, username, token string,
) error {
	return m.send(ctx, to, SubjectPasswordReset, "password_reset.html", templateData{
		Username:  username,
		URL:       m.link("/reset-password", token),
		ExpiresIn: humanizeTTL(m.cfg.ResetTTL),
	})
}

func (m *Mailer) send(
	ctx context.Context,
	to, subject, name string,
	data templateData,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data.Year = time.Now().Year()
	data.AppName = m.cfg.AppName

	var body bytes.Buffer
	if err := m.templates.ExecuteTemplate(&body, name, data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}

	if m.dialer == nil {
		m.logger.Info("email disabled, skipping send",
			"to", to,
			"subject", subject,
		)
		return nil
	}

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.cfg.SMTP.FromEmail, m.cfg.SMTP.FromName)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body.String())

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send %q to %s: %w", subject, to, err)
	}

	m.logger.Info("email sent", "to", to, "subject", subject)
	return nil
}

func (m *Mailer) link(path, token string) string {
	base := strings.TrimRight(m.cfg.FrontendURL, "/")
	return base + path + "?token=" + url.QueryEscape(token)
}

func humanizeTTL(d time.Duration) string {
	switch {
	case d <= 0:
		return "a short time"
	case d%time.Hour == 0:
		return plural(int(d/time.Hour), "hour")
	default:
		return plural(int(d.Round(time.Minute)/time.Minute), "minute")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
