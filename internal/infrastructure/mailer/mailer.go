package mailer

import (
	"context"
	"fmt"

	"bucheron/internal/config"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

type Message struct {
	To      string
	ReplyTo string
	Subject string
	HTML    string
}

// Mailer sends HTML mail over SMTP. Without an SMTP host it only logs what it
// would have sent.
type Mailer struct {
	dialer *gomail.Dialer
	from   string
	logger *zap.Logger
}

func New(cfg config.SMTPConfig, logger *zap.Logger) *Mailer {
	m := &Mailer{from: cfg.From, logger: logger}
	if cfg.Host == "" {
		logger.Warn("smtp host not set, email delivery disabled")
		return m
	}
	m.dialer = gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	return m
}

func (m *Mailer) Enabled() bool {
	return m.dialer != nil
}

func (m *Mailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.dialer == nil {
		m.logger.Info("email delivery disabled, message dropped",
			zap.String("to", msg.To),
			zap.String("subject", msg.Subject),
		)
		return nil
	}

	gm := gomail.NewMessage()
	gm.SetHeader("From", m.from)
	gm.SetHeader("To", msg.To)
	if msg.ReplyTo != "" {
		gm.SetHeader("Reply-To", msg.ReplyTo)
	}
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/html", msg.HTML)

	if err := m.dialer.DialAndSend(gm); err != nil {
		return fmt.Errorf("sending email to %s: %w", msg.To, err)
	}

	m.logger.Info("email sent", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}
