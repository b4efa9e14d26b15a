// Package mail builds and delivers the report email.
package mail

import (
	"context"
	"fmt"
	"io"

	gomail "github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/storagereport/internal/logging"
	"github.com/mesh-intelligence/storagereport/pkg/types"
)

type (
	// Message is a multipart/alternative email with a plain-text and an
	// HTML body.
	Message struct {
		From    string
		To      []string
		CC      []string
		ReplyTo string
		Subject string
		HTML    string
		Text    string
	}

	// Sender delivers a message.
	Sender interface {
		Send(ctx context.Context, msg Message) error
	}

	// SMTPSender relays messages through an SMTP server. Envelope
	// recipients are To and CC.
	SMTPSender struct {
		host     string
		port     int
		startTLS bool
		username string
		password string
		logger   *zap.Logger
	}

	// WriterSender writes the rendered message instead of sending it.
	WriterSender struct {
		W io.Writer
	}
)

var (
	_ Sender = (*SMTPSender)(nil)
	_ Sender = (*WriterSender)(nil)
)

// NewSMTPSender returns a sender for the configured SMTP relay.
func NewSMTPSender(cfg types.MailConfig, logger *zap.Logger) *SMTPSender {
	return &SMTPSender{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		startTLS: cfg.StartTLS,
		username: cfg.Username,
		password: cfg.Password,
		logger:   logging.WithPackage(logger),
	}
}

// Envelope fills the addressing fields of a message from the mail config.
func Envelope(cfg types.MailConfig, subject, htmlBody, textBody string) Message {
	return Message{
		From:    cfg.From,
		To:      cfg.To,
		CC:      cfg.CC,
		ReplyTo: cfg.ReplyTo,
		Subject: subject,
		HTML:    htmlBody,
		Text:    textBody,
	}
}

// Build converts the message to a go-mail message. The plain-text part
// comes first so clients that can render HTML prefer it.
func (m Message) Build() (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if err := msg.From(m.From); err != nil {
		return nil, fmt.Errorf("set from: %w", err)
	}
	if err := msg.To(m.To...); err != nil {
		return nil, fmt.Errorf("set to: %w", err)
	}
	if len(m.CC) > 0 {
		if err := msg.Cc(m.CC...); err != nil {
			return nil, fmt.Errorf("set cc: %w", err)
		}
	}
	if m.ReplyTo != "" {
		if err := msg.ReplyTo(m.ReplyTo); err != nil {
			return nil, fmt.Errorf("set reply-to: %w", err)
		}
	}
	msg.Subject(m.Subject)
	msg.SetBodyString(gomail.TypeTextPlain, m.Text)
	msg.AddAlternativeString(gomail.TypeTextHTML, m.HTML)
	return msg, nil
}

// Send delivers m to its To and CC recipients.
func (s *SMTPSender) Send(ctx context.Context, m Message) error {
	msg, err := m.Build()
	if err != nil {
		return err
	}

	opts := []gomail.Option{gomail.WithPort(s.port)}
	if s.startTLS {
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSMandatory))
	} else {
		opts = append(opts, gomail.WithTLSPolicy(gomail.NoTLS))
	}
	if s.username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.username),
			gomail.WithPassword(s.password),
		)
	}

	client, err := gomail.NewClient(s.host, opts...)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail via %s:%d: %w", s.host, s.port, err)
	}

	s.logger.Info(
		"report sent",
		zap.String("subject", m.Subject),
		zap.Strings("to", m.To),
		zap.Strings("cc", m.CC),
	)
	return nil
}

// Send writes m in RFC 5322 form instead of delivering it.
func (s *WriterSender) Send(_ context.Context, m Message) error {
	msg, err := m.Build()
	if err != nil {
		return err
	}
	if _, err := msg.WriteTo(s.W); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}
