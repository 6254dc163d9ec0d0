// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package delivery

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wneessen/go-mail"

	"github.com/pdiddy/kindle-fetcher/pkg/types"
)

const (
	emailSubject = "Book Attached"
	emailBody    = "Sent by kindle-fetcher.\n"
	smtpsPort    = 465
)

// EmailSink sends files as attachments to a device email address.
type EmailSink struct {
	cfg  types.DeliveryConfig
	send func(ctx context.Context, msg *mail.Msg) error
}

// NewEmailSink validates cfg and returns a sink that sends over SMTP.
func NewEmailSink(cfg types.DeliveryConfig) (*EmailSink, error) {
	var missing []error
	if cfg.SMTPHost == "" {
		missing = append(missing, errors.New("delivery.smtp_host is not set"))
	}
	if cfg.From == "" {
		missing = append(missing, errors.New("delivery.from is not set"))
	}
	if cfg.To == "" {
		missing = append(missing, errors.New("delivery.to is not set"))
	}
	if err := errors.Join(missing...); err != nil {
		return nil, fmt.Errorf("email delivery: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = types.DefaultTimeout
	}

	s := &EmailSink{cfg: cfg}
	s.send = s.dialAndSend
	return s, nil
}

// Message builds the email carrying path as an attachment.
func (s *EmailSink) Message(path string) (*mail.Msg, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("attachment: %w", err)
	}

	msg := mail.NewMsg()
	if err := msg.From(s.cfg.From); err != nil {
		return nil, fmt.Errorf("setting sender: %w", err)
	}
	if err := msg.To(s.cfg.To); err != nil {
		return nil, fmt.Errorf("setting recipient: %w", err)
	}
	msg.Subject(emailSubject)
	msg.SetBodyString(mail.TypeTextPlain, emailBody)
	msg.AttachFile(path, mail.WithFileName(filepath.Base(path)))
	return msg, nil
}

// Deliver emails path to the configured address.
func (s *EmailSink) Deliver(ctx context.Context, path string) error {
	msg, err := s.Message(path)
	if err != nil {
		return err
	}
	if err := s.send(ctx, msg); err != nil {
		return fmt.Errorf("sending %s to %s: %w", filepath.Base(path), s.cfg.To, err)
	}
	return nil
}

func (s *EmailSink) dialAndSend(ctx context.Context, msg *mail.Msg) error {
	port := s.cfg.SMTPPort
	if port == 0 {
		port = 587
	}
	opts := []mail.Option{
		mail.WithPort(port),
		mail.WithTimeout(s.cfg.Timeout),
	}
	if port == smtpsPort {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	}
	if s.cfg.SMTPUsername != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.SMTPUsername),
			mail.WithPassword(s.cfg.SMTPPassword),
		)
	}

	client, err := mail.NewClient(s.cfg.SMTPHost, opts...)
	if err != nil {
		return fmt.Errorf("creating SMTP client: %w", err)
	}
	return client.DialAndSendWithContext(ctx, msg)
}
