package mail

import (
	"bytes"
	"context"
	"errors"

	gomail "github.com/wneessen/go-mail"

	"github.com/fieldserve/ticket-tracker/internal/config"
)

// Attachment is a binary part of an outgoing message.
type Attachment struct {
	FileName    string
	ContentType string
	Data        []byte
}

// Message is an outgoing email.
type Message struct {
	To          string
	Subject     string
	Body        string
	IsHTML      bool
	Attachments []Attachment
}

// Result reports delivery of a message.
type Result struct {
	Success   bool
	MessageID string
}

// Mailer delivers messages to customers.
type Mailer interface {
	Send(ctx context.Context, msg Message) (Result, error)
}

// SMTPMailer relays mail through a configured SMTP host.
type SMTPMailer struct {
	cfg config.MailConfig
}

// NewSMTPMailer builds the mailer from configuration.
func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

// Send delivers the message synchronously.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) (Result, error) {
	if m.cfg.Host == "" {
		return Result{}, errors.New("smtp host not configured")
	}

	out := gomail.NewMsg()
	if err := out.From(m.cfg.From); err != nil {
		return Result{}, err
	}
	if err := out.To(msg.To); err != nil {
		return Result{}, err
	}
	if m.cfg.BCC != "" {
		if err := out.Bcc(m.cfg.BCC); err != nil {
			return Result{}, err
		}
	}
	out.Subject(msg.Subject)
	if msg.IsHTML {
		out.SetBodyString(gomail.TypeTextHTML, msg.Body)
	} else {
		out.SetBodyString(gomail.TypeTextPlain, msg.Body)
	}
	for _, att := range msg.Attachments {
		out.AttachReader(att.FileName, bytes.NewReader(att.Data),
			gomail.WithFileContentType(gomail.ContentType(att.ContentType)))
	}
	out.SetMessageID()

	opts := []gomail.Option{
		gomail.WithPort(m.cfg.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(m.cfg.Username),
		gomail.WithPassword(m.cfg.Password),
	}
	if m.cfg.Port == 465 {
		opts = append(opts, gomail.WithSSL())
	}

	client, err := gomail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return Result{}, err
	}

	if err := client.DialAndSendWithContext(ctx, out); err != nil {
		return Result{}, err
	}

	messageID := ""
	if ids := out.GetGenHeader(gomail.HeaderMessageID); len(ids) > 0 {
		messageID = ids[0]
	}
	return Result{Success: true, MessageID: messageID}, nil
}
