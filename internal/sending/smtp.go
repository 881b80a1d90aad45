package sending

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"time"

	"github.com/google/uuid"
	"github.com/relaycrm/campaign-engine/internal/domain"
	"github.com/relaycrm/campaign-engine/internal/pkg/logger"
)

// SMTPSender delivers messages over plain SMTP using the transport resolved
// for the sending workspace. A fresh connection is made per message; at CRM
// batch sizes connection reuse is not worth the state handling.
type SMTPSender struct {
	dialTimeout time.Duration
}

// NewSMTPSender creates an SMTP sender. dialTimeout bounds the TCP connect;
// the overall per-message deadline comes from the caller's context.
func NewSMTPSender(dialTimeout time.Duration) *SMTPSender {
	if dialTimeout <= 0 {
		dialTimeout = 30 * time.Second
	}
	return &SMTPSender{dialTimeout: dialTimeout}
}

// Send builds the MIME message and submits it through the workspace
// transport. The returned SendResult carries the generated Message-ID.
func (s *SMTPSender) Send(ctx context.Context, transport *domain.MailSettings, msg *domain.EmailMessage) (*domain.SendResult, error) {
	if !transport.Usable() {
		return nil, ErrNotConfigured
	}

	messageID := fmt.Sprintf("%s@%s", uuid.New().String(), transport.Host)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s <%s>\r\n", msg.FromName, msg.FromEmail)
	fmt.Fprintf(&buf, "To: %s\r\n", msg.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&buf, "Message-ID: <%s>\r\n", messageID)
	fmt.Fprintf(&buf, "X-Delivery-Log-ID: %s\r\n", msg.LogID)
	buf.WriteString("MIME-Version: 1.0\r\n")
	for k, v := range msg.Headers {
		fmt.Fprintf(&buf, "%s: %s\r\n", k, v)
	}
	buf.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(msg.HTMLBody)
	buf.WriteString("\r\n")

	if err := s.submit(ctx, transport, msg.FromEmail, msg.To, buf.Bytes()); err != nil {
		return nil, err
	}

	logger.Debug("smtp send ok", "to", msg.To, "message_id", messageID, "campaign_id", msg.CampaignID)
	return &domain.SendResult{MessageID: messageID, SentAt: time.Now().UTC()}, nil
}

func (s *SMTPSender) submit(ctx context.Context, t *domain.MailSettings, from, to string, raw []byte) error {
	dialer := &net.Dialer{Timeout: s.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", t.Addr())
	if err != nil {
		return fmt.Errorf("smtp connect to %s: %w", t.Addr(), err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, t.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp client: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		tlsCfg := &tls.Config{ServerName: t.Host}
		if tlsErr := client.StartTLS(tlsCfg); tlsErr != nil {
			return fmt.Errorf("starttls: %w", tlsErr)
		}
	}

	if t.Username != "" {
		auth := smtp.PlainAuth("", t.Username, t.Password, t.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(from); err != nil {
		return fmt.Errorf("MAIL FROM: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("RCPT TO: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("DATA close: %w", err)
	}
	return client.Quit()
}
