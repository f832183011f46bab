package mail

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"time"
)

// Message is a single rendered mail for one recipient.
type Message struct {
	To      string
	Subject string
	Body    string
	Format  Format
}

// Sender hands a message to a transport.
type Sender interface {
	Deliver(ctx context.Context, msg Message) error
}

// SMTPSender delivers through an SMTP relay with optional PLAIN auth.
type SMTPSender struct {
	addr string
	host string
	from string
	auth smtp.Auth
	now  func() time.Time
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPSender configures delivery to host:port. Auth is used only when
// username is set.
func NewSMTPSender(host string, port int, username, password, from string) *SMTPSender {
	s := &SMTPSender{
		addr: net.JoinHostPort(host, strconv.Itoa(port)),
		host: host,
		from: from,
		now:  time.Now,
		send: smtp.SendMail,
	}
	if username != "" {
		s.auth = smtp.PlainAuth("", username, password, host)
	}
	return s
}

func (s *SMTPSender) Deliver(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.send(s.addr, s.auth, s.from, []string{msg.To}, s.encode(msg)); err != nil {
		return fmt.Errorf("smtp deliver to %s: %w", s.addr, err)
	}
	return nil
}

func (s *SMTPSender) encode(msg Message) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", s.from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&b, "Date: %s\r\n", s.now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: %s\r\n", msg.Format.ContentType())
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)
	return b.Bytes()
}

// LogSender writes messages to the log instead of delivering them. It is the
// development default when no SMTP host is configured.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Deliver(ctx context.Context, msg Message) error {
	s.logger.InfoContext(ctx, "mail not delivered, logging instead",
		"to", msg.To,
		"subject", msg.Subject,
		"format", msg.Format.String(),
		"body", msg.Body,
	)
	return nil
}
