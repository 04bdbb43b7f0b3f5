package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net/mail"
	"net/smtp"
	"strings"
	"time"
)

const defaultSMTPPort = 587

// deliverFunc entrega un mensaje ya armado al servidor SMTP.
type deliverFunc func(ctx context.Context, addr string, auth smtp.Auth, from, to string, msg []byte) error

// SMTPSender envia codigos OTP por SMTP.
type SMTPSender struct {
	addr    string
	host    string
	auth    smtp.Auth
	from    mail.Address
	deliver deliverFunc
}

// NewSMTPSender valida la configuracion. fromName tambien nombra el
// producto en el asunto del correo.
func NewSMTPSender(host string, port int, username, password, from, fromName string, useTLS bool) (*SMTPSender, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if hasLineBreak(from, fromName) {
		return nil, fmt.Errorf("smtp from contains line breaks")
	}
	addr, err := mail.ParseAddress(from)
	if err != nil {
		return nil, fmt.Errorf("smtp from: %w", err)
	}
	addr.Name = strings.TrimSpace(fromName)
	if port == 0 {
		port = defaultSMTPPort
	}

	s := &SMTPSender{
		addr:    fmt.Sprintf("%s:%d", host, port),
		host:    host,
		from:    *addr,
		deliver: sendPlain,
	}
	if username != "" {
		s.auth = smtp.PlainAuth("", username, password, host)
	}
	if useTLS {
		s.deliver = s.sendTLS
	}
	return s, nil
}

func (s *SMTPSender) SendOTP(ctx context.Context, toEmail string, code string, expiresAt time.Time) error {
	toEmail = strings.TrimSpace(toEmail)
	if toEmail == "" {
		return fmt.Errorf("to email is required")
	}
	if hasLineBreak(toEmail, code) {
		return fmt.Errorf("otp email fields contain line breaks")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := otpMessage{
		from:      s.from,
		to:        toEmail,
		code:      code,
		expiresAt: expiresAt,
	}
	return s.deliver(ctx, s.addr, s.auth, s.from.Address, toEmail, msg.bytes())
}

func sendPlain(_ context.Context, addr string, auth smtp.Auth, from, to string, msg []byte) error {
	return smtp.SendMail(addr, auth, from, []string{to}, msg)
}

// sendTLS abre la conexion con TLS implicito (puerto 465).
func (s *SMTPSender) sendTLS(ctx context.Context, addr string, auth smtp.Auth, from, to string, msg []byte) error {
	dialer := &tls.Dialer{Config: &tls.Config{ServerName: s.host}}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	client, err := smtp.NewClient(conn, s.host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer client.Close()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return err
		}
	}
	if err := client.Mail(from); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

type otpMessage struct {
	from      mail.Address
	to        string
	code      string
	expiresAt time.Time
}

func (m otpMessage) subject() string {
	if m.from.Name == "" {
		return "Your verification code"
	}
	return fmt.Sprintf("Your %s verification code", m.from.Name)
}

func (m otpMessage) body() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Use this code to verify your email address: %s\n", m.code)
	if !m.expiresAt.IsZero() {
		fmt.Fprintf(&b, "The code expires at %s UTC.\n", m.expiresAt.UTC().Format(time.RFC3339))
	}
	b.WriteString("If you did not request it, you can ignore this message.\n")
	return b.String()
}

func (m otpMessage) bytes() []byte {
	headers := []string{
		"From: " + m.from.String(),
		"To: " + m.to,
		"Subject: " + mime.QEncoding.Encode("utf-8", m.subject()),
		"MIME-Version: 1.0",
		`Content-Type: text/plain; charset="UTF-8"`,
	}
	return []byte(strings.Join(headers, "\r\n") + "\r\n\r\n" + m.body())
}

func hasLineBreak(values ...string) bool {
	for _, v := range values {
		if strings.ContainsAny(v, "\r\n") {
			return true
		}
	}
	return false
}
