package notification

import (
	"context"
	"fmt"
	"net/http"
	"net/smtp"
	"net/url"
	"strings"
	"time"
)

// Sender delivers a notification over one channel.
type Sender interface {
	Send(ctx context.Context, n *Notification) error
}

// -- Email --

// SMTPConfig carries the mail relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type smtpSender struct {
	cfg SMTPConfig
}

// NewSMTPSender delivers EMAIL notifications through an SMTP relay. Auth is
// skipped when no username is configured, which is the common local
// mailcatcher setup.
func NewSMTPSender(cfg SMTPConfig) Sender {
	return &smtpSender{cfg: cfg}
}

func (s *smtpSender) Send(_ context.Context, n *Notification) error {
	subject := ""
	if n.Subject != nil {
		subject = *n.Subject
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", s.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", n.Recipient)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n")
	msg.WriteString(n.Body)

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	return smtp.SendMail(addr, auth, s.cfg.From, []string{n.Recipient}, []byte(msg.String()))
}

// -- WhatsApp --

// WhatsAppConfig carries the messaging API settings. The API follows the
// Twilio message-resource shape: form-encoded POST with basic auth.
type WhatsAppConfig struct {
	APIURL     string
	AccountSID string
	AuthToken  string
	From       string
}

type whatsAppSender struct {
	cfg    WhatsAppConfig
	client *http.Client
}

// NewWhatsAppSender delivers WHATSAPP notifications through the configured
// messaging API.
func NewWhatsAppSender(cfg WhatsAppConfig) Sender {
	return &whatsAppSender{cfg: cfg, client: &http.Client{Timeout: 10 * time.Second}}
}

func (s *whatsAppSender) Send(ctx context.Context, n *Notification) error {
	form := url.Values{}
	form.Set("From", "whatsapp:"+s.cfg.From)
	form.Set("To", "whatsapp:"+n.Recipient)
	form.Set("Body", n.Body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.APIURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.cfg.AccountSID, s.cfg.AuthToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("whatsapp api returned status %d", resp.StatusCode)
	}
	return nil
}
