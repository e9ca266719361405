package mail

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/gofiber/fiber/v2/log"

	"github.com/bantaydalan/bantaydalan-api/internal/pkg/env"
)

// Mailer sends one HTML message.
type Mailer interface {
	Send(to, subject, body string) error
}

// SMTPMailer sends emails via SMTP
type SMTPMailer struct {
	Host     string
	Port     string
	Username string
	Password string
	Sender   string
	send     func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPMailer reads SMTP_* from the environment
func NewSMTPMailer() *SMTPMailer {
	m := &SMTPMailer{
		Host:     env.GetEnv("SMTP_HOST", ""),
		Port:     env.GetEnv("SMTP_PORT", "587"),
		Username: env.GetEnv("SMTP_USERNAME", ""),
		Password: env.GetEnv("SMTP_PASSWORD", ""),
		Sender:   env.GetEnv("SMTP_SENDER", ""),
		send:     smtp.SendMail,
	}
	if m.Sender == "" {
		m.Sender = "no-reply@localhost"
		log.Warnf("[Mail] SMTP_SENDER not set, using default sender: %s", m.Sender)
	}
	return m
}

// Configured reports whether an SMTP host is set
func (m *SMTPMailer) Configured() bool {
	return m.Host != ""
}

// Send delivers one message
func (m *SMTPMailer) Send(to, subject, body string) error {
	if !m.Configured() {
		return fmt.Errorf("SMTP_HOST is not set")
	}

	var auth smtp.Auth
	if m.Username != "" && m.Password != "" {
		auth = smtp.PlainAuth("", m.Username, m.Password, m.Host)
	}

	addr := fmt.Sprintf("%s:%s", m.Host, m.Port)
	msg := BuildMessage(m.Sender, to, subject, body)

	if err := m.send(addr, auth, m.Sender, []string{to}, msg); err != nil {
		log.Errorf("[Mail] SMTP send error: %v", err)
		return err
	}
	log.Infof("[Mail] Email sent to %s via %s", to, addr)
	return nil
}

// BuildMessage renders the raw RFC 5322 message. Header values are stripped of line breaks.
func BuildMessage(from, to, subject, body string) []byte {
	clean := strings.NewReplacer("\r", "", "\n", "")
	return []byte(
		fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n", clean.Replace(from), clean.Replace(to), clean.Replace(subject)) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=UTF-8\r\n\r\n" +
			body,
	)
}
