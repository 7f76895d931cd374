package services

import (
	"fmt"
	"log"
	"net/smtp"
	"os"
)

// Mailer is the outbound email channel of the notification fan-out. It is an
// interface so tests can record sends instead of talking to an SMTP relay.
type Mailer interface {
	Send(to, subject, body string) error
}

// smtpMailer sends through a plain-auth SMTP relay (Gmail-style app password).
type smtpMailer struct {
	host     string
	port     string
	from     string
	password string
}

// NewMailerFromEnv builds the SMTP mailer from SMTP_HOST/SMTP_PORT/SMTP_FROM/
// SMTP_PASSWORD. When SMTP_FROM is unset, email delivery is disabled and a
// logging stand-in is returned so notification dispatch still works.
func NewMailerFromEnv() Mailer {
	from := os.Getenv("SMTP_FROM")
	if from == "" {
		log.Println("SMTP_FROM not set; outbound email disabled")
		return &disabledMailer{}
	}
	host := os.Getenv("SMTP_HOST")
	if host == "" {
		host = "smtp.gmail.com"
	}
	port := os.Getenv("SMTP_PORT")
	if port == "" {
		port = "587"
	}
	return &smtpMailer{
		host:     host,
		port:     port,
		from:     from,
		password: os.Getenv("SMTP_PASSWORD"),
	}
}

func (m *smtpMailer) Send(to, subject, body string) error {
	message := []byte("Subject: " + subject + "\r\n" +
		"From: " + m.from + "\r\n" +
		"To: " + to + "\r\n" +
		"Content-Type: text/plain; charset=UTF-8\r\n\r\n" +
		body)

	auth := smtp.PlainAuth("", m.from, m.password, m.host)
	if err := smtp.SendMail(m.host+":"+m.port, auth, m.from, []string{to}, message); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}

type disabledMailer struct{}

func (m *disabledMailer) Send(to, subject, body string) error {
	log.Printf("[disabledMailer] Skipping email to %s: %s", to, subject)
	return nil
}
