package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/smtp"
	"strings"
	"testing"
)

type fakeSMTPClient struct {
	mailFrom string
	rcpts    []string
	body     strings.Builder
	quit     bool
}

func (f *fakeSMTPClient) Mail(from string) error { f.mailFrom = from; return nil }
func (f *fakeSMTPClient) Rcpt(to string) error   { f.rcpts = append(f.rcpts, to); return nil }
func (f *fakeSMTPClient) Data() (io.WriteCloser, error) {
	return nopWriteCloser{&f.body}, nil
}
func (f *fakeSMTPClient) Quit() error                      { f.quit = true; return nil }
func (f *fakeSMTPClient) Close() error                     { return nil }
func (f *fakeSMTPClient) StartTLS(*tls.Config) error       { return nil }
func (f *fakeSMTPClient) Auth(smtp.Auth) error             { return nil }
func (f *fakeSMTPClient) Extension(string) (bool, string)  { return false, "" }

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func newTestMailer(client smtpClient) *smtpMailer {
	return &smtpMailer{
		cfg: SMTPSettings{
			Enabled: true,
			Host:    "smtp.example.com",
			Port:    587,
			From:    "noreply@equipped.example",
		},
		dialFn: func(ctx context.Context, cfg SMTPSettings) (net.Conn, smtpClient, error) {
			server, conn := net.Pipe()
			_ = server.Close()
			return conn, client, nil
		},
		authFn: func(smtpClient, SMTPSettings) error { return nil },
	}
}

func TestSendDisabled(t *testing.T) {
	mailer, err := NewSMTPMailer(SMTPSettings{Enabled: false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = mailer.Send(context.Background(), Message{To: []string{"user@example.com"}})
	if !errors.Is(err, ErrSMTPDisabled) {
		t.Fatalf("expected ErrSMTPDisabled, got %v", err)
	}
}

func TestSendDeliversMessage(t *testing.T) {
	client := &fakeSMTPClient{}
	mailer := newTestMailer(client)

	msg := Message{
		To:      []string{"invitee@example.com", "invitee@example.com"},
		Subject: "You're invited",
		Body:    "Join the account.",
	}
	if err := mailer.Send(context.Background(), msg); err != nil {
		t.Fatalf("send: %v", err)
	}

	if client.mailFrom != "noreply@equipped.example" {
		t.Fatalf("unexpected mail from: %s", client.mailFrom)
	}
	if len(client.rcpts) != 1 {
		t.Fatalf("expected duplicate recipients collapsed, got %d", len(client.rcpts))
	}
	if !client.quit {
		t.Fatal("expected client quit after delivery")
	}
	if !strings.Contains(client.body.String(), "Subject: You're invited") {
		t.Fatal("expected subject header in payload")
	}
}

func TestSendRejectsInvalidRecipient(t *testing.T) {
	mailer := newTestMailer(&fakeSMTPClient{})

	err := mailer.Send(context.Background(), Message{To: []string{"not-an-address"}})
	if err == nil {
		t.Fatal("expected invalid address error")
	}
}

func TestNewSMTPMailerValidatesConfig(t *testing.T) {
	if _, err := NewSMTPMailer(SMTPSettings{Enabled: true}); err == nil {
		t.Fatal("expected missing host error")
	}
}
