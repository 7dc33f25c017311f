package mail

import (
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeSMTPClient struct {
	from    string
	rcpts   []string
	body    strings.Builder
	quit    bool
	authErr error
}

func (f *fakeSMTPClient) Mail(from string) error { f.from = from; return nil }
func (f *fakeSMTPClient) Rcpt(to string) error   { f.rcpts = append(f.rcpts, to); return nil }
func (f *fakeSMTPClient) Data() (io.WriteCloser, error) {
	return nopWriteCloser{&f.body}, nil
}
func (f *fakeSMTPClient) Quit() error                       { f.quit = true; return nil }
func (f *fakeSMTPClient) Close() error                      { return nil }
func (f *fakeSMTPClient) StartTLS(*tls.Config) error        { return nil }
func (f *fakeSMTPClient) Auth(smtp.Auth) error              { return f.authErr }
func (f *fakeSMTPClient) Extension(string) (bool, string)   { return false, "" }

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func newTestMailer(t *testing.T, client *fakeSMTPClient) Mailer {
	t.Helper()

	mailer, err := NewSMTPMailer(SMTPSettings{
		Enabled: true,
		Host:    "smtp.example.edu",
		Port:    587,
		From:    "noreply@example.edu",
	})
	require.NoError(t, err)

	impl := mailer.(*smtpMailer)
	impl.dialFn = func(ctx context.Context, cfg SMTPSettings) (net.Conn, smtpClient, error) {
		server, _ := net.Pipe()
		return server, client, nil
	}
	impl.authFn = defaultAuthFunc
	return impl
}

func TestSendWritesFormattedMessage(t *testing.T) {
	client := &fakeSMTPClient{}
	mailer := newTestMailer(t, client)

	err := mailer.Send(context.Background(), Message{
		To:      []string{"student@example.edu", "student@example.edu"},
		Subject: "Your verification code",
		Body:    "Code: 123456\n",
	})
	require.NoError(t, err)

	require.Equal(t, "noreply@example.edu", client.from)
	require.Equal(t, []string{"student@example.edu"}, client.rcpts)
	require.Contains(t, client.body.String(), "Subject: Your verification code")
	require.Contains(t, client.body.String(), "Code: 123456")
	require.True(t, client.quit)
}

func TestSendDisabled(t *testing.T) {
	mailer, err := NewSMTPMailer(SMTPSettings{Enabled: false})
	require.NoError(t, err)

	err = mailer.Send(context.Background(), Message{To: []string{"a@b.edu"}})
	require.ErrorIs(t, err, ErrSMTPDisabled)
}

func TestSendRequiresConfiguredSender(t *testing.T) {
	mailer, err := NewSMTPMailer(SMTPSettings{Enabled: true, Host: "smtp.example.edu", Port: 587})
	require.NoError(t, err)

	err = mailer.Send(context.Background(), Message{To: []string{"student@example.edu"}})
	require.Error(t, err)
}

func TestSendRejectsInvalidAddresses(t *testing.T) {
	client := &fakeSMTPClient{}
	mailer := newTestMailer(t, client)

	err := mailer.Send(context.Background(), Message{
		To:      []string{"not an address"},
		Subject: "x",
	})
	require.Error(t, err)
}

func TestValidateSMTPConfig(t *testing.T) {
	require.Error(t, validateSMTPConfig(SMTPSettings{Enabled: true}))
	require.Error(t, validateSMTPConfig(SMTPSettings{Enabled: true, Host: "smtp.example.edu"}))
	require.NoError(t, validateSMTPConfig(SMTPSettings{Enabled: false}))
}
