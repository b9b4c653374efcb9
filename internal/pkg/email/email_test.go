package email

import (
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/cmlabs-hris/dashboard-access-go/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, cfg config.SMTPConfig, send sendFunc) *emailServiceImpl {
	t.Helper()
	svc, err := NewEmailService(cfg)
	require.NoError(t, err)
	impl := svc.(*emailServiceImpl)
	impl.send = send
	return impl
}

func TestSendInvitation_SkipsWithoutHost(t *testing.T) {
	called := false
	svc := newTestService(t, config.SMTPConfig{}, func(string, smtp.Auth, string, []string, []byte) error {
		called = true
		return nil
	})

	require.NoError(t, svc.SendInvitation(Invitation{To: "a@x.com"}))
	assert.False(t, called)
}

func TestSendInvitation_RendersTemplate(t *testing.T) {
	var sent string
	cfg := config.SMTPConfig{Host: "smtp.local", Port: 25, From: "noreply@x.com", FromName: "Dashboard"}
	svc := newTestService(t, cfg, func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		assert.Equal(t, "smtp.local:25", addr)
		assert.Equal(t, []string{"a@x.com"}, to)
		sent = string(msg)
		return nil
	})

	err := svc.SendInvitation(Invitation{
		To:        "a@x.com",
		InvitedBy: "root",
		Roles:     []string{"admin", "support"},
		AcceptURL: "https://dash.local/invitations/abc/accept",
		ExpiresAt: time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.True(t, strings.Contains(sent, "Subject: You're invited to the dashboard"))
	assert.True(t, strings.Contains(sent, "root has invited you"))
	assert.True(t, strings.Contains(sent, "admin, support"))
	assert.True(t, strings.Contains(sent, "https://dash.local/invitations/abc/accept"))
	assert.True(t, strings.Contains(sent, "04 Jan 2024"))
}

func TestSendInvitation_RetriesThenFails(t *testing.T) {
	attempts := 0
	cfg := config.SMTPConfig{Host: "smtp.local", Port: 25}
	svc := newTestService(t, cfg, func(string, smtp.Auth, string, []string, []byte) error {
		attempts++
		return errors.New("connection refused")
	})

	err := svc.SendInvitation(Invitation{To: "a@x.com"})
	assert.Error(t, err)
	assert.Equal(t, maxRetries, attempts)
}
