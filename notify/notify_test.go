package notify_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/jrsteele09/go-otp-auth/notify"
	"github.com/jrsteele09/go-otp-auth/verification"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type fakeSender struct {
	sent []*gomail.Message
	err  error
}

func (s *fakeSender) DialAndSend(m ...*gomail.Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, m...)
	return nil
}

type recordingChannel struct {
	mu    sync.Mutex
	codes []string
}

func (c *recordingChannel) Deliver(_ context.Context, identifier string, _ verification.Kind, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.codes = append(c.codes, identifier+"="+code)
	return nil
}

func TestEmailChannel(t *testing.T) {
	sender := &fakeSender{}
	ch := notify.NewEmailChannel(sender, "no-reply@example.com")

	require.NoError(t, ch.Deliver(context.Background(), "jane.doe@example.com", verification.KindEmail, "123456"))
	require.Len(t, sender.sent, 1)
	require.Equal(t, []string{"jane.doe@example.com"}, sender.sent[0].GetHeader("To"))
	require.Equal(t, []string{"no-reply@example.com"}, sender.sent[0].GetHeader("From"))

	var body bytes.Buffer
	_, err := sender.sent[0].WriteTo(&body)
	require.NoError(t, err)
	require.Contains(t, body.String(), "123456")
}

func TestEmailChannelError(t *testing.T) {
	ch := notify.NewEmailChannel(&fakeSender{err: errors.New("connection refused")}, "no-reply@example.com")
	err := ch.Deliver(context.Background(), "jane.doe@example.com", verification.KindEmail, "123456")
	require.ErrorContains(t, err, "connection refused")
}

func TestSMSChannel(t *testing.T) {
	var (
		gotAuth string
		gotTo   string
		gotMsg  string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, r.ParseForm())
		gotTo = r.PostForm.Get("to")
		gotMsg = r.PostForm.Get("message")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	ch := notify.NewSMSChannel(srv.URL, "sms-key", "AUTH")
	require.NoError(t, ch.Deliver(context.Background(), "+15551234567", verification.KindPhone, "654321"))
	require.Equal(t, "Bearer sms-key", gotAuth)
	require.Equal(t, "+15551234567", gotTo)
	require.Contains(t, gotMsg, "654321")
}

func TestSMSChannelGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ch := notify.NewSMSChannel(srv.URL, "sms-key", "AUTH")
	err := ch.Deliver(context.Background(), "+15551234567", verification.KindPhone, "654321")
	require.ErrorContains(t, err, "502")
}

func TestRouter(t *testing.T) {
	phone := &recordingChannel{}
	email := &recordingChannel{}
	r := notify.NewRouter(phone, email)

	require.NoError(t, r.Deliver(context.Background(), "+15551234567", verification.KindPhone, "111111"))
	require.NoError(t, r.Deliver(context.Background(), "jane.doe@example.com", verification.KindEmail, "222222"))
	require.Equal(t, []string{"+15551234567=111111"}, phone.codes)
	require.Equal(t, []string{"jane.doe@example.com=222222"}, email.codes)

	err := r.Deliver(context.Background(), "x", verification.Kind("fax"), "333333")
	require.ErrorIs(t, err, notify.ErrNoChannel)
}

func TestLogChannelOnlyLogsCodeAtDebug(t *testing.T) {
	var buf bytes.Buffer
	ch := notify.NewLogChannel(zerolog.New(&buf).Level(zerolog.InfoLevel))

	require.NoError(t, ch.Deliver(context.Background(), "+15551234567", verification.KindPhone, "987654"))
	require.Contains(t, buf.String(), "+1555***4567")
	require.NotContains(t, buf.String(), "987654")

	buf.Reset()
	ch = notify.NewLogChannel(zerolog.New(&buf).Level(zerolog.DebugLevel))
	require.NoError(t, ch.Deliver(context.Background(), "+15551234567", verification.KindPhone, "987654"))
	require.Contains(t, buf.String(), "987654")
}

func TestMask(t *testing.T) {
	require.Equal(t, "+1555***4567", notify.Mask("+15551234567"))
	require.Equal(t, "ja***@example.com", notify.Mask("jane.doe@example.com"))
	require.Equal(t, "***", notify.Mask("12345"))
}
