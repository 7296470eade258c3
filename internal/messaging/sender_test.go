package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/manaaki-care/manaaki/internal/models"
)

func TestRegistrySendRoutesByChannel(t *testing.T) {
	registry := NewRegistry()
	sms := NewMockSender()
	push := NewMockSender()
	registry.Register(models.ChannelSMS, sms)
	registry.Register(models.ChannelPush, push)

	err := registry.Send(context.Background(), models.ChannelSMS, Payload{To: "+6421555000", Body: "hello"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sms.SentCount() != 1 || push.SentCount() != 0 {
		t.Errorf("payload routed to the wrong sender: sms=%d push=%d", sms.SentCount(), push.SentCount())
	}
}

func TestRegistrySendUnregisteredChannel(t *testing.T) {
	registry := NewRegistry()
	err := registry.Send(context.Background(), models.ChannelVoice, Payload{To: "+6421555000"})
	if !errors.Is(err, ErrNoSender) {
		t.Errorf("expected ErrNoSender, got %v", err)
	}
}

func TestCanonicalizePhone(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"+64 21 555 000", "+6421555000", false},
		{"(021) 555-000", "021555000", false},
		{"+6421555000", "+6421555000", false},
		{"", "", true},
		{"12345", "", true},     // too short
		{"+1-234", "", true},    // too short after stripping
		{"not a phone", "", true},
	}
	for _, c := range cases {
		got, err := canonicalizePhone(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("canonicalizePhone(%q): expected error, got %q", c.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("canonicalizePhone(%q): unexpected error: %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("canonicalizePhone(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestWebhookSenderPostsPayload(t *testing.T) {
	var received webhookBody
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected JSON content type, got %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("failed to decode body: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s := NewWebhookSender(models.ChannelPush, srv.URL)
	err := s.Send(context.Background(), Payload{
		To:    "device-token-1",
		Title: "Check-in time",
		Body:  "Time for your check-in.",
		Data:  map[string]string{"notification_id": "notif-1"},
		Sound: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if received.Channel != "push" || received.To != "device-token-1" || !received.Sound {
		t.Errorf("unexpected gateway payload: %+v", received)
	}
	if received.Data["notification_id"] != "notif-1" {
		t.Errorf("data not forwarded: %v", received.Data)
	}
}

func TestWebhookSenderRejectsGatewayFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	s := NewWebhookSender(models.ChannelEmail, srv.URL)
	if err := s.Send(context.Background(), Payload{To: "mere@example.com", Body: "hello"}); err == nil {
		t.Error("expected error on non-2xx gateway response")
	}
}

func TestWebhookSenderRequiresRecipient(t *testing.T) {
	s := NewWebhookSender(models.ChannelEmail, "http://localhost:0")
	if err := s.Send(context.Background(), Payload{Body: "hello"}); err == nil {
		t.Error("expected error for empty recipient")
	}
}

func TestNewTwilioClientRequiresCredentials(t *testing.T) {
	t.Setenv("TWILIO_ACCOUNT_SID", "")
	t.Setenv("TWILIO_AUTH_TOKEN", "")
	t.Setenv("TWILIO_FROM_NUMBER", "")
	if _, err := NewTwilioClient(); err == nil {
		t.Error("expected error when credentials are missing")
	}
	if _, err := NewTwilioClient(WithAccountSID("AC123"), WithAuthToken("token")); err == nil {
		t.Error("expected error when from number is missing")
	}
	if _, err := NewTwilioClient(WithAccountSID("AC123"), WithAuthToken("token"), WithFromNumber("+15005550006")); err != nil {
		t.Errorf("unexpected error with full credentials: %v", err)
	}
}
