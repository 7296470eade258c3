package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"regexp"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

var phoneNumberRegex = regexp.MustCompile(`[^0-9+]`)

// TwilioOpts holds configuration for the Twilio-backed senders.
type TwilioOpts struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

// TwilioOption configures the Twilio senders.
type TwilioOption func(*TwilioOpts)

// WithAccountSID sets the Twilio account SID.
func WithAccountSID(sid string) TwilioOption {
	return func(o *TwilioOpts) { o.AccountSID = sid }
}

// WithAuthToken sets the Twilio auth token.
func WithAuthToken(token string) TwilioOption {
	return func(o *TwilioOpts) { o.AuthToken = token }
}

// WithFromNumber sets the sending phone number in E.164 format.
func WithFromNumber(from string) TwilioOption {
	return func(o *TwilioOpts) { o.FromNumber = from }
}

// TwilioClient wraps the Twilio REST API for SMS and voice calls.
type TwilioClient struct {
	client *twilio.RestClient
	from   string
}

// NewTwilioClient creates a Twilio client, falling back to the
// TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_FROM_NUMBER environment
// variables for any option not provided.
func NewTwilioClient(opts ...TwilioOption) (*TwilioClient, error) {
	var cfg TwilioOpts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.AccountSID == "" {
		cfg.AccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	}
	if cfg.AuthToken == "" {
		cfg.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	}
	if cfg.FromNumber == "" {
		cfg.FromNumber = os.Getenv("TWILIO_FROM_NUMBER")
	}
	slog.Debug("Twilio client config loaded",
		"AccountSID_set", cfg.AccountSID != "",
		"AuthToken_set", cfg.AuthToken != "",
		"FromNumber_set", cfg.FromNumber != "")

	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, fmt.Errorf("account SID and auth token must be provided")
	}
	if cfg.FromNumber == "" {
		return nil, fmt.Errorf("from number must be provided")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &TwilioClient{client: client, from: cfg.FromNumber}, nil
}

// canonicalizePhone validates and canonicalizes a phone number by stripping
// everything except digits and a leading plus.
func canonicalizePhone(recipient string) (string, error) {
	if recipient == "" {
		return "", fmt.Errorf("recipient cannot be empty")
	}
	canonical := phoneNumberRegex.ReplaceAllString(recipient, "")
	digits := 0
	for _, r := range canonical {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	if digits < 6 {
		return "", fmt.Errorf("invalid phone number: %q is too short (minimum 6 digits required)", canonical)
	}
	if canonical != recipient {
		slog.Debug("Twilio canonicalized recipient", "original", recipient, "canonical", canonical)
	}
	return canonical, nil
}

// TwilioSMSSender delivers payloads as SMS messages.
type TwilioSMSSender struct {
	client *TwilioClient
}

// NewTwilioSMSSender creates an SMS sender over the given client.
func NewTwilioSMSSender(client *TwilioClient) *TwilioSMSSender {
	return &TwilioSMSSender{client: client}
}

// Send delivers the payload body as an SMS.
func (s *TwilioSMSSender) Send(ctx context.Context, p Payload) error {
	to, err := canonicalizePhone(p.To)
	if err != nil {
		slog.Error("TwilioSMSSender Send validation error", "error", err, "to", p.To)
		return err
	}

	body := p.Body
	if p.Title != "" {
		body = p.Title + "\n" + body
	}
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.client.from)
	params.SetBody(body)

	if _, err := s.client.client.Api.CreateMessage(params); err != nil {
		slog.Error("TwilioSMSSender Send failed", "error", err, "to", to)
		return fmt.Errorf("twilio sms send to %s failed: %w", to, err)
	}
	slog.Debug("TwilioSMSSender Send succeeded", "to", to)
	return nil
}

// TwilioVoiceSender delivers payloads as spoken voice calls.
type TwilioVoiceSender struct {
	client *TwilioClient
}

// NewTwilioVoiceSender creates a voice sender over the given client.
func NewTwilioVoiceSender(client *TwilioClient) *TwilioVoiceSender {
	return &TwilioVoiceSender{client: client}
}

// Send places a call that reads the payload body aloud.
func (s *TwilioVoiceSender) Send(ctx context.Context, p Payload) error {
	to, err := canonicalizePhone(p.To)
	if err != nil {
		slog.Error("TwilioVoiceSender Send validation error", "error", err, "to", p.To)
		return err
	}

	params := &twilioApi.CreateCallParams{}
	params.SetTo(to)
	params.SetFrom(s.client.from)
	params.SetTwiml(fmt.Sprintf("<Response><Say>%s</Say></Response>", p.Body))

	if _, err := s.client.client.Api.CreateCall(params); err != nil {
		slog.Error("TwilioVoiceSender Send failed", "error", err, "to", to)
		return fmt.Errorf("twilio voice call to %s failed: %w", to, err)
	}
	slog.Debug("TwilioVoiceSender Send succeeded", "to", to)
	return nil
}
