package notify

import (
	"context"
	"log/slog"

	"github.com/twilio/twilio-go"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// SMSProvider sends one text message. Implementations are expected to be
// slow (one network round trip) and unreliable; callers decide what a
// failed send means.
type SMSProvider interface {
	Send(ctx context.Context, to, body string) error
}

// TwilioProvider sends through the Twilio Messages API.
type TwilioProvider struct {
	client *twilio.RestClient
	from   string
}

func NewTwilioProvider(accountSID, authToken, from string) *TwilioProvider {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioProvider{client: client, from: from}
}

func (p *TwilioProvider) Send(_ context.Context, to, body string) error {
	params := &twilioapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(p.from)
	params.SetBody(body)

	_, err := p.client.Api.CreateMessage(params)
	return err
}

// StubProvider logs instead of sending. Used in development and whenever
// SMS is disabled, so the fan-out path stays exercised.
type StubProvider struct{}

func NewStubProvider() *StubProvider {
	return &StubProvider{}
}

func (s *StubProvider) Send(_ context.Context, to, body string) error {
	slog.Info("sms stub", "to", to, "body", body)
	return nil
}
