package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fila-system/models"
)

type sentMessage struct {
	to   string
	body string
}

type recordingProvider struct {
	sent    []sentMessage
	failFor map[string]error
}

func (p *recordingProvider) Send(_ context.Context, to, body string) error {
	if err, ok := p.failFor[to]; ok {
		return err
	}
	p.sent = append(p.sent, sentMessage{to: to, body: body})
	return nil
}

func newTestNotifier(provider SMSProvider) (*Notifier, *int) {
	n := NewNotifier(provider, 3*time.Second)
	sleeps := 0
	n.sleep = func(time.Duration) { sleeps++ }
	return n, &sleeps
}

func TestNotifier_FanOutMessages(t *testing.T) {
	provider := &recordingProvider{}
	n, sleeps := newTestNotifier(provider)

	entries := []models.QueueEntry{
		{ID: "a", Name: "Ana", Phone: "+5511911111111", EnqueuedAt: 100},
		{ID: "b", Name: "Bruno", EnqueuedAt: 200}, // no phone, skipped
		{ID: "c", Name: "Clara", Phone: "+5511933333333", EnqueuedAt: 300},
	}

	n.FanOut(context.Background(), entries, 300000)

	require.Len(t, provider.sent, 2)

	assert.Equal(t, "+5511911111111", provider.sent[0].to)
	assert.Equal(t, "Olá Ana! Você é o próximo a ser atendido. Prepare-se!", provider.sent[0].body)

	assert.Equal(t, "+5511933333333", provider.sent[1].to)
	assert.Equal(t, "Olá Clara! Sua posição na fila: 3. Tempo estimado: 10 min.", provider.sent[1].body)

	// One pause between the two sends, none before the first.
	assert.Equal(t, 1, *sleeps)
}

func TestNotifier_FailureDoesNotStopFanOut(t *testing.T) {
	provider := &recordingProvider{
		failFor: map[string]error{"+5511911111111": errors.New("provider rejected")},
	}
	n, _ := newTestNotifier(provider)

	entries := []models.QueueEntry{
		{ID: "a", Name: "Ana", Phone: "+5511911111111", EnqueuedAt: 100},
		{ID: "b", Name: "Bruno", Phone: "+5511922222222", EnqueuedAt: 200},
	}

	n.FanOut(context.Background(), entries, 60000)

	require.Len(t, provider.sent, 1)
	assert.Equal(t, "+5511922222222", provider.sent[0].to)
}

func TestNotifier_EmptyQueueSendsNothing(t *testing.T) {
	provider := &recordingProvider{}
	n, sleeps := newTestNotifier(provider)

	n.FanOut(context.Background(), nil, 300000)

	assert.Empty(t, provider.sent)
	assert.Equal(t, 0, *sleeps)
}
