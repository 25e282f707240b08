package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fila-system/models"
	"fila-system/monitoring"
)

// Notifier fans position updates out to the entries still waiting after a
// dequeue. Sends are sequential with a fixed delay between messages to
// respect the provider rate limit; that serialization is deliberate.
// Per-recipient failures are logged and never block later recipients.
type Notifier struct {
	provider SMSProvider
	delay    time.Duration
	sleep    func(time.Duration)
}

func NewNotifier(provider SMSProvider, delay time.Duration) *Notifier {
	return &Notifier{
		provider: provider,
		delay:    delay,
		sleep:    time.Sleep,
	}
}

// FanOut messages every remaining entry with a phone number, in ascending
// position order. The head of the queue gets a "you are next" message;
// everyone else gets their new position and ETA derived from avgMs.
func (n *Notifier) FanOut(ctx context.Context, entries []models.QueueEntry, avgMs float64) {
	sent := 0
	for i, entry := range entries {
		if entry.Phone == "" {
			continue
		}
		if sent > 0 {
			n.sleep(n.delay)
		}

		var body string
		if i == 0 {
			body = fmt.Sprintf("Olá %s! Você é o próximo a ser atendido. Prepare-se!", entry.Name)
		} else {
			position := i + 1
			eta := models.ETAMinutes(avgMs, position)
			body = fmt.Sprintf("Olá %s! Sua posição na fila: %d. Tempo estimado: %d min.", entry.Name, position, eta)
		}

		if err := n.provider.Send(ctx, entry.Phone, body); err != nil {
			monitoring.IncSMS("error")
			slog.Warn("sms send failed", "entry", entry.ID, "error", err)
		} else {
			monitoring.IncSMS("sent")
		}
		sent++
	}
}
