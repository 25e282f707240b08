package realtime

import (
	"fmt"
	"log/slog"

	pubnub "github.com/pubnub/go"

	"fila-system/models"
)

const broadcastChannel = "fila"

// PubNubPublisher pushes queue changes to mobile clients: a broadcast
// event with the new queue size plus a per-entry position/ETA message on
// each entry's own channel. Publish failures are logged and dropped;
// clients also poll, so a missed push only delays the update.
type PubNubPublisher struct {
	pn    *pubnub.PubNub
	avgMs func() float64
}

// NewPubNubPublisher wires a publisher to an average-service-duration
// source used for ETA derivation.
func NewPubNubPublisher(pn *pubnub.PubNub, avgMs func() float64) *PubNubPublisher {
	return &PubNubPublisher{pn: pn, avgMs: avgMs}
}

// OnQueueChanged implements the hub subscriber contract.
func (p *PubNubPublisher) OnQueueChanged(entries []models.QueueEntry) {
	_, _, err := p.pn.Publish().
		Channel(broadcastChannel).
		Message(map[string]any{
			"type": "queue_update",
			"size": len(entries),
		}).
		Execute()
	if err != nil {
		slog.Warn("pubnub broadcast failed", "error", err)
	}

	avg := p.avgMs()
	for i, entry := range entries {
		position := i + 1
		channel := fmt.Sprintf("fila-%s", entry.ID)
		_, _, err := p.pn.Publish().
			Channel(channel).
			Message(map[string]any{
				"type":        "queue_position",
				"position":    position,
				"eta_minutes": models.ETAMinutes(avg, position),
			}).
			Execute()
		if err != nil {
			slog.Warn("pubnub position publish failed", "entry", entry.ID, "error", err)
		}
	}
}
