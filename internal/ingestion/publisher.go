package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// OutboundPublisher re-publishes applied events to NATS for downstream
// consumers (indexers, bots, dashboards). Publishing is best-effort: a
// failed publish is logged and dropped, never blocks the core.
type OutboundPublisher struct {
	js          jetstream.JetStream
	publishChan <-chan PublishableEvent
}

// PublishableEvent is the outbound wire format for an applied event.
type PublishableEvent struct {
	Sequence       int64       `json:"sequence"`
	EventType      string      `json:"event_type"`
	IdempotencyKey string      `json:"idempotency_key"`
	Asset          *string     `json:"asset,omitempty"`
	Payload        interface{} `json:"payload"`
	StateHash      []byte      `json:"state_hash"`
	Timestamp      time.Time   `json:"timestamp"`
}

func NewOutboundPublisher(js jetstream.JetStream, publishChan <-chan PublishableEvent) *OutboundPublisher {
	return &OutboundPublisher{
		js:          js,
		publishChan: publishChan,
	}
}

// Run publishes events until the channel closes or the context is cancelled.
func (op *OutboundPublisher) Run(ctx context.Context) {
	log.Println("INFO: outbound publisher started")
	for {
		select {
		case evt, ok := <-op.publishChan:
			if !ok {
				log.Println("INFO: outbound publisher stopped (channel closed)")
				return
			}
			if err := op.publish(ctx, evt); err != nil {
				log.Printf("WARN: publish seq=%d type=%s failed: %v", evt.Sequence, evt.EventType, err)
			}
		case <-ctx.Done():
			log.Println("INFO: outbound publisher stopped (context cancelled)")
			return
		}
	}
}

func (op *OutboundPublisher) publish(ctx context.Context, evt PublishableEvent) error {
	subject := fmt.Sprintf("vault.ledger.events.%s", evt.EventType)
	if evt.Asset != nil {
		subject = fmt.Sprintf("%s.%s", subject, *evt.Asset)
	}

	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	// Msg-ID dedup on the stream side keeps redeliveries idempotent.
	_, err = op.js.Publish(ctx, subject, data,
		jetstream.WithMsgID(evt.IdempotencyKey),
	)
	return err
}

// EnsureOutboundStream creates the stream for applied-event publication.
func EnsureOutboundStream(ctx context.Context, js jetstream.JetStream) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      "VAULT_LEDGER_EVENTS",
		Subjects:  []string{"vault.ledger.events.>"},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    72 * time.Hour,
		Replicas:  1,
	})
	if err != nil {
		return fmt.Errorf("create stream VAULT_LEDGER_EVENTS: %w", err)
	}
	log.Println("INFO: ensured stream VAULT_LEDGER_EVENTS")
	return nil
}
