package ingestion

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NATSSubscriber subscribes to NATS JetStream subjects and feeds events
// into the core via the eventChan. NATS is the primary high-throughput
// ingestion surface; each subject maps to one event type.
type NATSSubscriber struct {
	js        jetstream.JetStream
	eventChan chan<- RawEvent
	consumers []jetstream.ConsumeContext
}

// RawEvent is the parsed-but-untyped event from NATS, ready for the shell
// to validate and convert into a typed event.Event before sending to the core.
type RawEvent struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
	AckFunc   func() // Call to ACK the NATS message after successful processing
	NakFunc   func() // Call to NAK on failure (will be redelivered)
}

// SubjectConfig maps NATS subjects to event types.
type SubjectConfig struct {
	Subject      string
	EventType    string
	ConsumerName string
	StreamName   string
}

// DefaultSubjects returns the standard subject configuration.
func DefaultSubjects() []SubjectConfig {
	return []SubjectConfig{
		{Subject: "vault.ops.deposit.>", EventType: "Deposit", ConsumerName: "vault-deposit", StreamName: "VAULT_OPS"},
		{Subject: "vault.ops.borrow.>", EventType: "Borrow", ConsumerName: "vault-borrow", StreamName: "VAULT_OPS"},
		{Subject: "vault.ops.repay.>", EventType: "Repay", ConsumerName: "vault-repay", StreamName: "VAULT_OPS"},
		{Subject: "vault.ops.withdraw.>", EventType: "Withdraw", ConsumerName: "vault-withdraw", StreamName: "VAULT_OPS"},
		{Subject: "vault.ops.liquidate.>", EventType: "Liquidate", ConsumerName: "vault-liquidate", StreamName: "VAULT_OPS"},
		{Subject: "vault.ops.accrue.>", EventType: "Accrue", ConsumerName: "vault-accrue", StreamName: "VAULT_OPS"},
		{Subject: "vault.ops.claim.>", EventType: "ClaimRewards", ConsumerName: "vault-claim", StreamName: "VAULT_OPS"},
		{Subject: "vault.ops.flashloan.>", EventType: "FlashLoan", ConsumerName: "vault-flashloan", StreamName: "VAULT_OPS"},
		{Subject: "vault.prices.>", EventType: "PriceUpdate", ConsumerName: "vault-prices", StreamName: "VAULT_PRICES"},
		{Subject: "vault.rewards.>", EventType: "RewardAccrual", ConsumerName: "vault-rewards", StreamName: "VAULT_REWARDS"},
		{Subject: "vault.admin.risk.>", EventType: "RiskConfigUpdate", ConsumerName: "vault-admin-risk", StreamName: "VAULT_ADMIN"},
		{Subject: "vault.admin.rate.>", EventType: "InterestRateUpdate", ConsumerName: "vault-admin-rate", StreamName: "VAULT_ADMIN"},
		{Subject: "vault.admin.flashfee.>", EventType: "FlashLoanFeeUpdate", ConsumerName: "vault-admin-flashfee", StreamName: "VAULT_ADMIN"},
		{Subject: "vault.admin.penalty.>", EventType: "LiquidationPenaltyUpdate", ConsumerName: "vault-admin-penalty", StreamName: "VAULT_ADMIN"},
		{Subject: "vault.admin.pool.>", EventType: "PoolRegistration", ConsumerName: "vault-admin-pool", StreamName: "VAULT_ADMIN"},
	}
}

func NewNATSSubscriber(js jetstream.JetStream, eventChan chan<- RawEvent) *NATSSubscriber {
	return &NATSSubscriber{
		js:        js,
		eventChan: eventChan,
	}
}

// Subscribe creates JetStream consumers for all configured subjects.
// Consumers use explicit ACK, max_deliver=5, ack_wait=30s.
func (ns *NATSSubscriber) Subscribe(ctx context.Context, subjects []SubjectConfig) error {
	for _, cfg := range subjects {
		consumer, err := ns.js.CreateOrUpdateConsumer(ctx, cfg.StreamName, jetstream.ConsumerConfig{
			Durable:       cfg.ConsumerName,
			FilterSubject: cfg.Subject,
			AckPolicy:     jetstream.AckExplicitPolicy,
			AckWait:       30 * time.Second,
			MaxDeliver:    5,
			DeliverPolicy: jetstream.DeliverAllPolicy,
		})
		if err != nil {
			return fmt.Errorf("create consumer %s: %w", cfg.ConsumerName, err)
		}

		consumerContext, err := consumer.Consume(func(msg jetstream.Msg) {
			raw := RawEvent{
				Subject:   msg.Subject(),
				Data:      msg.Data(),
				Timestamp: time.Now(),
				AckFunc:   func() { msg.Ack() },
				NakFunc:   func() { msg.Nak() },
			}

			select {
			case ns.eventChan <- raw:
				// Successfully queued for processing
			case <-ctx.Done():
				msg.Nak()
			}
		})
		if err != nil {
			return fmt.Errorf("consume %s: %w", cfg.ConsumerName, err)
		}

		ns.consumers = append(ns.consumers, consumerContext)
		log.Printf("INFO: subscribed to %s (consumer=%s)", cfg.Subject, cfg.ConsumerName)
	}

	return nil
}

// EnsureStreams creates the required JetStream streams if they don't exist.
// Streams use FileStorage, retention=Limits, max_age=72h.
func EnsureStreams(ctx context.Context, js jetstream.JetStream) error {
	streams := []jetstream.StreamConfig{
		{
			Name:      "VAULT_OPS",
			Subjects:  []string{"vault.ops.>"},
			Storage:   jetstream.FileStorage,
			Retention: jetstream.LimitsPolicy,
			MaxAge:    72 * time.Hour,
			Replicas:  1,
		},
		{
			Name:      "VAULT_PRICES",
			Subjects:  []string{"vault.prices.>"},
			Storage:   jetstream.FileStorage,
			Retention: jetstream.LimitsPolicy,
			MaxAge:    72 * time.Hour,
			Replicas:  1,
		},
		{
			Name:      "VAULT_REWARDS",
			Subjects:  []string{"vault.rewards.>"},
			Storage:   jetstream.FileStorage,
			Retention: jetstream.LimitsPolicy,
			MaxAge:    72 * time.Hour,
			Replicas:  1,
		},
		{
			Name:      "VAULT_ADMIN",
			Subjects:  []string{"vault.admin.>"},
			Storage:   jetstream.FileStorage,
			Retention: jetstream.LimitsPolicy,
			MaxAge:    72 * time.Hour,
			Replicas:  1,
		},
	}

	for _, cfg := range streams {
		if _, err := js.CreateOrUpdateStream(ctx, cfg); err != nil {
			return fmt.Errorf("create stream %s: %w", cfg.Name, err)
		}
		log.Printf("INFO: ensured stream %s", cfg.Name)
	}

	return nil
}

// Stop gracefully stops all consumers.
func (ns *NATSSubscriber) Stop() {
	for _, cc := range ns.consumers {
		cc.Stop()
	}
	log.Println("INFO: NATS subscribers stopped")
}

// ConnectNATS establishes a NATS connection and returns a JetStream context.
func ConnectNATS(url string) (*nats.Conn, jetstream.JetStream, error) {
	nc, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Printf("WARN: NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Println("INFO: NATS reconnected")
		}),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("jetstream: %w", err)
	}

	return nc, js, nil
}
