package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/segmentio/kafka-go"
	"github.com/trogers1052/trading-journal/internal/ingest"
	"github.com/trogers1052/trading-journal/internal/metrics"
	"github.com/trogers1052/trading-journal/internal/models"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Consume outcomes recorded on EventsConsumed
const (
	outcomeStored    = "stored"
	outcomeDuplicate = "duplicate"
	outcomeIgnored   = "ignored"
	outcomeInvalid   = "invalid"
	outcomeFailed    = "failed"
)

// otherEventType labels events this consumer does not handle
const otherEventType = "other"

// TradeImporter stores imported trades idempotently
type TradeImporter interface {
	ImportTrade(ctx context.Context, source, externalID string, t *models.Trade) (bool, error)
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
	Config() kafka.ReaderConfig
}

// Consumer reads trade import events and records them in the journal
type Consumer struct {
	reader     messageReader
	importer   TradeImporter
	normalizer *ingest.Normalizer
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// NewConsumer creates a new Kafka consumer for trade import events
func NewConsumer(brokers []string, topic, groupID string, importer TradeImporter, normalizer *ingest.Normalizer, m *metrics.Metrics, logger *zap.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: time.Second,
	})

	return &Consumer{
		reader:     reader,
		importer:   importer,
		normalizer: normalizer,
		metrics:    m,
		logger:     logger.Named("consumer"),
	}
}

// Start consumes messages until ctx is cancelled
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("starting kafka consumer", zap.String("topic", c.reader.Config().Topic))

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("kafka consumer shutting down")
			return c.reader.Close()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return c.reader.Close()
				}
				c.logger.Error("error reading message", zap.Error(err))
				continue
			}

			if err := c.processMessage(ctx, msg); err != nil {
				c.logger.Error("error processing message",
					zap.Int("partition", msg.Partition),
					zap.Int64("offset", msg.Offset),
					zap.Error(err))
			}
		}
	}
}

// processMessage handles a single Kafka message. Malformed records are
// reported and skipped; they never stop the consumer.
func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message) error {
	var event models.TradeImportEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		c.count(otherEventType, outcomeInvalid)
		return fmt.Errorf("failed to unmarshal trade import event: %w", err)
	}

	if event.EventType != models.EventTradeImported {
		c.logger.Debug("ignoring event type", zap.String("event_type", event.EventType))
		c.count(otherEventType, outcomeIgnored)
		return nil
	}

	if event.Source == "" || event.ExternalID == "" {
		c.count(event.EventType, outcomeInvalid)
		return errors.New("trade import event is missing source or external_id")
	}

	trade, err := c.normalizer.Trade(event.Data)
	if err != nil {
		c.count(event.EventType, outcomeInvalid)
		return fmt.Errorf("failed to normalize trade %s/%s: %w", event.Source, event.ExternalID, err)
	}

	stored, err := c.importer.ImportTrade(ctx, event.Source, event.ExternalID, &trade)
	if err != nil {
		c.count(event.EventType, outcomeFailed)
		return fmt.Errorf("failed to import trade: %w", err)
	}
	if !stored {
		c.count(event.EventType, outcomeDuplicate)
		return nil
	}

	c.count(event.EventType, outcomeStored)
	c.logger.Info("imported trade",
		zap.String("user_id", trade.UserID),
		zap.String("trade_id", trade.ID),
		zap.String("asset", trade.Asset),
		zap.String("result", string(trade.Result)),
		zap.String("source", event.Source),
		zap.String("external_id", event.ExternalID))
	return nil
}

func (c *Consumer) count(eventType, outcome string) {
	if c.metrics != nil {
		c.metrics.EventsConsumed.WithLabelValues(eventType, outcome).Inc()
	}
}

// Close closes the Kafka consumer
func (c *Consumer) Close() error {
	return c.reader.Close()
}
