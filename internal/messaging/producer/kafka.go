package producer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"wchain/config"
	"wchain/internal/models"
)

// KafkaProducer implements the Producer interface
type KafkaProducer struct {
	writer *kafka.Writer
	logger *log.Logger
	topic  string
}

// NewKafkaProducer creates a new KafkaProducer
func NewKafkaProducer(cfg config.EventsConfig, logger *log.Logger) (*KafkaProducer, error) {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return nil, errors.New("events configuration incomplete: both brokers and topic are required")
	}

	// Set defaults for batch settings if not configured
	batchSize := cfg.BatchSize
	if batchSize == 0 {
		batchSize = 100
	}

	batchTimeout := cfg.BatchTimeout
	if batchTimeout == 0 {
		batchTimeout = 100 * time.Millisecond
	}

	batchBytes := cfg.BatchBytes
	if batchBytes == 0 {
		batchBytes = 5 * 1024 * 1024 // 5MB
	}

	// Parse required_acks setting
	var requiredAcks kafka.RequiredAcks
	switch cfg.RequiredAcks {
	case "none":
		requiredAcks = kafka.RequireNone
	case "one":
		requiredAcks = kafka.RequireOne
	case "all":
		requiredAcks = kafka.RequireAll
	default:
		requiredAcks = kafka.RequireOne
	}

	writeTimeout := cfg.WriteTimeout
	if writeTimeout == 0 {
		writeTimeout = 5 * time.Second
	}

	readTimeout := cfg.ReadTimeout
	if readTimeout == 0 {
		readTimeout = 5 * time.Second
	}

	w := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Brokers...),
		Topic:    cfg.Topic,
		Balancer: &kafka.LeastBytes{},

		BatchSize:    batchSize,
		BatchTimeout: batchTimeout,
		BatchBytes:   int64(batchBytes),

		RequiredAcks: requiredAcks,
		Async:        cfg.Async,

		WriteTimeout: writeTimeout,
		ReadTimeout:  readTimeout,

		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Printf("Kafka Writer Error: "+msg, args...)
		}),
	}

	logger.Printf("Kafka producer created, connected to Brokers: %v, Topic: %s", cfg.Brokers, cfg.Topic)

	return &KafkaProducer{
		writer: w,
		logger: logger,
		topic:  cfg.Topic,
	}, nil
}

// PublishBatch sends settlement events in batch to the configured topic.
// Events for the same receipt keep the receipt ID as the message key, so a
// re-published settlement lands on the same partition as the original.
func (p *KafkaProducer) PublishBatch(ctx context.Context, events []*models.SettlementEvent) error {
	if len(events) == 0 {
		return nil
	}

	kafkaMsgs := make([]kafka.Message, len(events))
	for i, ev := range events {
		evBytes, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("failed to serialize settlement event (ReceiptID: %s): %w", ev.ReceiptID, err)
		}

		kafkaMsgs[i] = kafka.Message{
			Key:   []byte(ev.ReceiptID),
			Value: evBytes,
		}
	}

	if err := p.writer.WriteMessages(ctx, kafkaMsgs...); err != nil {
		p.logger.Printf("Failed to send settlement event batch (%d events): %v", len(events), err)
		return fmt.Errorf("failed to write to Kafka buffer: %w", err)
	}

	return nil
}

// Close closes the Kafka writer
func (p *KafkaProducer) Close() error {
	p.logger.Println("Closing Kafka producer...")
	return p.writer.Close()
}
