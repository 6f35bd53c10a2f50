package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Dhoini/affiliate-service/pkg/logger"
	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
)

const (
	writeTimeout      = 15 * time.Second
	maxPublishRetries = 3
)

// messageWriter часть kafka.Writer, которая нужна продюсеру
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer публикует JSON-события в Kafka через segmentio/kafka-go.
type Producer struct {
	writer messageWriter
	log    *logger.Logger
	retry  func() backoff.BackOff
}

// NewKafkaProducer создает и настраивает новый продюсер Kafka.
func NewKafkaProducer(brokers []string, log *logger.Logger) (*Producer, error) {
	if len(brokers) == 0 {
		log.Errorw("Kafka brokers list is empty in config, cannot create producer")
		return nil, errors.New("kafka brokers are not configured")
	}

	// Топик задается в каждом сообщении, поэтому у Writer он пустой
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{}, // один ключ (subscription_id) -> одна партиция
		RequiredAcks: kafka.RequireOne,
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
	}

	log.Infow("Kafka producer initialized", "brokers", brokers)
	return newProducer(writer, log), nil
}

func newProducer(w messageWriter, log *logger.Logger) *Producer {
	return &Producer{
		writer: w,
		log:    log,
		retry: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxElapsedTime = writeTimeout
			return backoff.WithMaxRetries(b, maxPublishRetries)
		},
	}
}

// Publish сериализует payload в JSON и отправляет в topic с ключом key.
func (k *Producer) Publish(ctx context.Context, topic, key string, payload any) error {
	value, err := json.Marshal(payload)
	if err != nil {
		k.log.Errorw("Failed to marshal event to JSON for Kafka", "error", err, "topic", topic, "key", key)
		return fmt.Errorf("kafka: failed to marshal message data: %w", err)
	}

	message := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(topic)},
		},
	}

	attempt := 0
	op := func() error {
		attempt++
		writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
		defer cancel()
		return k.writer.WriteMessages(writeCtx, message)
	}
	notify := func(err error, wait time.Duration) {
		k.log.Warnw("Kafka write failed, retrying", "error", err, "topic", topic, "attempt", attempt, "wait", wait)
	}

	if err := backoff.RetryNotify(op, backoff.WithContext(k.retry(), ctx), notify); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			k.log.Errorw("Kafka write timeout exceeded", "error", err, "topic", topic, "key", key)
			return fmt.Errorf("kafka: write timeout: %w", err)
		}
		k.log.Errorw("Failed to write message to Kafka", "error", err, "topic", topic, "key", key, "attempts", attempt)
		return fmt.Errorf("kafka: failed to write message: %w", err)
	}

	k.log.Debugw("Published message to Kafka", "topic", topic, "key", key)
	return nil
}

// Close закрывает соединение Kafka Writer.
func (k *Producer) Close() error {
	k.log.Infow("Closing Kafka producer writer...")
	if err := k.writer.Close(); err != nil {
		k.log.Errorw("Failed to close Kafka writer", "error", err)
		return fmt.Errorf("kafka: failed to close writer: %w", err)
	}
	return nil
}

// NoopPublisher используется, когда брокеры не настроены
type NoopPublisher struct {
	log *logger.Logger
}

// NewNoopPublisher создает публикатор, который только пишет в лог
func NewNoopPublisher(log *logger.Logger) *NoopPublisher {
	return &NoopPublisher{log: log}
}

// Publish ничего не отправляет
func (p *NoopPublisher) Publish(ctx context.Context, topic, key string, payload any) error {
	p.log.Debugw("Kafka disabled, event dropped", "topic", topic, "key", key)
	return nil
}

// Close ничего не делает
func (p *NoopPublisher) Close() error { return nil }
