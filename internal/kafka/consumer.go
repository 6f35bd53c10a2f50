package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dhoini/affiliate-service/internal/domain"
	"github.com/Dhoini/affiliate-service/internal/repository"
	"github.com/Dhoini/affiliate-service/pkg/logger"
	"github.com/Dhoini/affiliate-service/pkg/req"
	"github.com/IBM/sarama"
)

// StatusPropagator применяет смену статуса подписки к рефералам
type StatusPropagator interface {
	UpdateSubscriptionStatus(ctx context.Context, subscriptionID, status string) (repository.StatusChangeResult, error)
}

// LifecycleConsumer читает subscription.lifecycle через consumer group и передает события в Propagator.
type LifecycleConsumer struct {
	group   sarama.ConsumerGroup
	topic   string
	handler *lifecycleHandler
	log     *logger.Logger
}

// NewLifecycleConsumer подключается к consumer group
func NewLifecycleConsumer(cfg *Config, propagator StatusPropagator, log *logger.Logger) (*LifecycleConsumer, error) {
	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.Consumer.Group, NewSaramaConfig(cfg, log))
	if err != nil {
		log.Errorw("Failed to create Kafka consumer group", "error", err, "group", cfg.Consumer.Group)
		return nil, fmt.Errorf("kafka: failed to create consumer group: %w", err)
	}

	return &LifecycleConsumer{
		group:   group,
		topic:   cfg.Consumer.Topic,
		handler: &lifecycleHandler{propagator: propagator, log: log},
		log:     log,
	}, nil
}

// Run блокируется до отмены ctx. После ошибки сессии чтение продолжается с последнего закоммиченного offset.
func (c *LifecycleConsumer) Run(ctx context.Context) error {
	go func() {
		for err := range c.group.Errors() {
			c.log.Warnw("Kafka consumer group error", "error", err)
		}
	}()

	c.log.Infow("Lifecycle consumer started", "topic", c.topic)
	for {
		if err := c.group.Consume(ctx, []string{c.topic}, c.handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			c.log.Errorw("Kafka consume session ended with error", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
		}
		if ctx.Err() != nil {
			c.log.Infow("Lifecycle consumer stopped")
			return nil
		}
	}
}

// Close закрывает consumer group
func (c *LifecycleConsumer) Close() error {
	return c.group.Close()
}

type lifecycleHandler struct {
	propagator StatusPropagator
	log        *logger.Logger
}

func (h *lifecycleHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *lifecycleHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim завершает сессию на первой ошибке обработки, чтобы сообщение не было закоммичено.
func (h *lifecycleHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if err := h.handle(sess.Context(), msg); err != nil {
				return err
			}
			sess.MarkMessage(msg, "")
		case <-sess.Context().Done():
			return nil
		}
	}
}

// handle возвращает ошибку только для сбоев, которые имеет смысл повторить.
func (h *lifecycleHandler) handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	event, err := req.DecodeBytes[domain.SubscriptionLifecycleEvent](msg.Value)
	if err != nil {
		h.log.Warnw("Skipping invalid lifecycle message", "error", err, "partition", msg.Partition, "offset", msg.Offset)
		return nil
	}

	result, err := h.propagator.UpdateSubscriptionStatus(ctx, event.SubscriptionID, event.Status)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			h.log.Warnw("Skipping rejected lifecycle event", "error", err, "subscriptionID", event.SubscriptionID)
			return nil
		}
		h.log.Errorw("Failed to propagate lifecycle event", "error", err, "subscriptionID", event.SubscriptionID, "offset", msg.Offset)
		return fmt.Errorf("propagate %s: %w", event.SubscriptionID, err)
	}

	h.log.Debugw("Lifecycle event applied",
		"subscriptionID", event.SubscriptionID,
		"status", event.Status,
		"updatedReferrals", result.UpdatedReferrals,
	)
	return nil
}
