package kafka

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/Dhoini/affiliate-service/internal/domain"
	"github.com/Dhoini/affiliate-service/pkg/logger"
	kafkaGo "github.com/segmentio/kafka-go"
)

// RequiredTopics топики, которые сервис пишет и читает
func RequiredTopics(lifecycleTopic string) []kafkaGo.TopicConfig {
	if lifecycleTopic == "" {
		lifecycleTopic = domain.TopicSubscriptionLifecycle
	}
	return []kafkaGo.TopicConfig{
		{Topic: domain.TopicReferralTracked, NumPartitions: 3, ReplicationFactor: 1},
		{Topic: domain.TopicStatusPropagated, NumPartitions: 3, ReplicationFactor: 1},
		{Topic: domain.TopicCommissionAccrued, NumPartitions: 1, ReplicationFactor: 1},
		{Topic: lifecycleTopic, NumPartitions: 3, ReplicationFactor: 1},
	}
}

// EnsureKafkaTopics проверяет и создает необходимые топики Kafka.
func EnsureKafkaTopics(ctx context.Context, brokers []string, topics []kafkaGo.TopicConfig, log *logger.Logger) error {
	log.Infow("Ensuring Kafka topics exist...", "topics", topicNames(topics))

	if len(brokers) == 0 || strings.TrimSpace(brokers[0]) == "" {
		return errors.New("kafka broker address is empty")
	}
	if err := validateBroker(brokers[0]); err != nil {
		log.Errorw("Invalid Kafka broker address", "broker", brokers[0], "error", err)
		return err
	}

	connCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	conn, err := kafkaGo.DialContext(connCtx, "tcp", strings.TrimSpace(brokers[0]))
	if err != nil {
		log.Errorw("Failed to connect to Kafka broker for topic creation", "broker", brokers[0], "error", err)
		return fmt.Errorf("kafka connection failed: %w", err)
	}
	defer conn.Close()

	// Топики создаются только через контроллер кластера
	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("kafka controller lookup failed: %w", err)
	}
	ctrlConn, err := kafkaGo.DialContext(connCtx, "tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return fmt.Errorf("kafka controller connection failed: %w", err)
	}
	defer ctrlConn.Close()

	partitions, err := ctrlConn.ReadPartitions()
	if err != nil {
		log.Errorw("Failed to read partitions from Kafka", "error", err)
		return fmt.Errorf("kafka read partitions failed: %w", err)
	}

	missing := missingTopics(topics, partitions)
	if len(missing) == 0 {
		log.Infow("All required topics already exist")
		return nil
	}

	if err := ctrlConn.CreateTopics(missing...); err != nil && !errors.Is(err, kafkaGo.TopicAlreadyExists) {
		log.Errorw("Failed to create topics", "error", err, "topics", topicNames(missing))
		return fmt.Errorf("kafka create topics failed: %w", err)
	}

	log.Infow("Successfully created or verified topics", "topics", topicNames(missing))
	return nil
}

func validateBroker(addr string) error {
	_, portStr, err := net.SplitHostPort(strings.TrimSpace(addr))
	if err != nil {
		return fmt.Errorf("invalid broker address %s: %w", addr, err)
	}
	if _, err := strconv.Atoi(portStr); err != nil {
		return fmt.Errorf("invalid broker port %s: %w", addr, err)
	}
	return nil
}

func missingTopics(required []kafkaGo.TopicConfig, partitions []kafkaGo.Partition) []kafkaGo.TopicConfig {
	existing := make(map[string]bool, len(partitions))
	for _, p := range partitions {
		existing[p.Topic] = true
	}
	var out []kafkaGo.TopicConfig
	for _, t := range required {
		if !existing[t.Topic] {
			out = append(out, t)
		}
	}
	return out
}

func topicNames(topicConfigs []kafkaGo.TopicConfig) []string {
	names := make([]string, 0, len(topicConfigs))
	for _, tc := range topicConfigs {
		names = append(names, tc.Topic)
	}
	return names
}
