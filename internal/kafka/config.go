package kafka

import (
	"time"

	"github.com/Dhoini/affiliate-service/pkg/logger"
	"github.com/IBM/sarama"
)

// Config конфигурация для Kafka
type Config struct {
	Brokers  []string
	Consumer ConsumerConfig
}

// ConsumerConfig конфигурация для консьюмера
type ConsumerConfig struct {
	Group             string
	Topic             string
	InitialOffset     int64
	SessionTimeout    time.Duration
	HeartbeatInterval time.Duration
	AutoCommit        time.Duration
	IsolationLevel    sarama.IsolationLevel
	ReturnErrors      bool
}

// NewConfig создает конфигурацию Kafka со значениями по умолчанию
func NewConfig(brokers []string, group, topic string) *Config {
	return &Config{
		Brokers: brokers,
		Consumer: ConsumerConfig{
			Group:             group,
			Topic:             topic,
			InitialOffset:     sarama.OffsetOldest,
			SessionTimeout:    30 * time.Second,
			HeartbeatInterval: 3 * time.Second,
			AutoCommit:        time.Second,
			IsolationLevel:    sarama.ReadCommitted,
			ReturnErrors:      true,
		},
	}
}

// NewSaramaConfig создает конфигурацию Sarama для consumer group
func NewSaramaConfig(cfg *Config, log *logger.Logger) *sarama.Config {
	saramaConfig := sarama.NewConfig()

	// Версия Kafka
	saramaConfig.Version = sarama.V3_3_0_0
	saramaConfig.ClientID = "affiliate-service"

	// Настройки консьюмера
	saramaConfig.Consumer.Group.Session.Timeout = cfg.Consumer.SessionTimeout
	saramaConfig.Consumer.Group.Heartbeat.Interval = cfg.Consumer.HeartbeatInterval
	saramaConfig.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRange()}
	saramaConfig.Consumer.Offsets.Initial = cfg.Consumer.InitialOffset
	saramaConfig.Consumer.Offsets.AutoCommit.Enable = true
	saramaConfig.Consumer.Offsets.AutoCommit.Interval = cfg.Consumer.AutoCommit
	saramaConfig.Consumer.IsolationLevel = cfg.Consumer.IsolationLevel
	saramaConfig.Consumer.Return.Errors = cfg.Consumer.ReturnErrors

	log.Debugw("Sarama config prepared",
		"group", cfg.Consumer.Group,
		"sessionTimeout", cfg.Consumer.SessionTimeout,
		"initialOffset", cfg.Consumer.InitialOffset,
	)
	return saramaConfig
}
