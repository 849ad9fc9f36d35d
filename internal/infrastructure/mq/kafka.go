package mq

import (
	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"

	"playportal/internal/config"
)

// Producer wraps a sarama sync producer. Injected into the outbox sender
// so tests can substitute a fake.
type Producer struct {
	producer sarama.SyncProducer
}

func InitKafka(cfg *config.KafkaConfig) *Producer {
	kafkaConfig := sarama.NewConfig()
	kafkaConfig.Producer.RequiredAcks = sarama.WaitForAll
	kafkaConfig.Producer.Retry.Max = 3
	kafkaConfig.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(cfg.Brokers, kafkaConfig)
	if err != nil {
		logrus.WithError(err).Fatal("failed to create Kafka producer")
	}

	logrus.Info("Kafka producer ready")
	return &Producer{producer: producer}
}

func (p *Producer) SendMessage(topic, key, value string) error {
	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.StringEncoder(value),
	}

	_, _, err := p.producer.SendMessage(msg)
	return err
}

func (p *Producer) Close() {
	if p.producer != nil {
		p.producer.Close()
	}
}
