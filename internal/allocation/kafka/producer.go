package kafka

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"ms-shuttle/internal/models"
)

// Producer streams allocation run outcomes to Kafka for downstream
// consumers (notifications, reporting).
type Producer struct {
	completed *kafka.Writer
	failed    *kafka.Writer
}

func NewProducer(brokers []string, completedTopic, failedTopic string) *Producer {
	return &Producer{
		completed: kafka.NewWriter(kafka.WriterConfig{Brokers: brokers, Topic: completedTopic}),
		failed:    kafka.NewWriter(kafka.WriterConfig{Brokers: brokers, Topic: failedTopic}),
	}
}

func (p *Producer) PublishRunCompleted(run models.AllocationRun) error {
	return p.publish(p.completed, run)
}

func (p *Producer) PublishRunFailed(run models.AllocationRun) error {
	return p.publish(p.failed, run)
}

func (p *Producer) publish(w *kafka.Writer, run models.AllocationRun) error {
	msgBytes, err := json.Marshal(run)
	if err != nil {
		return err
	}
	return w.WriteMessages(context.Background(),
		kafka.Message{
			Key:   []byte(run.RunDate),
			Value: msgBytes,
		},
	)
}

func (p *Producer) Close() error {
	if err := p.completed.Close(); err != nil {
		return err
	}
	return p.failed.Close()
}
