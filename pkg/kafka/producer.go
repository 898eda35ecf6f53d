package kafka

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Riddimental/Backend-Noctra/pkg/config"
	"github.com/twmb/franz-go/pkg/kgo"
)

// ProducerConfig holds producer settings
type ProducerConfig struct {
	Brokers        []string
	ClientID       string
	TopicPrefix    string
	ProduceTimeout time.Duration
}

// FromAppConfig maps the KAFKA_* section
func FromAppConfig(c config.KafkaConfig) *ProducerConfig {
	return &ProducerConfig{
		Brokers:        c.Brokers,
		ClientID:       c.ClientID,
		TopicPrefix:    c.TopicPrefix,
		ProduceTimeout: 5 * time.Second,
	}
}

// Message is one record to publish
type Message struct {
	Topic   string
	Key     string
	Value   []byte
	Headers map[string]string
}

// Producer publishes records synchronously through franz-go
type Producer struct {
	client  *kgo.Client
	prefix  string
	timeout time.Duration
}

// NewProducer creates a client and verifies broker connectivity
func NewProducer(ctx context.Context, cfg *ProducerConfig) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: no brokers configured")
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID(cfg.ClientID),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerLinger(5*time.Millisecond),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka: create client: %w", err)
	}

	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("kafka: ping brokers: %w", err)
	}

	timeout := cfg.ProduceTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Producer{client: client, prefix: cfg.TopicPrefix, timeout: timeout}, nil
}

// Topic prefixes name with the configured prefix
func (p *Producer) Topic(name string) string {
	return TopicName(p.prefix, name)
}

// TopicName joins prefix and name with a dot, e.g. noctra.ticket.purchased
func TopicName(prefix, name string) string {
	prefix = strings.TrimSuffix(prefix, ".")
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

// Publish produces msgs and waits for every acknowledgement
func (p *Producer) Publish(ctx context.Context, msgs ...Message) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	records := make([]*kgo.Record, 0, len(msgs))
	for _, m := range msgs {
		records = append(records, toRecord(p.Topic(m.Topic), m))
	}

	if err := p.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("kafka: produce: %w", err)
	}
	return nil
}

// Close flushes and closes the client
func (p *Producer) Close() {
	p.client.Close()
}

func toRecord(topic string, m Message) *kgo.Record {
	rec := &kgo.Record{
		Topic: topic,
		Value: m.Value,
	}
	if m.Key != "" {
		rec.Key = []byte(m.Key)
	}
	for k, v := range m.Headers {
		rec.Headers = append(rec.Headers, kgo.RecordHeader{Key: k, Value: []byte(v)})
	}
	return rec
}
