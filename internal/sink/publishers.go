package sink

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"trafficgen/internal/config"
	"trafficgen/internal/core"
	"trafficgen/internal/pubsub"
)

// RESTPublisher publishes to the REST pub/sub service.
type RESTPublisher struct {
	client *pubsub.Client
	topic  string
}

func NewRESTPublisher(client *pubsub.Client, topic string) *RESTPublisher {
	return &RESTPublisher{client: client, topic: topic}
}

func (p *RESTPublisher) Publish(ctx context.Context, events []core.Event) error {
	msgs, err := encodeAll(events)
	if err != nil {
		return err
	}
	_, err = p.client.Publish(ctx, p.topic, msgs)
	return err
}

func (p *RESTPublisher) Close() error { return nil }

// KafkaPublisher writes each event as a record keyed by user id, with the
// message attributes as record headers.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

// NewKafkaProducer builds a synchronous producer for cfg.
func NewKafkaProducer(cfg config.KafkaConfig) (sarama.SyncProducer, error) {
	sc := sarama.NewConfig()
	sc.ClientID = cfg.ClientID
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Return.Successes = true
	sc.Producer.Partitioner = sarama.NewHashPartitioner
	sc.Producer.Retry.Max = 3

	producer, err := sarama.NewSyncProducer(cfg.Brokers, sc)
	if err != nil {
		return nil, fmt.Errorf("creating kafka producer: %w", err)
	}
	return producer, nil
}

func NewKafkaPublisher(producer sarama.SyncProducer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) Publish(_ context.Context, events []core.Event) error {
	records := make([]*sarama.ProducerMessage, 0, len(events))
	for _, e := range events {
		m, err := Encode(e)
		if err != nil {
			return err
		}
		headers := make([]sarama.RecordHeader, 0, len(m.Attributes))
		for k, v := range m.Attributes {
			headers = append(headers, sarama.RecordHeader{Key: []byte(k), Value: []byte(v)})
		}
		records = append(records, &sarama.ProducerMessage{
			Topic:   p.topic,
			Key:     sarama.StringEncoder(e.ActorID),
			Value:   sarama.ByteEncoder(m.Data),
			Headers: headers,
		})
	}
	if err := p.producer.SendMessages(records); err != nil {
		return fmt.Errorf("kafka publish: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error { return p.producer.Close() }

// LogPublisher writes events to a logger instead of a bus; used for dry runs.
type LogPublisher struct {
	log *zap.Logger
}

func NewLogPublisher(log *zap.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(_ context.Context, events []core.Event) error {
	for _, e := range events {
		p.log.Info(e.Kind,
			zap.String("user_id", e.ActorID),
			zap.Any("details", e.Details),
			zap.Time("timestamp", e.Timestamp))
	}
	return nil
}

func (p *LogPublisher) Close() error {
	_ = p.log.Sync()
	return nil
}

type discard struct{}

func (discard) Publish(context.Context, []core.Event) error { return nil }
func (discard) Close() error                                { return nil }

// NewPublisher builds the publisher selected by cfg.Driver.
func NewPublisher(cfg config.BusConfig, log *zap.Logger) (Publisher, error) {
	switch cfg.Driver {
	case config.DriverREST:
		client, err := pubsub.NewClient(pubsub.Options{
			Endpoint:         cfg.Endpoint,
			DomainID:         cfg.DomainID,
			ProjectID:        cfg.ProjectID,
			CredentialID:     cfg.CredentialID,
			CredentialSecret: cfg.CredentialSecret,
			Timeout:          cfg.PublishTimeout,
		})
		if err != nil {
			return nil, err
		}
		return NewRESTPublisher(client, cfg.Topic), nil
	case config.DriverKafka:
		producer, err := NewKafkaProducer(cfg.Kafka)
		if err != nil {
			return nil, err
		}
		return NewKafkaPublisher(producer, cfg.Kafka.Topic), nil
	case config.DriverLog:
		return NewLogPublisher(log.Named("events")), nil
	case config.DriverNone:
		return discard{}, nil
	default:
		return nil, fmt.Errorf("unknown bus driver %q", cfg.Driver)
	}
}
