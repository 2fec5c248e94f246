package outbox

import (
	"context"
	"errors"
	"net"
	"sync"

	"github.com/segmentio/kafka-go"
)

// KafkaProducer delivers outbox batches to Kafka, keeping one writer per
// topic. Writes are synchronous and acknowledged by all replicas, so a
// batch reported delivered is safe to mark published.
type KafkaProducer struct {
	addr net.Addr

	mu      sync.RWMutex
	writers map[string]*kafka.Writer
}

// NewKafkaProducer constructs a producer for the given brokers.
func NewKafkaProducer(brokers []string) *KafkaProducer {
	return &KafkaProducer{
		addr:    kafka.TCP(brokers...),
		writers: make(map[string]*kafka.Writer),
	}
}

// WriteMessages delivers msgs to topic.
func (p *KafkaProducer) WriteMessages(ctx context.Context, topic string, msgs ...kafka.Message) error {
	return p.writer(topic).WriteMessages(ctx, msgs...)
}

func (p *KafkaProducer) writer(topic string) *kafka.Writer {
	p.mu.RLock()
	w, ok := p.writers[topic]
	p.mu.RUnlock()
	if ok {
		return w
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if w, ok := p.writers[topic]; ok {
		return w
	}

	w = &kafka.Writer{
		Addr:  p.addr,
		Topic: topic,
		// Messages are keyed by user id; hashing keeps one user's events
		// on one partition so consumers see them in order.
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Compression:  kafka.Snappy,
	}
	p.writers[topic] = w
	return w
}

// Close closes every writer, reporting all close errors together.
func (p *KafkaProducer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for _, w := range p.writers {
		if err := w.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	p.writers = make(map[string]*kafka.Writer)
	return errors.Join(errs...)
}
