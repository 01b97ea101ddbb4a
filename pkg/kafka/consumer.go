package kafka

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"

	"Symbiotic/pkg/logger"
)

// DLQ header keys.
const (
	HeaderSourceTopic     = "source-topic"
	HeaderSourcePartition = "source-partition"
	HeaderSourceOffset    = "source-offset"
	HeaderError           = "error"
)

// MessageHandler handles messages from one topic.
type MessageHandler interface {
	Topic() string
	Handle(context.Context, []byte) error
}

type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying; the message goes straight to the DLQ.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

func isPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}

// ConsumerOption configures Consumer.
type ConsumerOption func(*consumerSettings)

type consumerSettings struct {
	brokers       []string
	groupID       string
	readers       int
	retryMax      int
	backoffMin    time.Duration
	backoffMax    time.Duration
	handleTimeout time.Duration
	dlqTopic      string
	log           *logger.Logger
}

func WithConsumerBrokers(brokers []string) ConsumerOption {
	return func(s *consumerSettings) { s.brokers = brokers }
}

func WithConsumerGroupID(groupID string) ConsumerOption {
	return func(s *consumerSettings) {
		if groupID != "" {
			s.groupID = groupID
		}
	}
}

// WithConsumerWorkers sets how many group members read each topic. Partitions are
// spread across them; each partition is still handled in order by one member.
func WithConsumerWorkers(n int) ConsumerOption {
	return func(s *consumerSettings) {
		if n > 0 {
			s.readers = n
		}
	}
}

// WithConsumerRetry sets extra attempts per message and the backoff range between them.
func WithConsumerRetry(max int, backoffMin, backoffMax time.Duration) ConsumerOption {
	return func(s *consumerSettings) {
		if max >= 0 {
			s.retryMax = max
		}
		if backoffMin > 0 {
			s.backoffMin = backoffMin
		}
		if backoffMax > 0 {
			s.backoffMax = backoffMax
		}
	}
}

// WithConsumerHandleTimeout bounds a single handler attempt.
func WithConsumerHandleTimeout(d time.Duration) ConsumerOption {
	return func(s *consumerSettings) {
		if d > 0 {
			s.handleTimeout = d
		}
	}
}

// WithConsumerDLQ copies messages that exhaust their retries to topic.
func WithConsumerDLQ(topic string) ConsumerOption {
	return func(s *consumerSettings) { s.dlqTopic = topic }
}

func WithConsumerLogger(l *logger.Logger) ConsumerOption {
	return func(s *consumerSettings) {
		if l != nil {
			s.log = l
		}
	}
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer runs group readers per registered topic and commits each message
// once it is handled or dead-lettered.
type Consumer struct {
	cfg       consumerSettings
	log       *logger.Logger
	handlers  map[string]MessageHandler
	newReader func(topic string) messageReader
	dlq       messageWriter

	mu      sync.Mutex
	readers []messageReader
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	stopped sync.Once
}

func NewConsumer(opts ...ConsumerOption) (*Consumer, error) {
	s := consumerSettings{
		groupID:       "symbiotic",
		readers:       1,
		retryMax:      3,
		backoffMin:    50 * time.Millisecond,
		backoffMax:    2 * time.Second,
		handleTimeout: 10 * time.Second,
		log:           logger.Nop(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	if len(s.brokers) == 0 {
		return nil, errors.New("consumer config: brokers are required")
	}

	var dlq messageWriter
	if s.dlqTopic != "" {
		dlq = &kafka.Writer{Addr: kafka.TCP(s.brokers...), Topic: s.dlqTopic, Balancer: &kafka.Hash{}}
	}
	c := newConsumer(s, dlq, func(topic string) messageReader {
		return kafka.NewReader(kafka.ReaderConfig{
			Brokers:  s.brokers,
			GroupID:  s.groupID,
			Topic:    topic,
			MinBytes: 1,
			MaxBytes: 1 << 20,
			MaxWait:  time.Second,
		})
	})
	return c, nil
}

func newConsumer(s consumerSettings, dlq messageWriter, newReader func(string) messageReader) *Consumer {
	initConsumerMetricsOnce()
	return &Consumer{
		cfg:       s,
		log:       s.log,
		handlers:  make(map[string]MessageHandler),
		newReader: newReader,
		dlq:       dlq,
	}
}

// RegisterHandler must be called before Start. A second handler for a topic is ignored.
func (c *Consumer) RegisterHandler(h MessageHandler) {
	if _, dup := c.handlers[h.Topic()]; dup {
		c.log.Warn("kafka handler already registered", logger.String("topic", h.Topic()))
		return
	}
	c.handlers[h.Topic()] = h
}

func (c *Consumer) Start() error {
	if len(c.handlers) == 0 {
		return errors.New("no handlers registered")
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.cancel = cancel
	for topic, h := range c.handlers {
		for i := 0; i < c.cfg.readers; i++ {
			r := c.newReader(topic)
			c.readers = append(c.readers, r)
			c.wg.Add(1)
			go c.run(ctx, r, h)
		}
	}
	c.mu.Unlock()

	c.log.Info("kafka consumer running",
		logger.Int("topics", len(c.handlers)),
		logger.Int("readers_per_topic", c.cfg.readers),
		logger.String("group", c.cfg.groupID),
	)
	return nil
}

// Stop cancels in-flight fetches and waits for handlers until ctx expires.
func (c *Consumer) Stop(ctx context.Context) error {
	var err error
	c.stopped.Do(func() {
		c.mu.Lock()
		cancel, readers := c.cancel, c.readers
		c.mu.Unlock()
		if cancel != nil {
			cancel()
		}

		done := make(chan struct{})
		go func() {
			c.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			err = fmt.Errorf("waiting for kafka readers: %w", ctx.Err())
		}

		for _, r := range readers {
			if cerr := r.Close(); cerr != nil {
				c.log.Warn("close kafka reader", logger.Error(cerr))
			}
		}
		if c.dlq != nil {
			if cerr := c.dlq.Close(); cerr != nil {
				c.log.Warn("close dlq writer", logger.Error(cerr))
			}
		}
		if err == nil {
			c.log.Info("kafka consumer stopped")
		}
	})
	return err
}

func (c *Consumer) run(ctx context.Context, r messageReader, h MessageHandler) {
	defer c.wg.Done()
	failures := 0
	for {
		msg, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return
			}
			failures++
			c.log.Warn("kafka fetch failed", logger.String("topic", h.Topic()), logger.Error(err))
			if !sleep(ctx, backoffWithJitter(c.cfg.backoffMin, c.cfg.backoffMax, failures)) {
				return
			}
			continue
		}
		failures = 0
		if !c.process(ctx, r, h, msg) {
			return
		}
	}
}

// process reports false when the consumer is stopping and msg was left uncommitted.
func (c *Consumer) process(ctx context.Context, r messageReader, h MessageHandler, msg kafka.Message) bool {
	start := time.Now()
	attempts, err := c.handle(ctx, h, msg.Value)
	consumerHandleLatency.WithLabelValues(msg.Topic).Observe(time.Since(start).Seconds())
	if err != nil && ctx.Err() != nil {
		// redelivered after restart
		return false
	}

	result := "ok"
	if err != nil {
		result = "dropped"
		c.log.Error("kafka message failed",
			logger.String("topic", msg.Topic),
			logger.Int("partition", msg.Partition),
			logger.Int64("offset", msg.Offset),
			logger.Int("attempts", attempts),
			logger.Error(err),
		)
		if c.deadLetter(msg, err) {
			result = "dlq"
		}
	}
	consumerMessagesTotal.WithLabelValues(msg.Topic, result).Inc()

	// later commits cover earlier offsets, so a failed message is never held back
	c.commit(r, msg)
	return true
}

// handle runs h until it succeeds, fails permanently or runs out of attempts.
// A panic counts as a failed attempt.
func (c *Consumer) handle(ctx context.Context, h MessageHandler, data []byte) (int, error) {
	for attempt := 1; ; attempt++ {
		err := c.attempt(ctx, h, data)
		if err == nil || isPermanent(err) || attempt > c.cfg.retryMax {
			return attempt, err
		}
		if !sleep(ctx, backoffWithJitter(c.cfg.backoffMin, c.cfg.backoffMax, attempt)) {
			return attempt, err
		}
	}
}

func (c *Consumer) attempt(ctx context.Context, h MessageHandler, data []byte) (err error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.handleTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic handling %s: %v", h.Topic(), r)
		}
	}()
	return h.Handle(ctx, data)
}

func (c *Consumer) deadLetter(msg kafka.Message, cause error) bool {
	if c.dlq == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := c.dlq.WriteMessages(ctx, kafka.Message{
		Key:   msg.Key,
		Value: msg.Value,
		Time:  time.Now(),
		Headers: append(msg.Headers,
			kafka.Header{Key: HeaderSourceTopic, Value: []byte(msg.Topic)},
			kafka.Header{Key: HeaderSourcePartition, Value: []byte(strconv.Itoa(msg.Partition))},
			kafka.Header{Key: HeaderSourceOffset, Value: []byte(strconv.FormatInt(msg.Offset, 10))},
			kafka.Header{Key: HeaderError, Value: []byte(cause.Error())},
		),
	})
	if err != nil {
		c.log.Error("kafka dlq write failed", logger.String("topic", c.cfg.dlqTopic), logger.Error(err))
		return false
	}
	return true
}

func (c *Consumer) commit(r messageReader, msg kafka.Message) {
	const attempts = 3
	var err error
	for i := 1; i <= attempts; i++ {
		// not tied to the run context: a handled message should be committed even while stopping
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err = r.CommitMessages(ctx, msg)
		cancel()
		if err == nil {
			return
		}
		time.Sleep(backoffWithJitter(50*time.Millisecond, 500*time.Millisecond, i))
	}
	c.log.Error("kafka commit failed",
		logger.String("topic", msg.Topic),
		logger.Int64("offset", msg.Offset),
		logger.Error(err),
	)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// backoffWithJitter doubles min per attempt up to max, then takes off up to half.
func backoffWithJitter(min, max time.Duration, attempt int) time.Duration {
	if min <= 0 {
		min = 50 * time.Millisecond
	}
	if max < min {
		max = min
	}
	d := max
	if attempt < 31 {
		if exp := min << uint(attempt-1); exp > 0 && exp < max {
			d = exp
		}
	}
	if half := int64(d) / 2; half > 0 {
		d -= time.Duration(rand.Int63n(half))
	}
	return d
}

var (
	consumerMessagesTotal *prometheus.CounterVec
	consumerHandleLatency *prometheus.HistogramVec
	consumerOnce          sync.Once
)

func initConsumerMetricsOnce() {
	consumerOnce.Do(func() {
		consumerMessagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{Name: "symbiotic_kafka_consumer_messages_total", Help: "Consumed messages by outcome (ok, dlq, dropped)"},
			[]string{"topic", "result"},
		)
		consumerHandleLatency = promauto.NewHistogramVec(
			prometheus.HistogramOpts{Name: "symbiotic_kafka_consumer_handle_seconds", Help: "Handling time per message including retries"},
			[]string{"topic"},
		)
	})
}
