// Package events broadcasts series writes between quote cache instances
// sharing one backing store, so each can drop its local memory copy.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"QuoteCache/internal/domain/models"
	"QuoteCache/pkg/logger"
	"QuoteCache/pkg/metrics"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// InstanceID identifies this process on the event topic.
type InstanceID string

// NewInstanceID returns a random instance id.
func NewInstanceID() InstanceID {
	return InstanceID(uuid.NewString())
}

// Publisher writes one keyed message. *kafka.Producer satisfies it.
type Publisher interface {
	Publish(ctx context.Context, key []byte, value interface{}) error
}

// Notifier publishes series events stamped with the local instance id.
type Notifier struct {
	pub     Publisher
	origin  InstanceID
	metrics *metrics.Recorder
	log     *logger.Logger
	now     func() time.Time
}

func NewNotifier(pub Publisher, origin InstanceID, rec *metrics.Recorder, l *logger.Logger) *Notifier {
	return &Notifier{pub: pub, origin: origin, metrics: rec, log: l, now: time.Now}
}

// SeriesChanged fills the event envelope and publishes it keyed by series.
func (n *Notifier) SeriesChanged(ctx context.Context, ev models.SeriesEvent) error {
	ev.ID = uuid.NewString()
	ev.Origin = string(n.origin)
	if ev.At.IsZero() {
		ev.At = n.now()
	}
	if err := n.pub.Publish(ctx, []byte(ev.Key), ev); err != nil {
		n.metrics.RecordEvent("out", "error")
		return err
	}
	n.metrics.RecordEvent("out", "ok")
	n.log.Debug("series event published", logger.String("key", ev.Key), logger.String("action", string(ev.Action)))
	return nil
}

// Evictor drops keys from a local cache level.
type Evictor interface {
	Evict(ctx context.Context, keys ...string) error
}

// Listener applies events from other instances to the local cache.
type Listener struct {
	origin  InstanceID
	evict   Evictor
	metrics *metrics.Recorder
	log     *logger.Logger
}

func NewListener(origin InstanceID, evict Evictor, rec *metrics.Recorder, l *logger.Logger) *Listener {
	return &Listener{origin: origin, evict: evict, metrics: rec, log: l}
}

// Handle decodes one message and evicts the series it names. Events this
// instance published are ignored. Undecodable payloads are dropped without
// retry.
func (l *Listener) Handle(ctx context.Context, msg kafka.Message) error {
	var ev models.SeriesEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil || ev.Key == "" {
		l.metrics.RecordEvent("in", "invalid")
		l.log.Warn("undecodable series event", logger.Int64("offset", msg.Offset))
		return nil
	}
	if ev.Origin == string(l.origin) {
		l.metrics.RecordEvent("in", "self")
		return nil
	}
	if err := l.evict.Evict(ctx, ev.Key); err != nil {
		l.metrics.RecordEvent("in", "error")
		return fmt.Errorf("evict %s: %w", ev.Key, err)
	}
	l.metrics.RecordEvent("in", "evicted")
	l.log.Debug("series evicted",
		logger.String("key", ev.Key),
		logger.String("action", string(ev.Action)),
		logger.String("origin", ev.Origin),
	)
	return nil
}

// Runner streams messages into a handler until its context ends.
// *kafka.Consumer from pkg/kafka satisfies it.
type Runner interface {
	Run(ctx context.Context, h func(context.Context, kafka.Message) error) error
	Close() error
}

// Worker runs a Listener off a consumer.
type Worker struct {
	consumer Runner
	listener *Listener
}

func NewWorker(c Runner, l *Listener) *Worker {
	return &Worker{consumer: c, listener: l}
}

func (w *Worker) Name() string { return "series-events" }

// Run blocks until ctx is done, then closes the consumer.
func (w *Worker) Run(ctx context.Context) error {
	err := w.consumer.Run(ctx, w.listener.Handle)
	if cerr := w.consumer.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
