package kafka

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProducerRequiresBrokersAndTopic(t *testing.T) {
	_, err := NewProducer(WithTopic("series"))
	assert.Error(t, err)

	_, err = NewProducer(WithBrokers([]string{"localhost:9092"}))
	assert.Error(t, err)

	p, err := NewProducer(WithBrokers([]string{"localhost:9092"}), WithTopic("series"), WithCompression("lz4"))
	require.NoError(t, err)
	assert.Equal(t, "series", p.Topic())
	assert.Equal(t, kafka.Lz4, p.writer.Compression)
	assert.NoError(t, p.Close())
}

func TestNewConsumerRequiresBrokersAndTopic(t *testing.T) {
	_, err := NewConsumer(WithConsumerTopic("series"))
	assert.Error(t, err)

	_, err = NewConsumer(WithConsumerBrokers([]string{"localhost:9092"}))
	assert.Error(t, err)
}

func TestEncodeValue(t *testing.T) {
	b, err := encodeValue([]byte("raw"))
	require.NoError(t, err)
	assert.Equal(t, "raw", string(b))

	b, err = encodeValue(map[string]int{"n": 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":1}`, string(b))

	_, err = encodeValue(make(chan int))
	assert.Error(t, err)
}

func TestParseCompression(t *testing.T) {
	assert.Equal(t, kafka.Gzip, parseCompression("gzip"))
	assert.Equal(t, kafka.Zstd, parseCompression("zstd"))
	assert.Equal(t, kafka.Snappy, parseCompression("unknown"))
}

func TestBackoffWithJitter(t *testing.T) {
	min, max := 10*time.Millisecond, 80*time.Millisecond
	for attempt := 1; attempt <= 10; attempt++ {
		d := backoffWithJitter(min, max, attempt)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, max)
	}
	d := backoffWithJitter(min, max, 1)
	assert.GreaterOrEqual(t, d, min/2)
}

func TestProducerMetricsShareRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := newProducerMetrics(reg)
	b := newProducerMetrics(reg)
	require.NotNil(t, a)

	a.observe("series", "snappy", 10, time.Millisecond, nil)
	b.observe("series", "snappy", 5, time.Millisecond, assert.AnError)

	assert.Equal(t, 1.0, testutil.ToFloat64(a.messages.WithLabelValues("series", "snappy", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(a.messages.WithLabelValues("series", "snappy", "error")))
	assert.Equal(t, 15.0, testutil.ToFloat64(a.bytes.WithLabelValues("series", "snappy")))

	var nop *producerMetrics
	assert.NotPanics(t, func() { nop.observe("series", "snappy", 1, time.Millisecond, nil) })
}
