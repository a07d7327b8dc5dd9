package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	msgs chan kafka.Message

	mu        sync.Mutex
	committed []int64
}

func newFakeReader(msgs ...kafka.Message) *fakeReader {
	r := &fakeReader{msgs: make(chan kafka.Message, len(msgs))}
	for _, m := range msgs {
		r.msgs <- m
	}
	return r
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case m := <-r.msgs:
		return m, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func (r *fakeReader) Committed() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func (w *fakeWriter) Messages() []kafka.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]kafka.Message(nil), w.msgs...)
}

type recordingHandler struct {
	topic string
	fail  int

	mu    sync.Mutex
	calls int
	seen  [][]byte
	done  chan struct{}
}

func (h *recordingHandler) Topic() string { return h.topic }

func (h *recordingHandler) Handle(_ context.Context, data []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls++
	if h.calls <= h.fail {
		return errors.New("transient")
	}
	h.seen = append(h.seen, data)
	if h.done != nil {
		close(h.done)
		h.done = nil
	}
	return nil
}

func testConsumer(reg prometheus.Registerer, opts ...ConsumerOption) *Consumer {
	cfg := &ConsumerConfig{
		WorkerCount: 1,
		BufferSize:  4,
		RetryMax:    2,
		BackoffMin:  time.Millisecond,
		BackoffMax:  2 * time.Millisecond,
		Registerer:  reg,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return newConsumer(cfg)
}

func TestConsumerRetriesThenCommits(t *testing.T) {
	c := testConsumer(prometheus.NewRegistry())
	h := &recordingHandler{topic: "tx", fail: 2, done: make(chan struct{})}
	r := newFakeReader(kafka.Message{Topic: "tx", Offset: 7, Value: []byte(`{"person_id":1}`)})
	c.RegisterHandler(h)
	c.readers["tx"] = r
	c.run()

	select {
	case <-h.done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler never succeeded")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Stop(ctx))

	assert.Equal(t, 3, h.calls)
	assert.Equal(t, []int64{7}, r.Committed())
}

func TestConsumerDeadLettersExhaustedMessages(t *testing.T) {
	c := testConsumer(prometheus.NewRegistry(), WithConsumerDLQ("tx.dlq"))
	dlq := &fakeWriter{}
	c.dlq = dlq
	h := &recordingHandler{topic: "tx", fail: 100}
	r := newFakeReader(kafka.Message{Topic: "tx", Offset: 3, Key: []byte("1"), Value: []byte("bad")})
	c.RegisterHandler(h)
	c.readers["tx"] = r
	c.run()

	require.Eventually(t, func() bool { return len(r.Committed()) == 1 }, 2*time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Stop(ctx))

	msgs := dlq.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "tx.dlq", msgs[0].Topic)
	assert.Equal(t, []byte("bad"), msgs[0].Value)
	assert.Equal(t, 3, h.calls)
}

func TestConsumerRecoversHandlerPanic(t *testing.T) {
	c := testConsumer(prometheus.NewRegistry())
	c.RegisterHandler(panicHandler{})
	r := newFakeReader(kafka.Message{Topic: "boom", Offset: 1})
	c.readers["boom"] = r
	c.run()

	time.Sleep(20 * time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Stop(ctx))
	assert.Empty(t, r.Committed())
}

type panicHandler struct{}

func (panicHandler) Topic() string { return "boom" }

func (panicHandler) Handle(context.Context, []byte) error { panic("handler exploded") }

func TestProducerEncodesValues(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, &ProducerConfig{Compression: "snappy", Registerer: prometheus.NewRegistry()})

	err := p.PublishBatch(context.Background(), "events", []Message{
		{Key: []byte("1"), Value: map[string]int{"a": 1}, Headers: map[string]string{TraceIDHeader: "abc"}},
		{Key: []byte("2"), Value: "raw"},
	})
	require.NoError(t, err)

	msgs := w.Messages()
	require.Len(t, msgs, 2)
	assert.JSONEq(t, `{"a":1}`, string(msgs[0].Value))
	assert.Equal(t, "abc", ExtractTraceID(msgs[0]))
	assert.Equal(t, "raw", string(msgs[1].Value))

	w.err = errors.New("broker down")
	assert.Error(t, p.Publish(context.Background(), "events", nil, "x"))
	assert.NoError(t, p.PublishBatch(context.Background(), "events", nil))
}

func TestHookChain(t *testing.T) {
	var order []string
	mk := func(name string) ConsumerHook {
		return HookFuncs{
			Before: func(ctx context.Context, _ string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
				order = append(order, "before:"+name)
				return ctx, km, append(data, name...), nil
			},
			After: func(context.Context, string, kafka.Message, []byte, error) {
				order = append(order, "after:"+name)
			},
		}
	}
	chain := NewHookChain(mk("a"), nil, mk("b"), TraceHook())

	km := kafka.Message{Headers: []kafka.Header{{Key: TraceIDHeader, Value: []byte("t-1")}}}
	ctx, _, data, err := chain.BeforeHandle(context.Background(), "tx", km, nil)
	require.NoError(t, err)
	chain.AfterHandle(ctx, "tx", km, data, nil)

	assert.Equal(t, "ab", string(data))
	assert.Equal(t, "t-1", TraceIDFrom(ctx))
	assert.Equal(t, []string{"before:a", "before:b", "after:b", "after:a"}, order)
}

func TestHookChainRecoversPanic(t *testing.T) {
	var errs int
	chain := NewHookChain(
		HookFuncs{Before: func(context.Context, string, kafka.Message, []byte) (context.Context, kafka.Message, []byte, error) {
			panic("bad hook")
		}},
		HookFuncs{Err: func(context.Context, string, kafka.Message, []byte, error) { errs++ }},
	)

	_, _, _, err := chain.BeforeHandle(context.Background(), "tx", kafka.Message{}, nil)
	var herr *HookError
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, "ERR_PANIC", herr.Code)
	assert.Equal(t, 1, errs)
}

func TestBackoffWithJitter(t *testing.T) {
	for attempt := 1; attempt <= 40; attempt++ {
		d := backoffWithJitter(10*time.Millisecond, 80*time.Millisecond, attempt)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 80*time.Millisecond)
	}
	assert.Equal(t, kafka.Snappy, parseCompression("unknown"))
	assert.Equal(t, kafka.Zstd, parseCompression("zstd"))
}
