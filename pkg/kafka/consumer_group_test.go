package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
)

type fakeSession struct {
	ctx    context.Context
	marked []*sarama.ConsumerMessage
}

func (s *fakeSession) Claims() map[string][]int32 { return nil }
func (s *fakeSession) MemberID() string           { return "member" }
func (s *fakeSession) GenerationID() int32        { return 1 }
func (s *fakeSession) MarkOffset(topic string, partition int32, offset int64, metadata string) {
}
func (s *fakeSession) Commit() {}
func (s *fakeSession) ResetOffset(topic string, partition int32, offset int64, metadata string) {
}
func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, metadata string) {
	s.marked = append(s.marked, msg)
}
func (s *fakeSession) Context() context.Context { return s.ctx }

type fakeClaim struct {
	messages chan *sarama.ConsumerMessage
}

func (c *fakeClaim) Topic() string                            { return "order.created" }
func (c *fakeClaim) Partition() int32                         { return 0 }
func (c *fakeClaim) InitialOffset() int64                     { return 0 }
func (c *fakeClaim) HighWaterMarkOffset() int64               { return 0 }
func (c *fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.messages }

func runClaim(t *testing.T, handler HandlerFunc, msgs ...*sarama.ConsumerMessage) (*fakeSession, *tracetest.SpanRecorder) {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer func() {
		require.NoError(t, tp.Shutdown(context.Background()))
	}()

	h := &saramaHandler{handler: handler, logger: zap.NewNop(), tracer: tp.Tracer("test")}

	claim := &fakeClaim{messages: make(chan *sarama.ConsumerMessage, len(msgs))}
	for _, msg := range msgs {
		claim.messages <- msg
	}
	close(claim.messages)

	session := &fakeSession{ctx: context.Background()}
	require.NoError(t, h.ConsumeClaim(session, claim))

	return session, recorder
}

func TestConsumeClaim_EndsOneSpanPerMessage(t *testing.T) {
	msgs := []*sarama.ConsumerMessage{
		{Topic: "order.created", Offset: 1, Value: []byte("{}")},
		{Topic: "order.created", Offset: 2, Value: []byte("{}")},
	}

	session, recorder := runClaim(t, func(ctx context.Context, msg *sarama.ConsumerMessage) error {
		return nil
	}, msgs...)

	require.Len(t, session.marked, 2)
	require.Len(t, recorder.Started(), 2)
	require.Len(t, recorder.Ended(), 2)
}

func TestConsumeClaim_HandlerFailureStillMarksAndEndsSpan(t *testing.T) {
	msg := &sarama.ConsumerMessage{Topic: "order.created", Offset: 7, Value: []byte("{}")}

	session, recorder := runClaim(t, func(ctx context.Context, m *sarama.ConsumerMessage) error {
		return errors.New("handler exploded")
	}, msg)

	require.Len(t, session.marked, 1)

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	require.NotEmpty(t, ended[0].Events(), "handler error should be recorded on the span")
}
