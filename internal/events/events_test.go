package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	p := NewLogPublisher(slog.New(slog.NewJSONHandler(&buf, nil)))

	err := p.Publish(context.Background(), Event{
		ID:            "e1",
		Name:          Confirmed,
		ReservationID: "r1",
		Status:        "CONFIRMED",
		Amount:        9000,
		Currency:      "INR",
	})
	require.NoError(t, err)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, Confirmed, line["event"])
	assert.Equal(t, "r1", line["reservation_id"])
}

func TestEventJSONOmitsEmptyReason(t *testing.T) {
	body, err := json.Marshal(Event{Name: Cancelled, OccurredAt: time.Unix(0, 0).UTC()})
	require.NoError(t, err)
	assert.NotContains(t, string(body), "reason")
}

func TestAMQPPublisher(t *testing.T) {
	url := os.Getenv("AMQP_URL")
	if url == "" {
		t.Skip("AMQP_URL not set")
	}

	p, err := NewAMQPPublisher(url, "reservation.events.test")
	require.NoError(t, err)
	defer p.Close()

	err = p.Publish(context.Background(), Event{ID: "e1", Name: HoldReleased, OccurredAt: time.Now().UTC()})
	assert.NoError(t, err)
}

type fakeChannel struct {
	closed    bool
	failNext  bool
	published []string
}

func (c *fakeChannel) PublishWithContext(_ context.Context, _, key string, _, _ bool, _ amqp.Publishing) error {
	if c.closed || c.failNext {
		c.closed = true
		return amqp.ErrClosed
	}
	c.published = append(c.published, key)
	return nil
}

func (c *fakeChannel) IsClosed() bool { return c.closed }

func (c *fakeChannel) Close() error {
	c.closed = true
	return nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func newFakePublisher(channels ...*fakeChannel) (*AMQPPublisher, *int) {
	dials := 0
	p := &AMQPPublisher{
		exchange: "reservation.events",
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	p.dial = func() (*amqpSession, error) {
		if dials >= len(channels) {
			dials++
			return nil, errors.New("connection refused")
		}
		ch := channels[dials]
		dials++
		return &amqpSession{conn: nopCloser{}, ch: ch}, nil
	}
	return p, &dials
}

func TestAMQPPublisherRedialsClosedChannel(t *testing.T) {
	first, second := &fakeChannel{}, &fakeChannel{}
	p, dials := newFakePublisher(first, second)
	ctx := context.Background()

	require.NoError(t, p.Publish(ctx, Event{Name: PaymentInitiated}))
	assert.Equal(t, 1, *dials)

	// Broker drops the channel.
	first.closed = true

	require.NoError(t, p.Publish(ctx, Event{Name: Confirmed}))
	assert.Equal(t, 2, *dials)
	assert.Equal(t, []string{PaymentInitiated}, first.published)
	assert.Equal(t, []string{Confirmed}, second.published)
}

func TestAMQPPublisherRetriesOnceWhenPublishHitsClosedChannel(t *testing.T) {
	first, second := &fakeChannel{failNext: true}, &fakeChannel{}
	p, dials := newFakePublisher(first, second)

	require.NoError(t, p.Publish(context.Background(), Event{Name: Cancelled}))
	assert.Equal(t, 2, *dials)
	assert.Equal(t, []string{Cancelled}, second.published)
}

func TestAMQPPublisherDialFailureRecovers(t *testing.T) {
	good := &fakeChannel{}
	p, dials := newFakePublisher(good)
	ctx := context.Background()

	require.NoError(t, p.Publish(ctx, Event{Name: PaymentInitiated}))
	good.closed = true

	err := p.Publish(ctx, Event{Name: Confirmed})
	assert.ErrorContains(t, err, "connection refused")
	assert.Nil(t, p.session)
	assert.Equal(t, 2, *dials)
}

func TestAMQPPublisherDropOnBrokerClose(t *testing.T) {
	ch := &fakeChannel{}
	p, _ := newFakePublisher(ch)
	require.NoError(t, p.Publish(context.Background(), Event{Name: PaymentInitiated}))

	closed := make(chan *amqp.Error, 1)
	closed <- &amqp.Error{Code: amqp.ConnectionForced, Reason: "broker restart"}
	p.watch(p.session, closed)

	assert.Nil(t, p.session)
}

func TestAMQPPublisherClose(t *testing.T) {
	ch := &fakeChannel{}
	p, _ := newFakePublisher(ch)
	require.NoError(t, p.Publish(context.Background(), Event{Name: PaymentInitiated}))

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
	assert.ErrorIs(t, p.Publish(context.Background(), Event{Name: Confirmed}), ErrPublisherClosed)
}
