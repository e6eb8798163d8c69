package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEvent() Event {
	return Event{
		Type:      EventBetSettled,
		Bettor:    "UserAB12",
		Stake:     100_000,
		Payout:    2_000_000,
		IsWin:     true,
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestPseudonym(t *testing.T) {
	id := uuid.MustParse("ab12cd34-0000-4000-8000-000000000000")
	assert.Equal(t, "UserAB12", Pseudonym(id))
}

func TestEventOmitsAccountData(t *testing.T) {
	b, err := json.Marshal(sampleEvent())
	require.NoError(t, err)
	assert.NotContains(t, string(b), "account")
	assert.Contains(t, string(b), `"bettor":"UserAB12"`)
}

func TestBusDeliversAndDrops(t *testing.T) {
	bus := NewBus(1)
	ch, cancel := bus.Subscribe()
	defer cancel()

	require.NoError(t, bus.Publish(context.Background(), sampleEvent()))
	// Buffer is full, so this one is dropped instead of blocking.
	require.NoError(t, bus.Publish(context.Background(), sampleEvent()))

	got := <-ch
	assert.Equal(t, "UserAB12", got.Bettor)
	select {
	case <-ch:
		t.Fatal("expected the second event to be dropped")
	default:
	}

	cancel()
	cancel()
	_, open := <-ch
	assert.False(t, open)
}

func TestRedisPublisher(t *testing.T) {
	client, mock := redismock.NewClientMock()
	p := NewRedisPublisher(client, "")
	e := sampleEvent()
	payload, err := json.Marshal(e)
	require.NoError(t, err)

	mock.ExpectPublish(DefaultLiveFeedChannel, payload).SetVal(1)
	require.NoError(t, p.Publish(context.Background(), e))

	mock.ExpectPublish(DefaultLiveFeedChannel, payload).SetErr(errors.New("connection refused"))
	err = p.Publish(context.Background(), e)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis publish")

	assert.NoError(t, mock.ExpectationsWereMet())
}

type captureWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *captureWriter) Close() error { return nil }

func TestKafkaPublisher(t *testing.T) {
	w := &captureWriter{}
	p := NewKafkaPublisher(w)

	require.NoError(t, p.Publish(context.Background(), sampleEvent()))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "UserAB12", string(w.msgs[0].Key))
	require.Len(t, w.msgs[0].Headers, 1)
	assert.Equal(t, EventBetSettled, string(w.msgs[0].Headers[0].Value))

	var got Event
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, sampleEvent(), got)

	w.err = errors.New("broker down")
	require.Error(t, p.Publish(context.Background(), sampleEvent()))
}

type failingNotifier struct{}

func (failingNotifier) Publish(context.Context, Event) error { return errors.New("boom") }

func TestMultiContinuesPastFailures(t *testing.T) {
	bus := NewBus(4)
	ch, cancel := bus.Subscribe()
	defer cancel()

	err := Multi{failingNotifier{}, nil, bus}.Publish(context.Background(), sampleEvent())
	require.Error(t, err)
	assert.Equal(t, "UserAB12", (<-ch).Bettor)
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub(func(*http.Request) bool { return true })
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))
	var pong map[string]string
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&pong))
	assert.Equal(t, "pong", pong["type"])

	require.NoError(t, hub.Publish(context.Background(), sampleEvent()))
	var got Event
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, sampleEvent(), got)

	conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func dialHub(t *testing.T, url string, hub *Hub, want int) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.Eventually(t, func() bool { return hub.ClientCount() == want }, 2*time.Second, 10*time.Millisecond)
	return conn
}

func TestHubPublishDoesNotWaitOnStalledClient(t *testing.T) {
	hub := NewHub(func(*http.Request) bool { return true })
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	// Connected but never reads.
	dialHub(t, url, hub, 1)

	start := time.Now()
	for i := 0; i < 20_000; i++ {
		require.NoError(t, hub.Publish(context.Background(), sampleEvent()))
	}
	assert.Less(t, time.Since(start), writeWait)

	healthy := dialHub(t, url, hub, 2)
	require.NoError(t, hub.Publish(context.Background(), sampleEvent()))
	var got Event
	require.NoError(t, healthy.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, healthy.ReadJSON(&got))
	assert.Equal(t, sampleEvent(), got)
}

func TestHubDropsWhenClientQueueIsFull(t *testing.T) {
	hub := NewHub(nil)
	c := newClient(nil)
	hub.clients[c] = struct{}{}

	for i := 0; i < sendBuffer+3; i++ {
		require.NoError(t, hub.Publish(context.Background(), sampleEvent()))
	}
	assert.Len(t, c.send, sendBuffer)
	assert.Equal(t, int64(3), hub.Dropped())
}

type collectingNotifier struct {
	mu     sync.Mutex
	events []Event
}

func (c *collectingNotifier) Publish(_ context.Context, e Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return nil
}

func (c *collectingNotifier) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func TestRelayForwardsUntilCancelled(t *testing.T) {
	bus := NewBus(4)
	sink := &collectingNotifier{}
	ctx, cancel := context.WithCancel(context.Background())
	Relay(ctx, bus, sink)

	require.NoError(t, bus.Publish(context.Background(), sampleEvent()))
	require.Eventually(t, func() bool { return sink.count() == 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
}
