package poller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"notifier/internal/notify"
	"notifier/internal/notify/metrics"
	"notifier/internal/notify/mgmt"
)

// fakeBroker emulates the management API's queue listing and message fetch,
// honoring the removal semantics of each ack mode.
type fakeBroker struct {
	mu     sync.Mutex
	queues map[string][]mgmt.Message
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{queues: map[string][]mgmt.Message{}}
}

func (b *fakeBroker) add(queue, routingKey string, payload map[string]any) {
	b.mu.Lock()
	defer b.mu.Unlock()

	body, _ := json.Marshal(payload)
	b.queues[queue] = append(b.queues[queue], mgmt.Message{
		Payload:         string(body),
		PayloadEncoding: "string",
		Properties:      mgmt.MessageProperties{RoutingKey: routingKey},
	})
}

func (b *fakeBroker) depth(queue string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queues[queue])
}

func (b *fakeBroker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if r.Method == http.MethodGet && r.URL.Path == "/api/queues" {
		var listed []mgmt.Queue
		for name := range b.queues {
			listed = append(listed, mgmt.Queue{Name: name})
		}
		listed = append(listed, mgmt.Queue{Name: "unrelated_queue"})
		_ = json.NewEncoder(w).Encode(listed)
		return
	}

	if r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/get") {
		parts := strings.Split(r.URL.EscapedPath(), "/")
		queue := parts[len(parts)-2]

		var req struct {
			AckMode string `json:"ackmode"`
			Count   int    `json:"count"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		messages := b.queues[queue]
		if req.Count < len(messages) {
			messages = messages[:req.Count]
		}
		if req.AckMode == string(mgmt.AckRequeueFalse) {
			b.queues[queue] = b.queues[queue][len(messages):]
		}

		_ = json.NewEncoder(w).Encode(messages)
		return
	}

	http.NotFound(w, r)
}

type recordingDispatcher struct {
	mu    sync.Mutex
	calls []string
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, email, eventType string, payload map[string]any) (notify.Outcome, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, email+"/"+eventType)
	return notify.OutcomeSent, nil
}

func testPoller(t *testing.T, broker *fakeBroker, dispatcher notify.Dispatcher, mode mgmt.AckMode) *Poller {
	t.Helper()

	srv := httptest.NewServer(broker)
	t.Cleanup(srv.Close)

	client, err := mgmt.NewClient(mgmt.Config{
		URL:      srv.URL,
		Username: "guest",
		Password: "guest",
		Vhost:    "/",
		Timeout:  time.Second,
	}, "")
	require.NoError(t, err)

	p, err := NewPoller(Config{BatchSize: 100, AckMode: mode}, client, dispatcher, metrics.NewRegistry(), zap.NewNop())
	require.NoError(t, err)

	return p
}

func TestPollDispatchesAndRemovesMessages(t *testing.T) {
	broker := newFakeBroker()
	broker.add(notify.QueueAuth, "auth.signup", map[string]any{"email": "a@example.com"})
	broker.add(notify.QueueAuth, "auth.login", map[string]any{"email": "a@example.com"})
	broker.add(notify.QueuePayment, "payment.success", map[string]any{"email": "b@example.com"})

	dispatcher := &recordingDispatcher{}
	p := testPoller(t, broker, dispatcher, mgmt.AckRequeueFalse)

	processed, err := p.Poll(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, processed)
	assert.ElementsMatch(t, []string{
		"a@example.com/auth.signup",
		"a@example.com/auth.login",
		"b@example.com/payment.success",
	}, dispatcher.calls)
	assert.Zero(t, broker.depth(notify.QueueAuth))
	assert.Zero(t, broker.depth(notify.QueuePayment))

	// The queues are drained; a second poll finds nothing.
	processed, err = p.Poll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, processed)
	assert.Len(t, dispatcher.calls, 3)
}

func TestPollWithRequeueModeRefetchesSameMessages(t *testing.T) {
	broker := newFakeBroker()
	broker.add(notify.QueueAuth, "auth.signup", map[string]any{"email": "a@example.com"})

	dispatcher := &recordingDispatcher{}
	p := testPoller(t, broker, dispatcher, mgmt.AckRequeueTrue)

	for range 3 {
		processed, err := p.Poll(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, processed)
	}

	// The message never leaves the queue, so each poll re-dispatches it.
	assert.Len(t, dispatcher.calls, 3)
	assert.Equal(t, 1, broker.depth(notify.QueueAuth))
}

func TestPollSkipsMessagesWithoutRecipient(t *testing.T) {
	broker := newFakeBroker()
	broker.add(notify.QueueAuth, "auth.signup", map[string]any{"user_id": "u-1"})
	broker.add(notify.QueueAuth, "auth.login", map[string]any{"email": "a@example.com"})

	dispatcher := &recordingDispatcher{}
	p := testPoller(t, broker, dispatcher, mgmt.AckRequeueFalse)

	processed, err := p.Poll(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, processed)
	assert.Equal(t, []string{"a@example.com/auth.login"}, dispatcher.calls)
}

func TestPollIgnoresUnrelatedQueues(t *testing.T) {
	broker := newFakeBroker()
	broker.add("unrelated_queue", "other.thing", map[string]any{"email": "a@example.com"})

	dispatcher := &recordingDispatcher{}
	p := testPoller(t, broker, dispatcher, mgmt.AckRequeueFalse)

	processed, err := p.Poll(context.Background())

	require.NoError(t, err)
	assert.Zero(t, processed)
	assert.Empty(t, dispatcher.calls)
	assert.Equal(t, 1, broker.depth("unrelated_queue"))
}

func TestNewPollerRejectsInvalidAckMode(t *testing.T) {
	_, err := NewPoller(Config{AckMode: "reject_requeue_true"}, nil, nil, nil, zap.NewNop())

	require.Error(t, err)
}

func TestPollSkipsWhenPreviousPollStillRunning(t *testing.T) {
	dispatcher := &recordingDispatcher{}
	p := testPoller(t, newFakeBroker(), dispatcher, mgmt.AckRequeueFalse)

	p.running.Store(true)
	processed, err := p.Poll(context.Background())

	require.NoError(t, err)
	assert.Zero(t, processed)
}
