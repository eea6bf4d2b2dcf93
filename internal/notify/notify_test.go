package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecohood/points-ledger/internal/config"
	"github.com/ecohood/points-ledger/internal/metrics"
	"github.com/ecohood/points-ledger/pkg/logger"
	"github.com/ecohood/points-ledger/test/mocks"
)

func newInbox(t *testing.T, maxItems int64) (*RedisInbox, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisInbox(client, &config.RedisInboxConfig{
		Enabled:   true,
		KeyPrefix: "points:",
		MaxItems:  maxItems,
		Channel:   "points:notifications",
	}), mr
}

func TestRedisInboxNotify(t *testing.T) {
	inbox, mr := newInbox(t, 10)
	ctx := context.Background()

	require.NoError(t, inbox.Notify(ctx, 7, "Pickup completed", "+40 points"))
	require.NoError(t, inbox.Notify(ctx, 7, "Voucher redeemed", "-500 points"))

	items, err := mr.List("points:inbox:7")
	require.NoError(t, err)
	assert.Len(t, items, 2)

	list, err := inbox.List(ctx, 7, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Voucher redeemed", list[0].Title)
	assert.Equal(t, "Pickup completed", list[1].Title)
	assert.Equal(t, uint(7), list[0].UserID)
	assert.NotEmpty(t, list[0].ID)
}

func TestRedisInboxTrimsToMaxItems(t *testing.T) {
	inbox, _ := newInbox(t, 3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, inbox.Notify(ctx, 1, "n", "c"))
	}

	list, err := inbox.List(ctx, 1, 10)
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestRedisInboxPublishes(t *testing.T) {
	inbox, mr := newInbox(t, 10)
	ctx := context.Background()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	sub := client.Subscribe(ctx, "points:notifications")
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, inbox.Notify(ctx, 3, "Badge granted", "Green Hero"))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)

	var n Notification
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &n))
	assert.Equal(t, uint(3), n.UserID)
	assert.Equal(t, "Badge granted", n.Title)
}

func TestRedisInboxUnavailable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	defer client.Close()
	inbox := NewRedisInbox(client, &config.RedisInboxConfig{KeyPrefix: "points:"})

	err := inbox.Notify(context.Background(), 1, "t", "c")
	assert.Error(t, err)
}

func TestWebhookNotify(t *testing.T) {
	var got Message
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	hook := NewWebhook(&config.WebhookConfig{
		URL:      server.URL,
		Channel:  "crew",
		Username: "Points Bot",
		Enabled:  true,
	}, logger.Nop())

	require.NoError(t, hook.Notify(context.Background(), 42, "Pickup completed", "+40 points"))
	assert.Equal(t, "crew", got.Channel)
	assert.Equal(t, "Points Bot", got.Username)
	assert.Contains(t, got.Text, "Pickup completed")
	assert.Contains(t, got.Text, "#42")
}

func TestWebhookErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	hook := NewWebhook(&config.WebhookConfig{URL: server.URL, Enabled: true}, logger.Nop())
	err := hook.Notify(context.Background(), 1, "t", "c")
	assert.ErrorContains(t, err, "502")
}

func TestWebhookDisabled(t *testing.T) {
	hook := NewWebhook(&config.WebhookConfig{URL: "http://127.0.0.1:1", Enabled: false}, logger.Nop())
	assert.NoError(t, hook.Notify(context.Background(), 1, "t", "c"))
}

func TestMultiNotify(t *testing.T) {
	metrics.NotificationsSentTotal.Reset()
	metrics.NotificationsFailedTotal.Reset()

	ok := mocks.NewMockDispatcher()
	broken := mocks.NewMockDispatcher()
	broken.Err = errors.New("unreachable")

	multi := NewMulti(logger.Nop()).Add("ok", ok).Add("broken", broken)
	assert.Equal(t, 2, multi.Len())

	err := multi.Notify(context.Background(), 5, "Redemption completed", "done")
	assert.ErrorContains(t, err, "unreachable")
	assert.Equal(t, 1, ok.Count())
	assert.Equal(t, 1, broken.Count())

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.NotificationsSentTotal.WithLabelValues("ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.NotificationsFailedTotal.WithLabelValues("broken")))
}

func TestSendSwallowsErrors(t *testing.T) {
	broken := mocks.NewMockDispatcher()
	broken.Err = errors.New("boom")

	assert.NotPanics(t, func() {
		Send(context.Background(), broken, logger.Nop(), 1, "t", "c")
		Send(context.Background(), nil, logger.Nop(), 1, "t", "c")
	})
	assert.Equal(t, 1, broken.Count())
}
