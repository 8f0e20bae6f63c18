package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gator-forum/internal/events"
	"gator-forum/internal/logging"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(logging.Discard())
	go hub.Run(ctx)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := uuid.Parse(r.URL.Query().Get("user"))
		if err != nil {
			http.Error(w, "bad user", http.StatusBadRequest)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Attach(userID, conn)
	}))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, userID uuid.UUID) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?user=" + userID.String()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readNotification(t *testing.T, conn *websocket.Conn) Notification {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var n Notification
	require.NoError(t, json.Unmarshal(data, &n))
	return n
}

func TestHubBroadcastsAndNotifiesOwner(t *testing.T) {
	hub, srv := startHub(t)
	owner := uuid.New()
	watcher := uuid.New()

	ownerConn := dial(t, srv, owner)
	watcherConn := dial(t, srv, watcher)
	require.Eventually(t, func() bool { return hub.Connections() == 2 }, 2*time.Second, 10*time.Millisecond)

	event := events.New(events.PostVoted, uuid.New(), uuid.New()).WithOwner(owner)
	require.NoError(t, hub.Publish(context.Background(), event))

	got := readNotification(t, watcherConn)
	assert.False(t, got.Direct)
	assert.Equal(t, events.PostVoted, got.Event.Kind)

	first := readNotification(t, ownerConn)
	second := readNotification(t, ownerConn)
	assert.ElementsMatch(t, []bool{false, true}, []bool{first.Direct, second.Direct})
}

func TestHubSkipsDirectForOwnActions(t *testing.T) {
	hub, srv := startHub(t)
	owner := uuid.New()
	conn := dial(t, srv, owner)
	require.Eventually(t, func() bool { return hub.Connections() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Publish(context.Background(), events.New(events.PostEdited, uuid.New(), owner).WithOwner(owner)))
	got := readNotification(t, conn)
	assert.False(t, got.Direct)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err, "no second message expected")
}

func TestHubUnregistersClosedClients(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv, uuid.New())
	require.Eventually(t, func() bool { return hub.Connections() == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.Connections() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestPublishAfterShutdownReturnsImmediately(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(logging.Discard())
	go hub.Run(ctx)
	cancel()
	<-hub.done

	// Far more events than the queues can buffer, each with an owner copy.
	start := time.Now()
	for i := 0; i < 200; i++ {
		event := events.New(events.PostVoted, uuid.New(), uuid.New()).WithOwner(uuid.New())
		require.NoError(t, hub.Publish(context.Background(), event))
	}
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}
