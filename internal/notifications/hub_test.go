package notifications

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	"github.com/nguyenvh/custodesk/internal/models"
)

func dialHub(t *testing.T, hub *Hub, username string) *websocket.Conn {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(username, w, r)
	}))
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, err := websocket.Dial(wsURL, "", "http://localhost/")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	waitForConnection(t, hub, username)
	return conn
}

func waitForConnection(t *testing.T, hub *Hub, username string) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, u := range hub.ConnectedUsers() {
			if u == username {
				return
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("connection for %s never registered", username)
}

func receiveEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event Event
	require.NoError(t, websocket.JSON.Receive(conn, &event))
	return event
}

func TestHubNotifyUserReachesLiveSession(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub, "lan.tran")

	notification := models.Notification{RecipientUsername: "lan.tran", Title: "Nhắc việc"}
	hub.NotifyUser("lan.tran", notification)

	event := receiveEvent(t, conn)
	require.Equal(t, EventNotificationNew, event.Event)
	require.NotNil(t, event.Notification)
	require.Equal(t, "Nhắc việc", event.Notification.Title)
}

func TestHubSessionSurvivesClientFrames(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub, "lan.tran")

	// A chatty dashboard must not be dropped; each frame refreshes the
	// server-side idle deadline.
	for i := 0; i < 3; i++ {
		require.NoError(t, websocket.JSON.Send(conn, map[string]string{"type": "ping"}))
		time.Sleep(20 * time.Millisecond)
	}

	hub.Broadcast("lan.tran", Event{Event: EventNotificationRead, NotificationID: "n-1"})

	event := receiveEvent(t, conn)
	require.Equal(t, EventNotificationRead, event.Event)
	require.Equal(t, "n-1", event.NotificationID)
}

func TestHubBroadcastSkipsOtherUsers(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub, "lan.tran")

	hub.Broadcast("minh.le", Event{Event: EventNotificationSeen, NotificationID: "other"})
	hub.Broadcast("lan.tran", Event{Event: EventNotificationSeen, NotificationID: "mine"})

	event := receiveEvent(t, conn)
	require.Equal(t, "mine", event.NotificationID)
}

func TestHubRemovesDisconnectedClient(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub, "lan.tran")

	require.NoError(t, conn.Close())

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(hub.ConnectedUsers()) == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("disconnected client was never deregistered")
}
