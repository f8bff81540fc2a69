package realtime

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flicky/farm-market-api/internal/model"
)

func newTestServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(r.URL.Query().Get("user"))
		if err != nil {
			http.Error(w, "bad user", http.StatusBadRequest)
			return
		}
		_ = hub.Attach(w, r, id)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, userID uuid.UUID, header http.Header) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?user=" + userID.String()
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	var hello Frame
	require.NoError(t, conn.ReadJSON(&hello))
	require.Equal(t, "connected", hello.Type)
	return conn
}

func TestHub_PublishReachesParticipantsOnly(t *testing.T) {
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	srv := newTestServer(t, hub)

	alice, bob, eve := uuid.New(), uuid.New(), uuid.New()
	aliceConn := dial(t, srv, alice, nil)
	bobConn := dial(t, srv, bob, nil)
	eveConn := dial(t, srv, eve, nil)

	msg := model.Message{ID: uuid.New(), ChatID: uuid.New(), SenderID: alice, Content: "hi", Kind: model.MessageKindText, CreatedAt: time.Now()}
	hub.Publish([]uuid.UUID{alice, bob}, msg)

	for _, conn := range []*websocket.Conn{aliceConn, bobConn} {
		var f Frame
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		require.NoError(t, conn.ReadJSON(&f))
		assert.Equal(t, "message", f.Type)
		require.NotNil(t, f.Message)
		assert.Equal(t, msg.ID, f.Message.ID)
		assert.Equal(t, "hi", f.Message.Content)
	}

	require.NoError(t, eveConn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	var f Frame
	assert.Error(t, eveConn.ReadJSON(&f))
}

func TestHub_DisconnectUnregisters(t *testing.T) {
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	srv := newTestServer(t, hub)

	user := uuid.New()
	conn := dial(t, srv, user, nil)
	assert.Equal(t, 1, hub.Connections(user))

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.Connections(user) == 0 }, 2*time.Second, 10*time.Millisecond)

	// Publishing to a user with no connections is a no-op.
	hub.Publish([]uuid.UUID{user}, model.Message{ID: uuid.New()})
}

func TestHub_RejectsUnknownOrigin(t *testing.T) {
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)), []string{"http://market.example"})
	srv := newTestServer(t, hub)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?user=" + uuid.New().String()
	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"http://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	dial(t, srv, uuid.New(), http.Header{"Origin": {"http://market.example"}})
}
