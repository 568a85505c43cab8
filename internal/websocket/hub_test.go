package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/bingo-game/internal/errors"
	"github.com/wfunc/bingo-game/internal/game"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeSessions struct{}

func (fakeSessions) PlayerView(_ context.Context, sessionID, playerID string) (*game.PlayerView, error) {
	if sessionID != "s1" {
		return nil, errors.New(errors.ErrSessionNotFound)
	}
	return &game.PlayerView{SessionID: sessionID, Status: game.StatusReady, Joined: playerID == "alice"}, nil
}

func (fakeSessions) MarkNumber(_ context.Context, sessionID, playerID string, number int) (*game.MarkResult, error) {
	if number != 7 {
		return nil, errors.New(errors.ErrNumberNotDrawn)
	}
	return &game.MarkResult{SessionID: sessionID, PlayerID: playerID, Number: number, Marked: 2}, nil
}

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()

	hub := NewHub(HubConfig{}, zap.NewNop())
	hub.SetMessageHandler(NewBingoMessageHandler(fakeSessions{}, nil))
	go hub.Run()

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient(hub, conn, r.URL.Query().Get("player_id"), r.URL.Query().Get("session_id"))
		hub.Register(client)
		go client.WritePump()
		go client.ReadPump()
	}))

	t.Cleanup(func() {
		server.Close()
		hub.Stop()
	})
	return hub, server
}

func dial(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/?" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHub_PublishReachesSubscribers(t *testing.T) {
	hub, server := startHub(t)

	subscriber := dial(t, server, "player_id=alice&session_id=s1")
	assert.Equal(t, MessageTypeConnected, readMessage(t, subscriber).Type)

	other := dial(t, server, "player_id=bob&session_id=s2")
	assert.Equal(t, MessageTypeConnected, readMessage(t, other).Type)

	assert.Equal(t, 2, hub.GetOnlineCount())
	assert.Equal(t, 1, hub.SubscriberCount("s1"))

	hub.Publish(context.Background(), game.Topic("s1"), game.Notification{
		Kind:      game.NotifyNumberCalled,
		Payload:   map[string]interface{}{"number": 42},
		Timestamp: time.Now(),
	})

	msg := readMessage(t, subscriber)
	assert.Equal(t, string(game.NotifyNumberCalled), msg.Type)
	assert.Equal(t, "s1", msg.SessionID)
	assert.JSONEq(t, `{"number":42}`, string(msg.Data))

	// 其他会话的客户端收不到
	require.NoError(t, other.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := other.ReadMessage()
	assert.Error(t, err)
}

func TestHub_SubscribeAndState(t *testing.T) {
	hub, server := startHub(t)

	conn := dial(t, server, "player_id=alice")
	assert.Equal(t, MessageTypeConnected, readMessage(t, conn).Type)

	require.NoError(t, conn.WriteJSON(Message{Type: MessageTypePing}))
	assert.Equal(t, MessageTypePong, readMessage(t, conn).Type)

	// 未订阅时查询状态报错
	require.NoError(t, conn.WriteJSON(Message{Type: MessageTypeState}))
	assert.Equal(t, MessageTypeError, readMessage(t, conn).Type)

	require.NoError(t, conn.WriteJSON(Message{Type: MessageTypeSubscribe, SessionID: "s1"}))
	ack := readMessage(t, conn)
	assert.Equal(t, MessageTypeSubscribe, ack.Type)
	assert.Equal(t, "s1", ack.SessionID)
	assert.Equal(t, 1, hub.SubscriberCount("s1"))

	require.NoError(t, conn.WriteJSON(Message{Type: MessageTypeState}))
	state := readMessage(t, conn)
	require.Equal(t, MessageTypeState, state.Type)
	var view game.PlayerView
	require.NoError(t, json.Unmarshal(state.Data, &view))
	assert.Equal(t, "s1", view.SessionID)
	assert.True(t, view.Joined)

	require.NoError(t, conn.WriteJSON(Message{Type: MessageTypeMark, Data: json.RawMessage(`{"number":7}`)}))
	mark := readMessage(t, conn)
	require.Equal(t, MessageTypeMark, mark.Type)
	assert.Contains(t, string(mark.Data), `"marked":2`)

	require.NoError(t, conn.WriteJSON(Message{Type: MessageTypeMark, Data: json.RawMessage(`{"number":8}`)}))
	failed := readMessage(t, conn)
	require.Equal(t, MessageTypeError, failed.Type)
	assert.Contains(t, string(failed.Data), `"kind":"validation"`)

	// 缺少参数同样按校验错误返回
	require.NoError(t, conn.WriteJSON(Message{Type: MessageTypeMark}))
	malformed := readMessage(t, conn)
	require.Equal(t, MessageTypeError, malformed.Type)
	assert.Contains(t, string(malformed.Data), `"kind":"validation"`)

	// 切换订阅后旧会话不再有订阅者
	require.NoError(t, conn.WriteJSON(Message{Type: MessageTypeSubscribe, SessionID: "s2"}))
	readMessage(t, conn)
	assert.Equal(t, 0, hub.SubscriberCount("s1"))
	assert.Equal(t, 1, hub.SubscriberCount("s2"))
}

func TestHub_SendToSessionWithoutSubscribers(t *testing.T) {
	hub := NewHub(DefaultHubConfig(), nil)
	err := hub.SendToSession("nobody", &Message{Type: MessageTypeState})
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, hub.SendToClient("missing", &Message{Type: MessageTypeState}), ErrClientNotFound)
}

func TestHub_DeliverIgnoresOnlyMissingSubscribers(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	hub := NewHub(DefaultHubConfig(), zap.New(core))

	hub.Publish(context.Background(), game.Topic("nobody"), game.Notification{
		Kind:    game.NotifyNumberCalled,
		Payload: map[string]int{"number": 1},
	})
	assert.Zero(t, logs.Len())

	hub.deliver("nobody", &Message{Type: "number_called", Data: json.RawMessage(`{"number":`)})
	entries := logs.FilterMessage("推送会话消息失败").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "nobody", entries[0].ContextMap()["session_id"])
}
