package live

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-dashboard/src/helpers"
)

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWebsocketTransportRoundTrip(t *testing.T) {
	received := make(chan []byte, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()

		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		received <- data

		_ = ws.WriteMessage(websocket.TextMessage, []byte(`{"state":{"mid":1}}`))
		_ = ws.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
		time.Sleep(50 * time.Millisecond)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := NewWebsocketTransport().Dial(ctx, wsURL(srv))
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(helloMessage(7)))
	select {
	case data := <-received:
		assert.JSONEq(t, `{"type":"hello","client":"dashboard","ts":7}`, string(data))
	case <-time.After(5 * time.Second):
		t.Fatal("server never received the greeting")
	}

	data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"state":{"mid":1}}`, string(data))

	_, err = conn.ReadMessage()
	assert.ErrorIs(t, err, ErrConnClosed)
}

func TestWebsocketTransportDialFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := NewWebsocketTransport().Dial(context.Background(), wsURL(srv))

	require.Error(t, err)
	var chErr *helpers.ChannelError
	assert.True(t, errors.As(err, &chErr))
	assert.Contains(t, err.Error(), "404")
}
