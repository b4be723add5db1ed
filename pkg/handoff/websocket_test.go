package handoff

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/grovetools/traceport/errors"
	"github.com/grovetools/traceport/pkg/uilog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bridgeServer plays the viewer side: it answers the third PING with PONG
// and hands the payload frame to the test.
func bridgeServer(t *testing.T, origin string, payloads chan<- envelope) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		pings := 0
		for {
			var env envelope
			if err := conn.ReadJSON(&env); err != nil {
				return
			}
			var token string
			if json.Unmarshal(env.Data, &token) == nil && token == ProbeToken {
				pings++
				if pings == 3 {
					_ = conn.WriteJSON(envelope{Origin: "https://elsewhere.example", Data: json.RawMessage(`"PONG"`)})
					_ = conn.WriteJSON(envelope{Origin: origin, Data: json.RawMessage(`"PONG"`)})
				}
				continue
			}
			payloads <- env
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWebSocketHandoff(t *testing.T) {
	const origin = "https://ui.perfetto.dev"
	payloads := make(chan envelope, 1)
	srv := bridgeServer(t, origin, payloads)
	defer srv.Close()

	rec := &uilog.Recorder{}
	cfg := Config{Origin: origin, ProbeInterval: 5 * time.Millisecond}
	s := New(&WebSocketOpener{Endpoint: wsURL(srv)}, cfg, rec).Start(context.Background(), []byte("trace-bytes"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Wait(ctx))
	assert.Equal(t, Done, s.State())

	select {
	case env := <-payloads:
		assert.Equal(t, origin, env.TargetOrigin)
		var p Payload
		require.NoError(t, json.Unmarshal(env.Data, &p))
		assert.Equal(t, []byte("trace-bytes"), p.Perfetto.Buffer)
		assert.Equal(t, DefaultTitle, p.Perfetto.Title)
		assert.Equal(t, "-", p.Perfetto.URL)
	case <-time.After(2 * time.Second):
		t.Fatal("bridge never received the payload")
	}
	assert.Equal(t, 1, rec.Count(uilog.LevelSuccess))
}

func TestWebSocketUnreachableIsBlocked(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := wsURL(srv)
	srv.Close()

	s := New(&WebSocketOpener{Endpoint: endpoint}, Config{}, nil).Start(context.Background(), []byte{1})
	err := s.Wait(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeHandoffBlocked))
	assert.Equal(t, BlockedPopup, s.State())
}

func TestWebSocketTargetRejectsOtherOrigins(t *testing.T) {
	payloads := make(chan envelope, 1)
	srv := bridgeServer(t, DefaultOrigin, payloads)
	defer srv.Close()

	target, err := (&WebSocketOpener{Endpoint: wsURL(srv)}).Open(context.Background(), DefaultOrigin)
	require.NoError(t, err)
	defer closeTarget(target)

	err = target.PostMessage(ProbeToken, "https://other.example")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match")
}
