package handoff

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeTimeout = 10 * time.Second

// envelope is the frame exchanged with a viewer bridge. The bridge relays
// Data to the viewer window with postMessage and reports the window's
// messages back with the origin the browser attributed them to.
type envelope struct {
	Origin       string          `json:"origin,omitempty"`
	TargetOrigin string          `json:"target_origin,omitempty"`
	Data         json.RawMessage `json:"data"`
}

// WebSocketOpener reaches the viewer through a bridge listening on Endpoint.
type WebSocketOpener struct {
	Endpoint string
	Header   http.Header
	Dialer   *websocket.Dialer
}

// Open dials the bridge. Any dial failure is reported as an unreachable
// context.
func (o *WebSocketOpener) Open(ctx context.Context, origin string) (Target, error) {
	dialer := o.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, _, err := dialer.DialContext(ctx, o.Endpoint, o.Header)
	if err != nil {
		return nil, fmt.Errorf("dial viewer bridge %s: %w", o.Endpoint, err)
	}

	t := &wsTarget{
		conn:      conn,
		origin:    origin,
		listeners: make(map[int]func(Inbound)),
		closed:    make(chan struct{}),
	}
	go t.readLoop()
	return t, nil
}

type wsTarget struct {
	conn   *websocket.Conn
	origin string

	writeMu sync.Mutex // serialises all conn writes

	mu        sync.Mutex
	nextID    int
	listeners map[int]func(Inbound)

	closeOnce sync.Once
	closed    chan struct{}
}

func (t *wsTarget) PostMessage(msg any, targetOrigin string) error {
	if targetOrigin != t.origin {
		return fmt.Errorf("target origin %q does not match viewer origin %q", targetOrigin, t.origin)
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode viewer message: %w", err)
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	t.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return t.conn.WriteJSON(envelope{TargetOrigin: targetOrigin, Data: data})
}

func (t *wsTarget) AddListener(fn func(Inbound)) (remove func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.nextID
	t.nextID++
	t.listeners[id] = fn

	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.listeners, id)
	}
}

func (t *wsTarget) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.closed)
		t.writeMu.Lock()
		_ = t.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		t.writeMu.Unlock()
		err = t.conn.Close()
	})
	return err
}

func (t *wsTarget) readLoop() {
	for {
		_, raw, err := t.conn.ReadMessage()
		if err != nil {
			select {
			case <-t.closed:
			default:
				log.WithError(err).Debug("Viewer bridge read ended")
			}
			return
		}

		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			log.WithError(err).Debug("Dropping malformed bridge frame")
			continue
		}
		var data any
		if len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, &data); err != nil {
				continue
			}
		}
		t.dispatch(Inbound{Origin: env.Origin, Data: data})
	}
}

func (t *wsTarget) dispatch(m Inbound) {
	t.mu.Lock()
	fns := make([]func(Inbound), 0, len(t.listeners))
	for _, fn := range t.listeners {
		fns = append(fns, fn)
	}
	t.mu.Unlock()

	for _, fn := range fns {
		fn(m)
	}
}
