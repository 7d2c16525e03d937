package pipeline

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/GriffinCanCode/arch3d/internal/process"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

var (
	pngBytes  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")
	viewBytes = []byte{0x00, 0x9f, 0x42, 0x17, 0x00, 0x01, 0x02, 0x03}
	glbBytes  = []byte("glTF\x02\x00\x00\x00\x14\x00\x00\x00\x00\x00\x00\x00JSON")
)

// handler scripts one stage of the fake backend.
type handler func(conn *websocket.Conn, request []byte)

// backend is a fake generation server routing /ws/<stage> to handlers.
type backend struct {
	mu       sync.Mutex
	requests map[Stage][][]byte
	handlers map[Stage]handler
}

func newBackend(t *testing.T, overrides map[Stage]handler) (*backend, process.Target) {
	t.Helper()

	b := &backend{
		requests: make(map[Stage][][]byte),
		handlers: map[Stage]handler{
			StageRemoveBackground: reply(pngBytes),
			StageGenerateImage:    reply(pngBytes),
			StageGenerate3DView:   reply(viewBytes),
			StageGenerate3DModel:  reply(glbBytes),
		},
	}
	for s, h := range overrides {
		b.handlers[s] = h
	}

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stage := Stage(strings.TrimPrefix(r.URL.Path, "/ws/"))
		h, ok := b.handlers[stage]
		if !ok {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		b.mu.Lock()
		b.requests[stage] = append(b.requests[stage], data)
		b.mu.Unlock()

		h(conn, data)
	}))
	t.Cleanup(srv.Close)

	target, err := process.ParseTarget(srv.URL)
	require.NoError(t, err)
	return b, target
}

func (b *backend) received(stage Stage) [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([][]byte(nil), b.requests[stage]...)
}

// reply reports some progress, then answers with data.
func reply(data []byte) handler {
	return func(conn *websocket.Conn, _ []byte) {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"progress","progress":50}`))
		_ = conn.WriteMessage(websocket.BinaryMessage, data)
		closeNormally(conn)
	}
}

func text(msg string) handler {
	return func(conn *websocket.Conn, _ []byte) {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(msg))
		closeNormally(conn)
	}
}

func hang(conn *websocket.Conn, _ []byte) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func closeNormally(conn *websocket.Conn) {
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
