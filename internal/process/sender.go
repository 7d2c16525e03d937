package process

import (
	"fmt"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
)

// Sender writes the request for the current exchange. It is handed to
// OnOpen and is safe for concurrent use.
type Sender interface {
	SendText(text string) error
	SendBinary(data []byte) error
	SendJSON(v any) error
}

type wsSender struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsSender) SendText(text string) error {
	return w.write(websocket.TextMessage, []byte(text))
}

func (w *wsSender) SendBinary(data []byte) error {
	return w.write(websocket.BinaryMessage, data)
}

func (w *wsSender) SendJSON(v any) error {
	data, err := sonic.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	return w.write(websocket.TextMessage, data)
}

func (w *wsSender) write(frameType int, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteMessage(frameType, data)
}
