package process

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

const waitFor = 3 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// newBackend starts a WebSocket server; script runs once per connection with
// its 1-based sequence number.
func newBackend(t *testing.T, script func(n int, conn *websocket.Conn)) Target {
	t.Helper()

	var count atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		script(int(count.Add(1)), conn)
	}))
	t.Cleanup(srv.Close)

	target, err := ParseTarget(srv.URL)
	require.NoError(t, err)
	return target
}

func sendJSON(conn *websocket.Conn, text string) {
	_ = conn.WriteMessage(websocket.TextMessage, []byte(text))
}

func closeNormally(conn *websocket.Conn) {
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	// Wait for the peer's close reply or a read failure.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// drain reads until the peer goes away.
func drain(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// recorder captures every callback of one Start.
type recorder struct {
	mu       sync.Mutex
	events   []string
	progress []int
	texts    []string
	payloads [][]byte
	errs     []error

	opened    chan struct{}
	closed    chan struct{}
	openOnce  sync.Once
	closeOnce sync.Once

	send func(Sender)
}

func newRecorder() *recorder {
	return &recorder{
		opened: make(chan struct{}),
		closed: make(chan struct{}),
	}
}

func (r *recorder) add(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) options() Options {
	return Options{
		OnOpen: func(s Sender) {
			r.add("open")
			if r.send != nil {
				r.send(s)
			}
			r.openOnce.Do(func() { close(r.opened) })
		},
		OnProgress: func(p int) {
			r.mu.Lock()
			r.progress = append(r.progress, p)
			r.mu.Unlock()
			r.add("progress")
		},
		OnMessageText: func(text string) {
			r.mu.Lock()
			r.texts = append(r.texts, text)
			r.mu.Unlock()
			r.add("text")
		},
		OnMessagePayload: func(payload []byte) {
			r.mu.Lock()
			r.payloads = append(r.payloads, payload)
			r.mu.Unlock()
			r.add("payload")
		},
		OnError: func(err error) {
			r.mu.Lock()
			r.errs = append(r.errs, err)
			r.mu.Unlock()
			r.add("error")
		},
		OnClose: func() {
			r.add("close")
			r.closeOnce.Do(func() { close(r.closed) })
		},
	}
}

func (r *recorder) snapshot() (events []string, progress []int, texts []string, payloads [][]byte, errs []error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...),
		append([]int(nil), r.progress...),
		append([]string(nil), r.texts...),
		append([][]byte(nil), r.payloads...),
		append([]error(nil), r.errs...)
}

func (r *recorder) eventCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func waitClosed(t *testing.T, r *recorder) {
	t.Helper()
	select {
	case <-r.closed:
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for OnClose")
	}
}

func waitOpened(t *testing.T, r *recorder) {
	t.Helper()
	select {
	case <-r.opened:
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for OnOpen")
	}
}
