package process

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunPayload(t *testing.T) {
	target := newBackend(t, func(_ int, conn *websocket.Conn) {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		sendJSON(conn, `{"type":"progress","progress":55}`)
		_ = conn.WriteMessage(websocket.BinaryMessage, append([]byte("echo:"), data...))
		closeNormally(conn)
	})

	ch := NewChannel(target, "generate-3d-view")
	res, err := ch.Run(context.Background(), func(s Sender) error {
		return s.SendBinary([]byte("view"))
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("echo:view"), res.Payload)
	assert.Empty(t, res.Text)
	assert.False(t, ch.Loading())
	assert.Equal(t, 55, ch.Progress())
}

func TestRunText(t *testing.T) {
	target := newBackend(t, func(_ int, conn *websocket.Conn) {
		sendJSON(conn, `{"status":"queued"}`)
		closeNormally(conn)
	})

	res, err := NewChannel(target, "generate-image").Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, `{"status":"queued"}`, res.Text)
	assert.Nil(t, res.Payload)
}

func TestRunRemoteError(t *testing.T) {
	target := newBackend(t, func(_ int, conn *websocket.Conn) {
		sendJSON(conn, `{"type":"error"}`)
		closeNormally(conn)
	})

	_, err := NewChannel(target, "remove-background").Run(context.Background(), nil)

	var remote *RemoteError
	require.True(t, errors.As(err, &remote))
	assert.Equal(t, "remote reported an error", remote.Message)
}

func TestRunIncomplete(t *testing.T) {
	target := newBackend(t, func(_ int, conn *websocket.Conn) {
		sendJSON(conn, `{"type":"progress","progress":12}`)
		closeNormally(conn)
	})

	_, err := NewChannel(target, "generate-3d-model").Run(context.Background(), nil)
	assert.ErrorIs(t, err, ErrIncomplete)
}

func TestRunDeadline(t *testing.T) {
	target := newBackend(t, func(_ int, conn *websocket.Conn) {
		drain(conn)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	ch := NewChannel(target, "generate-3d-model")
	_, err := ch.Run(ctx, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, ch.Loading())
}

func TestRunSendFailure(t *testing.T) {
	target := newBackend(t, func(_ int, conn *websocket.Conn) {
		drain(conn)
	})

	sendErr := errors.New("encode failed")
	_, err := NewChannel(target, "generate-image").Run(context.Background(), func(Sender) error {
		return sendErr
	})

	var transport *TransportError
	require.True(t, errors.As(err, &transport))
	assert.Equal(t, "send", transport.Op)
	assert.ErrorIs(t, err, sendErr)
}

func TestRunWithoutEndpoint(t *testing.T) {
	_, err := NewChannel(Target{Host: "localhost", Port: 8000}, "").Run(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoEndpoint)
}

func TestRunReturnsOnCancel(t *testing.T) {
	target := newBackend(t, func(_ int, conn *websocket.Conn) {
		drain(conn)
	})

	ch := NewChannel(target, "generate-3d-model")
	errc := make(chan error, 1)
	go func() {
		_, err := ch.Run(context.Background(), nil)
		errc <- err
	}()

	require.Eventually(t, ch.Loading, waitFor, 5*time.Millisecond)
	ch.Cancel()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, ErrCanceled)
	case <-time.After(waitFor):
		t.Fatal("Run did not return after Cancel")
	}
	assert.False(t, ch.Loading())
}

func TestRunReturnsWhenSuperseded(t *testing.T) {
	target := newBackend(t, func(n int, conn *websocket.Conn) {
		if n == 1 {
			drain(conn)
			return
		}
		_ = conn.WriteMessage(websocket.BinaryMessage, []byte("fresh"))
		closeNormally(conn)
	})

	ch := NewChannel(target, "generate-image")
	errc := make(chan error, 1)
	go func() {
		_, err := ch.Run(context.Background(), nil)
		errc <- err
	}()
	require.Eventually(t, ch.Loading, waitFor, 5*time.Millisecond)

	res, err := ch.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("fresh"), res.Payload)

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, ErrCanceled)
	case <-time.After(waitFor):
		t.Fatal("first Run did not return after a second Run started")
	}
}
