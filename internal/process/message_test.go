package process

import (
	"math"
	"strconv"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name         string
		frameType    int
		data         string
		wantKind     Kind
		wantProgress int
		wantMessage  string
	}{
		{name: "progress", frameType: websocket.TextMessage, data: `{"type":"progress","progress":42}`, wantKind: KindProgress, wantProgress: 42},
		{name: "progress over range", frameType: websocket.TextMessage, data: `{"type":"progress","progress":150}`, wantKind: KindProgress, wantProgress: 100},
		{name: "progress negative", frameType: websocket.TextMessage, data: `{"type":"progress","progress":-5}`, wantKind: KindProgress, wantProgress: 0},
		{name: "progress fractional", frameType: websocket.TextMessage, data: `{"type":"progress","progress":12.6}`, wantKind: KindProgress, wantProgress: 13},
		{name: "progress zero", frameType: websocket.TextMessage, data: `{"type":"progress","progress":0}`, wantKind: KindIgnored},
		{name: "progress missing", frameType: websocket.TextMessage, data: `{"type":"progress"}`, wantKind: KindIgnored},
		{name: "error", frameType: websocket.TextMessage, data: `{"type":"error","message":"No prompt provided."}`, wantKind: KindRemoteError, wantMessage: "No prompt provided."},
		{name: "error without message", frameType: websocket.TextMessage, data: `{"type":"error"}`, wantKind: KindRemoteError, wantMessage: defaultRemoteErrorMessage},
		{name: "other type", frameType: websocket.TextMessage, data: `{"type":"result","url":"x"}`, wantKind: KindText},
		{name: "no type", frameType: websocket.TextMessage, data: `{"url":"x"}`, wantKind: KindText},
		{name: "padded object", frameType: websocket.TextMessage, data: "  {\"type\":\"done\"}\n", wantKind: KindText},
		{name: "broken json", frameType: websocket.TextMessage, data: `{"type":`, wantKind: KindMalformed},
		{name: "plain text", frameType: websocket.TextMessage, data: `hello`, wantKind: KindMalformed},
		{name: "json scalar", frameType: websocket.TextMessage, data: `42`, wantKind: KindMalformed},
		{name: "json null", frameType: websocket.TextMessage, data: `null`, wantKind: KindMalformed},
		{name: "empty", frameType: websocket.TextMessage, data: ``, wantKind: KindMalformed},
		{name: "binary", frameType: websocket.BinaryMessage, data: "\x89PNG", wantKind: KindBinary},
		{name: "unknown frame", frameType: websocket.PingMessage, data: "", wantKind: KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := Classify(tt.frameType, []byte(tt.data))

			assert.Equal(t, tt.wantKind, in.Kind, in.Kind.String())
			assert.Equal(t, tt.wantProgress, in.Progress)
			assert.Equal(t, tt.wantMessage, in.Message)
			if tt.wantKind == KindMalformed {
				assert.Error(t, in.Err)
			} else {
				assert.NoError(t, in.Err)
			}
		})
	}
}

func TestClassifyBinaryKeepsBytes(t *testing.T) {
	payload := []byte{0x00, 0xff, 0x10}
	in := Classify(websocket.BinaryMessage, payload)
	assert.Equal(t, payload, in.Data)
}

func TestProgressIsClampedProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		p := rapid.Float64Range(-1e6, 1e6).Draw(rt, "p")
		data := `{"type":"progress","progress":` + strconv.FormatFloat(p, 'f', -1, 64) + `}`

		in := Classify(websocket.TextMessage, []byte(data))
		if p == 0 {
			if in.Kind != KindIgnored {
				rt.Fatalf("zero progress classified as %s", in.Kind)
			}
			return
		}
		if in.Kind != KindProgress {
			rt.Fatalf("progress %v classified as %s", p, in.Kind)
		}
		want := Clamp(int(math.Round(p)))
		if in.Progress != want {
			rt.Fatalf("progress %v: got %d want %d", p, in.Progress, want)
		}
	})
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0, Clamp(-1))
	assert.Equal(t, 0, Clamp(0))
	assert.Equal(t, 55, Clamp(55))
	assert.Equal(t, 100, Clamp(100))
	assert.Equal(t, 100, Clamp(101))
}
