package process

import (
	"bytes"
	"errors"
	"math"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
)

// Message types on the wire.
const (
	TypeProgress = "progress"
	TypeError    = "error"
)

// Kind tags an inbound frame after classification.
type Kind int

const (
	KindMalformed Kind = iota
	KindProgress
	KindRemoteError
	KindText
	KindBinary
	KindIgnored
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindMalformed:
		return "malformed"
	case KindProgress:
		return "progress"
	case KindRemoteError:
		return "remote_error"
	case KindText:
		return "text"
	case KindBinary:
		return "binary"
	case KindIgnored:
		return "ignored"
	default:
		return "unknown"
	}
}

// Inbound is a classified frame.
type Inbound struct {
	Kind Kind

	// Progress is set for KindProgress, already clamped.
	Progress int
	// Message is set for KindRemoteError.
	Message string
	// Data holds the raw frame.
	Data []byte
	// Err is the parse failure for KindMalformed.
	Err error
}

type record struct {
	Type     string   `json:"type"`
	Progress *float64 `json:"progress,omitempty"`
	Message  *string  `json:"message,omitempty"`
}

var errNotObject = errors.New("text frame is not a JSON object")

const defaultRemoteErrorMessage = "remote reported an error"

// Classify decides the shape of a frame once, at the transport boundary.
// An error record without a message is still a KindRemoteError, carrying a
// default message.
func Classify(frameType int, data []byte) Inbound {
	switch frameType {
	case websocket.TextMessage:
		return classifyText(data)
	case websocket.BinaryMessage:
		return Inbound{Kind: KindBinary, Data: data}
	default:
		return Inbound{Kind: KindUnknown, Data: data}
	}
}

func classifyText(data []byte) Inbound {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Inbound{Kind: KindMalformed, Data: data, Err: errNotObject}
	}

	var rec record
	if err := sonic.Unmarshal(trimmed, &rec); err != nil {
		return Inbound{Kind: KindMalformed, Data: data, Err: err}
	}

	switch rec.Type {
	case TypeProgress:
		// A zero or missing value carries nothing to show.
		if rec.Progress == nil || *rec.Progress == 0 {
			return Inbound{Kind: KindIgnored, Data: data}
		}
		return Inbound{Kind: KindProgress, Progress: clampFloat(*rec.Progress), Data: data}
	case TypeError:
		msg := defaultRemoteErrorMessage
		if rec.Message != nil && *rec.Message != "" {
			msg = *rec.Message
		}
		return Inbound{Kind: KindRemoteError, Message: msg, Data: data}
	default:
		return Inbound{Kind: KindText, Data: data}
	}
}

// Clamp bounds a progress value to [0,100].
func Clamp(p int) int {
	return max(0, min(100, p))
}

func clampFloat(p float64) int {
	if p <= 0 {
		return 0
	}
	if p >= 100 {
		return 100
	}
	return int(math.Round(p))
}
