// Package process drives one request/response exchange with the generation
// backend over a WebSocket.
//
// A Channel is bound to one backend operation ("remove-background",
// "generate-image", ...). Each Start opens a fresh connection, lets the
// caller send its request from OnOpen, classifies every inbound frame and
// reports exactly one terminal outcome:
//
//   - binary frame: success, OnMessagePayload
//   - text frame without a recognised type: success, OnMessageText
//   - {"type":"error"} record or transport failure: OnError
//   - close: OnClose (also after a success)
//
// {"type":"progress"} records update the observable progress, clamped to
// [0,100]. Unparseable text is logged and dropped.
//
// Only the first terminal frame fires a callback; later ones are dropped.
//
// Starting again on the same Channel closes the previous connection and
// silences its callbacks. Only a callback already dispatched on the
// connection goroutine when Start returns may still run. Cancel does the same
// without starting a new exchange, and a Run it abandons returns
// ErrCanceled. The Channel imposes no timeout; Run accepts a context for that.
//
// Example Usage:
//
//	ch := process.NewChannel(target, "generate-image", process.WithLogger(logger))
//	res, err := ch.Run(ctx, func(s process.Sender) error {
//		return s.SendJSON(map[string]string{"prompt": "a fantasy sword", "image_model": "dalle3"})
//	})
package process
