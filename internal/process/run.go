package process

import (
	"context"
	"fmt"
)

// Result is the terminal success of one exchange. Exactly one field is set.
type Result struct {
	Text    string
	Payload []byte
}

type runOutcome struct {
	res     Result
	err     error
	outcome Outcome
}

// Run performs one exchange and blocks until its first terminal outcome.
// send is called once the connection is open and may be nil when the
// endpoint expects no request. The connection is closed before Run returns.
//
// Errors: *RemoteError, *TransportError, ErrIncomplete when the backend
// closes without a result, ErrCanceled when Cancel or a later Start
// abandons the exchange, or ctx.Err().
func (c *Channel) Run(ctx context.Context, send func(Sender) error) (Result, error) {
	if c.endpoint == "" {
		return Result{}, ErrNoEndpoint
	}

	done := make(chan runOutcome, 1)
	report := func(o runOutcome) {
		select {
		case done <- o:
		default:
		}
	}

	s := c.start(ctx, Options{
		OnOpen: func(snd Sender) {
			if send == nil {
				return
			}
			if err := send(snd); err != nil {
				report(runOutcome{
					err:     &TransportError{Endpoint: c.endpoint, Op: "send", Err: err},
					outcome: OutcomeTransportError,
				})
			}
		},
		OnMessageText: func(text string) {
			report(runOutcome{res: Result{Text: text}, outcome: OutcomeText})
		},
		OnMessagePayload: func(payload []byte) {
			report(runOutcome{res: Result{Payload: payload}, outcome: OutcomePayload})
		},
		OnError: func(err error) {
			report(runOutcome{err: err, outcome: OutcomeTransportError})
		},
		OnClose: func() {
			report(runOutcome{err: ErrIncomplete, outcome: OutcomeClosed})
		},
	})

	select {
	case o := <-done:
		c.release(s, o.outcome)
		return o.res, o.err
	case <-ctx.Done():
		c.release(s, OutcomeCanceled)
		return Result{}, fmt.Errorf("%s: %w", c.endpoint, ctx.Err())
	case <-s.done:
		// The session context also ends when run returns after reporting,
		// so a pending outcome wins.
		select {
		case o := <-done:
			c.release(s, o.outcome)
			return o.res, o.err
		default:
		}
		c.release(s, OutcomeCanceled)
		if err := ctx.Err(); err != nil {
			return Result{}, fmt.Errorf("%s: %w", c.endpoint, err)
		}
		return Result{}, fmt.Errorf("%s: %w", c.endpoint, ErrCanceled)
	}
}
