package process

import "time"

// Outcome names how an exchange ended.
type Outcome string

const (
	OutcomePayload        Outcome = "payload"
	OutcomeText           Outcome = "text"
	OutcomeRemoteError    Outcome = "remote_error"
	OutcomeTransportError Outcome = "transport_error"
	OutcomeClosed         Outcome = "closed"
	OutcomeCanceled       Outcome = "canceled"
)

// Observer receives Channel lifecycle events. Implementations must be safe
// for concurrent use; several Channels may share one.
type Observer interface {
	ChannelStarted(endpoint string)
	ChannelProgress(endpoint string, progress int)
	// ChannelFinished is called once per exchange with its first terminal
	// outcome. size is the payload or text length for successes.
	ChannelFinished(endpoint string, outcome Outcome, elapsed time.Duration, size int)
}

type nopObserver struct{}

func (nopObserver) ChannelStarted(string)                               {}
func (nopObserver) ChannelProgress(string, int)                         {}
func (nopObserver) ChannelFinished(string, Outcome, time.Duration, int) {}
