/*
Package resilience provides a circuit breaker for calls to optional local
tools, such as the Blender add-on, that are often simply not running.

After Threshold consecutive failures the breaker opens and rejects calls
with ErrOpen until Cooldown has passed. The next call is a half-open probe:
success closes the breaker, failure reopens it. Only one probe runs at a
time.

# Usage

	breaker := resilience.New("blender", resilience.Settings{
		Threshold: 3,
		Cooldown:  30 * time.Second,
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Info("Breaker state", zap.String("breaker", name), zap.Stringer("to", to))
		},
	})

	err := breaker.Execute(func() error {
		return client.Send(ctx, mesh)
	})
*/
package resilience
