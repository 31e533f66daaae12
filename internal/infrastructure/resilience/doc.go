/*
Package resilience provides a circuit breaker for upstream services.

The weather client wraps every call in a breaker so a failing upstream is
not hammered while it recovers. Errors the caller caused (bad place names,
missing API key) can be excluded from the failure count with IsFailure.

# Usage

	breaker := resilience.New("weather", resilience.Settings{
		Timeout:       30 * time.Second,
		IsFailure:     isUpstreamFailure,
		OnStateChange: resilience.LogStateChanges(logger),
	})

	data, err := resilience.Do(breaker, func() (*Data, error) {
		return client.fetch(ctx)
	})

# States

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                           |
	                                      [failure]
	                                           v
	                                         Open
*/
package resilience
