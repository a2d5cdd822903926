/*
Package resilience provides a circuit breaker for outbound provider calls.

# Overview

When a chat provider is down, every chat request would otherwise wait for a
connection or a 5xx. The breaker fails those requests immediately once a run
of failures has been seen, then probes the provider again after a timeout.

# Usage

	breaker := resilience.New("anthropic", resilience.Settings{
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	resp, err := resilience.Call(breaker, func() (*http.Response, error) {
		return client.Do(req)
	})

# States

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                           |
	                                    [failure]
	                                           |
	                                           v
	                                         Open
*/
package resilience
