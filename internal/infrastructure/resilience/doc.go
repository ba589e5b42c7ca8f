/*
Package resilience provides a circuit breaker for calls into fragile subsystems.

# Overview

The script engine wraps sandbox context creation in a breaker so that a
sandbox that keeps failing to initialize is rejected fast instead of being
retried on every request.

# Usage

	breaker := resilience.New("sandbox", resilience.Settings{
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("breaker state changed", zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})

	sbx, err := resilience.Call(breaker, func() (sandbox.Context, error) {
		return runtime.CreateContext(ctx)
	})

# Generations

Every state change starts a new generation and resets the counts. An outcome
reported for a call admitted in an earlier generation is dropped, so a slow
call that finishes after the breaker opened cannot close it again.

	Closed --[ReadyToTrip]-> Open --[Timeout]-> Half-Open --[MaxRequests successes]-> Closed
	                                               |
	                                           [failure]
	                                               v
	                                             Open
*/
package resilience
