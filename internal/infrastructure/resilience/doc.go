// Package resilience provides failure handling for calls against
// rate-limited external hosts.
//
// Components:
//   - Gate: host-scoped cooldown; a rate limit signal pauses every request
//     to that host while other hosts keep flowing
//   - RetryPolicy / Do: bounded retry with an explicit attempt counter
//
// Example Usage:
//
//	gate := resilience.NewGate(resilience.GateSettings{Cooldown: time.Hour})
//	if err := gate.Wait(ctx, "api.github.com"); err != nil {
//	    return err
//	}
//	// on a 403:
//	gate.Trip("api.github.com")
package resilience
