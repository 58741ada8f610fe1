// Package resilience keeps the diagnostics client from hammering a daemon
// that is down or restarting.
//
//	b := resilience.New("diag", resilience.Settings{Cooldown: 5 * time.Second})
//	st, err := resilience.Do(b, func() (*Status, error) { return fetch(ctx) })
//
// States move as:
//
//	Closed --[Trip]--> Open --[Cooldown]--> Half-Open --[Probes ok]--> Closed
//	                    ^                       |
//	                    +-------[failure]-------+
//
// Counts reset whenever the state changes and every Window while closed.
// Outcomes of calls admitted in an earlier generation are dropped.
package resilience
