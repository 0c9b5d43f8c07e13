package resilience

import (
	"context"
	"sync"
	"time"
)

// State represents the admission state of one host
type State int

const (
	StateAdmitting State = iota
	StateCooling
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateAdmitting:
		return "admitting"
	case StateCooling:
		return "cooling"
	default:
		return "unknown"
	}
}

// GateSettings configures the cooldown gate behavior
type GateSettings struct {
	// Cooldown is how long a host stays closed after a rate limit signal
	Cooldown time.Duration
	// OnStateChange is called whenever a host changes state
	OnStateChange func(host string, from State, to State)
}

// Counts holds the rate limit statistics of one host
type Counts struct {
	Trips   uint32
	Waits   uint32
	Waiting int32
}

type hostState struct {
	until    time.Time
	reopened bool
	counts   Counts
}

// Gate is host-scoped admission control for an external rate limit.
// Tripping a host makes every caller of Wait for that host block until the
// cooldown has elapsed; other hosts are unaffected.
type Gate struct {
	settings GateSettings
	now      func() time.Time

	mu    sync.Mutex
	hosts map[string]*hostState
}

// NewGate creates a new gate with the given settings
func NewGate(settings GateSettings) *Gate {
	if settings.Cooldown <= 0 {
		settings.Cooldown = time.Hour
	}
	return &Gate{
		settings: settings,
		now:      time.Now,
		hosts:    make(map[string]*hostState),
	}
}

// Cooldown returns the configured cooldown window
func (g *Gate) Cooldown() time.Duration {
	return g.settings.Cooldown
}

// Trip closes the host for one cooldown window and returns when it reopens.
// Tripping an already cooling host extends the window, never shortens it.
func (g *Gate) Trip(host string) time.Time {
	g.mu.Lock()
	now := g.now()
	hs := g.host(host)
	prev := g.stateLocked(hs, now)

	until := now.Add(g.settings.Cooldown)
	if until.After(hs.until) {
		hs.until = until
	}
	hs.reopened = false
	hs.counts.Trips++
	reopen := hs.until
	g.mu.Unlock()

	if prev != StateCooling && g.settings.OnStateChange != nil {
		g.settings.OnStateChange(host, prev, StateCooling)
	}
	return reopen
}

// Wait blocks until the host admits requests or the context is done
func (g *Gate) Wait(ctx context.Context, host string) error {
	waited := false
	for {
		g.mu.Lock()
		hs := g.host(host)
		delay := hs.until.Sub(g.now())
		if delay <= 0 {
			if waited {
				hs.counts.Waiting--
			}
			// first admission after a cooldown reports the reopen once
			notify := !hs.until.IsZero() && !hs.reopened
			hs.reopened = true
			g.mu.Unlock()
			if notify && g.settings.OnStateChange != nil {
				g.settings.OnStateChange(host, StateCooling, StateAdmitting)
			}
			return nil
		}
		if !waited {
			waited = true
			hs.counts.Waits++
			hs.counts.Waiting++
		}
		g.mu.Unlock()

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			g.mu.Lock()
			g.host(host).counts.Waiting--
			g.mu.Unlock()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// State returns the current state of the host
func (g *Gate) State(host string) State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stateLocked(g.host(host), g.now())
}

// Until returns the time the host reopens; zero if it never cooled down
func (g *Gate) Until(host string) time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.host(host).until
}

// Counts returns a copy of the host statistics
func (g *Gate) Counts(host string) Counts {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.host(host).counts
}

func (g *Gate) host(host string) *hostState {
	hs, ok := g.hosts[host]
	if !ok {
		hs = &hostState{}
		g.hosts[host] = hs
	}
	return hs
}

func (g *Gate) stateLocked(hs *hostState, now time.Time) State {
	if hs.until.After(now) {
		return StateCooling
	}
	return StateAdmitting
}
