package edits

import (
	"time"
)

// DefaultCooldown is the minimum gap between two accepted edits by the same
// actor.
const DefaultCooldown = 30 * time.Second

// Gate admits or rejects edits by cooldown and tracks the session start.
//
// Each actor has its own cooldown; one actor's edits never affect another's.
// Entries are never evicted.
type Gate struct {
	cooldown time.Duration
	clock    Clock

	started   bool
	startedAt time.Time

	edits map[ActorID]int64 // actor → ns of last accepted edit
}

// Option configures a Gate.
type Option func(*Gate)

// WithCooldown overrides DefaultCooldown.
func WithCooldown(d time.Duration) Option {
	return func(g *Gate) {
		g.cooldown = d
	}
}

// WithClock sets the clock Start reads. Defaults to a SystemClock.
func WithClock(c Clock) Option {
	return func(g *Gate) {
		if c != nil {
			g.clock = c
		}
	}
}

// NewGate creates an empty gate with no session started.
func NewGate(opts ...Option) *Gate {
	g := &Gate{
		cooldown: DefaultCooldown,
		edits:    make(map[ActorID]int64),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.clock == nil {
		g.clock = NewSystemClock()
	}
	return g
}

// RegisterEdit decides whether actor may edit at nowNs (Unix nanoseconds).
//
// An actor's first edit is always admitted. Later edits are admitted only if
// strictly more than the cooldown has passed since the last admitted one. An
// admitted edit records nowNs; a rejected one changes nothing and returns a
// *CooldownError.
//
// A nowNs earlier than the recorded time counts as no time elapsed.
func (g *Gate) RegisterEdit(actor ActorID, nowNs int64) error {
	last, ok := g.edits[actor]
	if !ok {
		g.edits[actor] = nowNs
		return nil
	}

	// nowNs - last may not fit in an int64.
	var elapsed uint64
	if nowNs > last {
		elapsed = uint64(nowNs) - uint64(last)
	}
	if elapsed > uint64(max(g.cooldown, 0)) {
		g.edits[actor] = nowNs
		return nil
	}

	return &CooldownError{
		Actor:     actor,
		Remaining: g.cooldown - time.Duration(elapsed),
	}
}

// Revert undoes the admission RegisterEdit made for actor at admittedNs,
// restoring the record returned by LastEdit before that call. It does
// nothing if the actor's record has moved on since.
func (g *Gate) Revert(actor ActorID, admittedNs, prevNs int64, hadPrev bool) {
	if last, ok := g.edits[actor]; !ok || last != admittedNs {
		return
	}
	if hadPrev {
		g.edits[actor] = prevNs
		return
	}
	delete(g.edits, actor)
}

// Start records the session start from the gate's clock.
// Returns ErrAlreadyStarted, leaving the recorded time alone, if called
// more than once.
func (g *Gate) Start() error {
	if g.started {
		return ErrAlreadyStarted
	}
	g.startedAt = g.clock.Now()
	g.started = true
	return nil
}

// StartedAt returns the session start time, if the session has started.
func (g *Gate) StartedAt() (time.Time, bool) {
	return g.startedAt, g.started
}

// LastEdit returns the time of actor's last admitted edit in Unix
// nanoseconds.
func (g *Gate) LastEdit(actor ActorID) (int64, bool) {
	ns, ok := g.edits[actor]
	return ns, ok
}

// Actors returns the number of distinct actors with an admitted edit.
func (g *Gate) Actors() int {
	return len(g.edits)
}

// Cooldown returns the configured cooldown.
func (g *Gate) Cooldown() time.Duration {
	return g.cooldown
}
