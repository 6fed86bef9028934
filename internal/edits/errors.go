package edits

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrCooldown is returned when an actor edits again before its cooldown
	// has elapsed.
	ErrCooldown = errors.New("cooling period didn't expire yet")

	// ErrAlreadyStarted is returned by a second call to Start.
	ErrAlreadyStarted = errors.New("already started")
)

// CooldownError carries how long an actor still has to wait.
type CooldownError struct {
	Actor     ActorID
	Remaining time.Duration // Time until the next edit is admitted
}

// Error implements the error interface.
func (e *CooldownError) Error() string {
	return fmt.Sprintf("%s: actor %s must wait %s", ErrCooldown, e.Actor, e.Remaining)
}

// Unwrap returns ErrCooldown.
func (e *CooldownError) Unwrap() error {
	return ErrCooldown
}

// IsCooldown returns true if err is a cooldown rejection.
// Uses errors.Is to handle wrapped errors.
func IsCooldown(err error) bool {
	return errors.Is(err, ErrCooldown)
}

// RetryAfter extracts the remaining wait from a cooldown rejection.
// ok is false if err is not a CooldownError.
func RetryAfter(err error) (d time.Duration, ok bool) {
	var ce *CooldownError
	if errors.As(err, &ce) {
		return ce.Remaining, true
	}
	return 0, false
}
