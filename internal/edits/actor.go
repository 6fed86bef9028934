package edits

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ActorID identifies the party behind an edit. It is opaque to the gate and
// is expected to have been verified upstream.
type ActorID string

// ParseActorID normalizes a raw identity: surrounding whitespace is dropped
// and the rest is NFC normalized, so canonically equivalent spellings share
// one cooldown. ok is false if nothing remains.
func ParseActorID(raw string) (id ActorID, ok bool) {
	s := norm.NFC.String(strings.TrimSpace(raw))
	if s == "" {
		return "", false
	}
	return ActorID(s), true
}

// String returns the identity as a string.
func (a ActorID) String() string {
	return string(a)
}
