// Package edits implements the admission gate for canvas writes.
//
// The Gate keeps, per actor, the time of that actor's last accepted edit and
// refuses a new edit until the cooldown has strictly elapsed. It also records
// a one-time session start.
//
// Time is an input, not an ambient: RegisterEdit takes the current time in
// nanoseconds from the caller, and Start reads the injected Clock. Tests drive
// both with synthetic values.
//
// The actor map is never compacted; memory grows with the number of distinct
// actors that have ever edited.
//
// Gate is not safe for concurrent mutation. The request layer serializes
// RegisterEdit and Start.
package edits
