package harness

import (
	"fmt"
	"strings"
	"time"
)

// TraceEvent records one executed step and its outcome.
type TraceEvent struct {
	Seq     int    `json:"seq"`
	Action  string `json:"action"`
	Actor   string `json:"actor,omitempty"`
	Tile    uint32 `json:"tile,omitempty"`
	X       uint32 `json:"x,omitempty"`
	Y       uint32 `json:"y,omitempty"`
	Color   string `json:"color,omitempty"`
	Outcome string `json:"outcome,omitempty"`

	// RetryAfter is set on cooldown rejections.
	RetryAfter int `json:"retry_after,omitempty"`

	// By and Elapsed are set on advance steps.
	By      time.Duration `json:"by,omitempty"`
	Elapsed time.Duration `json:"elapsed,omitempty"`

	// AppliedTile and AppliedX/Y locate an applied paint step.
	AppliedTile uint32 `json:"applied_tile,omitempty"`
	AppliedX    uint32 `json:"applied_x,omitempty"`
	AppliedY    uint32 `json:"applied_y,omitempty"`
}

// String renders the event as one trace line.
func (e TraceEvent) String() string {
	actor := e.Actor
	if actor == "" {
		actor = "-"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d %s", e.Seq, e.Action)
	switch e.Action {
	case ActionStart:
		fmt.Fprintf(&b, " -> %s", e.Outcome)
	case ActionEdit:
		fmt.Fprintf(&b, " %s tile=%d (%d,%d) %s -> %s", actor, e.Tile, e.X, e.Y, e.Color, e.Outcome)
	case ActionPaint:
		fmt.Fprintf(&b, " %s (%d,%d) %s -> %s", actor, e.X, e.Y, e.Color, e.Outcome)
		if e.Outcome == OutcomeApplied {
			fmt.Fprintf(&b, " tile=%d (%d,%d)", e.AppliedTile, e.AppliedX, e.AppliedY)
		}
	case ActionAdvance:
		fmt.Fprintf(&b, " %s t=+%s", e.By, e.Elapsed)
	}
	if e.RetryAfter > 0 {
		fmt.Fprintf(&b, " retry_after=%ds", e.RetryAfter)
	}
	return b.String()
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true if every step outcome and assertion matched.
	Pass bool `json:"pass"`

	// Trace holds one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Outcomes counts trace events by outcome.
func (r *Result) Outcomes() map[string]int {
	counts := make(map[string]int)
	for _, e := range r.Trace {
		if e.Outcome != "" {
			counts[e.Outcome]++
		}
	}
	return counts
}

// TraceText renders the trace one event per line.
func (r *Result) TraceText() string {
	var b strings.Builder
	for _, e := range r.Trace {
		b.WriteString(e.String())
		b.WriteByte('\n')
	}
	return b.String()
}
