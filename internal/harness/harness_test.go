package harness

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, yaml string) *Scenario {
	t.Helper()
	s, err := ParseScenario([]byte(yaml))
	require.NoError(t, err)
	return s
}

func TestRun_ExpectationMismatchFails(t *testing.T) {
	s := mustParse(t, `
name: mismatch
description: the second edit is expected to pass but is cooling down
steps:
  - {action: edit, actor: alice, tile: 0, color: "#ffffff", expect: applied}
  - {action: edit, actor: alice, tile: 0, color: "#ffffff", expect: applied}
`)

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "step 2 (edit): expected applied, got cooldown")
	assert.Equal(t, 30, result.Trace[1].RetryAfter)
}

func TestRun_AssertionFailures(t *testing.T) {
	s := mustParse(t, `
name: failing_assertions
description: every assertion is wrong
steps:
  - {action: edit, actor: alice, tile: 2, x: 1, y: 1, color: "#ff0000"}
assertions:
  - {type: pixel, tile: 2, x: 1, y: 1, color: "#00ff00"}
  - {type: outcome_count, outcome: applied, count: 2}
  - {type: journal_count, count: 0}
  - {type: overview_regions, tiles: [1]}
`)

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 4)
	assert.Contains(t, result.Errors[0], "Expected: tile 2 (1,1) = #00ff00ff")
	assert.Contains(t, result.Errors[0], "Actual: #ff0000ff")
	assert.Contains(t, result.Errors[1], "Actual: 1 applied")
	assert.Contains(t, result.Errors[2], "Actual: 1 journal entries")
	assert.Contains(t, result.Errors[3], "Actual: painted regions [2]")
	assert.Contains(t, result.Errors[3], "1 edit alice tile=2 (1,1) #ff0000ff -> applied")
}

func TestRun_PixelOutsideTile(t *testing.T) {
	s := mustParse(t, `
name: outside
description: pixel assertion outside the tile
steps:
  - {action: start}
assertions:
  - {type: pixel, tile: 0, x: 8, y: 0, color: "#00000000"}
`)

	result, err := Run(s)
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "outside tile 0")
}

func TestResult_Outcomes(t *testing.T) {
	r := NewResult()
	r.Trace = []TraceEvent{
		{Seq: 1, Action: ActionStart, Outcome: OutcomeOK},
		{Seq: 2, Action: ActionEdit, Outcome: OutcomeApplied},
		{Seq: 3, Action: ActionAdvance},
		{Seq: 4, Action: ActionEdit, Outcome: OutcomeApplied},
	}
	assert.Equal(t, map[string]int{OutcomeOK: 1, OutcomeApplied: 2}, r.Outcomes())
	assert.Equal(t, 4, strings.Count(r.TraceText(), "\n"))

	r.AddError("boom")
	assert.False(t, r.Pass)
}
