package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/roach88/tilecanvas/internal/canvas"
	"github.com/roach88/tilecanvas/internal/config"
	"github.com/roach88/tilecanvas/internal/edits"
	"github.com/roach88/tilecanvas/internal/journal"
	"github.com/roach88/tilecanvas/internal/server"
	"github.com/roach88/tilecanvas/internal/testutil"
)

// Epoch is the clock reading every scenario starts at.
var Epoch = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

// Harness drives one scenario against a live server.
type Harness struct {
	srv    *server.Server
	clock  *testutil.ManualClock
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs on a fresh canvas with an in-memory journal, a manual
// clock starting at Epoch and sequential edit ids.
func Run(scenario *Scenario) (*Result, error) {
	j, err := journal.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory journal: %w", err)
	}
	defer j.Close()

	geom := SmallGeometry()
	if scenario.Geometry != nil {
		geom = *scenario.Geometry
	}
	h, err := newHarness(scenario, geom, j)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	result := NewResult()
	if err := h.executeSteps(scenario.Steps, result); err != nil {
		return nil, fmt.Errorf("failed to execute steps: %w", err)
	}

	actx := &AssertionContext{Ctx: ctx, Server: h.srv, Journal: j, Geometry: geom}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

func newHarness(scenario *Scenario, geom canvas.Geometry, j *journal.Journal) (*Harness, error) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests

	store, err := canvas.New(geom, canvas.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create canvas: %w", err)
	}

	clock := testutil.NewManualClock(Epoch)
	gateOpts := []edits.Option{edits.WithClock(clock)}
	if scenario.Cooldown > 0 {
		gateOpts = append(gateOpts, edits.WithCooldown(scenario.Cooldown))
	}

	srv := server.New(store, edits.NewGate(gateOpts...),
		server.WithClock(clock),
		server.WithIDGenerator(testutil.NewSequentialIDGenerator("edit")),
		server.WithJournal(j),
		server.WithLogger(logger),
	)
	return &Harness{srv: srv, clock: clock, logger: logger}, nil
}

func (h *Harness) executeSteps(steps []Step, result *Result) error {
	for i, step := range steps {
		event := TraceEvent{Seq: i + 1, Action: step.Action}

		var err error
		switch step.Action {
		case ActionStart:
			event.Outcome, _, err = h.do(http.MethodPost, "/session/start", "", nil)
		case ActionEdit:
			event.Actor, event.Tile, event.X, event.Y, event.Color = step.Actor, step.Tile, step.X, step.Y, step.Color
			err = h.edit(step, fmt.Sprintf("/tiles/%d/pixels", step.Tile), &event)
		case ActionPaint:
			event.Actor, event.X, event.Y, event.Color = step.Actor, step.X, step.Y, step.Color
			err = h.edit(step, "/pixels", &event)
		case ActionAdvance:
			now := h.clock.Advance(step.By)
			event.By = step.By
			event.Elapsed = now.Sub(Epoch)
		default:
			err = fmt.Errorf("unknown action %q", step.Action)
		}
		if err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}

		if step.Expect != "" && step.Expect != event.Outcome {
			result.AddError(fmt.Sprintf("step %d (%s): expected %s, got %s", i+1, step.Action, step.Expect, event.Outcome))
		}
		result.Trace = append(result.Trace, event)

		h.logger.Debug("step completed", "step", i+1, "action", step.Action, "outcome", event.Outcome)
	}
	return nil
}

func (h *Harness) edit(step Step, path string, event *TraceEvent) error {
	c, err := canvas.ParseColor(step.Color)
	if err != nil {
		return err
	}
	var req any = server.TilePixelRequest{X: step.X, Y: step.Y, Color: c}
	if step.Action == ActionPaint {
		req = server.CanvasPixelRequest{X: step.X, Y: step.Y, Color: c}
	}
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}
	event.Color = c.Hex()

	outcome, rec, err := h.do(http.MethodPost, path, step.Actor, body)
	if err != nil {
		return err
	}
	event.Outcome = outcome

	switch outcome {
	case OutcomeOK:
		event.Outcome = OutcomeApplied
		var entry journal.Entry
		if err := json.Unmarshal(rec.Body.Bytes(), &entry); err != nil {
			return fmt.Errorf("decode applied edit: %w", err)
		}
		event.AppliedTile, event.AppliedX, event.AppliedY = entry.Tile, entry.Pos.X, entry.Pos.Y
	case OutcomeCooldown:
		var eb server.ErrorBody
		if err := json.Unmarshal(rec.Body.Bytes(), &eb); err != nil {
			return fmt.Errorf("decode cooldown: %w", err)
		}
		event.RetryAfter = eb.Error.RetryAfterSeconds
	}
	return nil
}

// do sends one request and classifies the response.
func (h *Harness) do(method, path, actor string, body []byte) (string, *httptest.ResponseRecorder, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if actor != "" {
		req.Header.Set(config.DefaultActorHeader, actor)
	}
	rec := httptest.NewRecorder()
	h.srv.ServeHTTP(rec, req)

	if rec.Code == http.StatusOK {
		return OutcomeOK, rec, nil
	}

	var eb server.ErrorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &eb); err != nil {
		return "", nil, fmt.Errorf("%s %s: status %d: %s", method, path, rec.Code, rec.Body.String())
	}
	switch eb.Error.Code {
	case server.CodeCooldown:
		return OutcomeCooldown, rec, nil
	case server.CodeInvalidIndex:
		return OutcomeInvalidIndex, rec, nil
	case server.CodeInvalidPosition:
		return OutcomeInvalidPosition, rec, nil
	case server.CodeAlreadyStarted:
		return OutcomeAlreadyStarted, rec, nil
	case server.CodeUnauthenticated:
		return OutcomeUnauthenticated, rec, nil
	}
	return "", nil, fmt.Errorf("%s %s: unexpected %d %s: %s", method, path, rec.Code, eb.Error.Code, eb.Error.Message)
}
