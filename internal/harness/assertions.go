package harness

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"

	"github.com/roach88/tilecanvas/internal/canvas"
	"github.com/roach88/tilecanvas/internal/journal"
	"github.com/roach88/tilecanvas/internal/server"
)

// AssertionContext gives assertions read access to the scenario's server
// and journal.
type AssertionContext struct {
	Ctx      context.Context
	Server   *server.Server
	Journal  *journal.Journal
	Geometry canvas.Geometry
}

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		fmt.Fprintf(&buf, "  %s\n", event)
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion and returns failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var failures []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertPixel:
			err = assertPixel(result.Trace, a, actx)
		case AssertOutcomeCount:
			err = assertOutcomeCount(result, a)
		case AssertOverviewRegions:
			err = assertOverviewRegions(result.Trace, a, actx)
		case AssertJournalCount:
			err = assertJournalCount(result.Trace, a, actx)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return failures
}

func assertPixel(trace []TraceEvent, a Assertion, actx *AssertionContext) error {
	want, err := canvas.ParseColor(a.Color)
	if err != nil {
		return err
	}
	img, err := fetchPNG(actx.Server, fmt.Sprintf("/tiles/%d", a.Tile))
	if err != nil {
		return err
	}
	if !(image.Point{X: int(a.X), Y: int(a.Y)}).In(img.Bounds()) {
		return fmt.Errorf("pixel (%d, %d) outside tile %d", a.X, a.Y, a.Tile)
	}

	got := canvas.ColorOf(img.At(int(a.X), int(a.Y)))
	if got != want {
		return &AssertionError{
			Type:     AssertPixel,
			Expected: fmt.Sprintf("tile %d (%d,%d) = %s", a.Tile, a.X, a.Y, want.Hex()),
			Actual:   got.Hex(),
			Trace:    trace,
		}
	}
	return nil
}

func assertOutcomeCount(result *Result, a Assertion) error {
	got := result.Outcomes()[a.Outcome]
	if got != a.Count {
		return &AssertionError{
			Type:     AssertOutcomeCount,
			Expected: fmt.Sprintf("%d %s", a.Count, a.Outcome),
			Actual:   fmt.Sprintf("%d %s", got, a.Outcome),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertOverviewRegions checks that exactly the listed tiles have a
// non-transparent overview region.
func assertOverviewRegions(trace []TraceEvent, a Assertion, actx *AssertionContext) error {
	img, err := fetchPNG(actx.Server, "/overview")
	if err != nil {
		return err
	}

	g := actx.Geometry
	var painted []uint32
	for idx := uint32(0); idx < g.NoTiles(); idx++ {
		x, y := g.TileOffset(idx)
		if !regionTransparent(img, x, y, int(g.OverviewTileSize)) {
			painted = append(painted, idx)
		}
	}

	want := slices.Clone(a.Tiles)
	slices.Sort(want)
	if !slices.Equal(painted, want) {
		return &AssertionError{
			Type:     AssertOverviewRegions,
			Expected: fmt.Sprintf("painted regions %v", want),
			Actual:   fmt.Sprintf("painted regions %v", painted),
			Trace:    trace,
		}
	}
	return nil
}

func assertJournalCount(trace []TraceEvent, a Assertion, actx *AssertionContext) error {
	got, err := actx.Journal.Count(actx.Ctx)
	if err != nil {
		return err
	}
	if got != int64(a.Count) {
		return &AssertionError{
			Type:     AssertJournalCount,
			Expected: fmt.Sprintf("%d journal entries", a.Count),
			Actual:   fmt.Sprintf("%d journal entries", got),
			Trace:    trace,
		}
	}
	return nil
}

func fetchPNG(srv *server.Server, path string) (image.Image, error) {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	if rec.Code != http.StatusOK {
		return nil, fmt.Errorf("GET %s: status %d: %s", path, rec.Code, rec.Body.String())
	}
	img, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("GET %s: decode: %w", path, err)
	}
	return img, nil
}

func regionTransparent(img image.Image, x, y, size int) bool {
	for dy := 0; dy < size; dy++ {
		for dx := 0; dx < size; dx++ {
			if color.NRGBAModel.Convert(img.At(x+dx, y+dy)).(color.NRGBA).A != 0 {
				return false
			}
		}
	}
	return true
}
