package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image/color"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tilecanvas/internal/canvas"
	"github.com/roach88/tilecanvas/internal/edits"
	"github.com/roach88/tilecanvas/internal/journal"
	"github.com/roach88/tilecanvas/internal/testutil"
)

var epoch = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func testGeometry() canvas.Geometry {
	return canvas.Geometry{RowLength: 4, TileSize: 8, OverviewTileSize: 2}
}

type testEnv struct {
	srv   *Server
	store *canvas.Store
	clock *testutil.ManualClock
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	clock := testutil.NewManualClock(epoch)
	store := canvas.MustNew(testGeometry())
	gate := edits.NewGate(edits.WithClock(clock))

	base := []Option{
		WithClock(clock),
		WithIDGenerator(testutil.NewFixedIDGenerator("edit-1")),
	}
	srv := New(store, gate, append(base, opts...)...)
	return &testEnv{srv: srv, store: store, clock: clock}
}

func (e *testEnv) do(t *testing.T, method, path, actor, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if actor != "" {
		req.Header.Set("X-Actor-ID", actor)
	}
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorDetail {
	t.Helper()
	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body.Error
}

const whitePixel = `{"x":1,"y":2,"color":{"r":255,"g":255,"b":255,"a":255}}`

func TestFetchTile(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/tiles/3", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	want, err := env.store.FetchTile(3)
	require.NoError(t, err)
	assert.Equal(t, want, rec.Body.Bytes())

	img := testutil.DecodePNG(t, rec.Body.Bytes())
	assert.Equal(t, 8, img.Bounds().Dx())
}

func TestFetchTile_OutOfRange(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/tiles/16", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, CodeInvalidIndex, decodeError(t, rec).Code)

	rec = env.do(t, http.MethodGet, "/tiles/99999999999", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeInvalidIndex, decodeError(t, rec).Code)

	rec = env.do(t, http.MethodGet, "/tiles/abc", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFetchTile_ConditionalGet(t *testing.T) {
	env := newTestEnv(t)

	first := env.do(t, http.MethodGet, "/tiles/0", "", "")
	etag := first.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(http.MethodGet, "/tiles/0", nil)
	req.Header.Set("If-None-Match", etag)
	rec := httptest.NewRecorder()
	env.srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotModified, rec.Code)
	assert.Empty(t, rec.Body.Bytes())

	// A write changes the validator.
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/tiles/0/pixels", "alice", whitePixel).Code)
	after := env.do(t, http.MethodGet, "/tiles/0", "", "")
	assert.NotEqual(t, etag, after.Header().Get("ETag"))
}

func TestFetchOverview(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/overview", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, env.store.FetchOverview(), rec.Body.Bytes())

	img := testutil.DecodePNG(t, rec.Body.Bytes())
	assert.Equal(t, 8, img.Bounds().Dx())
	testutil.RequireUniform(t, img, color.NRGBA{})
}

func TestFetchOverview_Head(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodHead, "/overview", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Content-Length"))
	assert.Empty(t, rec.Body.Bytes())
}

func TestUpdatePixel_Applied(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/tiles/5/pixels", "alice", whitePixel)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var entry journal.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entry))
	assert.Equal(t, "edit-1", entry.ID)
	assert.Equal(t, edits.ActorID("alice"), entry.Actor)
	assert.Equal(t, uint32(5), entry.Tile)
	assert.Equal(t, canvas.Position{X: 1, Y: 2}, entry.Pos)
	assert.Equal(t, canvas.Color{R: 255, G: 255, B: 255, A: 255}, entry.Color)
	assert.Equal(t, epoch.UnixNano(), entry.AtNs)

	data, err := env.store.FetchTile(5)
	require.NoError(t, err)
	img := testutil.DecodePNG(t, data)
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, testutil.NRGBAAt(img, 1, 2))
}

func TestUpdatePixel_Cooldown(t *testing.T) {
	env := newTestEnv(t)

	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/tiles/0/pixels", "alice", whitePixel).Code)

	env.clock.Advance(29 * time.Second)
	rec := env.do(t, http.MethodPost, "/tiles/0/pixels", "alice", whitePixel)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	detail := decodeError(t, rec)
	assert.Equal(t, CodeCooldown, detail.Code)
	assert.Equal(t, 1, detail.RetryAfterSeconds)

	// Another actor is unaffected.
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/tiles/0/pixels", "bob", whitePixel).Code)

	env.clock.Advance(2 * time.Second)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/tiles/0/pixels", "alice", whitePixel).Code)
}

func TestUpdatePixel_RequiresActor(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/tiles/0/pixels", "", whitePixel)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, CodeUnauthenticated, decodeError(t, rec).Code)

	rec = env.do(t, http.MethodPost, "/tiles/0/pixels", "   ", whitePixel)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUpdatePixel_CustomActorHeader(t *testing.T) {
	env := newTestEnv(t, WithActorHeader("X-Principal"))

	req := httptest.NewRequest(http.MethodPost, "/tiles/0/pixels", strings.NewReader(whitePixel))
	req.Header.Set("X-Principal", "carol")
	rec := httptest.NewRecorder()
	env.srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodPost, "/tiles/0/pixels", "alice", whitePixel).Code)
}

func TestUpdatePixel_InvalidInputKeepsCooldown(t *testing.T) {
	env := newTestEnv(t)
	overview := env.store.FetchOverview()

	rec := env.do(t, http.MethodPost, "/tiles/0/pixels", "alice", `{"x":8,"y":0,"color":{"a":255}}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeInvalidPosition, decodeError(t, rec).Code)

	rec = env.do(t, http.MethodPost, "/tiles/16/pixels", "alice", whitePixel)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeInvalidIndex, decodeError(t, rec).Code)

	assert.Equal(t, overview, env.store.FetchOverview())

	// Rejected input did not consume alice's cooldown.
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/tiles/0/pixels", "alice", whitePixel).Code)
}

func TestUpdatePixel_BadBody(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body string
	}{
		{"not json", "nope"},
		{"channel overflow", `{"x":0,"y":0,"color":{"r":256}}`},
		{"negative coordinate", `{"x":-1,"y":0,"color":{}}`},
		{"unknown field", `{"x":0,"y":0,"colour":{}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/tiles/0/pixels", "alice", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, CodeBadRequest, decodeError(t, rec).Code)
		})
	}
}

func TestUpdateCanvasPixel(t *testing.T) {
	env := newTestEnv(t)

	// Absolute (9, 17) is tile (col 1, row 2) at local (1, 1).
	rec := env.do(t, http.MethodPost, "/pixels", "alice", `{"x":9,"y":17,"color":{"g":255,"a":255}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var entry journal.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entry))
	assert.Equal(t, uint32(9), entry.Tile)
	assert.Equal(t, canvas.Position{X: 1, Y: 1}, entry.Pos)

	rec = env.do(t, http.MethodPost, "/pixels", "bob", `{"x":32,"y":0,"color":{}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeInvalidPosition, decodeError(t, rec).Code)
}

func TestSession(t *testing.T) {
	env := newTestEnv(t)

	var resp SessionResponse
	rec := env.do(t, http.MethodGet, "/session", "", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Started)
	assert.Nil(t, resp.StartedAt)

	rec = env.do(t, http.MethodPost, "/session/start", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Started)
	require.NotNil(t, resp.StartedAt)
	assert.True(t, epoch.Equal(*resp.StartedAt))

	env.clock.Advance(time.Minute)
	rec = env.do(t, http.MethodPost, "/session/start", "", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, CodeAlreadyStarted, decodeError(t, rec).Code)

	rec = env.do(t, http.MethodGet, "/session", "", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, epoch.Equal(*resp.StartedAt), "start time must not move")

	assert.ErrorIs(t, env.srv.Start(), edits.ErrAlreadyStarted)
}

func TestGeometry(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/geometry", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp GeometryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, testGeometry(), resp.Geometry)
	assert.Equal(t, uint32(16), resp.NoTiles)
	assert.Equal(t, uint32(8), resp.OverviewImageSize)
	assert.Equal(t, int64(30), resp.CooldownSeconds)
}

func TestMetrics(t *testing.T) {
	env := newTestEnv(t)

	env.do(t, http.MethodPost, "/tiles/0/pixels", "alice", whitePixel)
	env.do(t, http.MethodPost, "/tiles/0/pixels", "alice", whitePixel)
	env.do(t, http.MethodPost, "/tiles/0/pixels", "alice", `{"x":99,"y":0,"color":{}}`)

	rec := env.do(t, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `tilecanvas_edits_total{result="applied"} 1`)
	assert.Contains(t, body, `tilecanvas_edits_total{result="cooldown"} 1`)
	assert.Contains(t, body, `tilecanvas_edits_total{result="invalid"} 1`)
	assert.Contains(t, body, "tilecanvas_actors 1")
	assert.Contains(t, body, "tilecanvas_update_duration_seconds_count 1")
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// fakeJournal records appends in memory.
type fakeJournal struct {
	mu      sync.Mutex
	entries []journal.Entry
	err     error
}

func (f *fakeJournal) Append(_ context.Context, e journal.Entry) (journal.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return journal.Entry{}, f.err
	}
	e.Seq = int64(len(f.entries) + 1)
	f.entries = append(f.entries, e)
	return e, nil
}

func (f *fakeJournal) Ping(context.Context) error {
	return f.err
}

func TestJournal_RecordsAppliedWrites(t *testing.T) {
	j := &fakeJournal{}
	env := newTestEnv(t, WithJournal(j))

	rec := env.do(t, http.MethodPost, "/tiles/2/pixels", "alice", whitePixel)
	require.Equal(t, http.StatusOK, rec.Code)
	env.do(t, http.MethodPost, "/tiles/2/pixels", "alice", whitePixel) // cooldown

	require.Len(t, j.entries, 1)
	assert.Equal(t, uint32(2), j.entries[0].Tile)

	var entry journal.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entry))
	assert.Equal(t, int64(1), entry.Seq)
}

func TestJournal_FailureDoesNotFailWrite(t *testing.T) {
	j := &fakeJournal{err: errors.New("disk full")}
	env := newTestEnv(t, WithJournal(j))

	rec := env.do(t, http.MethodPost, "/tiles/2/pixels", "alice", whitePixel)
	assert.Equal(t, http.StatusOK, rec.Code)

	metrics := env.do(t, http.MethodGet, "/metrics", "", "").Body.String()
	assert.Contains(t, metrics, "tilecanvas_journal_errors_total 1")

	health := env.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, health.Code)
}

func TestJournal_SQLite(t *testing.T) {
	j, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })

	env := newTestEnv(t, WithJournal(j), WithIDGenerator(journal.UUIDv7Generator{}))
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/tiles/7/pixels", "alice", whitePixel).Code)
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/tiles/8/pixels", "bob", whitePixel).Code)

	got, err := j.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, edits.ActorID("alice"), got[0].Actor)
	assert.Equal(t, uint32(8), got[1].Tile)

	health := env.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, health.Code)
}

func TestJournal_AppendSurvivesClientDisconnect(t *testing.T) {
	j, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	env := newTestEnv(t, WithJournal(j))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/tiles/5/pixels", strings.NewReader(whitePixel)).WithContext(ctx)
	req.Header.Set("X-Actor-ID", "alice")
	rec := httptest.NewRecorder()
	env.srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	n, err := j.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "an applied write is journaled even if the client is gone")
}

func TestUpdatePixel_EncodeFailureKeepsCooldown(t *testing.T) {
	clock := testutil.NewManualClock(epoch)
	gate := edits.NewGate(edits.WithClock(clock))
	enc := &testutil.FailingEncoder{OK: 2}
	store := canvas.MustNew(testGeometry(), canvas.WithEncoder(enc))
	j := &fakeJournal{}
	srv := New(store, gate, WithClock(clock), WithJournal(j),
		WithIDGenerator(testutil.NewFixedIDGenerator("edit-1")))
	env := &testEnv{srv: srv, store: store, clock: clock}

	rec := env.do(t, http.MethodPost, "/tiles/2/pixels", "alice", whitePixel)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, CodeInternal, decodeError(t, rec).Code)
	assert.Empty(t, j.entries)

	_, recorded := gate.LastEdit("alice")
	assert.False(t, recorded, "a failed write must not start a cooldown")
	assert.Equal(t, 0, gate.Actors())

	// The next attempt reaches the store again instead of being throttled.
	rec = env.do(t, http.MethodPost, "/tiles/2/pixels", "alice", whitePixel)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, int64(4), enc.Calls())
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())

	errc := make(chan error, 1)
	go func() {
		errc <- env.srv.ListenAndServe(ctx, "127.0.0.1:0")
	}()

	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServe_ListenError(t *testing.T) {
	env := newTestEnv(t)
	err := env.srv.ListenAndServe(context.Background(), "256.0.0.1:bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listen")
}

func TestWriteError_Internal(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal error", decodeError(t, rec).Message)
	assert.False(t, bytes.Contains(rec.Body.Bytes(), []byte("boom")))
}
