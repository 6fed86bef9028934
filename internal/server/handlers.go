package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/roach88/tilecanvas/internal/canvas"
	"github.com/roach88/tilecanvas/internal/edits"
	"github.com/roach88/tilecanvas/internal/journal"
)

const maxBodyBytes = 1 << 10

// journalTimeout bounds one journal append after a write is applied.
const journalTimeout = 5 * time.Second

// TilePixelRequest is the body of POST /tiles/{idx}/pixels.
type TilePixelRequest struct {
	X     uint32       `json:"x"`
	Y     uint32       `json:"y"`
	Color canvas.Color `json:"color"`
}

// CanvasPixelRequest is the body of POST /pixels. X and Y are absolute
// canvas coordinates.
type CanvasPixelRequest struct {
	X     uint32       `json:"x"`
	Y     uint32       `json:"y"`
	Color canvas.Color `json:"color"`
}

// SessionResponse describes the editing session.
type SessionResponse struct {
	Started   bool       `json:"started"`
	StartedAt *time.Time `json:"started_at,omitempty"`
}

// GeometryResponse describes the canvas shape and edit policy.
type GeometryResponse struct {
	canvas.Geometry
	NoTiles           uint32 `json:"no_tiles"`
	OverviewImageSize uint32 `json:"overview_image_size"`
	CooldownSeconds   int64  `json:"cooldown_seconds"`
}

func (s *Server) handleFetchTile(w http.ResponseWriter, r *http.Request) {
	idx, ok := parseTileIndex(w, r)
	if !ok {
		return
	}

	s.canvasMu.RLock()
	data, err := s.canvas.FetchTile(idx)
	s.canvasMu.RUnlock()
	if err != nil {
		if errors.Is(err, canvas.ErrInvalidIndex) {
			writeProblem(w, http.StatusNotFound, CodeInvalidIndex, "%v", err)
			return
		}
		writeError(w, err)
		return
	}

	writePNG(w, r, canvas.Digest(canvas.DomainTile, data), data)
}

func (s *Server) handleFetchOverview(w http.ResponseWriter, r *http.Request) {
	s.canvasMu.RLock()
	data := s.canvas.FetchOverview()
	s.canvasMu.RUnlock()

	writePNG(w, r, canvas.Digest(canvas.DomainOverview, data), data)
}

func (s *Server) handleUpdateTilePixel(w http.ResponseWriter, r *http.Request) {
	idx, ok := parseTileIndex(w, r)
	if !ok {
		return
	}
	var req TilePixelRequest
	if !decodeBody(w, r, &req) {
		return
	}
	s.applyPixel(w, r, idx, canvas.Position{X: req.X, Y: req.Y}, req.Color)
}

func (s *Server) handleUpdateCanvasPixel(w http.ResponseWriter, r *http.Request) {
	var req CanvasPixelRequest
	if !decodeBody(w, r, &req) {
		return
	}

	geom := s.canvas.Geometry()
	idx, pos, ok := geom.Locate(req.X, req.Y)
	if !ok {
		s.metrics.edits.WithLabelValues(resultInvalid).Inc()
		side := geom.RowLength * geom.TileSize
		writeProblem(w, http.StatusBadRequest, CodeInvalidPosition,
			"%v: (%d, %d) outside %dx%d canvas", canvas.ErrInvalidPosition, req.X, req.Y, side, side)
		return
	}
	s.applyPixel(w, r, idx, pos, req.Color)
}

// applyPixel runs one write through validation, the gate, the canvas, the
// journal and the update feed.
//
// Input is validated against the geometry before the gate is consulted, so
// a malformed request never uses up the actor's cooldown.
func (s *Server) applyPixel(w http.ResponseWriter, r *http.Request, idx uint32, pos canvas.Position, c canvas.Color) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}

	if err := s.canvas.Geometry().CheckPixel(idx, pos); err != nil {
		s.metrics.edits.WithLabelValues(resultInvalid).Inc()
		writeError(w, err)
		return
	}

	nowNs := edits.UnixNanos(s.clock)

	s.gateMu.Lock()
	prevNs, hadPrev := s.gate.LastEdit(actor)
	err := s.gate.RegisterEdit(actor, nowNs)
	actors := s.gate.Actors()
	s.gateMu.Unlock()
	s.metrics.actors.Set(float64(actors))
	if err != nil {
		s.metrics.edits.WithLabelValues(resultCooldown).Inc()
		s.logger.Debug("edit rejected", "actor", actor, "error", err)
		writeError(w, err)
		return
	}

	start := time.Now()
	s.canvasMu.Lock()
	err = s.canvas.UpdatePixel(idx, pos, c)
	if err != nil {
		s.canvasMu.Unlock()
		// Nothing was written, so the edit does not count against the actor.
		s.gateMu.Lock()
		s.gate.Revert(actor, nowNs, prevNs, hadPrev)
		actors = s.gate.Actors()
		s.gateMu.Unlock()
		s.metrics.actors.Set(float64(actors))
		s.logger.Error("update pixel failed", "actor", actor, "tile", idx, "error", err)
		writeError(w, err)
		return
	}
	// Hand over to recordMu before releasing the canvas so the journal and
	// the feed see writes in the order they were applied.
	s.recordMu.Lock()
	s.canvasMu.Unlock()
	s.metrics.updateDuration.Observe(time.Since(start).Seconds())
	s.metrics.edits.WithLabelValues(resultApplied).Inc()

	entry := journal.Entry{
		ID:    s.ids.Generate(),
		Actor: actor,
		Tile:  idx,
		Pos:   pos,
		Color: c,
		AtNs:  nowNs,
	}
	if s.journal != nil {
		// The write is already applied: the append outlives the request and
		// a failure is logged, not reported to the client.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), journalTimeout)
		recorded, err := s.journal.Append(ctx, entry)
		cancel()
		if err != nil {
			s.metrics.journalErrors.Inc()
			s.logger.Error("journal append failed", "id", entry.ID, "error", err)
		} else {
			entry = recorded
		}
	}
	s.hub.Broadcast(entry)
	s.recordMu.Unlock()

	s.logger.Debug("edit applied", "actor", actor, "tile", idx, "x", pos.X, "y", pos.Y)
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if err := s.Start(); err != nil {
		writeError(w, err)
		return
	}
	s.logger.Info("editing session started")
	s.handleSession(w, r)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	s.gateMu.Lock()
	at, started := s.gate.StartedAt()
	s.gateMu.Unlock()

	resp := SessionResponse{Started: started}
	if started {
		resp.StartedAt = &at
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGeometry(w http.ResponseWriter, r *http.Request) {
	g := s.canvas.Geometry()
	writeJSON(w, http.StatusOK, GeometryResponse{
		Geometry:          g,
		NoTiles:           g.NoTiles(),
		OverviewImageSize: g.OverviewImageSize(),
		CooldownSeconds:   int64(s.gate.Cooldown() / time.Second),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.journal != nil {
		if err := s.journal.Ping(r.Context()); err != nil {
			writeProblem(w, http.StatusServiceUnavailable, CodeInternal, "journal unavailable: %v", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// actor extracts and normalizes the caller's identity.
func (s *Server) actor(w http.ResponseWriter, r *http.Request) (edits.ActorID, bool) {
	id, ok := edits.ParseActorID(r.Header.Get(s.actorHeader))
	if !ok {
		writeProblem(w, http.StatusUnauthorized, CodeUnauthenticated, "missing %s header", s.actorHeader)
		return "", false
	}
	return id, true
}

func parseTileIndex(w http.ResponseWriter, r *http.Request) (uint32, bool) {
	raw := mux.Vars(r)["idx"]
	idx, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, CodeInvalidIndex, "%v: %q", canvas.ErrInvalidIndex, raw)
		return 0, false
	}
	return uint32(idx), true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeProblem(w, http.StatusBadRequest, CodeBadRequest, "invalid request body: %v", err)
		return false
	}
	return true
}

// writePNG serves cached image bytes with a strong validator.
func writePNG(w http.ResponseWriter, r *http.Request, digest string, data []byte) {
	etag := fmt.Sprintf("%q", digest)
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if match := r.Header.Get("If-None-Match"); match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write(data)
	}
}
