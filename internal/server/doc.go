// Package server exposes the canvas and the edit gate over HTTP.
//
// The server is the only place the two core components meet. A pixel write
// is checked against the canvas geometry, admitted by the gate, applied to
// the canvas, appended to the journal and broadcast to live subscribers, in
// that order.
//
// # Routes
//
//	GET  /tiles/{idx}          cached tile PNG
//	GET  /overview             cached mosaic PNG
//	POST /tiles/{idx}/pixels   write one pixel in a tile
//	POST /pixels               write one pixel by absolute canvas position
//	POST /session/start        open the editing session
//	GET  /session              session state
//	GET  /geometry             canvas geometry and cooldown
//	GET  /updates              websocket feed of applied writes
//	GET  /metrics              Prometheus metrics
//	GET  /healthz              liveness
//
// # Serialization
//
// canvas.Store and edits.Gate are not safe for concurrent mutation. The
// server holds one lock per component: writers take it exclusively, tile and
// overview reads share a read lock on the canvas.
//
// # Identity
//
// The actor is read from a trusted request header (X-Actor-ID by default)
// that an authenticating proxy sets. The server does not verify it.
package server
