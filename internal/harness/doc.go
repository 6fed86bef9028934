// Package harness runs canvas scenarios end to end.
//
// A scenario is a YAML file listing steps (open the session, submit a pixel
// write as some actor, advance the clock) and assertions about the result.
// Each run builds a fresh canvas, gate and in-memory journal behind a real
// server.Server and drives it over HTTP with a manual clock, so the same
// scenario always produces the same trace.
//
// Traces render as one line per step and can be compared against golden
// files in testdata/golden with RunWithGolden. To regenerate them:
//
//	go test ./internal/harness -update
package harness
