package testutil

import (
	"errors"
	"image"
	"image/png"
	"io"
	"sync/atomic"
)

// ErrEncodeFailed is returned by a FailingEncoder once it has run out of
// successful encodes.
var ErrEncodeFailed = errors.New("encode failed")

// FailingEncoder encodes PNGs normally for the first OK calls and then fails
// every call after that.
//
// Thread-safety: All methods are safe for concurrent use.
type FailingEncoder struct {
	OK    int64
	calls atomic.Int64
	enc   png.Encoder
}

// Encode implements canvas.Encoder.
func (e *FailingEncoder) Encode(w io.Writer, m image.Image) error {
	if e.calls.Add(1) > e.OK {
		return ErrEncodeFailed
	}
	return e.enc.Encode(w, m)
}

// Calls returns how many times Encode has been called.
func (e *FailingEncoder) Calls() int64 {
	return e.calls.Load()
}
