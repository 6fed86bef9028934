package canvas

import (
	"encoding/hex"
	"fmt"
	"image/color"
	"strings"
)

// Position addresses a pixel in a tile's local coordinate space.
type Position struct {
	X uint32 `json:"x"`
	Y uint32 `json:"y"`
}

// Color is a non-premultiplied RGBA pixel value.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
	A uint8 `json:"a"`
}

// NRGBA converts c to the standard library color type.
func (c Color) NRGBA() color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}
}

// ColorOf converts any color to a Color.
func ColorOf(c color.Color) Color {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return Color{R: n.R, G: n.G, B: n.B, A: n.A}
}

// Hex renders c as #rrggbbaa.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

// ParseColor parses #rrggbbaa or #rrggbb (opaque). The leading # is optional.
func ParseColor(s string) (Color, error) {
	raw := strings.TrimPrefix(s, "#")
	if len(raw) == 6 {
		raw += "ff"
	}
	if len(raw) != 8 {
		return Color{}, fmt.Errorf("invalid color %q: want #rrggbb or #rrggbbaa", s)
	}
	b, err := hex.DecodeString(raw)
	if err != nil {
		return Color{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return Color{R: b[0], G: b[1], B: b[2], A: b[3]}, nil
}
