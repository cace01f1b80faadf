package pipeline

import (
	"fmt"
	"math"
)

// Size is a width/height pair in pixels. Displayed sizes may be fractional.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// pending reports whether s cannot be used as a scale denominator yet.
func (s Size) pending() bool {
	return s.Width <= 0 || s.Height <= 0
}

// Rect is a rectangle in displayed-image pixel space.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// PixelRect is a rectangle in native-image pixel space.
type PixelRect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// DisplayToNative scales r from displayed to native space, rounds to whole
// pixels and clamps the result inside the native image. Display and native
// are assumed to share an aspect ratio (no letterboxing).
//
// A zero native or displayed dimension returns ErrSizePending; callers retry
// once the image has been decoded and laid out.
func DisplayToNative(r Rect, displayed, native Size) (PixelRect, error) {
	if native.pending() || displayed.pending() {
		return PixelRect{}, ErrSizePending
	}
	sx := native.Width / displayed.Width
	sy := native.Height / displayed.Height
	w, h := int(native.Width), int(native.Height)

	out := PixelRect{
		X:      int(math.Round(r.X * sx)),
		Y:      int(math.Round(r.Y * sy)),
		Width:  int(math.Round(r.Width * sx)),
		Height: int(math.Round(r.Height * sy)),
	}
	out.X = max(min(out.X, w-1), 0)
	out.Y = max(min(out.Y, h-1), 0)
	out.Width = max(min(out.Width, w-out.X), 1)
	out.Height = max(min(out.Height, h-out.Y), 1)
	return out, nil
}

// NativeToDisplay is the inverse scale of DisplayToNative. It does not clamp.
func NativeToDisplay(r PixelRect, native, displayed Size) (Rect, error) {
	if native.pending() || displayed.pending() {
		return Rect{}, ErrSizePending
	}
	sx := displayed.Width / native.Width
	sy := displayed.Height / native.Height
	return Rect{
		X:      float64(r.X) * sx,
		Y:      float64(r.Y) * sy,
		Width:  float64(r.Width) * sx,
		Height: float64(r.Height) * sy,
	}, nil
}

// Node box metrics on the canvas. A drop places the node centred on the
// pointer, so the stored position is the drop point minus DropOffset.
const (
	NodeWidth  = 150
	NodeHeight = 100
)

var DropOffset = Position{X: NodeWidth / 2, Y: NodeHeight / 2}

// InputPort is the canvas location of n's input port (left edge, middle).
func InputPort(n Node) Position {
	return Position{X: n.X, Y: n.Y + NodeHeight/2}
}

// OutputPort is the canvas location of n's output port (right edge, middle).
func OutputPort(n Node) Position {
	return Position{X: n.X + NodeWidth, Y: n.Y + NodeHeight/2}
}

// Path is a cubic Bézier connector between two ports.
type Path struct {
	From, C1, C2, To Position
}

// Connector returns the horizontal-tangent curve from one port to another.
func Connector(from, to Position) Path {
	dx := to.X - from.X
	return Path{
		From: from,
		C1:   Position{X: from.X + dx*0.5, Y: from.Y},
		C2:   Position{X: to.X - dx*0.5, Y: to.Y},
		To:   to,
	}
}

// String renders p as SVG path data.
func (p Path) String() string {
	return fmt.Sprintf("M %g %g C %g %g, %g %g, %g %g",
		p.From.X, p.From.Y, p.C1.X, p.C1.Y, p.C2.X, p.C2.Y, p.To.X, p.To.Y)
}

// MarshalText encodes p as its SVG path data.
func (p Path) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText parses path data produced by MarshalText.
func (p *Path) UnmarshalText(text []byte) error {
	_, err := fmt.Sscanf(string(text), "M %g %g C %g %g, %g %g, %g %g",
		&p.From.X, &p.From.Y, &p.C1.X, &p.C1.Y, &p.C2.X, &p.C2.Y, &p.To.X, &p.To.Y)
	if err != nil {
		return fmt.Errorf("pipeline: parse path %q: %w", text, err)
	}
	return nil
}
