// Package crop maps a target aspect ratio to crop geometry.
//
// Geometry is expressed symbolically in ffmpeg crop filter terms (iw, ih, ow)
// because the source resolution is only known to the encoder at render time.
// Crops keep the full input height and center horizontally.
package crop

import (
	"fmt"
	"strings"
)

// Aspect is a target output aspect ratio.
type Aspect string

const (
	Portrait916  Aspect = "9:16"
	Square11     Aspect = "1:1"
	Landscape169 Aspect = "16:9"
)

// ParseAspect accepts "9:16", "1:1" and "16:9". Anything else, including an
// empty string, is landscape and renders uncropped.
func ParseAspect(s string) Aspect {
	switch a := Aspect(strings.TrimSpace(s)); a {
	case Portrait916, Square11, Landscape169:
		return a
	default:
		return Landscape169
	}
}

// Expression is a crop geometry. The zero value is the identity: no crop.
type Expression struct {
	// crop width = ih * num / den
	num, den int
}

// Rect is a concrete crop rectangle for a known input size.
type Rect struct {
	W, H, X, Y int
}

// Filter returns the crop geometry for a.
func Filter(a Aspect) Expression {
	switch a {
	case Portrait916:
		return Expression{num: 9, den: 16}
	case Square11:
		return Expression{num: 1, den: 1}
	default:
		return Expression{}
	}
}

// IsIdentity reports whether the expression leaves the frame untouched.
func (e Expression) IsIdentity() bool {
	return e.den == 0
}

func (e Expression) Width() string {
	if e.num == e.den {
		return "ih"
	}
	return fmt.Sprintf("ih*%d/%d", e.num, e.den)
}

func (e Expression) Height() string { return "ih" }

// X centers the crop window: (input width - output width) / 2.
func (e Expression) X() string { return "(iw-ow)/2" }

func (e Expression) Y() string { return "0" }

// String renders the ffmpeg crop filter, or "" for the identity.
func (e Expression) String() string {
	if e.IsIdentity() {
		return ""
	}
	return fmt.Sprintf("crop=%s:%s:%s:%s", e.Width(), e.Height(), e.X(), e.Y())
}

// Apply evaluates the expression for an input of inW x inH pixels, following
// ffmpeg's integer truncation.
func (e Expression) Apply(inW, inH int) Rect {
	if e.IsIdentity() {
		return Rect{W: inW, H: inH}
	}
	w := inH * e.num / e.den
	return Rect{W: w, H: inH, X: (inW - w) / 2, Y: 0}
}
