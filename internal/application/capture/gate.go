// Package capture decides when a live selfie frame is good enough to take, and
// normalises the taken image into the square JPEG the KYC upload expects.
package capture

import "math"

const (
	targetRatio        = 0.32 // target circle radius relative to the short side
	centerTolerance    = 0.75
	minWidthRatio      = 0.8
	maxWidthRatio      = 1.4
	RequiredGoodFrames = 14
)

// Box is a detected face bounding box in frame pixels.
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Frame is one face-detection sample from the live camera. Face is nil when nothing
// was detected.
type Frame struct {
	Width  int  `json:"width" validate:"gt=0"`
	Height int  `json:"height" validate:"gt=0"`
	Face   *Box `json:"face,omitempty"`
}

// GoodFrame reports whether the face sits inside the target circle and has a
// plausible size for it.
func GoodFrame(f Frame) bool {
	if f.Face == nil || f.Width <= 0 || f.Height <= 0 {
		return false
	}
	r := targetRatio * math.Min(float64(f.Width), float64(f.Height))
	cx, cy := float64(f.Width)/2, float64(f.Height)/2
	fx, fy := f.Face.X+f.Face.Width/2, f.Face.Y+f.Face.Height/2
	centered := math.Hypot(fx-cx, fy-cy) < centerTolerance*r
	sized := f.Face.Width > minWidthRatio*r && f.Face.Width < maxWidthRatio*r
	return centered && sized
}

// FaceGate counts consecutive good frames. Any other frame resets the count.
type FaceGate struct {
	streak int
}

// Observe feeds one frame and reports whether capture should fire now.
func (g *FaceGate) Observe(f Frame) bool {
	if !GoodFrame(f) {
		g.streak = 0
		return false
	}
	g.streak++
	return g.streak >= RequiredGoodFrames
}

func (g *FaceGate) Streak() int { return g.streak }

func (g *FaceGate) Reset() { g.streak = 0 }
