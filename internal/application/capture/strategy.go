package capture

import (
	"fmt"
	"strings"

	"github.com/go-trade-client/internal/domain"
)

type Mode string

const (
	ModeAuto   Mode = "auto"
	ModeManual Mode = "manual"
)

// Ring is the guide-circle state shown around the camera preview.
type Ring string

const (
	RingIdle      Ring = "idle"
	RingDetecting Ring = "detecting"
	RingGood      Ring = "good"
)

// Result is the outcome of evaluating a run of frames.
type Result struct {
	Ring    Ring `json:"ring"`
	Streak  int  `json:"streak"`
	Capture bool `json:"capture"`
}

// Strategy is chosen once at startup. Both variants accept a manual capture; only
// AutoDetect can evaluate detection frames.
type Strategy interface {
	Mode() Mode
	Evaluate(frames []Frame) (Result, error)
}

// Select returns the strategy for the configured mode.
func Select(mode string) (Strategy, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(mode))) {
	case ModeAuto:
		return AutoDetect{}, nil
	case ModeManual, "":
		return ManualOnly{}, nil
	}
	return nil, fmt.Errorf("unknown capture mode %q", mode)
}

type AutoDetect struct{}

func (AutoDetect) Mode() Mode { return ModeAuto }

// Evaluate replays frames, oldest first, through a fresh gate. Capture fires on the
// first frame that completes a run of good frames; later frames are ignored.
func (AutoDetect) Evaluate(frames []Frame) (Result, error) {
	var g FaceGate
	res := Result{Ring: RingIdle}
	for _, f := range frames {
		if g.Observe(f) {
			return Result{Ring: RingGood, Streak: g.Streak(), Capture: true}, nil
		}
		res.Streak = g.Streak()
		if res.Streak > 0 {
			res.Ring = RingGood
		} else {
			res.Ring = RingDetecting
		}
	}
	return res, nil
}

type ManualOnly struct{}

func (ManualOnly) Mode() Mode { return ModeManual }

func (ManualOnly) Evaluate([]Frame) (Result, error) {
	return Result{}, domain.ErrCaptureUnavailable
}
