package capture

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/go-trade-client/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 640x480 frame: r = 0.32*480 = 153.6, centre (320,240).
func centredFace(width float64) *Box {
	return &Box{X: 320 - width/2, Y: 240 - width/2, Width: width, Height: width}
}

func TestGoodFrame(t *testing.T) {
	cases := []struct {
		name string
		face *Box
		want bool
	}{
		{"centred and sized", centredFace(150), true},
		{"no face", nil, false},
		{"too small", centredFace(120), false},   // < 0.8r = 122.88
		{"too large", centredFace(220), false},   // > 1.4r = 215.04
		{"just inside size", centredFace(123), true},
		{"off centre", &Box{X: 320 - 75 + 120, Y: 240 - 75, Width: 150, Height: 150}, false}, // 120 > 0.75r = 115.2
		{"slightly off centre", &Box{X: 320 - 75 + 100, Y: 240 - 75, Width: 150, Height: 150}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, GoodFrame(Frame{Width: 640, Height: 480, Face: tc.face}))
		})
	}
}

func TestGoodFrame_InvalidDimensions(t *testing.T) {
	assert.False(t, GoodFrame(Frame{Face: centredFace(150)}))
}

func TestFaceGate_FourteenConsecutive(t *testing.T) {
	var g FaceGate
	good := Frame{Width: 640, Height: 480, Face: centredFace(150)}
	for i := 1; i < RequiredGoodFrames; i++ {
		assert.False(t, g.Observe(good), "frame %d", i)
	}
	assert.True(t, g.Observe(good))
	assert.Equal(t, RequiredGoodFrames, g.Streak())
}

func TestFaceGate_BadFrameResets(t *testing.T) {
	var g FaceGate
	good := Frame{Width: 640, Height: 480, Face: centredFace(150)}
	for i := 0; i < 13; i++ {
		g.Observe(good)
	}
	assert.False(t, g.Observe(Frame{Width: 640, Height: 480}))
	assert.Equal(t, 0, g.Streak())
	for i := 1; i < RequiredGoodFrames; i++ {
		assert.False(t, g.Observe(good))
	}
	assert.True(t, g.Observe(good))
}

func TestSelect(t *testing.T) {
	s, err := Select("AUTO")
	require.NoError(t, err)
	assert.Equal(t, ModeAuto, s.Mode())

	s, err = Select("")
	require.NoError(t, err)
	assert.Equal(t, ModeManual, s.Mode())

	_, err = Select("laser")
	assert.Error(t, err)
}

func TestAutoDetect_Evaluate(t *testing.T) {
	good := Frame{Width: 640, Height: 480, Face: centredFace(150)}
	bad := Frame{Width: 640, Height: 480}

	res, err := AutoDetect{}.Evaluate(nil)
	require.NoError(t, err)
	assert.Equal(t, Result{Ring: RingIdle}, res)

	res, _ = AutoDetect{}.Evaluate([]Frame{good, good, bad})
	assert.Equal(t, Result{Ring: RingDetecting}, res)

	res, _ = AutoDetect{}.Evaluate([]Frame{bad, good, good})
	assert.Equal(t, Result{Ring: RingGood, Streak: 2}, res)

	frames := make([]Frame, 0, 20)
	for i := 0; i < 20; i++ {
		frames = append(frames, good)
	}
	res, _ = AutoDetect{}.Evaluate(frames)
	assert.Equal(t, Result{Ring: RingGood, Streak: RequiredGoodFrames, Capture: true}, res)
}

func TestManualOnly_Evaluate(t *testing.T) {
	_, err := ManualOnly{}.Evaluate([]Frame{{Width: 1, Height: 1}})
	assert.ErrorIs(t, err, domain.ErrCaptureUnavailable)
}

func encodePNG(t *testing.T, w, h int) *bytes.Buffer {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			// left quarter red, rest blue, so the crop position is observable
			c := color.RGBA{B: 255, A: 255}
			if x < w/4 {
				c = color.RGBA{R: 255, A: 255}
			}
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return &buf
}

func TestSquareJPEG_CentreCrop(t *testing.T) {
	out, err := SquareJPEG(encodePNG(t, 80, 40))
	require.NoError(t, err)

	img, err := jpeg.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 40, 40), img.Bounds())

	// the red band (x < 20) is entirely cut away by the centred crop (x 20..60)
	r, _, b, _ := img.At(20, 20).RGBA()
	assert.Less(t, r, b)
}

func TestSquareJPEG_ScalesDownLargeImages(t *testing.T) {
	out, err := SquareJPEG(encodePNG(t, 1600, 1200))
	require.NoError(t, err)
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, MaxSide, cfg.Width)
	assert.Equal(t, MaxSide, cfg.Height)
}

func TestSquareJPEG_RejectsGarbage(t *testing.T) {
	_, err := SquareJPEG(bytes.NewReader([]byte("not an image")))
	assert.Error(t, err)
}

// resizedHeader rewrites the IHDR dimensions of a PNG, leaving the pixel data alone.
func resizedHeader(t *testing.T, data []byte, w, h uint32) []byte {
	t.Helper()
	require.Equal(t, "IHDR", string(data[12:16]))
	out := append([]byte(nil), data...)
	binary.BigEndian.PutUint32(out[16:20], w)
	binary.BigEndian.PutUint32(out[20:24], h)
	binary.BigEndian.PutUint32(out[29:33], crc32.ChecksumIEEE(out[12:29]))
	return out
}

func TestSquareJPEG_RejectsHugeDeclaredSize(t *testing.T) {
	crafted := resizedHeader(t, encodePNG(t, 4, 4).Bytes(), 30000, 30000)

	_, err := SquareJPEG(bytes.NewReader(crafted))
	assert.ErrorIs(t, err, ErrImageTooLarge)
}
