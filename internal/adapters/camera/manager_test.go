package camera_test

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"sync/atomic"
	"testing"
	"time"

	qrcode "github.com/skip2/go-qrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medhaus/clinicflow/internal/adapters/camera"
	"github.com/medhaus/clinicflow/internal/domain/providers"
	"github.com/medhaus/clinicflow/pkg/config"
)

const frameSize = 256

func testConfig() config.CameraConfig {
	return config.CameraConfig{
		Device:          "/dev/video0",
		Width:           frameSize,
		Height:          frameSize,
		FPS:             15,
		FreshnessWindow: 2 * time.Second,
		ScanCooldown:    time.Minute,
		StreamFPS:       25,
		Enabled:         true,
	}
}

// scriptedSource replays a fixed set of frames, then blocks until the
// context ends. An optional leading read error exercises the reopen path.
type scriptedSource struct {
	frames    []providers.Frame
	failReads int
	delay     time.Duration

	opens atomic.Int32
	next  int
}

func (s *scriptedSource) Open(ctx context.Context) error {
	s.opens.Add(1)
	return nil
}

func (s *scriptedSource) Read(ctx context.Context) (providers.Frame, error) {
	if s.failReads > 0 {
		s.failReads--
		return providers.Frame{}, assertableErr("device wedged")
	}
	if s.next < len(s.frames) {
		if s.delay > 0 && s.next > 0 {
			select {
			case <-time.After(s.delay):
			case <-ctx.Done():
				return providers.Frame{}, ctx.Err()
			}
		}
		f := s.frames[s.next]
		s.next++
		return f, nil
	}
	<-ctx.Done()
	return providers.Frame{}, ctx.Err()
}

func (s *scriptedSource) Close() error { return nil }

type assertableErr string

func (e assertableErr) Error() string { return string(e) }

func qrFrame(t *testing.T, payload string) providers.Frame {
	t.Helper()
	qr, err := qrcode.New(payload, qrcode.Medium)
	require.NoError(t, err)
	return imageToFrame(qr.Image(frameSize))
}

func imageToFrame(img image.Image) providers.Frame {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	rgb := make([]byte, w*h*3)
	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			rgb[i] = byte(r >> 8)
			rgb[i+1] = byte(g >> 8)
			rgb[i+2] = byte(b >> 8)
			i += 3
		}
	}
	return providers.Frame{Width: w, Height: h, RGB: rgb, CapturedAt: time.Now().UTC()}
}

func TestManager_PlaceholderBeforeFirstFrame(t *testing.T) {
	m := camera.NewManager(testConfig(), &scriptedSource{}, nil, nil)

	data, live := m.LatestJPEG(time.Now())
	assert.False(t, live)
	require.NotEmpty(t, data)

	// The placeholder must itself be a decodable JPEG.
	img, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, frameSize, img.Bounds().Dx())
}

func TestManager_IngestsFramesAndDecodesScan(t *testing.T) {
	payload := "A1B2C3D4|UC-1234"
	source := &scriptedSource{frames: []providers.Frame{qrFrame(t, payload)}}

	scans := make(chan string, 4)
	m := camera.NewManager(testConfig(), source, func(value string) { scans <- value }, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	select {
	case got := <-scans:
		assert.Equal(t, payload, got)
	case <-time.After(3 * time.Second):
		t.Fatal("scan handler was never invoked")
	}

	data, live := m.LatestJPEG(time.Now())
	assert.True(t, live)
	assert.NotEmpty(t, data)

	scan := m.LastScan(time.Now())
	require.NotNil(t, scan)
	assert.Equal(t, payload, scan.Value)

	// The same code a moment later is stale: absence, not an error.
	assert.Nil(t, m.LastScan(time.Now().Add(3*time.Second)))
}

func TestManager_CooldownSuppressesRepeatScans(t *testing.T) {
	payload := "A1B2C3D4|UC-5678"
	frame := qrFrame(t, payload)
	// Spaced beyond the decode throttle so both frames reach the decoder;
	// the cooldown cache must still suppress the repeat.
	source := &scriptedSource{frames: []providers.Frame{frame, frame}, delay: 250 * time.Millisecond}

	scans := make(chan string, 4)
	m := camera.NewManager(testConfig(), source, func(value string) { scans <- value }, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	select {
	case <-scans:
	case <-time.After(3 * time.Second):
		t.Fatal("scan handler was never invoked")
	}

	select {
	case got := <-scans:
		t.Fatalf("repeat scan %q slipped through the cooldown", got)
	case <-time.After(600 * time.Millisecond):
	}
}

func TestManager_ReopensAfterReadFailure(t *testing.T) {
	source := &scriptedSource{
		failReads: 1,
		frames:    []providers.Frame{imageToFrame(image.NewRGBA(image.Rect(0, 0, frameSize, frameSize)))},
	}
	m := camera.NewManager(testConfig(), source, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if _, live := m.LatestJPEG(time.Now()); live {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	_, live := m.LatestJPEG(time.Now())
	assert.True(t, live, "frames never resumed after the read failure")
	assert.GreaterOrEqual(t, source.opens.Load(), int32(2))
}
