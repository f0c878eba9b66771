package camera

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"

	"github.com/medhaus/clinicflow/internal/domain/entities"
	"github.com/medhaus/clinicflow/internal/domain/providers"
	"github.com/medhaus/clinicflow/internal/infrastructure/observability"
	"github.com/medhaus/clinicflow/pkg/config"
)

// decodeInterval caps how often full QR detection runs; frames arrive
// faster than codes change.
const decodeInterval = 200 * time.Millisecond

const scanCacheSize = 128

// ScanHandler receives each newly decoded code value exactly once per
// cooldown window. Called from the capture worker; implementations must
// not block.
type ScanHandler func(value string)

// Manager owns the capture worker. It keeps the latest encoded frame and
// the latest decoded scan behind a narrow mutex so HTTP readers never
// wait on capture or decode work. When the device fails it degrades to a
// placeholder frame and keeps retrying the source with exponential
// backoff; request paths are never affected by capture failures.
type Manager struct {
	cfg     config.CameraConfig
	source  providers.FrameSource
	handler ScanHandler
	metrics *observability.Metrics
	reader  gozxing.Reader

	mu          sync.Mutex
	lastJPEG    []byte
	lastFrameAt time.Time
	lastScan    *entities.ScanRecord
	live        bool

	recent      *expirable.LRU[string, time.Time]
	placeholder []byte
	lastDecode  time.Time
}

// NewManager creates a manager around a frame source. Handler and
// metrics may be nil.
func NewManager(cfg config.CameraConfig, source providers.FrameSource, handler ScanHandler, metrics *observability.Metrics) *Manager {
	return &Manager{
		cfg:         cfg,
		source:      source,
		handler:     handler,
		metrics:     metrics,
		reader:      qrcode.NewQRCodeReader(),
		recent:      expirable.NewLRU[string, time.Time](scanCacheSize, nil, cfg.ScanCooldown),
		placeholder: placeholderJPEG(cfg.Width, cfg.Height),
	}
}

// Run drives the capture loop until ctx ends. On source failure the
// device is closed and reopened with exponential backoff while readers
// are served the placeholder.
func (m *Manager) Run(ctx context.Context) {
	log := observability.GetLogger()
	defer m.source.Close()

	for ctx.Err() == nil {
		if err := m.openWithBackoff(ctx); err != nil {
			return
		}
		m.setLive(true)
		log.Info().Msg("camera: capture loop running")

		for ctx.Err() == nil {
			frame, err := m.source.Read(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Warn().Err(err).Msg("camera: read failed, reopening device")
				m.source.Close()
				m.setLive(false)
				break
			}
			m.ingest(ctx, frame)
		}
	}
}

// LatestJPEG returns the most recent encoded frame and whether it is
// live. A frame older than the freshness window is replaced by the
// placeholder.
func (m *Manager) LatestJPEG(now time.Time) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastJPEG == nil || now.Sub(m.lastFrameAt) > m.cfg.FreshnessWindow {
		return m.placeholder, false
	}
	return m.lastJPEG, true
}

// LastScan returns the latest decoded scan if it is still fresh, else
// nil. A stale scan is absence, not an error.
func (m *Manager) LastScan(now time.Time) *entities.ScanRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastScan == nil || !m.lastScan.FreshAt(now, m.cfg.FreshnessWindow) {
		return nil
	}
	scan := *m.lastScan
	return &scan
}

// Status reports whether the device is currently delivering frames.
func (m *Manager) Status(now time.Time) (live bool, lastFrameAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	live = m.live && now.Sub(m.lastFrameAt) <= m.cfg.FreshnessWindow
	return live, m.lastFrameAt
}

func (m *Manager) openWithBackoff(ctx context.Context) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxInterval = 30 * time.Second
	bo.MaxElapsedTime = 0

	return backoff.Retry(func() error {
		if err := m.source.Open(ctx); err != nil {
			if m.metrics != nil {
				m.metrics.CameraReopenCount.Add(ctx, 1)
			}
			observability.GetLogger().Warn().Err(err).Msg("camera: open failed, backing off")
			return err
		}
		return nil
	}, backoff.WithContext(bo, ctx))
}

// ingest encodes and decodes outside the mutex, then swaps results in.
func (m *Manager) ingest(ctx context.Context, frame providers.Frame) {
	img := frameToImage(frame)
	if img == nil {
		return
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}); err != nil {
		observability.GetLogger().Warn().Err(err).Msg("camera: frame encode failed")
		return
	}
	if m.metrics != nil {
		m.metrics.FramesCaptured.Add(ctx, 1)
	}

	var scanned string
	if time.Since(m.lastDecode) >= decodeInterval {
		m.lastDecode = time.Now()
		scanned = m.decodeQR(img)
	}

	now := frame.CapturedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}

	m.mu.Lock()
	m.lastJPEG = buf.Bytes()
	m.lastFrameAt = now
	if scanned != "" {
		m.lastScan = &entities.ScanRecord{Value: scanned, DecodedAt: now}
	}
	m.mu.Unlock()

	if scanned != "" && m.handler != nil {
		go m.handler(scanned)
	}
}

// decodeQR returns a decoded value only the first time it is seen within
// the cooldown window; repeats of a code still in front of the lens are
// suppressed.
func (m *Manager) decodeQR(img image.Image) string {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return ""
	}
	result, err := m.reader.Decode(bmp, nil)
	if err != nil || result == nil {
		// No code in frame; the common case.
		return ""
	}

	value := result.GetText()
	if value == "" {
		return ""
	}
	if _, seen := m.recent.Get(value); seen {
		return ""
	}
	m.recent.Add(value, time.Now().UTC())
	if m.metrics != nil {
		m.metrics.ScanDecodeCount.Add(context.Background(), 1)
	}
	return value
}

func (m *Manager) setLive(live bool) {
	m.mu.Lock()
	m.live = live
	m.mu.Unlock()
}

func frameToImage(frame providers.Frame) image.Image {
	if len(frame.RGB) < frame.Width*frame.Height*3 {
		return nil
	}
	img := image.NewRGBA(image.Rect(0, 0, frame.Width, frame.Height))
	src := frame.RGB
	for y := 0; y < frame.Height; y++ {
		for x := 0; x < frame.Width; x++ {
			si := (y*frame.Width + x) * 3
			di := img.PixOffset(x, y)
			img.Pix[di] = src[si]
			img.Pix[di+1] = src[si+1]
			img.Pix[di+2] = src[si+2]
			img.Pix[di+3] = 0xff
		}
	}
	return img
}
