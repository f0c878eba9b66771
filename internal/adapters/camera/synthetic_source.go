package camera

import (
	"context"
	"time"

	"github.com/medhaus/clinicflow/internal/domain/providers"
)

var _ providers.FrameSource = (*SyntheticSource)(nil)

// SyntheticSource emits flat gray frames at a fixed rate. Used when no
// physical camera is configured so the rest of the pipeline (encoding,
// staleness, streaming) behaves identically in development.
type SyntheticSource struct {
	width  int
	height int
	fps    int
	ticker *time.Ticker
	frame  []byte
}

// NewSyntheticSource creates a synthetic frame source.
func NewSyntheticSource(width, height, fps int) *SyntheticSource {
	if fps <= 0 {
		fps = 15
	}
	return &SyntheticSource{width: width, height: height, fps: fps}
}

func (s *SyntheticSource) Open(ctx context.Context) error {
	s.frame = make([]byte, s.width*s.height*3)
	for i := range s.frame {
		s.frame[i] = 0x30
	}
	s.ticker = time.NewTicker(time.Second / time.Duration(s.fps))
	return nil
}

func (s *SyntheticSource) Read(ctx context.Context) (providers.Frame, error) {
	select {
	case <-ctx.Done():
		return providers.Frame{}, ctx.Err()
	case t := <-s.ticker.C:
		return providers.Frame{
			Width:      s.width,
			Height:     s.height,
			RGB:        s.frame,
			CapturedAt: t.UTC(),
		}, nil
	}
}

func (s *SyntheticSource) Close() error {
	if s.ticker != nil {
		s.ticker.Stop()
	}
	return nil
}
