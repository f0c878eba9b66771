package camera

import (
	"context"
	"fmt"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/medhaus/clinicflow/internal/domain/providers"
	"github.com/medhaus/clinicflow/internal/infrastructure/observability"
	apperrors "github.com/medhaus/clinicflow/pkg/errors"
)

const frameChannelDepth = 4

var _ providers.FrameSource = (*GstSource)(nil)

// GstSource captures RGB frames from a local camera through a GStreamer
// pipeline. The appsink keeps only the latest buffer, so a slow consumer
// sees fresh frames rather than a growing backlog.
type GstSource struct {
	device string
	width  int
	height int
	fps    int

	pipeline *gst.Pipeline
	appsink  *app.Sink
	frames   chan providers.Frame
	errs     chan error
	cancel   context.CancelFunc
}

// NewGstSource creates an unopened source. Device is a v4l2 device path,
// defaulting to /dev/video0.
func NewGstSource(device string, width, height, fps int) *GstSource {
	if device == "" {
		device = "/dev/video0"
	}
	return &GstSource{
		device: device,
		width:  width,
		height: height,
		fps:    fps,
	}
}

// Open builds and starts the capture pipeline.
func (s *GstSource) Open(ctx context.Context) error {
	gst.Init(nil)

	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return apperrors.NewUnavailableError("camera pipeline create failed", err)
	}

	src, err := gst.NewElement("v4l2src")
	if err != nil {
		return apperrors.NewUnavailableError("v4l2src not available", err)
	}
	src.SetProperty("device", s.device)

	converter, err := gst.NewElement("videoconvert")
	if err != nil {
		return apperrors.NewUnavailableError("videoconvert not available", err)
	}

	scaler, err := gst.NewElement("videoscale")
	if err != nil {
		return apperrors.NewUnavailableError("videoscale not available", err)
	}

	videorate, err := gst.NewElement("videorate")
	if err != nil {
		return apperrors.NewUnavailableError("videorate not available", err)
	}
	videorate.SetProperty("drop-only", true)

	capsfilter, err := gst.NewElement("capsfilter")
	if err != nil {
		return apperrors.NewUnavailableError("capsfilter not available", err)
	}
	capsStr := fmt.Sprintf("video/x-raw,format=RGB,width=%d,height=%d,framerate=%d/1", s.width, s.height, s.fps)
	capsfilter.SetProperty("caps", gst.NewCapsFromString(capsStr))

	appsink, err := app.NewAppSink()
	if err != nil {
		return apperrors.NewUnavailableError("appsink not available", err)
	}
	appsink.SetProperty("sync", false)
	appsink.SetProperty("max-buffers", 1)
	appsink.SetProperty("drop", true)

	pipeline.AddMany(src, converter, scaler, videorate, capsfilter, appsink.Element)
	if err := gst.ElementLinkMany(src, converter, scaler, videorate, capsfilter, appsink.Element); err != nil {
		return apperrors.NewUnavailableError("camera pipeline link failed", err)
	}

	s.frames = make(chan providers.Frame, frameChannelDepth)
	s.errs = make(chan error, 1)

	appsink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: s.onNewSample,
	})

	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		return apperrors.NewUnavailableError("camera pipeline start failed", err)
	}

	watchCtx, cancel := context.WithCancel(context.Background())
	s.pipeline = pipeline
	s.appsink = appsink
	s.cancel = cancel
	go s.watchBus(watchCtx)

	observability.GetLogger().Info().
		Str("device", s.device).
		Str("caps", capsStr).
		Msg("camera: capture pipeline playing")
	return nil
}

// Read returns the next frame, blocking until one arrives, the pipeline
// fails, or ctx ends.
func (s *GstSource) Read(ctx context.Context) (providers.Frame, error) {
	select {
	case <-ctx.Done():
		return providers.Frame{}, ctx.Err()
	case err := <-s.errs:
		return providers.Frame{}, err
	case frame, ok := <-s.frames:
		if !ok {
			return providers.Frame{}, apperrors.NewUnavailableError("camera stream closed", nil)
		}
		return frame, nil
	}
}

// Close stops the pipeline. Safe to call on an unopened source.
func (s *GstSource) Close() error {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.pipeline != nil {
		s.pipeline.SetState(gst.StateNull)
		s.pipeline = nil
		s.appsink = nil
	}
	return nil
}

func (s *GstSource) onNewSample(sink *app.Sink) gst.FlowReturn {
	sample := sink.PullSample()
	if sample == nil {
		return gst.FlowOK
	}
	buffer := sample.GetBuffer()
	if buffer == nil {
		return gst.FlowOK
	}
	data := buffer.Map(gst.MapRead).Bytes()
	if len(data) == 0 {
		buffer.Unmap()
		return gst.FlowOK
	}
	// Copy out before unmap: GStreamer reuses the buffer.
	pixels := make([]byte, len(data))
	copy(pixels, data)
	buffer.Unmap()

	frame := providers.Frame{
		Width:      s.width,
		Height:     s.height,
		RGB:        pixels,
		CapturedAt: time.Now().UTC(),
	}
	select {
	case s.frames <- frame:
	default:
		// Consumer is behind; newest frame wins.
		select {
		case <-s.frames:
		default:
		}
		select {
		case s.frames <- frame:
		default:
		}
	}
	return gst.FlowOK
}

func (s *GstSource) watchBus(ctx context.Context) {
	bus := s.pipeline.GetPipelineBus()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		msg := bus.TimedPop(100 * time.Millisecond)
		if msg == nil {
			continue
		}
		switch msg.Type() {
		case gst.MessageEOS:
			s.fail(apperrors.NewUnavailableError("camera stream ended", nil))
			return
		case gst.MessageError:
			gerr := msg.ParseError()
			s.fail(apperrors.NewUnavailableError("camera pipeline error", gerr))
			return
		}
	}
}

func (s *GstSource) fail(err error) {
	select {
	case s.errs <- err:
	default:
	}
}
