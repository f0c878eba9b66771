package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/medhaus/clinicflow/internal/adapters/camera"
	"github.com/medhaus/clinicflow/pkg/config"
)

const mjpegBoundary = "frame"

// CameraHandler serves the kiosk camera surfaces. All reads come from
// the manager's cached frame; a degraded camera yields the placeholder
// rather than an error.
type CameraHandler struct {
	manager *camera.Manager
	cfg     *config.CameraConfig
}

// NewCameraHandler creates a new camera handler
func NewCameraHandler(manager *camera.Manager, cfg *config.CameraConfig) *CameraHandler {
	return &CameraHandler{manager: manager, cfg: cfg}
}

// Stream handles GET /camera/stream as an MJPEG multipart stream.
func (h *CameraHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+mjpegBoundary)
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Connection", "close")

	fps := h.cfg.StreamFPS
	if fps <= 0 {
		fps = 25
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			frame, _ := h.manager.LatestJPEG(time.Now())
			if frame == nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", mjpegBoundary, len(frame)); err != nil {
				return
			}
			if _, err := w.Write(frame); err != nil {
				return
			}
			if _, err := fmt.Fprint(w, "\r\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// LastScan handles GET /api/camera/last-scan. A stale or absent scan is
// reported as not fresh, never as an error.
func (h *CameraHandler) LastScan(w http.ResponseWriter, r *http.Request) {
	scan := h.manager.LastScan(time.Now())
	if scan == nil {
		respondWithJSON(w, http.StatusOK, map[string]interface{}{
			"value": nil,
			"fresh": false,
		})
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"value":      scan.Value,
		"fresh":      true,
		"decoded_at": scan.DecodedAt,
	})
}

// Status handles GET /api/camera/status
func (h *CameraHandler) Status(w http.ResponseWriter, r *http.Request) {
	live, lastFrameAt := h.manager.Status(time.Now())
	payload := map[string]interface{}{
		"enabled": h.cfg.Enabled,
		"live":    live,
	}
	if !lastFrameAt.IsZero() {
		payload["last_frame_at"] = lastFrameAt
	}
	respondWithJSON(w, http.StatusOK, payload)
}
