package tracking

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/relaycrm/campaign-engine/internal/domain"
	"github.com/relaycrm/campaign-engine/internal/pkg/httputil"
	"github.com/relaycrm/campaign-engine/internal/pkg/logger"
)

// 1x1 transparent GIF
var pixelGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00,
	0x80, 0x00, 0x00, 0xff, 0xff, 0xff, 0x00, 0x00, 0x00, 0x2c,
	0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00, 0x02,
	0x02, 0x44, 0x01, 0x00, 0x3b,
}

// EventPublisher queues a delivery event for the consumer.
type EventPublisher interface {
	Publish(ctx context.Context, evt domain.DeliveryEvent) error
}

// Handler serves the tracking endpoints hit by recipients (pixel, click
// redirect) and by the mail provider (delivery webhook).
type Handler struct {
	codec *Codec
	pub   EventPublisher
}

// NewHandler creates a tracking handler.
func NewHandler(codec *Codec, pub EventPublisher) *Handler {
	return &Handler{codec: codec, pub: pub}
}

// Routes returns the tracking service router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/track/open/{data}/{sig}", h.HandleOpen)
	r.Get("/track/click/{data}/{sig}", h.HandleClick)
	r.Post("/webhooks/delivery", h.HandleWebhook)
	r.Get("/health", h.HandleHealth)
	return r
}

// HandleOpen records an open and serves the pixel. The pixel is served no
// matter what: a broken or forged token must not leave a broken image in
// someone's inbox.
func (h *Handler) HandleOpen(w http.ResponseWriter, r *http.Request) {
	logID, ok := h.codec.DecodeOpen(chi.URLParam(r, "data"), chi.URLParam(r, "sig"))
	if !ok {
		h.servePixel(w)
		return
	}

	h.publish(r.Context(), domain.DeliveryEvent{
		EventType: domain.EventOpened,
		LogID:     logID,
		IPAddress: realIP(r),
		UserAgent: r.UserAgent(),
		Timestamp: time.Now().UTC(),
	})
	h.servePixel(w)
}

// HandleClick records a click and redirects to the original destination.
func (h *Handler) HandleClick(w http.ResponseWriter, r *http.Request) {
	logID, target, ok := h.codec.DecodeClick(chi.URLParam(r, "data"), chi.URLParam(r, "sig"))
	if !ok {
		http.Error(w, "bad link", http.StatusBadRequest)
		return
	}

	h.publish(r.Context(), domain.DeliveryEvent{
		EventType: domain.EventClicked,
		LogID:     logID,
		LinkURL:   target,
		IPAddress: realIP(r),
		UserAgent: r.UserAgent(),
		Timestamp: time.Now().UTC(),
	})
	http.Redirect(w, r, target, http.StatusTemporaryRedirect)
}

// webhookPayload is the provider callback body for delivery and bounce
// notifications.
type webhookPayload struct {
	LogID     string    `json:"log_id"`
	Event     string    `json:"event"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// HandleWebhook ingests provider delivery/bounce callbacks. It answers 200
// for unknown references, duplicates, and unrecognized event names: an error
// response here would only trigger the provider's retry storm.
func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	var p webhookPayload
	if !httputil.Decode(w, r, &p) {
		return
	}

	evtType := domain.DeliveryEventType(strings.ToLower(p.Event))
	if p.LogID == "" || !domain.KnownEventType(evtType) {
		logger.Debug("webhook event ignored", "event", p.Event, "log_id", p.LogID)
		httputil.OK(w, map[string]string{"status": "ignored"})
		return
	}

	ts := p.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	h.publish(r.Context(), domain.DeliveryEvent{
		EventType: evtType,
		LogID:     p.LogID,
		Timestamp: ts,
	})
	httputil.OK(w, map[string]string{"status": "accepted"})
}

// HandleHealth reports liveness.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]string{"status": "ok"})
}

func (h *Handler) publish(ctx context.Context, evt domain.DeliveryEvent) {
	if err := h.pub.Publish(ctx, evt); err != nil {
		// Dropping an engagement event is preferable to failing the
		// recipient-facing request.
		logger.Error("publish delivery event failed", "event", string(evt.EventType), "log_id", evt.LogID, "error", err.Error())
	}
}

func (h *Handler) servePixel(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.Write(pixelGIF)
}

func realIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx > 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return xff
	}
	if xri := r.Header.Get("X-Real-Ip"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
