package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/relaycrm/campaign-engine/internal/pkg/httputil"
	"github.com/relaycrm/campaign-engine/internal/sending"
	"github.com/relaycrm/campaign-engine/internal/service/campaign"
)

// CampaignHandler wires the campaign service to HTTP.
type CampaignHandler struct {
	svc *campaign.Service
}

// NewCampaignHandler creates the campaign handler.
func NewCampaignHandler(svc *campaign.Service) *CampaignHandler {
	return &CampaignHandler{svc: svc}
}

// Mount registers the campaign routes on r.
func (h *CampaignHandler) Mount(r chi.Router) {
	r.Route("/campaigns", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Put("/", h.Update)
			r.Delete("/", h.Delete)
			r.Post("/send", h.SendNow)
			r.Post("/schedule", h.Schedule)
			r.Get("/stats", h.Stats)
		})
	})
}

func (h *CampaignHandler) List(w http.ResponseWriter, r *http.Request) {
	f := campaign.ListFilter{
		Status: r.URL.Query().Get("status"),
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	}
	campaigns, total, err := h.svc.List(r.Context(), Workspace(r), f)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]any{"campaigns": campaigns, "total": total})
}

func (h *CampaignHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Get(r.Context(), Workspace(r), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	httputil.OK(w, c)
}

func (h *CampaignHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input campaign.CreateInput
	if !httputil.Decode(w, r, &input) {
		return
	}
	c, err := h.svc.Create(r.Context(), Workspace(r), Actor(r), input)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.Created(w, c)
}

type updateRequest struct {
	Name    *string  `json:"name"`
	Subject *string  `json:"subject"`
	Body    *string  `json:"body"`
	ListIDs []string `json:"list_ids"`
}

func (h *CampaignHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	err := h.svc.Update(r.Context(), Workspace(r), Actor(r), chi.URLParam(r, "id"), campaign.UpdateFields{
		Name:    req.Name,
		Subject: req.Subject,
		Body:    req.Body,
		ListIDs: req.ListIDs,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	httputil.NoContent(w)
}

func (h *CampaignHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), Workspace(r), Actor(r), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	httputil.NoContent(w)
}

func (h *CampaignHandler) SendNow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.SendNow(r.Context(), Workspace(r), Actor(r), id); err != nil {
		h.writeError(w, err)
		return
	}
	httputil.Accepted(w, map[string]string{"status": "queued", "campaign_id": id})
}

type scheduleRequest struct {
	SendAt time.Time `json:"send_at"`
}

func (h *CampaignHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.svc.Schedule(r.Context(), Workspace(r), Actor(r), id, req.SendAt); err != nil {
		h.writeError(w, err)
		return
	}
	httputil.OK(w, map[string]any{"status": "scheduled", "campaign_id": id, "send_at": req.SendAt.UTC()})
}

func (h *CampaignHandler) Stats(w http.ResponseWriter, r *http.Request) {
	counts, listing, err := h.svc.Stats(r.Context(), Workspace(r), chi.URLParam(r, "id"), r.URL.Query().Get("filter"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	resp := map[string]any{"stats": counts}
	if listing != nil {
		resp["recipients"] = listing
	}
	httputil.OK(w, resp)
}

// writeError maps service errors onto the API's error taxonomy: state
// machine rejections are 409, pre-flight validation failures are 422, and
// anything unrecognized is an internal error.
func (h *CampaignHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, campaign.ErrNotFound):
		httputil.NotFound(w, "campaign not found")
	case errors.Is(err, campaign.ErrNotSendable), errors.Is(err, campaign.ErrNotEditable):
		httputil.Conflict(w, err.Error())
	case errors.Is(err, campaign.ErrScheduleInPast), errors.Is(err, sending.ErrNotConfigured):
		httputil.Unprocessable(w, err.Error())
	case errors.Is(err, campaign.ErrBadCategory):
		httputil.BadRequest(w, err.Error())
	default:
		httputil.InternalError(w, err)
	}
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
