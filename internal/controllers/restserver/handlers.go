package restserver

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/chrissnell/skywatch/internal/constants"
	"github.com/chrissnell/skywatch/internal/locator"
	"github.com/chrissnell/skywatch/internal/observation"
	"github.com/chrissnell/skywatch/pkg/celestial"
	"github.com/chrissnell/skywatch/pkg/responseformat"
	"github.com/gorilla/mux"
)

// Handlers contains all HTTP handlers for the REST server
type Handlers struct {
	controller *Controller
	formatter  *responseformat.Formatter
}

// NewHandlers creates a new handlers instance
func NewHandlers(ctrl *Controller) *Handlers {
	return &Handlers{
		controller: ctrl,
		formatter:  responseformat.NewFormatter(),
	}
}

var noStore = map[string]string{"Cache-Control": "no-store"}

// GetObservation computes the sky for the requested location and instant
func (h *Handlers) GetObservation(w http.ResponseWriter, req *http.Request) {
	result, ok := h.observe(w, req)
	if !ok {
		return
	}

	if err := h.controller.deps.StoreChart(result); err != nil {
		// the observation is still useful without its image
		h.controller.logger.Errorf("chart for observation %s: %v", result.ID, err)
	}

	h.formatter.WriteResponse(w, req, result, noStore)
}

// GetChartPNG streams the chart of an observation without storing it
func (h *Handlers) GetChartPNG(w http.ResponseWriter, req *http.Request) {
	if h.controller.deps.Renderer == nil {
		h.formatter.WriteError(w, req, http.StatusNotFound, "chart rendering is disabled")
		return
	}

	result, ok := h.observe(w, req)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.controller.deps.Renderer.Encode(&buf, result.Chart); err != nil {
		h.controller.logger.Errorf("rendering chart for observation %s: %v", result.ID, err)
		h.formatter.WriteError(w, req, http.StatusInternalServerError, "could not render chart")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(buf.Bytes())
}

// GetChartFile serves a chart previously stored by GetObservation or the refresher
func (h *Handlers) GetChartFile(w http.ResponseWriter, req *http.Request) {
	charts := h.controller.deps.Charts
	if charts == nil {
		http.NotFound(w, req)
		return
	}
	path, ok := charts.Path(mux.Vars(req)["file"])
	if !ok {
		http.NotFound(w, req)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	http.ServeFile(w, req, path)
}

// GetMoon returns the Moon phase at the requested instant
func (h *Handlers) GetMoon(w http.ResponseWriter, req *http.Request) {
	svc := h.controller.deps.Service
	q := req.URL.Query()

	instant, err := svc.Instant(q.Get("date"), q.Get("time"))
	if err != nil {
		h.writeError(w, req, err)
		return
	}

	h.formatter.WriteResponse(w, req, MoonResponse{
		Instant:   instant.UTC(),
		LocalTime: instant.In(svc.Timezone()).Format(observation.LocalTimeLayout),
		Moon:      svc.Moon(instant),
	}, noStore)
}

// GetLocations lists the location presets
func (h *Handlers) GetLocations(w http.ResponseWriter, req *http.Request) {
	loc := h.controller.deps.Locator
	h.formatter.WriteResponse(w, req, LocationsResponse{
		Default:   loc.Default().Name,
		Locations: loc.Presets(),
	}, nil)
}

// GetHealth reports liveness
func (h *Handlers) GetHealth(w http.ResponseWriter, req *http.Request) {
	h.formatter.WriteResponse(w, req, HealthResponse{Status: "ok", Version: constants.Version}, noStore)
}

// observe resolves the request parameters and runs the observation. On
// failure the error response has already been written.
func (h *Handlers) observe(w http.ResponseWriter, req *http.Request) (*observation.Result, bool) {
	deps := h.controller.deps
	q := req.URL.Query()

	place, err := deps.Locator.Resolve(locator.Query{
		Name:      q.Get("location"),
		Latitude:  q.Get("lat"),
		Longitude: q.Get("lon"),
		RemoteIP:  clientIP(req),
	})
	if err != nil {
		h.writeError(w, req, err)
		return nil, false
	}

	instant, err := deps.Service.Instant(q.Get("date"), q.Get("time"))
	if err != nil {
		h.writeError(w, req, err)
		return nil, false
	}

	ctx := req.Context()
	if deps.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, deps.RequestTimeout)
		defer cancel()
	}

	result, err := deps.Service.Observe(ctx, place, instant)
	if err != nil {
		h.writeError(w, req, err)
		return nil, false
	}
	return result, true
}

// writeError maps invalid input to 400 and everything else to 500
func (h *Handlers) writeError(w http.ResponseWriter, req *http.Request, err error) {
	if errors.Is(err, celestial.ErrInvalidInput) {
		h.formatter.WriteError(w, req, http.StatusBadRequest, err.Error())
		return
	}
	h.controller.logger.Errorf("%s %s: %v", req.Method, req.URL.Path, err)
	h.formatter.WriteError(w, req, http.StatusInternalServerError, "observation failed")
}

// clientIP prefers the first X-Forwarded-For hop over the socket address
func clientIP(req *http.Request) net.IP {
	if fwd := req.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		host = req.RemoteAddr
	}
	return net.ParseIP(host)
}
