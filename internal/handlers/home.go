package handlers

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strconv"

	"github.com/bobmcallan/mgnrega-portal/internal/client"
	"github.com/bobmcallan/mgnrega-portal/internal/common"
	"github.com/bobmcallan/mgnrega-portal/internal/config"
	"github.com/bobmcallan/mgnrega-portal/internal/dashboard"
	"github.com/bobmcallan/mgnrega-portal/internal/models"
	"github.com/bobmcallan/mgnrega-portal/internal/views"
)

// User-visible alerts on the home page.
const (
	AlertChooseDistrict   = "Please choose a district first."
	AlertBadLocation      = "Could not read your location."
	AlertLocateNoMatch    = "Could not locate district"
	AlertLocateError      = "Locate error"
	AlertDistrictsOffline = "District list is temporarily unavailable; showing a limited list."
)

// DistrictService is the dashboard data the page handlers need.
type DistrictService interface {
	Districts(ctx context.Context) ([]models.District, bool)
	Load(ctx context.Context, code, month string) dashboard.LoadResult
	Locate(ctx context.Context, lat, lon float64) (string, error)
	Snapshots(ctx context.Context, code string) ([]models.SnapshotInfo, error)
}

// HomeHandler serves the district picker.
type HomeHandler struct {
	logger    *common.Logger
	templates *template.Template
	service   DistrictService
}

// NewHomeHandler creates a new home page handler.
func NewHomeHandler(logger *common.Logger, service DistrictService) *HomeHandler {
	return &HomeHandler{
		logger:    logger,
		templates: mustParseTemplates(),
		service:   service,
	}
}

// ServeHTTP renders the home page (GET /).
func (h *HomeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	h.render(w, r, http.StatusOK, "", "")
}

// Select redirects to the chosen district (GET /select?district=).
func (h *HomeHandler) Select(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	code := r.URL.Query().Get("district")
	if code == "" {
		h.render(w, r, http.StatusOK, "", AlertChooseDistrict)
		return
	}

	http.Redirect(w, r, DistrictPath(code), http.StatusFound)
}

// Locate resolves browser coordinates to a district
// (GET /locate?lat=&lon=) and redirects to it.
func (h *HomeHandler) Locate(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	lat, lon, err := parseCoordinates(r.URL.Query())
	if err != nil {
		h.render(w, r, http.StatusOK, "", AlertBadLocation)
		return
	}

	code, err := h.service.Locate(r.Context(), lat, lon)
	switch {
	case err == nil:
		http.Redirect(w, r, DistrictPath(code), http.StatusFound)
	case errors.Is(err, dashboard.ErrInvalidCoordinates):
		h.render(w, r, http.StatusOK, "", AlertBadLocation)
	case errors.Is(err, client.ErrDistrictNotFound):
		h.render(w, r, http.StatusOK, "", AlertLocateNoMatch)
	default:
		h.logger.Warn().Err(err).Msg("reverse geocode failed")
		h.render(w, r, http.StatusOK, "", AlertLocateError)
	}
}

func (h *HomeHandler) render(w http.ResponseWriter, r *http.Request, status int, selected, alert string) {
	districts, fallback := h.service.Districts(r.Context())

	data := map[string]interface{}{
		"Page":          "home",
		"Options":       views.SelectorOptions(districts, selected),
		"Alert":         alert,
		"Fallback":      fallback,
		"FallbackNote":  AlertDistrictsOffline,
		"PortalVersion": config.GetVersion(),
	}

	renderTemplate(w, h.templates, h.logger, status, "home.html", data)
}

// DistrictPath is the dashboard URL of a district.
func DistrictPath(code string) string {
	return "/district/" + url.PathEscape(code)
}

func parseCoordinates(q url.Values) (lat, lon float64, err error) {
	lat, err = strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil {
		return 0, 0, err
	}
	lon, err = strconv.ParseFloat(q.Get("lon"), 64)
	if err != nil {
		return 0, 0, err
	}
	return lat, lon, dashboard.ValidateCoordinates(lat, lon)
}
