package handlers

import (
	"errors"
	"net/http"

	"github.com/bobmcallan/mgnrega-portal/internal/client"
	"github.com/bobmcallan/mgnrega-portal/internal/common"
	"github.com/bobmcallan/mgnrega-portal/internal/dashboard"
	"github.com/bobmcallan/mgnrega-portal/internal/models"
)

// Listen languages accepted by the summary endpoint.
const (
	LangEnglish = "en-IN"
	LangHindi   = "hi-IN"
)

// APIHandler serves the portal's district data as JSON.
type APIHandler struct {
	logger  *common.Logger
	service DistrictService
}

// NewAPIHandler creates a new JSON API handler.
func NewAPIHandler(logger *common.Logger, service DistrictService) *APIHandler {
	return &APIHandler{logger: logger, service: service}
}

// DistrictsResponse is the body of GET /api/districts.
type DistrictsResponse struct {
	Districts []models.District `json:"districts"`
	Fallback  bool              `json:"fallback"`
}

// SummaryResponse is the body of GET /api/district/{code}/summary.
type SummaryResponse struct {
	Summary string `json:"summary"`
	Lang    string `json:"lang"`
}

// SnapshotsResponse is the body of GET /api/district/{code}/snapshots.
type SnapshotsResponse struct {
	DistrictCode string                `json:"districtCode"`
	Snapshots    []models.SnapshotInfo `json:"snapshots"`
}

// LocateResponse is the body of GET /api/locate.
type LocateResponse struct {
	DistrictCode string `json:"districtCode"`
}

// Districts handles GET /api/districts.
func (h *APIHandler) Districts(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	list, fallback := h.service.Districts(r.Context())
	WriteJSON(w, http.StatusOK, DistrictsResponse{Districts: list, Fallback: fallback})
}

// District handles GET /api/district/{code}.
func (h *APIHandler) District(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	res := h.service.Load(r.Context(), r.PathValue("code"), r.URL.Query().Get("month"))
	if res.State != dashboard.StateLoaded {
		h.writeLoadError(w, res.Err)
		return
	}
	WriteJSON(w, http.StatusOK, res.Report)
}

// Summary handles GET /api/district/{code}/summary?lang=.
func (h *APIHandler) Summary(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	lang := r.URL.Query().Get("lang")
	if lang == "" {
		lang = LangEnglish
	}
	if lang != LangEnglish && lang != LangHindi {
		WriteError(w, http.StatusBadRequest, "lang must be en-IN or hi-IN")
		return
	}

	res := h.service.Load(r.Context(), r.PathValue("code"), r.URL.Query().Get("month"))
	if res.State != dashboard.StateLoaded {
		h.writeLoadError(w, res.Err)
		return
	}
	WriteJSON(w, http.StatusOK, SummaryResponse{Summary: res.Report.Summary, Lang: lang})
}

// Snapshots handles GET /api/district/{code}/snapshots, listing the saved
// reports that back the dashboard when the upstream API is down.
func (h *APIHandler) Snapshots(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	code := r.PathValue("code")
	list, err := h.service.Snapshots(r.Context(), code)
	if err != nil {
		h.logger.Warn().Str("district", code).Err(err).Msg("snapshot listing failed")
		WriteError(w, http.StatusInternalServerError, "snapshots unavailable")
		return
	}
	if list == nil {
		list = []models.SnapshotInfo{}
	}
	WriteJSON(w, http.StatusOK, SnapshotsResponse{DistrictCode: code, Snapshots: list})
}

// Locate handles GET /api/locate?lat=&lon=.
func (h *APIHandler) Locate(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	lat, lon, err := parseCoordinates(r.URL.Query())
	if err != nil {
		WriteError(w, http.StatusBadRequest, "lat and lon must be valid coordinates")
		return
	}

	code, err := h.service.Locate(r.Context(), lat, lon)
	if err != nil {
		if errors.Is(err, client.ErrDistrictNotFound) {
			WriteError(w, http.StatusNotFound, "no district at this location")
			return
		}
		h.logger.Warn().Err(err).Msg("api locate failed")
		WriteError(w, http.StatusBadGateway, "locate failed")
		return
	}
	WriteJSON(w, http.StatusOK, LocateResponse{DistrictCode: code})
}

func (h *APIHandler) writeLoadError(w http.ResponseWriter, err error) {
	if errors.Is(err, client.ErrDistrictNotFound) {
		WriteError(w, http.StatusNotFound, "district not found")
		return
	}
	h.logger.Warn().Err(err).Msg("api report load failed")
	WriteError(w, http.StatusBadGateway, "report unavailable")
}
