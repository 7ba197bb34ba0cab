package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/bobmcallan/mgnrega-portal/internal/client"
	"github.com/bobmcallan/mgnrega-portal/internal/common"
	"github.com/bobmcallan/mgnrega-portal/internal/config"
	"github.com/bobmcallan/mgnrega-portal/internal/dashboard"
	"github.com/bobmcallan/mgnrega-portal/internal/export"
	"github.com/bobmcallan/mgnrega-portal/internal/models"
	"github.com/bobmcallan/mgnrega-portal/internal/views"
)

// User-visible messages on the dashboard.
const (
	MsgLoadFailed       = "Could not load data for this district. Please try again later."
	MsgDistrictNotFound = "We could not find this district."
	MsgExportFailed     = "Failed to generate PDF. Try refreshing the page or use browser Print."
	MsgExportBusy       = "A report for this district is already being generated. Please wait."
	MsgExportDisabled   = "PDF export is not available on this server."
	MsgStaleData        = "Live data is unavailable; showing the last saved report."
)

// ReportExporter captures a rendered dashboard as a PDF.
type ReportExporter interface {
	Export(ctx context.Context, district string, doc export.Document) (*export.Result, error)
}

// DashboardPage is the template data of dashboard.html.
type DashboardPage struct {
	Page          string
	Code          string
	Month         string
	ExportURL     string
	District      string
	State         string
	Error         string
	ExportError   string
	Report        *models.Report
	Cards         []views.Card
	Insights      string
	Chart         *views.TrendChart
	LastUpdated   string
	UpdatedAgo    string
	Stale         bool
	StaleNote     string
	SavedMonths   []SavedMonth
	Capture       bool
	InlineCSS     template.CSS
	PortalVersion string
}

// DashboardHandler serves the district dashboard and its PDF export.
type DashboardHandler struct {
	logger    *common.Logger
	templates *template.Template
	service   DistrictService
	exporter  ReportExporter
	css       template.CSS
	now       func() time.Time
}

// NewDashboardHandler creates a new dashboard handler. exporter may be nil.
func NewDashboardHandler(logger *common.Logger, service DistrictService, exporter ReportExporter) *DashboardHandler {
	pagesDir := FindPagesDir()

	css, err := os.ReadFile(filepath.Join(pagesDir, "static", "style.css"))
	if err != nil {
		logger.Warn().Err(err).Msg("stylesheet not found, reports will be unstyled")
	}

	return &DashboardHandler{
		logger:    logger,
		templates: mustParseTemplates(),
		service:   service,
		exporter:  exporter,
		css:       template.CSS(css),
		now:       time.Now,
	}
}

// ServeHTTP renders the dashboard (GET /district/{code}).
func (h *DashboardHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	code := r.PathValue("code")
	month := r.URL.Query().Get("month")
	res := h.service.Load(r.Context(), code, month)
	if r.Context().Err() != nil {
		return
	}

	page := h.pageData(code, month, res, false)
	if page.Stale {
		page.SavedMonths = h.savedMonths(r.Context(), code, month)
	}
	renderTemplate(w, h.templates, h.logger, loadStatus(res), "dashboard.html", page)
}

// SavedMonth links a month with a saved report from the stale view.
type SavedMonth struct {
	Month string
	URL   string
}

// savedMonths lists other months whose reports are stored for code.
func (h *DashboardHandler) savedMonths(ctx context.Context, code, current string) []SavedMonth {
	list, err := h.service.Snapshots(ctx, code)
	if err != nil {
		h.logger.Warn().Str("district", code).Err(err).Msg("snapshot listing failed")
		return nil
	}

	var out []SavedMonth
	seen := map[string]bool{current: true}
	for _, snap := range list {
		if snap.Latest || snap.Month == "" || seen[snap.Month] {
			continue
		}
		seen[snap.Month] = true
		out = append(out, SavedMonth{
			Month: snap.Month,
			URL:   "/district/" + url.PathEscape(code) + "?month=" + url.QueryEscape(snap.Month),
		})
	}
	return out
}

// ExportPDF serves the report download (GET /district/{code}/report.pdf).
func (h *DashboardHandler) ExportPDF(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	code := r.PathValue("code")
	month := r.URL.Query().Get("month")

	result, err := h.ExportReport(r.Context(), code, month)
	if err == nil {
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		w.Write(result.PDF)
		return
	}
	if r.Context().Err() != nil {
		return
	}

	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		page := h.pageData(code, month, loadErr.Result, false)
		renderTemplate(w, h.templates, h.logger, loadStatus(loadErr.Result), "dashboard.html", page)
		return
	}

	status, msg := exportFailure(err)
	h.logger.Warn().Str("district", code).Err(err).Msg("pdf export failed")

	res := h.service.Load(r.Context(), code, month)
	page := h.pageData(code, month, res, false)
	page.ExportError = msg
	renderTemplate(w, h.templates, h.logger, status, "dashboard.html", page)
}

// LoadError reports that the dashboard data could not be loaded for export.
type LoadError struct {
	Result dashboard.LoadResult
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("report data unavailable: %v", e.Result.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Result.Err
}

// ExportReport loads a district report and exports it as a PDF.
func (h *DashboardHandler) ExportReport(ctx context.Context, code, month string) (*export.Result, error) {
	if h.exporter == nil {
		return nil, errExportDisabled
	}

	res := h.service.Load(ctx, code, month)
	if res.State != dashboard.StateLoaded {
		return nil, &LoadError{Result: res}
	}

	doc, err := h.RenderDocument(code, res)
	if err != nil {
		return nil, err
	}
	return h.exporter.Export(ctx, code, doc)
}

// RenderDocument renders the standalone capture version of the dashboard.
func (h *DashboardHandler) RenderDocument(code string, res dashboard.LoadResult) (export.Document, error) {
	page := h.pageData(code, "", res, true)

	var buf bytes.Buffer
	if err := h.templates.ExecuteTemplate(&buf, "dashboard.html", page); err != nil {
		return export.Document{}, fmt.Errorf("failed to render report document: %w", err)
	}

	doc := export.Document{HTML: buf.Bytes()}
	if page.Chart != nil {
		if url, ok := page.Chart.ImageDataURL(); ok {
			doc.ChartImage = url
		}
	}
	return doc, nil
}

func (h *DashboardHandler) pageData(code, month string, res dashboard.LoadResult, capture bool) *DashboardPage {
	page := &DashboardPage{
		Page:          "dashboard",
		Code:          code,
		Month:         month,
		ExportURL:     exportURL(code, month),
		District:      code,
		State:         res.State.String(),
		Capture:       capture,
		PortalVersion: config.GetVersion(),
	}
	if capture {
		page.InlineCSS = h.css
	}

	switch res.State {
	case dashboard.StateFailed:
		page.Error = MsgLoadFailed
		if errors.Is(res.Err, client.ErrDistrictNotFound) {
			page.Error = MsgDistrictNotFound
		}
	case dashboard.StateLoaded:
		r := res.Report
		page.Report = r
		if r.DistrictName != "" {
			page.District = r.DistrictName
		}
		page.Cards = views.SummaryCards(r.Metrics, r.Comparisons)
		page.Insights = views.InsightsText(r.Summary)
		page.Chart = views.NewTrendChart(r.Trend)
		page.LastUpdated = common.FormatUpdated(r.LastUpdated)
		page.UpdatedAgo = common.FormatUpdatedRelative(r.LastUpdated, h.now())
		page.Stale = r.Stale
		page.StaleNote = MsgStaleData
	}
	return page
}

// exportURL is the PDF download link for the report shown, keeping the
// selected month.
func exportURL(code, month string) string {
	u := "/district/" + url.PathEscape(code) + "/report.pdf"
	if month != "" {
		u += "?month=" + url.QueryEscape(month)
	}
	return u
}

var errExportDisabled = errors.New("export disabled")

func exportFailure(err error) (int, string) {
	switch {
	case errors.Is(err, export.ErrExportInProgress):
		return http.StatusConflict, MsgExportBusy
	case errors.Is(err, errExportDisabled):
		return http.StatusServiceUnavailable, MsgExportDisabled
	default:
		return http.StatusInternalServerError, MsgExportFailed
	}
}

func loadStatus(res dashboard.LoadResult) int {
	if res.State != dashboard.StateFailed {
		return http.StatusOK
	}
	if errors.Is(res.Err, client.ErrDistrictNotFound) {
		return http.StatusNotFound
	}
	return http.StatusBadGateway
}
