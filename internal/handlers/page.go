package handlers

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/bobmcallan/mgnrega-portal/internal/common"
	"github.com/bobmcallan/mgnrega-portal/internal/config"
	"github.com/bobmcallan/mgnrega-portal/internal/views"
)

// templateFuncs are available to every page template.
var templateFuncs = template.FuncMap{
	"pathEscape":  url.PathEscape,
	"statusClass": views.StatusClass,
}

// pagesCandidates are tried in order so binaries and package tests both
// find the templates.
var pagesCandidates = []string{"./pages", "../pages", "../../pages", "."}

// FindPagesDir returns the absolute path of the first pages directory found.
func FindPagesDir() string {
	for _, dir := range pagesCandidates {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(dir); err == nil {
				return abs
			}
		}
	}
	return "."
}

// ParseTemplates loads the page and partial templates from pagesDir.
func ParseTemplates(pagesDir string) (*template.Template, error) {
	templates, err := template.New("").Funcs(templateFuncs).ParseGlob(filepath.Join(pagesDir, "*.html"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page templates: %w", err)
	}
	if _, err := templates.ParseGlob(filepath.Join(pagesDir, "partials", "*.html")); err != nil {
		return nil, fmt.Errorf("failed to parse partial templates: %w", err)
	}
	return templates, nil
}

func mustParseTemplates() *template.Template {
	return template.Must(ParseTemplates(FindPagesDir()))
}

// pageData is the model of pages that carry no district data.
type pageData struct {
	Page          string
	District      string
	Capture       bool
	DevMode       bool
	MCPEnabled    bool
	PortalVersion string
}

// PageHandler serves static pages and assets.
type PageHandler struct {
	logger     *common.Logger
	templates  *template.Template
	devMode    bool
	mcpEnabled bool
}

// NewPageHandler creates a new page handler that loads templates from the pages directory.
func NewPageHandler(logger *common.Logger, devMode bool) *PageHandler {
	return &PageHandler{
		logger:    logger,
		templates: mustParseTemplates(),
		devMode:   devMode,
	}
}

// SetMCPEnabled controls whether pages advertise the MCP endpoint.
func (h *PageHandler) SetMCPEnabled(enabled bool) {
	h.mcpEnabled = enabled
}

// ServePage returns a handler rendering templateName as the named page.
func (h *PageHandler) ServePage(templateName, pageName string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !RequireMethod(w, r, http.MethodGet) {
			return
		}
		renderTemplate(w, h.templates, h.logger, http.StatusOK, templateName, pageData{
			Page:          pageName,
			DevMode:       h.devMode,
			MCPEnabled:    h.mcpEnabled,
			PortalVersion: config.GetVersion(),
		})
	}
}

// StaticFileHandler serves files under pages/static. Paths escaping that
// directory are answered 404.
func (h *PageHandler) StaticFileHandler(w http.ResponseWriter, r *http.Request) {
	staticDir := filepath.Join(FindPagesDir(), "static")
	fullPath := filepath.Join(staticDir, filepath.FromSlash(strings.TrimPrefix(r.URL.Path, "/static/")))

	rel, err := filepath.Rel(staticDir, fullPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		http.NotFound(w, r)
		return
	}

	if h.devMode {
		w.Header().Set("Cache-Control", "no-cache")
	} else {
		w.Header().Set("Cache-Control", "public, max-age=3600")
	}
	http.ServeFile(w, r, fullPath)
}

// renderTemplate buffers the page and writes it with status.
func renderTemplate(w http.ResponseWriter, t *template.Template, logger *common.Logger, status int, name string, data any) {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		if logger != nil {
			logger.Error().Str("template", name).Err(err).Msg("failed to render page")
		}
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}
