// Package export turns a rendered dashboard into a downloadable PDF
// report by capturing it in a headless browser.
package export

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bobmcallan/mgnrega-portal/internal/common"
)

var (
	// ErrReportRootNotFound is returned when the document has no report root.
	ErrReportRootNotFound = errors.New("report root not found")
	// ErrExportInProgress is returned while the same district is being captured.
	ErrExportInProgress = errors.New("export already in progress")
)

// Element identifiers shared with the page templates.
const (
	ReportRootSelector = "#report-root"
	ChartSelector      = ".trend-chart"
	OverrideStyleID    = "pdf-capture-override"
	OffscreenID        = "pdf-capture-offscreen"
)

// OverrideCSS neutralises page styling inside the captured subtree so
// the bitmap renders with plain colours.
const OverrideCSS = `
#report-root, #report-root * {
  color: #111 !important;
  background: transparent !important;
  background-color: #ffffff !important;
  border-color: #ddd !important;
  box-shadow: none !important;
  text-shadow: none !important;
  filter: none !important;
}
#report-root button, #report-root a {
  background: #ffffff !important;
  color: #111 !important;
  border: 1px solid #ccc !important;
}
#report-root .card {
  background-color: #ffffff !important;
  border: 1px solid #e5e7eb !important;
}
#report-root .no-capture { display: none !important; }
#report-root img { max-width: 100% !important; }
#report-root { font-family: Arial, Helvetica, sans-serif !important; font-size: 12pt !important; line-height: 1.4 !important; }
`

// cleanupTimeout bounds the removal of capture artifacts after the
// export context has ended.
const cleanupTimeout = 5 * time.Second

// State is the export state of one district.
type State int

const (
	StateIdle State = iota
	StateCapturing
	StateSuccess
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCapturing:
		return "capturing"
	case StateSuccess:
		return "success"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Browser opens a rendered HTML document for capture. The returned
// func releases the page.
type Browser interface {
	Open(ctx context.Context, html []byte) (Page, func(), error)
}

// Page is an opened document the exporter mutates and rasterizes.
// RemoveElement must succeed when the element does not exist.
type Page interface {
	Exists(ctx context.Context, selector string) (bool, error)
	InstallStyle(ctx context.Context, id, css string) error
	RemoveElement(ctx context.Context, id string) error
	CloneOffscreen(ctx context.Context, rootSelector, containerID string) error
	ReplaceChart(ctx context.Context, containerID, chartSelector, dataURL string) (bool, error)
	Rasterize(ctx context.Context, containerID string, scale float64) ([]byte, error)
}

// Document is a dashboard rendered for capture. ChartImage is the chart's
// exported data URL, empty when the chart has no image.
type Document struct {
	HTML       []byte
	ChartImage string
}

// Result is a finished report.
type Result struct {
	Filename string
	PDF      []byte
	Pages    int
}

// Options configures an Exporter.
type Options struct {
	Scale   float64
	Timeout time.Duration
}

// Exporter runs report captures, at most one per district at a time.
type Exporter struct {
	browser Browser
	scale   float64
	timeout time.Duration
	logger  *common.Logger

	mu     sync.Mutex
	states map[string]State

	// OnTransition, when set, observes every state change.
	OnTransition func(district string, from, to State)
}

// New creates an Exporter using browser for capture.
func New(browser Browser, opts Options, logger *common.Logger) *Exporter {
	if opts.Scale <= 0 {
		opts.Scale = 2
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 45 * time.Second
	}
	return &Exporter{
		browser: browser,
		scale:   opts.Scale,
		timeout: opts.Timeout,
		logger:  logger,
		states:  make(map[string]State),
	}
}

// State returns the current export state of a district.
func (e *Exporter) State(district string) State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.states[district]
}

func (e *Exporter) transition(district string, to State) {
	e.mu.Lock()
	from := e.states[district]
	if to == StateIdle {
		delete(e.states, district)
	} else {
		e.states[district] = to
	}
	hook := e.OnTransition
	e.mu.Unlock()

	if hook != nil {
		hook(district, from, to)
	}
}

func (e *Exporter) begin(district string) bool {
	e.mu.Lock()
	if e.states[district] != StateIdle {
		e.mu.Unlock()
		return false
	}
	e.states[district] = StateCapturing
	hook := e.OnTransition
	e.mu.Unlock()

	if hook != nil {
		hook(district, StateIdle, StateCapturing)
	}
	return true
}

// Export captures doc and returns the PDF report for district.
func (e *Exporter) Export(ctx context.Context, district string, doc Document) (res *Result, err error) {
	if !e.begin(district) {
		return nil, ErrExportInProgress
	}

	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			res, err = nil, fmt.Errorf("report export panicked: %v", p)
		}
		if err != nil {
			e.transition(district, StateFailed)
			e.logger.Warn().Str("district", district).Err(err).Msg("report export failed")
		} else {
			e.transition(district, StateSuccess)
			e.logger.Info().
				Str("district", district).
				Int("pages", res.Pages).
				Dur("elapsed", time.Since(start)).
				Msg("report exported")
		}
		e.transition(district, StateIdle)
	}()

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	page, closePage, err := e.browser.Open(ctx, doc.HTML)
	if err != nil {
		return nil, fmt.Errorf("failed to open report page: %w", err)
	}
	defer closePage()

	found, err := page.Exists(ctx, ReportRootSelector)
	if err != nil {
		return nil, fmt.Errorf("failed to query report root: %w", err)
	}
	if !found {
		return nil, ErrReportRootNotFound
	}

	defer e.cleanup(ctx, page)

	if err := page.InstallStyle(ctx, OverrideStyleID, OverrideCSS); err != nil {
		return nil, fmt.Errorf("failed to install capture style: %w", err)
	}
	if err := page.CloneOffscreen(ctx, ReportRootSelector, OffscreenID); err != nil {
		return nil, fmt.Errorf("failed to clone report: %w", err)
	}

	if doc.ChartImage != "" {
		replaced, err := page.ReplaceChart(ctx, OffscreenID, ChartSelector, doc.ChartImage)
		if err != nil {
			return nil, fmt.Errorf("failed to replace chart: %w", err)
		}
		if !replaced {
			e.logger.Debug().Str("district", district).Msg("no chart element in clone")
		}
	}

	bitmap, err := page.Rasterize(ctx, OffscreenID, e.scale)
	if err != nil {
		return nil, fmt.Errorf("failed to rasterize report: %w", err)
	}

	pdf, pages, err := BuildPDF(bitmap)
	if err != nil {
		return nil, fmt.Errorf("failed to build pdf: %w", err)
	}

	return &Result{
		Filename: Filename(district),
		PDF:      pdf,
		Pages:    pages,
	}, nil
}

// cleanup removes the off-screen clone and style override. It runs on
// every exit path, including an expired export context.
func (e *Exporter) cleanup(ctx context.Context, page Page) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	for _, id := range []string{OffscreenID, OverrideStyleID} {
		if err := page.RemoveElement(cctx, id); err != nil {
			e.logger.Warn().Str("element", id).Err(err).Msg("failed to remove capture element")
		}
	}
}

// Filename returns the download name for a district's report.
func Filename(district string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		if r < 0x20 {
			return -1
		}
		return r
	}, strings.TrimSpace(district))
	if name == "" {
		name = "district"
	}
	return name + "_report.pdf"
}
