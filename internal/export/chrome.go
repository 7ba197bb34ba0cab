package export

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/bobmcallan/mgnrega-portal/internal/common"
)

// Viewport used when laying out the captured document.
const (
	viewportWidth  = 1280
	viewportHeight = 900
)

// ChromeConfig selects how Chrome is reached.
type ChromeConfig struct {
	// RemoteURL is a DevTools websocket or http endpoint of a running
	// browser. When empty a local Chrome is launched.
	RemoteURL string
	ExecPath  string
	Headless  bool
}

// ChromeBrowser captures documents with a headless Chrome via chromedp.
type ChromeBrowser struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	logger      *common.Logger
}

// NewChromeBrowser prepares a browser allocator. Chrome itself starts
// with the first opened page.
func NewChromeBrowser(cfg ChromeConfig, logger *common.Logger) *ChromeBrowser {
	var allocCtx context.Context
	var cancel context.CancelFunc

	if cfg.RemoteURL != "" {
		allocCtx, cancel = chromedp.NewRemoteAllocator(context.Background(), cfg.RemoteURL)
		logger.Info().Str("url", cfg.RemoteURL).Msg("using remote chrome for report export")
	} else {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", cfg.Headless),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.WindowSize(viewportWidth, viewportHeight),
		)
		if cfg.ExecPath != "" {
			opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
		}
		allocCtx, cancel = chromedp.NewExecAllocator(context.Background(), opts...)
	}

	return &ChromeBrowser{
		allocCtx:    allocCtx,
		allocCancel: cancel,
		logger:      logger,
	}
}

// Close shuts down the browser.
func (b *ChromeBrowser) Close() {
	if b.allocCancel != nil {
		b.allocCancel()
	}
}

// Open loads html into a new tab.
func (b *ChromeBrowser) Open(ctx context.Context, html []byte) (Page, func(), error) {
	tabCtx, tabCancel := chromedp.NewContext(b.allocCtx)
	p := &chromePage{tabCtx: tabCtx}

	// The first Run binds the tab's lifetime to its context, so it must
	// receive tabCtx itself.
	stop := context.AfterFunc(ctx, tabCancel)
	err := chromedp.Run(tabCtx)
	stop()
	if err != nil {
		tabCancel()
		return nil, nil, fmt.Errorf("failed to open browser tab: %w", err)
	}

	err = p.run(ctx,
		chromedp.EmulateViewport(viewportWidth, viewportHeight),
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, string(html)).Do(ctx)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		tabCancel()
		return nil, nil, fmt.Errorf("failed to load document: %w", err)
	}

	return p, tabCancel, nil
}

type chromePage struct {
	tabCtx context.Context
}

// run executes actions in the tab, aborting when ctx ends.
func (p *chromePage) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(p.tabCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

func (p *chromePage) eval(ctx context.Context, script string, out any) error {
	return p.run(ctx, chromedp.Evaluate(script, out, func(ep *runtime.EvaluateParams) *runtime.EvaluateParams {
		return ep.WithAwaitPromise(true)
	}))
}

func (p *chromePage) Exists(ctx context.Context, selector string) (bool, error) {
	var found bool
	err := p.eval(ctx, fmt.Sprintf(`document.querySelector(%s) !== null`, jsString(selector)), &found)
	return found, err
}

func (p *chromePage) InstallStyle(ctx context.Context, id, css string) error {
	var ok bool
	return p.eval(ctx, fmt.Sprintf(`(() => {
		const old = document.getElementById(%[1]s);
		if (old) old.remove();
		const s = document.createElement('style');
		s.id = %[1]s;
		s.textContent = %[2]s;
		document.head.appendChild(s);
		return true;
	})()`, jsString(id), jsString(css)), &ok)
}

func (p *chromePage) RemoveElement(ctx context.Context, id string) error {
	var ok bool
	return p.eval(ctx, fmt.Sprintf(`(() => {
		const el = document.getElementById(%s);
		if (el) el.remove();
		return true;
	})()`, jsString(id)), &ok)
}

// CloneOffscreen copies the root into a container placed below the page
// content, sized to the root's width.
func (p *chromePage) CloneOffscreen(ctx context.Context, rootSelector, containerID string) error {
	var ok bool
	err := p.eval(ctx, fmt.Sprintf(`(() => {
		const root = document.querySelector(%[1]s);
		if (!root) return false;
		const old = document.getElementById(%[2]s);
		if (old) old.remove();
		const off = document.createElement('div');
		off.id = %[2]s;
		off.style.position = 'absolute';
		off.style.left = '0px';
		off.style.top = (document.documentElement.scrollHeight + 100) + 'px';
		off.style.width = root.offsetWidth + 'px';
		off.style.background = '#ffffff';
		off.style.padding = '10px';
		off.style.boxSizing = 'border-box';
		off.appendChild(root.cloneNode(true));
		document.body.appendChild(off);
		return true;
	})()`, jsString(rootSelector), jsString(containerID)), &ok)
	if err != nil {
		return err
	}
	if !ok {
		return ErrReportRootNotFound
	}
	return nil
}

func (p *chromePage) ReplaceChart(ctx context.Context, containerID, chartSelector, dataURL string) (bool, error) {
	var replaced bool
	err := p.eval(ctx, fmt.Sprintf(`(async () => {
		const off = document.getElementById(%[1]s);
		if (!off) return false;
		const chart = off.querySelector(%[2]s);
		if (!chart || !chart.parentNode) return false;
		const r = chart.getBoundingClientRect();
		const img = document.createElement('img');
		img.style.width = r.width + 'px';
		img.style.height = r.height + 'px';
		img.style.maxWidth = '100%%';
		img.src = %[3]s;
		chart.parentNode.replaceChild(img, chart);
		try { await img.decode(); } catch (e) {}
		return true;
	})()`, jsString(containerID), jsString(chartSelector), jsString(dataURL)), &replaced)
	return replaced, err
}

func (p *chromePage) Rasterize(ctx context.Context, containerID string, scale float64) ([]byte, error) {
	var buf []byte
	err := p.run(ctx, chromedp.ScreenshotScale("#"+containerID, scale, &buf, chromedp.ByQuery))
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// jsString quotes s as a JavaScript string literal.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
