// File: internal/browser/session.go
// Package browser runs the Chrome engine behind each session: one dedicated
// headful process per profile, driven over the DevTools protocol.
package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/multisteam/internal/config"
)

// Launcher starts isolated Chrome processes, one per profile directory.
type Launcher struct {
	log    *zap.Logger
	cfg    *config.Config
	events Events
}

func NewLauncher(logger *zap.Logger, cfg *config.Config, events Events) *Launcher {
	return &Launcher{
		log:    logger.Named("browser"),
		cfg:    cfg,
		events: events,
	}
}

// Launch starts a Chrome process whose entire state (cookies, local storage,
// cache, downloads) lives under dir, and attaches to its page. The returned
// session stays alive until Close; cancelling ctx tears it down too.
func (l *Launcher) Launch(ctx context.Context, name, dir string) (*Session, error) {
	downloads := filepath.Join(dir, "downloads")
	if err := os.MkdirAll(downloads, 0o755); err != nil {
		return nil, fmt.Errorf("creating downloads directory: %w", err)
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx,
		allocatorOptions(l.cfg.Browser, dir)...)
	tabCtx, cancel := chromedp.NewContext(allocCtx)

	s := &Session{
		name:        name,
		dir:         dir,
		instanceID:  uuid.NewString()[:8],
		log:         l.log.With(zap.String("session", name)),
		events:      l.events,
		ctx:         tabCtx,
		cancel:      cancel,
		allocCancel: allocCancel,
		downloadLog: rate.NewLimiter(rate.Every(l.cfg.Downloads.ProgressInterval), 1),
		popups:      make(map[target.ID]*Popup),
	}

	chromedp.ListenTarget(tabCtx, s.onTargetEvent)
	chromedp.ListenBrowser(tabCtx, s.onBrowserEvent)

	if err := chromedp.Run(tabCtx,
		cdpbrowser.SetDownloadBehavior(cdpbrowser.SetDownloadBehaviorBehaviorAllowAndName).
			WithDownloadPath(downloads).
			WithEventsEnabled(true),
	); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("starting browser for %q: %w", name, err)
	}

	// Surface engine death (crash, window closed by the user) to the shell.
	go func() {
		<-tabCtx.Done()
		if s.closing.Load() {
			return
		}
		s.log.Warn("Browser process ended outside of shutdown.",
			zap.String("instance", s.instanceID))
		if s.events.OnEngineGone != nil {
			s.events.OnEngineGone(name)
		}
	}()

	s.log.Info("Session engine launched.",
		zap.String("instance", s.instanceID), zap.String("dir", dir))
	return s, nil
}

// Session is one live Chrome process bound to a profile directory. Command
// methods are fire and forget: they dispatch protocol work on their own
// goroutine and log failures, keeping the shell loop unblocked.
type Session struct {
	name        string
	dir         string
	instanceID  string
	log         *zap.Logger
	events      Events
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	downloadLog *rate.Limiter
	closing     atomic.Bool

	mu         sync.Mutex
	currentURL string
	popups     map[target.ID]*Popup
}

func (s *Session) Name() string       { return s.name }
func (s *Session) StorageDir() string { return s.dir }

// CurrentURL returns the page's last observed location without a protocol
// round trip.
func (s *Session) CurrentURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentURL
}

func (s *Session) Navigate(url string) {
	s.run("navigate", chromedp.Navigate(url))
}

// Back and Forward report protocol errors at debug level only: an empty
// history entry is the usual cause and not worth a warning.
func (s *Session) Back() {
	go func() {
		if err := chromedp.Run(s.ctx, chromedp.NavigateBack()); err != nil {
			s.log.Debug("History back failed.", zap.Error(err))
		}
	}()
}

func (s *Session) Forward() {
	go func() {
		if err := chromedp.Run(s.ctx, chromedp.NavigateForward()); err != nil {
			s.log.Debug("History forward failed.", zap.Error(err))
		}
	}()
}

func (s *Session) Reload() {
	s.run("reload", page.Reload())
}

func (s *Session) ReloadBypassCache() {
	s.run("reload bypassing cache", page.Reload().WithIgnoreCache(true))
}

// ProbeBlank evaluates the blank-render heuristic in the page and reports the
// result through fn on a background goroutine.
func (s *Session) ProbeBlank(fn func(blank bool, err error)) {
	go func() {
		var blank bool
		err := chromedp.Run(s.ctx, chromedp.Evaluate(blankProbeJS, &blank))
		fn(blank, err)
	}()
}

// Show restores the session's window and raises its page.
func (s *Session) Show() {
	go func() {
		err := chromedp.Run(s.ctx,
			setWindowState(cdpbrowser.WindowStateNormal),
			page.BringToFront(),
		)
		if err != nil {
			s.log.Warn("Could not show session window.", zap.Error(err))
		}
	}()
}

// Hide minimizes the session's window. The process keeps running, so its
// logged-in state and background pages stay warm.
func (s *Session) Hide() {
	go func() {
		if err := chromedp.Run(s.ctx, setWindowState(cdpbrowser.WindowStateMinimized)); err != nil {
			s.log.Warn("Could not hide session window.", zap.Error(err))
		}
	}()
}

// Close shuts the Chrome process down gracefully, bounded by ctx. The profile
// directory is left untouched.
func (s *Session) Close(ctx context.Context) error {
	s.closing.Store(true)

	s.mu.Lock()
	for id, p := range s.popups {
		p.cancel()
		delete(s.popups, id)
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		_ = chromedp.Cancel(s.ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.allocCancel()
		return fmt.Errorf("closing session %q: %w", s.name, ctx.Err())
	}
	s.allocCancel()
	s.log.Info("Session engine closed.", zap.String("instance", s.instanceID))
	return nil
}

// run executes protocol actions off the shell loop, logging failures under
// the given operation name.
func (s *Session) run(op string, actions ...chromedp.Action) {
	go func() {
		if err := chromedp.Run(s.ctx, actions...); err != nil {
			s.log.Warn("Browser operation failed.",
				zap.String("op", op), zap.Error(err))
		}
	}()
}

func (s *Session) setURL(url string) {
	s.mu.Lock()
	s.currentURL = url
	s.mu.Unlock()
}

// setWindowState drives the OS window of the action's target through the
// Browser domain.
func setWindowState(state cdpbrowser.WindowState) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		id, _, err := cdpbrowser.GetWindowForTarget().Do(ctx)
		if err != nil {
			return err
		}
		// Leaving a minimized or maximized state requires passing through
		// normal first; sending normal unconditionally keeps this simple.
		if state != cdpbrowser.WindowStateNormal {
			bounds := &cdpbrowser.Bounds{WindowState: cdpbrowser.WindowStateNormal}
			if err := cdpbrowser.SetWindowBounds(id, bounds).Do(ctx); err != nil {
				return err
			}
		}
		return cdpbrowser.SetWindowBounds(id, &cdpbrowser.Bounds{WindowState: state}).Do(ctx)
	})
}

// blankProbeJS decides whether the page rendered anything worth keeping. A
// page with next to no markup, or with only trivial text and no media, counts
// as blank.
const blankProbeJS = `(() => {
	if (document.documentElement.outerHTML.length < 50) return true;
	const body = document.body;
	if (!body) return true;
	const text = (body.innerText || "").trim();
	return text.length <= 20 &&
		body.children.length <= 5 &&
		body.querySelectorAll("img,video,canvas,iframe").length === 0;
})()`
