// File: internal/browser/events.go
package browser

import (
	"context"
	"fmt"
	"strings"

	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/inspector"
	"github.com/chromedp/cdproto/page"
	cdpruntime "github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// Events carries engine signals up to the shell. Callbacks fire on chromedp's
// event-dispatch goroutines; receivers must hop onto their own loop before
// touching shared state. Nil callbacks are skipped.
type Events struct {
	// OnURLChanged fires when the page's main frame lands somewhere new,
	// including same-document navigations.
	OnURLChanged func(name, url string)
	// OnLoadFinished fires on the page's load event.
	OnLoadFinished func(name string)
	// OnConsoleMessage fires for error-level console output and uncaught
	// exceptions, with the message flattened to text.
	OnConsoleMessage func(name, text string)
	// OnCrashed fires when the page's renderer crashes.
	OnCrashed func(name string)
	// OnPopupOpened fires when the page opens a child window.
	OnPopupOpened func(name, id string, p *Popup)
	// OnPopupClosed fires when a previously reported popup goes away on
	// its own.
	OnPopupClosed func(id string)
	// OnDownloadStatus carries human-readable download progress for the
	// operator's status surface. In-flight updates are throttled.
	OnDownloadStatus func(name, status string)
	// OnEngineGone fires when the Chrome process dies outside of Close,
	// for example when the user closes the window.
	OnEngineGone func(name string)
}

// onTargetEvent handles events scoped to the session's own page.
func (s *Session) onTargetEvent(ev any) {
	switch ev := ev.(type) {
	case *page.EventFrameNavigated:
		if ev.Frame.ParentID != "" {
			return
		}
		s.setURL(ev.Frame.URL)
		s.log.Debug("Navigated.", zap.String("url", ev.Frame.URL))
		if s.events.OnURLChanged != nil {
			s.events.OnURLChanged(s.name, ev.Frame.URL)
		}
	case *page.EventNavigatedWithinDocument:
		s.setURL(ev.URL)
		if s.events.OnURLChanged != nil {
			s.events.OnURLChanged(s.name, ev.URL)
		}
	case *page.EventLoadEventFired:
		if s.events.OnLoadFinished != nil {
			s.events.OnLoadFinished(s.name)
		}
	case *cdpruntime.EventConsoleAPICalled:
		if ev.Type != cdpruntime.APITypeError {
			return
		}
		if s.events.OnConsoleMessage != nil {
			s.events.OnConsoleMessage(s.name, consoleText(ev.Args))
		}
	case *cdpruntime.EventExceptionThrown:
		if s.events.OnConsoleMessage != nil {
			s.events.OnConsoleMessage(s.name, exceptionText(ev.ExceptionDetails))
		}
	case *inspector.EventTargetCrashed:
		if s.events.OnCrashed != nil {
			s.events.OnCrashed(s.name)
		}
	}
}

// onBrowserEvent handles browser-level events: child targets appearing and
// vanishing, and download lifecycle notifications.
func (s *Session) onBrowserEvent(ev any) {
	switch ev := ev.(type) {
	case *target.EventTargetCreated:
		info := ev.TargetInfo
		// Only pages opened by this session's page are popups; the
		// session's own initial target has no opener.
		if info.Type != "page" || info.OpenerID == "" {
			return
		}
		s.adoptPopup(info)
	case *target.EventTargetDestroyed:
		s.dropPopup(ev.TargetID)
	case *cdpbrowser.EventDownloadWillBegin:
		s.log.Info("Download started.",
			zap.String("url", ev.URL),
			zap.String("file", ev.SuggestedFilename))
	case *cdpbrowser.EventDownloadProgress:
		s.onDownloadProgress(ev)
	}
}

func (s *Session) adoptPopup(info *target.Info) {
	ctx, cancel := chromedp.NewContext(s.ctx, chromedp.WithTargetID(info.TargetID))
	p := &Popup{
		id:     string(info.TargetID),
		ctx:    ctx,
		cancel: cancel,
		log:    s.log.With(zap.String("popup", string(info.TargetID))),
	}

	s.mu.Lock()
	s.popups[info.TargetID] = p
	s.mu.Unlock()

	s.log.Info("Popup opened.",
		zap.String("popup", p.id), zap.String("url", info.URL))
	if s.events.OnPopupOpened != nil {
		s.events.OnPopupOpened(s.name, p.id, p)
	}
}

func (s *Session) dropPopup(id target.ID) {
	s.mu.Lock()
	p, ok := s.popups[id]
	if ok {
		delete(s.popups, id)
	}
	s.mu.Unlock()
	if !ok {
		return
	}

	p.cancel()
	s.log.Info("Popup closed.", zap.String("popup", p.id))
	if s.events.OnPopupClosed != nil {
		s.events.OnPopupClosed(p.id)
	}
}

// onDownloadProgress reports terminal states always and in-flight progress at
// most once per throttle interval, both to the log and to the shell's status
// surface.
func (s *Session) onDownloadProgress(ev *cdpbrowser.EventDownloadProgress) {
	switch ev.State {
	case cdpbrowser.DownloadProgressStateCompleted:
		s.log.Info("Download finished.",
			zap.String("guid", ev.GUID),
			zap.Float64("bytes", ev.ReceivedBytes))
		s.notifyDownload("Download finished (" + formatBytes(ev.ReceivedBytes) + ").")
	case cdpbrowser.DownloadProgressStateCanceled:
		s.log.Info("Download canceled.", zap.String("guid", ev.GUID))
		s.notifyDownload("Download canceled.")
	case cdpbrowser.DownloadProgressStateInProgress:
		if !s.downloadLog.Allow() {
			return
		}
		s.log.Info("Download progress.",
			zap.String("guid", ev.GUID),
			zap.Float64("received", ev.ReceivedBytes),
			zap.Float64("total", ev.TotalBytes))
		s.notifyDownload(downloadStatus(ev.ReceivedBytes, ev.TotalBytes))
	}
}

func (s *Session) notifyDownload(status string) {
	if s.events.OnDownloadStatus != nil {
		s.events.OnDownloadStatus(s.name, status)
	}
}

// downloadStatus renders an in-flight progress line. Chrome reports zero for
// the total when the server sent no Content-Length.
func downloadStatus(received, total float64) string {
	if total > 0 {
		return fmt.Sprintf("Downloading %.0f%% (%s of %s)",
			received/total*100, formatBytes(received), formatBytes(total))
	}
	return fmt.Sprintf("Downloading (%s so far)", formatBytes(received))
}

func formatBytes(n float64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", n/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", n/(1<<10))
	default:
		return fmt.Sprintf("%.0f B", n)
	}
}

// Popup is a handle on a child window opened by a session's page. Methods are
// fire and forget, like the session's own.
type Popup struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	log    *zap.Logger
}

func (p *Popup) ID() string { return p.id }

// Show restores and raises the popup's window.
func (p *Popup) Show() {
	go func() {
		err := chromedp.Run(p.ctx,
			setWindowState(cdpbrowser.WindowStateNormal),
			page.BringToFront(),
		)
		if err != nil {
			p.log.Debug("Could not show popup.", zap.Error(err))
		}
	}()
}

// Hide minimizes the popup's window.
func (p *Popup) Hide() {
	go func() {
		if err := chromedp.Run(p.ctx, setWindowState(cdpbrowser.WindowStateMinimized)); err != nil {
			p.log.Debug("Could not hide popup.", zap.Error(err))
		}
	}()
}

// Close closes the popup's page and releases its protocol attachment.
func (p *Popup) Close() {
	go func() {
		if err := chromedp.Run(p.ctx, page.Close()); err != nil {
			p.log.Debug("Could not close popup page.", zap.Error(err))
		}
		p.cancel()
	}()
}

func consoleText(args []*cdpruntime.RemoteObject) string {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		switch {
		case arg == nil:
			continue
		case arg.Type == cdpruntime.TypeString && len(arg.Value) >= 2:
			// String values arrive JSON-encoded; strip the quotes.
			parts = append(parts, string(arg.Value[1:len(arg.Value)-1]))
		case arg.Description != "":
			parts = append(parts, arg.Description)
		case len(arg.Value) > 0:
			parts = append(parts, string(arg.Value))
		}
	}
	return strings.Join(parts, " ")
}

func exceptionText(details *cdpruntime.ExceptionDetails) string {
	if details == nil {
		return ""
	}
	text := details.Text
	if details.Exception != nil && details.Exception.Description != "" {
		if text != "" {
			text += " "
		}
		text += details.Exception.Description
	}
	return text
}
