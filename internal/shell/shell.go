// File: internal/shell/shell.go
package shell

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/multisteam/internal/config"
	"github.com/xkilldash9x/multisteam/internal/creds"
	"github.com/xkilldash9x/multisteam/internal/health"
	"github.com/xkilldash9x/multisteam/internal/popup"
	"github.com/xkilldash9x/multisteam/internal/registry"
	"github.com/xkilldash9x/multisteam/internal/siteurl"
	"github.com/xkilldash9x/multisteam/internal/store"
)

// Shell is the top-level coordinator. Exactly one session holds focus at any
// time (or none, when no session is live); every mutation runs on the loop.
type Shell struct {
	log    *zap.Logger
	cfg    *config.Config
	ctx    context.Context
	loop   *Loop
	reg    *registry.Registry
	router *popup.Router
	mon    *health.Monitor
	store  *store.Store
	state  *store.Document

	prompter creds.Prompter
	clip     creds.Clipboard

	focused string
	walker  *creds.Walker
}

// New wires the shell over its collaborators. ctx bounds the lifetime of
// every session the shell launches.
func New(
	ctx context.Context,
	logger *zap.Logger,
	cfg *config.Config,
	loop *Loop,
	reg *registry.Registry,
	router *popup.Router,
	st *store.Store,
	state *store.Document,
	prompter creds.Prompter,
	clip creds.Clipboard,
) *Shell {
	s := &Shell{
		log:      logger.Named("shell"),
		cfg:      cfg,
		ctx:      ctx,
		loop:     loop,
		reg:      reg,
		router:   router,
		store:    st,
		state:    state,
		prompter: prompter,
		clip:     clip,
	}
	s.mon = health.NewMonitor(logger, cfg.Health,
		s.Focused, reg.Record, &healthActions{reg: reg, loop: loop}, loop.After)
	return s
}

// Focused returns the name of the focused session, or "" for none.
func (s *Shell) Focused() string { return s.focused }

// Names lists live sessions in creation order.
func (s *Shell) Names() []string { return s.reg.Names() }

// State exposes the persisted document for the console's status view.
func (s *Shell) State() *store.Document { return s.state }

// SwitchTo moves focus to the named session: the previous window minimizes,
// the new one restores, and popup visibility follows. Unknown names are a
// no-op.
func (s *Shell) SwitchTo(name string) {
	sess := s.reg.Get(name)
	if sess == nil {
		s.log.Debug("Switch to unknown session ignored.", zap.String("session", name))
		return
	}
	if prev := s.reg.Get(s.focused); prev != nil && s.focused != name {
		prev.Hide()
	}
	sess.Show()
	s.focused = name
	s.state.LastActive = name
	s.router.SyncVisibility(name)

	// A session that never navigated gets its remembered page back.
	if siteurl.IsBlank(sess.CurrentURL()) {
		sess.Navigate(siteurl.Normalize(s.startURL(name)))
	}
	s.saveState()
	s.log.Info("Focus switched.", zap.String("session", name))
}

// startURL is the page a session opens with: its remembered location, or the
// home page.
func (s *Shell) startURL(name string) string {
	if url := s.state.LastURLs[name]; url != "" {
		return url
	}
	return s.cfg.Shell.HomeURL
}

// AddProfile creates and focuses a new session. An empty name picks the next
// free "Steam N". The new session opens its remembered page or the home page;
// during a credential import the walker then steers it on to sign-in.
func (s *Shell) AddProfile(name string) (string, error) {
	if name == "" {
		name = s.reg.NextName()
	}
	sess, err := s.reg.Create(s.ctx, name)
	if err != nil {
		return "", err
	}

	sess.Navigate(siteurl.Normalize(s.startURL(name)))

	if !contains(s.state.Profiles, name) {
		s.state.Profiles = append(s.state.Profiles, name)
	}
	s.SwitchTo(name)
	if s.importActive() {
		s.walker.OnProfileAdded(name)
	}
	s.saveState()
	return name, nil
}

// DeleteProfile destroys a session and its stored profile. If it held focus,
// focus falls back to the most recently created remaining session.
func (s *Shell) DeleteProfile(name string) error {
	if err := s.reg.Destroy(s.ctx, name); err != nil {
		return err
	}
	s.forgetProfile(name)
	delete(s.state.LastURLs, name)
	s.refocusAfterLoss(name)
	s.saveState()
	return nil
}

// OnEngineGone handles a session whose Chrome process died outside of
// shutdown. The session is dropped but its stored profile survives, so it
// comes back on the next run.
func (s *Shell) OnEngineGone(name string) {
	if s.reg.Get(name) == nil {
		return
	}
	s.log.Warn("Session engine gone, dropping session.", zap.String("session", name))
	s.router.CloseAll(name)
	s.reg.Evict(s.ctx, name)
	s.refocusAfterLoss(name)
	s.saveState()
}

// NavigateCurrent steers the focused session. Bare hostnames get an https
// scheme.
func (s *Shell) NavigateCurrent(raw string) error {
	sess, err := s.focusedSession()
	if err != nil {
		return err
	}
	sess.Navigate(siteurl.Normalize(raw))
	return nil
}

func (s *Shell) BackCurrent() error {
	sess, err := s.focusedSession()
	if err != nil {
		return err
	}
	sess.Back()
	return nil
}

func (s *Shell) ForwardCurrent() error {
	sess, err := s.focusedSession()
	if err != nil {
		return err
	}
	sess.Forward()
	return nil
}

func (s *Shell) ReloadCurrent() error {
	sess, err := s.focusedSession()
	if err != nil {
		return err
	}
	sess.Reload()
	return nil
}

// ToggleAccountsPanel flips the persisted accounts-panel visibility and
// reports the new state.
func (s *Shell) ToggleAccountsPanel() bool {
	s.state.AccountsVisible = !s.state.AccountsVisible
	s.saveState()
	return s.state.AccountsVisible
}

// StartImport begins a credential walk over the file at path, starting at the
// given 1-based entry. A walk already in progress is superseded.
func (s *Shell) StartImport(path string, startEntry int) error {
	pairs, err := creds.ParseFile(path)
	if err != nil {
		return err
	}
	if s.importActive() {
		s.walker.Stop()
	}
	s.walker = creds.NewWalker(s.log, pairs, startEntry-1,
		s.prompter, s.clip, &walkerNav{reg: s.reg},
		func() { s.walker = nil })
	return nil
}

// StopImport abandons a running credential walk, if any.
func (s *Shell) StopImport() {
	if s.importActive() {
		s.walker.Stop()
	}
}

// ImportActive reports whether a credential walk is in progress.
func (s *Shell) ImportActive() bool { return s.importActive() }

// Restore relaunches every stored profile and refocuses the last active one.
// A profile that fails to launch is logged and skipped, never blocking the
// rest.
func (s *Shell) Restore() {
	for _, name := range append([]string(nil), s.state.Profiles...) {
		if s.reg.Get(name) != nil {
			continue
		}
		sess, err := s.reg.Create(s.ctx, name)
		if err != nil {
			s.log.Warn("Could not restore profile.",
				zap.String("session", name), zap.Error(err))
			continue
		}
		sess.Navigate(siteurl.Normalize(s.startURL(name)))
	}

	target := s.state.LastActive
	if s.reg.Get(target) == nil {
		if names := s.reg.Names(); len(names) > 0 {
			target = names[0]
		} else {
			target = ""
		}
	}
	if target != "" {
		s.SwitchTo(target)
	}
}

// Shutdown persists state and closes every session. Stored profiles stay on
// disk, so accounts remain signed in across runs.
func (s *Shell) Shutdown(ctx context.Context) {
	s.StopImport()
	s.state.LastActive = s.focused
	s.saveState()
	s.reg.CloseAll(ctx)
}

// Engine event entry points. The launcher's callbacks post onto the loop and
// land here.

func (s *Shell) OnURLChanged(name, url string) {
	if s.reg.Get(name) == nil {
		return
	}
	s.state.LastURLs[name] = url
	if s.importActive() && name == s.focused {
		s.walker.OnURLChanged(url)
	}
}

func (s *Shell) OnLoadFinished(name string) { s.mon.OnLoadFinished(name) }

func (s *Shell) OnConsoleMessage(name, text string) { s.mon.OnConsoleMessage(name, text) }

func (s *Shell) OnCrashed(name string) { s.mon.OnCrash(name) }

func (s *Shell) OnPopupOpened(name, id string, win popup.Window) {
	s.router.Adopt(name, id, win)
}

func (s *Shell) OnPopupClosed(id string) { s.router.Release(id) }

func (s *Shell) OnDownloadStatus(name, status string) {
	s.prompter.Notify(fmt.Sprintf("[%s] %s", name, status))
}

func (s *Shell) importActive() bool {
	return s.walker != nil && s.walker.Active()
}

func (s *Shell) focusedSession() (registry.Session, error) {
	sess := s.reg.Get(s.focused)
	if sess == nil {
		return nil, fmt.Errorf("no focused session")
	}
	return sess, nil
}

// refocusAfterLoss moves focus off a session that just went away, to the most
// recently created survivor, or to nothing.
func (s *Shell) refocusAfterLoss(name string) {
	if s.focused != name {
		return
	}
	s.focused = ""
	if names := s.reg.Names(); len(names) > 0 {
		s.SwitchTo(names[len(names)-1])
		return
	}
	s.state.LastActive = ""
	s.router.SyncVisibility("")
}

func (s *Shell) forgetProfile(name string) {
	for i, n := range s.state.Profiles {
		if n == name {
			s.state.Profiles = append(s.state.Profiles[:i], s.state.Profiles[i+1:]...)
			return
		}
	}
}

func (s *Shell) saveState() {
	if err := s.store.Save(*s.state); err != nil {
		s.log.Warn("Could not persist shell state.", zap.Error(err))
	}
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// healthActions adapts the registry's sessions to the health monitor, hopping
// probe answers back onto the loop.
type healthActions struct {
	reg  *registry.Registry
	loop *Loop
}

func (a *healthActions) ReloadBypassCache(name string) {
	if sess := a.reg.Get(name); sess != nil {
		sess.ReloadBypassCache()
	}
}

func (a *healthActions) ProbeBlank(name string, fn func(blank bool, err error)) {
	sess := a.reg.Get(name)
	if sess == nil {
		return
	}
	sess.ProbeBlank(func(blank bool, err error) {
		a.loop.Post(func() { fn(blank, err) })
	})
}

// walkerNav is the credential walker's view of the session set.
type walkerNav struct {
	reg *registry.Registry
}

func (n *walkerNav) CurrentURL(name string) string {
	if sess := n.reg.Get(name); sess != nil {
		return sess.CurrentURL()
	}
	return ""
}

func (n *walkerNav) Navigate(name, url string) {
	if sess := n.reg.Get(name); sess != nil {
		sess.Navigate(url)
	}
}
