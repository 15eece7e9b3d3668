// File: internal/popup/router.go
// Package popup tracks child windows opened by session pages and keeps their
// visibility bound to their owning session's focus state.
package popup

import (
	"go.uber.org/zap"
)

// Window is a popup's surface: shown when its owner holds focus, hidden
// otherwise, and closed when its owner goes away.
type Window interface {
	Show()
	Hide()
	Close()
}

type entry struct {
	owner string
	win   Window
}

// Router owns the popup→session affinity table. A popup belongs to the
// session whose page opened it, for its whole lifetime; focus changes only
// toggle visibility, never ownership.
//
// The router runs on the shell's event loop and is not safe for concurrent
// use.
type Router struct {
	log     *zap.Logger
	popups  map[string]entry // popup id → owner + surface
	focused string
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		log:    logger.Named("popup"),
		popups: make(map[string]entry),
	}
}

// Adopt registers a popup under its owning session and applies the current
// focus state to it immediately. Re-adopting a known id replaces its surface
// but keeps working.
func (r *Router) Adopt(owner, id string, win Window) {
	r.popups[id] = entry{owner: owner, win: win}
	r.log.Info("Popup adopted.",
		zap.String("session", owner), zap.String("popup", id))
	if owner == r.focused {
		win.Show()
	} else {
		win.Hide()
	}
}

// Release forgets a popup that closed on its own. Unknown ids are ignored.
func (r *Router) Release(id string) {
	e, ok := r.popups[id]
	if !ok {
		return
	}
	delete(r.popups, id)
	r.log.Info("Popup released.",
		zap.String("session", e.owner), zap.String("popup", id))
}

// SyncVisibility applies a focus change: every popup owned by the focused
// session is shown, every other popup is hidden. An empty focused name hides
// everything.
func (r *Router) SyncVisibility(focused string) {
	r.focused = focused
	for _, e := range r.popups {
		if focused != "" && e.owner == focused {
			e.win.Show()
		} else {
			e.win.Hide()
		}
	}
}

// CloseAll closes and forgets every popup owned by the named session. Used
// when the session is destroyed.
func (r *Router) CloseAll(owner string) {
	for id, e := range r.popups {
		if e.owner != owner {
			continue
		}
		delete(r.popups, id)
		e.win.Close()
	}
}

// Count reports how many popups a session currently owns.
func (r *Router) Count(owner string) int {
	n := 0
	for _, e := range r.popups {
		if e.owner == owner {
			n++
		}
	}
	return n
}
