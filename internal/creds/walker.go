// File: internal/creds/walker.go
package creds

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/multisteam/internal/siteurl"
)

// Choice is the operator's decision for the current credential entry.
type Choice int

const (
	ChoiceCopy Choice = iota
	ChoiceSkip
	ChoiceStop
)

// Prompter presents the current entry to the operator and collects a choice.
// It also carries non-blocking status notifications.
type Prompter interface {
	// Prompt shows entry number index+1 of total with the password masked.
	Prompt(index, total int, entry Pair) Choice
	Notify(msg string)
}

// Clipboard places plaintext on the system clipboard.
type Clipboard interface {
	Write(text string) error
}

// Navigator is the slice of the shell the walker drives: inspecting and
// steering a named session's location.
type Navigator interface {
	CurrentURL(name string) string
	Navigate(name, url string)
}

// Walker shepherds a human operator through a credential list, one entry per
// newly created profile, confirming sign-ins by the shape of the focused
// session's URL. It never submits credentials itself.
//
// The walker is single-threaded by contract: all methods must be called from
// the shell's event loop.
type Walker struct {
	log       *zap.Logger
	pairs     []Pair
	cursor    int
	active    bool
	prompter  Prompter
	clipboard Clipboard
	nav       Navigator
	onStopped func()
}

// NewWalker builds an Active walker over pairs, starting at startIndex
// (0-based, clamped to [0, len]). onStopped fires exactly once when the
// walker leaves the Active state, however that happens.
func NewWalker(
	logger *zap.Logger,
	pairs []Pair,
	startIndex int,
	prompter Prompter,
	clipboard Clipboard,
	nav Navigator,
	onStopped func(),
) *Walker {
	if startIndex < 0 {
		startIndex = 0
	}
	if startIndex > len(pairs) {
		startIndex = len(pairs)
	}
	w := &Walker{
		log:       logger.Named("import"),
		pairs:     pairs,
		cursor:    startIndex,
		active:    true,
		prompter:  prompter,
		clipboard: clipboard,
		nav:       nav,
		onStopped: onStopped,
	}
	w.prompter.Notify(fmt.Sprintf(
		"Credential import started at entry %d of %d. Create a new profile to continue.",
		w.cursor+1, len(w.pairs)))
	return w
}

// Active reports whether the walker still reacts to events.
func (w *Walker) Active() bool { return w.active }

// Cursor returns the 0-based position of the next entry to process.
func (w *Walker) Cursor() int { return w.cursor }

// Stop transitions the walker to its terminal state and detaches it.
// Idempotent.
func (w *Walker) Stop() {
	if !w.active {
		return
	}
	w.active = false
	w.log.Info("Credential import stopped.", zap.Int("cursor", w.cursor), zap.Int("total", len(w.pairs)))
	w.prompter.Notify("Credential import stopped.")
	if w.onStopped != nil {
		w.onStopped()
	}
}

// OnProfileAdded handles a freshly created session: steers it to the sign-in
// page if needed, then prompts the operator for the current entry.
func (w *Walker) OnProfileAdded(name string) {
	if !w.active || w.cursor >= len(w.pairs) {
		return
	}

	if !siteurl.IsLogin(w.nav.CurrentURL(name)) {
		w.nav.Navigate(name, siteurl.LoginHome)
	}

	entry := w.pairs[w.cursor]
	switch w.prompter.Prompt(w.cursor, len(w.pairs), entry) {
	case ChoiceStop:
		w.Stop()
	case ChoiceSkip:
		w.advance()
	case ChoiceCopy:
		if err := w.clipboard.Write(entry.Plain()); err != nil {
			w.log.Warn("Failed to copy credentials to clipboard.", zap.Error(err))
			w.prompter.Notify("Could not copy to clipboard: " + err.Error())
			return
		}
		w.prompter.Notify("Copied to clipboard: " + entry.Masked())
	}
}

// OnURLChanged handles a navigation of the focused session. Landing on the
// destination site anywhere other than a sign-in page confirms the current
// entry and advances the cursor.
func (w *Walker) OnURLChanged(url string) {
	if !w.active || w.cursor >= len(w.pairs) {
		return
	}
	if !siteurl.OnSite(url) || siteurl.IsLogin(url) {
		return
	}
	w.log.Info("Sign-in confirmed by navigation.", zap.Int("entry", w.cursor+1))
	w.advance()
	if w.active {
		w.prompter.Notify(fmt.Sprintf(
			"Sign-in confirmed. Done %d/%d. Create the next profile.",
			w.cursor, len(w.pairs)))
	}
}

// advance moves the cursor forward and finishes the walk on exhaustion.
func (w *Walker) advance() {
	w.cursor++
	if w.cursor >= len(w.pairs) {
		w.prompter.Notify("All credential entries processed.")
		w.Stop()
		return
	}
	w.prompter.Notify(fmt.Sprintf(
		"%d of %d entries remain. Create the next profile.",
		len(w.pairs)-w.cursor, len(w.pairs)))
}
