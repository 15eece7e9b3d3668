// File: internal/health/monitor.go
// Package health watches page-level failure signals from live sessions and
// schedules recovery reloads for the focused session, subject to a shared
// per-session cooldown and a cap on consecutive blank-render retries.
package health

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/multisteam/internal/config"
)

// Record is the per-session self-healing state. The session registry owns one
// Record per live session; the monitor mutates it through the lookup func.
type Record struct {
	// LastReloadAt timestamps the most recent recovery reload, whatever
	// its cause. All recovery paths share this cooldown anchor.
	LastReloadAt time.Time
	// BlankRetries counts consecutive blank-render reloads. Any non-blank
	// probe result resets it.
	BlankRetries int
}

// Actions is the slice of the session layer the monitor drives.
type Actions interface {
	// ReloadBypassCache reloads the session's page ignoring the HTTP
	// cache. All recovery paths reload this way: a stale cached bundle is
	// the usual culprit.
	ReloadBypassCache(name string)
	// ProbeBlank asks whether the session currently renders a blank page.
	// The answer arrives on the shell loop via fn.
	ProbeBlank(name string, fn func(blank bool, err error))
}

// Monitor reacts to failure signals on the focused session. All methods, and
// every callback and timer it schedules, run on the shell's event loop; the
// loop is the only synchronization. Timer callbacks re-check liveness and
// focus at delivery, never at scheduling.
type Monitor struct {
	log     *zap.Logger
	cfg     config.HealthConfig
	focused func() string
	record  func(name string) *Record
	actions Actions

	now   func() time.Time
	after func(d time.Duration, fn func())
}

// NewMonitor wires a monitor over the registry's records. focused returns the
// name of the currently focused session ("" for none); record returns nil for
// sessions that no longer exist; after must execute fn on the shell loop.
func NewMonitor(
	logger *zap.Logger,
	cfg config.HealthConfig,
	focused func() string,
	record func(name string) *Record,
	actions Actions,
	after func(d time.Duration, fn func()),
) *Monitor {
	return &Monitor{
		log:     logger.Named("health"),
		cfg:     cfg,
		focused: focused,
		record:  record,
		actions: actions,
		now:     time.Now,
		after:   after,
	}
}

// OnConsoleMessage classifies a console or uncaught-exception line from a
// session. A line matching the fatal substring table recovers the page when
// the session is focused.
func (m *Monitor) OnConsoleMessage(name, text string) {
	if !m.isFatal(text) {
		return
	}
	if m.focused() != name {
		return
	}
	m.log.Warn("Fatal page error detected.",
		zap.String("session", name), zap.String("error", text))
	m.scheduleRecovery(name)
}

// OnCrash handles a renderer crash.
func (m *Monitor) OnCrash(name string) {
	m.log.Warn("Session renderer crashed.", zap.String("session", name))
	m.scheduleRecovery(name)
}

// OnLoadFinished schedules a blank-render probe shortly after a page finishes
// loading. A blank result recovers the page, up to the consecutive retry cap;
// a rendered page resets the cap.
func (m *Monitor) OnLoadFinished(name string) {
	m.after(m.cfg.ProbeDelay, func() {
		if m.record(name) == nil || m.focused() != name {
			return
		}
		m.actions.ProbeBlank(name, func(blank bool, err error) {
			m.onProbeResult(name, blank, err)
		})
	})
}

func (m *Monitor) onProbeResult(name string, blank bool, err error) {
	rec := m.record(name)
	if rec == nil {
		return
	}
	if err != nil {
		m.log.Debug("Blank-render probe failed.",
			zap.String("session", name), zap.Error(err))
		return
	}
	if !blank {
		rec.BlankRetries = 0
		return
	}
	if rec.BlankRetries >= m.cfg.MaxBlankRetries {
		m.log.Warn("Page still blank after retries, giving up.",
			zap.String("session", name), zap.Int("retries", rec.BlankRetries))
		return
	}
	m.log.Info("Blank page detected, reloading.",
		zap.String("session", name), zap.Int("attempt", rec.BlankRetries+1))
	m.recover(name, blankRetry)
}

const (
	plainRecovery = false
	blankRetry    = true
)

func (m *Monitor) scheduleRecovery(name string) { m.recover(name, plainRecovery) }

// recover defers the reload by the recovery delay so the target settles
// first. Liveness, focus and the shared cooldown are all judged when the
// timer fires; a blank retry spends its budget only when the reload is
// actually issued, so a cooldown-suppressed attempt costs nothing.
func (m *Monitor) recover(name string, countBlankRetry bool) {
	m.after(m.cfg.RecoveryDelay, func() {
		rec := m.record(name)
		if rec == nil || m.focused() != name {
			return
		}
		if elapsed := m.now().Sub(rec.LastReloadAt); elapsed < m.cfg.ReloadCooldown {
			m.log.Debug("Recovery suppressed by cooldown.",
				zap.String("session", name), zap.Duration("elapsed", elapsed))
			return
		}
		if countBlankRetry {
			rec.BlankRetries++
		}
		rec.LastReloadAt = m.now()
		m.actions.ReloadBypassCache(name)
	})
}

func (m *Monitor) isFatal(text string) bool {
	for _, needle := range m.cfg.FatalConsoleErrors {
		if strings.Contains(text, needle) {
			return true
		}
	}
	return false
}
