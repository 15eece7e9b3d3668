// File: internal/registry/registry.go
// Package registry owns the set of live sessions: one isolated, logged-in
// browser profile per name, each with its own on-disk storage directory and
// self-healing record.
package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/xkilldash9x/multisteam/internal/health"
)

// Session is a live, isolated browser profile. Implementations run their own
// engine plumbing; the registry only cares about lifecycle and the handful of
// operations the shell forwards.
type Session interface {
	Name() string
	StorageDir() string

	// CurrentURL returns the last known location of the session's page.
	CurrentURL() string
	Navigate(url string)
	Back()
	Forward()
	Reload()
	ReloadBypassCache()
	// ProbeBlank reports asynchronously whether the page renders blank.
	ProbeBlank(fn func(blank bool, err error))

	// Show and Hide drive the session's window as focus moves.
	Show()
	Hide()

	// Close tears the session down. Its on-disk profile survives.
	Close(ctx context.Context) error
}

// LaunchFunc starts a new session for name, storing all engine state under
// dir. The browser package provides the production implementation.
type LaunchFunc func(ctx context.Context, name, dir string) (Session, error)

// Registry maps profile names to live sessions. It runs on the shell's event
// loop and is not safe for concurrent use.
type Registry struct {
	log         *zap.Logger
	profilesDir string
	launch      LaunchFunc
	// closePopups tears down every popup owned by a session being destroyed.
	closePopups func(owner string)

	sessions map[string]Session
	records  map[string]*health.Record
	order    []string // creation order, drives listing and fallback focus
}

func New(logger *zap.Logger, profilesDir string, launch LaunchFunc, closePopups func(owner string)) *Registry {
	return &Registry{
		log:         logger.Named("registry"),
		profilesDir: profilesDir,
		launch:      launch,
		closePopups: closePopups,
		sessions:    make(map[string]Session),
		records:     make(map[string]*health.Record),
	}
}

// ValidateName rejects names that cannot double as a storage directory name.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("profile name is empty")
	}
	if strings.TrimSpace(name) != name {
		return fmt.Errorf("profile name %q has leading or trailing whitespace", name)
	}
	if name == "." || name == ".." {
		return fmt.Errorf("profile name %q is reserved", name)
	}
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("profile name %q contains a path separator", name)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return fmt.Errorf("profile name contains a control character")
		}
	}
	return nil
}

// NextName returns the first unused "Steam N" name, counting from 1.
func (r *Registry) NextName() string {
	for n := 1; ; n++ {
		name := fmt.Sprintf("Steam %d", n)
		if _, ok := r.sessions[name]; !ok {
			return name
		}
	}
}

// Create validates the name, prepares the profile's storage directory and
// launches a session into it. The name must not already be live.
func (r *Registry) Create(ctx context.Context, name string) (Session, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if _, ok := r.sessions[name]; ok {
		return nil, fmt.Errorf("profile %q already exists", name)
	}

	dir := filepath.Join(r.profilesDir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating profile directory: %w", err)
	}

	sess, err := r.launch(ctx, name, dir)
	if err != nil {
		return nil, fmt.Errorf("launching session %q: %w", name, err)
	}

	r.sessions[name] = sess
	r.records[name] = &health.Record{}
	r.order = append(r.order, name)
	r.log.Info("Session created.",
		zap.String("session", name), zap.String("dir", dir))
	return sess, nil
}

// Destroy closes a session, its popups and its record, then removes the
// profile's storage directory. Directory removal is best effort: a failure is
// logged and the session is still gone.
func (r *Registry) Destroy(ctx context.Context, name string) error {
	sess, ok := r.sessions[name]
	if !ok {
		return fmt.Errorf("no such profile %q", name)
	}

	r.closePopups(name)
	if err := sess.Close(ctx); err != nil {
		r.log.Warn("Session close reported an error.",
			zap.String("session", name), zap.Error(err))
	}

	delete(r.sessions, name)
	delete(r.records, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	if err := os.RemoveAll(sess.StorageDir()); err != nil {
		r.log.Warn("Could not remove profile directory.",
			zap.String("session", name), zap.String("dir", sess.StorageDir()), zap.Error(err))
	}
	r.log.Info("Session destroyed.", zap.String("session", name))
	return nil
}

// Evict drops a session whose engine already died. Its record and map entry
// go away but the stored profile stays on disk for the next run. Close is
// still attempted to release protocol resources; its error is irrelevant.
func (r *Registry) Evict(ctx context.Context, name string) {
	sess, ok := r.sessions[name]
	if !ok {
		return
	}
	_ = sess.Close(ctx)
	delete(r.sessions, name)
	delete(r.records, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.log.Info("Session evicted.", zap.String("session", name))
}

// CloseAll shuts every session down without touching its stored profile.
// Used at shutdown so sessions stay logged in across runs.
func (r *Registry) CloseAll(ctx context.Context) {
	for _, name := range append([]string(nil), r.order...) {
		sess := r.sessions[name]
		if err := sess.Close(ctx); err != nil {
			r.log.Warn("Session close reported an error.",
				zap.String("session", name), zap.Error(err))
		}
		delete(r.sessions, name)
		delete(r.records, name)
	}
	r.order = nil
}

// Get returns the named session, or nil.
func (r *Registry) Get(name string) Session { return r.sessions[name] }

// Record returns the named session's self-healing state, or nil once the
// session is gone. The health monitor uses this as its liveness check.
func (r *Registry) Record(name string) *health.Record { return r.records[name] }

// Names lists live sessions in creation order.
func (r *Registry) Names() []string { return append([]string(nil), r.order...) }

func (r *Registry) Len() int { return len(r.sessions) }
